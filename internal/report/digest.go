package report

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Digest fingerprints the recorded events and samples of a run. Two runs
// with equal digests recorded the same sequence.
func Digest(events []Event, samples []Sample) string {
	h := xxhash.New()
	for _, ev := range events {
		prev := "-"
		if ev.HadPrevious {
			prev = ev.Previous
		}
		fmt.Fprintf(h, "e|%d|%s|%s|%s|%s|%s|%s\n",
			ev.Seq, strconv.FormatFloat(ev.Time, 'g', -1, 64), ev.Kind, ev.Entity, ev.Property, prev, ev.Current)
	}
	for _, sm := range samples {
		fmt.Fprintf(h, "s|%d|%s|%s|%d\n",
			sm.Seq, strconv.FormatFloat(sm.Time, 'g', -1, 64), sm.Name, sm.Value)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
