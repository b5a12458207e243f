package report

import (
	"github.com/roach88/simkernel/internal/sim"
	"github.com/roach88/simkernel/internal/value"
)

// Event kinds.
const (
	KindCreated = "created"
	KindChange  = "change"
)

// Event is one recorded kernel event.
type Event struct {
	Seq         int64
	Time        float64
	Kind        string
	Entity      string
	Property    string
	Previous    string
	HadPrevious bool
	Current     string
}

// Sample is a named integer observation, such as a compartment count.
type Sample struct {
	Seq   int64
	Time  float64
	Name  string
	Value int64
}

// Recorder buffers events from one Context until they are written.
// Attach it before the events of interest happen; it sees nothing earlier.
type Recorder struct {
	events  []Event
	samples []Sample
	seq     int64
	subs    []sim.Subscription
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// WatchCreated records EntityCreated events of the given types.
func (r *Recorder) WatchCreated(c *sim.Context, types ...*sim.EntityType) {
	for _, et := range types {
		r.subs = append(r.subs, sim.OnCreated(c, et, func(c *sim.Context, ev sim.EntityCreated) error {
			r.append(Event{
				Time:   c.CurrentTime(),
				Kind:   KindCreated,
				Entity: ev.Entity.String(),
			})
			return nil
		}))
	}
}

// Watch records every change of the given properties.
func (r *Recorder) Watch(c *sim.Context, refs ...sim.PropertyRef) {
	for _, ref := range refs {
		r.subs = append(r.subs, sim.Watch(c, ref, func(c *sim.Context, ch sim.Change) error {
			ev := Event{
				Time:        c.CurrentTime(),
				Kind:        KindChange,
				Entity:      ch.Entity.String(),
				Property:    ch.Property,
				HadPrevious: ch.HadPrevious,
				Current:     value.MustFormat(ch.Current),
			}
			if ch.HadPrevious {
				ev.Previous = value.MustFormat(ch.Previous)
			}
			r.append(ev)
			return nil
		}))
	}
}

// Sample records v under name at the current time.
func (r *Recorder) Sample(c *sim.Context, name string, v int64) {
	r.seq++
	r.samples = append(r.samples, Sample{Seq: r.seq, Time: c.CurrentTime(), Name: name, Value: v})
}

func (r *Recorder) append(ev Event) {
	r.seq++
	ev.Seq = r.seq
	r.events = append(r.events, ev)
}

// Detach removes every subscription the recorder made on c.
func (r *Recorder) Detach(c *sim.Context) {
	for _, s := range r.subs {
		c.Unsubscribe(s)
	}
	r.subs = nil
}

// Events returns the recorded events in order.
func (r *Recorder) Events() []Event { return r.events }

// Samples returns the recorded samples in order.
func (r *Recorder) Samples() []Sample { return r.samples }
