package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/simkernel/internal/report"
)

// RunListing is the payload of "report <db>".
type RunListing struct {
	Runs []RunRow `json:"runs"`
}

// RunRow is one stored run.
type RunRow struct {
	ID        string  `json:"id"`
	Model     string  `json:"model"`
	Seed      uint64  `json:"seed"`
	Status    string  `json:"status"`
	FinalTime float64 `json:"final_time"`
	Changes   int     `json:"changes"`
}

func (l RunListing) renderText(w io.Writer) {
	if len(l.Runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, r := range l.Runs {
		fmt.Fprintf(w, "%s %s seed=%d %s time=%g changes=%d\n",
			r.ID, r.Model, r.Seed, r.Status, r.FinalTime, r.Changes)
	}
}

// RunDetail is the payload of "report <db> <run-id>".
type RunDetail struct {
	Run         RunRow          `json:"run"`
	Params      map[string]any  `json:"params,omitempty"`
	Error       string          `json:"error,omitempty"`
	Events      int             `json:"events"`
	Samples     int             `json:"samples"`
	Digest      string          `json:"digest"`
	Transitions []TransitionRow `json:"transitions"`
}

// TransitionRow counts changes of one property between two values.
type TransitionRow struct {
	Property string `json:"property"`
	From     string `json:"from,omitempty"`
	To       string `json:"to"`
	Count    int    `json:"count"`
}

func (d RunDetail) renderText(w io.Writer) {
	r := d.Run
	fmt.Fprintf(w, "Run %s\n", r.ID)
	fmt.Fprintf(w, "  model:   %s (seed %d)\n", r.Model, r.Seed)
	fmt.Fprintf(w, "  status:  %s\n", r.Status)
	if d.Error != "" {
		fmt.Fprintf(w, "  error:   %s\n", d.Error)
	}
	fmt.Fprintf(w, "  time:    %g\n", r.FinalTime)
	fmt.Fprintf(w, "  events:  %d\n", d.Events)
	fmt.Fprintf(w, "  samples: %d\n", d.Samples)
	fmt.Fprintf(w, "  digest:  %s\n", d.Digest)
	for _, name := range sortedKeys(d.Params) {
		fmt.Fprintf(w, "  param %s = %v\n", name, d.Params[name])
	}
	if len(d.Transitions) > 0 {
		fmt.Fprintln(w, "Transitions:")
	}
	for _, t := range d.Transitions {
		from := t.From
		if from == "" {
			from = "<unset>"
		}
		fmt.Fprintf(w, "  %s %s -> %s: %d\n", t.Property, from, t.To, t.Count)
	}
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report <db> [run-id]",
		Short: "Summarize recorded runs",
		Long: `Summarize runs stored in a report database.

Without a run ID, lists every run. With one, shows its parameters,
trace digest and property transition counts.

Example:
  simk report ./runs.db
  simk report ./runs.db 0190b3c2-...`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 2 {
				runID = args[1]
			}
			return runReport(rootOpts, args[0], runID, cmd)
		},
	}
}

func runReport(opts *RootOptions, dbPath, runID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	// Opening creates the file, so check first.
	if _, err := os.Stat(dbPath); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReport, fmt.Sprintf("database not found: %s", dbPath), err)
	}
	st, err := report.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReport, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if runID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeReport, "failed to list runs", err)
		}
		listing := RunListing{Runs: make([]RunRow, len(runs))}
		for i, r := range runs {
			listing.Runs[i] = runRow(r)
		}
		return formatter.Success(listing)
	}

	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, report.ErrRunNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeRunNotFound, fmt.Sprintf("run %s not found", runID), err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReport, "failed to read run", err)
	}
	events, err := st.ReadEvents(ctx, runID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReport, "failed to read events", err)
	}
	samples, err := st.ReadSamples(ctx, runID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReport, "failed to read samples", err)
	}
	transitions, err := st.Transitions(ctx, runID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReport, "failed to read transitions", err)
	}

	detail := RunDetail{
		Run:         runRow(run),
		Params:      run.Params,
		Error:       run.Error,
		Events:      len(events),
		Samples:     len(samples),
		Digest:      report.Digest(events, samples),
		Transitions: make([]TransitionRow, len(transitions)),
	}
	for i, t := range transitions {
		detail.Transitions[i] = TransitionRow{Property: t.Property, From: t.Previous, To: t.Current, Count: t.Count}
	}
	return formatter.Success(detail)
}

func runRow(r report.Run) RunRow {
	return RunRow{
		ID:        r.ID,
		Model:     r.Model,
		Seed:      r.Seed,
		Status:    r.Status,
		FinalTime: r.FinalTime,
		Changes:   r.Changes,
	}
}
