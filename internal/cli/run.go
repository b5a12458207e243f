package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/simkernel/internal/models"
	"github.com/roach88/simkernel/internal/report"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Params     string
	Seed       uint64
	Replicates int
	MaxPlans   int
	Database   string

	// IDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs report.IDGenerator
}

// RunSummary describes one finished run.
type RunSummary struct {
	ID        string           `json:"id"`
	Model     string           `json:"model"`
	Seed      uint64           `json:"seed"`
	Status    string           `json:"status"`
	Error     string           `json:"error,omitempty"`
	FinalTime float64          `json:"final_time"`
	Plans     int              `json:"plans"`
	Entities  int              `json:"entities"`
	Changes   int              `json:"changes"`
	Digest    string           `json:"digest"`
	Final     map[string]int64 `json:"final,omitempty"`
}

// RunOutput is the payload of the run command.
type RunOutput struct {
	Runs     []RunSummary `json:"runs"`
	Database string       `json:"database,omitempty"`
}

func (o RunOutput) renderText(w io.Writer) {
	for _, r := range o.Runs {
		fmt.Fprintf(w, "%s %s seed=%d status=%s time=%g plans=%d changes=%d digest=%s\n",
			r.ID, r.Model, r.Seed, r.Status, r.FinalTime, r.Plans, r.Changes, r.Digest)
		for _, name := range sortedKeys(r.Final) {
			fmt.Fprintf(w, "  %s=%d\n", name, r.Final[name])
		}
		if r.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", r.Error)
		}
	}
	if o.Database != "" {
		fmt.Fprintf(w, "Recorded %d run(s) in %s\n", len(o.Runs), o.Database)
	}
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <model>",
		Short: "Run a simulation model",
		Long: `Run a registered simulation model to completion.

Parameters are read from a YAML, JSON or CUE file keyed by global name.
Replicates run in parallel with seeds seed, seed+1, ... and, with --db,
every run is recorded in a SQLite report database.

Example:
  simk run sir
  simk run sir --params ./sir.yaml --seed 7 --replicates 8 --db ./runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModel(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Params, "params", "", "parameter file (.yaml, .json or .cue)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "base seed (default: the model's seed)")
	cmd.Flags().IntVar(&opts.Replicates, "replicates", 1, "number of independent runs")
	cmd.Flags().IntVar(&opts.MaxPlans, "max-plans", 0, "abort a run after this many plans (0 = no limit)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite report database")

	return cmd
}

func runModel(opts *RunOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.logger(cmd.ErrOrStderr())

	model, err := opts.registry().Get(name)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeUnknownModel, fmt.Sprintf("unknown model %q", name), err)
	}
	if opts.Replicates < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("replicates must be positive, got %d", opts.Replicates))
	}

	var st *report.Store
	if opts.Database != "" {
		log.Debug("opening report database", "path", opts.Database)
		st, err = report.Open(opts.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeReport, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	cfg := models.Config{
		Seed:       opts.Seed,
		HasSeed:    cmd.Flags().Changed("seed"),
		ParamsFile: opts.Params,
		MaxPlans:   opts.MaxPlans,
		Logger:     log,
		IDs:        opts.IDs,
	}
	results, runErr := models.RunReplicates(ctx, model, cfg, opts.Replicates)

	out := RunOutput{Database: opts.Database}
	for _, res := range results {
		if res.Run.ID == "" {
			continue // never started
		}
		if st != nil {
			if err := st.WriteRun(ctx, res.Run, res.Events, res.Samples); err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeReport, "failed to record run", err)
			}
		}
		out.Runs = append(out.Runs, summarize(res))
	}

	if runErr != nil {
		if len(out.Runs) == 0 {
			return formatter.Fail(ExitCommandError, ErrCodeInvalidParams, "model setup failed", runErr)
		}
		if err := formatter.Success(out); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "run failed", runErr)
	}
	return formatter.Success(out)
}

func summarize(res models.Result) RunSummary {
	s := RunSummary{
		ID:        res.Run.ID,
		Model:     res.Run.Model,
		Seed:      res.Run.Seed,
		Status:    res.Run.Status,
		Error:     res.Run.Error,
		FinalTime: res.Run.FinalTime,
		Plans:     res.Run.Plans,
		Entities:  res.Run.Entities,
		Changes:   res.Run.Changes,
		Digest:    res.Digest,
	}
	// Samples are in time order; the last one per name is the final value.
	for _, sample := range res.Samples {
		if s.Final == nil {
			s.Final = make(map[string]int64)
		}
		s.Final[sample.Name] = sample.Value
	}
	return s
}

// signalContext cancels on SIGINT/SIGTERM. Runs observe cancellation
// between plans.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
