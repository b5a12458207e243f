package models

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/simkernel/internal/report"
	"github.com/roach88/simkernel/internal/sim"
)

// Config controls one run of a model.
type Config struct {
	// Seed overrides the model's default seed when HasSeed is set.
	Seed    uint64
	HasSeed bool

	// ParamsFile is a YAML, JSON or CUE file of global values. Optional.
	ParamsFile string

	// MaxPlans aborts runaway runs. Zero means no limit.
	MaxPlans int

	Logger *slog.Logger
	IDs    report.IDGenerator
}

func (cfg Config) seed(m Model) uint64 {
	if cfg.HasSeed {
		return cfg.Seed
	}
	return m.DefaultSeed()
}

func (cfg Config) logger() *slog.Logger {
	if cfg.Logger == nil {
		return slog.Default()
	}
	return cfg.Logger
}

func (cfg Config) ids() report.IDGenerator {
	if cfg.IDs == nil {
		return report.UUIDv7Generator{}
	}
	return cfg.IDs
}

// Result is a finished run with everything it recorded.
type Result struct {
	Run     report.Run
	Events  []report.Event
	Samples []report.Sample
	Digest  string
}

// Run sets up m in a new Context and runs it to completion.
//
// Errors before the simulation starts (parameters, setup) are returned with
// an empty Result. A failure during the simulation is returned together
// with a Result whose Run has StatusFailed, so the partial record can still
// be stored.
func Run(ctx context.Context, m Model, cfg Config) (Result, error) {
	return run(ctx, m, cfg, cfg.seed(m), cfg.ids().Generate())
}

func run(ctx context.Context, m Model, cfg Config, seed uint64, id string) (Result, error) {
	log := cfg.logger().With("run", id, "model", m.Name(), "seed", seed)
	c := sim.New(
		sim.WithSeed(seed),
		sim.WithMaxPlans(cfg.MaxPlans),
		sim.WithLogger(log),
	)

	if err := c.RegisterGlobals(m.Globals()...); err != nil {
		return Result{}, fmt.Errorf("model %s: %w", m.Name(), err)
	}
	if cfg.ParamsFile != "" {
		if err := c.LoadGlobalsFile(cfg.ParamsFile); err != nil {
			return Result{}, err
		}
	}

	rec := report.NewRecorder()
	m.Observe(c, rec)
	if err := m.Setup(c); err != nil {
		return Result{}, fmt.Errorf("set up model %s: %w", m.Name(), err)
	}

	runErr := c.Run(ctx)

	stats := c.Stats()
	res := Result{
		Run: report.Run{
			ID:        id,
			Model:     m.Name(),
			Seed:      seed,
			Params:    c.GlobalValues(),
			Status:    report.StatusCompleted,
			FinalTime: stats.Time,
			Plans:     stats.PlansExecuted,
			Entities:  stats.EntitiesCreated,
			Changes:   stats.PropertyChanges,
		},
		Events:  rec.Events(),
		Samples: rec.Samples(),
		Digest:  report.Digest(rec.Events(), rec.Samples()),
	}
	if runErr != nil {
		res.Run.Status = report.StatusFailed
		res.Run.Error = runErr.Error()
		return res, runErr
	}
	return res, nil
}

// RunReplicates runs n independent copies of m with seeds seed, seed+1, ...
// in parallel, each on its own Context. Results are in replicate order.
// The first failure cancels the replicates that have not finished.
func RunReplicates(ctx context.Context, m Model, cfg Config, n int) ([]Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("replicates must be positive, got %d", n)
	}

	base := cfg.seed(m)
	ids := make([]string, n)
	for i := range ids {
		ids[i] = cfg.ids().Generate()
	}

	results := make([]Result, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			res, err := run(gctx, m, cfg, base+uint64(i), ids[i])
			results[i] = res
			if err != nil {
				return fmt.Errorf("replicate %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
