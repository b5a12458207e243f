package report

import (
	"context"
	"database/sql"
	"fmt"
)

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is the summary row of one simulation run.
type Run struct {
	ID        string
	Model     string
	Seed      uint64
	Params    map[string]any
	Status    string
	Error     string
	FinalTime float64
	Plans     int
	Entities  int
	Changes   int
}

// WriteRun stores run with its events and samples in one transaction.
// Writing a run ID that already exists fails and leaves the store
// unchanged.
func (s *Store) WriteRun(ctx context.Context, run Run, events []Event, samples []Sample) error {
	params, err := marshalParams(run.Params)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, model, seed, params, status, error, final_time, plans, entities, changes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Model,
		int64(run.Seed),
		params,
		run.Status,
		run.Error,
		run.FinalTime,
		run.Plans,
		run.Entities,
		run.Changes,
	)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}

	if err := writeEvents(ctx, tx, run.ID, events); err != nil {
		return err
	}
	if err := writeSamples(ctx, tx, run.ID, samples); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

func writeEvents(ctx context.Context, tx *sql.Tx, runID string, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events
		(run_id, seq, time, kind, entity, property, previous, current)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write events: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		previous := sql.NullString{String: ev.Previous, Valid: ev.HadPrevious}
		if _, err := stmt.ExecContext(ctx, runID, ev.Seq, ev.Time, ev.Kind, ev.Entity, ev.Property, previous, ev.Current); err != nil {
			return fmt.Errorf("write event %d: %w", ev.Seq, err)
		}
	}
	return nil
}

func writeSamples(ctx context.Context, tx *sql.Tx, runID string, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples
		(run_id, seq, time, name, value)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write samples: prepare: %w", err)
	}
	defer stmt.Close()

	for _, sm := range samples {
		if _, err := stmt.ExecContext(ctx, runID, sm.Seq, sm.Time, sm.Name, sm.Value); err != nil {
			return fmt.Errorf("write sample %d: %w", sm.Seq, err)
		}
	}
	return nil
}
