package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned by ReadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Transition counts changes of one property from one value to another.
type Transition struct {
	Property    string
	Previous    string
	HadPrevious bool
	Current     string
	Count       int
}

const runColumns = `id, model, seed, params, status, error, final_time, plans, entities, changes`

// ReadRun returns the run with the given ID.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run ordered by ID.
//
// Returns an empty slice (not nil) if there are no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadEvents returns the events of a run in recording order.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, time, kind, entity, property, previous, current
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var ev Event
		var previous sql.NullString
		if err := rows.Scan(&ev.Seq, &ev.Time, &ev.Kind, &ev.Entity, &ev.Property, &previous, &ev.Current); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Previous, ev.HadPrevious = previous.String, previous.Valid
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ReadSamples returns the samples of a run in recording order.
func (s *Store) ReadSamples(ctx context.Context, runID string) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, time, name, value
		FROM samples
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	samples := []Sample{}
	for rows.Next() {
		var sm Sample
		if err := rows.Scan(&sm.Seq, &sm.Time, &sm.Name, &sm.Value); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

// Transitions counts the change events of a run grouped by property and
// (previous, current) value, ordered by property, previous then current.
// A write without a previous value sorts first.
func (s *Store) Transitions(ctx context.Context, runID string) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT property, previous, current, COUNT(*)
		FROM events
		WHERE run_id = ? AND kind = ?
		GROUP BY property, previous, current
		ORDER BY property COLLATE BINARY ASC, previous COLLATE BINARY ASC, current COLLATE BINARY ASC
	`, runID, KindChange)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	out := []Transition{}
	for rows.Next() {
		var tr Transition
		var previous sql.NullString
		if err := rows.Scan(&tr.Property, &previous, &tr.Current, &tr.Count); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.Previous, tr.HadPrevious = previous.String, previous.Valid
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var seed int64
	var params string
	err := row.Scan(&run.ID, &run.Model, &seed, &params, &run.Status, &run.Error,
		&run.FinalTime, &run.Plans, &run.Entities, &run.Changes)
	if err != nil {
		return Run{}, err
	}
	run.Seed = uint64(seed)
	run.Params, err = unmarshalParams(params)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}
