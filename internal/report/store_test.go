package report

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1"), nil, nil))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}

func TestWriteRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1")
	run.Seed = 1 << 63
	run.Params = map[string]any{"population": 1000, "label": "<sir>"}
	events := []Event{
		{Seq: 1, Time: 0, Kind: KindCreated, Entity: "Person#0"},
		{Seq: 2, Time: 1.5, Kind: KindChange, Entity: "Person#0", Property: "InfectionStatus", Previous: `"S"`, HadPrevious: true, Current: `"I"`},
		{Seq: 4, Time: 2, Kind: KindChange, Entity: "Person#0", Property: "Age", Current: "3"},
	}
	samples := []Sample{{Seq: 3, Time: 1.5, Name: "infected", Value: 1}}

	require.NoError(t, s.WriteRun(ctx, run, events, samples))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<63), got.Seed)
	assert.Equal(t, json.Number("1000"), got.Params["population"])
	assert.Equal(t, "<sir>", got.Params["label"])
	assert.Equal(t, StatusCompleted, got.Status)

	gotEvents, err := s.ReadEvents(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, events, gotEvents)

	gotSamples, err := s.ReadSamples(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, samples, gotSamples)
}

func TestWriteRun_DuplicateIDLeavesStoreUnchanged(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1"), nil, nil))

	err := s.WriteRun(ctx, createTestRun("run-1"), []Event{{Seq: 1, Kind: KindCreated, Entity: "Person#0"}}, nil)
	require.Error(t, err)

	events, err := s.ReadEvents(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"b", "c", "a"} {
		require.NoError(t, s.WriteRun(ctx, createTestRun(id), nil, nil))
	}

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestListRuns_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestTransitions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	change := func(seq int64, prev, cur string) Event {
		return Event{Seq: seq, Kind: KindChange, Entity: "Person#0", Property: "Status", Previous: prev, HadPrevious: prev != "", Current: cur}
	}
	events := []Event{
		{Seq: 1, Kind: KindCreated, Entity: "Person#0"},
		change(2, `"S"`, `"I"`),
		change(3, `"I"`, `"R"`),
		change(4, `"S"`, `"I"`),
		change(5, "", `"S"`),
	}
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1"), events, nil))

	got, err := s.Transitions(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []Transition{
		{Property: "Status", Current: `"S"`, Count: 1},
		{Property: "Status", Previous: `"I"`, HadPrevious: true, Current: `"R"`, Count: 1},
		{Property: "Status", Previous: `"S"`, HadPrevious: true, Current: `"I"`, Count: 2},
	}, got)
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("run-1", "run-2")
	assert.Equal(t, "run-1", g.Generate())
	assert.Equal(t, "run-2", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestUUIDv7Generator_Sortable(t *testing.T) {
	var g UUIDv7Generator
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.LessOrEqual(t, a[:13], b[:13])
}
