package report

import (
	"path/filepath"
	"testing"
)

// createTestStore opens a store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun returns a completed run with minimal fields.
func createTestRun(id string) Run {
	return Run{
		ID:        id,
		Model:     "test",
		Seed:      1,
		Status:    StatusCompleted,
		FinalTime: 10,
		Plans:     3,
	}
}
