package testutil

import (
	"testing"

	"recsync/internal/journal"
)

// NewTestJournal creates a new in-memory journal with the schema applied.
// The journal is automatically closed when the test completes.
func NewTestJournal(t *testing.T) *journal.SQLiteJournal {
	t.Helper()

	j, err := journal.NewSQLiteJournal(":memory:")
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	if err := j.MigrateUp(); err != nil {
		j.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		j.Close()
	})
	return j
}
