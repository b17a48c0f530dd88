package journal

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"recsync/internal/recsync"
)

// newTestJournal creates a new in-memory journal with the schema applied.
func newTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()

	j, err := NewSQLiteJournal(":memory:")
	if err != nil {
		t.Fatalf("failed to create journal: %v", err)
	}
	if err := j.MigrateUp(); err != nil {
		j.Close()
		t.Fatalf("failed to migrate journal: %v", err)
	}

	t.Cleanup(func() {
		j.Close()
	})
	return j
}

func TestSQLiteJournal_StartAndFinish(t *testing.T) {
	j := newTestJournal(t)
	started := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	since := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	if err := j.StartRun("run-1", started); err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}

	runs, err := j.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].State != recsync.StateInit {
		t.Fatalf("ListRuns() after start = %+v, want one run in init", runs)
	}
	if !runs[0].FinishedAt.IsZero() {
		t.Errorf("FinishedAt = %v, want zero before finish", runs[0].FinishedAt)
	}

	want := &recsync.RunResult{
		RunID:        "run-1",
		State:        recsync.StateDone,
		StartedAt:    started,
		FinishedAt:   started.Add(3 * time.Second),
		Since:        since,
		Fetched:      4,
		Skipped:      1,
		Inserted:     2,
		Updated:      1,
		Rows:         10,
		Bootstrapped: true,
		Uploaded:     true,
	}
	if err := j.FinishRun(want); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	runs, err = j.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	got := runs[0]

	if got.State != recsync.StateDone {
		t.Errorf("State = %q, want %q", got.State, recsync.StateDone)
	}
	if !got.StartedAt.Equal(started) || !got.FinishedAt.Equal(want.FinishedAt) || !got.Since.Equal(since) {
		t.Errorf("times = %v / %v / %v, want %v / %v / %v",
			got.StartedAt, got.FinishedAt, got.Since, started, want.FinishedAt, since)
	}
	if got.Fetched != 4 || got.Skipped != 1 || got.Inserted != 2 || got.Updated != 1 || got.Rows != 10 {
		t.Errorf("counts = %+v, want fetched 4 skipped 1 inserted 2 updated 1 rows 10", got)
	}
	if !got.Bootstrapped || !got.Uploaded || got.DryRun {
		t.Errorf("flags = bootstrapped %v uploaded %v dry_run %v", got.Bootstrapped, got.Uploaded, got.DryRun)
	}
}

func TestSQLiteJournal_FailedRun(t *testing.T) {
	j := newTestJournal(t)
	started := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	if err := j.StartRun("run-f", started); err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	err := j.FinishRun(&recsync.RunResult{
		RunID:      "run-f",
		State:      recsync.StateFailed,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Error:      "sync failed after secret_loaded: source query failed",
	})
	if err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	runs, _ := j.ListRuns(1)
	if runs[0].State != recsync.StateFailed {
		t.Errorf("State = %q, want %q", runs[0].State, recsync.StateFailed)
	}
	if runs[0].Error != "sync failed after secret_loaded: source query failed" {
		t.Errorf("Error = %q", runs[0].Error)
	}
	if !runs[0].Since.IsZero() {
		t.Errorf("Since = %v, want zero", runs[0].Since)
	}
}

func TestSQLiteJournal_FinishUnknownRun(t *testing.T) {
	j := newTestJournal(t)

	err := j.FinishRun(&recsync.RunResult{RunID: "missing", State: recsync.StateDone})
	if err == nil {
		t.Error("FinishRun() expected error for a run that was never started")
	}
}

func TestSQLiteJournal_StartDuplicate(t *testing.T) {
	j := newTestJournal(t)
	now := time.Now()

	if err := j.StartRun("dup", now); err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	if err := j.StartRun("dup", now); err == nil {
		t.Error("StartRun() expected error for duplicate run id")
	}
}

func TestSQLiteJournal_ListRuns_NewestFirstWithLimit(t *testing.T) {
	j := newTestJournal(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if err := j.StartRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("StartRun() error = %v", err)
		}
	}

	runs, err := j.ListRuns(3)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("len(runs) = %d, want 3", len(runs))
	}
	for i, want := range []string{"run-4", "run-3", "run-2"} {
		if runs[i].RunID != want {
			t.Errorf("runs[%d].RunID = %q, want %q", i, runs[i].RunID, want)
		}
	}
}

func TestSQLiteJournal_ListRuns_Empty(t *testing.T) {
	j := newTestJournal(t)

	runs, err := j.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("ListRuns() = %v, want empty", runs)
	}
}

func TestSQLiteJournal_CheckMigrations(t *testing.T) {
	j, err := NewSQLiteJournal(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteJournal() error = %v", err)
	}
	defer j.Close()

	if err := j.CheckMigrations(); err == nil {
		t.Error("CheckMigrations() expected error before migration")
	}
	if err := j.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	if err := j.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() after migration error = %v", err)
	}
}

func TestSQLiteJournal_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	j, err := NewSQLiteJournal(path)
	if err != nil {
		t.Fatalf("NewSQLiteJournal() error = %v", err)
	}
	if err := j.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	if err := j.StartRun("kept", time.Now()); err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	j.Close()

	reopened, err := NewSQLiteJournal(path)
	if err != nil {
		t.Fatalf("NewSQLiteJournal() reopen error = %v", err)
	}
	defer reopened.Close()

	if err := reopened.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() after reopen error = %v", err)
	}
	runs, err := reopened.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "kept" {
		t.Errorf("ListRuns() = %+v, want the run recorded before reopen", runs)
	}
}
