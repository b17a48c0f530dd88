// Package journal records the history of sync runs in SQLite.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"recsync/internal/journal/migrations"
	"recsync/internal/recsync"
)

// SQLiteJournal implements recsync.Journal using SQLite.
type SQLiteJournal struct {
	db   *sql.DB
	path string
}

// NewSQLiteJournal opens the journal at path, which can be a file path or
// ":memory:". The schema is not applied; see MigrateUp.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteJournal{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

// CheckMigrations verifies the journal schema is up-to-date.
func (j *SQLiteJournal) CheckMigrations() error {
	return migrations.CheckStatus(j.db)
}

// MigrateUp applies any pending schema migrations.
func (j *SQLiteJournal) MigrateUp() error {
	return migrations.Up(j.db)
}

// StartRun records a run in the init state.
func (j *SQLiteJournal) StartRun(runID string, startedAt time.Time) error {
	_, err := j.db.Exec(
		`INSERT INTO sync_runs (run_id, state, started_at) VALUES (?, ?, ?)`,
		runID, string(recsync.StateInit), startedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("starting run %s: %w", runID, err)
	}
	return nil
}

// FinishRun stores the final state and counts of a run started with StartRun.
func (j *SQLiteJournal) FinishRun(r *recsync.RunResult) error {
	res, err := j.db.Exec(`
		UPDATE sync_runs SET
			state = ?, finished_at = ?, since = ?,
			fetched = ?, skipped = ?, inserted = ?, updated = ?, row_count = ?,
			bootstrapped = ?, uploaded = ?, dry_run = ?, error = ?
		WHERE run_id = ?`,
		string(r.State), nullableTime(r.FinishedAt), nullableTime(r.Since),
		r.Fetched, r.Skipped, r.Inserted, r.Updated, r.Rows,
		r.Bootstrapped, r.Uploaded, r.DryRun, r.Error,
		r.RunID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", r.RunID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", r.RunID, err)
	}
	if n == 0 {
		return fmt.Errorf("finishing run %s: run was never started", r.RunID)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first.
func (j *SQLiteJournal) ListRuns(limit int) ([]*recsync.RunResult, error) {
	rows, err := j.db.Query(`
		SELECT run_id, state, started_at, finished_at, since,
			fetched, skipped, inserted, updated, row_count,
			bootstrapped, uploaded, dry_run, error
		FROM sync_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*recsync.RunResult
	for rows.Next() {
		var (
			r               recsync.RunResult
			state           string
			started         int64
			finished, since sql.NullInt64
		)
		if err := rows.Scan(&r.RunID, &state, &started, &finished, &since,
			&r.Fetched, &r.Skipped, &r.Inserted, &r.Updated, &r.Rows,
			&r.Bootstrapped, &r.Uploaded, &r.DryRun, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.State = recsync.State(state)
		r.StartedAt = time.Unix(0, started)
		if finished.Valid {
			r.FinishedAt = time.Unix(0, finished.Int64)
		}
		if since.Valid {
			r.Since = time.Unix(0, since.Int64)
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Path returns the journal file path (or ":memory:").
func (j *SQLiteJournal) Path() string {
	return j.path
}

// Close closes the journal connection.
func (j *SQLiteJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

func nullableTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

var _ recsync.Journal = (*SQLiteJournal)(nil)
