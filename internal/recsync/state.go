package recsync

import "time"

// State is a step of the run state machine:
//
//	Init → SecretLoaded → SourceFetched → SnapshotDownloaded → Merged → SnapshotUploaded → Done
//
// Failed is reachable from every state before Done.
type State string

const (
	StateInit               State = "init"
	StateSecretLoaded       State = "secret_loaded"
	StateSourceFetched      State = "source_fetched"
	StateSnapshotDownloaded State = "snapshot_downloaded"
	StateMerged             State = "merged"
	StateSnapshotUploaded   State = "snapshot_uploaded"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

func (s State) String() string { return string(s) }

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// RunResult describes one run.
type RunResult struct {
	RunID      string
	State      State
	StartedAt  time.Time
	FinishedAt time.Time

	// Since is the start of the "today" window the source was queried with.
	Since time.Time

	Fetched  int // records returned by the source
	Skipped  int // records dropped by the skip date policy
	Inserted int
	Updated  int
	Rows     int // rows in the merged snapshot

	Bootstrapped bool // no snapshot existed before this run
	Uploaded     bool
	DryRun       bool

	// Error is the failure message of a failed run.
	Error string
}
