package recsync

import (
	"errors"
	"fmt"
)

// Errors a run can fail with. Decode and normalize failures surface the
// snapshot and source package errors (snapshot.ErrMalformedSnapshot,
// source.ErrDateParse, source.ErrInvalidRecord) unchanged.
var (
	ErrSecretUnavailable = errors.New("secret unavailable")
	ErrSourceQuery       = errors.New("source query failed")
	ErrSnapshotDownload  = errors.New("snapshot download failed")
	ErrUpload            = errors.New("snapshot upload failed")
	ErrJournal           = errors.New("run journal unavailable")

	// ErrSnapshotNotFound is returned by SnapshotStore.Get when the object
	// does not exist. A run treats it as an empty snapshot.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// StageError is the error a failed run returns. State is the last state the
// run reached before the failing step.
type StageError struct {
	State State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("sync failed after %s: %v", e.State, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
