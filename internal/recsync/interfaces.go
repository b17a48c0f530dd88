package recsync

import (
	"context"
	"time"

	"recsync/internal/source"
)

// Secret holds the credentials a run needs. It is loaded once per run and
// only used to construct the source and store clients.
type Secret struct {
	EndpointURL       string `json:"endpointUrl"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	BasicAuthUsername string `json:"basicAuthUsername"`
	BasicAuthPassword string `json:"basicAuthPassword"`
	StorageAccessKey  string `json:"storageAccessKey"`
	StorageSecretKey  string `json:"storageSecretKey"`
}

// SourceCredentials returns the subset of the secret used by the record source.
func (s *Secret) SourceCredentials() source.Credentials {
	return source.Credentials{
		EndpointURL:       s.EndpointURL,
		Username:          s.Username,
		Password:          s.Password,
		BasicAuthUsername: s.BasicAuthUsername,
		BasicAuthPassword: s.BasicAuthPassword,
	}
}

// SecretStore loads the run secret.
type SecretStore interface {
	GetSecret(ctx context.Context) (*Secret, error)
}

// RecordSource returns the records created or updated at or after since.
type RecordSource interface {
	FetchChangedSince(ctx context.Context, since time.Time) ([]source.Record, error)
}

// SnapshotStore holds the single persisted snapshot object.
type SnapshotStore interface {
	// Get returns the snapshot bytes, or an error matching ErrSnapshotNotFound
	// when no snapshot has been written yet.
	Get(ctx context.Context) ([]byte, error)

	// Put overwrites the snapshot with data.
	Put(ctx context.Context, data []byte) error

	// Location names the object for logs, e.g. "s3://bucket/key".
	Location() string
}

// SourceFactory builds the record source for one run from its secret.
type SourceFactory func(secret *Secret) (RecordSource, error)

// StoreFactory builds the snapshot store for one run from its secret.
type StoreFactory func(ctx context.Context, secret *Secret) (SnapshotStore, error)

// Journal records the runs of the job.
type Journal interface {
	// StartRun records a run as started.
	StartRun(runID string, startedAt time.Time) error

	// FinishRun records the outcome of a run started with StartRun.
	FinishRun(result *RunResult) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*RunResult, error)
}

// Logger takes slog-style alternating key/value args.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}
