package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"recsync/internal/config"
	"recsync/internal/journal"
	"recsync/internal/recsync"
	"recsync/internal/secret"
	"recsync/internal/source"
	"recsync/internal/store"
)

// Options adjust a RecsyncApp beyond what the config file says.
type Options struct {
	// DryRun forces a dry run even when the config does not ask for one.
	DryRun bool

	// Verbose enables debug logging.
	Verbose bool

	// Stderr receives a copy of the log. Nil logs to the file only.
	Stderr io.Writer
}

// RecsyncApp is the application layer between the CLI and the sync service.
// It constructs all dependencies from config and closes the journal and the
// log file on Close.
type RecsyncApp struct {
	cfg     *config.Config
	journal *journal.SQLiteJournal
	service *recsync.Service
	logger  *slog.Logger
	logFile *os.File
}

// NewRecsyncApp creates a fully wired RecsyncApp from the given config.
// The caller must call Close when done.
func NewRecsyncApp(ctx context.Context, cfg *config.Config, opts Options) (*RecsyncApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID, level, opts.Stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	secrets, err := secret.NewFromConfig(ctx, cfg.Secret, logger.With("component", "secret"))
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating secret provider: %w", err)
	}

	j, err := journal.NewJournalFromConfig(cfg.Journal)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if err := j.CheckMigrations(); err != nil {
		j.Close()
		logFile.Close()
		return nil, fmt.Errorf("journal schema out of date: %w", err)
	}

	fields := source.FieldCodes(cfg.Source.Fields)
	svc := recsync.NewService(
		secrets,
		newSourceFactory(cfg.Source),
		store.NewFactory(cfg.Store),
		source.NewNormalizer(fields),
		j,
		&slogAdapter{l: logger},
		recsync.RealClock{},
		recsync.UUIDGenerator{},
		recsync.Options{
			Location:   loc,
			DatePolicy: source.DatePolicy(cfg.DatePolicy),
			DryRun:     cfg.DryRun || opts.DryRun,
		},
	)

	return &RecsyncApp{
		cfg:     cfg,
		journal: j,
		service: svc,
		logger:  logger,
		logFile: logFile,
	}, nil
}

// newSourceFactory returns a factory building a kintone client per run from
// the run secret.
func newSourceFactory(cfg config.SourceConfig) recsync.SourceFactory {
	fields := source.FieldCodes(cfg.Fields)
	return func(s *recsync.Secret) (recsync.RecordSource, error) {
		c, err := source.NewClient(s.SourceCredentials(), cfg.AppID, fields,
			source.WithPageSize(cfg.PageSize),
			source.WithTimeout(cfg.Timeout()),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Sync runs one sync and returns its result. The result is non-nil even
// when the run fails.
func (a *RecsyncApp) Sync(ctx context.Context) (*recsync.RunResult, error) {
	return a.service.Run(ctx)
}

// GetHistory returns the most recent runs, newest first.
func (a *RecsyncApp) GetHistory(limit int) ([]*recsync.RunResult, error) {
	return a.service.GetHistory(limit)
}

// Close closes the journal and the log file.
func (a *RecsyncApp) Close() error {
	var firstErr error

	if err := a.journal.Close(); err != nil {
		firstErr = fmt.Errorf("closing journal: %w", err)
	}

	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}

	return firstErr
}

// MigrateJournal applies pending journal migrations. It is run by
// "config init" and "migrate" since a normal run refuses an out of date
// schema.
func MigrateJournal(cfg config.JournalConfig) (string, error) {
	j, err := journal.NewJournalFromConfig(cfg)
	if err != nil {
		return "", fmt.Errorf("opening journal: %w", err)
	}
	defer j.Close()

	if err := j.MigrateUp(); err != nil {
		return "", fmt.Errorf("migrating journal: %w", err)
	}
	return j.Path(), nil
}
