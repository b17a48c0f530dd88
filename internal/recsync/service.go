package recsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recsync/internal/snapshot"
	"recsync/internal/source"
)

// Options tune a Service.
type Options struct {
	// Location is the time zone "today" is computed in. Defaults to time.Local.
	Location *time.Location

	// DatePolicy decides what an unparseable source timestamp does to the
	// batch. Defaults to source.DatePolicyReject.
	DatePolicy source.DatePolicy

	// DryRun stops after the merge and never uploads.
	DryRun bool
}

// Service runs the sync job: it pulls today's records from the source and
// merges them into the stored snapshot.
type Service struct {
	secrets    SecretStore
	newSource  SourceFactory
	newStore   StoreFactory
	normalizer *source.Normalizer
	journal    Journal
	logger     Logger
	clock      Clock
	idgen      IDGenerator
	opts       Options
}

// NewService creates a Service. journal may be nil.
func NewService(secrets SecretStore, newSource SourceFactory, newStore StoreFactory, normalizer *source.Normalizer, journal Journal, logger Logger, clock Clock, idgen IDGenerator, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.DatePolicy == "" {
		opts.DatePolicy = source.DatePolicyReject
	}
	return &Service{
		secrets:    secrets,
		newSource:  newSource,
		newStore:   newStore,
		normalizer: normalizer,
		journal:    journal,
		logger:     logger,
		clock:      clock,
		idgen:      idgen,
		opts:       opts,
	}
}

// run carries the values one step hands to the next.
type run struct {
	result  *RunResult
	secret  *Secret
	records []source.Record
	store   SnapshotStore
	current []byte
	merged  []byte
}

type step struct {
	next State
	do   func(ctx context.Context, r *run) error
}

// Run executes one sync. The snapshot is only written by the last step, so
// a failed run leaves the store as it found it. The returned result is
// non-nil even when err is not.
func (s *Service) Run(ctx context.Context) (*RunResult, error) {
	r := &run{result: &RunResult{
		RunID:     s.idgen.New(),
		State:     StateInit,
		StartedAt: s.clock.Now(),
		DryRun:    s.opts.DryRun,
	}}

	if s.journal != nil {
		if err := s.journal.StartRun(r.result.RunID, r.result.StartedAt); err != nil {
			return s.fail(r, fmt.Errorf("%w: %w", ErrJournal, err))
		}
	}

	s.logger.Info("sync started", "run_id", r.result.RunID, "dry_run", s.opts.DryRun)

	steps := []step{
		{StateSecretLoaded, s.loadSecret},
		{StateSourceFetched, s.fetchSource},
		{StateSnapshotDownloaded, s.downloadSnapshot},
		{StateMerged, s.mergeSnapshot},
		{StateSnapshotUploaded, s.uploadSnapshot},
	}
	for _, st := range steps {
		if st.next == StateSnapshotUploaded && s.opts.DryRun {
			s.logger.Info("dry run, skipping upload", "bytes", len(r.merged))
			break
		}
		if err := st.do(ctx, r); err != nil {
			return s.fail(r, err)
		}
		s.logger.Debug("state changed", "run_id", r.result.RunID, "from", r.result.State, "to", st.next)
		r.result.State = st.next
	}

	r.result.State = StateDone
	r.result.FinishedAt = s.clock.Now()
	s.finishJournal(r.result)

	s.logger.Info("sync finished",
		"run_id", r.result.RunID,
		"fetched", r.result.Fetched,
		"inserted", r.result.Inserted,
		"updated", r.result.Updated,
		"skipped", r.result.Skipped,
		"rows", r.result.Rows,
		"uploaded", r.result.Uploaded)
	return r.result, nil
}

func (s *Service) fail(r *run, err error) (*RunResult, error) {
	serr := &StageError{State: r.result.State, Err: err}
	r.result.State = StateFailed
	r.result.FinishedAt = s.clock.Now()
	r.result.Error = serr.Error()

	s.logger.Error("sync failed", "run_id", r.result.RunID, "after", serr.State, "error", err)
	if !errors.Is(err, ErrJournal) {
		s.finishJournal(r.result)
	}
	return r.result, serr
}

func (s *Service) finishJournal(result *RunResult) {
	if s.journal == nil {
		return
	}
	if err := s.journal.FinishRun(result); err != nil {
		s.logger.Warn("recording run outcome", "error", err)
	}
}

func (s *Service) loadSecret(ctx context.Context, r *run) error {
	secret, err := s.secrets.GetSecret(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSecretUnavailable, err)
	}
	if secret == nil {
		return fmt.Errorf("%w: empty secret", ErrSecretUnavailable)
	}
	r.secret = secret
	return nil
}

func (s *Service) fetchSource(ctx context.Context, r *run) error {
	src, err := s.newSource(r.secret)
	if err != nil {
		return fmt.Errorf("%w: creating client: %w", ErrSourceQuery, err)
	}

	since := StartOfDay(s.clock.Now(), s.opts.Location)
	records, err := src.FetchChangedSince(ctx, since)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceQuery, err)
	}

	r.records = records
	r.result.Since = since
	r.result.Fetched = len(records)
	s.logger.Info("source records fetched", "count", len(records), "since", since.Format(time.RFC3339))
	return nil
}

func (s *Service) downloadSnapshot(ctx context.Context, r *run) error {
	store, err := s.newStore(ctx, r.secret)
	if err != nil {
		return fmt.Errorf("%w: creating store: %w", ErrSnapshotDownload, err)
	}
	r.store = store

	data, err := store.Get(ctx)
	switch {
	case errors.Is(err, ErrSnapshotNotFound):
		s.logger.Warn("snapshot not found, starting from an empty snapshot", "location", store.Location())
		r.result.Bootstrapped = true
		r.current = nil
	case err != nil:
		return fmt.Errorf("%w: %w", ErrSnapshotDownload, err)
	default:
		r.current = data
		s.logger.Info("snapshot downloaded", "location", store.Location(), "bytes", len(data))
	}
	return nil
}

func (s *Service) mergeSnapshot(_ context.Context, r *run) error {
	var existing []snapshot.Row
	if !r.result.Bootstrapped {
		rows, err := snapshot.Decode(r.current)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", r.store.Location(), err)
		}
		existing = rows
	}

	incoming, skipped, err := s.normalizer.NormalizeAll(r.records, s.opts.DatePolicy)
	if err != nil {
		return fmt.Errorf("normalizing records: %w", err)
	}
	for _, e := range skipped {
		s.logger.Warn("record skipped", "error", e)
	}

	merged, stats := snapshot.MergeWithStats(existing, incoming)
	r.merged = snapshot.Encode(merged)

	r.result.Skipped = len(skipped)
	r.result.Inserted = stats.Inserted
	r.result.Updated = stats.Updated
	r.result.Rows = len(merged)
	return nil
}

func (s *Service) uploadSnapshot(ctx context.Context, r *run) error {
	if err := r.store.Put(ctx, r.merged); err != nil {
		return fmt.Errorf("%w: %w", ErrUpload, err)
	}
	r.result.Uploaded = true
	s.logger.Info("snapshot uploaded", "location", r.store.Location(), "bytes", len(r.merged))
	return nil
}
