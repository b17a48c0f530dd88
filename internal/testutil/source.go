package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"recsync/internal/recsync"
	"recsync/internal/source"
)

// Record builds a source record with the default field codes, shaped the
// way the records API returns it.
func Record(id, name, number, updatedBy, createdBy, updatedAt, createdAt string) source.Record {
	str := func(s string) json.RawMessage {
		b, _ := json.Marshal(s)
		return b
	}
	user := func(name string) json.RawMessage {
		b, _ := json.Marshal(source.User{Code: "u-" + name, Name: name})
		return b
	}
	return source.Record{
		"$id":              {Type: "__ID__", Value: str(id)},
		"name":             {Type: "SINGLE_LINE_TEXT", Value: str(name)},
		"number":           {Type: "SINGLE_LINE_TEXT", Value: str(number)},
		"Updated_by":       {Type: "MODIFIER", Value: user(updatedBy)},
		"Created_by":       {Type: "CREATOR", Value: user(createdBy)},
		"Updated_datetime": {Type: "UPDATED_TIME", Value: str(updatedAt)},
		"Created_datetime": {Type: "CREATED_TIME", Value: str(createdAt)},
	}
}

// StubSource returns fixed records and remembers every window it was asked for.
type StubSource struct {
	mu      sync.Mutex
	records []source.Record
	err     error
	since   []time.Time
}

// NewStubSource creates a StubSource returning records.
func NewStubSource(records ...source.Record) *StubSource {
	return &StubSource{records: records}
}

// NewFailingSource creates a StubSource whose queries fail with err.
func NewFailingSource(err error) *StubSource {
	return &StubSource{err: err}
}

func (s *StubSource) FetchChangedSince(_ context.Context, since time.Time) ([]source.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.since = append(s.since, since)
	if s.err != nil {
		return nil, s.err
	}
	return append([]source.Record(nil), s.records...), nil
}

// Calls returns the since argument of every query so far.
func (s *StubSource) Calls() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.since...)
}

// Factory returns a SourceFactory that always hands out s.
func (s *StubSource) Factory() recsync.SourceFactory {
	return func(*recsync.Secret) (recsync.RecordSource, error) {
		return s, nil
	}
}
