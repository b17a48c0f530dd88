package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"recsync/internal/snapshot"
)

// DatePolicy decides what happens to a batch when one record has an
// unparseable timestamp.
type DatePolicy string

const (
	// DatePolicyReject fails the whole batch.
	DatePolicyReject DatePolicy = "reject"
	// DatePolicySkip drops the offending record and keeps the rest.
	DatePolicySkip DatePolicy = "skip"
)

// timestampLayouts are tried in order. RFC 3339 also accepts a fractional
// second when parsing.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	snapshot.TimestampLayout,
}

// FormatTimestamp renders a source timestamp as snapshot.TimestampLayout.
// The wall clock is kept in the offset the source provided.
func FormatTimestamp(value string) (string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(snapshot.TimestampLayout), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrDateParse, value)
}

// Normalizer converts source records into snapshot rows.
type Normalizer struct {
	fields FieldCodes
}

// NewNormalizer creates a Normalizer reading the given field codes.
// Empty codes fall back to DefaultFieldCodes.
func NewNormalizer(fields FieldCodes) *Normalizer {
	return &Normalizer{fields: fields.WithDefaults()}
}

// Normalize maps one record to a row.
func (n *Normalizer) Normalize(rec Record) (snapshot.Row, error) {
	var row snapshot.Row
	var err error

	if row.RecordID, err = stringValue(rec, n.fields.RecordID); err != nil {
		return snapshot.Row{}, err
	}
	if row.RecordID == "" {
		return snapshot.Row{}, fmt.Errorf("%w: field %q is empty", ErrInvalidRecord, n.fields.RecordID)
	}
	if row.Name, err = stringValue(rec, n.fields.Name); err != nil {
		return snapshot.Row{}, err
	}
	if row.Number, err = stringValue(rec, n.fields.Number); err != nil {
		return snapshot.Row{}, err
	}
	if row.UpdatedBy, err = userName(rec, n.fields.UpdatedBy); err != nil {
		return snapshot.Row{}, err
	}
	if row.CreatedBy, err = userName(rec, n.fields.CreatedBy); err != nil {
		return snapshot.Row{}, err
	}
	if row.UpdatedAt, err = timestamp(rec, n.fields.UpdatedAt); err != nil {
		return snapshot.Row{}, err
	}
	if row.CreatedAt, err = timestamp(rec, n.fields.CreatedAt); err != nil {
		return snapshot.Row{}, err
	}

	return row, nil
}

// NormalizeAll maps every record, in order. Under DatePolicySkip a record
// whose timestamp cannot be parsed is left out and its error returned in
// skipped; any other failure ends the batch.
func (n *Normalizer) NormalizeAll(records []Record, policy DatePolicy) ([]snapshot.Row, []error, error) {
	rows := make([]snapshot.Row, 0, len(records))
	var skipped []error
	for i, rec := range records {
		row, err := n.Normalize(rec)
		if err == nil {
			rows = append(rows, row)
			continue
		}

		err = fmt.Errorf("record %d (%s=%s): %w", i, n.fields.RecordID, rawID(rec, n.fields.RecordID), err)
		if policy == DatePolicySkip && errors.Is(err, ErrDateParse) {
			skipped = append(skipped, err)
			continue
		}
		return nil, skipped, err
	}
	return rows, skipped, nil
}

func stringValue(rec Record, code string) (string, error) {
	f, ok := rec[code]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ErrInvalidRecord, code)
	}
	if len(f.Value) == 0 || string(f.Value) == "null" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(f.Value, &s); err != nil {
		return "", fmt.Errorf("%w: field %q is not a string: %v", ErrInvalidRecord, code, err)
	}
	return s, nil
}

func userName(rec Record, code string) (string, error) {
	f, ok := rec[code]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ErrInvalidRecord, code)
	}
	if len(f.Value) == 0 || string(f.Value) == "null" {
		return "", nil
	}

	var u User
	if err := json.Unmarshal(f.Value, &u); err != nil {
		return "", fmt.Errorf("%w: field %q is not a user: %v", ErrInvalidRecord, code, err)
	}
	return u.Name, nil
}

func timestamp(rec Record, code string) (string, error) {
	raw, err := stringValue(rec, code)
	if err != nil {
		return "", err
	}
	formatted, err := FormatTimestamp(raw)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", code, err)
	}
	return formatted, nil
}

// rawID is the record id for error messages, or "?" when it is unreadable.
func rawID(rec Record, code string) string {
	id, err := stringValue(rec, code)
	if err != nil || id == "" {
		return "?"
	}
	return id
}
