package snapshot

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedSnapshot is returned when persisted snapshot bytes cannot be
// decoded: the header is missing or incomplete, a line does not have the
// same number of fields as the header, or two lines share a record_id.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// utf8BOM is stripped from the start of the input; spreadsheet tools add it on export.
const utf8BOM = "\ufeff"

// Decode parses CSV snapshot bytes into rows, in file order.
// Columns are matched by header name. Input without a header, including
// empty input, is malformed.
func Decode(data []byte) ([]Row, error) {
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrMalformedSnapshot, err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var rows []Row
	ids := make(map[string]int)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}

		if len(record) != len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d",
				ErrMalformedSnapshot, line, len(record), len(header))
		}

		var row Row
		for i, value := range record {
			row.set(header[i], value)
		}

		line, _ := reader.FieldPos(0)
		if prev, dup := ids[row.RecordID]; dup {
			return nil, fmt.Errorf("%w: line %d repeats record_id %q from line %d",
				ErrMalformedSnapshot, line, row.RecordID, prev)
		}
		ids[row.RecordID] = line
		rows = append(rows, row)
	}

	return rows, nil
}

// checkHeader verifies that header names every column exactly once.
func checkHeader(header []string) error {
	if len(header) != len(Columns) {
		return fmt.Errorf("%w: header has %d fields, want %d", ErrMalformedSnapshot, len(header), len(Columns))
	}

	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if seen[name] {
			return fmt.Errorf("%w: duplicate column %q", ErrMalformedSnapshot, name)
		}
		seen[name] = true
	}
	for _, name := range Columns {
		if !seen[name] {
			return fmt.Errorf("%w: missing column %q", ErrMalformedSnapshot, name)
		}
	}
	return nil
}

// Encode renders rows as CSV: the header line followed by one line per row in
// the given order. Every field is double-quoted.
func Encode(rows []Row) []byte {
	var buf bytes.Buffer
	writeLine(&buf, Columns)
	for _, r := range rows {
		writeLine(&buf, r.fields())
	}
	return buf.Bytes()
}

func writeLine(buf *bytes.Buffer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(f, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteByte('\n')
}
