// Package source reads records from a kintone application and turns them into
// snapshot rows.
package source

import (
	"encoding/json"
	"errors"
)

var (
	// ErrDateParse is returned when a timestamp field does not hold a parseable timestamp.
	ErrDateParse = errors.New("unparseable timestamp")

	// ErrInvalidRecord is returned when a record lacks a mapped field or a
	// field value has an unexpected shape.
	ErrInvalidRecord = errors.New("invalid source record")
)

// Record is a kintone record as returned by the REST API: field code to field.
type Record map[string]Field

// Field wraps a single record attribute. Value is left raw because its shape
// depends on the field type: a string for text, number and datetime fields,
// an object with code and name for user fields.
type Field struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// User is the value of CREATOR and MODIFIER fields.
type User struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// FieldCodes maps each snapshot column to the kintone field code it is read from.
type FieldCodes struct {
	RecordID  string
	Name      string
	Number    string
	UpdatedBy string
	CreatedBy string
	UpdatedAt string
	CreatedAt string
}

// DefaultFieldCodes returns the field codes kintone assigns to system fields
// in an English-locale app, plus "name" and "number" for the business fields.
func DefaultFieldCodes() FieldCodes {
	return FieldCodes{
		RecordID:  "$id",
		Name:      "name",
		Number:    "number",
		UpdatedBy: "Updated_by",
		CreatedBy: "Created_by",
		UpdatedAt: "Updated_datetime",
		CreatedAt: "Created_datetime",
	}
}

// WithDefaults returns f with empty codes replaced by their defaults.
func (f FieldCodes) WithDefaults() FieldCodes {
	d := DefaultFieldCodes()
	if f.RecordID == "" {
		f.RecordID = d.RecordID
	}
	if f.Name == "" {
		f.Name = d.Name
	}
	if f.Number == "" {
		f.Number = d.Number
	}
	if f.UpdatedBy == "" {
		f.UpdatedBy = d.UpdatedBy
	}
	if f.CreatedBy == "" {
		f.CreatedBy = d.CreatedBy
	}
	if f.UpdatedAt == "" {
		f.UpdatedAt = d.UpdatedAt
	}
	if f.CreatedAt == "" {
		f.CreatedAt = d.CreatedAt
	}
	return f
}
