package snapshot

// Column names in the fixed order they are persisted.
const (
	ColRecordID  = "record_id"
	ColName      = "name"
	ColNumber    = "number"
	ColUpdatedBy = "updated_by"
	ColCreatedBy = "created_by"
	ColUpdatedAt = "updated_at"
	ColCreatedAt = "created_at"
)

// Columns is the snapshot header in persisted order.
var Columns = []string{
	ColRecordID,
	ColName,
	ColNumber,
	ColUpdatedBy,
	ColCreatedBy,
	ColUpdatedAt,
	ColCreatedAt,
}

// TimestampLayout is the rendering used for updated_at and created_at (24-hour clock).
const TimestampLayout = "2006/01/02 15:04"

// Row is one record of the snapshot. All values are kept as the strings
// that are persisted; RecordID is the unique key.
type Row struct {
	RecordID  string
	Name      string
	Number    string
	UpdatedBy string
	CreatedBy string
	UpdatedAt string
	CreatedAt string
}

// fields returns the row values in Columns order.
func (r Row) fields() []string {
	return []string{
		r.RecordID,
		r.Name,
		r.Number,
		r.UpdatedBy,
		r.CreatedBy,
		r.UpdatedAt,
		r.CreatedAt,
	}
}

// set assigns value to the field named by column. Unknown columns are ignored.
func (r *Row) set(column, value string) {
	switch column {
	case ColRecordID:
		r.RecordID = value
	case ColName:
		r.Name = value
	case ColNumber:
		r.Number = value
	case ColUpdatedBy:
		r.UpdatedBy = value
	case ColCreatedBy:
		r.CreatedBy = value
	case ColUpdatedAt:
		r.UpdatedAt = value
	case ColCreatedAt:
		r.CreatedAt = value
	}
}
