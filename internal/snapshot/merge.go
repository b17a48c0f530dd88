package snapshot

// MergeStats counts what a merge did to the existing rows.
type MergeStats struct {
	Inserted int
	Updated  int
}

// Merge returns existing with incoming applied by RecordID. A row whose id is
// already present replaces the row at that position; any other row is appended,
// in incoming order. Neither input slice is modified.
func Merge(existing, incoming []Row) []Row {
	out, _ := MergeWithStats(existing, incoming)
	return out
}

// MergeWithStats is Merge that also reports how many incoming rows were
// inserts and how many were updates. A duplicate id within incoming counts as
// an update of the row inserted earlier in the same batch.
func MergeWithStats(existing, incoming []Row) ([]Row, MergeStats) {
	out := make([]Row, len(existing), len(existing)+len(incoming))
	copy(out, existing)

	index := make(map[string]int, len(existing)+len(incoming))
	for i, r := range out {
		index[r.RecordID] = i
	}

	var stats MergeStats
	for _, r := range incoming {
		if pos, ok := index[r.RecordID]; ok {
			out[pos] = r
			stats.Updated++
			continue
		}
		index[r.RecordID] = len(out)
		out = append(out, r)
		stats.Inserted++
	}

	return out, stats
}
