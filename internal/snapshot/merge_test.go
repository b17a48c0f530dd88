package snapshot

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"
)

func row(id, name string) Row {
	return Row{RecordID: id, Name: name, Number: "N-" + id, UpdatedBy: "u", CreatedBy: "c", UpdatedAt: "2024/01/15 10:30", CreatedAt: "2024/01/15 09:00"}
}

func ids(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.RecordID
	}
	return out
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name         string
		existing     []Row
		incoming     []Row
		want         []Row
		wantInserted int
		wantUpdated  int
	}{
		{
			name:        "update replaces the existing row",
			existing:    []Row{row("1", "A")},
			incoming:    []Row{row("1", "A2")},
			want:        []Row{row("1", "A2")},
			wantUpdated: 1,
		},
		{
			name:         "bootstrap from empty snapshot",
			existing:     nil,
			incoming:     []Row{row("7", "G")},
			want:         []Row{row("7", "G")},
			wantInserted: 1,
		},
		{
			name:         "updates keep position and inserts are appended",
			existing:     []Row{row("1", "A"), row("2", "B")},
			incoming:     []Row{row("3", "C"), row("1", "A2")},
			want:         []Row{row("1", "A2"), row("2", "B"), row("3", "C")},
			wantInserted: 1,
			wantUpdated:  1,
		},
		{
			name:     "empty incoming carries everything over",
			existing: []Row{row("1", "A"), row("2", "B")},
			incoming: nil,
			want:     []Row{row("1", "A"), row("2", "B")},
		},
		{
			name:         "duplicate id within the batch is inserted once",
			existing:     []Row{row("1", "A")},
			incoming:     []Row{row("5", "E"), row("6", "F"), row("5", "E2")},
			want:         []Row{row("1", "A"), row("5", "E2"), row("6", "F")},
			wantInserted: 2,
			wantUpdated:  1,
		},
		{
			name:         "inserts keep incoming order",
			existing:     []Row{row("9", "Z")},
			incoming:     []Row{row("3", "C"), row("1", "A"), row("2", "B")},
			want:         []Row{row("9", "Z"), row("3", "C"), row("1", "A"), row("2", "B")},
			wantInserted: 3,
		},
		{
			name: "both empty",
			want: []Row{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, stats := MergeWithStats(tt.existing, tt.incoming)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MergeWithStats() = %v, want %v", ids(got), ids(tt.want))
			}
			if stats.Inserted != tt.wantInserted {
				t.Errorf("Inserted = %d, want %d", stats.Inserted, tt.wantInserted)
			}
			if stats.Updated != tt.wantUpdated {
				t.Errorf("Updated = %d, want %d", stats.Updated, tt.wantUpdated)
			}
		})
	}
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	existing := []Row{row("1", "A"), row("2", "B")}
	incoming := []Row{row("1", "A2"), row("3", "C")}

	Merge(existing, incoming)

	if existing[0].Name != "A" {
		t.Errorf("existing[0].Name = %q, want %q", existing[0].Name, "A")
	}
	if len(existing) != 2 {
		t.Errorf("len(existing) = %d, want 2", len(existing))
	}
	if incoming[0].Name != "A2" || incoming[1].RecordID != "3" {
		t.Errorf("incoming changed: %+v", incoming)
	}
}

// randomRows draws n rows with ids from a small pool so batches overlap.
func randomRows(rng *rand.Rand, n, pool int, unique bool) []Row {
	var rows []Row
	seen := make(map[string]bool)
	for len(rows) < n {
		id := fmt.Sprintf("%d", rng.Intn(pool))
		if unique && seen[id] {
			if len(seen) == pool {
				break
			}
			continue
		}
		seen[id] = true
		rows = append(rows, row(id, fmt.Sprintf("name-%d", rng.Int())))
	}
	return rows
}

func TestMerge_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		existing := randomRows(rng, rng.Intn(15), 20, true)
		incoming := randomRows(rng, rng.Intn(15), 20, false)

		got := Merge(existing, incoming)

		// Coverage and uniqueness.
		keys := make(map[string]bool)
		for _, r := range existing {
			keys[r.RecordID] = true
		}
		for _, r := range incoming {
			keys[r.RecordID] = true
		}
		if len(got) != len(keys) {
			t.Fatalf("case %d: len(Merge()) = %d, want %d", i, len(got), len(keys))
		}
		seen := make(map[string]bool)
		for _, r := range got {
			if seen[r.RecordID] {
				t.Fatalf("case %d: duplicate record_id %q in output", i, r.RecordID)
			}
			seen[r.RecordID] = true
		}

		// Update wins: the last incoming row for an id is the one kept.
		lastIncoming := make(map[string]Row)
		for _, r := range incoming {
			lastIncoming[r.RecordID] = r
		}
		for _, r := range got {
			if want, ok := lastIncoming[r.RecordID]; ok && r != want {
				t.Fatalf("case %d: row %q = %+v, want incoming %+v", i, r.RecordID, r, want)
			}
		}

		// Carried-over rows keep their order and lead the output.
		for j, r := range existing {
			if got[j].RecordID != r.RecordID {
				t.Fatalf("case %d: position %d = %q, want %q", i, j, got[j].RecordID, r.RecordID)
			}
		}

		// Inserts follow the carried-over rows in first-appearance order.
		wantTail := []string{}
		added := make(map[string]bool)
		for _, r := range existing {
			added[r.RecordID] = true
		}
		for _, r := range incoming {
			if !added[r.RecordID] {
				added[r.RecordID] = true
				wantTail = append(wantTail, r.RecordID)
			}
		}
		if gotTail := ids(got[len(existing):]); !reflect.DeepEqual(gotTail, wantTail) {
			t.Fatalf("case %d: inserted ids = %v, want %v", i, gotTail, wantTail)
		}

		// Idempotence.
		again := Merge(got, incoming)
		if !reflect.DeepEqual(again, got) {
			t.Fatalf("case %d: Merge(Merge(E, I), I) = %v, want %v", i, ids(again), ids(got))
		}
	}
}
