package snapshot

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const testHeader = "record_id,name,number,updated_by,created_by,updated_at,created_at\n"

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Row
		wantErr bool
	}{
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:    "blank lines only",
			input:   "\n\n",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			input:   "   \r\n",
			wantErr: true,
		},
		{
			name:    "byte order mark only",
			input:   "\ufeff",
			wantErr: true,
		},
		{
			name:  "header only",
			input: testHeader,
			want:  nil,
		},
		{
			name:  "unquoted fields",
			input: testHeader + "1,Tower A,B-001,Sato,Suzuki,2024/01/15 10:30,2024/01/10 09:00\n",
			want: []Row{
				{RecordID: "1", Name: "Tower A", Number: "B-001", UpdatedBy: "Sato", CreatedBy: "Suzuki", UpdatedAt: "2024/01/15 10:30", CreatedAt: "2024/01/10 09:00"},
			},
		},
		{
			name: "quoted fields with delimiter and quotes",
			input: testHeader +
				`"2","Plaza, East","","Tanaka","Tanaka","2024/01/15 18:05","2024/01/15 18:05"` + "\n" +
				`"3","The ""Annex""","N-9","Ito","Ito","2024/01/16 00:00","2024/01/16 00:00"` + "\n",
			want: []Row{
				{RecordID: "2", Name: "Plaza, East", Number: "", UpdatedBy: "Tanaka", CreatedBy: "Tanaka", UpdatedAt: "2024/01/15 18:05", CreatedAt: "2024/01/15 18:05"},
				{RecordID: "3", Name: `The "Annex"`, Number: "N-9", UpdatedBy: "Ito", CreatedBy: "Ito", UpdatedAt: "2024/01/16 00:00", CreatedAt: "2024/01/16 00:00"},
			},
		},
		{
			name:  "columns matched by header name",
			input: "name,record_id,number,created_at,updated_at,created_by,updated_by\nA,9,N,c-at,u-at,c-by,u-by\n",
			want: []Row{
				{RecordID: "9", Name: "A", Number: "N", UpdatedBy: "u-by", CreatedBy: "c-by", UpdatedAt: "u-at", CreatedAt: "c-at"},
			},
		},
		{
			name:  "byte order mark is ignored",
			input: "\ufeff" + testHeader + "1,A,,,,,\n",
			want:  []Row{{RecordID: "1", Name: "A"}},
		},
		{
			name:  "CRLF line endings",
			input: strings.ReplaceAll(testHeader+"1,A,,,,,\n", "\n", "\r\n"),
			want:  []Row{{RecordID: "1", Name: "A"}},
		},
		{
			name:    "header with too few fields",
			input:   "record_id,name,number\n1,A,B\n",
			wantErr: true,
		},
		{
			name:    "header with unknown column",
			input:   "record_id,name,number,updated_by,created_by,updated_at,deleted_at\n",
			wantErr: true,
		},
		{
			name:    "header with duplicate column",
			input:   "record_id,name,name,updated_by,created_by,updated_at,created_at\n",
			wantErr: true,
		},
		{
			name:    "line with fewer fields than header",
			input:   testHeader + "1,A,B\n",
			wantErr: true,
		},
		{
			name:    "line with more fields than header",
			input:   testHeader + "1,A,B,C,D,E,F,G\n",
			wantErr: true,
		},
		{
			name:    "duplicate record_id",
			input:   testHeader + "1,A,,,,,\n1,B,,,,,\n",
			wantErr: true,
		},
		{
			name:    "unterminated quote",
			input:   testHeader + `"1,A,,,,,` + "\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedSnapshot) {
					t.Errorf("Decode() error = %v, want ErrMalformedSnapshot", err)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	rows := []Row{
		{RecordID: "1", Name: "Plaza, East", Number: "B-1", UpdatedBy: "Sato", CreatedBy: "Sato", UpdatedAt: "2024/01/15 10:30", CreatedAt: "2024/01/15 10:30"},
		{RecordID: "2", Name: `Say "hi"`},
	}

	want := `"record_id","name","number","updated_by","created_by","updated_at","created_at"` + "\n" +
		`"1","Plaza, East","B-1","Sato","Sato","2024/01/15 10:30","2024/01/15 10:30"` + "\n" +
		`"2","Say ""hi""","","","","",""` + "\n"

	if got := string(Encode(rows)); got != want {
		t.Errorf("Encode() =\n%s\nwant\n%s", got, want)
	}
}

func TestEncode_EmptyWritesHeader(t *testing.T) {
	got := string(Encode(nil))
	want := `"record_id","name","number","updated_by","created_by","updated_at","created_at"` + "\n"
	if got != want {
		t.Errorf("Encode(nil) = %q, want %q", got, want)
	}
}

func TestDecodeEncode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rows []Row
	}{
		{
			name: "plain values",
			rows: []Row{
				{RecordID: "1", Name: "A", Number: "100", UpdatedBy: "u", CreatedBy: "c", UpdatedAt: "2024/01/15 10:30", CreatedAt: "2024/01/14 08:00"},
				{RecordID: "2", Name: "B", Number: "200", UpdatedBy: "u", CreatedBy: "c", UpdatedAt: "2024/01/15 11:30", CreatedAt: "2024/01/14 09:00"},
			},
		},
		{
			name: "delimiters quotes and spaces",
			rows: []Row{
				{RecordID: "10", Name: " leading and trailing ", Number: "a,b,c", UpdatedBy: `"quoted"`, CreatedBy: `""`, UpdatedAt: "", CreatedAt: ","},
			},
		},
		{
			name: "non-ASCII values",
			rows: []Row{
				{RecordID: "7", Name: "穴吹マンション", Number: "第3号", UpdatedBy: "佐藤 花子", CreatedBy: "鈴木 一郎", UpdatedAt: "2024/01/15 10:30", CreatedAt: "2024/01/15 10:30"},
			},
		},
		{
			name: "all fields empty",
			rows: []Row{{}},
		},
		{
			name: "no rows",
			rows: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(Encode(tt.rows))
			if err != nil {
				t.Fatalf("Decode(Encode()) error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.rows) {
				t.Errorf("Decode(Encode()) = %+v, want %+v", got, tt.rows)
			}
		})
	}
}

func TestDecodeEncode_RepeatedIDIsMalformed(t *testing.T) {
	rows := []Row{{RecordID: "1", Name: "A"}, {RecordID: "1", Name: "B"}}

	_, err := Decode(Encode(rows))
	if !errors.Is(err, ErrMalformedSnapshot) {
		t.Errorf("Decode(Encode()) error = %v, want ErrMalformedSnapshot", err)
	}
}
