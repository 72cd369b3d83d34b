package core

import (
	"testing"
	"time"
)

func TestFormatFor(t *testing.T) {
	tests := []struct {
		in   string
		want ImportFormat
	}{
		{"isacompta", FormatIsacompta},
		{" Isacompta ", FormatIsacompta},
		{"ekyagri", FormatStandard},
		{"", FormatStandard},
		{"quadra", FormatStandard},
	}

	for _, tt := range tests {
		if got := FormatFor(tt.in); got != tt.want {
			t.Errorf("FormatFor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestImportFormat_Schema(t *testing.T) {
	if n := len(FormatStandard.Schema()); n != 9 {
		t.Errorf("standard schema has %d columns, want 9", n)
	}
	if n := len(FormatIsacompta.Schema()); n != 13 {
		t.Errorf("isacompta schema has %d columns, want 13", n)
	}

	s := FormatStandard.Schema()
	s[0] = "mutated"
	if FormatStandard.Schema()[0] != ColDay {
		t.Error("Schema() exposes internal slice")
	}
}

func TestImportFormat_Lookups(t *testing.T) {
	if FormatStandard.ValidationLookup() != LookupByCode {
		t.Error("standard validation lookup should be code")
	}
	if FormatIsacompta.ValidationLookup() != LookupByIsacomptaCode {
		t.Error("isacompta validation lookup should be isacompta_code")
	}

	got := FormatIsacompta.ImportLookups()
	if len(got) != 2 || got[0] != LookupByCode || got[1] != LookupByIsacomptaCode {
		t.Errorf("isacompta import lookups = %v, want [code isacompta_code]", got)
	}
	if got := FormatStandard.ImportLookups(); len(got) != 1 || got[0] != LookupByCode {
		t.Errorf("standard import lookups = %v, want [code]", got)
	}
}

func TestImportFormat_SetLetter(t *testing.T) {
	var std, isa EntryItem
	FormatStandard.SetLetter(&std, "AB")
	FormatIsacompta.SetLetter(&isa, "AB")

	if std.Letter != "AB" || std.IsacomptaLetter != "" {
		t.Errorf("standard item = %+v, want Letter only", std)
	}
	if isa.IsacomptaLetter != "AB" || isa.Letter != "" {
		t.Errorf("isacompta item = %+v, want IsacomptaLetter only", isa)
	}
	if FormatStandard.LetterField() != "letter" || FormatIsacompta.LetterField() != "isacompta_letter" {
		t.Error("unexpected letter field names")
	}
}

func TestParseCompactDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"31122023", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), false},
		{"01012023", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{" 01012023 ", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"32122023", time.Time{}, true},
		{"3112202", time.Time{}, true},
		{"2023-12-31", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := FormatIsacompta.ParseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFlexibleDate(t *testing.T) {
	dec31 := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"31/12/2023", dec31, false},
		{"31-12-2023", dec31, false},
		{"31.12.2023", dec31, false},
		{"2023-12-31", dec31, false},
		{"2023/12/31", dec31, false},
		{"20231231", dec31, false},
		{"31/12/23", dec31, false},
		{"1/2/2023", time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), false},
		{"31 Dec 2023", dec31, false},
		{"", time.Time{}, true},
		{"not a date", time.Time{}, true},
		{"31/13/2023", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := FormatStandard.ParseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
