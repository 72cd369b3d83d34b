package core

import (
	"errors"
	"strings"
	"testing"
)

const standardHeader = "Jour,Numéro compte,Journal,Tiers,Numéro pièce,Libellé écriture,Débit,Crédit,Lettrage"

func TestParser_ParseBytes(t *testing.T) {
	data := standardHeader + "\n" +
		"01/01/2023,512000,BQ,,1,Opening,100.00,,A\n" +
		"01/01/2023,401000,BQ,ACME,1,Opening,,100.00,\n"

	table, err := Parser{}.ParseBytes([]byte(data))
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}

	want := []string{
		ColDay, ColAccountNumber, ColJournal, ColThirdParty, ColEntryNumber,
		ColEntryLabel, ColDebit, ColCredit, ColReconciliationLetter,
	}
	if strings.Join(table.Headers, ",") != strings.Join(want, ",") {
		t.Errorf("Headers = %v, want %v", table.Headers, want)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(table.Rows))
	}

	row := table.Rows[1]
	if row.Line != 3 {
		t.Errorf("Rows[1].Line = %d, want 3", row.Line)
	}
	if got := row.Get(ColThirdParty); got != "ACME" {
		t.Errorf("third_party = %q, want %q", got, "ACME")
	}
	if got := row.Get(ColCredit); got != "100.00" {
		t.Errorf("credit = %q, want %q", got, "100.00")
	}
	if got := row.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}
	if row.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", row.Len(), len(want))
	}
}

func TestParser_ParseBytes_Cells(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want string
	}{
		{"plain", "BQ", "BQ"},
		{"surrounding spaces", "  BQ  ", "BQ"},
		{"excel formula wrapper", `"=""00123"""`, "00123"},
		{"quoted with comma", `"Smith, John"`, "Smith, John"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := "Journal\n" + tt.cell + "\n"
			if tt.cell == "" {
				data = "Journal,Jour\n,01/01/2023\n"
			}
			table, err := Parser{}.ParseBytes([]byte(data))
			if err != nil {
				t.Fatalf("ParseBytes() error = %v", err)
			}
			if len(table.Rows) != 1 {
				t.Fatalf("len(Rows) = %d, want 1", len(table.Rows))
			}
			if got := table.Rows[0].Get(ColJournal); got != tt.want {
				t.Errorf("journal = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParser_ParseBytes_BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Jour,Journal\n01/01/2023,BQ\n")...)

	table, err := Parser{}.ParseBytes(data)
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	if table.Headers[0] != ColDay {
		t.Errorf("Headers[0] = %q, want %q", table.Headers[0], ColDay)
	}
}

func TestParser_ParseBytes_Delimiter(t *testing.T) {
	data := "Jour;Journal;Débit\n01/01/2023;BQ;1,50\n"

	table, err := Parser{Comma: ';'}.ParseBytes([]byte(data))
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	if got := table.Rows[0].Get(ColDebit); got != "1,50" {
		t.Errorf("debit = %q, want %q", got, "1,50")
	}
}

func TestParser_ParseBytes_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"invalid utf-8", []byte("Jour,Journal\n01/01/2023,\xff\xfe\n")},
		{"ragged row", []byte("Jour,Journal\n01/01/2023,BQ,extra\n")},
		{"short row", []byte("Jour,Journal\n01/01/2023\n")},
		{"unterminated quote", []byte("Jour,Journal\n\"01/01/2023,BQ\n")},
		{"bare quote", []byte("Jour,Journal\n01/01\"2023,BQ\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parser{}.ParseBytes(tt.data)
			if err == nil {
				t.Fatal("ParseBytes() error = nil, want error")
			}
			if table != nil {
				t.Error("ParseBytes() returned a partial table")
			}
		})
	}
}

func TestParser_ParseBytes_InvalidEncodingSentinel(t *testing.T) {
	_, err := Parser{}.ParseBytes([]byte{0xC3, 0x28})
	if !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("error = %v, want ErrInvalidEncoding", err)
	}
}

func TestParser_ParseBytes_Empty(t *testing.T) {
	table, err := Parser{}.ParseBytes(nil)
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	if len(table.Headers) != 0 || len(table.Rows) != 0 {
		t.Errorf("got %d headers and %d rows, want none", len(table.Headers), len(table.Rows))
	}
}

func TestParser_ParseBytes_DuplicateKeyFirstWins(t *testing.T) {
	data := "Journal,JOURNAL\nBQ,VT\n"

	table, err := Parser{}.ParseBytes([]byte(data))
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	if got := table.Rows[0].Get(ColJournal); got != "BQ" {
		t.Errorf("journal = %q, want %q", got, "BQ")
	}
	if n := len(table.HeaderSet()); n != 1 {
		t.Errorf("len(HeaderSet()) = %d, want 1", n)
	}
}
