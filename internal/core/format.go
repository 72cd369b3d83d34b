package core

// format.go defines the two supported exchange file layouts.
//
// The format is resolved once from the exchange record and carries everything
// that differs between layouts: the expected column set, the date convention,
// the journal lookup policy and the reconciliation letter field. Stages never
// branch on the raw format string.

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Column keys produced by the parser (after header normalization and aliasing).
const (
	ColID                   = "id"
	ColDay                  = "day"
	ColAccountNumber        = "account_number"
	ColJournal              = "journal"
	ColJournalLabel         = "journal_label"
	ColAccountType          = "account_type"
	ColThirdParty           = "third_party"
	ColEntryNumber          = "entry_number"
	ColEntryLabel           = "entry_label"
	ColDebit                = "debit"
	ColCredit               = "credit"
	ColReconciliationLetter = "reconciliation_letter"
	ColDueDate              = "due_date"
	ColAnalyticSequence     = "analytic_sequence"
)

// ImportFormat selects the file layout of an exchange import.
type ImportFormat int

const (
	FormatStandard ImportFormat = iota
	FormatIsacompta
)

// JournalLookup names the journal field a code is matched against.
type JournalLookup int

const (
	LookupByCode JournalLookup = iota
	LookupByIsacomptaCode
)

func (l JournalLookup) String() string {
	if l == LookupByIsacomptaCode {
		return "isacompta_code"
	}
	return "code"
}

type formatSpec struct {
	name    string
	schema  []string
	parse   func(string) (time.Time, error)
	checkBy JournalLookup   // used by the referential validator
	findBy  []JournalLookup // tried in order by the importer
	letter  string
}

var formatSpecs = map[ImportFormat]formatSpec{
	FormatStandard: {
		name: "standard",
		schema: []string{
			ColDay, ColAccountNumber, ColJournal, ColThirdParty, ColEntryNumber,
			ColEntryLabel, ColDebit, ColCredit, ColReconciliationLetter,
		},
		parse:   parseFlexibleDate,
		checkBy: LookupByCode,
		findBy:  []JournalLookup{LookupByCode},
		letter:  "letter",
	},
	FormatIsacompta: {
		name: "isacompta",
		schema: []string{
			ColID, ColDay, ColAccountNumber, ColJournal, ColJournalLabel, ColAccountType,
			ColEntryNumber, ColEntryLabel, ColDebit, ColCredit, ColReconciliationLetter,
			ColDueDate, ColAnalyticSequence,
		},
		parse:   parseCompactDate,
		checkBy: LookupByIsacomptaCode,
		findBy:  []JournalLookup{LookupByCode, LookupByIsacomptaCode},
		letter:  "isacompta_letter",
	},
}

// FormatFor maps an exchange format value to an ImportFormat.
// Only "isacompta" selects the alternate layout; every other value is standard.
func FormatFor(exchangeFormat string) ImportFormat {
	if strings.EqualFold(strings.TrimSpace(exchangeFormat), "isacompta") {
		return FormatIsacompta
	}
	return FormatStandard
}

func (f ImportFormat) spec() formatSpec {
	if s, ok := formatSpecs[f]; ok {
		return s
	}
	return formatSpecs[FormatStandard]
}

func (f ImportFormat) String() string {
	return f.spec().name
}

// Schema returns the expected column keys, in reference order.
func (f ImportFormat) Schema() []string {
	schema := f.spec().schema
	out := make([]string, len(schema))
	copy(out, schema)
	return out
}

// ParseDate parses a day cell using the format's date convention.
func (f ImportFormat) ParseDate(s string) (time.Time, error) {
	return f.spec().parse(s)
}

// ValidationLookup is the journal field the referential validator resolves codes against.
func (f ImportFormat) ValidationLookup() JournalLookup {
	return f.spec().checkBy
}

// ImportLookups are the journal fields the importer tries, in order.
func (f ImportFormat) ImportLookups() []JournalLookup {
	return f.spec().findBy
}

// LetterField is the name of the entry item field receiving the reconciliation letter.
func (f ImportFormat) LetterField() string {
	return f.spec().letter
}

// SetLetter stores a reconciliation letter in the format's letter field.
func (f ImportFormat) SetLetter(item *EntryItem, letter string) {
	if f == FormatIsacompta {
		item.IsacomptaLetter = letter
		return
	}
	item.Letter = letter
}

var compactDateRegex = regexp.MustCompile(`^\d{8}$`)

// parseCompactDate parses strict DDMMYYYY dates.
func parseCompactDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if !compactDateRegex.MatchString(s) {
		return time.Time{}, fmt.Errorf("invalid date %q: expected DDMMYYYY", s)
	}
	t, err := time.Parse("02012006", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Day-first layouts, as exported by French accounting tools.
var flexibleDateLayouts = []string{
	"02/01/2006", "2/1/2006",
	"02-01-2006", "2-1-2006",
	"02.01.2006", "2.1.2006",
	"2006-01-02", "2006/01/02", "2006.01.02",
	"20060102",
	"02/01/06", "2/1/06",
	"2 Jan 2006", "Jan 2, 2006",
}

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// parseFlexibleDate accepts the common written forms of a calendar day.
func parseFlexibleDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("invalid date: empty value")
	}
	for _, layout := range flexibleDateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "/06") && t.Year() > time.Now().Year()+TwoDigitYearPivot {
			t = t.AddDate(-100, 0, 0)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
