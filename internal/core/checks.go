package core

// checks.go holds the validation stages run between parsing and importing.
// Each check returns nil or an *InvalidFile; the first failure stops the run.

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// CheckHeaders compares the table's header keys, as a set, with the format schema.
func CheckHeaders(tr Translator, format ImportFormat, table *ParsedTable) error {
	got := table.HeaderSet()
	want := format.Schema()

	missing, unexpected := diffKeys(got, want)
	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}

	internal := fmt.Errorf("headers do not match %s schema: missing [%s], unexpected [%s]",
		format, strings.Join(missing, ", "), strings.Join(unexpected, ", "))
	return newInvalidFile(tr, MsgHeadersInvalid, nil, internal)
}

func diffKeys(got map[string]struct{}, want []string) (missing, unexpected []string) {
	wantSet := make(map[string]struct{}, len(want))
	for _, k := range want {
		wantSet[k] = struct{}{}
		if _, ok := got[k]; !ok {
			missing = append(missing, k)
		}
	}
	for k := range got {
		if _, ok := wantSet[k]; !ok {
			unexpected = append(unexpected, k)
		}
	}
	sort.Strings(unexpected)
	return missing, unexpected
}

// DistinctJournalCodes returns the journal codes of the rows, deduplicated,
// in order of first appearance.
func DistinctJournalCodes(rows []ParsedRow) []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, row := range rows {
		code := row.Get(ColJournal)
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

// CheckJournals requires every distinct journal code to match a known journal.
// The failure message lists the unresolved codes.
func CheckJournals(ctx context.Context, tx Tx, tr Translator, format ImportFormat, rows []ParsedRow) error {
	codes := DistinctJournalCodes(rows)
	if len(codes) == 0 {
		return nil
	}

	existing, err := tx.ExistingJournalCodes(ctx, format.ValidationLookup(), codes)
	if err != nil {
		return fmt.Errorf("lookup journals: %w", err)
	}

	found := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		found[c] = struct{}{}
	}

	var missing []string
	for _, c := range codes {
		if _, ok := found[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	joined := strings.Join(missing, ", ")
	internal := fmt.Errorf("unknown journal %s: %s", format.ValidationLookup(), joined)
	return newInvalidFile(tr, MsgJournalsInvalid, map[string]string{"codes": joined}, internal)
}

// CheckDates requires every row's day to parse and to fall inside the
// financial year, bounds included. One bad row rejects the file.
func CheckDates(tr Translator, format ImportFormat, year FinancialYear, rows []ParsedRow) error {
	for _, row := range rows {
		raw := row.Get(ColDay)
		day, err := format.ParseDate(raw)
		if err != nil {
			return newInvalidFile(tr, MsgEntryDatesInvalid, nil,
				fmt.Errorf("line %d: %w", row.Line, err))
		}
		if !year.Covers(day) {
			return newInvalidFile(tr, MsgEntryDatesInvalid, nil,
				fmt.Errorf("line %d: %s is outside %s..%s", row.Line,
					day.Format("2006-01-02"),
					year.StartedOn.Format("2006-01-02"),
					year.StoppedOn.Format("2006-01-02")))
		}
	}
	return nil
}
