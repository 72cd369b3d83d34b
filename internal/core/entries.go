package core

// entries.go builds and persists journal entries from validated rows.
//
// Rows are grouped by entry number in order of first appearance. Groups whose
// journal does not belong to the financial year's accountant are skipped
// without error: the accountant's own journals are the only import target.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// ErrConstraintViolation is wrapped by stores when a write breaks a database constraint.
var ErrConstraintViolation = errors.New("constraint violation")

// EntryGroup is the set of rows sharing one entry number.
type EntryGroup struct {
	Number string
	Rows   []ParsedRow
}

// GroupByEntryNumber groups rows by entry number. Groups come out in order of
// the first row of each number; rows keep their file order inside a group.
func GroupByEntryNumber(rows []ParsedRow) []EntryGroup {
	index := make(map[string]int)
	var groups []EntryGroup
	for _, row := range rows {
		number := row.Get(ColEntryNumber)
		i, ok := index[number]
		if !ok {
			i = len(groups)
			index[number] = i
			groups = append(groups, EntryGroup{Number: number})
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}
	return groups
}

// ImportStats counts what the entry stage did.
type ImportStats struct {
	Entries       int
	Items         int
	SkippedGroups int
}

// entryImporter persists entries for one run. Account lookups are cached for
// the lifetime of the run since the same numbers repeat across rows.
type entryImporter struct {
	tx           Tx
	tr           Translator
	format       ImportFormat
	accountantID int64
	accounts     *cache.Cache
}

func newEntryImporter(tx Tx, tr Translator, format ImportFormat, accountantID int64) *entryImporter {
	return &entryImporter{
		tx:           tx,
		tr:           tr,
		format:       format,
		accountantID: accountantID,
		accounts:     cache.New(cache.NoExpiration, 0),
	}
}

// importAll persists every group. The first invalid entry stops the stage.
func (ei *entryImporter) importAll(ctx context.Context, rows []ParsedRow) (ImportStats, error) {
	var stats ImportStats

	for _, group := range GroupByEntryNumber(rows) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		first := group.Rows[0]
		journal, found, err := ei.resolveJournal(ctx, first.Get(ColJournal))
		if err != nil {
			return stats, err
		}
		if !found {
			stats.SkippedGroups++
			continue
		}

		entry, buildErrs, err := ei.buildEntry(ctx, journal, group)
		if err != nil {
			return stats, err
		}

		entry.MarkForExchangeImport()
		if err := ei.save(ctx, entry, buildErrs); err != nil {
			return stats, err
		}

		stats.Entries++
		stats.Items += len(entry.Items)
	}

	return stats, nil
}

// resolveJournal looks the code up in the accountant's journals using the
// format's lookup order.
func (ei *entryImporter) resolveJournal(ctx context.Context, code string) (Journal, bool, error) {
	for _, by := range ei.format.ImportLookups() {
		journal, err := ei.tx.FindJournal(ctx, ei.accountantID, by, code)
		if err == nil {
			return journal, true, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Journal{}, false, fmt.Errorf("find journal %q by %s: %w", code, by, err)
		}
	}
	return Journal{}, false, nil
}

func (ei *entryImporter) buildEntry(ctx context.Context, journal Journal, group EntryGroup) (*Entry, ValidationErrors, error) {
	var errs ValidationErrors

	first := group.Rows[0]
	printedOn, err := ei.format.ParseDate(first.Get(ColDay))
	if err != nil {
		errs = append(errs, ValidationError{Field: "printed_on", Value: first.Get(ColDay), Message: err.Error()})
	}

	entry := &Entry{
		JournalID: journal.ID,
		Number:    group.Number,
		PrintedOn: printedOn,
		Items:     make([]EntryItem, 0, len(group.Rows)),
	}

	for i, row := range group.Rows {
		item := EntryItem{
			Name:          row.Get(ColEntryLabel),
			AccountNumber: row.Get(ColAccountNumber),
		}

		debit, err := ParseAmount(row.Get(ColDebit))
		if err != nil {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("items[%d].real_debit", i), Value: row.Get(ColDebit), Message: err.Error()})
		}
		credit, err := ParseAmount(row.Get(ColCredit))
		if err != nil {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("items[%d].real_credit", i), Value: row.Get(ColCredit), Message: err.Error()})
		}
		item.RealDebit, item.RealCredit = debit, credit
		ei.format.SetLetter(&item, row.Get(ColReconciliationLetter))

		account, err := ei.account(ctx, item.AccountNumber)
		if err != nil {
			return nil, nil, err
		}
		if account != nil {
			id := account.ID
			item.AccountID = &id
		}

		entry.Items = append(entry.Items, item)
	}

	return entry, errs, nil
}

// account returns the account with the given number, or nil if there is none.
func (ei *entryImporter) account(ctx context.Context, number string) (*Account, error) {
	if cached, ok := ei.accounts.Get(number); ok {
		return cached.(*Account), nil
	}

	var result *Account
	account, err := ei.tx.FindAccountByNumber(ctx, number)
	switch {
	case err == nil:
		result = &account
	case errors.Is(err, ErrNotFound):
		result = nil
	default:
		return nil, fmt.Errorf("find account %q: %w", number, err)
	}

	ei.accounts.Set(number, result, cache.NoExpiration)
	return result, nil
}

func (ei *entryImporter) save(ctx context.Context, entry *Entry, buildErrs ValidationErrors) error {
	invalid := func(cause error) error {
		return newInvalidFile(ei.tr, MsgEntryInvalid,
			map[string]string{"entry_number": entry.Number},
			&EntryInvalid{Number: entry.Number, Err: cause})
	}

	if err := entry.Validate(); err != nil {
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			buildErrs = append(buildErrs, verrs...)
		}
	}
	if len(buildErrs) > 0 {
		return invalid(buildErrs)
	}

	if err := ei.tx.InsertEntry(ctx, entry); err != nil {
		if errors.Is(err, ErrConstraintViolation) {
			return invalid(err)
		}
		return fmt.Errorf("insert entry %q: %w", entry.Number, err)
	}
	return nil
}

// ParseAmount parses a debit or credit cell. Empty cells are zero. When both
// "." and "," appear, the last one is the decimal separator and the other
// groups thousands; a lone separator is decimal unless it repeats in groups of
// three digits. Spaces always group thousands. Exponents are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	raw := s
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "€", "").Replace(s)
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("invalid number %q", raw)
	}

	normalized, ok := normalizeSeparators(s)
	if !ok {
		return decimal.Zero, fmt.Errorf("ambiguous number %q", raw)
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", raw)
	}
	return d, nil
}

// normalizeSeparators rewrites s with "." as the only decimal separator and
// no thousands separator.
func normalizeSeparators(s string) (string, bool) {
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")

	switch {
	case dot < 0 && comma < 0:
		return s, true
	case dot >= 0 && comma >= 0:
		decimalSep, groupSep := ".", ","
		if comma > dot {
			decimalSep, groupSep = ",", "."
		}
		if strings.Count(s, decimalSep) != 1 {
			return "", false
		}
		whole, frac, _ := strings.Cut(s, decimalSep)
		if !validGrouping(whole, groupSep) {
			return "", false
		}
		return strings.ReplaceAll(whole, groupSep, "") + "." + frac, true
	}

	sep := "."
	if comma >= 0 {
		sep = ","
	}
	if strings.Count(s, sep) == 1 {
		return strings.Replace(s, sep, ".", 1), true // 1234,56 or 1234.56
	}
	if !validGrouping(s, sep) {
		return "", false
	}
	return strings.ReplaceAll(s, sep, ""), true // 1.234.567
}

// validGrouping reports whether every group after the first in s has exactly
// three digits.
func validGrouping(s, sep string) bool {
	groups := strings.Split(s, sep)
	lead := strings.TrimLeft(groups[0], "+-")
	if len(groups) > 1 && (lead == "" || len(lead) > 3) {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}
