// Package core provides the business logic for financial-year exchange imports.
// This package has no transport dependencies and can be used by any frontend.
package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryOrigin tells downstream code where an entry was created.
type EntryOrigin string

const (
	OriginManual         EntryOrigin = "manual"
	OriginExchangeImport EntryOrigin = "exchange_import"
)

// Journal is a ledger entries are posted into. It belongs to one accountant.
type Journal struct {
	ID            int64
	AccountantID  int64
	Code          string
	IsacomptaCode string // Alternate code used by Isacompta exports
	Name          string
}

// Account is a chart-of-accounts line referenced by entry items.
type Account struct {
	ID     int64
	Number string
	Name   string
}

// FinancialYear is the accounting period an exchange belongs to.
type FinancialYear struct {
	ID           int64
	Code         string
	StartedOn    time.Time
	StoppedOn    time.Time
	AccountantID int64
}

// Covers reports whether day lies inside [StartedOn, StoppedOn], both ends included.
func (fy FinancialYear) Covers(day time.Time) bool {
	d := dateOnly(day)
	return !d.Before(dateOnly(fy.StartedOn)) && !d.After(dateOnly(fy.StoppedOn))
}

// ImportFile is an uploaded exchange file, kept on the exchange for provenance.
type ImportFile struct {
	FileName    string
	ContentType string
	Size        int64
	Data        []byte
	UpdatedAt   time.Time
}

// Exchange is one import/export attempt scoped to a financial year.
type Exchange struct {
	ID                   int64
	FinancialYearID      int64
	Format               string // "ekyagri" (default) or "isacompta"
	StartedOn            time.Time
	StoppedOn            time.Time
	ClosedAt             *time.Time
	PublicToken          string
	PublicTokenExpiredAt *time.Time
	ImportFile           *ImportFile
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// EntryItem is a single debit/credit line of an entry.
type EntryItem struct {
	Name            string
	RealDebit       decimal.Decimal
	RealCredit      decimal.Decimal
	Letter          string // Reconciliation letter (standard format)
	IsacomptaLetter string // Reconciliation letter (isacompta format)
	AccountID       *int64 // nil when the account number did not resolve
	AccountNumber   string
}

// Entry is an accounting journal entry grouped from rows sharing an entry number.
type Entry struct {
	ID        int64
	JournalID int64
	Number    string
	PrintedOn time.Time
	Origin    EntryOrigin
	Items     []EntryItem
}

// MarkForExchangeImport tags the entry as machine-imported.
func (e *Entry) MarkForExchangeImport() {
	e.Origin = OriginExchangeImport
}

// ImportedFromExchange reports whether the entry was created by an exchange import.
func (e Entry) ImportedFromExchange() bool {
	return e.Origin == OriginExchangeImport
}

// TotalDebit sums the real debit of all items.
func (e Entry) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, item := range e.Items {
		total = total.Add(item.RealDebit)
	}
	return total
}

// TotalCredit sums the real credit of all items.
func (e Entry) TotalCredit() decimal.Decimal {
	total := decimal.Zero
	for _, item := range e.Items {
		total = total.Add(item.RealCredit)
	}
	return total
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
