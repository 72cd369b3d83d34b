package core

import (
	"context"
	"time"
)

// Store gives access to exchange records and opens import transactions.
type Store interface {
	// InTx runs fn inside one atomic transaction. The transaction commits when
	// fn returns nil and rolls back otherwise; fn's error is returned as-is.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// CreateExchange inserts x and returns it with ID and timestamps set.
	CreateExchange(ctx context.Context, x Exchange) (Exchange, error)
	GetExchange(ctx context.Context, id int64) (Exchange, error)
	GetFinancialYear(ctx context.Context, id int64) (FinancialYear, error)
	ExchangeByPublicToken(ctx context.Context, token string, now time.Time) (Exchange, error)
	UpdateExchangeState(ctx context.Context, x Exchange) error
	GetImportFile(ctx context.Context, exchangeID int64) (ImportFile, error)
}

// Tx is the set of reads and writes the import pipeline performs inside its
// transaction. Lookups return ErrNotFound when nothing matches.
type Tx interface {
	// ExistingJournalCodes returns the subset of codes matching at least one
	// journal, across every accountant, compared on the given field.
	ExistingJournalCodes(ctx context.Context, by JournalLookup, codes []string) ([]string, error)

	// FindJournal finds the accountant's journal whose field equals code.
	FindJournal(ctx context.Context, accountantID int64, by JournalLookup, code string) (Journal, error)

	FindAccountByNumber(ctx context.Context, number string) (Account, error)

	// InsertEntry persists the entry and its items and sets entry.ID.
	InsertEntry(ctx context.Context, entry *Entry) error

	// AttachImportFile stores the original file on the exchange record. It
	// fails with ErrExchangeClosed when the exchange was closed meanwhile.
	AttachImportFile(ctx context.Context, exchangeID int64, file ImportFile) error
}
