// Package store implements core.Store.
//
// Postgres runs each import in one pgx transaction. Memory keeps everything
// in process and restores a snapshot on rollback; tests and dry runs use it.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/fyexchange/internal/core"
	"github.com/JonMunkholm/fyexchange/internal/database"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var _ core.Store = (*Postgres)(nil)

// Postgres is a core.Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	q    *database.Queries
}

// NewPostgres creates a store over pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, q: database.New(pool)}
}

// InTx begins a transaction, runs fn and commits when fn succeeds.
func (p *Postgres) InTx(ctx context.Context, fn func(tx core.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", mapError(err))
	}
	// No-op once committed. Runs detached from ctx so a cancelled run still rolls back.
	defer tx.Rollback(context.WithoutCancel(ctx))

	if err := fn(&pgTx{q: p.q.WithTx(tx)}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", mapError(err))
	}
	return nil
}

func (p *Postgres) CreateExchange(ctx context.Context, x core.Exchange) (core.Exchange, error) {
	id, err := p.q.CreateExchange(ctx, database.CreateExchangeParams{
		FinancialYearID: x.FinancialYearID,
		Format:          x.Format,
		StartedOn:       toDate(x.StartedOn),
		StoppedOn:       toDate(x.StoppedOn),
	})
	if err != nil {
		return core.Exchange{}, mapError(err)
	}
	return p.GetExchange(ctx, id)
}

func (p *Postgres) GetExchange(ctx context.Context, id int64) (core.Exchange, error) {
	row, err := p.q.GetExchange(ctx, id)
	if err != nil {
		return core.Exchange{}, mapError(err)
	}
	return exchangeFromRow(row), nil
}

func (p *Postgres) GetFinancialYear(ctx context.Context, id int64) (core.FinancialYear, error) {
	row, err := p.q.GetFinancialYear(ctx, id)
	if err != nil {
		return core.FinancialYear{}, mapError(err)
	}
	return core.FinancialYear{
		ID:           row.ID,
		Code:         row.Code,
		StartedOn:    row.StartedOn.Time,
		StoppedOn:    row.StoppedOn.Time,
		AccountantID: row.AccountantID,
	}, nil
}

func (p *Postgres) ExchangeByPublicToken(ctx context.Context, token string, now time.Time) (core.Exchange, error) {
	row, err := p.q.GetExchangeByPublicToken(ctx, database.GetExchangeByPublicTokenParams{
		PublicToken: toText(token),
		Now:         toTimestamptz(&now),
	})
	if err != nil {
		return core.Exchange{}, mapError(err)
	}
	return exchangeFromRow(row), nil
}

func (p *Postgres) UpdateExchangeState(ctx context.Context, x core.Exchange) error {
	n, err := p.q.UpdateExchangeState(ctx, database.UpdateExchangeStateParams{
		ID:                   x.ID,
		ClosedAt:             toTimestamptz(x.ClosedAt),
		PublicToken:          toText(x.PublicToken),
		PublicTokenExpiredAt: toTimestamptz(x.PublicTokenExpiredAt),
		UpdatedAt:            toTimestamptz(&x.UpdatedAt),
	})
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (p *Postgres) GetImportFile(ctx context.Context, exchangeID int64) (core.ImportFile, error) {
	row, err := p.q.GetImportFile(ctx, exchangeID)
	if err != nil {
		return core.ImportFile{}, mapError(err)
	}
	if !row.FileName.Valid {
		return core.ImportFile{}, core.ErrNotFound
	}
	return core.ImportFile{
		FileName:    row.FileName.String,
		ContentType: row.ContentType.String,
		Size:        row.Size.Int64,
		Data:        row.Data,
		UpdatedAt:   row.UpdatedAt.Time,
	}, nil
}

// pgTx is the import-side view of one pgx transaction.
type pgTx struct {
	q *database.Queries
}

func (t *pgTx) ExistingJournalCodes(ctx context.Context, by core.JournalLookup, codes []string) ([]string, error) {
	var (
		found []string
		err   error
	)
	if by == core.LookupByIsacomptaCode {
		found, err = t.q.ListExistingIsacomptaCodes(ctx, codes)
	} else {
		found, err = t.q.ListExistingJournalCodes(ctx, codes)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return found, nil
}

func (t *pgTx) FindJournal(ctx context.Context, accountantID int64, by core.JournalLookup, code string) (core.Journal, error) {
	arg := database.FindJournalParams{AccountantID: accountantID, Code: code}

	var (
		row database.Journal
		err error
	)
	if by == core.LookupByIsacomptaCode {
		row, err = t.q.FindJournalByIsacomptaCode(ctx, arg)
	} else {
		row, err = t.q.FindJournalByCode(ctx, arg)
	}
	if err != nil {
		return core.Journal{}, mapError(err)
	}
	return core.Journal{
		ID:            row.ID,
		AccountantID:  row.AccountantID,
		Code:          row.Code,
		IsacomptaCode: row.IsacomptaCode.String,
		Name:          row.Name,
	}, nil
}

func (t *pgTx) FindAccountByNumber(ctx context.Context, number string) (core.Account, error) {
	row, err := t.q.FindAccountByNumber(ctx, number)
	if err != nil {
		return core.Account{}, mapError(err)
	}
	return core.Account{ID: row.ID, Number: row.Number, Name: row.Name}, nil
}

func (t *pgTx) InsertEntry(ctx context.Context, entry *core.Entry) error {
	id, err := t.q.InsertJournalEntry(ctx, database.InsertJournalEntryParams{
		JournalID:  entry.JournalID,
		Number:     entry.Number,
		PrintedOn:  toDate(entry.PrintedOn),
		Origin:     string(entry.Origin),
		RealDebit:  toNumeric(entry.TotalDebit()),
		RealCredit: toNumeric(entry.TotalCredit()),
	})
	if err != nil {
		return mapError(err)
	}

	for i, item := range entry.Items {
		err := t.q.InsertJournalEntryItem(ctx, database.InsertJournalEntryItemParams{
			EntryID:         id,
			Position:        int32(i + 1),
			Name:            item.Name,
			RealDebit:       toNumeric(item.RealDebit),
			RealCredit:      toNumeric(item.RealCredit),
			Letter:          toText(item.Letter),
			IsacomptaLetter: toText(item.IsacomptaLetter),
			AccountID:       toInt8(item.AccountID),
			AccountNumber:   item.AccountNumber,
		})
		if err != nil {
			return fmt.Errorf("item %d: %w", i+1, mapError(err))
		}
	}

	entry.ID = id
	return nil
}

func (t *pgTx) AttachImportFile(ctx context.Context, exchangeID int64, file core.ImportFile) error {
	n, err := t.q.AttachImportFile(ctx, database.AttachImportFileParams{
		ID:          exchangeID,
		FileName:    toText(file.FileName),
		ContentType: toText(file.ContentType),
		Size:        pgtype.Int8{Int64: file.Size, Valid: true},
		Data:        file.Data,
		UpdatedAt:   toTimestamptz(&file.UpdatedAt),
	})
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		// Either the exchange is gone or a close committed during the run.
		if _, err := t.q.GetExchange(ctx, exchangeID); err != nil {
			return mapError(err)
		}
		return core.ErrExchangeClosed
	}
	return nil
}

// mapError translates driver errors into core sentinels.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
		return fmt.Errorf("%w: %s (%s)", core.ErrConstraintViolation, pgErr.Message, pgErr.ConstraintName)
	}
	return err
}

func exchangeFromRow(row database.FinancialYearExchange) core.Exchange {
	x := core.Exchange{
		ID:                   row.ID,
		FinancialYearID:      row.FinancialYearID,
		Format:               row.Format,
		StartedOn:            row.StartedOn.Time,
		StoppedOn:            row.StoppedOn.Time,
		ClosedAt:             fromTimestamptz(row.ClosedAt),
		PublicToken:          row.PublicToken.String,
		PublicTokenExpiredAt: fromTimestamptz(row.PublicTokenExpiredAt),
		CreatedAt:            row.CreatedAt.Time,
		UpdatedAt:            row.UpdatedAt.Time,
	}
	if row.ImportFileName.Valid {
		x.ImportFile = &core.ImportFile{
			FileName:    row.ImportFileName.String,
			ContentType: row.ImportFileContentType.String,
			Size:        row.ImportFileSize.Int64,
			UpdatedAt:   row.ImportFileUpdatedAt.Time,
		}
	}
	return x
}

func toDate(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: t, Valid: true}
}

func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil || t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func fromTimestamptz(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func toText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func toInt8(id *int64) pgtype.Int8 {
	if id == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *id, Valid: true}
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}
