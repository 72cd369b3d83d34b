package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const exchangeColumns = `id, financial_year_id, format, started_on, stopped_on, closed_at,
	public_token, public_token_expired_at, import_file_name, import_file_content_type,
	import_file_size, import_file_updated_at, created_at, updated_at`

func scanExchange(row interface{ Scan(...any) error }) (FinancialYearExchange, error) {
	var i FinancialYearExchange
	err := row.Scan(
		&i.ID,
		&i.FinancialYearID,
		&i.Format,
		&i.StartedOn,
		&i.StoppedOn,
		&i.ClosedAt,
		&i.PublicToken,
		&i.PublicTokenExpiredAt,
		&i.ImportFileName,
		&i.ImportFileContentType,
		&i.ImportFileSize,
		&i.ImportFileUpdatedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getExchange = `SELECT ` + exchangeColumns + `
FROM financial_year_exchanges
WHERE id = $1`

func (q *Queries) GetExchange(ctx context.Context, id int64) (FinancialYearExchange, error) {
	return scanExchange(q.db.QueryRow(ctx, getExchange, id))
}

const getExchangeByPublicToken = `SELECT ` + exchangeColumns + `
FROM financial_year_exchanges
WHERE public_token = $1
  AND public_token_expired_at > $2`

type GetExchangeByPublicTokenParams struct {
	PublicToken pgtype.Text
	Now         pgtype.Timestamptz
}

func (q *Queries) GetExchangeByPublicToken(ctx context.Context, arg GetExchangeByPublicTokenParams) (FinancialYearExchange, error) {
	return scanExchange(q.db.QueryRow(ctx, getExchangeByPublicToken, arg.PublicToken, arg.Now))
}

const createExchange = `INSERT INTO financial_year_exchanges (financial_year_id, format, started_on, stopped_on)
VALUES ($1, $2, $3, $4)
RETURNING id`

type CreateExchangeParams struct {
	FinancialYearID int64
	Format          string
	StartedOn       pgtype.Date
	StoppedOn       pgtype.Date
}

func (q *Queries) CreateExchange(ctx context.Context, arg CreateExchangeParams) (int64, error) {
	row := q.db.QueryRow(ctx, createExchange, arg.FinancialYearID, arg.Format, arg.StartedOn, arg.StoppedOn)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateExchangeState = `UPDATE financial_year_exchanges
SET closed_at = $2,
    public_token = $3,
    public_token_expired_at = $4,
    updated_at = $5
WHERE id = $1`

type UpdateExchangeStateParams struct {
	ID                   int64
	ClosedAt             pgtype.Timestamptz
	PublicToken          pgtype.Text
	PublicTokenExpiredAt pgtype.Timestamptz
	UpdatedAt            pgtype.Timestamptz
}

func (q *Queries) UpdateExchangeState(ctx context.Context, arg UpdateExchangeStateParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateExchangeState,
		arg.ID,
		arg.ClosedAt,
		arg.PublicToken,
		arg.PublicTokenExpiredAt,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const attachImportFile = `UPDATE financial_year_exchanges
SET import_file_name = $2,
    import_file_content_type = $3,
    import_file_size = $4,
    import_file_data = $5,
    import_file_updated_at = $6,
    updated_at = $6
WHERE id = $1 AND closed_at IS NULL`

type AttachImportFileParams struct {
	ID          int64
	FileName    pgtype.Text
	ContentType pgtype.Text
	Size        pgtype.Int8
	Data        []byte
	UpdatedAt   pgtype.Timestamptz
}

func (q *Queries) AttachImportFile(ctx context.Context, arg AttachImportFileParams) (int64, error) {
	result, err := q.db.Exec(ctx, attachImportFile,
		arg.ID,
		arg.FileName,
		arg.ContentType,
		arg.Size,
		arg.Data,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getImportFile = `SELECT import_file_name, import_file_content_type, import_file_size,
       import_file_data, import_file_updated_at
FROM financial_year_exchanges
WHERE id = $1`

type GetImportFileRow struct {
	FileName    pgtype.Text
	ContentType pgtype.Text
	Size        pgtype.Int8
	Data        []byte
	UpdatedAt   pgtype.Timestamptz
}

func (q *Queries) GetImportFile(ctx context.Context, id int64) (GetImportFileRow, error) {
	row := q.db.QueryRow(ctx, getImportFile, id)
	var i GetImportFileRow
	err := row.Scan(
		&i.FileName,
		&i.ContentType,
		&i.Size,
		&i.Data,
		&i.UpdatedAt,
	)
	return i, err
}

const getFinancialYear = `SELECT id, code, started_on, stopped_on, accountant_id
FROM financial_years
WHERE id = $1`

func (q *Queries) GetFinancialYear(ctx context.Context, id int64) (FinancialYear, error) {
	row := q.db.QueryRow(ctx, getFinancialYear, id)
	var i FinancialYear
	err := row.Scan(
		&i.ID,
		&i.Code,
		&i.StartedOn,
		&i.StoppedOn,
		&i.AccountantID,
	)
	return i, err
}

const listExistingJournalCodes = `SELECT DISTINCT code
FROM journals
WHERE code = ANY($1::text[])`

// ListExistingJournalCodes returns the codes matching a journal of any accountant.
func (q *Queries) ListExistingJournalCodes(ctx context.Context, codes []string) ([]string, error) {
	return q.listStrings(ctx, listExistingJournalCodes, codes)
}

const listExistingIsacomptaCodes = `SELECT DISTINCT isacompta_code
FROM journals
WHERE isacompta_code = ANY($1::text[])`

// ListExistingIsacomptaCodes returns the isacompta codes matching a journal of any accountant.
func (q *Queries) ListExistingIsacomptaCodes(ctx context.Context, codes []string) ([]string, error) {
	return q.listStrings(ctx, listExistingIsacomptaCodes, codes)
}

func (q *Queries) listStrings(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const journalColumns = `id, accountant_id, code, isacompta_code, name`

func scanJournal(row interface{ Scan(...any) error }) (Journal, error) {
	var i Journal
	err := row.Scan(
		&i.ID,
		&i.AccountantID,
		&i.Code,
		&i.IsacomptaCode,
		&i.Name,
	)
	return i, err
}

const findJournalByCode = `SELECT ` + journalColumns + `
FROM journals
WHERE accountant_id = $1 AND code = $2
ORDER BY id
LIMIT 1`

type FindJournalParams struct {
	AccountantID int64
	Code         string
}

func (q *Queries) FindJournalByCode(ctx context.Context, arg FindJournalParams) (Journal, error) {
	return scanJournal(q.db.QueryRow(ctx, findJournalByCode, arg.AccountantID, arg.Code))
}

const findJournalByIsacomptaCode = `SELECT ` + journalColumns + `
FROM journals
WHERE accountant_id = $1 AND isacompta_code = $2
ORDER BY id
LIMIT 1`

func (q *Queries) FindJournalByIsacomptaCode(ctx context.Context, arg FindJournalParams) (Journal, error) {
	return scanJournal(q.db.QueryRow(ctx, findJournalByIsacomptaCode, arg.AccountantID, arg.Code))
}

const findAccountByNumber = `SELECT id, number, name
FROM accounts
WHERE number = $1`

func (q *Queries) FindAccountByNumber(ctx context.Context, number string) (Account, error) {
	row := q.db.QueryRow(ctx, findAccountByNumber, number)
	var i Account
	err := row.Scan(&i.ID, &i.Number, &i.Name)
	return i, err
}

const insertJournalEntry = `INSERT INTO journal_entries (journal_id, number, printed_on, origin, real_debit, real_credit)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`

type InsertJournalEntryParams struct {
	JournalID  int64
	Number     string
	PrintedOn  pgtype.Date
	Origin     string
	RealDebit  pgtype.Numeric
	RealCredit pgtype.Numeric
}

func (q *Queries) InsertJournalEntry(ctx context.Context, arg InsertJournalEntryParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertJournalEntry,
		arg.JournalID,
		arg.Number,
		arg.PrintedOn,
		arg.Origin,
		arg.RealDebit,
		arg.RealCredit,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const insertJournalEntryItem = `INSERT INTO journal_entry_items (
    entry_id, position, name, real_debit, real_credit, letter, isacompta_letter, account_id, account_number
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

type InsertJournalEntryItemParams struct {
	EntryID         int64
	Position        int32
	Name            string
	RealDebit       pgtype.Numeric
	RealCredit      pgtype.Numeric
	Letter          pgtype.Text
	IsacomptaLetter pgtype.Text
	AccountID       pgtype.Int8
	AccountNumber   string
}

func (q *Queries) InsertJournalEntryItem(ctx context.Context, arg InsertJournalEntryItemParams) error {
	_, err := q.db.Exec(ctx, insertJournalEntryItem,
		arg.EntryID,
		arg.Position,
		arg.Name,
		arg.RealDebit,
		arg.RealCredit,
		arg.Letter,
		arg.IsacomptaLetter,
		arg.AccountID,
		arg.AccountNumber,
	)
	return err
}
