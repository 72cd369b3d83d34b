package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Account struct {
	ID     int64
	Number string
	Name   string
}

type Journal struct {
	ID            int64
	AccountantID  int64
	Code          string
	IsacomptaCode pgtype.Text
	Name          string
}

type FinancialYear struct {
	ID           int64
	Code         string
	StartedOn    pgtype.Date
	StoppedOn    pgtype.Date
	AccountantID int64
}

// FinancialYearExchange omits the stored file bytes; see GetImportFile.
type FinancialYearExchange struct {
	ID                    int64
	FinancialYearID       int64
	Format                string
	StartedOn             pgtype.Date
	StoppedOn             pgtype.Date
	ClosedAt              pgtype.Timestamptz
	PublicToken           pgtype.Text
	PublicTokenExpiredAt  pgtype.Timestamptz
	ImportFileName        pgtype.Text
	ImportFileContentType pgtype.Text
	ImportFileSize        pgtype.Int8
	ImportFileUpdatedAt   pgtype.Timestamptz
	CreatedAt             pgtype.Timestamptz
	UpdatedAt             pgtype.Timestamptz
}
