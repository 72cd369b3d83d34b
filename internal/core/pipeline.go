package core

// pipeline.go runs one exchange import from raw file to attached file.
//
// Stages run strictly in order inside a single store transaction:
//
//	start -> parsed -> headers_valid -> journals_valid -> dates_valid -> imported -> finalized
//
// The first failing stage aborts the run. Its error is returned from the
// transaction callback, which rolls back every entry written so far; the
// caller gets a Result with Success=false and that first error.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/fyexchange/internal/logging"
	"github.com/google/uuid"
)

// State is a step of the import state machine.
type State string

const (
	StateStart         State = "start"
	StateParsed        State = "parsed"
	StateHeadersValid  State = "headers_valid"
	StateJournalsValid State = "journals_valid"
	StateDatesValid    State = "dates_valid"
	StateImported      State = "imported"
	StateFinalized     State = "finalized"
	StateAborted       State = "aborted"
)

// Result is the outcome of an import run.
type Result struct {
	RunID         string
	Success       bool
	State         State // StateFinalized or StateAborted
	LastStage     State // Last stage that completed successfully
	Err           error // First error; nil on success
	Entries       int
	Items         int
	SkippedGroups int
	Duration      time.Duration
}

// InvalidFile returns the public import failure, if that is what stopped the run.
func (r Result) InvalidFile() (*InvalidFile, bool) {
	var invalid *InvalidFile
	if errors.As(r.Err, &invalid) {
		return invalid, true
	}
	return nil, false
}

// ExchangeImport imports an exchange file into the accountant's journals.
type ExchangeImport struct {
	store  Store
	tr     Translator
	parser Parser
	now    func() time.Time
}

// ImportOption configures an ExchangeImport.
type ImportOption func(*ExchangeImport)

// WithDelimiter sets the CSV field delimiter.
func WithDelimiter(comma rune) ImportOption {
	return func(imp *ExchangeImport) { imp.parser.Comma = comma }
}

// WithClock overrides the clock used to stamp the attached file.
func WithClock(now func() time.Time) ImportOption {
	return func(imp *ExchangeImport) { imp.now = now }
}

// NewExchangeImport creates an importer writing through store and resolving
// failure messages through tr.
func NewExchangeImport(store Store, tr Translator, opts ...ImportOption) *ExchangeImport {
	imp := &ExchangeImport{
		store:  store,
		tr:     tr,
		parser: Parser{Comma: ','},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// run carries the state of a single import.
type run struct {
	imp      *ExchangeImport
	exchange Exchange
	year     FinancialYear
	file     ImportFile
	format   ImportFormat
	logger   *slog.Logger

	state State
	table *ParsedTable
	stats ImportStats
}

// Run executes the pipeline. It never panics on bad input and always returns
// a Result; Result.Err holds the first failure.
func (imp *ExchangeImport) Run(ctx context.Context, exchange Exchange, year FinancialYear, file ImportFile) Result {
	start := time.Now()
	runID := uuid.New().String()
	format := FormatFor(exchange.Format)

	r := &run{
		imp:      imp,
		exchange: exchange,
		year:     year,
		file:     file,
		format:   format,
		state:    StateStart,
		logger: logging.WithFields(ctx,
			"run_id", runID,
			"exchange_id", exchange.ID,
			"financial_year_id", year.ID,
			"format", format.String(),
		),
	}

	startArgs := append([]any{"file", file.FileName, "bytes", len(file.Data)}, OriginFromContext(ctx).logArgs()...)
	r.logger.Info("exchange import started", startArgs...)

	err := imp.store.InTx(ctx, func(tx Tx) error {
		return r.execute(ctx, tx)
	})

	result := Result{
		RunID:         runID,
		LastStage:     r.state,
		Entries:       r.stats.Entries,
		Items:         r.stats.Items,
		SkippedGroups: r.stats.SkippedGroups,
		Duration:      time.Since(start),
	}

	if err != nil {
		result.State = StateAborted
		result.Err = err
		// Nothing from an aborted run was kept.
		result.Entries, result.Items = 0, 0

		logArgs := []any{"last_stage", r.state, "error", err}
		if cause := errors.Unwrap(err); cause != nil {
			logArgs = append(logArgs, "cause", cause)
		}
		r.logger.Warn("exchange import aborted", logArgs...)
		return result
	}

	result.State = StateFinalized
	result.Success = true
	r.logger.Info("exchange import finished",
		"entries", result.Entries,
		"items", result.Items,
		"skipped_groups", result.SkippedGroups,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result
}

func (r *run) execute(ctx context.Context, tx Tx) error {
	steps := []struct {
		next State
		fn   func(context.Context, Tx) error
	}{
		{StateParsed, r.parse},
		{StateHeadersValid, r.checkHeaders},
		{StateJournalsValid, r.checkJournals},
		{StateDatesValid, r.checkDates},
		{StateImported, r.importEntries},
		{StateFinalized, r.finalize},
	}

	for _, step := range steps {
		if err := step.fn(ctx, tx); err != nil {
			return err
		}
		r.logger.Debug("exchange import stage completed", "stage", step.next)
		r.state = step.next
	}
	return nil
}

func (r *run) parse(_ context.Context, _ Tx) error {
	table, err := r.imp.parser.Parse(bytes.NewReader(r.file.Data))
	if err != nil {
		return newInvalidFile(r.imp.tr, MsgFileInvalid, nil, err)
	}
	r.table = table
	return nil
}

func (r *run) checkHeaders(_ context.Context, _ Tx) error {
	return CheckHeaders(r.imp.tr, r.format, r.table)
}

func (r *run) checkJournals(ctx context.Context, tx Tx) error {
	return CheckJournals(ctx, tx, r.imp.tr, r.format, r.table.Rows)
}

func (r *run) checkDates(_ context.Context, _ Tx) error {
	return CheckDates(r.imp.tr, r.format, r.year, r.table.Rows)
}

func (r *run) importEntries(ctx context.Context, tx Tx) error {
	ei := newEntryImporter(tx, r.imp.tr, r.format, r.year.AccountantID)
	stats, err := ei.importAll(ctx, r.table.Rows)
	r.stats = stats
	return err
}

func (r *run) finalize(ctx context.Context, tx Tx) error {
	file := r.file
	file.Size = int64(len(file.Data))
	file.UpdatedAt = r.imp.now()

	if err := tx.AttachImportFile(ctx, r.exchange.ID, file); err != nil {
		if errors.Is(err, ErrExchangeClosed) {
			return fmt.Errorf("attach import file: %w", err)
		}
		return &RecordInvalid{
			Record: "financial_year_exchange",
			ID:     r.exchange.ID,
			Err:    fmt.Errorf("attach import file: %w", err),
		}
	}
	return nil
}
