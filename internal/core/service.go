package core

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/fyexchange/internal/config"
	"github.com/JonMunkholm/fyexchange/internal/logging"
)

// Catalog hands out a Translator per locale.
type Catalog interface {
	For(locale string) Translator
}

// Service provides the business logic for exchange operations.
// It is safe for concurrent use.
type Service struct {
	store   Store
	catalog Catalog
	limiter *ImportLimiter
	cfg     *config.Config
	now     func() time.Time
}

// NewService creates a new Service instance.
func NewService(store Store, catalog Catalog, cfg *config.Config) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		limiter: NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		cfg:     cfg,
		now:     time.Now,
	}
}

// ImportRequest is a file submitted for import into an exchange.
type ImportRequest struct {
	ExchangeID int64
	File       ImportFile
	Locale     string // Empty selects the configured default
}

// ImportExchange runs the import pipeline for one exchange. The returned error
// is Result.Err for pipeline failures, or a scheduling/lookup error when the
// pipeline never started.
func (s *Service) ImportExchange(ctx context.Context, req ImportRequest) (Result, error) {
	if max := s.cfg.Import.MaxFileSize; max > 0 && int64(len(req.File.Data)) > max {
		return Result{}, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, len(req.File.Data), max)
	}

	exchange, err := s.store.GetExchange(ctx, req.ExchangeID)
	if err != nil {
		return Result{}, fmt.Errorf("get exchange %d: %w", req.ExchangeID, err)
	}
	if !exchange.Opened() {
		return Result{}, ErrExchangeClosed
	}

	year, err := s.store.GetFinancialYear(ctx, exchange.FinancialYearID)
	if err != nil {
		return Result{}, fmt.Errorf("get financial year %d: %w", exchange.FinancialYearID, err)
	}

	release, err := s.limiter.Acquire(ctx, year.ID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	runCtx := ctx
	if s.cfg.Import.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Import.Timeout)
		defer cancel()
	}

	imp := NewExchangeImport(s.store, s.translator(req.Locale),
		WithDelimiter(s.delimiter()),
		WithClock(s.now),
	)
	result := imp.Run(runCtx, exchange, year, req.File)
	return result, result.Err
}

func (s *Service) translator(locale string) Translator {
	if locale == "" {
		locale = s.cfg.Locale.Default
	}
	return s.catalog.For(locale)
}

func (s *Service) delimiter() rune {
	r, _ := utf8.DecodeRuneInString(s.cfg.Import.Delimiter)
	if r == utf8.RuneError {
		return ','
	}
	return r
}

// CreateExchange opens a new exchange on a financial year. An empty format
// selects DefaultExchangeFormat; the period must fit inside the year.
func (s *Service) CreateExchange(ctx context.Context, x Exchange) (Exchange, error) {
	year, err := s.store.GetFinancialYear(ctx, x.FinancialYearID)
	if err != nil {
		return Exchange{}, fmt.Errorf("get financial year %d: %w", x.FinancialYearID, err)
	}

	if x.Format == "" {
		x.Format = DefaultExchangeFormat
	}
	if x.StartedOn.IsZero() {
		x.StartedOn = year.StartedOn
	}
	x.ClosedAt = nil
	if err := x.Validate(year); err != nil {
		return Exchange{}, &RecordInvalid{Record: "financial_year_exchange", ID: x.ID, Err: err}
	}

	created, err := s.store.CreateExchange(ctx, x)
	if err != nil {
		return Exchange{}, fmt.Errorf("create exchange: %w", err)
	}
	logging.FromContext(ctx).Info("exchange created",
		"exchange_id", created.ID,
		"financial_year_id", created.FinancialYearID,
		"format", created.Format,
	)
	return created, nil
}

// GetExchange returns the exchange with the given ID.
func (s *Service) GetExchange(ctx context.Context, id int64) (Exchange, error) {
	x, err := s.store.GetExchange(ctx, id)
	if err != nil {
		return Exchange{}, fmt.Errorf("get exchange %d: %w", id, err)
	}
	return x, nil
}

// CloseExchange closes an opened exchange. Closing a closed exchange fails
// with ErrExchangeClosed.
func (s *Service) CloseExchange(ctx context.Context, id int64) (Exchange, error) {
	return s.updateExchange(ctx, id, func(x *Exchange) error {
		return x.Close(s.now())
	})
}

// GeneratePublicToken issues a new public token for the exchange.
func (s *Service) GeneratePublicToken(ctx context.Context, id int64) (Exchange, error) {
	return s.updateExchange(ctx, id, func(x *Exchange) error {
		x.GeneratePublicToken(s.now())
		return nil
	})
}

func (s *Service) updateExchange(ctx context.Context, id int64, mutate func(*Exchange) error) (Exchange, error) {
	x, err := s.store.GetExchange(ctx, id)
	if err != nil {
		return Exchange{}, fmt.Errorf("get exchange %d: %w", id, err)
	}
	year, err := s.store.GetFinancialYear(ctx, x.FinancialYearID)
	if err != nil {
		return Exchange{}, fmt.Errorf("get financial year %d: %w", x.FinancialYearID, err)
	}

	if err := mutate(&x); err != nil {
		return Exchange{}, err
	}
	if err := x.Validate(year); err != nil {
		return Exchange{}, &RecordInvalid{Record: "financial_year_exchange", ID: x.ID, Err: err}
	}
	if err := s.store.UpdateExchangeState(ctx, x); err != nil {
		return Exchange{}, fmt.Errorf("update exchange %d: %w", id, err)
	}

	logging.FromContext(ctx).Info("exchange updated",
		"exchange_id", x.ID,
		"opened", x.Opened(),
		"has_public_token", x.PublicToken != "",
	)
	return x, nil
}

// ExchangeByPublicToken resolves a public token. Expired tokens are not found.
func (s *Service) ExchangeByPublicToken(ctx context.Context, token string) (Exchange, error) {
	if token == "" {
		return Exchange{}, ErrNotFound
	}
	x, err := s.store.ExchangeByPublicToken(ctx, token, s.now())
	if err != nil {
		return Exchange{}, fmt.Errorf("exchange by public token: %w", err)
	}
	return x, nil
}

// ImportFile returns the file attached by the last successful import.
func (s *Service) ImportFile(ctx context.Context, exchangeID int64) (ImportFile, error) {
	f, err := s.store.GetImportFile(ctx, exchangeID)
	if err != nil {
		return ImportFile{}, fmt.Errorf("get import file of exchange %d: %w", exchangeID, err)
	}
	return f, nil
}

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// LimiterStatus returns the import limiter state for monitoring.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// IsNotFound reports whether err means a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
