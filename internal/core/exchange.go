package core

import (
	"time"

	"github.com/google/uuid"
)

// PublicTokenLifetime is how long a public exchange token stays valid.
const PublicTokenLifetime = 1 // month

// DefaultExchangeFormat is the format of exchanges created without one.
const DefaultExchangeFormat = "ekyagri"

// Opened reports whether the exchange still accepts imports.
func (x Exchange) Opened() bool {
	return x.ClosedAt == nil
}

// ImportFormat returns the file layout expected by this exchange.
func (x Exchange) ImportFormat() ImportFormat {
	return FormatFor(x.Format)
}

// Close marks the exchange closed at now.
func (x *Exchange) Close(now time.Time) error {
	if !x.Opened() {
		return ErrExchangeClosed
	}
	closedAt := now
	x.ClosedAt = &closedAt
	x.UpdatedAt = now
	return nil
}

// GeneratePublicToken replaces the public token with a fresh one valid for
// PublicTokenLifetime months from now.
func (x *Exchange) GeneratePublicToken(now time.Time) {
	expires := now.AddDate(0, PublicTokenLifetime, 0)
	x.PublicToken = uuid.New().String()
	x.PublicTokenExpiredAt = &expires
	x.UpdatedAt = now
}

// PublicTokenValid reports whether token matches and has not expired at now.
func (x Exchange) PublicTokenValid(token string, now time.Time) bool {
	if x.PublicToken == "" || x.PublicToken != token || x.PublicTokenExpiredAt == nil {
		return false
	}
	return now.Before(*x.PublicTokenExpiredAt)
}
