package core

// import_limiter.go bounds concurrent exchange imports.
//
// Two rules apply. At most maxConcurrent imports run at once; extra requests
// wait up to maxWait for a slot and then fail with ErrTooManyImports. And a
// financial year is imported by one run at a time: a second import into the
// same year fails immediately with ErrImportInProgress, since both runs would
// otherwise race on the same journals.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyImports is returned when all import slots stay occupied for the
// whole wait timeout. Clients should retry after a short delay.
var ErrTooManyImports = errors.New("too many concurrent imports, please try again later")

// ErrImportInProgress is returned when the financial year is already being imported.
var ErrImportInProgress = errors.New("import already in progress for this financial year")

// DefaultMaxConcurrentImports is the default limit for parallel imports.
const DefaultMaxConcurrentImports = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// ImportLimiter controls concurrent import processing using a semaphore and
// a set of financial years currently being imported.
type ImportLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.Mutex
	active map[int64]struct{} // financial year IDs holding a slot
}

// NewImportLimiter creates a limiter that allows at most maxConcurrent simultaneous imports.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &ImportLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
		active:    make(map[int64]struct{}),
	}
}

// Acquire reserves the financial year and then waits for a slot.
// On success the caller MUST call the returned release func exactly once.
func (l *ImportLimiter) Acquire(ctx context.Context, financialYearID int64) (release func(), err error) {
	if !l.claim(financialYearID) {
		return nil, ErrImportInProgress
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-l.semaphore
				l.unclaim(financialYearID)
			})
		}, nil

	case <-waitCtx.Done():
		l.unclaim(financialYearID)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrTooManyImports
	}
}

func (l *ImportLimiter) claim(financialYearID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.active[financialYearID]; busy {
		return false
	}
	l.active[financialYearID] = struct{}{}
	return true
}

func (l *ImportLimiter) unclaim(financialYearID int64) {
	l.mu.Lock()
	delete(l.active, financialYearID)
	l.mu.Unlock()
}

// InProgress reports whether the financial year is being imported or waiting for a slot.
func (l *ImportLimiter) InProgress(financialYearID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, busy := l.active[financialYearID]
	return busy
}

// ActiveCount returns the number of imports currently holding a slot.
func (l *ImportLimiter) ActiveCount() int {
	return len(l.semaphore)
}

// MaxConcurrent returns the maximum allowed concurrent imports.
func (l *ImportLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// WaitForDrain blocks until all active imports complete or ctx is cancelled.
// Used for graceful shutdown so no transaction is cut short.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ImportLimiterStatus is a snapshot of the limiter's current state.
type ImportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *ImportLimiter) Status() ImportLimiterStatus {
	active := len(l.semaphore)
	return ImportLimiterStatus{
		Active:        active,
		Available:     cap(l.semaphore) - active,
		MaxConcurrent: cap(l.semaphore),
	}
}
