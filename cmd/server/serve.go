package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/fyexchange/internal/core"
)

// httpServer is the part of web.Server that serve drives.
type httpServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// serve runs srv until ctx is cancelled, then lets running imports finish and
// shuts srv down. It returns only once Shutdown has completed, so in-flight
// requests are not cut off by the caller closing the pool.
func serve(
	ctx context.Context,
	srv httpServer,
	shutdownTimeout time.Duration,
	status func() core.ImportLimiterStatus,
	waitForImports func(context.Context) error,
) error {
	startErr := make(chan error, 1)
	go func() {
		startErr <- srv.Start()
	}()

	select {
	case err := <-startErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Let running imports commit or roll back before closing connections
	if st := status(); st.Active > 0 {
		slog.Info("waiting for imports to complete", "active", st.Active)
		if err := waitForImports(shutdownCtx); err != nil {
			slog.Warn("imports did not complete in time", "error", err)
		} else {
			slog.Info("all imports completed")
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	if err := <-startErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
