package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/fyexchange/internal/config"
	"github.com/JonMunkholm/fyexchange/internal/core"
	"github.com/JonMunkholm/fyexchange/internal/database"
	"github.com/JonMunkholm/fyexchange/internal/i18n"
	"github.com/JonMunkholm/fyexchange/internal/logging"
	"github.com/JonMunkholm/fyexchange/internal/store"
	"github.com/JonMunkholm/fyexchange/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"default_locale", cfg.Locale.Default,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	catalog, err := i18n.Load(cfg.Locale.Default)
	if err != nil {
		slog.Error("failed to load message catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("message catalog loaded", "locales", catalog.Locales())

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.URL); err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	pool, err := database.Connect(context.Background(), cfg.Database)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	service := core.NewService(store.NewPostgres(pool), catalog, cfg)
	server := web.NewServer(service, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, server, cfg.Server.ShutdownTimeout, service.LimiterStatus, service.WaitForImports); err != nil {
		slog.Error("server failed", "error", err)
		return
	}
	slog.Info("server stopped")
}
