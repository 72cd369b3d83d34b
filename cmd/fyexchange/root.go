package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/JonMunkholm/fyexchange/internal/config"
	"github.com/JonMunkholm/fyexchange/internal/core"
	"github.com/JonMunkholm/fyexchange/internal/database"
	"github.com/JonMunkholm/fyexchange/internal/i18n"
	"github.com/JonMunkholm/fyexchange/internal/logging"
	"github.com/JonMunkholm/fyexchange/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "fyexchange",
		Short:         "Import and manage financial-year exchange files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logLevel
			if level == "" {
				level = os.Getenv("LOG_LEVEL")
			}
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), level, "text"))
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default LOG_LEVEL or info)")

	root.AddCommand(
		newImportCmd(),
		newCheckCmd(),
		newCreateCmd(),
		newCloseCmd(),
		newTokenCmd(),
		newMigrateCmd(),
	)

	return root
}

// app is a configured service over PostgreSQL for one command invocation.
type app struct {
	cfg     *config.Config
	pool    *pgxpool.Pool
	service *core.Service
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	catalog, err := i18n.Load(cfg.Locale.Default)
	if err != nil {
		return nil, fmt.Errorf("load message catalog: %w", err)
	}
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:     cfg,
		pool:    pool,
		service: core.NewService(store.NewPostgres(pool), catalog, cfg),
	}, nil
}

func (a *app) Close() {
	a.pool.Close()
}
