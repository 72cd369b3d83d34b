package main

import (
	"github.com/JonMunkholm/fyexchange/internal/config"
	"github.com/JonMunkholm/fyexchange/internal/database"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long:  "Migrate applies every pending migration, or rolls back the last N with --down N.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if down > 0 {
				return database.MigrateDown(cfg.Database.URL, down)
			}
			return database.Migrate(cfg.Database.URL)
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "Roll back this many migrations instead of applying")

	return cmd
}
