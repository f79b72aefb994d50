package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"inkwell/api/internal/store"
)

var migrateDryRun bool

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or revert database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := "up"
		if len(args) == 1 {
			direction = args[0]
		}
		ctx := cmd.Context()
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if direction == "down" {
			if migrateDryRun {
				fmt.Fprintln(cmd.OutOrStdout(), "would revert every migration in", cfg.MigrationsDir)
				return nil
			}
			if err := store.RevertMigrations(ctx, db, cfg.MigrationsDir); err != nil {
				return err
			}
			logger.Info().Str("dir", cfg.MigrationsDir).Msg("migrations reverted")
			return nil
		}

		pending, err := store.PendingMigrations(ctx, db, cfg.MigrationsDir)
		if err != nil {
			return err
		}
		if migrateDryRun {
			for _, version := range pending {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			}
			return nil
		}
		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			return err
		}
		logger.Info().Int("applied", len(pending)).Msg("migrations applied")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "List pending migrations without running them")
	rootCmd.AddCommand(migrateCmd)
}
