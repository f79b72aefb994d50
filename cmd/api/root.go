package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inkwell/api/internal/config"
	"inkwell/api/internal/logging"
)

var verbose bool

// Resolved once per invocation in PersistentPreRunE.
var (
	cfg      config.Config
	logger   zerolog.Logger
	closeLog func() error
)

var rootCmd = &cobra.Command{
	Use:   "inkwell",
	Short: "Block-document workspace server",
	Long: `Inkwell serves workspaces of nested block pages over HTTP.
The same binary migrates the database and moves pages in and out as Markdown.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if verbose {
			loaded.LogLevel = "debug"
		}
		cfg = loaded

		l, closer, err := logging.New(logging.Options{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
			Path:   cfg.LogPath,
		})
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		logger, closeLog = l, closer
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			_ = closeLog()
		}
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
