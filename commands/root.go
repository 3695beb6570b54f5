package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time.
var Version = "0.1.0"

// NewRootCommand assembles the expense-tracker CLI. The App is constructed
// once in the persistent pre-run so every subcommand shares config and
// lazily opened handles.
func NewRootCommand() *cobra.Command {
	var (
		configDir string
		logLevel  string
		app       *App
	)

	cmd := &cobra.Command{
		Use:   "expense-tracker",
		Short: "Track expenses from your bank notification emails",
		Long: `expense-tracker turns bank, credit-card, UPI, and mutual-fund
notification emails into a local, categorized transaction ledger.

Emails are fetched read-only from Gmail, parsed by format-specific
parsers with a model-backed fallback, categorized, deduplicated, and
stored in a local SQLite database you can list, summarize, export,
and question in plain language.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(logLevel)
			var err error
			app, err = NewApp(configDir, slog.Default())
			if err != nil {
				return err
			}
			cmd.Root().PersistentPostRun = func(*cobra.Command, []string) {
				_ = app.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Config directory (default ~/.expense-tracker)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	appRef := func() *App { return app }
	cmd.AddCommand(
		NewSetupCommand(appRef),
		NewSyncCommand(appRef),
		NewListCommand(appRef),
		NewSummaryCommand(appRef),
		NewReviewCommand(appRef),
		NewRecategorizeCommand(appRef),
		NewRemerchantCommand(appRef),
		NewReparseCommand(appRef),
		NewChatCommand(appRef),
		NewFlagCommand(appRef),
		NewExportCommand(appRef),
		NewInsightsCommand(appRef),
		newVersionCommand(),
	)

	return cmd
}

// Execute runs the CLI, printing a one-line diagnostic and exiting 1 on
// failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func configureLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("expense-tracker version %s\n", Version)
		},
	}
}
