// Package main is the entry point for the modelgate server and CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"modelgate/config"
	"modelgate/internal/app"
	"modelgate/internal/logging"
	"modelgate/internal/prefs"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var callerID string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "modelgate",
	Short: "Gemini model gateway with per-caller selection and rate-limit cooldowns",
	Long: `modelgate lists the upstream Gemini catalog, ranks it, remembers each caller's
model choice, and disables a model family for an hour after the upstream rate limits it.

Examples:
  modelgate serve
  modelgate status --caller alice
  modelgate select gemini-2.5-pro --caller alice
  modelgate generate "Name three rivers" --shape array`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: validateCaller,
}

func validateCaller(_ *cobra.Command, _ []string) error {
	if err := prefs.ValidateCallerID(callerID); err != nil {
		return fmt.Errorf("invalid --caller %q: %w", callerID, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(generateCmd)

	rootCmd.PersistentFlags().StringVar(&callerID, "caller", "cli", "Caller id that scopes stored preferences")
}

// loadApp reads configuration, installs the logger, and builds the application.
// Logs go to stderr so command output on stdout stays machine readable.
func loadApp(ctx context.Context) (*config.Config, *app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Format, cfg.Logging.Level, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	slog.SetDefault(logger)

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, a, nil
}
