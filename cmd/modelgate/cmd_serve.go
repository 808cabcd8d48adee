package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	slog.Info("starting modelgate", "version", version)

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()

		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	startErr := a.Start(":" + cfg.Server.Port)
	stop()
	<-done
	if startErr != nil {
		slog.Error("server failed", "error", startErr)
		os.Exit(1)
	}
	return nil
}
