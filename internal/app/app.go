// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the modelgate server and CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"modelgate/config"
	"modelgate/internal/catalog"
	"modelgate/internal/gateway"
	"modelgate/internal/generation"
	"modelgate/internal/httpclient"
	"modelgate/internal/pkg/llmclient"
	"modelgate/internal/prefs"
	"modelgate/internal/server"
)

const (
	providerName = "gemini"
	userAgent    = "modelgate"
)

// App represents the main application with all its dependencies.
type App struct {
	config  *config.Config
	prefs   *prefs.Result
	service *gateway.Service
	server  *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is required")
	}

	prefsResult, err := prefs.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize preference store: %w", err)
	}

	app := &App{
		config: cfg,
		prefs:  prefsResult,
	}

	httpClient := httpclient.NewDefaultHTTPClient()
	clientCfg := llmclient.DefaultConfig(providerName, cfg.Gemini.BaseURL)
	clientCfg.RequestsPerSecond = cfg.Gemini.RequestsPerSecond
	client := llmclient.NewWithHTTPClient(httpClient, clientCfg, func(req *http.Request) {
		req.Header.Set("User-Agent", userAgent)
	})

	fetcher := catalog.NewFetcher(client, cfg.Gemini.APIKey, catalog.RulesFromConfig(cfg.Catalog.Exclusions))

	var upstream generation.Upstream
	switch cfg.Gemini.Backend {
	case config.BackendGenAI:
		upstream = generation.NewGenAIUpstream(cfg.Gemini.BaseURL, httpClient)
	default:
		upstream = generation.NewRESTUpstream(client)
	}

	app.service = gateway.NewService(fetcher, upstream, gateway.Config{
		DefaultModel: cfg.Gemini.DefaultModel,
		APIKey:       cfg.Gemini.APIKey,
	})

	app.logStartupInfo()

	app.server = server.New(app.service, prefsResult.Store, &server.Config{
		MasterKey:       cfg.Server.MasterKey,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		BodySizeLimit:   cfg.Server.BodySizeLimit,
	})

	return app, nil
}

// Session returns the gateway bound to callerID's slice of the preference store.
func (a *App) Session(callerID string) *gateway.Session {
	return a.service.Session(prefs.Scope(a.prefs.Store, callerID))
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}
	slog.Info("server stopped gracefully")
	return nil
}

// Shutdown stops the HTTP server, then closes the preference store.
// Shutdown is idempotent; after the first call, subsequent calls are no-ops.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Debug("shutting down application")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if a.prefs != nil {
		if err := a.prefs.Close(); err != nil {
			slog.Error("preference store close error", "error", err)
			errs = append(errs, fmt.Errorf("prefs close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	if cfg.Server.MasterKey == "" {
		slog.Warn("MODELGATE_MASTER_KEY not set, HTTP API is unauthenticated")
	} else {
		slog.Debug("authentication enabled", "mode", "master_key")
	}

	if cfg.Gemini.APIKey == "" {
		slog.Warn("GEMINI_API_KEY not set, catalog listing will be empty and generation requires a per-request key")
	}

	slog.Debug("gateway configured",
		"generation_backend", cfg.Gemini.Backend,
		"default_model", cfg.Gemini.DefaultModel,
		"prefs_backend", cfg.Prefs.Backend,
		"upstream_rps", cfg.Gemini.RequestsPerSecond,
		"custom_rules", cfg.Catalog.Exclusions != nil,
		"metrics_enabled", cfg.Metrics.Enabled,
	)
}
