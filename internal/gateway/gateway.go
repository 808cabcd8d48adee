// Package gateway binds the model selection, cooldown, status, and generation
// components to one caller's preference store.
package gateway

import (
	"context"
	"time"

	"modelgate/internal/cooldown"
	"modelgate/internal/generation"
	"modelgate/internal/prefs"
	"modelgate/internal/ranking"
	"modelgate/internal/status"
	"modelgate/internal/structured"
)

// Config holds process-wide gateway settings.
type Config struct {
	DefaultModel     string
	APIKey           string
	CooldownDuration time.Duration
}

// Service holds the stateless, shared parts of the gateway. All per-caller state
// lives in the preference store handed to Session.
type Service struct {
	catalog  status.Catalog
	upstream generation.Upstream
	cfg      Config
	now      func() time.Time
}

// NewService creates a gateway service.
func NewService(catalog status.Catalog, upstream generation.Upstream, cfg Config) *Service {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = ranking.DefaultModel
	}
	if cfg.CooldownDuration <= 0 {
		cfg.CooldownDuration = cooldown.DefaultDuration
	}
	return &Service{catalog: catalog, upstream: upstream, cfg: cfg, now: time.Now}
}

// DefaultModel returns the fallback model id.
func (s *Service) DefaultModel() string {
	return s.cfg.DefaultModel
}

// Session binds the gateway to store, typically prefs.Scope(shared, callerID).
// A session is cheap and meant to live for one request.
func (s *Service) Session(store prefs.Store) *Session {
	cooldowns := cooldown.NewWithClock(store, s.now)
	selector := ranking.NewSelector(store, s.cfg.DefaultModel)

	return &Session{
		selector:   selector,
		cooldowns:  cooldowns,
		aggregator: status.New(s.catalog, selector, cooldowns),
		wrapper: generation.NewWrapper(s.upstream, cooldowns, selector, generation.Config{
			DefaultModel:     s.cfg.DefaultModel,
			APIKey:           s.cfg.APIKey,
			CooldownDuration: s.cfg.CooldownDuration,
		}),
	}
}

// Session is the per-caller view of the gateway.
type Session struct {
	selector   *ranking.Selector
	cooldowns  *cooldown.Store
	aggregator *status.Aggregator
	wrapper    *generation.Wrapper
}

// Status reports availability of every catalog model for this caller.
func (s *Session) Status(ctx context.Context) (*status.Report, error) {
	return s.aggregator.Status(ctx)
}

// Selected returns this caller's model id.
func (s *Session) Selected(ctx context.Context) (string, error) {
	return s.selector.Selected(ctx)
}

// Select stores this caller's model id.
func (s *Session) Select(ctx context.Context, id string) error {
	return s.selector.Select(ctx, id)
}

// IsUnavailable reports whether id is on cooldown for this caller.
func (s *Session) IsUnavailable(ctx context.Context, id string) (bool, error) {
	return s.cooldowns.IsUnavailable(ctx, id)
}

// Generate performs one generation call for this caller.
func (s *Session) Generate(ctx context.Context, prompt string, opts generation.Options) (*generation.Result, error) {
	return s.wrapper.Generate(ctx, prompt, opts)
}

// GenerateInto generates and parses the reply into T. The returned model id is set
// whenever the call reached the upstream.
func GenerateInto[T any](ctx context.Context, s *Session, prompt string, opts generation.Options, shape structured.Shape, validate func(T) bool) (T, string, error) {
	var zero T

	res, err := s.Generate(ctx, prompt, opts)
	if err != nil {
		return zero, "", err
	}

	value, err := structured.Parse(res.Text, shape, validate)
	if err != nil {
		return zero, res.Model, err
	}
	return value, res.Model, nil
}
