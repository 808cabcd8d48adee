// Package generation performs one upstream text generation call per request and
// classifies its outcome.
//
// A rate-limited call puts the model (and its version family) on cooldown in the
// caller's preference store and returns a rate_limit_error. The wrapper never
// retries and never switches models on the caller's behalf.
package generation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"modelgate/internal/cooldown"
	"modelgate/internal/core"
	"modelgate/internal/metrics"
	"modelgate/internal/ranking"
)

// Cooldowns records rate-limited models.
type Cooldowns interface {
	MarkUnavailable(ctx context.Context, id string, d time.Duration) (time.Time, error)
}

// Selection supplies the caller's current model id.
type Selection interface {
	Selected(ctx context.Context) (string, error)
}

// Config holds process-wide generation defaults.
type Config struct {
	// DefaultModel is used when neither an override nor a selection exists.
	DefaultModel string
	// APIKey is the default upstream credential.
	APIKey string
	// CooldownDuration defaults to cooldown.DefaultDuration.
	CooldownDuration time.Duration
}

// Options are per-call overrides.
type Options struct {
	Model  string
	APIKey string
}

// Result is a successful generation.
type Result struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

// Wrapper resolves the model and credential, calls the upstream once, and records
// cooldowns for rate-limited calls.
type Wrapper struct {
	upstream  Upstream
	cooldowns Cooldowns
	selection Selection
	cfg       Config
}

// NewWrapper creates a generation wrapper. selection may be nil.
func NewWrapper(upstream Upstream, cooldowns Cooldowns, selection Selection, cfg Config) *Wrapper {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = ranking.DefaultModel
	}
	if cfg.CooldownDuration <= 0 {
		cfg.CooldownDuration = cooldown.DefaultDuration
	}
	return &Wrapper{upstream: upstream, cooldowns: cooldowns, selection: selection, cfg: cfg}
}

// ResolveModel returns the model a call with opts would target.
func (w *Wrapper) ResolveModel(ctx context.Context, opts Options) string {
	if m := strings.TrimSpace(opts.Model); m != "" {
		return m
	}
	if w.selection != nil {
		selected, err := w.selection.Selected(ctx)
		if err != nil {
			slog.Warn("selection lookup failed, using default model", "error", err)
		} else if selected != "" {
			return selected
		}
	}
	return w.cfg.DefaultModel
}

// Generate performs one call. On success the result is non-nil. Failures are
// *core.GatewayError values: rate_limit_error (with Model set) or generation_error.
func (w *Wrapper) Generate(ctx context.Context, prompt string, opts Options) (*Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, core.NewInvalidRequestError("prompt is required", nil)
	}

	model := w.ResolveModel(ctx, opts)

	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = w.cfg.APIKey
	}
	if apiKey == "" {
		metrics.GenerationTotal.WithLabelValues(string(OtherError)).Inc()
		return nil, core.NewGenerationError(model, "no upstream API key configured", nil)
	}

	text, err := w.upstream.Generate(ctx, model, apiKey, prompt)
	outcome := Classify(err)
	metrics.GenerationTotal.WithLabelValues(string(outcome)).Inc()

	switch outcome {
	case Success:
		return &Result{Model: model, Text: text}, nil
	case RateLimited:
		w.recordCooldown(ctx, model)
		rl := core.NewRateLimitError("gemini", errorMessage(err))
		rl.Model = model
		rl.Err = err
		return nil, rl
	default:
		slog.Error("generation failed", "model", model, "error", errorMessage(err), "request_id", core.GetRequestID(ctx))
		return nil, core.NewGenerationError(model, errorMessage(err), err)
	}
}

func (w *Wrapper) recordCooldown(ctx context.Context, model string) {
	if w.cooldowns == nil {
		return
	}
	until, err := w.cooldowns.MarkUnavailable(ctx, model, w.cfg.CooldownDuration)
	if err != nil {
		slog.Error("failed to record cooldown", "model", model, "error", err)
		return
	}
	metrics.CooldownsRecorded.Inc()
	slog.Warn("model rate limited",
		"model", model,
		"family", cooldown.BaseFamilyID(model),
		"available_at", until,
		"caller", core.GetCallerID(ctx),
	)
}
