package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"modelgate/internal/core"
	"modelgate/internal/prefs"
)

// DefaultModel is used when a caller has never selected one.
const DefaultModel = "gemini-2.5-flash"

// SelectionKey is the preference key holding the selected model id.
const SelectionKey = "selected_model"

// Selector persists a caller's preferred model.
type Selector struct {
	store        prefs.Store
	defaultModel string
}

// NewSelector creates a selector. An empty defaultModel selects DefaultModel.
func NewSelector(store prefs.Store, defaultModel string) *Selector {
	if defaultModel == "" {
		defaultModel = DefaultModel
	}
	return &Selector{store: store, defaultModel: defaultModel}
}

// Selected returns the stored selection, or the default when none is stored.
func (s *Selector) Selected(ctx context.Context) (string, error) {
	id, ok, err := s.store.Get(ctx, SelectionKey)
	if err != nil {
		return "", fmt.Errorf("read selection: %w", err)
	}
	if !ok || id == "" {
		return s.defaultModel, nil
	}
	return id, nil
}

// Select stores id as the caller's choice. The id is not checked against the
// catalog or cooldowns: selecting an unknown or disabled model is allowed.
func (s *Selector) Select(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.NewInvalidRequestError("model id is required", nil)
	}
	if err := s.store.Set(ctx, SelectionKey, id, 0); err != nil {
		return fmt.Errorf("store selection: %w", err)
	}
	slog.Info("model selected", "model", id, "caller", core.GetCallerID(ctx))
	return nil
}
