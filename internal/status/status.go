// Package status combines the catalog, the caller's selection, and cooldowns into
// one read-only availability report.
package status

import (
	"context"
	"time"

	"modelgate/internal/core"
	"modelgate/internal/ranking"
)

// Catalog supplies the filtered model listing.
type Catalog interface {
	Fetch(ctx context.Context) []core.ModelDescriptor
}

// Selection supplies the caller's current model id.
type Selection interface {
	Selected(ctx context.Context) (string, error)
}

// Report is the result of Aggregator.Status.
type Report struct {
	// AllExhausted is true when the catalog is non-empty and every model is disabled.
	AllExhausted bool `json:"all_exhausted"`
	// CurrentAvailable is true unless the selected model is listed and disabled.
	CurrentAvailable bool               `json:"current_available"`
	SelectedID       string             `json:"selected_id"`
	Models           []core.RankedModel `json:"models"`
}

// Aggregator builds status reports. It has no side effects and is safe to poll.
type Aggregator struct {
	catalog   Catalog
	selection Selection
	cooldowns ranking.Availability
}

// New creates an aggregator.
func New(catalog Catalog, selection Selection, cooldowns ranking.Availability) *Aggregator {
	return &Aggregator{catalog: catalog, selection: selection, cooldowns: cooldowns}
}

// Status fetches the catalog fresh and evaluates cooldowns against the current time.
func (a *Aggregator) Status(ctx context.Context) (*Report, error) {
	selected, err := a.selection.Selected(ctx)
	if err != nil {
		return nil, err
	}

	ranked := ranking.Rank(ctx, a.catalog.Fetch(ctx), a.cooldowns)

	report := &Report{
		AllExhausted:     len(ranked) > 0,
		CurrentAvailable: true,
		SelectedID:       selected,
		Models:           ranked,
	}
	for _, m := range ranked {
		if !m.Disabled {
			report.AllExhausted = false
		}
		if m.ID == selected && m.Disabled {
			report.CurrentAvailable = false
		}
	}
	return report, nil
}

// NextAvailable returns the earliest cooldown expiry among disabled models, or the
// zero time when none is known.
func (r *Report) NextAvailable() time.Time {
	var next time.Time
	for _, m := range r.Models {
		if m.AvailableAt == nil {
			continue
		}
		if next.IsZero() || m.AvailableAt.Before(next) {
			next = *m.AvailableAt
		}
	}
	return next
}
