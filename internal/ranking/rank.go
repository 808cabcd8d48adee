package ranking

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"modelgate/internal/catalog"
	"modelgate/internal/core"
)

// Availability reports cooldown state for a model id.
type Availability interface {
	AvailableAt(ctx context.Context, id string) (until time.Time, active bool, err error)
}

// Rank scores models, marks those on cooldown as disabled, and sorts by score
// descending with ties in ascending id order.
func Rank(ctx context.Context, models []core.ModelDescriptor, cooldowns Availability) []core.RankedModel {
	ranked := make([]core.RankedModel, 0, len(models))

	for _, m := range models {
		rm := core.RankedModel{
			ModelDescriptor: m,
			Score:           Score(m.ID),
			Tags:            catalog.Tags(m),
		}

		if cooldowns != nil {
			until, active, err := cooldowns.AvailableAt(ctx, m.ID)
			if err != nil {
				slog.Warn("cooldown lookup failed", "model", m.ID, "error", err)
			}
			if active {
				rm.Disabled = true
				if !until.IsZero() {
					rm.AvailableAt = &until
				}
			}
		}

		ranked = append(ranked, rm)
	}

	slices.SortStableFunc(ranked, func(a, b core.RankedModel) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return ranked
}
