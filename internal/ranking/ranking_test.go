package ranking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgate/internal/cooldown"
	"modelgate/internal/core"
	"modelgate/internal/prefs"
)

func TestScore(t *testing.T) {
	tests := []struct {
		id   string
		want int
	}{
		{"gemini-3-pro", 500},
		{"gemini-2.0-flash-thinking-exp", 450},
		{"gemini-2.5-pro", 400},
		{"gemini-2.5-flash-lite", 380},
		{"gemini-2.0-flash", 300},
		{"gemini-2.0-flash-rc", 320},
		{"gemini-1.5-pro-latest", 205},
		{"gemini-1.5-flash", 200},
		{"gemini-1.0-pro", 100},
		{"gemini-pro", 150},
		{"gemini-flash-latest", 155},
		{"GEMINI-2.5-PRO", 400},
		{"unrelated-model", 0},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.id))
		})
	}
}

func TestScore_BandOrdering(t *testing.T) {
	ordered := []string{"gemini-3-pro", "gemini-2.0-flash-thinking", "gemini-2.5-pro", "gemini-2.0-pro", "gemini-1.5-pro", "gemini-pro", "gemini-1.0-pro"}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, Score(ordered[i-1]), Score(ordered[i]), "%s should outrank %s", ordered[i-1], ordered[i])
	}
}

func TestScore_LiteStaysInItsBand(t *testing.T) {
	pairs := [][2]string{
		{"gemini-3-flash-lite", "gemini-2.0-flash-thinking-exp"},
		{"gemini-2.5-flash-lite", "gemini-2.0-flash-rc"},
		{"gemini-2.0-flash-lite", "gemini-1.5-pro-latest"},
		{"gemini-1.5-flash-lite", "gemini-flash-latest"},
	}
	for _, p := range pairs {
		assert.Greater(t, Score(p[0]), Score(p[1]), "%s should outrank %s", p[0], p[1])
	}
}

func descriptors(ids ...string) []core.ModelDescriptor {
	out := make([]core.ModelDescriptor, 0, len(ids))
	for _, id := range ids {
		out = append(out, core.ModelDescriptor{ID: id, SupportsGeneration: true})
	}
	return out
}

func rankedIDs(ranked []core.RankedModel) []string {
	out := make([]string, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.ID)
	}
	return out
}

func TestRank_TieBreakIsLexicographicAndStable(t *testing.T) {
	models := descriptors("gemini-2.5-pro", "gemini-1.5-pro", "gemini-2.5-flash", "gemini-3-pro")

	first := Rank(context.Background(), models, nil)
	assert.Equal(t, []string{"gemini-3-pro", "gemini-2.5-flash", "gemini-2.5-pro", "gemini-1.5-pro"}, rankedIDs(first))

	reversed := descriptors("gemini-3-pro", "gemini-2.5-flash", "gemini-1.5-pro", "gemini-2.5-pro")
	for i := 0; i < 5; i++ {
		assert.Equal(t, rankedIDs(first), rankedIDs(Rank(context.Background(), reversed, nil)))
	}
}

func TestRank_MarksCooldowns(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	cd := cooldown.NewWithClock(prefs.NewMemoryStoreWithClock(clock), clock)

	until, err := cd.MarkUnavailable(ctx, "gemini-3-pro-001", time.Hour)
	require.NoError(t, err)

	// A and B tie on score; C is lower. B is disabled through its family id.
	ranked := Rank(ctx, descriptors("gemini-2.0-flash", "gemini-3-pro", "gemini-3-flash"), cd)

	require.Equal(t, []string{"gemini-3-flash", "gemini-3-pro", "gemini-2.0-flash"}, rankedIDs(ranked))
	assert.False(t, ranked[0].Disabled)
	assert.True(t, ranked[1].Disabled)
	require.NotNil(t, ranked[1].AvailableAt)
	assert.Equal(t, until, *ranked[1].AvailableAt)
	assert.False(t, ranked[2].Disabled)
	assert.Nil(t, ranked[2].AvailableAt)
}

type brokenAvailability struct{}

func (brokenAvailability) AvailableAt(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, errors.New("store down")
}

func TestRank_LookupErrorLeavesModelEnabled(t *testing.T) {
	ranked := Rank(context.Background(), descriptors("gemini-2.5-pro"), brokenAvailability{})
	require.Len(t, ranked, 1)
	assert.False(t, ranked[0].Disabled)
}

func TestRank_Empty(t *testing.T) {
	ranked := Rank(context.Background(), nil, nil)
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)
}

func TestSelector(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemoryStore()
	s := NewSelector(store, "")

	got, err := s.Selected(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, got, "default when never set")

	// unknown ids are accepted
	require.NoError(t, s.Select(ctx, "not-in-catalog"))
	got, err = s.Selected(ctx)
	require.NoError(t, err)
	assert.Equal(t, "not-in-catalog", got)

	raw, ok, err := store.Get(ctx, SelectionKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "not-in-catalog", raw)

	err = s.Select(ctx, "   ")
	var gwErr *core.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, core.ErrorTypeInvalidRequest, gwErr.Type)
}

func TestSelector_CustomDefault(t *testing.T) {
	got, err := NewSelector(prefs.NewMemoryStore(), "gemini-2.0-flash").Selected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", got)
}
