package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgate/config"
	"modelgate/internal/core"
	"modelgate/internal/metrics"
	"modelgate/internal/pkg/llmclient"
)

func gen(id, name string) core.ModelDescriptor {
	return core.ModelDescriptor{ID: id, DisplayName: name, SupportsGeneration: true}
}

func ids(models []core.ModelDescriptor) []string {
	out := make([]string, 0, len(models))
	for _, m := range models {
		out = append(out, m.ID)
	}
	return out
}

func TestFilter_DropsModelsWithoutGeneration(t *testing.T) {
	models := []core.ModelDescriptor{
		gen("gemini-2.5-flash", "Gemini 2.5 Flash"),
		{ID: "gemini-2.5-pro", DisplayName: "Gemini 2.5 Pro", SupportsGeneration: false},
	}

	got := Filter(models, nil)
	assert.Equal(t, []string{"gemini-2.5-flash"}, ids(got))
}

func TestFilter_ExclusionVocabularyIgnoresCase(t *testing.T) {
	models := []core.ModelDescriptor{
		gen("gemini-2.0-flash-EXP", "Gemini"),
		gen("gemini-2.0-flash-exp", "Gemini"),
		gen("gemini-2.0-pro", "Gemini 2.0 Pro Exp"),
		gen("gemini-2.5-flash-preview-tts", "Gemini TTS"),
		gen("gemini-embedding-001", "Embedding"),
		gen("gemini-2.5-flash-image", "Nano Banana"),
		gen("gemini-robotics-er-1.5", "Robotics"),
		gen("gemini-2.5-computer-use", "Computer Use"),
		gen("gemma-3-27b-it", "Gemma 3"),
		gen("gemini-2.5-flash", "Gemini 2.5 Flash"),
		gen("gemini-1.5-pro-002", "Gemini 1.5 Pro"),
	}

	got := Filter(models, DefaultRules())
	assert.Equal(t, []string{"gemini-2.5-flash", "gemini-1.5-pro-002"}, ids(got))
}

func TestRule_Fields(t *testing.T) {
	m := gen("gemini-2.5-pro", "Gemini Experimental Pro")

	assert.False(t, Rule{Substring: "experimental", Field: FieldID}.matches(m))
	assert.True(t, Rule{Substring: "EXPERIMENTAL", Field: FieldDisplayName}.matches(m))
	assert.True(t, Rule{Substring: "experimental", Field: FieldAny}.matches(m))
	assert.True(t, Rule{Substring: "2.5", Field: FieldID}.matches(m))
	assert.False(t, Rule{Substring: "", Field: FieldAny}.matches(m), "empty substring never matches")
}

func TestRulesFromConfig(t *testing.T) {
	assert.Equal(t, DefaultRules(), RulesFromConfig(nil))

	rules := RulesFromConfig([]config.ExclusionRule{{Substring: "flash", Field: "id"}})
	require.Len(t, rules, 1)
	assert.Equal(t, Rule{Substring: "flash", Field: FieldID}, rules[0])

	// a configured vocabulary replaces the default one entirely
	got := Filter([]core.ModelDescriptor{gen("gemini-2.0-flash-exp", ""), gen("gemini-2.5-flash", "")}, rules)
	assert.Empty(t, got)
	got = Filter([]core.ModelDescriptor{gen("gemini-2.0-pro-exp", "")}, rules)
	assert.Len(t, got, 1)
}

func TestTags(t *testing.T) {
	tests := []struct {
		model core.ModelDescriptor
		want  []string
	}{
		{gen("gemini-2.5-flash", "Gemini 2.5 Flash"), nil},
		{gen("gemini-2.5-flash-preview-tts", "Gemini 2.5 Flash Preview TTS"), []string{TagTTS, TagPreview}},
		{gen("gemini-embedding-001", "Gemini Embedding"), []string{TagEmbedding}},
		{gen("gemini-2.0-flash-exp-image-generation", "Gemini 2.0 Flash (Image Generation) Experimental"), []string{TagImage, TagExperimental}},
		{gen("gemini-2.0-flash-live-001", "Gemini 2.0 Flash Live"), []string{TagMultimodal}},
	}

	for _, tt := range tests {
		t.Run(tt.model.ID, func(t *testing.T) {
			assert.Equal(t, tt.want, Tags(tt.model))
		})
	}
}

const pageOne = `{
  "models": [
    {"name": "models/gemini-2.5-flash", "displayName": "Gemini 2.5 Flash", "supportedGenerationMethods": ["generateContent", "countTokens"], "inputTokenLimit": 1048576, "outputTokenLimit": 65536},
    {"name": "models/text-embedding-004", "displayName": "Text Embedding 004", "supportedGenerationMethods": ["embedContent"]},
    {"displayName": "nameless"},
    "garbage",
    {"name": 42, "supportedGenerationMethods": ["generateContent"]}
  ],
  "nextPageToken": "page-2"
}`

const pageTwo = `{
  "models": [
    {"name": "models/gemini-2.0-flash-exp", "displayName": "Gemini 2.0 Flash Experimental", "supportedGenerationMethods": ["generateContent"]},
    {"name": "models/gemini-1.5-pro-002", "displayName": "Gemini 1.5 Pro 002", "supportedGenerationMethods": ["generateContent"]}
  ]
}`

func newCatalogServer(t *testing.T, handler http.HandlerFunc) *llmclient.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return llmclient.New(llmclient.DefaultConfig("gemini", server.URL), nil)
}

func TestFetcher_FollowsPagesAndFilters(t *testing.T) {
	var calls int32
	client := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/models" {
			t.Errorf("path = %s, want /models", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("api key header = %q, want test-key", r.Header.Get("x-goog-api-key"))
		}
		if r.URL.Query().Has("key") {
			t.Errorf("api key leaked into query: %s", r.URL.RawQuery)
		}
		switch r.URL.Query().Get("pageToken") {
		case "":
			_, _ = w.Write([]byte(pageOne))
		case "page-2":
			_, _ = w.Write([]byte(pageTwo))
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	})

	f := NewFetcher(client, "test-key", nil)

	all, err := f.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini-2.5-flash", "text-embedding-004", "gemini-2.0-flash-exp", "gemini-1.5-pro-002"}, ids(all))
	assert.Equal(t, 1048576, all[0].InputTokenLimit)
	assert.True(t, all[0].SupportsGeneration)
	assert.False(t, all[1].SupportsGeneration)

	got := f.Fetch(context.Background())
	assert.Equal(t, []string{"gemini-2.5-flash", "gemini-1.5-pro-002"}, ids(got))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.CatalogModels))
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls), "no caching between fetches")
}

func TestFetcher_StopsOnRepeatedToken(t *testing.T) {
	var calls int32
	client := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"models": [], "nextPageToken": "same"}`))
	})

	_, err := NewFetcher(client, "k", nil).FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetcher_FailsOpen(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
		}},
		{"rate limited", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}},
		{"invalid json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>oops</html>`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(metrics.CatalogFetchFailures)
			f := NewFetcher(newCatalogServer(t, tt.handler), "k", nil)

			got := f.Fetch(context.Background())
			assert.NotNil(t, got)
			assert.Empty(t, got)
			assert.Equal(t, before+1, testutil.ToFloat64(metrics.CatalogFetchFailures))
		})
	}
}
