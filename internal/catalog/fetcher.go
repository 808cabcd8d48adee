// Package catalog lists upstream model variants and removes the ones this gateway
// cannot use.
//
// The listing is never cached: every Fetch goes to the upstream endpoint, so callers
// always see live availability. Fetch fails open; an error yields an empty list,
// which callers must read as "no information", not "zero models".
package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"modelgate/internal/core"
	"modelgate/internal/metrics"
	"modelgate/internal/pkg/llmclient"
)

const (
	defaultPageSize = 100
	maxPages        = 20
)

// Fetcher reads the upstream model listing.
type Fetcher struct {
	client   *llmclient.Client
	apiKey   string
	rules    []Rule
	pageSize int
}

// NewFetcher creates a fetcher. A nil rules slice selects DefaultRules.
func NewFetcher(client *llmclient.Client, apiKey string, rules []Rule) *Fetcher {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Fetcher{
		client:   client,
		apiKey:   apiKey,
		rules:    rules,
		pageSize: defaultPageSize,
	}
}

func (f *Fetcher) headers() map[string]string {
	if f.apiKey == "" {
		return nil
	}
	return map[string]string{llmclient.APIKeyHeader: f.apiKey}
}

// Fetch returns the filtered catalog, or an empty list if the listing failed.
func (f *Fetcher) Fetch(ctx context.Context) []core.ModelDescriptor {
	all, err := f.FetchAll(ctx)
	if err != nil {
		metrics.CatalogFetchFailures.Inc()
		slog.Warn("catalog fetch failed", "error", err)
		return []core.ModelDescriptor{}
	}

	filtered := Filter(all, f.rules)
	metrics.CatalogModels.Set(float64(len(filtered)))
	return filtered
}

// FetchAll returns every well-formed upstream entry, unfiltered, following pagination.
func (f *Fetcher) FetchAll(ctx context.Context) ([]core.ModelDescriptor, error) {
	var (
		models []core.ModelDescriptor
		token  string
		seen   = map[string]bool{}
	)

	for page := 0; page < maxPages; page++ {
		query := url.Values{}
		query.Set("pageSize", strconv.Itoa(f.pageSize))
		if token != "" {
			query.Set("pageToken", token)
		}

		resp, err := f.client.DoRaw(ctx, llmclient.Request{
			Method:   http.MethodGet,
			Endpoint: "/models",
			Query:    query,
			Headers:  f.headers(),
		})
		if err != nil {
			return nil, err
		}
		if !gjson.ValidBytes(resp.Body) {
			return nil, core.NewProviderError("gemini", http.StatusBadGateway, "model listing is not valid JSON", nil)
		}

		models = append(models, parseModels(resp.Body)...)

		token = gjson.GetBytes(resp.Body, "nextPageToken").String()
		if token == "" || seen[token] {
			break
		}
		seen[token] = true
	}

	return models, nil
}

// parseModels decodes the "models" array, skipping entries without a usable name.
func parseModels(body []byte) []core.ModelDescriptor {
	var out []core.ModelDescriptor

	gjson.GetBytes(body, "models").ForEach(func(_, entry gjson.Result) bool {
		if !entry.IsObject() {
			return true
		}
		name := entry.Get("name")
		if name.Type != gjson.String {
			return true
		}
		id := strings.TrimPrefix(strings.TrimSpace(name.String()), "models/")
		if id == "" {
			return true
		}

		desc := core.ModelDescriptor{
			ID:               id,
			DisplayName:      entry.Get("displayName").String(),
			InputTokenLimit:  int(entry.Get("inputTokenLimit").Int()),
			OutputTokenLimit: int(entry.Get("outputTokenLimit").Int()),
		}
		entry.Get("supportedGenerationMethods").ForEach(func(_, method gjson.Result) bool {
			if method.String() == "generateContent" {
				desc.SupportsGeneration = true
				return false
			}
			return true
		})

		out = append(out, desc)
		return true
	})

	return out
}
