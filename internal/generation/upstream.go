package generation

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"google.golang.org/genai"

	"modelgate/internal/core"
	"modelgate/internal/pkg/llmclient"
)

// Upstream performs a single text generation call.
type Upstream interface {
	Generate(ctx context.Context, model, apiKey, prompt string) (string, error)
}

// RESTUpstream calls the native generateContent endpoint through llmclient.
type RESTUpstream struct {
	client *llmclient.Client
}

// NewRESTUpstream creates an upstream over client, whose base URL is the API root
// (e.g. https://generativelanguage.googleapis.com/v1beta).
func NewRESTUpstream(client *llmclient.Client) *RESTUpstream {
	return &RESTUpstream{client: client}
}

type restPart struct {
	Text string `json:"text"`
}

type restContent struct {
	Parts []restPart `json:"parts"`
}

type restRequest struct {
	Contents []restContent `json:"contents"`
}

// Generate posts prompt to model and returns the concatenated candidate text.
func (u *RESTUpstream) Generate(ctx context.Context, model, apiKey, prompt string) (string, error) {
	resp, err := u.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/models/" + url.PathEscape(model) + ":generateContent",
		Headers:  map[string]string{llmclient.APIKeyHeader: apiKey},
		Body: restRequest{
			Contents: []restContent{{Parts: []restPart{{Text: prompt}}}},
		},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, part := range gjson.GetBytes(resp.Body, "candidates.0.content.parts.#.text").Array() {
		sb.WriteString(part.String())
	}
	if sb.Len() > 0 {
		return sb.String(), nil
	}

	if reason := gjson.GetBytes(resp.Body, "promptFeedback.blockReason").String(); reason != "" {
		return "", core.NewProviderError("gemini", http.StatusBadGateway, "prompt blocked: "+reason, nil)
	}
	if reason := gjson.GetBytes(resp.Body, "candidates.0.finishReason").String(); reason != "" {
		return "", core.NewProviderError("gemini", http.StatusBadGateway, "empty response (finish reason "+reason+")", nil)
	}
	return "", core.NewProviderError("gemini", http.StatusBadGateway, "empty response", nil)
}

// GenAIUpstream calls the API through the official SDK.
type GenAIUpstream struct {
	httpOptions genai.HTTPOptions
	httpClient  *http.Client
}

// NewGenAIUpstream creates an SDK-backed upstream. baseURL uses the same form as the
// REST upstream; a trailing API version segment becomes the SDK's APIVersion.
// An empty baseURL keeps the SDK defaults.
func NewGenAIUpstream(baseURL string, httpClient *http.Client) *GenAIUpstream {
	return &GenAIUpstream{httpOptions: sdkHTTPOptions(baseURL), httpClient: httpClient}
}

func sdkHTTPOptions(baseURL string) genai.HTTPOptions {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Host == "" {
		return genai.HTTPOptions{}
	}

	var opts genai.HTTPOptions
	if i := strings.LastIndex(u.Path, "/"); i >= 0 && strings.HasPrefix(u.Path[i+1:], "v1") {
		opts.APIVersion = u.Path[i+1:]
		u.Path = u.Path[:i]
	}
	opts.BaseURL = strings.TrimRight(u.String(), "/") + "/"
	return opts
}

// Generate sends prompt with a client bound to apiKey. The client is built per call
// because the credential can change per request.
func (u *GenAIUpstream) Generate(ctx context.Context, model, apiKey, prompt string) (string, error) {
	cfg := &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  u.httpClient,
		HTTPOptions: u.httpOptions,
	}

	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return "", core.NewProviderError("gemini", http.StatusBadGateway, "failed to create genai client: "+err.Error(), err)
	}

	resp, err := cli.Models.GenerateContent(ctx, model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", core.NewProviderError("gemini", http.StatusBadGateway, "empty response", nil)
	}
	return text, nil
}
