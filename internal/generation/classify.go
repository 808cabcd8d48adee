package generation

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strings"

	"google.golang.org/genai"

	"modelgate/internal/core"
	"modelgate/internal/metrics"
)

// Outcome is the classification of one generation call.
type Outcome string

const (
	Success     Outcome = metrics.OutcomeSuccess
	RateLimited Outcome = metrics.OutcomeRateLimited
	OtherError  Outcome = metrics.OutcomeError
)

// rateLimitPattern is matched against the lowercased error message. The status code
// must stand alone so token counts like "14290" do not match.
var rateLimitPattern = regexp.MustCompile(`\b429\b|resource[_ ]exhausted|quota exceeded|exceeded your current quota|rate limit|too many requests`)

// Classify maps a generation error to its outcome. Timeouts are never rate limits.
func Classify(err error) Outcome {
	if err == nil {
		return Success
	}
	if isTimeout(err) {
		return OtherError
	}

	var gwErr *core.GatewayError
	if errors.As(err, &gwErr) {
		if gwErr.Type == core.ErrorTypeRateLimit || gwErr.StatusCode == http.StatusTooManyRequests {
			return RateLimited
		}
	}
	if code, ok := apiErrorCode(err); ok && code == http.StatusTooManyRequests {
		return RateLimited
	}

	if rateLimitPattern.MatchString(strings.ToLower(err.Error())) {
		return RateLimited
	}
	return OtherError
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// apiErrorCode extracts the HTTP status from an SDK error.
func apiErrorCode(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}

// errorMessage returns the message surfaced to callers for err.
func errorMessage(err error) string {
	var gwErr *core.GatewayError
	if errors.As(err, &gwErr) && gwErr.Message != "" {
		return gwErr.Message
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return sdkMessage(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return sdkMessage(*apiErrPtr)
	}
	return err.Error()
}

func sdkMessage(e genai.APIError) string {
	if e.Status != "" {
		return e.Status + ": " + e.Message
	}
	return e.Message
}
