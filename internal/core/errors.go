// Package core provides core types and errors for the model gateway.
package core

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeProvider indicates an upstream provider error (5xx)
	ErrorTypeProvider ErrorType = "provider_error"
	// ErrorTypeRateLimit indicates the upstream rejected the call for rate or quota reasons
	ErrorTypeRateLimit ErrorType = "rate_limit_error"
	// ErrorTypeGeneration indicates any other failed generation call
	ErrorTypeGeneration ErrorType = "generation_error"
	// ErrorTypeMalformedOutput indicates the call succeeded but its text held no usable payload
	ErrorTypeMalformedOutput ErrorType = "malformed_output_error"
	// ErrorTypeInvalidRequest indicates a client error (4xx)
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeAuthentication indicates an authentication error (401)
	ErrorTypeAuthentication ErrorType = "authentication_error"
)

// GatewayError is the base error type for all gateway errors
type GatewayError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Provider   string    `json:"provider,omitempty"`
	// Model is the variant the failed call targeted, if any.
	Model string `json:"model,omitempty"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the HTTP status code the gateway answers with for this error.
// Upstream status codes are not echoed back: a 500 from the provider becomes a 502 here.
func (e *GatewayError) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeMalformedOutput:
		return http.StatusUnprocessableEntity
	case ErrorTypeInvalidRequest:
		if e.StatusCode >= 400 && e.StatusCode < 500 {
			return e.StatusCode
		}
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeProvider, ErrorTypeGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map
func (e *GatewayError) ToJSON() map[string]interface{} {
	body := map[string]interface{}{
		"type":    e.Type,
		"message": e.Message,
	}
	if e.Model != "" {
		body["model"] = e.Model
	}
	return map[string]interface{}{
		"error": body,
	}
}

// NewProviderError creates a new provider error (upstream 5xx)
func NewProviderError(provider string, statusCode int, message string, err error) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeProvider,
		Message:    message,
		StatusCode: statusCode,
		Provider:   provider,
		Err:        err,
	}
}

// NewRateLimitError creates a new rate limit error (429)
func NewRateLimitError(provider string, message string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeRateLimit,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		Provider:   provider,
	}
}

// NewGenerationError creates an error for a failed generation call that was not rate limited.
func NewGenerationError(model, message string, err error) *GatewayError {
	return &GatewayError{
		Type:    ErrorTypeGeneration,
		Message: message,
		Model:   model,
		Err:     err,
	}
}

// NewMalformedOutputError creates an error for model output that could not be parsed or validated.
func NewMalformedOutputError(message string, err error) *GatewayError {
	return &GatewayError{
		Type:    ErrorTypeMalformedOutput,
		Message: message,
		Err:     err,
	}
}

// NewInvalidRequestError creates a new invalid request error (400)
func NewInvalidRequestError(message string, err error) *GatewayError {
	return NewInvalidRequestErrorWithStatus(http.StatusBadRequest, message, err)
}

// NewInvalidRequestErrorWithStatus creates a new invalid request error with a specific status code
func NewInvalidRequestErrorWithStatus(statusCode int, message string, err error) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// NewAuthenticationError creates a new authentication error (401)
func NewAuthenticationError(provider string, message string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Provider:   provider,
	}
}

// IsRateLimit reports whether err is a rate limit error and, if so, which model it concerns.
func IsRateLimit(err error) (string, bool) {
	var gatewayErr *GatewayError
	if errors.As(err, &gatewayErr) && gatewayErr.Type == ErrorTypeRateLimit {
		return gatewayErr.Model, true
	}
	return "", false
}

// ParseProviderError parses an error response from a provider and returns an appropriate GatewayError.
//
// Google APIs answer with {"error": {"code": 429, "message": "...", "status": "RESOURCE_EXHAUSTED"}};
// OpenAI-style bodies carry only error.message. Bodies that are not JSON are used verbatim.
func ParseProviderError(provider string, statusCode int, body []byte, originalErr error) *GatewayError {
	message := string(body)
	if gjson.ValidBytes(body) {
		if m := gjson.GetBytes(body, "error.message"); m.Exists() && m.String() != "" {
			message = m.String()
		}
		if s := gjson.GetBytes(body, "error.status"); s.Exists() && s.String() != "" {
			message = s.String() + ": " + message
		}
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return NewAuthenticationError(provider, message)
	case statusCode == http.StatusTooManyRequests:
		return NewRateLimitError(provider, message)
	case statusCode >= 400 && statusCode < 500:
		err := NewInvalidRequestErrorWithStatus(statusCode, message, originalErr)
		err.Provider = provider
		return err
	default:
		return NewProviderError(provider, statusCode, message, originalErr)
	}
}
