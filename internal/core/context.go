package core

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	requestIDKey contextKey = "request-id"
	callerIDKey  contextKey = "caller-id"
)

// WithRequestID returns a new context with the request ID attached.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithCallerID returns a new context carrying the identity that scopes preference storage.
func WithCallerID(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, callerIDKey, callerID)
}

// GetCallerID retrieves the caller ID from the context.
// Returns empty string if not found.
func GetCallerID(ctx context.Context) string {
	if v := ctx.Value(callerIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
