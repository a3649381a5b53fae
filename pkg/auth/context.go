package auth

import (
	"context"
)

// Context keys for authentication data carried on each inbound request.
type contextKey string

const (
	// ContextKeyPrincipal is the context key for the authenticated DC/PDC principal.
	ContextKeyPrincipal contextKey = "principal"
	// ContextKeyRequestID is the context key for the request's correlation ID.
	ContextKeyRequestID contextKey = "request_id"
)

// WithPrincipal adds the authenticated principal to the context. The principal
// is the JWT subject identifying the calling data collector or protocol data
// collector, replacing the caller() identity a canister would see natively.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, principal)
}

// PrincipalFromContext retrieves the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(ContextKeyPrincipal).(string)
	return p, ok
}

// WithRequestID adds a request correlation ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext retrieves the request correlation ID from the context.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyRequestID).(string)
	return id, ok
}
