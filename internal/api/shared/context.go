package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
)

// ContextKey is the type of request-scoped values set by the API layer.
type ContextKey string

const (
	// UserContextKey holds the authenticated *domain.User
	UserContextKey ContextKey = "user"

	// TokenContextKey holds the raw bearer token the user authenticated with
	TokenContextKey ContextKey = "token"

	// TraceIDKey is the key for the trace ID in the request context
	TraceIDKey ContextKey = "traceID"
)

// SetTraceID adds a fresh trace ID to the context.
// Trace IDs correlate log lines with error responses.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, NewTraceID())
}

// GetTraceID retrieves the trace ID from the context, or "" if none is set.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// NewTraceID returns a random 32 character hex identifier.
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// WithUser stores the authenticated user and their token in the context.
func WithUser(ctx context.Context, user *domain.User, token string) context.Context {
	ctx = context.WithValue(ctx, UserContextKey, user)
	return context.WithValue(ctx, TokenContextKey, token)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*domain.User)
	if !ok || user == nil || user.ID == uuid.Nil {
		return nil, false
	}
	return user, true
}

// TokenFromContext returns the raw bearer token of the authenticated request.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(TokenContextKey).(string)
	return token
}
