package logger

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// With stores a logger carrying extra fields in the context. Middleware
// uses it to accumulate trace id and principal fields as a request moves
// through the stack.
func With(ctx context.Context, fields ...any) context.Context {
	return context.WithValue(ctx, contextKey{}, From(ctx).With(fields...))
}

// WithUser tags the context logger with the authenticated principal.
func WithUser(ctx context.Context, userID int64, role string) context.Context {
	return With(ctx, "user_id", userID, "role", role)
}

// From returns the request-scoped logger, falling back to the process
// logger when the context carries none.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return l
	}
	return LoggerWrapper()
}
