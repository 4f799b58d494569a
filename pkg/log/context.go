package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithCaller returns a context whose logger carries the authenticated caller.
func WithCaller(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	l := Ctx(ctx)
	return WithLogger(ctx, l.With().Str(FieldCallerID, userID).Logger())
}

// Ctx retrieves the logger from the context, falling back to the global one.
func Ctx(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}
