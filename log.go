package stitch

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

var (
	slogCtxKey = ctxKey{}
)

// logger returns the *slog.Logger stored in ctx by LoggingContext. If there
// isn't one, everything logged to the returned logger is discarded.
func logger(ctx context.Context) *slog.Logger {
	val, ok := ctx.Value(slogCtxKey).(*slog.Logger)
	if !ok || val == nil {
		return slog.New(noopHandler{})
	}
	return val
}

// LoggingContext returns a copy of ctx that carries logger. Everything stitch
// logs while rendering with that context goes to logger.
func LoggingContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, slogCtxKey, logger)
}

type noopHandler struct{}

func (noopHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return false
}

func (noopHandler) Handle(_ context.Context, _ slog.Record) error {
	return nil
}

func (n noopHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return n
}

func (n noopHandler) WithGroup(_ string) slog.Handler {
	return n
}
