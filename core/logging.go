package core

// Context plumbing for slog, so task bodies can log through the app's
// configured logger without reaching for a global.

import (
	"context"
	"log/slog"
)

// loggerKeyType is unexported to prevent collisions with context keys from
// other packages.
type loggerKeyType struct{}

var loggerKey loggerKeyType

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext extracts the slog.Logger from a context. If no logger
// was embedded it returns the default global logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
