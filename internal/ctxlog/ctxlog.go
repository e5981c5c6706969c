// Package ctxlog provides a context key for safely passing a rank-gated
// logger through context.Context.
package ctxlog

import (
	"context"

	"github.com/vk/trainriggo/internal/ranklog"
)

// key is an unexported type to prevent collisions with context keys from other packages.
type key struct{}

// loggerKey is the key for the *ranklog.Logger in a context.Context.
var loggerKey = key{}

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *ranklog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from a context. If no logger is found,
// it returns the env-ranked default so library code stays usable outside
// the wired application.
func FromContext(ctx context.Context) *ranklog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*ranklog.Logger); ok {
		return logger
	}
	return ranklog.Default()
}
