// Package ranklog provides a process-rank-aware logger for multi-process
// training runs. Every call is a silent no-op on all but the rank-zero
// process, so code shared across worker processes logs exactly once.
//
// The rank is injected at construction rather than read from ambient global
// state, which keeps the gating testable.
package ranklog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"
)

// Logger wraps a slog.Logger with a fixed process rank.
type Logger struct {
	base         *slog.Logger
	rank         int
	suppressWarn atomic.Bool
}

// New creates a rank-gated logger over base.
func New(base *slog.Logger, rank int) *Logger {
	return &Logger{base: base, rank: rank}
}

// RankFromEnv resolves the process rank the way distributed launchers
// communicate it: RANK first, then LOCAL_RANK, defaulting to zero.
func RankFromEnv() int {
	for _, key := range []string{"RANK", "LOCAL_RANK"} {
		if v := os.Getenv(key); v != "" {
			if rank, err := strconv.Atoi(v); err == nil {
				return rank
			}
		}
	}
	return 0
}

// Default returns a rank-gated logger over slog's default logger, ranked
// from the environment.
func Default() *Logger {
	return New(slog.Default(), RankFromEnv())
}

// Rank returns the rank the logger was constructed with.
func (l *Logger) Rank() int { return l.rank }

// SuppressWarnings drops warn-level messages from now on. Used by the
// extras.ignore_warnings config switch.
func (l *Logger) SuppressWarnings() { l.suppressWarn.Store(true) }

// Log forwards the message to the underlying logger with a rank prefix.
// On non-zero ranks it returns before any formatting or I/O happens.
func (l *Logger) Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if l.rank != 0 {
		return
	}
	if !l.base.Enabled(ctx, level) {
		return
	}
	if level == slog.LevelWarn && l.suppressWarn.Load() {
		return
	}
	l.base.Log(ctx, level, fmt.Sprintf("[rank: %d] %s", l.rank, msg), args...)
}

// Debug logs at debug level on the rank-zero process.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelDebug, msg, args...)
}

// Info logs at info level on the rank-zero process.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelInfo, msg, args...)
}

// Warn logs at warn level on the rank-zero process.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelWarn, msg, args...)
}

// Error logs at error level on the rank-zero process.
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelError, msg, args...)
}
