package ranklog_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/trainriggo/internal/ranklog"
)

func newTestLogger(rank int) (*ranklog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ranklog.New(base, rank), &buf
}

func TestLogger_RankZeroLogs(t *testing.T) {
	logger, buf := newTestLogger(0)
	ctx := context.Background()

	logger.Info(ctx, "hello")

	out := buf.String()
	assert.Contains(t, out, "[rank: 0] hello")
}

func TestLogger_NonZeroRankIsSilent(t *testing.T) {
	logger, buf := newTestLogger(3)
	ctx := context.Background()

	logger.Debug(ctx, "a")
	logger.Info(ctx, "b")
	logger.Warn(ctx, "c")
	logger.Error(ctx, "d")

	assert.Empty(t, buf.String())
	assert.Equal(t, 3, logger.Rank())
}

func TestLogger_SuppressWarnings(t *testing.T) {
	logger, buf := newTestLogger(0)
	ctx := context.Background()

	logger.Warn(ctx, "before")
	logger.SuppressWarnings()
	logger.Warn(ctx, "after")
	logger.Error(ctx, "errors pass")

	out := buf.String()
	assert.Contains(t, out, "before")
	assert.NotContains(t, out, "after")
	assert.Contains(t, out, "errors pass")
}

func TestRankFromEnv(t *testing.T) {
	t.Run("defaults to zero", func(t *testing.T) {
		t.Setenv("RANK", "")
		t.Setenv("LOCAL_RANK", "")
		assert.Equal(t, 0, ranklog.RankFromEnv())
	})

	t.Run("RANK wins over LOCAL_RANK", func(t *testing.T) {
		t.Setenv("RANK", "2")
		t.Setenv("LOCAL_RANK", "5")
		assert.Equal(t, 2, ranklog.RankFromEnv())
	})

	t.Run("falls back to LOCAL_RANK", func(t *testing.T) {
		t.Setenv("RANK", "")
		t.Setenv("LOCAL_RANK", "1")
		assert.Equal(t, 1, ranklog.RankFromEnv())
	})

	t.Run("non-numeric values are ignored", func(t *testing.T) {
		t.Setenv("RANK", "abc")
		t.Setenv("LOCAL_RANK", "")
		require.Equal(t, 0, ranklog.RankFromEnv())
	})
}
