package task_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/ctxlog"
	"github.com/vk/trainriggo/internal/ranklog"
	"github.com/vk/trainriggo/internal/task"
)

func attr(t *testing.T, name, src string) *config.Node {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), "expression parsing failed: %s", diags.Error())
	return config.NewAttr(name, expr, src)
}

// loggedContext returns a context carrying a rank-zero logger that writes
// to the returned buffer.
func loggedContext(rank int) (context.Context, *bytes.Buffer) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), ranklog.New(base, rank))
	return ctx, &buf
}

func pathsTree(t *testing.T, outputDir string) *config.Tree {
	t.Helper()
	return config.NewTree(config.NewMapping("",
		config.NewMapping("paths",
			attr(t, "output_dir", `"`+outputDir+`"`),
		),
	))
}

func TestWithGuard_Success(t *testing.T) {
	ctx, buf := loggedContext(0)
	cfg := pathsTree(t, "/tmp/run-7")

	fn := task.WithGuard(func(ctx context.Context, cfg *config.Tree) (component.Metrics, *component.ObjectDict, error) {
		return component.Metrics{"train/loss": component.Box(1)}, nil, nil
	})

	metrics, _, err := fn(ctx, cfg)
	require.NoError(t, err)
	assert.Contains(t, metrics, "train/loss")
	assert.Contains(t, buf.String(), "Output dir: /tmp/run-7")
	assert.NotContains(t, buf.String(), "Task failed")
}

func TestWithGuard_ErrorIsLoggedThenReturned(t *testing.T) {
	ctx, buf := loggedContext(0)
	cfg := pathsTree(t, "/tmp/run-8")
	boom := errors.New("data module exploded")

	fn := task.WithGuard(func(ctx context.Context, cfg *config.Tree) (component.Metrics, *component.ObjectDict, error) {
		return nil, nil, boom
	})

	_, _, err := fn(ctx, cfg)
	require.ErrorIs(t, err, boom)

	out := buf.String()
	failedAt := strings.Index(out, "Task failed: data module exploded")
	outputAt := strings.Index(out, "Output dir: /tmp/run-8")
	require.GreaterOrEqual(t, failedAt, 0)
	require.GreaterOrEqual(t, outputAt, 0)
	assert.Less(t, failedAt, outputAt, "failure must be logged before the output-dir breadcrumb")
}

func TestWithGuard_OutputDirLoggedOnPanic(t *testing.T) {
	ctx, buf := loggedContext(0)
	cfg := pathsTree(t, "/tmp/run-9")

	fn := task.WithGuard(func(ctx context.Context, cfg *config.Tree) (component.Metrics, *component.ObjectDict, error) {
		panic("unrecoverable")
	})

	require.Panics(t, func() { fn(ctx, cfg) })
	assert.Contains(t, buf.String(), "Output dir: /tmp/run-9")
}

func TestWithGuard_UnsetOutputDir(t *testing.T) {
	ctx, buf := loggedContext(0)
	cfg := config.NewTree(config.NewMapping(""))

	fn := task.WithGuard(func(ctx context.Context, cfg *config.Tree) (component.Metrics, *component.ObjectDict, error) {
		return nil, nil, nil
	})

	_, _, err := fn(ctx, cfg)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Output dir: <unset>")
}

func TestProcessExtras(t *testing.T) {
	t.Run("absent extras is fine", func(t *testing.T) {
		ctx, buf := loggedContext(0)
		cfg := config.NewTree(config.NewMapping(""))

		require.NoError(t, task.ProcessExtras(ctx, cfg))
		assert.Contains(t, buf.String(), "No extras config provided")
	})

	t.Run("ignore_warnings suppresses warns", func(t *testing.T) {
		ctx, buf := loggedContext(0)
		cfg := config.NewTree(config.NewMapping("",
			config.NewMapping("extras",
				attr(t, "ignore_warnings", "true"),
			),
		))

		require.NoError(t, task.ProcessExtras(ctx, cfg))

		ctxlog.FromContext(ctx).Warn(ctx, "should be dropped")
		assert.NotContains(t, buf.String(), "should be dropped")
	})

	t.Run("non-mapping extras is an error", func(t *testing.T) {
		ctx, _ := loggedContext(0)
		cfg := config.NewTree(config.NewMapping("",
			attr(t, "extras", "true"),
		))

		err := task.ProcessExtras(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be a mapping")
	})
}
