package instantiate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/instantiate"
	"github.com/vk/trainriggo/internal/registry"
)

func attr(t *testing.T, name, src string) *config.Node {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), "expression parsing failed: %s", diags.Error())
	return config.NewAttr(name, expr, src)
}

type namedCallback struct {
	component.NopCallback
	name string
}

type namedExpLogger struct{ name string }

func (l *namedExpLogger) LogHyperparams(context.Context, map[string]any) error      { return nil }
func (l *namedExpLogger) LogMetrics(context.Context, map[string]float64, int) error { return nil }

// testRegistry registers callback and logger factories that record the
// block name they were constructed from.
func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, sel := range []string{"alpha", "beta"} {
		sel := sel
		reg.RegisterCallback(sel, func(ctx context.Context, cfg *config.Node) (component.Callback, error) {
			return &namedCallback{name: cfg.Name()}, nil
		})
		reg.RegisterExpLogger(sel, func(ctx context.Context, cfg *config.Node) (component.ExpLogger, error) {
			return &namedExpLogger{name: cfg.Name()}, nil
		})
	}
	reg.RegisterCallback("boom", func(ctx context.Context, cfg *config.Node) (component.Callback, error) {
		return nil, errors.New("construction failed")
	})
	return reg
}

func TestCallbacks_AbsentConfigYieldsEmptyList(t *testing.T) {
	got, err := instantiate.Callbacks(context.Background(), testRegistry(t), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCallbacks_EmptyMappingYieldsEmptyList(t *testing.T) {
	got, err := instantiate.Callbacks(context.Background(), testRegistry(t), config.NewMapping("callbacks"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCallbacks_NonMappingIsAnError(t *testing.T) {
	_, err := instantiate.Callbacks(context.Background(), testRegistry(t), attr(t, "callbacks", `"oops"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a mapping")
}

func TestCallbacks_BuildsInConfigOrder(t *testing.T) {
	cfg := config.NewMapping("callbacks",
		config.NewMapping("second", attr(t, "uses", `"beta"`)),
		config.NewMapping("first", attr(t, "uses", `"alpha"`)),
	)

	got, err := instantiate.Callbacks(context.Background(), testRegistry(t), cfg)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].(*namedCallback).name)
	assert.Equal(t, "first", got[1].(*namedCallback).name)
}

func TestCallbacks_SkipsSelectorlessBlocks(t *testing.T) {
	cfg := config.NewMapping("callbacks",
		config.NewMapping("shared", attr(t, "lr", "0.1")),
		config.NewMapping("real", attr(t, "uses", `"alpha"`)),
	)

	got, err := instantiate.Callbacks(context.Background(), testRegistry(t), cfg)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "real", got[0].(*namedCallback).name)
}

func TestCallbacks_FactoryErrorPropagates(t *testing.T) {
	cfg := config.NewMapping("callbacks",
		config.NewMapping("bad", attr(t, "uses", `"boom"`)),
	)

	_, err := instantiate.Callbacks(context.Background(), testRegistry(t), cfg)
	require.Error(t, err)
	assert.EqualError(t, err, "construction failed")
}

func TestCallbacks_UnknownSelector(t *testing.T) {
	cfg := config.NewMapping("callbacks",
		config.NewMapping("bad", attr(t, "uses", `"ghost"`)),
	)

	_, err := instantiate.Callbacks(context.Background(), testRegistry(t), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown callback type "ghost"`)
}

func TestExpLoggers_MirrorsCallbackSemantics(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		got, err := instantiate.ExpLoggers(context.Background(), testRegistry(t), nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("ordered with selectorless skipped", func(t *testing.T) {
		cfg := config.NewMapping("logger",
			config.NewMapping("csv", attr(t, "uses", `"alpha"`)),
			config.NewMapping("defaults", attr(t, "flush", "true")),
			config.NewMapping("remote", attr(t, "uses", `"beta"`)),
		)

		got, err := instantiate.ExpLoggers(context.Background(), testRegistry(t), cfg)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "csv", got[0].(*namedExpLogger).name)
		assert.Equal(t, "remote", got[1].(*namedExpLogger).name)
	})

	t.Run("non-mapping", func(t *testing.T) {
		_, err := instantiate.ExpLoggers(context.Background(), testRegistry(t), attr(t, "logger", "42"))
		require.Error(t, err)
	})
}
