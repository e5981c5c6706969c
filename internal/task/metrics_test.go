package task_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/task"
)

func TestGetMetricValue(t *testing.T) {
	ctx := context.Background()

	t.Run("unboxes a present metric", func(t *testing.T) {
		metrics := component.Metrics{"val/loss": component.Box(0.125)}

		got, err := task.GetMetricValue(ctx, metrics, "val/loss")
		require.NoError(t, err)
		assert.InDelta(t, 0.125, got, 1e-12)
	})

	t.Run("absent metric names the metric and the usual causes", func(t *testing.T) {
		metrics := component.Metrics{"train/loss": component.Box(1)}

		_, err := task.GetMetricValue(ctx, metrics, "val/acc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "metric value not found <metric_name=val/acc>")
		assert.Contains(t, err.Error(), "metric name logged by the model")
		assert.Contains(t, err.Error(), "optimized_metric")
	})

	t.Run("non-numeric metric is an error", func(t *testing.T) {
		metrics := component.Metrics{"label": cty.StringVal("oops")}

		_, err := task.GetMetricValue(ctx, metrics, "label")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a boxed numeric value")
	})
}
