package task

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/ctxlog"
)

// GetMetricValue looks up a named metric in the run's metric mapping and
// unboxes it to a plain float. An absent metric is a misconfiguration, so
// the error names the two usual sources.
func GetMetricValue(ctx context.Context, metrics component.Metrics, name string) (float64, error) {
	v, ok := metrics[name]
	if !ok {
		return 0, fmt.Errorf(
			"metric value not found <metric_name=%s>: "+
				"make sure the metric name logged by the model is correct, "+
				"and that the optimized_metric name in the search config matches it",
			name)
	}
	if v.Type() != cty.Number {
		return 0, fmt.Errorf("metric %q is not a boxed numeric value", name)
	}
	value, _ := v.AsBigFloat().Float64()

	ctxlog.FromContext(ctx).Info(ctx, fmt.Sprintf("Retrieved metric value! <%s=%v>", name, value))
	return value, nil
}
