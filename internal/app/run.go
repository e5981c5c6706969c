package app

import (
	"context"
	"fmt"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/ctxlog"
	"github.com/vk/trainriggo/internal/task"
)

// Mode selects the lifecycle entry point to run.
type Mode string

const (
	ModeTrain Mode = "train"
	ModeEval  Mode = "eval"
)

// Run drives one guarded task invocation and, for training runs with an
// optimized_metric configured, retrieves that metric for sweep controllers.
func (a *App) Run(ctx context.Context, mode Mode) (component.Metrics, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug(ctx, "App.Run method started.", "mode", string(mode))

	if err := task.ProcessExtras(ctx, a.config); err != nil {
		return nil, err
	}

	runner := &task.Runner{Registry: a.registry, Console: a.outW}
	var fn task.Func
	switch mode {
	case ModeTrain:
		fn = runner.Train
	case ModeEval:
		fn = runner.Evaluate
	default:
		return nil, fmt.Errorf("unknown run mode %q", mode)
	}

	metrics, _, err := task.WithGuard(fn)(ctx, a.config)
	if err != nil {
		return nil, err
	}

	if mode == ModeTrain {
		if name := a.optimizedMetric(); name != "" {
			value, err := task.GetMetricValue(ctx, metrics, name)
			if err != nil {
				return nil, err
			}
			a.logger.Info(ctx, fmt.Sprintf("Optimized metric <%s=%v>", name, value))
		}
	}

	a.logger.Debug(ctx, "App.Run method finished.")
	return metrics, nil
}

func (a *App) optimizedMetric() string {
	n := a.config.Get("optimized_metric")
	if n == nil {
		return ""
	}
	name, err := n.AsString()
	if err != nil {
		return ""
	}
	return name
}
