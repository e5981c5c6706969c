package persist

import (
	"context"
	"fmt"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/ctxlog"
)

// LogHyperparameters flattens the run configuration, merges in the model's
// parameter counts, and submits the result to every attached experiment
// logger. This is best-effort telemetry: missing objects or absent loggers
// are logged and skipped, never raised. Executes only on the rank-zero
// process.
func LogHyperparameters(ctx context.Context, od *component.ObjectDict) {
	logger := ctxlog.FromContext(ctx)
	if logger.Rank() != 0 {
		return
	}

	if od == nil || od.Config == nil || od.Model == nil || od.Trainer == nil {
		logger.Error(ctx, "Cannot log hyperparameters: object dict needs config, model and trainer")
		return
	}

	expLoggers := od.Trainer.ExpLoggers()
	if len(expLoggers) == 0 {
		logger.Warn(ctx, "No experiment loggers attached, skipping hyperparameter logging")
		return
	}

	hparams := od.Config.Flatten()

	var total, trainable int
	for _, p := range od.Model.Parameters() {
		total += p.NumElements()
		if p.RequiresGrad {
			trainable += p.NumElements()
		}
	}
	hparams["model/params/total"] = total
	hparams["model/params/trainable"] = trainable
	hparams["model/params/non_trainable"] = total - trainable

	for _, lg := range expLoggers {
		if err := lg.LogHyperparams(ctx, hparams); err != nil {
			logger.Error(ctx, fmt.Sprintf("Experiment logger failed to record hyperparameters: %v", err))
		}
	}
}
