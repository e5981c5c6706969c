package task

import (
	"context"
	"fmt"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/ctxlog"
	"github.com/vk/trainriggo/internal/persist"
)

// Evaluate runs the test phase of a previously trained checkpoint. The
// checkpoint path is mandatory; everything else mirrors Train minus the
// fit-specific pieces.
func (r *Runner) Evaluate(ctx context.Context, cfg *config.Tree) (component.Metrics, *component.ObjectDict, error) {
	logger := ctxlog.FromContext(ctx)

	ckptPath, err := optionalString(cfg, "ckpt_path")
	if err != nil {
		return nil, nil, err
	}
	if ckptPath == "" {
		return nil, nil, fmt.Errorf("ckpt_path is required for evaluation")
	}

	dm, model, _, expLoggers, trainer, err := r.buildObjects(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	objectDict := &component.ObjectDict{
		Config:     cfg,
		DataModule: dm,
		Model:      model,
		ExpLoggers: expLoggers,
		Trainer:    trainer,
	}

	if len(expLoggers) > 0 {
		logger.Info(ctx, "Logging hyperparameters!")
		persist.LogHyperparameters(ctx, objectDict)
	}

	logger.Info(ctx, "Starting testing!")
	if err := trainer.Test(ctx, model, dm, ckptPath); err != nil {
		return nil, nil, err
	}

	return trainer.CallbackMetrics(), objectDict, nil
}
