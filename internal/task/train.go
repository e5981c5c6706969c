package task

import (
	"context"
	"fmt"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/ctxlog"
	"github.com/vk/trainriggo/internal/instantiate"
	"github.com/vk/trainriggo/internal/persist"
)

// Train builds the run's object graph from config and drives the fit phase,
// optionally followed by a test phase on the best checkpoint obtained during
// training. It returns the merged fit and test metrics (test values override
// same-named fit values) together with the instantiated objects.
func (r *Runner) Train(ctx context.Context, cfg *config.Tree) (component.Metrics, *component.ObjectDict, error) {
	logger := ctxlog.FromContext(ctx)

	if seedNode := cfg.Get("seed"); seedNode != nil {
		seed, err := seedNode.AsInt()
		if err != nil {
			return nil, nil, fmt.Errorf("seed: %w", err)
		}
		logger.Info(ctx, fmt.Sprintf("Seeding random sources <seed=%d>", seed))
		component.SeedEverything(int64(seed))
	}

	logger.Info(ctx, "Saving tags")
	if err := persist.SaveTags(ctx, cfg); err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "Saving config")
	if err := persist.SaveConfig(ctx, cfg, r.Console); err != nil {
		return nil, nil, err
	}

	dm, model, callbacks, expLoggers, trainer, err := r.buildObjects(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	objectDict := &component.ObjectDict{
		Config:     cfg,
		DataModule: dm,
		Model:      model,
		Callbacks:  callbacks,
		ExpLoggers: expLoggers,
		Trainer:    trainer,
	}

	if len(expLoggers) > 0 {
		logger.Info(ctx, "Logging hyperparameters!")
		persist.LogHyperparameters(ctx, objectDict)
	}

	doTrain, err := flagAt(cfg, "train")
	if err != nil {
		return nil, nil, err
	}
	if doTrain {
		logger.Info(ctx, "Starting training!")
		resumePath, err := optionalString(cfg, "ckpt_path")
		if err != nil {
			return nil, nil, err
		}
		if err := trainer.Fit(ctx, model, dm, resumePath); err != nil {
			return nil, nil, err
		}
	}
	trainMetrics := trainer.CallbackMetrics()

	doTest, err := flagAt(cfg, "test")
	if err != nil {
		return nil, nil, err
	}
	if doTest {
		logger.Info(ctx, "Starting testing!")
		checkpoint := trainer.CheckpointCallback()
		if checkpoint == nil {
			return nil, nil, fmt.Errorf("need a checkpoint callback to test: attach one under callbacks")
		}
		ckptPath := checkpoint.BestModelPath()
		if ckptPath == "" {
			logger.Warn(ctx, "Best ckpt not found! Using current weights for testing...")
		}
		if err := trainer.Test(ctx, model, dm, ckptPath); err != nil {
			return nil, nil, err
		}
		logger.Info(ctx, fmt.Sprintf("Best ckpt path: %s", ckptPath))
	}
	testMetrics := trainer.CallbackMetrics()

	return component.MergeMetrics(trainMetrics, testMetrics), objectDict, nil
}

// buildObjects instantiates the data module, model, callbacks, experiment
// loggers, and trainer from their respective config blocks.
func (r *Runner) buildObjects(ctx context.Context, cfg *config.Tree) (
	component.DataModule, component.Model, []component.Callback, []component.ExpLogger, component.Trainer, error,
) {
	logger := ctxlog.FromContext(ctx)

	dataNode, dataSel, err := selectorBlock(cfg, "data")
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	logger.Info(ctx, fmt.Sprintf("Instantiating datamodule <%s>", dataSel))
	dm, err := r.Registry.NewDataModule(ctx, dataSel, dataNode)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	modelNode, modelSel, err := selectorBlock(cfg, "model")
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	logger.Info(ctx, fmt.Sprintf("Instantiating model <%s>", modelSel))
	model, err := r.Registry.NewModel(ctx, modelSel, modelNode)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	logger.Info(ctx, "Instantiating callbacks...")
	callbacks, err := instantiate.Callbacks(ctx, r.Registry, cfg.Get("callbacks"))
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	logger.Info(ctx, "Instantiating experiment loggers...")
	expLoggers, err := instantiate.ExpLoggers(ctx, r.Registry, loggersNode(cfg))
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	trainerNode, trainerSel, err := selectorBlock(cfg, "trainer")
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	logger.Info(ctx, fmt.Sprintf("Instantiating trainer <%s>", trainerSel))
	trainer, err := r.Registry.NewTrainer(ctx, trainerSel, trainerNode, callbacks, expLoggers)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	return dm, model, callbacks, expLoggers, trainer, nil
}

// loggersNode accepts the experiment logger config under either of its two
// recognized top-level keys.
func loggersNode(cfg *config.Tree) *config.Node {
	if n := cfg.Get("logger"); n != nil {
		return n
	}
	return cfg.Get("loggers")
}

func selectorBlock(cfg *config.Tree, key string) (*config.Node, string, error) {
	node := cfg.Get(key)
	if node == nil {
		return nil, "", fmt.Errorf("missing %q config block", key)
	}
	sel, ok := node.Selector()
	if !ok {
		return nil, "", fmt.Errorf("%q config block needs a %q type selector", key, config.SelectorKey)
	}
	return node, sel, nil
}

func flagAt(cfg *config.Tree, path string) (bool, error) {
	n := cfg.Get(path)
	if n == nil {
		return false, nil
	}
	v, err := n.AsBool()
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func optionalString(cfg *config.Tree, path string) (string, error) {
	n := cfg.Get(path)
	if n == nil {
		return "", nil
	}
	v, err := n.AsString()
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
