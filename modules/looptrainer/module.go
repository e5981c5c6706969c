// Package looptrainer provides the 'loop' trainer: a single-process epoch
// loop that drives the model's training and test steps over the data
// module's batches, accumulates namespaced metrics, and fires callback
// hooks at the lifecycle points the harness relies on.
package looptrainer

import (
	"context"
	"fmt"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/ctxlog"
	"github.com/vk/trainriggo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the trainer factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTrainer("loop", New)
}

// Trainer runs the fit and test phases in-process.
type Trainer struct {
	maxEpochs int
	outputDir string

	callbacks  []component.Callback
	expLoggers []component.ExpLogger
	ckptSaver  component.CheckpointSaver

	metrics component.Metrics
}

// New constructs the trainer from its config block with the instantiated
// callbacks and experiment loggers attached. The first callback exposing
// the checkpoint-saving capability becomes the trainer's checkpoint
// callback.
func New(ctx context.Context, cfg *config.Node, callbacks []component.Callback, expLoggers []component.ExpLogger) (component.Trainer, error) {
	maxEpochs, err := cfg.OptInt("max_epochs", 10)
	if err != nil {
		return nil, err
	}
	if maxEpochs < 1 {
		return nil, fmt.Errorf("max_epochs must be at least 1, got %d", maxEpochs)
	}
	outputDir, err := cfg.OptString("output_dir", "")
	if err != nil {
		return nil, err
	}

	t := &Trainer{
		maxEpochs:  maxEpochs,
		outputDir:  outputDir,
		callbacks:  callbacks,
		expLoggers: expLoggers,
		metrics:    component.Metrics{},
	}
	for _, cb := range callbacks {
		if saver, ok := cb.(component.CheckpointSaver); ok {
			t.ckptSaver = saver
			break
		}
	}
	return t, nil
}

// Fit runs the training loop, optionally resuming from a checkpoint.
func (t *Trainer) Fit(ctx context.Context, model component.Model, dm component.DataModule, ckptPath string) error {
	logger := ctxlog.FromContext(ctx)

	if ckptPath != "" {
		state, err := component.LoadCheckpoint(ckptPath)
		if err != nil {
			return err
		}
		if err := model.LoadStateDict(state); err != nil {
			return err
		}
		logger.Info(ctx, fmt.Sprintf("Resumed from checkpoint %s", ckptPath))
	}

	if err := dm.Setup(ctx, component.StageFit); err != nil {
		return err
	}
	if len(dm.TrainBatches()) == 0 {
		return fmt.Errorf("no training batches available")
	}

	run := &component.RunState{Model: model, Metrics: t.metrics, OutputDir: t.outputDir}
	if err := t.fire(ctx, run, component.Callback.OnFitStart); err != nil {
		return err
	}

	for epoch := 0; epoch < t.maxEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		run.Epoch = epoch

		var trainLoss float64
		for _, batch := range dm.TrainBatches() {
			loss, err := model.TrainingStep(batch)
			if err != nil {
				return fmt.Errorf("epoch %d: %w", epoch, err)
			}
			trainLoss += loss
		}
		t.metrics["train/loss"] = component.Box(trainLoss / float64(len(dm.TrainBatches())))

		if err := t.evalPhase(model, dm.ValBatches(), "val"); err != nil {
			return fmt.Errorf("epoch %d validation: %w", epoch, err)
		}

		t.submitMetrics(ctx, epoch)
		logger.Debug(ctx, "Epoch finished", "epoch", epoch, "train/loss", t.metrics["train/loss"])

		if err := t.fire(ctx, run, component.Callback.OnTrainEpochEnd); err != nil {
			return err
		}
		if run.Stop {
			break
		}
	}

	return t.fire(ctx, run, component.Callback.OnFitEnd)
}

// Test runs the test phase, loading the given checkpoint first when one is
// provided; an empty path tests the current in-memory weights.
func (t *Trainer) Test(ctx context.Context, model component.Model, dm component.DataModule, ckptPath string) error {
	if ckptPath != "" {
		state, err := component.LoadCheckpoint(ckptPath)
		if err != nil {
			return err
		}
		if err := model.LoadStateDict(state); err != nil {
			return err
		}
	}

	if err := dm.Setup(ctx, component.StageTest); err != nil {
		return err
	}
	if err := t.evalPhase(model, dm.TestBatches(), "test"); err != nil {
		return err
	}

	t.submitMetrics(ctx, t.maxEpochs)
	return nil
}

// evalPhase averages the model's TestStep metrics over the given batches
// into the trainer's metric mapping under the phase namespace.
func (t *Trainer) evalPhase(model component.Model, batches []component.Batch, phase string) error {
	if len(batches) == 0 {
		return nil
	}
	sums := map[string]float64{}
	for _, batch := range batches {
		stepMetrics, err := model.TestStep(batch)
		if err != nil {
			return err
		}
		for name, v := range stepMetrics {
			sums[name] += v
		}
	}
	for name, sum := range sums {
		t.metrics[phase+"/"+name] = component.Box(sum / float64(len(batches)))
	}
	return nil
}

// submitMetrics forwards the current unboxed metrics to every attached
// experiment logger. Logger failures are telemetry failures, not run
// failures.
func (t *Trainer) submitMetrics(ctx context.Context, step int) {
	if len(t.expLoggers) == 0 {
		return
	}
	plain := make(map[string]float64, len(t.metrics))
	for name, boxed := range t.metrics {
		v, _ := boxed.AsBigFloat().Float64()
		plain[name] = v
	}
	logger := ctxlog.FromContext(ctx)
	for _, lg := range t.expLoggers {
		if err := lg.LogMetrics(ctx, plain, step); err != nil {
			logger.Error(ctx, fmt.Sprintf("Experiment logger failed to record metrics: %v", err))
		}
	}
}

func (t *Trainer) fire(ctx context.Context, run *component.RunState, hook func(component.Callback, context.Context, *component.RunState) error) error {
	for _, cb := range t.callbacks {
		if err := hook(cb, ctx, run); err != nil {
			return err
		}
	}
	return nil
}

// CallbackMetrics returns a snapshot of the metrics accumulated so far.
func (t *Trainer) CallbackMetrics() component.Metrics {
	return component.MergeMetrics(t.metrics, nil)
}

// CheckpointCallback returns the attached checkpoint-saving callback, or
// nil when none is attached.
func (t *Trainer) CheckpointCallback() component.CheckpointSaver { return t.ckptSaver }

// ExpLoggers returns the attached experiment loggers.
func (t *Trainer) ExpLoggers() []component.ExpLogger { return t.expLoggers }
