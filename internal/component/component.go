package component

import (
	"context"
)

// Stage names a lifecycle phase a data module prepares for.
type Stage string

const (
	StageFit  Stage = "fit"
	StageTest Stage = "test"
)

// Batch is one mini-batch of examples.
type Batch struct {
	Features [][]float64
	Targets  []float64
}

// DataModule produces the train, validation, and test iterables for a run.
type DataModule interface {
	Setup(ctx context.Context, stage Stage) error
	TrainBatches() []Batch
	ValBatches() []Batch
	TestBatches() []Batch
}

// Parameter is one named tensor of model weights. RequiresGrad marks it as
// trainable; frozen parameters keep their values through every step.
type Parameter struct {
	Name         string
	Values       []float64
	RequiresGrad bool
}

// NumElements returns the parameter's element count.
func (p *Parameter) NumElements() int { return len(p.Values) }

// Model exposes parameters with gradient-tracking flags and participates in
// the fit and test phases.
type Model interface {
	Parameters() []*Parameter

	// TrainingStep consumes one batch, updates trainable parameters, and
	// returns the batch loss.
	TrainingStep(batch Batch) (float64, error)

	// TestStep evaluates one batch and returns named metric contributions.
	TestStep(batch Batch) (map[string]float64, error)

	StateDict() map[string][]float64
	LoadStateDict(state map[string][]float64) error
}

// RunState is the view of the trainer's progress handed to callbacks.
type RunState struct {
	Epoch     int
	Metrics   Metrics
	Model     Model
	OutputDir string

	// Stop requests the trainer to end the fit loop after the current
	// epoch. Callbacks set it, the trainer honors it.
	Stop bool
}

// Callback hooks into the trainer's fit loop.
type Callback interface {
	OnFitStart(ctx context.Context, run *RunState) error
	OnTrainEpochEnd(ctx context.Context, run *RunState) error
	OnFitEnd(ctx context.Context, run *RunState) error
}

// NopCallback is an embeddable no-op implementation of Callback.
type NopCallback struct{}

func (NopCallback) OnFitStart(context.Context, *RunState) error      { return nil }
func (NopCallback) OnTrainEpochEnd(context.Context, *RunState) error { return nil }
func (NopCallback) OnFitEnd(context.Context, *RunState) error        { return nil }

// CheckpointSaver is the capability a callback exposes when it records model
// checkpoints. The trainer's test phase narrows to it to find the best
// checkpoint of a fit run.
type CheckpointSaver interface {
	BestModelPath() string
}

// ExpLogger is an experiment logger attached to the trainer.
type ExpLogger interface {
	LogHyperparams(ctx context.Context, hparams map[string]any) error
	LogMetrics(ctx context.Context, metrics map[string]float64, step int) error
}

// Trainer drives the fit and test phases and owns the metric mapping that
// accumulates across them.
type Trainer interface {
	Fit(ctx context.Context, model Model, dm DataModule, ckptPath string) error
	Test(ctx context.Context, model Model, dm DataModule, ckptPath string) error

	// CallbackMetrics returns the metrics accumulated so far. The mapping
	// is read by the harness, never mutated.
	CallbackMetrics() Metrics

	// CheckpointCallback returns the attached checkpoint-saving callback,
	// or nil when none is attached.
	CheckpointCallback() CheckpointSaver

	ExpLoggers() []ExpLogger
}
