// Package checkpoint provides the 'checkpoint' callback. It monitors a
// metric at the end of every training epoch and persists the model's state
// dict whenever the metric improves, exposing the best checkpoint path for
// the test phase.
package checkpoint

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/ctxlog"
	"github.com/vk/trainriggo/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the callback factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterCallback("checkpoint", New)
}

// Callback saves the best model checkpoint seen during a fit run.
type Callback struct {
	component.NopCallback

	monitor string
	mode    string
	dirpath string

	best     float64
	bestPath string
	hasBest  bool
}

// New constructs the callback from its config block.
func New(ctx context.Context, cfg *config.Node) (component.Callback, error) {
	monitor, err := cfg.OptString("monitor", "val/loss")
	if err != nil {
		return nil, err
	}
	mode, err := cfg.OptString("mode", "min")
	if err != nil {
		return nil, err
	}
	if mode != "min" && mode != "max" {
		return nil, fmt.Errorf("checkpoint mode must be 'min' or 'max', got %q", mode)
	}
	dirpath, err := cfg.OptString("dirpath", "checkpoints")
	if err != nil {
		return nil, err
	}

	return &Callback{monitor: monitor, mode: mode, dirpath: dirpath}, nil
}

// OnTrainEpochEnd checks the monitored metric and saves a checkpoint when
// it improved. Epochs without the metric are skipped silently; the metric
// may legitimately only appear once validation ran.
func (c *Callback) OnTrainEpochEnd(ctx context.Context, run *component.RunState) error {
	boxed, ok := run.Metrics[c.monitor]
	if !ok || boxed.Type() != cty.Number {
		return nil
	}
	value, _ := boxed.AsBigFloat().Float64()

	if c.hasBest && !c.improved(value) {
		return nil
	}

	path := filepath.Join(c.dirpath, fmt.Sprintf("epoch_%03d.json", run.Epoch))
	if err := component.SaveCheckpoint(path, run.Model.StateDict()); err != nil {
		return err
	}
	c.best = value
	c.bestPath = path
	c.hasBest = true

	ctxlog.FromContext(ctx).Debug(ctx, "Checkpoint saved",
		"path", path, c.monitor, value)
	return nil
}

func (c *Callback) improved(value float64) bool {
	if c.mode == "max" {
		return value > c.best
	}
	return value < c.best
}

// BestModelPath returns the path of the best checkpoint saved so far, or
// the empty string when none was saved.
func (c *Callback) BestModelPath() string { return c.bestPath }
