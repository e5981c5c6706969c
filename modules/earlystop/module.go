// Package earlystop provides the 'early_stop' callback: it ends the fit
// loop when a monitored metric stops improving for a configured number of
// epochs.
package earlystop

import (
	"context"
	"fmt"

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
	r.RegisterCallback("early_stop", New)
}

// Callback requests a stop after `patience` epochs without improvement.
type Callback struct {
	component.NopCallback

	monitor  string
	mode     string
	patience int

	best    float64
	hasBest bool
	stale   int
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
		return nil, fmt.Errorf("early_stop mode must be 'min' or 'max', got %q", mode)
	}
	patience, err := cfg.OptInt("patience", 3)
	if err != nil {
		return nil, err
	}
	if patience < 1 {
		return nil, fmt.Errorf("early_stop patience must be at least 1, got %d", patience)
	}

	return &Callback{monitor: monitor, mode: mode, patience: patience}, nil
}

// OnTrainEpochEnd tracks the monitored metric and sets the run's stop flag
// once it has gone `patience` epochs without improving.
func (c *Callback) OnTrainEpochEnd(ctx context.Context, run *component.RunState) error {
	boxed, ok := run.Metrics[c.monitor]
	if !ok || boxed.Type() != cty.Number {
		return nil
	}
	value, _ := boxed.AsBigFloat().Float64()

	if !c.hasBest || c.improved(value) {
		c.best = value
		c.hasBest = true
		c.stale = 0
		return nil
	}

	c.stale++
	if c.stale >= c.patience {
		ctxlog.FromContext(ctx).Info(ctx, fmt.Sprintf(
			"Early stopping: %s did not improve for %d epochs", c.monitor, c.stale))
		run.Stop = true
	}
	return nil
}

func (c *Callback) improved(value float64) bool {
	if c.mode == "max" {
		return value > c.best
	}
	return value < c.best
}
