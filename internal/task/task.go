// Package task holds the train and evaluate entry points, the guarded
// lifecycle wrapper around them, and the metric retrieval helper used for
// hyperparameter-search objectives.
package task

import (
	"context"
	"fmt"
	"io"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/ctxlog"
	"github.com/vk/trainriggo/internal/registry"
)

// Func is a task procedure: it takes a composed configuration and returns
// the run's metric mapping plus the dictionary of instantiated objects.
type Func func(ctx context.Context, cfg *config.Tree) (component.Metrics, *component.ObjectDict, error)

// Runner binds the entry points to their collaborators.
type Runner struct {
	Registry *registry.Registry
	Console  io.Writer
}

// WithGuard wraps a task procedure so that any failure is logged with its
// context before being returned unchanged, and the configured output
// directory is always logged on the way out, success or not. The output-dir
// breadcrumb is how crashed runs are located afterwards; the deferred log
// fires even when the task panics.
func WithGuard(fn Func) Func {
	return func(ctx context.Context, cfg *config.Tree) (metrics component.Metrics, objects *component.ObjectDict, err error) {
		logger := ctxlog.FromContext(ctx)

		defer func() {
			logger.Info(ctx, fmt.Sprintf("Output dir: %s", outputDir(cfg)))
		}()

		metrics, objects, err = fn(ctx, cfg)
		if err != nil {
			logger.Error(ctx, fmt.Sprintf("Task failed: %v", err))
		}
		return metrics, objects, err
	}
}

func outputDir(cfg *config.Tree) string {
	n := cfg.Get("paths.output_dir")
	if n == nil {
		return "<unset>"
	}
	s, err := n.AsString()
	if err != nil {
		return n.Raw()
	}
	return s
}
