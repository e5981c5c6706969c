// Package instantiate builds lists of polymorphic components from named
// configuration blocks. Each block selects its concrete type through the
// reserved selector attribute; blocks without one are shared sub-config and
// are skipped.
package instantiate

import (
	"context"
	"fmt"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/ctxlog"
	"github.com/vk/trainriggo/internal/registry"
)

// Callbacks instantiates every selector-bearing block of the callbacks
// config, preserving the mapping's iteration order. An empty or absent
// config is valid and yields an empty list; construction failures propagate
// unmodified.
func Callbacks(ctx context.Context, reg *registry.Registry, cfg *config.Node) ([]component.Callback, error) {
	logger := ctxlog.FromContext(ctx)
	var callbacks []component.Callback

	if cfg == nil {
		logger.Warn(ctx, "No callback configs found! Skipping..")
		return callbacks, nil
	}
	if !cfg.IsMapping() {
		return nil, fmt.Errorf("callbacks config must be a mapping")
	}
	if len(cfg.Children()) == 0 {
		logger.Warn(ctx, "No callback configs found! Skipping..")
		return callbacks, nil
	}

	for _, block := range cfg.Children() {
		if !block.IsMapping() {
			continue
		}
		selector, ok := block.Selector()
		if !ok {
			continue
		}
		logger.Info(ctx, fmt.Sprintf("Instantiating callback <%s>", selector))
		cb, err := reg.NewCallback(ctx, selector, block)
		if err != nil {
			return nil, err
		}
		callbacks = append(callbacks, cb)
	}

	return callbacks, nil
}

// ExpLoggers instantiates every selector-bearing block of the experiment
// logger config, with the same shape as Callbacks.
func ExpLoggers(ctx context.Context, reg *registry.Registry, cfg *config.Node) ([]component.ExpLogger, error) {
	logger := ctxlog.FromContext(ctx)
	var expLoggers []component.ExpLogger

	if cfg == nil {
		logger.Warn(ctx, "No logger configs found! Skipping...")
		return expLoggers, nil
	}
	if !cfg.IsMapping() {
		return nil, fmt.Errorf("logger config must be a mapping")
	}
	if len(cfg.Children()) == 0 {
		logger.Warn(ctx, "No logger configs found! Skipping...")
		return expLoggers, nil
	}

	for _, block := range cfg.Children() {
		if !block.IsMapping() {
			continue
		}
		selector, ok := block.Selector()
		if !ok {
			continue
		}
		logger.Info(ctx, fmt.Sprintf("Instantiating experiment logger <%s>", selector))
		lg, err := reg.NewExpLogger(ctx, selector, block)
		if err != nil {
			return nil, err
		}
		expLoggers = append(expLoggers, lg)
	}

	return expLoggers, nil
}
