package app

import (
	"context"
	"fmt"
	"io"

	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/ctxlog"
	"github.com/vk/trainriggo/internal/hclcfg"
	"github.com/vk/trainriggo/internal/ranklog"
	"github.com/vk/trainriggo/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *ranklog.Logger
	registry *registry.Registry
	config   *config.Tree
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
func NewApp(outW io.Writer, appConfig *Config, loader *hclcfg.Loader, modules ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, appConfig.Rank, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug(ctx, "Logger configured successfully.")

	// Compose the layered configuration tree up front.
	cfgTree, err := loader.Load(ctx, appConfig.ConfigPaths, appConfig.Overrides)
	if err != nil {
		// A failure to compose config is a fatal startup error.
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug(ctx, "Configuration composed.", "groups", len(cfgTree.Top()))

	// Create and populate the registry with component factories.
	reg := registry.New()
	if len(modules) == 0 {
		modules = CoreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug(ctx, "All component modules registered.", "count", len(modules))

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfgTree,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Config returns the composed configuration tree.
func (a *App) Config() *config.Tree {
	return a.config
}
