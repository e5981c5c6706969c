package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/config"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// DataModuleFactory constructs a data module from its config block.
type DataModuleFactory func(ctx context.Context, cfg *config.Node) (component.DataModule, error)

// ModelFactory constructs a model from its config block.
type ModelFactory func(ctx context.Context, cfg *config.Node) (component.Model, error)

// TrainerFactory constructs a trainer from its config block with the
// already-instantiated callbacks and experiment loggers attached.
type TrainerFactory func(ctx context.Context, cfg *config.Node, callbacks []component.Callback, expLoggers []component.ExpLogger) (component.Trainer, error)

// CallbackFactory constructs a callback from its config block.
type CallbackFactory func(ctx context.Context, cfg *config.Node) (component.Callback, error)

// ExpLoggerFactory constructs an experiment logger from its config block.
type ExpLoggerFactory func(ctx context.Context, cfg *config.Node) (component.ExpLogger, error)

// Registry holds the selector-to-factory mappings for a single application
// instance.
type Registry struct {
	dataModules map[string]DataModuleFactory
	models      map[string]ModelFactory
	trainers    map[string]TrainerFactory
	callbacks   map[string]CallbackFactory
	expLoggers  map[string]ExpLoggerFactory
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		dataModules: make(map[string]DataModuleFactory),
		models:      make(map[string]ModelFactory),
		trainers:    make(map[string]TrainerFactory),
		callbacks:   make(map[string]CallbackFactory),
		expLoggers:  make(map[string]ExpLoggerFactory),
	}
}

// RegisterDataModule registers a data module factory under a selector.
func (r *Registry) RegisterDataModule(name string, f DataModuleFactory) {
	if _, exists := r.dataModules[name]; exists {
		panic(fmt.Sprintf("data module with selector %q already registered", name))
	}
	slog.Debug("Registering data module factory.", "selector", name)
	r.dataModules[name] = f
}

// RegisterModel registers a model factory under a selector.
func (r *Registry) RegisterModel(name string, f ModelFactory) {
	if _, exists := r.models[name]; exists {
		panic(fmt.Sprintf("model with selector %q already registered", name))
	}
	slog.Debug("Registering model factory.", "selector", name)
	r.models[name] = f
}

// RegisterTrainer registers a trainer factory under a selector.
func (r *Registry) RegisterTrainer(name string, f TrainerFactory) {
	if _, exists := r.trainers[name]; exists {
		panic(fmt.Sprintf("trainer with selector %q already registered", name))
	}
	slog.Debug("Registering trainer factory.", "selector", name)
	r.trainers[name] = f
}

// RegisterCallback registers a callback factory under a selector.
func (r *Registry) RegisterCallback(name string, f CallbackFactory) {
	if _, exists := r.callbacks[name]; exists {
		panic(fmt.Sprintf("callback with selector %q already registered", name))
	}
	slog.Debug("Registering callback factory.", "selector", name)
	r.callbacks[name] = f
}

// RegisterExpLogger registers an experiment logger factory under a selector.
func (r *Registry) RegisterExpLogger(name string, f ExpLoggerFactory) {
	if _, exists := r.expLoggers[name]; exists {
		panic(fmt.Sprintf("experiment logger with selector %q already registered", name))
	}
	slog.Debug("Registering experiment logger factory.", "selector", name)
	r.expLoggers[name] = f
}

// NewDataModule constructs the data module registered under the selector.
func (r *Registry) NewDataModule(ctx context.Context, name string, cfg *config.Node) (component.DataModule, error) {
	f, ok := r.dataModules[name]
	if !ok {
		return nil, r.unknown("data module", name, keys(r.dataModules))
	}
	return f(ctx, cfg)
}

// NewModel constructs the model registered under the selector.
func (r *Registry) NewModel(ctx context.Context, name string, cfg *config.Node) (component.Model, error) {
	f, ok := r.models[name]
	if !ok {
		return nil, r.unknown("model", name, keys(r.models))
	}
	return f(ctx, cfg)
}

// NewTrainer constructs the trainer registered under the selector.
func (r *Registry) NewTrainer(ctx context.Context, name string, cfg *config.Node, callbacks []component.Callback, expLoggers []component.ExpLogger) (component.Trainer, error) {
	f, ok := r.trainers[name]
	if !ok {
		return nil, r.unknown("trainer", name, keys(r.trainers))
	}
	return f(ctx, cfg, callbacks, expLoggers)
}

// NewCallback constructs the callback registered under the selector.
func (r *Registry) NewCallback(ctx context.Context, name string, cfg *config.Node) (component.Callback, error) {
	f, ok := r.callbacks[name]
	if !ok {
		return nil, r.unknown("callback", name, keys(r.callbacks))
	}
	return f(ctx, cfg)
}

// NewExpLogger constructs the experiment logger registered under the selector.
func (r *Registry) NewExpLogger(ctx context.Context, name string, cfg *config.Node) (component.ExpLogger, error) {
	f, ok := r.expLoggers[name]
	if !ok {
		return nil, r.unknown("experiment logger", name, keys(r.expLoggers))
	}
	return f(ctx, cfg)
}

func (r *Registry) unknown(kind, name string, known []string) error {
	return fmt.Errorf("unknown %s type %q (registered: %v)", kind, name, known)
}

func keys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
