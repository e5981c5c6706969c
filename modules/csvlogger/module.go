// Package csvlogger provides the 'csv' experiment logger. Hyperparameters
// go to hparams.yaml and metrics accumulate into metrics.csv under the
// logger's directory.
package csvlogger

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the logger factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExpLogger("csv", New)
}

type row struct {
	step    int
	metrics map[string]float64
}

// Logger writes run artifacts as flat files. The metrics file is rewritten
// on every submission so late-appearing metric columns still get a header.
type Logger struct {
	dir  string
	keys map[string]struct{}
	rows []row
}

// New constructs the logger from its config block.
func New(ctx context.Context, cfg *config.Node) (component.ExpLogger, error) {
	dir, err := cfg.String("dir")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating csv logger directory: %w", err)
	}
	return &Logger{dir: dir, keys: map[string]struct{}{}}, nil
}

// LogHyperparams writes the hyperparameter mapping to hparams.yaml.
func (l *Logger) LogHyperparams(ctx context.Context, hparams map[string]any) error {
	data, err := yaml.Marshal(hparams)
	if err != nil {
		return fmt.Errorf("marshalling hyperparameters: %w", err)
	}
	return os.WriteFile(filepath.Join(l.dir, "hparams.yaml"), data, 0o644)
}

// LogMetrics records one step's metrics and rewrites metrics.csv.
func (l *Logger) LogMetrics(ctx context.Context, metrics map[string]float64, step int) error {
	copied := make(map[string]float64, len(metrics))
	for name, v := range metrics {
		copied[name] = v
		l.keys[name] = struct{}{}
	}
	l.rows = append(l.rows, row{step: step, metrics: copied})

	names := make([]string, 0, len(l.keys))
	for name := range l.keys {
		names = append(names, name)
	}
	sort.Strings(names)

	f, err := os.Create(filepath.Join(l.dir, "metrics.csv"))
	if err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"step"}, names...)); err != nil {
		return err
	}
	for _, r := range l.rows {
		record := make([]string, 0, len(names)+1)
		record = append(record, strconv.Itoa(r.step))
		for _, name := range names {
			if v, ok := r.metrics[name]; ok {
				record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
			} else {
				record = append(record, "")
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
