// Package webhooklog provides the 'webhook' experiment logger, which POSTs
// hyperparameters and metrics as JSON to a configured endpoint.
package webhooklog

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the logger factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExpLogger("webhook", New)
}

// Logger forwards run events to an HTTP endpoint.
type Logger struct {
	client *resty.Client
	url    string
	run    string
}

type event struct {
	Kind    string             `json:"kind"`
	Run     string             `json:"run,omitempty"`
	Step    int                `json:"step"`
	Time    time.Time          `json:"time"`
	Hparams map[string]any     `json:"hparams,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// New constructs the logger from its config block.
func New(ctx context.Context, cfg *config.Node) (component.ExpLogger, error) {
	url, err := cfg.String("url")
	if err != nil {
		return nil, err
	}
	run, err := cfg.OptString("run_name", "")
	if err != nil {
		return nil, err
	}
	token, err := cfg.OptString("token", "")
	if err != nil {
		return nil, err
	}
	timeoutSec, err := cfg.OptInt("timeout_seconds", 10)
	if err != nil {
		return nil, err
	}

	client := resty.New().SetTimeout(time.Duration(timeoutSec) * time.Second)
	if token != "" {
		client.SetAuthToken(token)
	}
	return &Logger{client: client, url: url, run: run}, nil
}

func (l *Logger) post(ctx context.Context, ev event) error {
	ev.Run = l.run
	ev.Time = time.Now()
	resp, err := l.client.R().
		SetContext(ctx).
		SetBody(ev).
		Post(l.url)
	if err != nil {
		return fmt.Errorf("posting %s event: %w", ev.Kind, err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook rejected %s event: %s", ev.Kind, resp.Status())
	}
	return nil
}

// LogHyperparams posts the hyperparameter mapping as one event.
func (l *Logger) LogHyperparams(ctx context.Context, hparams map[string]any) error {
	return l.post(ctx, event{Kind: "hparams", Hparams: hparams})
}

// LogMetrics posts one step's metrics as one event.
func (l *Logger) LogMetrics(ctx context.Context, metrics map[string]float64, step int) error {
	return l.post(ctx, event{Kind: "metrics", Step: step, Metrics: metrics})
}
