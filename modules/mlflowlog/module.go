// Package mlflowlog provides the 'mlflow' experiment logger, backed by an
// MLflow tracking server reached through the Databricks workspace client.
package mlflowlog

import (
	"context"
	"fmt"
	"time"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the logger factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExpLogger("mlflow", New)
}

// Logger records hyperparameters and metrics against one MLflow run. The
// run is created lazily on the first submission so a logger that never
// receives anything leaves no run behind.
type Logger struct {
	client       *databricks.WorkspaceClient
	experimentID string
	runName      string
	runID        string
}

// New constructs the logger from its config block.
func New(ctx context.Context, cfg *config.Node) (component.ExpLogger, error) {
	trackingURI, err := cfg.String("tracking_uri")
	if err != nil {
		return nil, err
	}
	experimentID, err := cfg.String("experiment_id")
	if err != nil {
		return nil, err
	}
	runName, err := cfg.OptString("run_name", "")
	if err != nil {
		return nil, err
	}
	token, err := cfg.OptString("token", "")
	if err != nil {
		return nil, err
	}
	if token == "" {
		// A plain MLflow server ignores the credential but the client
		// refuses to build without one.
		token = "unused"
	}

	client, err := databricks.NewWorkspaceClient(&databricks.Config{
		Host:  trackingURI,
		Token: token,
	})
	if err != nil {
		return nil, fmt.Errorf("creating mlflow client: %w", err)
	}
	return &Logger{
		client:       client,
		experimentID: experimentID,
		runName:      runName,
	}, nil
}

func (l *Logger) ensureRun(ctx context.Context) error {
	if l.runID != "" {
		return nil
	}
	runName := l.runName
	if runName == "" {
		runName = "run-" + time.Now().Format("2006-01-02-15-04-05")
	}
	resp, err := l.client.Experiments.CreateRun(ctx, ml.CreateRun{
		ExperimentId: l.experimentID,
		RunName:      runName,
		StartTime:    time.Now().UnixMilli(),
		Tags: []ml.RunTag{
			{Key: "mlflow.runName", Value: runName},
		},
	})
	if err != nil {
		return fmt.Errorf("creating mlflow run: %w", err)
	}
	l.runID = resp.Run.Info.RunId
	return nil
}

// LogHyperparams records each hyperparameter as an MLflow run parameter.
func (l *Logger) LogHyperparams(ctx context.Context, hparams map[string]any) error {
	if err := l.ensureRun(ctx); err != nil {
		return err
	}
	for key, value := range hparams {
		err := l.client.Experiments.LogParam(ctx, ml.LogParam{
			RunId: l.runID,
			Key:   key,
			Value: fmt.Sprint(value),
		})
		if err != nil {
			return fmt.Errorf("logging parameter %s: %w", key, err)
		}
	}
	return nil
}

// LogMetrics records each metric against the run at the given step.
func (l *Logger) LogMetrics(ctx context.Context, metrics map[string]float64, step int) error {
	if err := l.ensureRun(ctx); err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	for key, value := range metrics {
		err := l.client.Experiments.LogMetric(ctx, ml.LogMetric{
			RunId:     l.runID,
			Key:       key,
			Value:     value,
			Timestamp: now,
			Step:      int64(step),
		})
		if err != nil {
			return fmt.Errorf("logging metric %s: %w", key, err)
		}
	}
	return nil
}
