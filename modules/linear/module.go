// Package linear provides the 'linear' model: a linear regressor trained by
// stochastic gradient descent on mean squared error. The gradient of a
// linear model is analytic, so no autograd machinery is involved.
package linear

import (
	"context"
	"fmt"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the model factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterModel("linear", New)
}

// Model is a linear regressor y = w·x + b.
type Model struct {
	weights *component.Parameter
	bias    *component.Parameter
	lr      float64
}

// New constructs the model from its config block. freeze_bias = true marks
// the bias as non-trainable, which is how frozen parameters enter the
// parameter-count telemetry.
func New(ctx context.Context, cfg *config.Node) (component.Model, error) {
	inFeatures, err := cfg.Int("in_features")
	if err != nil {
		return nil, err
	}
	if inFeatures <= 0 {
		return nil, fmt.Errorf("in_features must be positive, got %d", inFeatures)
	}
	lr, err := cfg.OptFloat("lr", 0.01)
	if err != nil {
		return nil, err
	}
	freezeBias, err := cfg.OptBool("freeze_bias", false)
	if err != nil {
		return nil, err
	}

	weights := make([]float64, inFeatures)
	for i := range weights {
		weights[i] = component.RNG().NormFloat64() * 0.01
	}

	return &Model{
		weights: &component.Parameter{Name: "weights", Values: weights, RequiresGrad: true},
		bias:    &component.Parameter{Name: "bias", Values: []float64{0}, RequiresGrad: !freezeBias},
		lr:      lr,
	}, nil
}

// Parameters returns the model's weight tensors with their gradient flags.
func (m *Model) Parameters() []*component.Parameter {
	return []*component.Parameter{m.weights, m.bias}
}

func (m *Model) forward(features []float64) (float64, error) {
	if len(features) != len(m.weights.Values) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.weights.Values), len(features))
	}
	pred := m.bias.Values[0]
	for i, x := range features {
		pred += m.weights.Values[i] * x
	}
	return pred, nil
}

// TrainingStep runs one batch-gradient update and returns the batch MSE.
func (m *Model) TrainingStep(batch component.Batch) (float64, error) {
	n := len(batch.Features)
	if n == 0 {
		return 0, fmt.Errorf("empty batch")
	}

	gradW := make([]float64, len(m.weights.Values))
	var gradB, loss float64

	for i, features := range batch.Features {
		pred, err := m.forward(features)
		if err != nil {
			return 0, err
		}
		residual := pred - batch.Targets[i]
		loss += residual * residual
		for j, x := range features {
			gradW[j] += 2 * residual * x
		}
		gradB += 2 * residual
	}

	if m.weights.RequiresGrad {
		for j := range m.weights.Values {
			m.weights.Values[j] -= m.lr * gradW[j] / float64(n)
		}
	}
	if m.bias.RequiresGrad {
		m.bias.Values[0] -= m.lr * gradB / float64(n)
	}

	return loss / float64(n), nil
}

// TestStep evaluates one batch and returns its loss and mean absolute error.
func (m *Model) TestStep(batch component.Batch) (map[string]float64, error) {
	n := len(batch.Features)
	if n == 0 {
		return nil, fmt.Errorf("empty batch")
	}

	var loss, mae float64
	for i, features := range batch.Features {
		pred, err := m.forward(features)
		if err != nil {
			return nil, err
		}
		residual := pred - batch.Targets[i]
		loss += residual * residual
		if residual < 0 {
			residual = -residual
		}
		mae += residual
	}

	return map[string]float64{
		"loss": loss / float64(n),
		"mae":  mae / float64(n),
	}, nil
}

// StateDict snapshots the parameter values.
func (m *Model) StateDict() map[string][]float64 {
	state := make(map[string][]float64, 2)
	for _, p := range m.Parameters() {
		state[p.Name] = append([]float64(nil), p.Values...)
	}
	return state
}

// LoadStateDict restores parameter values from a snapshot.
func (m *Model) LoadStateDict(state map[string][]float64) error {
	for _, p := range m.Parameters() {
		values, ok := state[p.Name]
		if !ok {
			return fmt.Errorf("state dict missing parameter %q", p.Name)
		}
		if len(values) != len(p.Values) {
			return fmt.Errorf("parameter %q: state has %d elements, model has %d", p.Name, len(values), len(p.Values))
		}
		copy(p.Values, values)
	}
	return nil
}
