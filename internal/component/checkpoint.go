package component

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SaveCheckpoint writes a model state dict to path as JSON, creating parent
// directories as needed. The format is shared by the checkpoint callback
// and the trainer's resume/test loading.
func SaveCheckpoint(path string, state map[string][]float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating checkpoint dir: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing checkpoint %s: %w", path, err)
	}
	return nil
}

// LoadCheckpoint reads a model state dict previously written by SaveCheckpoint.
func LoadCheckpoint(path string) (map[string][]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint %s: %w", path, err)
	}
	var state map[string][]float64
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decoding checkpoint %s: %w", path, err)
	}
	return state, nil
}
