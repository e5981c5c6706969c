// Package csvdata provides the 'csv' data module. It reads a numeric CSV
// file where the last column is the regression target, splits the rows into
// train/validation/test partitions, and serves them as mini-batches.
package csvdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the data module factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterDataModule("csv", New)
}

// DataModule loads and batches one CSV dataset.
type DataModule struct {
	path      string
	batchSize int
	valSplit  float64
	testSplit float64
	shuffle   bool

	loaded bool
	train  []component.Batch
	val    []component.Batch
	test   []component.Batch
}

// New constructs the data module from its config block.
func New(ctx context.Context, cfg *config.Node) (component.DataModule, error) {
	path, err := cfg.String("path")
	if err != nil {
		return nil, err
	}
	batchSize, err := cfg.OptInt("batch_size", 32)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch_size must be positive, got %d", batchSize)
	}
	valSplit, err := cfg.OptFloat("val_split", 0.1)
	if err != nil {
		return nil, err
	}
	testSplit, err := cfg.OptFloat("test_split", 0.1)
	if err != nil {
		return nil, err
	}
	if valSplit < 0 || testSplit < 0 || valSplit+testSplit >= 1 {
		return nil, fmt.Errorf("val_split (%v) and test_split (%v) must be non-negative and sum below 1", valSplit, testSplit)
	}
	shuffle, err := cfg.OptBool("shuffle", true)
	if err != nil {
		return nil, err
	}

	return &DataModule{
		path:      path,
		batchSize: batchSize,
		valSplit:  valSplit,
		testSplit: testSplit,
		shuffle:   shuffle,
	}, nil
}

// Setup loads and partitions the dataset. It is idempotent across stages so
// fit followed by test reuses the same split.
func (d *DataModule) Setup(ctx context.Context, stage component.Stage) error {
	if d.loaded {
		return nil
	}

	features, targets, err := d.read()
	if err != nil {
		return err
	}
	if len(features) == 0 {
		return fmt.Errorf("dataset %s has no usable rows", d.path)
	}

	if d.shuffle {
		component.RNG().Shuffle(len(features), func(i, j int) {
			features[i], features[j] = features[j], features[i]
			targets[i], targets[j] = targets[j], targets[i]
		})
	}

	n := len(features)
	nTest := int(float64(n) * d.testSplit)
	nVal := int(float64(n) * d.valSplit)
	nTrain := n - nVal - nTest

	d.train = d.batch(features[:nTrain], targets[:nTrain])
	d.val = d.batch(features[nTrain:nTrain+nVal], targets[nTrain:nTrain+nVal])
	d.test = d.batch(features[nTrain+nVal:], targets[nTrain+nVal:])
	d.loaded = true
	return nil
}

// read parses the CSV file into feature rows and targets. A non-numeric
// first row is treated as a header and skipped.
func (d *DataModule) read() ([][]float64, []float64, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading dataset %s: %w", d.path, err)
	}

	var features [][]float64
	var targets []float64
	for i, record := range records {
		if len(record) < 2 {
			return nil, nil, fmt.Errorf("%s row %d: need at least one feature and a target", d.path, i+1)
		}
		row := make([]float64, len(record))
		ok := true
		for j, cell := range record {
			row[j], err = strconv.ParseFloat(cell, 64)
			if err != nil {
				ok = false
				break
			}
		}
		if !ok {
			if i == 0 {
				continue // header row
			}
			return nil, nil, fmt.Errorf("%s row %d: non-numeric value", d.path, i+1)
		}
		features = append(features, row[:len(row)-1])
		targets = append(targets, row[len(row)-1])
	}
	return features, targets, nil
}

func (d *DataModule) batch(features [][]float64, targets []float64) []component.Batch {
	var batches []component.Batch
	for start := 0; start < len(features); start += d.batchSize {
		end := start + d.batchSize
		if end > len(features) {
			end = len(features)
		}
		batches = append(batches, component.Batch{
			Features: features[start:end],
			Targets:  targets[start:end],
		})
	}
	return batches
}

// TrainBatches returns the training partition.
func (d *DataModule) TrainBatches() []component.Batch { return d.train }

// ValBatches returns the validation partition.
func (d *DataModule) ValBatches() []component.Batch { return d.val }

// TestBatches returns the test partition.
func (d *DataModule) TestBatches() []component.Batch { return d.test }
