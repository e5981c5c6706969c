package csvdata_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/modules/csvdata"
)

func attr(t *testing.T, name, src string) *config.Node {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), "expression parsing failed: %s", diags.Error())
	return config.NewAttr(name, expr, src)
}

// writeDataset writes a CSV with n rows of y = 3x + 1, with a header row.
func writeDataset(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("x,y\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d,%d\n", i, 3*i+1)
	}
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func newDataModule(t *testing.T, path string, extra ...*config.Node) component.DataModule {
	t.Helper()
	attrs := append([]*config.Node{attr(t, "path", `"`+path+`"`)}, extra...)
	dm, err := csvdata.New(context.Background(), config.NewMapping("data", attrs...))
	require.NoError(t, err)
	return dm
}

func countExamples(batches []component.Batch) int {
	n := 0
	for _, b := range batches {
		n += len(b.Targets)
	}
	return n
}

func TestSetup_SplitsAndBatches(t *testing.T) {
	path := writeDataset(t, 100)
	dm := newDataModule(t, path,
		attr(t, "batch_size", "16"),
		attr(t, "val_split", "0.2"),
		attr(t, "test_split", "0.1"),
		attr(t, "shuffle", "false"),
	)

	require.NoError(t, dm.Setup(context.Background(), component.StageFit))

	assert.Equal(t, 70, countExamples(dm.TrainBatches()))
	assert.Equal(t, 20, countExamples(dm.ValBatches()))
	assert.Equal(t, 10, countExamples(dm.TestBatches()))

	// 70 train rows at batch size 16: four full batches plus a remainder.
	require.Len(t, dm.TrainBatches(), 5)
	assert.Len(t, dm.TrainBatches()[4].Targets, 6)
}

func TestSetup_IsIdempotentAcrossStages(t *testing.T) {
	path := writeDataset(t, 50)
	dm := newDataModule(t, path, attr(t, "shuffle", "false"))

	require.NoError(t, dm.Setup(context.Background(), component.StageFit))
	firstTrain := dm.TrainBatches()

	require.NoError(t, dm.Setup(context.Background(), component.StageTest))
	assert.Equal(t, firstTrain, dm.TrainBatches(), "second setup must reuse the split")
}

func TestRead_SkipsHeaderRow(t *testing.T) {
	path := writeDataset(t, 10)
	dm := newDataModule(t, path,
		attr(t, "val_split", "0"),
		attr(t, "test_split", "0"),
		attr(t, "shuffle", "false"),
	)

	require.NoError(t, dm.Setup(context.Background(), component.StageFit))
	require.Equal(t, 10, countExamples(dm.TrainBatches()))

	// First data row of y = 3x + 1 is (0, 1); header did not leak in.
	first := dm.TrainBatches()[0]
	assert.Equal(t, []float64{0}, first.Features[0])
	assert.Equal(t, 1.0, first.Targets[0])
}

func TestRead_NonNumericDataRowFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("x,y\n1,2\noops,3\n"), 0o644))
	dm := newDataModule(t, path)

	err := dm.Setup(context.Background(), component.StageFit)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-numeric")
}

func TestShuffle_IsSeedReproducible(t *testing.T) {
	path := writeDataset(t, 40)

	load := func() []component.Batch {
		component.SeedEverything(123)
		dm := newDataModule(t, path, attr(t, "batch_size", "8"))
		require.NoError(t, dm.Setup(context.Background(), component.StageFit))
		return dm.TrainBatches()
	}

	assert.Equal(t, load(), load())
}

func TestNew_Validation(t *testing.T) {
	_, err := csvdata.New(context.Background(), config.NewMapping("data"))
	require.Error(t, err, "path is required")

	_, err = csvdata.New(context.Background(), config.NewMapping("data",
		attr(t, "path", `"x.csv"`),
		attr(t, "batch_size", "0"),
	))
	require.Error(t, err)

	_, err = csvdata.New(context.Background(), config.NewMapping("data",
		attr(t, "path", `"x.csv"`),
		attr(t, "val_split", "0.6"),
		attr(t, "test_split", "0.5"),
	))
	require.Error(t, err)
}

func TestSetup_MissingFile(t *testing.T) {
	dm := newDataModule(t, "/does/not/exist.csv")
	require.Error(t, dm.Setup(context.Background(), component.StageFit))
}
