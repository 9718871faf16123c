package viz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/tabtune/dataset"
	"github.com/YuminosukeSato/tabtune/tune"
)

func assertPNG(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestTargetHistogram(t *testing.T) {
	bins := []dataset.HistogramBin{
		{Lower: 5, Upper: 15, Count: 40},
		{Lower: 15, Upper: 25, Count: 320},
		{Lower: 25, Upper: 35, Count: 120},
		{Lower: 35, Upper: 50, Count: 26},
	}
	path := filepath.Join(t.TempDir(), "hist.png")
	require.NoError(t, TargetHistogram(bins, "medv", path))
	assertPNG(t, path)

	err := TargetHistogram(nil, "medv", path)
	assert.Error(t, err, "empty histogram must be rejected")
}

func TestImportanceBars(t *testing.T) {
	entries := []tune.ImportanceEntry{
		{Feature: "rm", Importance: 0.45},
		{Feature: "lstat", Importance: 0.35},
		{Feature: "dis", Importance: 0.20},
	}
	path := filepath.Join(t.TempDir(), "importance.png")
	require.NoError(t, ImportanceBars(entries, "random-forest importance", path))
	assertPNG(t, path)
}

func TestPredictedVsActual(t *testing.T) {
	ev := &tune.Evaluation{
		Family:    tune.FamilyRandomForest,
		Actual:    []float64{10, 20, 30, 40},
		Predicted: []float64{12, 19, 28, 43},
	}
	path := filepath.Join(t.TempDir(), "pred.png")
	require.NoError(t, PredictedVsActual(ev, "medv", path))
	assertPNG(t, path)

	bad := &tune.Evaluation{Actual: []float64{1}, Predicted: []float64{1, 2}}
	assert.Error(t, PredictedVsActual(bad, "medv", path))
}

func TestSweepProfile(t *testing.T) {
	sw := &tune.SweepResult{
		Family:    tune.FamilyRandomForest,
		Parameter: "trees",
		Values:    []float64{1000, 1500, 2000},
		Results: []tune.CandidateResult{
			{RMSE: []float64{4.1, 4.3}, R2: []float64{0.81, 0.79}},
			{RMSE: []float64{4.0, 4.2}, R2: []float64{0.82, 0.80}},
			{RMSE: []float64{4.0, 4.1}, R2: []float64{0.82, 0.81}},
		},
	}
	path := filepath.Join(t.TempDir(), "sweep.png")
	require.NoError(t, SweepProfile(sw, tune.MetricRMSE, path))
	assertPNG(t, path)
}
