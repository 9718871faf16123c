package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/tabtune/pkg/errors"
	"github.com/YuminosukeSato/tabtune/tune"
)

// quickConfig keeps the run small enough for tests.
func quickConfig(outputDir string) Config {
	return Config{
		Seed:          42,
		TrainFraction: 0.7,
		Workers:       2,
		Metric:        "rmse",
		OutputDir:     outputDir,
		Families: []FamilyConfig{
			{
				Family:     string(tune.FamilyRandomForest),
				Grid:       map[string][]float64{"trees": {25}},
				Resampling: ResamplingConfig{Method: "oob"},
			},
			{
				Family:     string(tune.FamilyGradientBoosting),
				Grid:       map[string][]float64{"n_estimators": {30}},
				Resampling: ResamplingConfig{Method: "kfold", Folds: 3, Repeats: 1},
			},
		},
	}
}

func TestRunCompletes(t *testing.T) {
	out := t.TempDir()
	report, err := Run(context.Background(), quickConfig(out))
	require.NoError(t, err)

	assert.Empty(t, report.Failed())
	require.Len(t, report.Families, 2)

	// 506 rows at 0.7 give roughly 354/152.
	assert.InDelta(t, 354, report.TrainRows, 2)
	assert.InDelta(t, 152, report.TestRows, 2)
	assert.Equal(t, 506, report.TrainRows+report.TestRows)

	require.NotNil(t, report.Inspection)
	assert.Zero(t, report.Inspection.TotalMissing())

	for _, fr := range report.Families {
		require.NoError(t, fr.Err, fr.Family)
		require.NotNil(t, fr.Tuning)
		require.NotNil(t, fr.HoldOut)
		assert.Greater(t, fr.HoldOut.R2, 0.5, fr.Family)
		assert.NotEmpty(t, fr.PlotPaths)
		for _, path := range fr.PlotPaths {
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Greater(t, info.Size(), int64(0))
		}
	}

	_, err = os.Stat(filepath.Join(out, "target_histogram.png"))
	assert.NoError(t, err, "the target histogram is always rendered")
}

func TestRunContinuesAfterFamilyFailure(t *testing.T) {
	cfg := quickConfig(t.TempDir())
	// An unknown hyperparameter makes the first family fail.
	cfg.Families[0].Grid = map[string][]float64{"learning_rate": {0.1}}

	report, err := Run(context.Background(), cfg)
	require.NoError(t, err, "one family failing must not abort the run")

	require.Len(t, report.Families, 2)
	require.Error(t, report.Families[0].Err)
	var cfgErr *errors.ConfigIncompatibleError
	assert.ErrorAs(t, report.Families[0].Err, &cfgErr)

	assert.NoError(t, report.Families[1].Err)
	assert.Equal(t, []tune.Family{tune.FamilyRandomForest}, report.Failed())
}

func TestRunNeuralNetStandardized(t *testing.T) {
	cfg := Config{
		Seed:          7,
		TrainFraction: 0.7,
		Metric:        "rmse",
		Families: []FamilyConfig{
			{
				Family: string(tune.FamilyNeuralNet),
				Grid: map[string][]float64{
					"hidden1":       {5},
					"learning_rate": {0.05},
					"epochs":        {2000},
				},
				Resampling: ResamplingConfig{Method: "kfold", Folds: 3, Repeats: 1},
			},
		},
	}
	report, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, report.Families, 1)
	fr := report.Families[0]
	require.NoError(t, fr.Err)
	assert.Greater(t, fr.HoldOut.R2, 0.2, "the net should beat the mean predictor on scaled inputs")
	assert.Nil(t, fr.HoldOut.Importance, "nets expose no importances")
}

func TestRunSweep(t *testing.T) {
	cfg := quickConfig(t.TempDir())
	cfg.Families = cfg.Families[:1]
	cfg.Families[0].Sweep = &SweepConfig{Param: "trees", Values: []float64{10, 20}}

	report, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	fr := report.Families[0]
	require.NoError(t, fr.Err)
	require.NotNil(t, fr.Sweep)
	assert.Equal(t, []float64{10, 20}, fr.Sweep.Values)
	require.Len(t, fr.Sweep.Results, 2)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.TrainFraction = 1.5
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Metric = "accuracy"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Families = []FamilyConfig{{Family: "linear-regression"}}
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Families = nil
	assert.Error(t, bad.Validate())
}

func TestLoadConfig(t *testing.T) {
	raw := `
seed: 99
train_fraction: 0.8
metric: r2
families:
  - family: random-forest
    search: random
    draws: 3
    grid:
      trees: [100, 200]
      mtry: [2, 4]
    resampling:
      method: kfold
      folds: 5
      repeats: 2
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, 0.8, cfg.TrainFraction)
	assert.Equal(t, tune.MetricR2, cfg.metric())
	require.Len(t, cfg.Families, 1)
	assert.Equal(t, "random", cfg.Families[0].Search)
	assert.Equal(t, 3, cfg.Families[0].Draws)

	cands, err := cfg.Families[0].candidates(1)
	require.NoError(t, err)
	assert.Len(t, cands, 3)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestCandidatesDefaultWhenNoGrid(t *testing.T) {
	fc := FamilyConfig{Family: string(tune.FamilyBaggedTrees)}
	cands, err := fc.candidates(0)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Empty(t, cands[0])
}
