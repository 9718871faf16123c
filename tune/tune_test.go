package tune

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabtune/core/parallel"
	"github.com/YuminosukeSato/tabtune/dataset"
	"github.com/YuminosukeSato/tabtune/pkg/errors"
	"github.com/YuminosukeSato/tabtune/resample"
)

// signalTable builds a small table whose target depends on x0 and x1 and
// ignores x2.
func signalTable(t *testing.T, rows int, seed uint64) *dataset.Table {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed))
	data := mat.NewDense(rows, 4, nil)
	for i := 0; i < rows; i++ {
		x0 := rng.Float64() * 10
		x1 := rng.Float64() * 10
		x2 := rng.Float64() * 10
		y := 3*x0 - 2*x1 + rng.NormFloat64()*0.2
		data.SetRow(i, []float64{x0, x1, x2, y})
	}
	tbl, err := dataset.NewTable([]string{"x0", "x1", "x2", "y"}, data)
	require.NoError(t, err)
	return tbl
}

func TestGridPoints(t *testing.T) {
	g := NewGrid().
		Add("trees", 100, 200).
		Add("mtry", 2, 3, 4)

	points := g.Points()
	require.Len(t, points, 6)
	assert.Equal(t, 6, g.Size())

	// First parameter varies slowest.
	assert.Equal(t, Params{"trees": 100, "mtry": 2}, points[0])
	assert.Equal(t, Params{"trees": 100, "mtry": 4}, points[2])
	assert.Equal(t, Params{"trees": 200, "mtry": 2}, points[3])
	assert.Equal(t, Params{"trees": 200, "mtry": 4}, points[5])
}

func TestGridRandomPoints(t *testing.T) {
	g := NewGrid().
		Add("trees", 100, 200, 300, 400).
		Add("mtry", 2, 3, 4)

	a := g.RandomPoints(5, 7)
	b := g.RandomPoints(5, 7)
	require.Len(t, a, 5)
	assert.Equal(t, a, b, "same seed must draw the same points")

	c := g.RandomPoints(100, 7)
	assert.Len(t, c, g.Size(), "oversized draw returns the full grid")
}

func TestParamsLabel(t *testing.T) {
	p := Params{"trees": 500, "learning_rate": 0.05}
	assert.Equal(t, "learning_rate=0.05,trees=500", p.Label())
	assert.Equal(t, "default", Params{}.Label())
}

func TestTuneSelectsBetterCandidate(t *testing.T) {
	tbl := signalTable(t, 90, 1)
	tuner := &Tuner{
		Family:     FamilyGradientBoosting,
		Resampling: resample.KFoldSpec(3, 1),
		Seed:       42,
	}
	candidates := []Params{
		{"n_estimators": 1, "max_depth": 2},
		{"n_estimators": 60, "max_depth": 3},
	}
	res, err := tuner.Tune(context.Background(), tbl, "y", candidates)
	require.NoError(t, err)

	assert.Equal(t, 1, res.BestIndex, "the deeper, longer boost should win")
	require.Len(t, res.Candidates, 2)
	assert.Len(t, res.Candidates[0].RMSE, 3, "3-fold, 1 repeat gives 3 scores")
	assert.Less(t, res.Candidates[1].MeanRMSE(), res.Candidates[0].MeanRMSE())
	assert.Equal(t, []string{"x0", "x1", "x2"}, res.FeatureNames)
	require.NotNil(t, res.Model)
	assert.Equal(t, "max_depth=3,n_estimators=60", res.Best().Label)
}

func TestTuneRepeatedKFoldScoreCount(t *testing.T) {
	tbl := signalTable(t, 60, 2)
	tuner := &Tuner{
		Family:     FamilyRandomForest,
		Resampling: resample.KFoldSpec(5, 2),
		Seed:       9,
	}
	res, err := tuner.Tune(context.Background(), tbl, "y", []Params{{"trees": 25}})
	require.NoError(t, err)
	assert.Len(t, res.Best().RMSE, 10, "5 folds x 2 repeats")
	assert.Len(t, res.Best().R2, 10)
}

func TestTuneOOB(t *testing.T) {
	tbl := signalTable(t, 80, 3)
	for _, family := range []Family{FamilyBaggedTrees, FamilyRandomForest} {
		tuner := &Tuner{
			Family:     family,
			Resampling: resample.OOBSpec(),
			Seed:       11,
		}
		res, err := tuner.Tune(context.Background(), tbl, "y", []Params{{"trees": 60}})
		require.NoError(t, err, family)
		assert.Len(t, res.Best().RMSE, 1, "OOB yields a single score")
		assert.Greater(t, res.Best().R2[0], 0.5, family)
	}
}

func TestTuneOOBUnsupportedFamily(t *testing.T) {
	tbl := signalTable(t, 40, 4)
	tuner := &Tuner{
		Family:     FamilyGradientBoosting,
		Resampling: resample.OOBSpec(),
		Seed:       1,
	}
	_, err := tuner.Tune(context.Background(), tbl, "y", []Params{{"n_estimators": 10}})
	require.Error(t, err)
	var cfgErr *errors.ConfigIncompatibleError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "resampling", cfgErr.Param)
}

func TestTuneUnknownParam(t *testing.T) {
	tbl := signalTable(t, 40, 5)
	tuner := &Tuner{
		Family:     FamilyRandomForest,
		Resampling: resample.KFoldSpec(3, 1),
	}
	_, err := tuner.Tune(context.Background(), tbl, "y", []Params{{"learning_rate": 0.1}})
	require.Error(t, err)
	var cfgErr *errors.ConfigIncompatibleError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "learning_rate", cfgErr.Param)
}

func TestTuneNoCandidates(t *testing.T) {
	tbl := signalTable(t, 40, 6)
	tuner := &Tuner{Family: FamilyRandomForest, Resampling: resample.KFoldSpec(3, 1)}
	_, err := tuner.Tune(context.Background(), tbl, "y", nil)
	require.Error(t, err)
	var cfgErr *errors.ConfigIncompatibleError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestTuneDeterministic(t *testing.T) {
	tbl := signalTable(t, 60, 7)
	run := func() *Result {
		tuner := &Tuner{
			Family:     FamilyRandomForest,
			Resampling: resample.KFoldSpec(4, 1),
			Seed:       77,
		}
		res, err := tuner.Tune(context.Background(), tbl, "y", []Params{{"trees": 30}})
		require.NoError(t, err)
		return res
	}
	a, b := run(), run()
	assert.Equal(t, a.Candidates[0].RMSE, b.Candidates[0].RMSE)
	assert.Equal(t, a.Candidates[0].R2, b.Candidates[0].R2)
}

func TestTunePoolMatchesSequential(t *testing.T) {
	tbl := signalTable(t, 60, 8)
	pool := parallel.NewPool(4)
	defer pool.Close()

	run := func(p *parallel.Pool) *Result {
		tuner := &Tuner{
			Family:     FamilyGradientBoosting,
			Resampling: resample.KFoldSpec(4, 2),
			Seed:       5,
			Pool:       p,
		}
		res, err := tuner.Tune(context.Background(), tbl, "y", []Params{{"n_estimators": 20}})
		require.NoError(t, err)
		return res
	}
	seq := run(nil)
	par := run(pool)
	assert.Equal(t, seq.Candidates[0].RMSE, par.Candidates[0].RMSE,
		"fold scores must not depend on the worker pool")
}

func TestSweepKeepsOrder(t *testing.T) {
	tbl := signalTable(t, 60, 9)
	tuner := &Tuner{
		Family:     FamilyRandomForest,
		Resampling: resample.KFoldSpec(3, 1),
		Seed:       13,
	}
	values := []float64{10, 25, 40}
	sw, err := tuner.Sweep(context.Background(), tbl, "y", "trees", values, Params{"mtry": 2})
	require.NoError(t, err)

	assert.Equal(t, "trees", sw.Parameter)
	assert.Equal(t, values, sw.Values)
	require.Len(t, sw.Results, 3)
	assert.Equal(t, "mtry=2,trees=10", sw.Results[0].Label)
	assert.Equal(t, "mtry=2,trees=25", sw.Results[1].Label)
	assert.Equal(t, "mtry=2,trees=40", sw.Results[2].Label)
}

func TestSweepUnknownParam(t *testing.T) {
	tbl := signalTable(t, 40, 10)
	tuner := &Tuner{Family: FamilyNeuralNet, Resampling: resample.KFoldSpec(3, 1)}
	_, err := tuner.Sweep(context.Background(), tbl, "y", "mtry", []float64{1, 2}, nil)
	require.Error(t, err)
	var cfgErr *errors.ConfigIncompatibleError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestEvaluate(t *testing.T) {
	tbl := signalTable(t, 100, 11)
	tuner := &Tuner{
		Family:     FamilyRandomForest,
		Resampling: resample.KFoldSpec(3, 1),
		Seed:       21,
	}
	res, err := tuner.Tune(context.Background(), tbl, "y", []Params{{"trees": 60}})
	require.NoError(t, err)

	ev, err := res.Evaluate(tbl)
	require.NoError(t, err)
	assert.Len(t, ev.Predicted, 100)
	assert.Len(t, ev.Actual, 100)
	assert.Greater(t, ev.R2, 0.8)

	require.Len(t, ev.Importance, 3)
	sum := 0.0
	for i, e := range ev.Importance {
		sum += e.Importance
		if i > 0 {
			assert.LessOrEqual(t, e.Importance, ev.Importance[i-1].Importance)
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.NotEqual(t, "x2", ev.Importance[0].Feature, "the noise feature cannot dominate")
}

func TestEvaluateSchemaMismatch(t *testing.T) {
	tbl := signalTable(t, 60, 12)
	tuner := &Tuner{
		Family:     FamilyRandomForest,
		Resampling: resample.KFoldSpec(3, 1),
		Seed:       3,
	}
	res, err := tuner.Tune(context.Background(), tbl, "y", []Params{{"trees": 20}})
	require.NoError(t, err)

	renamed := mat.NewDense(10, 4, nil)
	other, err := dataset.NewTable([]string{"x0", "x1", "zz", "y"}, renamed)
	require.NoError(t, err)

	_, err = res.Evaluate(other)
	require.Error(t, err)
	var schemaErr *errors.SchemaMismatchError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"x0", "x1", "x2"}, schemaErr.Expected)
	assert.Equal(t, []string{"x0", "x1", "zz"}, schemaErr.Got)
}

func TestPoorFitWarning(t *testing.T) {
	// Pure-noise target: no family can fit it, so the tuner must warn.
	rng := rand.New(rand.NewPCG(99, 99))
	data := mat.NewDense(60, 3, nil)
	for i := 0; i < 60; i++ {
		data.SetRow(i, []float64{rng.Float64(), rng.Float64(), rng.NormFloat64()})
	}
	tbl, err := dataset.NewTable([]string{"x0", "x1", "y"}, data)
	require.NoError(t, err)

	var captured []error
	errors.SetWarningHandler(func(w error) { captured = append(captured, w) })
	defer errors.SetWarningHandler(nil)

	tuner := &Tuner{
		Family:     FamilyRandomForest,
		Resampling: resample.KFoldSpec(3, 1),
		Seed:       1,
	}
	_, err = tuner.Tune(context.Background(), tbl, "y", []Params{{"trees": 25}})
	require.NoError(t, err)

	require.NotEmpty(t, captured, "a noise fit must emit a quality warning")
	var warn *errors.FitQualityWarning
	require.ErrorAs(t, captured[0], &warn)
	assert.Equal(t, string(FamilyRandomForest), warn.Family)
	assert.Equal(t, "r2", warn.Metric)
}
