package ensemble

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabtune/core/parallel"
	"github.com/YuminosukeSato/tabtune/pkg/errors"
)

// syntheticData builds a regression problem where only the first two of
// four features matter.
func syntheticData(n int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, 4, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0 := rng.Float64() * 10
		x1 := rng.Float64() * 10
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		X.Set(i, 2, rng.Float64())
		X.Set(i, 3, rng.Float64())
		y.Set(i, 0, 3*x0-2*x1+rng.NormFloat64()*0.1)
	}
	return X, y
}

func TestRandomForest_FitsSignal(t *testing.T) {
	X, y := syntheticData(300, 1)

	rf := NewRandomForestRegressor()
	rf.NTrees = 50
	rf.Seed = 7
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	score, err := rf.Score(X, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score < 0.9 {
		t.Errorf("training R2 = %v, want > 0.9", score)
	}
}

func TestRandomForest_Deterministic(t *testing.T) {
	X, y := syntheticData(150, 2)

	predict := func() *mat.Dense {
		rf := NewRandomForestRegressor()
		rf.NTrees = 20
		rf.Seed = 42
		if err := rf.Fit(X, y); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		pred, err := rf.Predict(X)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return pred.(*mat.Dense)
	}

	a := predict()
	b := predict()
	if !mat.EqualApprox(a, b, 1e-15) {
		t.Error("same seed must give identical predictions")
	}
}

func TestRandomForest_ParallelMatchesSequential(t *testing.T) {
	X, y := syntheticData(120, 3)

	seq := NewRandomForestRegressor()
	seq.NTrees = 15
	seq.Seed = 5
	if err := seq.Fit(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seqPred, _ := seq.Predict(X)

	pool := parallel.NewPool(4)
	defer pool.Close()
	par := NewRandomForestRegressor().WithPool(pool)
	par.NTrees = 15
	par.Seed = 5
	if err := par.Fit(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parPred, _ := par.Predict(X)

	if !mat.EqualApprox(seqPred, parPred, 1e-15) {
		t.Error("parallel fit must produce the same model as sequential fit")
	}
}

func TestRandomForest_OOBScores(t *testing.T) {
	X, y := syntheticData(200, 4)

	rf := NewRandomForestRegressor()
	rf.NTrees = 40
	rf.Seed = 11
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rmse, r2, ok := rf.OOBScores()
	if !ok {
		t.Fatal("expected OOB scores for a 40-tree forest")
	}
	if rmse <= 0 {
		t.Errorf("OOB RMSE = %v, want > 0", rmse)
	}
	if r2 < 0.8 {
		t.Errorf("OOB R2 = %v, want > 0.8", r2)
	}
}

func TestRandomForest_ImportancesFindSignal(t *testing.T) {
	X, y := syntheticData(250, 6)

	rf := NewRandomForestRegressor()
	rf.NTrees = 30
	rf.Seed = 13
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	imp := rf.FeatureImportances()
	if len(imp) != 4 {
		t.Fatalf("got %d importances, want 4", len(imp))
	}
	total := 0.0
	for _, v := range imp {
		total += v
	}
	if math.Abs(total-1) > 1e-9 {
		t.Errorf("importances sum to %v, want 1", total)
	}
	// The informative features must dominate the noise features.
	if imp[0] < imp[2] || imp[1] < imp[3] {
		t.Errorf("informative features should outrank noise: %v", imp)
	}
}

func TestRandomForest_MtryTooLarge(t *testing.T) {
	X, y := syntheticData(50, 8)
	rf := NewRandomForestRegressor()
	rf.NTrees = 5
	rf.Mtry = 99

	err := rf.Fit(X, y)
	if err == nil {
		t.Fatal("expected error for mtry > feature count")
	}
	var cfgErr *errors.ConfigIncompatibleError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigIncompatibleError, got %T", err)
	}
	if cfgErr.Param != "mtry" {
		t.Errorf("error should name mtry, got %s", cfgErr.Param)
	}
}

func TestRandomForest_NotFitted(t *testing.T) {
	rf := NewRandomForestRegressor()
	if _, err := rf.Predict(mat.NewDense(1, 4, nil)); err == nil {
		t.Error("expected NotFittedError")
	}
}

func TestRegressionTree_PerfectSplit(t *testing.T) {
	// A single threshold on feature 0 separates two constant groups.
	X := mat.NewDense(6, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
		10, 5,
		11, 5,
		12, 5,
	})
	y := mat.NewDense(6, 1, []float64{1, 1, 1, 9, 9, 9})

	tree := NewRegressionTree(0, 2)
	if err := tree.Fit(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pred, err := tree.Predict(X)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 6; i++ {
		if math.Abs(pred.At(i, 0)-y.At(i, 0)) > 1e-12 {
			t.Errorf("row %d: pred %v, want %v", i, pred.At(i, 0), y.At(i, 0))
		}
	}

	imp := tree.FeatureImportances()
	if imp[0] <= imp[1] {
		t.Errorf("all importance should be on feature 0: %v", imp)
	}
}

func TestRegressionTree_MaxDepthOne(t *testing.T) {
	X, y := syntheticData(100, 9)
	tree := NewRegressionTree(1, 2)
	if err := tree.Fit(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Depth 1 means a single split: at most two distinct predictions.
	pred, _ := tree.Predict(X)
	distinct := make(map[float64]bool)
	for i := 0; i < 100; i++ {
		distinct[pred.At(i, 0)] = true
	}
	if len(distinct) > 2 {
		t.Errorf("depth-1 tree produced %d distinct values", len(distinct))
	}
}
