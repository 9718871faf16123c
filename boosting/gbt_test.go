package boosting

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabtune/pkg/errors"
)

func regressionProblem(n int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0 := rng.Float64() * 5
		x1 := rng.Float64() * 5
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		X.Set(i, 2, rng.Float64())
		y.Set(i, 0, x0*x0-3*x1+rng.NormFloat64()*0.05)
	}
	return X, y
}

func TestGradientBoosting_FitsNonlinearSignal(t *testing.T) {
	X, y := regressionProblem(300, 1)

	gb := NewGradientBoostingRegressor()
	gb.NEstimators = 200
	gb.Seed = 3
	if err := gb.Fit(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	score, err := gb.Score(X, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score < 0.95 {
		t.Errorf("training R2 = %v, want > 0.95", score)
	}
}

func TestGradientBoosting_MoreStagesReduceTrainingError(t *testing.T) {
	X, y := regressionProblem(200, 2)

	fitScore := func(stages int) float64 {
		gb := NewGradientBoostingRegressor()
		gb.NEstimators = stages
		gb.Seed = 9
		if err := gb.Fit(X, y); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		score, err := gb.Score(X, y)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return score
	}

	few := fitScore(10)
	many := fitScore(150)
	if many <= few {
		t.Errorf("score with 150 stages (%v) should beat 10 stages (%v)", many, few)
	}
}

func TestGradientBoosting_Deterministic(t *testing.T) {
	X, y := regressionProblem(150, 4)

	predict := func() mat.Matrix {
		gb := NewGradientBoostingRegressor()
		gb.NEstimators = 50
		gb.Subsample = 0.8
		gb.Seed = 21
		if err := gb.Fit(X, y); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		pred, err := gb.Predict(X)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return pred
	}

	if !mat.EqualApprox(predict(), predict(), 1e-15) {
		t.Error("same seed must give identical predictions")
	}
}

func TestGradientBoosting_InvalidConfig(t *testing.T) {
	X, y := regressionProblem(50, 5)

	cases := []struct {
		name  string
		tweak func(*GradientBoostingRegressor)
		param string
	}{
		{"zero stages", func(g *GradientBoostingRegressor) { g.NEstimators = 0 }, "n_estimators"},
		{"bad learning rate", func(g *GradientBoostingRegressor) { g.LearningRate = 0 }, "learning_rate"},
		{"bad subsample", func(g *GradientBoostingRegressor) { g.Subsample = 1.5 }, "subsample"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gb := NewGradientBoostingRegressor()
			tc.tweak(gb)
			err := gb.Fit(X, y)
			if err == nil {
				t.Fatal("expected ConfigIncompatibleError")
			}
			var cfgErr *errors.ConfigIncompatibleError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigIncompatibleError, got %T", err)
			}
			if cfgErr.Param != tc.param {
				t.Errorf("error names %s, want %s", cfgErr.Param, tc.param)
			}
		})
	}
}

func TestGradientBoosting_Importances(t *testing.T) {
	X, y := regressionProblem(250, 6)

	gb := NewGradientBoostingRegressor()
	gb.NEstimators = 80
	gb.Seed = 17
	if err := gb.Fit(X, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	imp := gb.FeatureImportances()
	total := 0.0
	for _, v := range imp {
		total += v
	}
	if math.Abs(total-1) > 1e-9 {
		t.Errorf("importances sum to %v, want 1", total)
	}
	if imp[2] > imp[0] || imp[2] > imp[1] {
		t.Errorf("noise feature should rank last: %v", imp)
	}
}

func TestGradientBoosting_NotFitted(t *testing.T) {
	gb := NewGradientBoostingRegressor()
	if _, err := gb.Predict(mat.NewDense(1, 3, nil)); err == nil {
		t.Error("expected NotFittedError")
	}
}
