// Package boosting implements least-squares gradient boosting over
// depth-limited regression trees.
package boosting

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabtune/core/model"
	"github.com/YuminosukeSato/tabtune/ensemble"
	"github.com/YuminosukeSato/tabtune/metrics"
	"github.com/YuminosukeSato/tabtune/pkg/errors"
	"github.com/YuminosukeSato/tabtune/pkg/log"
)

// GradientBoostingRegressor fits shallow trees to the running residuals.
// Each stage's contribution is shrunk by the learning rate.
type GradientBoostingRegressor struct {
	model.BaseEstimator

	// NEstimators is the number of boosting stages.
	NEstimators int

	// LearningRate shrinks each stage's contribution.
	LearningRate float64

	// MaxDepth limits the per-stage trees; typical values are 1-5.
	MaxDepth int

	// MinSamplesSplit is the minimum node size for splitting.
	MinSamplesSplit int

	// Subsample is the fraction of rows sampled (without replacement) per
	// stage; 1.0 uses every row.
	Subsample float64

	// Seed drives the per-stage row subsampling.
	Seed uint64

	initValue float64
	trees     []*ensemble.RegressionTree
	nFeatures int
}

// NewGradientBoostingRegressor creates a booster with the walkthrough's
// defaults: 100 stages, learning rate 0.1, depth-3 trees, no subsampling.
func NewGradientBoostingRegressor() *GradientBoostingRegressor {
	return &GradientBoostingRegressor{
		NEstimators:     100,
		LearningRate:    0.1,
		MaxDepth:        3,
		MinSamplesSplit: 10,
		Subsample:       1.0,
	}
}

// Fit runs the boosting stages on X and y.
func (gb *GradientBoostingRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GradientBoostingRegressor.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return errors.NewDimensionError("GradientBoostingRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("GradientBoostingRegressor.Fit", 1, yCols, 1)
	}
	if gb.NEstimators < 1 {
		return errors.NewConfigIncompatibleError("gradient-boosted-trees", "n_estimators",
			"stage count must be at least 1")
	}
	if gb.LearningRate <= 0 || gb.LearningRate > 1 {
		return errors.NewConfigIncompatibleError("gradient-boosted-trees", "learning_rate",
			"must be in (0, 1]")
	}
	if gb.Subsample <= 0 || gb.Subsample > 1 {
		return errors.NewConfigIncompatibleError("gradient-boosted-trees", "subsample",
			"must be in (0, 1]")
	}

	gb.nFeatures = cols
	gb.trees = make([]*ensemble.RegressionTree, 0, gb.NEstimators)

	// stage 0: predict the mean
	sum := 0.0
	for i := 0; i < rows; i++ {
		sum += y.At(i, 0)
	}
	gb.initValue = sum / float64(rows)

	current := make([]float64, rows)
	for i := range current {
		current[i] = gb.initValue
	}

	rng := rand.New(rand.NewPCG(gb.Seed, gb.Seed^0xda3e39cb94b95bdb))
	residual := mat.NewDense(rows, 1, nil)

	logger := log.GetLoggerWithName("boosting")
	logger.Debug("fitting booster",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"stages", gb.NEstimators,
		"learning_rate", gb.LearningRate,
	)

	for stage := 0; stage < gb.NEstimators; stage++ {
		for i := 0; i < rows; i++ {
			residual.Set(i, 0, y.At(i, 0)-current[i])
		}

		Xs, rs := X, mat.Matrix(residual)
		if gb.Subsample < 1 {
			Xs, rs = gb.subsampleRows(X, residual, rng)
		}

		tree := ensemble.NewRegressionTree(gb.MaxDepth, gb.MinSamplesSplit)
		tree.Seed = gb.Seed + uint64(stage)*0x9e3779b9
		if err := tree.Fit(Xs, rs); err != nil {
			return errors.Wrapf(err, "stage %d", stage)
		}
		gb.trees = append(gb.trees, tree)

		pred, err := tree.Predict(X)
		if err != nil {
			return errors.Wrapf(err, "stage %d", stage)
		}
		for i := 0; i < rows; i++ {
			current[i] += gb.LearningRate * pred.At(i, 0)
		}
	}

	gb.SetFitted()
	return nil
}

// subsampleRows draws a fraction of rows without replacement for one stage.
func (gb *GradientBoostingRegressor) subsampleRows(X mat.Matrix, residual *mat.Dense, rng *rand.Rand) (mat.Matrix, mat.Matrix) {
	rows, cols := X.Dims()
	n := int(gb.Subsample * float64(rows))
	if n < 2 {
		n = 2
	}

	perm := rng.Perm(rows)[:n]
	Xs := mat.NewDense(n, cols, nil)
	rs := mat.NewDense(n, 1, nil)
	for i, idx := range perm {
		for j := 0; j < cols; j++ {
			Xs.Set(i, j, X.At(idx, j))
		}
		rs.Set(i, 0, residual.At(idx, 0))
	}
	return Xs, rs
}

// Predict sums the shrunken stage predictions on top of the base value.
func (gb *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !gb.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingRegressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != gb.nFeatures {
		return nil, errors.NewDimensionError("GradientBoostingRegressor.Predict", gb.nFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, gb.initValue)
	}
	for _, tree := range gb.trees {
		pred, err := tree.Predict(X)
		if err != nil {
			return nil, err
		}
		for i := 0; i < rows; i++ {
			out.Set(i, 0, out.At(i, 0)+gb.LearningRate*pred.At(i, 0))
		}
	}
	return out, nil
}

// Score returns R^2 on (X, y).
func (gb *GradientBoostingRegressor) Score(X, y mat.Matrix) (float64, error) {
	if !gb.IsFitted() {
		return 0, errors.NewNotFittedError("GradientBoostingRegressor", "Score")
	}
	pred, err := gb.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := y.Dims()
	yVec := mat.NewVecDense(rows, nil)
	predVec := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yVec.SetVec(i, y.At(i, 0))
		predVec.SetVec(i, pred.At(i, 0))
	}
	return metrics.R2Score(yVec, predVec)
}

// FeatureImportances sums the stage trees' variance reductions.
func (gb *GradientBoostingRegressor) FeatureImportances() []float64 {
	out := make([]float64, gb.nFeatures)
	for _, tree := range gb.trees {
		for i, v := range tree.FeatureImportances() {
			out[i] += v
		}
	}
	total := 0.0
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out
}
