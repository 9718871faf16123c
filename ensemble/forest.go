package ensemble

import (
	"context"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabtune/core/model"
	"github.com/YuminosukeSato/tabtune/core/parallel"
	"github.com/YuminosukeSato/tabtune/metrics"
	"github.com/YuminosukeSato/tabtune/pkg/errors"
	"github.com/YuminosukeSato/tabtune/pkg/log"
)

// RandomForestRegressor averages bootstrap-trained regression trees.
// Setting Mtry equal to the number of features turns it into plain bagging;
// Mtry <= 0 selects the regression default of one third of the features.
type RandomForestRegressor struct {
	model.BaseEstimator

	// NTrees is the ensemble size.
	NTrees int

	// MaxDepth limits each tree; <= 0 means unlimited.
	MaxDepth int

	// MinSamplesSplit is the minimum node size for splitting.
	MinSamplesSplit int

	// Mtry is the number of features sampled per split.
	Mtry int

	// Seed drives bootstrapping and feature sampling. Tree i derives its
	// own seed from it, so parallel and sequential fits are identical.
	Seed uint64

	trees        []*RegressionTree
	oobRMSE      float64
	oobR2        float64
	hasOOB       bool
	nFeatures    int
	trainSamples int

	pool *parallel.Pool
}

// NewRandomForestRegressor creates a forest with sensible defaults:
// 500 trees, unlimited depth, node size 5.
func NewRandomForestRegressor() *RandomForestRegressor {
	return &RandomForestRegressor{
		NTrees:          500,
		MaxDepth:        0,
		MinSamplesSplit: 5,
		Mtry:            0,
	}
}

// WithPool sets the worker pool used for parallel tree fitting.
// Without a pool the trees are fitted sequentially.
func (rf *RandomForestRegressor) WithPool(pool *parallel.Pool) *RandomForestRegressor {
	rf.pool = pool
	return rf
}

// Fit trains the forest and computes the out-of-bag error.
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return errors.NewDimensionError("RandomForestRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("RandomForestRegressor.Fit", 1, yCols, 1)
	}
	if rf.NTrees < 1 {
		return errors.NewConfigIncompatibleError("random-forest", "trees", "ensemble size must be at least 1")
	}

	mtry := rf.Mtry
	if mtry <= 0 {
		mtry = cols / 3
		if mtry < 1 {
			mtry = 1
		}
	}
	if mtry > cols {
		return errors.NewConfigIncompatibleError("random-forest", "mtry",
			"cannot sample more features per split than the data has")
	}

	rf.nFeatures = cols
	rf.trainSamples = rows
	rf.trees = make([]*RegressionTree, rf.NTrees)
	bootstraps := make([][]int, rf.NTrees)

	logger := log.GetLoggerWithName("ensemble.forest")
	logger.Debug("fitting forest",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"trees", rf.NTrees,
		"mtry", mtry,
	)

	fitTree := func(i int) error {
		treeSeed := rf.Seed + uint64(i)*0x9e3779b9
		rng := rand.New(rand.NewPCG(treeSeed, treeSeed))

		sample := make([]int, rows)
		for j := range sample {
			sample[j] = rng.IntN(rows)
		}
		bootstraps[i] = sample

		Xb := mat.NewDense(rows, cols, nil)
		yb := mat.NewDense(rows, 1, nil)
		for j, idx := range sample {
			for k := 0; k < cols; k++ {
				Xb.Set(j, k, X.At(idx, k))
			}
			yb.Set(j, 0, y.At(idx, 0))
		}

		tree := NewRegressionTree(rf.MaxDepth, rf.MinSamplesSplit)
		tree.MaxFeatures = mtry
		tree.Seed = treeSeed
		if err := tree.Fit(Xb, yb); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
		rf.trees[i] = tree
		return nil
	}

	if rf.pool != nil {
		tasks := make([]func() error, rf.NTrees)
		for i := range tasks {
			i := i
			tasks[i] = func() error { return fitTree(i) }
		}
		if err := rf.pool.Run(context.Background(), tasks...); err != nil {
			return err
		}
	} else {
		for i := 0; i < rf.NTrees; i++ {
			if err := fitTree(i); err != nil {
				return err
			}
		}
	}

	rf.computeOOB(X, y, bootstraps)
	rf.SetFitted()
	return nil
}

// computeOOB scores every row on the trees whose bootstrap excluded it.
func (rf *RandomForestRegressor) computeOOB(X, y mat.Matrix, bootstraps [][]int) {
	rows, _ := X.Dims()

	inBag := make([][]bool, rf.NTrees)
	for i, sample := range bootstraps {
		inBag[i] = make([]bool, rows)
		for _, idx := range sample {
			inBag[i][idx] = true
		}
	}

	var yTrue, yPred []float64
	row := mat.NewDense(1, rf.nFeatures, nil)
	for i := 0; i < rows; i++ {
		sum := 0.0
		count := 0
		for k := 0; k < rf.nFeatures; k++ {
			row.Set(0, k, X.At(i, k))
		}
		for t := 0; t < rf.NTrees; t++ {
			if inBag[t][i] {
				continue
			}
			pred, err := rf.trees[t].Predict(row)
			if err != nil {
				continue
			}
			sum += pred.At(0, 0)
			count++
		}
		if count == 0 {
			continue
		}
		yTrue = append(yTrue, y.At(i, 0))
		yPred = append(yPred, sum/float64(count))
	}

	if len(yTrue) < 2 {
		return
	}
	rmse, err := metrics.RMSESlice(yTrue, yPred)
	if err != nil {
		return
	}
	r2, err := metrics.R2Slice(yTrue, yPred)
	if err != nil {
		return
	}
	rf.oobRMSE = rmse
	rf.oobR2 = r2
	rf.hasOOB = true
}

// Predict averages the tree predictions per row.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestRegressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != rf.nFeatures {
		return nil, errors.NewDimensionError("RandomForestRegressor.Predict", rf.nFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	for _, tree := range rf.trees {
		pred, err := tree.Predict(X)
		if err != nil {
			return nil, err
		}
		for i := 0; i < rows; i++ {
			out.Set(i, 0, out.At(i, 0)+pred.At(i, 0))
		}
	}
	n := float64(len(rf.trees))
	for i := 0; i < rows; i++ {
		out.Set(i, 0, out.At(i, 0)/n)
	}
	return out, nil
}

// Score returns R^2 on (X, y).
func (rf *RandomForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	if !rf.IsFitted() {
		return 0, errors.NewNotFittedError("RandomForestRegressor", "Score")
	}
	pred, err := rf.Predict(X)
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

// OOBScores returns the out-of-bag RMSE and R^2. ok is false when too few
// rows were ever out of bag (tiny ensembles).
func (rf *RandomForestRegressor) OOBScores() (rmse, r2 float64, ok bool) {
	return rf.oobRMSE, rf.oobR2, rf.hasOOB
}

// FeatureImportances averages the trees' normalized variance reductions.
func (rf *RandomForestRegressor) FeatureImportances() []float64 {
	out := make([]float64, rf.nFeatures)
	if len(rf.trees) == 0 {
		return out
	}
	for _, tree := range rf.trees {
		for i, v := range tree.FeatureImportances() {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float64(len(rf.trees))
		if math.IsNaN(out[i]) {
			out[i] = 0
		}
	}
	normalize(out)
	return out
}
