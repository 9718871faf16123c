// Package ensemble implements the tree-based model families: a CART
// regression tree and the bagged / random-forest ensembles built on it.
package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabtune/core/model"
	"github.com/YuminosukeSato/tabtune/pkg/errors"
)

type treeNode struct {
	// internal nodes
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode

	// leaves
	isLeaf bool
	value  float64
}

// RegressionTree is a CART regression tree splitting on variance reduction.
type RegressionTree struct {
	model.BaseEstimator

	// MaxDepth limits tree depth; <= 0 means unlimited.
	MaxDepth int

	// MinSamplesSplit is the minimum number of rows a node needs to split.
	MinSamplesSplit int

	// MaxFeatures is the number of features considered per split (mtry);
	// <= 0 considers all features.
	MaxFeatures int

	// Seed drives the per-split feature subsampling.
	Seed uint64

	root        *treeNode
	nFeatures   int
	importances []float64
}

// NewRegressionTree creates a tree with the given depth and split limits.
func NewRegressionTree(maxDepth, minSamplesSplit int) *RegressionTree {
	if minSamplesSplit < 2 {
		minSamplesSplit = 2
	}
	return &RegressionTree{
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSamplesSplit,
	}
}

// Fit grows the tree on X and y.
func (t *RegressionTree) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RegressionTree.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return errors.NewDimensionError("RegressionTree.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("RegressionTree.Fit", 1, yCols, 1)
	}
	if rows == 0 {
		return errors.NewValueError("RegressionTree.Fit", "empty training data")
	}

	t.nFeatures = cols
	t.importances = make([]float64, cols)

	indices := make([]int, rows)
	for i := range indices {
		indices[i] = i
	}

	rng := rand.New(rand.NewPCG(t.Seed, t.Seed^0x9e3779b97f4a7c15))
	t.root = t.grow(X, y, indices, 0, rng)
	t.SetFitted()
	return nil
}

func (t *RegressionTree) grow(X, y mat.Matrix, indices []int, depth int, rng *rand.Rand) *treeNode {
	mean := meanTarget(y, indices)

	if len(indices) < t.MinSamplesSplit || (t.MaxDepth > 0 && depth >= t.MaxDepth) {
		return &treeNode{isLeaf: true, value: mean}
	}

	feature, threshold, gain := t.bestSplit(X, y, indices, rng)
	if feature < 0 {
		return &treeNode{isLeaf: true, value: mean}
	}

	var left, right []int
	for _, idx := range indices {
		if X.At(idx, feature) <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &treeNode{isLeaf: true, value: mean}
	}

	t.importances[feature] += gain * float64(len(indices))

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      t.grow(X, y, left, depth+1, rng),
		right:     t.grow(X, y, right, depth+1, rng),
	}
}

// bestSplit searches the (sub)set of features for the split with the largest
// variance reduction. Returns feature -1 when no split improves on the parent.
func (t *RegressionTree) bestSplit(X, y mat.Matrix, indices []int, rng *rand.Rand) (int, float64, float64) {
	parentVar := varianceTarget(y, indices)
	if parentVar <= 0 {
		return -1, 0, 0
	}

	features := t.candidateFeatures(rng)

	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 0.0

	type pair struct{ x, y float64 }
	pairs := make([]pair, len(indices))

	for _, f := range features {
		for i, idx := range indices {
			pairs[i] = pair{x: X.At(idx, f), y: y.At(idx, 0)}
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].x < pairs[j].x })

		// prefix sums over the sorted order allow O(n) split evaluation
		n := float64(len(pairs))
		var totalSum, totalSq float64
		for _, p := range pairs {
			totalSum += p.y
			totalSq += p.y * p.y
		}

		var leftSum, leftSq float64
		for i := 0; i < len(pairs)-1; i++ {
			leftSum += pairs[i].y
			leftSq += pairs[i].y * pairs[i].y
			if pairs[i].x == pairs[i+1].x {
				continue
			}

			nl := float64(i + 1)
			nr := n - nl
			leftVar := leftSq/nl - (leftSum/nl)*(leftSum/nl)
			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			rightVar := rightSq/nr - (rightSum/nr)*(rightSum/nr)

			gain := parentVar - (nl/n)*leftVar - (nr/n)*rightVar
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (pairs[i].x + pairs[i+1].x) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestGain
}

// candidateFeatures returns the features to consider for one split.
func (t *RegressionTree) candidateFeatures(rng *rand.Rand) []int {
	all := make([]int, t.nFeatures)
	for i := range all {
		all[i] = i
	}
	if t.MaxFeatures <= 0 || t.MaxFeatures >= t.nFeatures {
		return all
	}
	rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all[:t.MaxFeatures]
}

// Predict returns one prediction per row of X.
func (t *RegressionTree) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !t.IsFitted() {
		return nil, errors.NewNotFittedError("RegressionTree", "Predict")
	}
	rows, cols := X.Dims()
	if cols != t.nFeatures {
		return nil, errors.NewDimensionError("RegressionTree.Predict", t.nFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		node := t.root
		for !node.isLeaf {
			if X.At(i, node.feature) <= node.threshold {
				node = node.left
			} else {
				node = node.right
			}
		}
		out.Set(i, 0, node.value)
	}
	return out, nil
}

// FeatureImportances returns the normalized total variance reduction
// attributed to each feature.
func (t *RegressionTree) FeatureImportances() []float64 {
	out := make([]float64, len(t.importances))
	copy(out, t.importances)
	normalize(out)
	return out
}

func meanTarget(y mat.Matrix, indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	sum := 0.0
	for _, idx := range indices {
		sum += y.At(idx, 0)
	}
	return sum / float64(len(indices))
}

func varianceTarget(y mat.Matrix, indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	mean := meanTarget(y, indices)
	sum := 0.0
	for _, idx := range indices {
		d := y.At(idx, 0) - mean
		sum += d * d
	}
	return sum / float64(len(indices))
}

func normalize(values []float64) {
	total := 0.0
	for _, v := range values {
		total += v
	}
	if total <= 0 || math.IsNaN(total) {
		return
	}
	for i := range values {
		values[i] /= total
	}
}
