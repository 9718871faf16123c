// Package split partitions a table into training and evaluation rows,
// stratified over quantile bins of the target column. The split is
// deterministic for a fixed seed.
package split

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/tabtune/dataset"
	"github.com/YuminosukeSato/tabtune/pkg/errors"
)

// Split holds the disjoint row-index sets of one train/test partition.
// Indices are ascending. A Split is immutable after creation.
type Split struct {
	TrainIndices []int
	TestIndices  []int
}

// Options configures a stratified split.
type Options struct {
	// TrainFraction is the fraction of rows assigned to training, in (0,1).
	TrainFraction float64

	// Bins is the number of target quantile bins used for stratification.
	// Bins <= 0 selects 5.
	Bins int

	// Seed drives the shuffle. The same seed, table and options always
	// reproduce the identical split.
	Seed uint64
}

// Stratified partitions the table's rows so the target distribution is
// approximately preserved between train and test.
func Stratified(t *dataset.Table, target string, opts Options) (*Split, error) {
	if opts.TrainFraction <= 0 || opts.TrainFraction >= 1 {
		return nil, errors.NewValueError("split.Stratified", "train fraction must be in (0, 1)")
	}
	bins := opts.Bins
	if bins <= 0 {
		bins = 5
	}

	values, err := t.Column(target)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if math.IsNaN(v) {
			return nil, errors.NewDataShapeError(target, "missing value in target column")
		}
	}

	edges := binEdges(values, bins)

	// Group row indices by bin.
	groups := make([][]int, bins)
	for i, v := range values {
		groups[binOf(v, edges)] = append(groups[binOf(v, edges)], i)
	}

	r := rand.New(rand.NewPCG(opts.Seed, opts.Seed))

	var train, test []int
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		shuffled := append([]int(nil), group...)
		r.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		nTrain := int(math.Round(opts.TrainFraction * float64(len(shuffled))))
		if nTrain == len(shuffled) && len(shuffled) > 1 {
			nTrain--
		}
		train = append(train, shuffled[:nTrain]...)
		test = append(test, shuffled[nTrain:]...)
	}

	sort.Ints(train)
	sort.Ints(test)
	return &Split{TrainIndices: train, TestIndices: test}, nil
}

// binEdges returns the interior quantile edges for the requested bin count.
func binEdges(values []float64, bins int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	edges := make([]float64, 0, bins-1)
	for i := 1; i < bins; i++ {
		q := stat.Quantile(float64(i)/float64(bins), stat.Empirical, sorted, nil)
		edges = append(edges, q)
	}
	return edges
}

// binOf returns the index of the bin v falls in.
func binOf(v float64, edges []float64) int {
	bin := 0
	for _, e := range edges {
		if v > e {
			bin++
		}
	}
	return bin
}

// TrainTable returns the training partition of a table.
func (s *Split) TrainTable(t *dataset.Table) (*dataset.Table, error) {
	return t.SelectRows(s.TrainIndices)
}

// TestTable returns the evaluation partition of a table.
func (s *Split) TestTable(t *dataset.Table) (*dataset.Table, error) {
	return t.SelectRows(s.TestIndices)
}
