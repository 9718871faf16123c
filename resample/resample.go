// Package resample generates the fold assignments used to estimate
// out-of-sample performance: repeated k-fold cross-validation and the
// out-of-bag specification for bagged ensembles.
package resample

import (
	"fmt"
	"math/rand/v2"

	"github.com/YuminosukeSato/tabtune/pkg/errors"
)

// Method selects how candidate configurations are evaluated.
type Method int

const (
	// MethodKFold evaluates candidates with repeated k-fold cross-validation.
	MethodKFold Method = iota
	// MethodOOB evaluates candidates with the ensemble's out-of-bag error.
	// Only bagged families support it.
	MethodOOB
)

// String returns the method name.
func (m Method) String() string {
	switch m {
	case MethodKFold:
		return "kfold"
	case MethodOOB:
		return "oob"
	default:
		return "unknown"
	}
}

// Spec describes one resampling scheme.
type Spec struct {
	Method  Method
	Folds   int // k, for MethodKFold
	Repeats int // repeat count, for MethodKFold
}

// KFoldSpec returns a repeated k-fold spec.
func KFoldSpec(folds, repeats int) Spec {
	return Spec{Method: MethodKFold, Folds: folds, Repeats: repeats}
}

// OOBSpec returns an out-of-bag spec.
func OOBSpec() Spec {
	return Spec{Method: MethodOOB}
}

// Validate checks the spec against the number of available rows.
func (s Spec) Validate(nRows int) error {
	switch s.Method {
	case MethodKFold:
		if s.Folds < 2 {
			return errors.NewValueError("resample.Spec", "k-fold requires at least 2 folds")
		}
		if s.Repeats < 1 {
			return errors.NewValueError("resample.Spec", "repeat count must be at least 1")
		}
		if s.Folds > nRows {
			return errors.NewValueError("resample.Spec",
				fmt.Sprintf("cannot split %d rows into %d folds", nRows, s.Folds))
		}
	case MethodOOB:
		// nothing to check; family support is validated by the tuner
	default:
		return errors.NewValueError("resample.Spec", "unknown resampling method")
	}
	return nil
}

// TotalResamples returns the number of held-out evaluations the spec
// produces per candidate (folds x repeats for k-fold, 1 for OOB).
func (s Spec) TotalResamples() int {
	if s.Method == MethodOOB {
		return 1
	}
	return s.Folds * s.Repeats
}

// Fold is one train/validation index partition.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold assigns rows to k shuffled folds.
type KFold struct {
	NSplits int
	Seed    uint64
}

// NewKFold creates a k-fold splitter. nSplits below 2 selects 5.
func NewKFold(nSplits int, seed uint64) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{NSplits: nSplits, Seed: seed}
}

// Split generates the train/validation indices for each fold over nRows rows.
// The same seed always produces the same folds.
func (kf *KFold) Split(nRows int) []Fold {
	indices := make([]int, nRows)
	for i := range indices {
		indices[i] = i
	}

	r := rand.New(rand.NewPCG(kf.Seed, kf.Seed))
	r.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	folds := make([]Fold, kf.NSplits)
	foldSize := nRows / kf.NSplits
	remainder := nRows % kf.NSplits

	currentIdx := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}

		testIndices := make([]int, testSize)
		copy(testIndices, indices[currentIdx:currentIdx+testSize])

		trainIndices := make([]int, 0, nRows-testSize)
		trainIndices = append(trainIndices, indices[:currentIdx]...)
		trainIndices = append(trainIndices, indices[currentIdx+testSize:]...)

		folds[i] = Fold{TrainIndices: trainIndices, TestIndices: testIndices}
		currentIdx += testSize
	}
	return folds
}

// RepeatedKFold runs k-fold splitting several times with distinct shuffles.
type RepeatedKFold struct {
	NSplits int
	Repeats int
	Seed    uint64
}

// NewRepeatedKFold creates a repeated k-fold splitter.
func NewRepeatedKFold(nSplits, repeats int, seed uint64) *RepeatedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	if repeats < 1 {
		repeats = 1
	}
	return &RepeatedKFold{NSplits: nSplits, Repeats: repeats, Seed: seed}
}

// Split returns folds for every repeat, repeat-major. Each repeat derives
// its shuffle seed from the base seed, so the full sequence is reproducible.
func (rkf *RepeatedKFold) Split(nRows int) []Fold {
	folds := make([]Fold, 0, rkf.NSplits*rkf.Repeats)
	for rep := 0; rep < rkf.Repeats; rep++ {
		kf := NewKFold(rkf.NSplits, rkf.Seed+uint64(rep)*1_000_003)
		folds = append(folds, kf.Split(nRows)...)
	}
	return folds
}
