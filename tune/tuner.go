package tune

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabtune/core/model"
	"github.com/YuminosukeSato/tabtune/core/parallel"
	"github.com/YuminosukeSato/tabtune/dataset"
	"github.com/YuminosukeSato/tabtune/metrics"
	"github.com/YuminosukeSato/tabtune/pkg/errors"
	"github.com/YuminosukeSato/tabtune/pkg/log"
	"github.com/YuminosukeSato/tabtune/resample"
)

// Metric selects the score used to rank candidates.
type Metric string

const (
	// MetricRMSE ranks candidates by mean root-mean-squared error, lower
	// is better.
	MetricRMSE Metric = "rmse"
	// MetricR2 ranks candidates by mean R², higher is better.
	MetricR2 Metric = "r2"
)

// poorFitR2 is the mean R² below which a fit-quality warning is emitted.
const poorFitR2 = 0.2

// CandidateResult holds the resampled scores of one hyperparameter
// configuration. RMSE and R2 have one entry per resample, in fold order
// (k·repeats entries for repeated k-fold, one entry for OOB).
type CandidateResult struct {
	Params Params
	Label  string
	RMSE   []float64
	R2     []float64
}

// MeanRMSE returns the mean of the RMSE distribution.
func (c CandidateResult) MeanRMSE() float64 { return mean(c.RMSE) }

// MeanR2 returns the mean of the R² distribution.
func (c CandidateResult) MeanR2() float64 { return mean(c.R2) }

// StdRMSE returns the sample standard deviation of the RMSE distribution.
func (c CandidateResult) StdRMSE() float64 { return std(c.RMSE) }

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

func std(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, v := range xs {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

// Result is the outcome of tuning one family: every candidate's score
// distribution, the winning configuration, and the final model refit on
// the full training data with the winning params.
type Result struct {
	Family       Family
	Metric       Metric
	Candidates   []CandidateResult
	BestIndex    int
	Model        model.Regressor
	FeatureNames []string
	Target       string
	Elapsed      time.Duration
}

// Best returns the winning candidate.
func (r *Result) Best() CandidateResult {
	return r.Candidates[r.BestIndex]
}

// Tuner evaluates hyperparameter candidates for a single model family.
// The zero value is not usable; set at least Family and Resampling.
type Tuner struct {
	Family     Family
	Metric     Metric // default MetricRMSE
	Resampling resample.Spec
	Seed       uint64
	Pool       *parallel.Pool // nil runs folds sequentially
}

// candidateSeedStride separates the derived seeds of consecutive candidates.
const candidateSeedStride = 0x100000001b3

// Tune evaluates every candidate on the training table and refits the best
// one on all of its rows. Candidates are scored in the order given; ties on
// the ranking metric keep the earlier candidate.
func (t *Tuner) Tune(ctx context.Context, train *dataset.Table, target string, candidates []Params) (*Result, error) {
	start := time.Now()
	if len(candidates) == 0 {
		return nil, errors.NewConfigIncompatibleError(string(t.Family), "candidates", "no candidates to evaluate")
	}
	metric := t.Metric
	if metric == "" {
		metric = MetricRMSE
	}

	X, featNames, err := train.Features(target)
	if err != nil {
		return nil, err
	}
	y, err := train.Target(target)
	if err != nil {
		return nil, err
	}
	nRows, nFeatures := X.Dims()
	if err := checkNumeric(X, featNames); err != nil {
		return nil, err
	}

	if t.Resampling.Method == resample.MethodOOB && !supportsOOB(t.Family) {
		return nil, errors.NewConfigIncompatibleError(string(t.Family), "resampling",
			"out-of-bag scoring requires a bootstrap ensemble")
	}
	if err := t.Resampling.Validate(nRows); err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("tune").With(
		log.FamilyKey, string(t.Family),
		log.SamplesKey, nRows,
		log.FeaturesKey, nFeatures,
	)
	logger.Info("tuning started",
		log.OperationKey, "tune",
		log.MetricKey, string(metric),
		log.FoldsKey, t.Resampling.Folds,
		log.RepeatsKey, t.Resampling.Repeats,
		log.SeedKey, t.Seed,
	)

	results := make([]CandidateResult, len(candidates))
	for ci, params := range candidates {
		candSeed := t.Seed + uint64(ci)*candidateSeedStride
		cr, err := t.evaluateCandidate(ctx, X, y, nFeatures, params, candSeed)
		if err != nil {
			return nil, errors.Wrapf(err, "candidate %q", params.Label())
		}
		results[ci] = cr
		logger.Info("candidate evaluated",
			log.CandidateKey, cr.Label,
			log.MetricKey, string(metric),
			log.ScoreKey, candidateScore(cr, metric),
		)
	}

	best := 0
	for i := 1; i < len(results); i++ {
		if betterThan(candidateScore(results[i], metric), candidateScore(results[best], metric), metric) {
			best = i
		}
	}

	// Refit the winner on the full training data.
	final, err := newEstimator(t.Family, candidates[best], nFeatures, t.Seed, t.Pool)
	if err != nil {
		return nil, err
	}
	if err := final.Fit(X, y); err != nil {
		return nil, errors.Wrapf(err, "final fit %q", candidates[best].Label())
	}

	if r2 := results[best].MeanR2(); r2 < poorFitR2 {
		errors.Warn(errors.NewFitQualityWarning(string(t.Family), "r2", r2))
	}

	elapsed := time.Since(start)
	logger.Info("tuning finished",
		log.CandidateKey, results[best].Label,
		log.ScoreKey, candidateScore(results[best], metric),
		log.DurationKey, elapsed,
	)

	return &Result{
		Family:       t.Family,
		Metric:       metric,
		Candidates:   results,
		BestIndex:    best,
		Model:        final,
		FeatureNames: featNames,
		Target:       target,
		Elapsed:      elapsed,
	}, nil
}

// evaluateCandidate scores one configuration under the resampling spec.
func (t *Tuner) evaluateCandidate(ctx context.Context, X *mat.Dense, y *mat.VecDense, nFeatures int, params Params, seed uint64) (CandidateResult, error) {
	cr := CandidateResult{Params: params.Clone(), Label: params.Label()}

	if t.Resampling.Method == resample.MethodOOB {
		est, err := newEstimator(t.Family, params, nFeatures, seed, t.Pool)
		if err != nil {
			return cr, err
		}
		if err := est.Fit(X, y); err != nil {
			return cr, err
		}
		scorer, ok := est.(interface {
			OOBScores() (rmse, r2 float64, ok bool)
		})
		if !ok {
			return cr, errors.NewConfigIncompatibleError(string(t.Family), "resampling",
				"estimator does not report out-of-bag scores")
		}
		rmse, r2, ok := scorer.OOBScores()
		if !ok {
			return cr, errors.NewDataShapeError("oob", "no rows were left out of bag; increase the number of trees")
		}
		cr.RMSE = []float64{rmse}
		cr.R2 = []float64{r2}
		return cr, nil
	}

	folds := resample.NewRepeatedKFold(t.Resampling.Folds, t.Resampling.Repeats, seed).Split(X.RawMatrix().Rows)
	cr.RMSE = make([]float64, len(folds))
	cr.R2 = make([]float64, len(folds))

	tasks := make([]func() error, len(folds))
	for fi, fold := range folds {
		fi, fold := fi, fold
		// One derived seed per fold keeps the pooled and the sequential
		// evaluation identical.
		foldSeed := seed + uint64(fi+1)*0x9e3779b9
		tasks[fi] = func() error {
			est, err := newEstimator(t.Family, params, nFeatures, foldSeed, nil)
			if err != nil {
				return err
			}
			trainX, trainY := sliceRows(X, y, fold.TrainIndices)
			testX, testY := sliceRows(X, y, fold.TestIndices)
			if err := est.Fit(trainX, trainY); err != nil {
				return err
			}
			pred, err := est.Predict(testX)
			if err != nil {
				return err
			}
			predVec := matToVec(pred)
			rmse, err := metrics.RMSE(testY, predVec)
			if err != nil {
				return err
			}
			r2, err := metrics.R2Score(testY, predVec)
			if err != nil {
				return err
			}
			cr.RMSE[fi] = rmse
			cr.R2[fi] = r2
			return nil
		}
	}

	if t.Pool != nil {
		if err := t.Pool.Run(ctx, tasks...); err != nil {
			return cr, err
		}
		return cr, nil
	}
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return cr, errors.WithStack(err)
		}
		if err := task(); err != nil {
			return cr, err
		}
	}
	return cr, nil
}

func candidateScore(cr CandidateResult, metric Metric) float64 {
	if metric == MetricR2 {
		return cr.MeanR2()
	}
	return cr.MeanRMSE()
}

// betterThan reports whether score a beats score b under the metric's
// direction.
func betterThan(a, b float64, metric Metric) bool {
	if metric == MetricR2 {
		return a > b
	}
	return a < b
}

// checkNumeric rejects feature matrices with missing values.
func checkNumeric(X *mat.Dense, names []string) error {
	rows, cols := X.Dims()
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			if math.IsNaN(X.At(i, j)) {
				return errors.NewDataShapeError(names[j], "feature contains missing values")
			}
		}
	}
	return nil
}

// sliceRows materializes the indexed rows of X and y.
func sliceRows(X *mat.Dense, y *mat.VecDense, indices []int) (*mat.Dense, *mat.VecDense) {
	_, cols := X.Dims()
	outX := mat.NewDense(len(indices), cols, nil)
	outY := mat.NewVecDense(len(indices), nil)
	for i, idx := range indices {
		outX.SetRow(i, X.RawRowView(idx))
		outY.SetVec(i, y.AtVec(idx))
	}
	return outX, outY
}

// matToVec flattens a single-column prediction matrix.
func matToVec(m mat.Matrix) *mat.VecDense {
	rows, _ := m.Dims()
	v := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}
