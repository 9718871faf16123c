// Package workflow runs the end-to-end walkthrough: load the housing
// table, inspect it, one-hot encode the categorical column, split
// train/test, tune each configured model family, evaluate on the hold-out
// and render the diagnostic plots. One family failing is logged and
// skipped; the run continues with the remaining families.
package workflow

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabtune/core/parallel"
	"github.com/YuminosukeSato/tabtune/dataset"
	"github.com/YuminosukeSato/tabtune/pkg/errors"
	"github.com/YuminosukeSato/tabtune/pkg/log"
	"github.com/YuminosukeSato/tabtune/preprocessing"
	"github.com/YuminosukeSato/tabtune/split"
	"github.com/YuminosukeSato/tabtune/tune"
	"github.com/YuminosukeSato/tabtune/viz"
)

// FamilyReport is the outcome of one family's tuning run. Err is set and
// the other fields are nil when the family failed.
type FamilyReport struct {
	Family    tune.Family
	Tuning    *tune.Result
	HoldOut   *tune.Evaluation
	Sweep     *tune.SweepResult
	PlotPaths []string
	Err       error
}

// Report is the full run outcome.
type Report struct {
	Inspection *dataset.Report
	TrainRows  int
	TestRows   int
	Families   []FamilyReport
	Elapsed    time.Duration
}

// Failed returns the families that did not complete.
func (r *Report) Failed() []tune.Family {
	var out []tune.Family
	for _, fr := range r.Families {
		if fr.Err != nil {
			out = append(out, fr.Family)
		}
	}
	return out
}

// Run executes the walkthrough described by cfg. It fails outright only
// when the shared stages (load, inspect, encode, split) fail; a single
// family's failure is recorded in its FamilyReport and the run continues.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	start := time.Now()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := log.GetLoggerWithName("workflow")

	tbl, err := loadTable(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("table loaded",
		log.SamplesKey, tbl.NumRows(),
		log.FeaturesKey, tbl.NumCols()-1,
		log.TargetKey, dataset.TargetColumn,
	)

	inspection, err := dataset.Inspect(tbl, dataset.TargetColumn, 10)
	if err != nil {
		return nil, err
	}
	if n := inspection.TotalMissing(); n > 0 {
		logger.Warn("table has missing values", "missing", n)
	}

	if tbl.HasColumn(dataset.CategoricalColumn) {
		encoder := preprocessing.NewOneHotEncoder(dataset.CategoricalColumn)
		tbl, err = encoder.FitTransform(tbl)
		if err != nil {
			return nil, err
		}
		logger.Info("categorical column encoded",
			"column", dataset.CategoricalColumn,
			"indicators", encoder.IndicatorNames(),
		)
	}

	sp, err := split.Stratified(tbl, dataset.TargetColumn, split.Options{
		TrainFraction: cfg.TrainFraction,
		Seed:          cfg.Seed,
	})
	if err != nil {
		return nil, err
	}
	train, err := sp.TrainTable(tbl)
	if err != nil {
		return nil, err
	}
	test, err := sp.TestTable(tbl)
	if err != nil {
		return nil, err
	}
	logger.Info("table split",
		"train_rows", train.NumRows(),
		"test_rows", test.NumRows(),
		log.SeedKey, cfg.Seed,
	)

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create output dir %s", cfg.OutputDir)
		}
	}

	report := &Report{
		Inspection: inspection,
		TrainRows:  train.NumRows(),
		TestRows:   test.NumRows(),
	}

	if cfg.OutputDir != "" {
		histPath := filepath.Join(cfg.OutputDir, "target_histogram.png")
		if err := viz.TargetHistogram(inspection.TargetHistogram, dataset.TargetColumn, histPath); err != nil {
			return nil, err
		}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = parallel.DefaultWorkers()
	}
	pool := parallel.NewPool(workers)
	defer pool.Close()

	for i, fc := range cfg.Families {
		// Separate each family's seed stream so adding or reordering
		// families does not perturb the others.
		familySeed := cfg.Seed + uint64(i+1)*0x517cc1b727220a95
		fr := runFamily(ctx, cfg, fc, familySeed, train, test, pool)
		if fr.Err != nil {
			logger.Error("family failed, continuing",
				log.FamilyKey, fc.Family,
				log.ErrorKey, fr.Err,
			)
		}
		report.Families = append(report.Families, fr)
	}

	report.Elapsed = time.Since(start)
	logger.Info("run finished",
		"families", len(report.Families),
		"failed", len(report.Failed()),
		log.DurationKey, report.Elapsed,
	)
	return report, nil
}

func loadTable(cfg Config) (*dataset.Table, error) {
	if cfg.DataPath == "" {
		return dataset.LoadHousing()
	}
	f, err := os.Open(cfg.DataPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", cfg.DataPath)
	}
	defer f.Close()
	return dataset.ReadCSV(f)
}

// runFamily tunes, evaluates and plots one family. All errors end up in
// the report instead of aborting the run.
func runFamily(ctx context.Context, cfg Config, fc FamilyConfig, seed uint64, train, test *dataset.Table, pool *parallel.Pool) FamilyReport {
	family := tune.Family(fc.Family)
	fr := FamilyReport{Family: family}

	candidates, err := fc.candidates(seed)
	if err != nil {
		fr.Err = err
		return fr
	}
	spec, err := fc.Resampling.spec()
	if err != nil {
		fr.Err = err
		return fr
	}

	trainTbl, testTbl := train, test
	if family == tune.FamilyNeuralNet {
		// The net trains on standardized predictors; the tree ensembles
		// are scale-invariant and use the raw table.
		trainTbl, testTbl, err = standardizeTables(train, test, dataset.TargetColumn)
		if err != nil {
			fr.Err = err
			return fr
		}
	}

	tuner := &tune.Tuner{
		Family:     family,
		Metric:     cfg.metric(),
		Resampling: spec,
		Seed:       seed,
		Pool:       pool,
	}
	res, err := tuner.Tune(ctx, trainTbl, dataset.TargetColumn, candidates)
	if err != nil {
		fr.Err = err
		return fr
	}
	fr.Tuning = res

	ev, err := res.Evaluate(testTbl)
	if err != nil {
		fr.Err = err
		return fr
	}
	fr.HoldOut = ev

	if fc.Sweep != nil {
		sw, err := tuner.Sweep(ctx, trainTbl, dataset.TargetColumn,
			fc.Sweep.Param, fc.Sweep.Values, res.Best().Params)
		if err != nil {
			fr.Err = err
			return fr
		}
		fr.Sweep = sw
	}

	if cfg.OutputDir != "" {
		if err := renderFamilyPlots(&fr, cfg); err != nil {
			fr.Err = err
			return fr
		}
	}
	return fr
}

func renderFamilyPlots(fr *FamilyReport, cfg Config) error {
	name := string(fr.Family)

	predPath := filepath.Join(cfg.OutputDir, name+"_predicted_vs_actual.png")
	if err := viz.PredictedVsActual(fr.HoldOut, dataset.TargetColumn, predPath); err != nil {
		return err
	}
	fr.PlotPaths = append(fr.PlotPaths, predPath)

	if len(fr.HoldOut.Importance) > 0 {
		impPath := filepath.Join(cfg.OutputDir, name+"_importance.png")
		if err := viz.ImportanceBars(fr.HoldOut.Importance, name+" importance", impPath); err != nil {
			return err
		}
		fr.PlotPaths = append(fr.PlotPaths, impPath)
	}

	if fr.Sweep != nil {
		sweepPath := filepath.Join(cfg.OutputDir, name+"_"+fr.Sweep.Parameter+"_sweep.png")
		if err := viz.SweepProfile(fr.Sweep, cfg.metric(), sweepPath); err != nil {
			return err
		}
		fr.PlotPaths = append(fr.PlotPaths, sweepPath)
	}
	return nil
}

// standardizeTables fits a scaler on the training predictors and applies
// it to both tables, leaving the target column untouched.
func standardizeTables(train, test *dataset.Table, target string) (*dataset.Table, *dataset.Table, error) {
	scaler := preprocessing.NewStandardScaler()
	trainX, names, err := train.Features(target)
	if err != nil {
		return nil, nil, err
	}
	if err := scaler.Fit(trainX); err != nil {
		return nil, nil, err
	}

	scaledTrain, err := rebuildScaled(scaler, train, target, names)
	if err != nil {
		return nil, nil, err
	}
	scaledTest, err := rebuildScaled(scaler, test, target, names)
	if err != nil {
		return nil, nil, err
	}
	return scaledTrain, scaledTest, nil
}

func rebuildScaled(scaler *preprocessing.StandardScaler, t *dataset.Table, target string, names []string) (*dataset.Table, error) {
	X, _, err := t.Features(target)
	if err != nil {
		return nil, err
	}
	scaled, err := scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	y, err := t.Target(target)
	if err != nil {
		return nil, err
	}

	rows, cols := scaled.Dims()
	data := mat.NewDense(rows, cols+1, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data.Set(i, j, scaled.At(i, j))
		}
		data.Set(i, cols, y.AtVec(i))
	}
	columns := append(append([]string(nil), names...), target)
	return dataset.NewTable(columns, data)
}
