// Package tabtune trains, tunes and compares regression models on a fixed
// tabular dataset.
//
// The library reproduces a classic supervised-learning walkthrough end to
// end: load the bundled 506-row housing table, inspect it, one-hot encode
// the categorical column, split train/test with target stratification, tune
// several model families under repeated cross-validation or out-of-bag
// scoring, and compare their hold-out performance with importance and
// predicted-versus-actual plots.
//
// # Quick start
//
// The workflow package runs the whole walkthrough:
//
//	report, err := workflow.Run(context.Background(), workflow.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, fr := range report.Families {
//	    if fr.Err != nil {
//	        continue
//	    }
//	    fmt.Printf("%s: hold-out RMSE %.3f\n", fr.Family, fr.HoldOut.RMSE)
//	}
//
// Individual stages are usable on their own:
//
//   - dataset: the Table type, the bundled housing data and the inspector
//   - preprocessing: one-hot encoding and standardization
//   - split: stratified train/test splitting
//   - resample: k-fold, repeated k-fold and out-of-bag specifications
//   - ensemble, boosting, neural: the model families
//   - tune: hyperparameter search, resampled scoring, hold-out evaluation
//   - metrics: MSE, RMSE, MAE, R²
//   - viz: the diagnostic plots
//
// Every stochastic step takes an explicit seed; two runs with the same
// configuration produce identical splits, folds, models and scores,
// whether or not a worker pool is used.
//
// The tabtune command in cmd/tabtune exposes the walkthrough as a CLI.
package tabtune
