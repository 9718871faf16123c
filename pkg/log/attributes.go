// Package log defines the standard attribute keys used across tabtune.
//
// Using fixed keys keeps log entries filterable: every fit, predict and
// tuning step tags its entries with the same key set.

package log

// Model and operation context.
const (
	// FamilyKey identifies the model family being trained.
	// Examples: "bagged-trees", "random-forest", "gradient-boosted-trees"
	FamilyKey = "model.family"

	// ModelNameKey identifies a concrete estimator type.
	// Examples: "RandomForestRegressor", "MLPRegressor"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "tune", "sweep"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "split", "tune", "workflow"
	ComponentKey = "ml.component"
)

// Data shape.
const (
	// SamplesKey is the number of rows being processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// TargetKey names the target column.
	TargetKey = "data.target"
)

// Tuning and evaluation context.
const (
	// CandidateKey labels a hyperparameter candidate under evaluation.
	CandidateKey = "tune.candidate"

	// FoldsKey is the number of cross-validation folds.
	FoldsKey = "tune.folds"

	// RepeatsKey is the number of cross-validation repeats.
	RepeatsKey = "tune.repeats"

	// MetricKey names the selection metric ("rmse" or "r2").
	MetricKey = "tune.metric"

	// ScoreKey carries a scalar metric value.
	ScoreKey = "tune.score"

	// SeedKey carries the seed of a stochastic operation.
	SeedKey = "tune.seed"

	// DurationKey carries elapsed wall-clock time.
	DurationKey = "duration"

	// ErrorKey carries an error value.
	ErrorKey = "error"
)
