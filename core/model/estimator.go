package model

import "gonum.org/v1/gonum/mat"

// Fitter is a model that can be trained on a feature matrix and target.
type Fitter interface {
	// Fit trains the model on X (n_samples x n_features) and y (n_samples x 1).
	Fit(X, y mat.Matrix) error
}

// Predictor is a fitted model that can produce predictions.
type Predictor interface {
	// Predict returns predictions for X as an n_samples x 1 matrix.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor is the interface every tabtune model family implements.
type Regressor interface {
	Fitter
	Predictor

	// Score returns the coefficient of determination R^2 on (X, y).
	Score(X, y mat.Matrix) (float64, error)
}

// Transformer is a fitted data transformation such as a scaler or encoder.
type Transformer interface {
	// Fit learns the transformation parameters from X.
	Fit(X mat.Matrix) error

	// Transform applies the learned transformation to X.
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform fits on X and returns the transformed X.
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// FeatureImportancer is implemented by families that expose per-feature
// importance scores (tree ensembles and boosted trees).
type FeatureImportancer interface {
	// FeatureImportances returns one non-negative score per training feature,
	// normalized to sum to 1 when any importance is non-zero.
	FeatureImportances() []float64
}
