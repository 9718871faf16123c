// Package tune trains and tunes one model family at a time: it evaluates
// every hyperparameter candidate with the requested resampling scheme,
// selects the best configuration by the chosen metric, and refits it on the
// full training data.
package tune

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/YuminosukeSato/tabtune/boosting"
	"github.com/YuminosukeSato/tabtune/core/model"
	"github.com/YuminosukeSato/tabtune/core/parallel"
	"github.com/YuminosukeSato/tabtune/ensemble"
	"github.com/YuminosukeSato/tabtune/neural"
	"github.com/YuminosukeSato/tabtune/pkg/errors"
)

// Family identifies one of the supported model families.
type Family string

const (
	// FamilyBaggedTrees is a random forest with every feature available at
	// each split (mtry = p).
	FamilyBaggedTrees Family = "bagged-trees"
	// FamilyRandomForest is the standard random forest.
	FamilyRandomForest Family = "random-forest"
	// FamilyGradientBoosting is least-squares gradient boosting.
	FamilyGradientBoosting Family = "gradient-boosted-trees"
	// FamilyNeuralNet is the small feed-forward network.
	FamilyNeuralNet Family = "feed-forward-neural-net"
)

// Families lists every supported family.
func Families() []Family {
	return []Family{FamilyBaggedTrees, FamilyRandomForest, FamilyGradientBoosting, FamilyNeuralNet}
}

// Params is one hyperparameter configuration. Integer-valued parameters
// (tree counts, depths, layer sizes) are stored as float64 and truncated.
type Params map[string]float64

// Clone returns an independent copy of the params.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Label renders the params as a stable "name=value" list, sorted by name.
func (p Params) Label() string {
	if len(p) == 0 {
		return "default"
	}
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, k := range names {
		v := p[k]
		if v == math.Trunc(v) {
			parts[i] = fmt.Sprintf("%s=%d", k, int(v))
		} else {
			parts[i] = fmt.Sprintf("%s=%g", k, v)
		}
	}
	return strings.Join(parts, ",")
}

// allowedParams maps each family to its accepted hyperparameter names.
var allowedParams = map[Family]map[string]bool{
	FamilyBaggedTrees: {
		"trees": true, "max_depth": true, "min_node": true,
	},
	FamilyRandomForest: {
		"trees": true, "mtry": true, "max_depth": true, "min_node": true,
	},
	FamilyGradientBoosting: {
		"n_estimators": true, "learning_rate": true, "max_depth": true,
		"subsample": true, "min_node": true,
	},
	FamilyNeuralNet: {
		"hidden1": true, "hidden2": true, "learning_rate": true, "epochs": true,
	},
}

// validateParams rejects hyperparameters the family does not know.
func validateParams(family Family, params Params) error {
	allowed, ok := allowedParams[family]
	if !ok {
		return errors.NewConfigIncompatibleError(string(family), "family", "unknown model family")
	}
	for name := range params {
		if !allowed[name] {
			return errors.NewConfigIncompatibleError(string(family), name,
				"hyperparameter not supported by this family")
		}
	}
	return nil
}

// newEstimator builds an unfitted estimator for the family and params.
// nFeatures is needed to pin mtry for bagging.
func newEstimator(family Family, params Params, nFeatures int, seed uint64, pool *parallel.Pool) (model.Regressor, error) {
	if err := validateParams(family, params); err != nil {
		return nil, err
	}

	intOr := func(name string, def int) int {
		if v, ok := params[name]; ok {
			return int(v)
		}
		return def
	}
	floatOr := func(name string, def float64) float64 {
		if v, ok := params[name]; ok {
			return v
		}
		return def
	}

	switch family {
	case FamilyBaggedTrees:
		rf := ensemble.NewRandomForestRegressor().WithPool(pool)
		rf.NTrees = intOr("trees", 500)
		rf.MaxDepth = intOr("max_depth", 0)
		rf.MinSamplesSplit = intOr("min_node", 5)
		rf.Mtry = nFeatures // bagging: all features at every split
		rf.Seed = seed
		return rf, nil

	case FamilyRandomForest:
		rf := ensemble.NewRandomForestRegressor().WithPool(pool)
		rf.NTrees = intOr("trees", 500)
		rf.MaxDepth = intOr("max_depth", 0)
		rf.MinSamplesSplit = intOr("min_node", 5)
		rf.Mtry = intOr("mtry", 0)
		rf.Seed = seed
		return rf, nil

	case FamilyGradientBoosting:
		gb := boosting.NewGradientBoostingRegressor()
		gb.NEstimators = intOr("n_estimators", 100)
		gb.LearningRate = floatOr("learning_rate", 0.1)
		gb.MaxDepth = intOr("max_depth", 3)
		gb.MinSamplesSplit = intOr("min_node", 10)
		gb.Subsample = floatOr("subsample", 1.0)
		gb.Seed = seed
		return gb, nil

	case FamilyNeuralNet:
		mlp := neural.NewMLPRegressor()
		hidden := []int{intOr("hidden1", 5)}
		if h2 := intOr("hidden2", 0); h2 > 0 {
			hidden = append(hidden, h2)
		}
		mlp.Hidden = hidden
		mlp.LearningRate = floatOr("learning_rate", 0.01)
		mlp.Epochs = intOr("epochs", 2000)
		mlp.Seed = seed
		return mlp, nil

	default:
		return nil, errors.NewConfigIncompatibleError(string(family), "family", "unknown model family")
	}
}

// supportsOOB reports whether the family can be evaluated out-of-bag.
func supportsOOB(family Family) bool {
	return family == FamilyBaggedTrees || family == FamilyRandomForest
}

// exposesImportance reports whether the family has per-feature importances.
func exposesImportance(family Family) bool {
	switch family {
	case FamilyBaggedTrees, FamilyRandomForest, FamilyGradientBoosting:
		return true
	default:
		return false
	}
}
