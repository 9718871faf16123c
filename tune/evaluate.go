package tune

import (
	"sort"

	"github.com/YuminosukeSato/tabtune/dataset"
	"github.com/YuminosukeSato/tabtune/metrics"
	"github.com/YuminosukeSato/tabtune/pkg/errors"
)

// ImportanceEntry is one feature's share of a model's split-gain
// importance, normalized so all entries sum to one.
type ImportanceEntry struct {
	Feature    string
	Importance float64
}

// Evaluation is a fitted model's performance on a held-out table.
type Evaluation struct {
	Family    Family
	Predicted []float64
	Actual    []float64
	RMSE      float64
	R2        float64
	// Importance is sorted descending. Nil for families without
	// per-feature importances.
	Importance []ImportanceEntry
}

// Evaluate scores the tuned model on a held-out table. The table must
// carry exactly the feature columns the model was trained on, in the same
// order, plus the target column; anything else is a schema mismatch.
func (r *Result) Evaluate(eval *dataset.Table) (*Evaluation, error) {
	got, err := eval.FeatureNames(r.Target)
	if err != nil {
		return nil, err
	}
	if !sameColumns(r.FeatureNames, got) {
		return nil, errors.NewSchemaMismatchError("evaluate", r.FeatureNames, got)
	}

	X, _, err := eval.Features(r.Target)
	if err != nil {
		return nil, err
	}
	y, err := eval.Target(r.Target)
	if err != nil {
		return nil, err
	}

	pred, err := r.Model.Predict(X)
	if err != nil {
		return nil, err
	}
	predVec := matToVec(pred)

	rmse, err := metrics.RMSE(y, predVec)
	if err != nil {
		return nil, err
	}
	r2, err := metrics.R2Score(y, predVec)
	if err != nil {
		return nil, err
	}

	ev := &Evaluation{
		Family:    r.Family,
		Predicted: predVec.RawVector().Data,
		Actual:    vecData(y),
		RMSE:      rmse,
		R2:        r2,
	}

	if exposesImportance(r.Family) {
		if imp, ok := r.Model.(interface{ FeatureImportances() []float64 }); ok {
			ev.Importance = rankImportance(r.FeatureNames, imp.FeatureImportances())
		}
	}
	return ev, nil
}

// rankImportance pairs features with their importances, sorted descending.
// Ties keep the original column order.
func rankImportance(names []string, values []float64) []ImportanceEntry {
	if len(values) != len(names) {
		return nil
	}
	entries := make([]ImportanceEntry, len(names))
	for i := range names {
		entries[i] = ImportanceEntry{Feature: names[i], Importance: values[i]}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Importance > entries[j].Importance
	})
	return entries
}

// sameColumns reports whether the two name sequences are identical.
func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func vecData(v interface {
	Len() int
	AtVec(int) float64
}) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
