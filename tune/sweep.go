package tune

import (
	"context"

	"github.com/YuminosukeSato/tabtune/dataset"
	"github.com/YuminosukeSato/tabtune/pkg/errors"
)

// SweepResult holds the resampled scores for each value of a swept
// parameter, in the order the values were given.
type SweepResult struct {
	Family    Family
	Parameter string
	Values    []float64
	Results   []CandidateResult
}

// Sweep evaluates one configuration per value of a single parameter,
// holding every other parameter at its value in base. Unlike Tune it does
// not pick a winner or refit: the point of a sweep is the labeled score
// profile across the values.
func (t *Tuner) Sweep(ctx context.Context, train *dataset.Table, target, param string, values []float64, base Params) (*SweepResult, error) {
	if len(values) == 0 {
		return nil, errors.NewConfigIncompatibleError(string(t.Family), param, "no values to sweep")
	}
	if err := validateParams(t.Family, Params{param: 0}); err != nil {
		return nil, err
	}

	candidates := make([]Params, len(values))
	for i, v := range values {
		p := base.Clone()
		p[param] = v
		candidates[i] = p
	}

	res, err := t.Tune(ctx, train, target, candidates)
	if err != nil {
		return nil, err
	}
	return &SweepResult{
		Family:    t.Family,
		Parameter: param,
		Values:    append([]float64(nil), values...),
		Results:   res.Candidates,
	}, nil
}
