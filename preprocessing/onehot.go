package preprocessing

import (
	"math"
	"sort"
	"strconv"

	"github.com/YuminosukeSato/tabtune/core/model"
	"github.com/YuminosukeSato/tabtune/dataset"
	"github.com/YuminosukeSato/tabtune/pkg/errors"
)

// OneHotEncoder expands one integer-coded categorical column into indicator
// columns using N-1 dummy coding: the smallest observed category value is
// the reference level and gets no column.
//
// The category-to-column mapping is fixed at Fit time. Transform never
// re-derives levels from the rows it is given: an evaluation table missing
// a category simply gets zero columns for it, and a category unseen at Fit
// time is an error.
type OneHotEncoder struct {
	model.BaseEstimator

	// Column is the name of the column to encode.
	Column string

	levels []float64 // sorted distinct values; levels[0] is the reference level
}

// NewOneHotEncoder creates an encoder for the named column.
func NewOneHotEncoder(column string) *OneHotEncoder {
	return &OneHotEncoder{Column: column}
}

// Fit records the distinct values of the column as the fixed category levels.
func (e *OneHotEncoder) Fit(t *dataset.Table) error {
	values, err := t.Column(e.Column)
	if err != nil {
		return err
	}

	distinct := make(map[float64]bool)
	for _, v := range values {
		if math.IsNaN(v) {
			return errors.NewDataShapeError(e.Column, "missing value in categorical column")
		}
		if v != math.Trunc(v) {
			return errors.NewDataShapeError(e.Column,
				"non-integer value "+strconv.FormatFloat(v, 'g', -1, 64)+" in categorical column")
		}
		distinct[v] = true
	}
	if len(distinct) < 2 {
		return errors.NewDataShapeError(e.Column, "categorical column has fewer than two levels")
	}

	e.levels = make([]float64, 0, len(distinct))
	for v := range distinct {
		e.levels = append(e.levels, v)
	}
	sort.Float64s(e.levels)

	e.SetFitted()
	return nil
}

// Levels returns the fitted category levels in ascending order.
// The first level is the reference level.
func (e *OneHotEncoder) Levels() []float64 {
	return append([]float64(nil), e.levels...)
}

// IndicatorNames returns the names of the indicator columns produced by
// Transform, one per non-reference level.
func (e *OneHotEncoder) IndicatorNames() []string {
	names := make([]string, 0, len(e.levels)-1)
	for _, v := range e.levels[1:] {
		names = append(names, e.Column+"_"+strconv.FormatFloat(v, 'g', -1, 64))
	}
	return names
}

// Transform replaces the categorical column with its indicator columns.
// A value not seen at Fit time fails with a DataShapeError; the indicator
// column set is always exactly the one fixed at Fit time.
func (e *OneHotEncoder) Transform(t *dataset.Table) (*dataset.Table, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}

	values, err := t.Column(e.Column)
	if err != nil {
		return nil, err
	}

	known := make(map[float64]int, len(e.levels)-1)
	for i, v := range e.levels[1:] {
		known[v] = i
	}

	n := len(values)
	cols := make([][]float64, len(e.levels)-1)
	for i := range cols {
		cols[i] = make([]float64, n)
	}
	for row, v := range values {
		if v == e.levels[0] {
			continue // reference level: all indicators zero
		}
		idx, ok := known[v]
		if !ok {
			return nil, errors.NewDataShapeError(e.Column,
				"category "+strconv.FormatFloat(v, 'g', -1, 64)+" was not seen during encoding")
		}
		cols[idx][row] = 1
	}

	return t.ReplaceColumn(e.Column, e.IndicatorNames(), cols)
}

// FitTransform fits the encoder on t and returns the encoded table.
func (e *OneHotEncoder) FitTransform(t *dataset.Table) (*dataset.Table, error) {
	if err := e.Fit(t); err != nil {
		return nil, err
	}
	return e.Transform(t)
}
