package dataset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/tabtune/pkg/errors"
)

// FiveNumberSummary holds the classic five-number summary of a column.
type FiveNumberSummary struct {
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// HistogramBin is one bar of a histogram: [Lower, Upper) and its row count.
// The last bin is closed on both sides.
type HistogramBin struct {
	Lower float64
	Upper float64
	Count int
}

// Report is the inspector's output for one table.
type Report struct {
	// MissingCounts maps every column to its number of missing (NaN) values.
	MissingCounts map[string]int

	// TargetSummary is the five-number summary of the target column,
	// missing values excluded.
	TargetSummary FiveNumberSummary

	// TargetHistogram is an equal-width histogram of the target column.
	TargetHistogram []HistogramBin
}

// TotalMissing returns the number of missing values across all columns.
func (r *Report) TotalMissing() int {
	total := 0
	for _, c := range r.MissingCounts {
		total += c
	}
	return total
}

// Inspect reports per-column missing counts and the distribution of the
// target column. bins controls the histogram resolution; bins <= 0 selects 10.
func Inspect(t *Table, target string, bins int) (*Report, error) {
	if !t.HasColumn(target) {
		return nil, errors.NewValueError("Inspect", "unknown target column "+target)
	}
	if bins <= 0 {
		bins = 10
	}

	missing := make(map[string]int, t.NumCols())
	for _, name := range t.Columns() {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		count := 0
		for _, v := range col {
			if math.IsNaN(v) {
				count++
			}
		}
		missing[name] = count
	}

	raw, err := t.Column(target)
	if err != nil {
		return nil, err
	}
	values := make([]float64, 0, len(raw))
	for _, v := range raw {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, errors.NewDataShapeError(target, "all values missing")
	}
	sort.Float64s(values)

	summary := FiveNumberSummary{
		Min:    values[0],
		Q1:     stat.Quantile(0.25, stat.Empirical, values, nil),
		Median: stat.Quantile(0.5, stat.Empirical, values, nil),
		Q3:     stat.Quantile(0.75, stat.Empirical, values, nil),
		Max:    values[len(values)-1],
	}

	return &Report{
		MissingCounts:   missing,
		TargetSummary:   summary,
		TargetHistogram: histogram(values, bins),
	}, nil
}

// histogram builds equal-width bins over sorted values.
func histogram(sorted []float64, bins int) []HistogramBin {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		return []HistogramBin{{Lower: lo, Upper: hi, Count: len(sorted)}}
	}
	width := (hi - lo) / float64(bins)

	out := make([]HistogramBin, bins)
	for i := range out {
		out[i] = HistogramBin{Lower: lo + float64(i)*width, Upper: lo + float64(i+1)*width}
	}
	out[bins-1].Upper = hi

	for _, v := range sorted {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}
