// Package dataset provides the in-memory table the walkthrough operates on:
// named float64 columns over a gonum matrix, plus the bundled housing data
// and the inspection report.
package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabtune/pkg/errors"
)

// Table is an ordered collection of rows with named float64 columns.
// Missing values are represented as NaN. A Table is immutable once built;
// transformations return new tables.
type Table struct {
	columns []string
	data    *mat.Dense // nRows x len(columns)
}

// NewTable builds a table from column names and row-major data.
func NewTable(columns []string, data *mat.Dense) (*Table, error) {
	rows, cols := data.Dims()
	if cols != len(columns) {
		return nil, errors.NewDimensionError("NewTable", len(columns), cols, 1)
	}
	if rows == 0 {
		return nil, errors.NewValueError("NewTable", "table has no rows")
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, errors.NewValueError("NewTable", "duplicate column "+c)
		}
		seen[c] = true
	}
	return &Table{columns: append([]string(nil), columns...), data: data}, nil
}

// ReadCSV parses a headed CSV stream into a Table. Every value must be
// numeric; a non-numeric cell fails with a DataShapeError naming the column.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "ReadCSV: malformed csv")
	}
	if len(records) < 2 {
		return nil, errors.NewValueError("ReadCSV", "csv has no data rows")
	}

	header := records[0]
	nRows := len(records) - 1
	nCols := len(header)

	data := mat.NewDense(nRows, nCols, nil)
	for i, record := range records[1:] {
		if len(record) != nCols {
			return nil, errors.NewDimensionError("ReadCSV", nCols, len(record), 1)
		}
		for j, cell := range record {
			cell = strings.TrimSpace(cell)
			if cell == "" || cell == "NA" {
				data.Set(i, j, math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errors.NewDataShapeError(header[j],
					"non-numeric value "+strconv.Quote(cell))
			}
			data.Set(i, j, v)
		}
	}
	return NewTable(header, data)
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	r, _ := t.data.Dims()
	return r
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	return len(t.columns)
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	return t.colIndex(name) >= 0
}

func (t *Table) colIndex(name string) int {
	for i, c := range t.columns {
		if c == name {
			return i
		}
	}
	return -1
}

// At returns the value at (row, column name).
func (t *Table) At(row int, name string) (float64, error) {
	j := t.colIndex(name)
	if j < 0 {
		return 0, errors.NewValueError("Table.At", "unknown column "+name)
	}
	return t.data.At(row, j), nil
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]float64, error) {
	j := t.colIndex(name)
	if j < 0 {
		return nil, errors.NewValueError("Table.Column", "unknown column "+name)
	}
	n := t.NumRows()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = t.data.At(i, j)
	}
	return out, nil
}

// SelectRows returns a new table containing the given rows, in order.
func (t *Table) SelectRows(indices []int) (*Table, error) {
	n := t.NumRows()
	out := mat.NewDense(len(indices), len(t.columns), nil)
	for i, idx := range indices {
		if idx < 0 || idx >= n {
			return nil, errors.NewValueError("Table.SelectRows", "row index out of range")
		}
		for j := range t.columns {
			out.Set(i, j, t.data.At(idx, j))
		}
	}
	return NewTable(t.columns, out)
}

// FeatureNames returns all column names except the target.
func (t *Table) FeatureNames(target string) ([]string, error) {
	if t.colIndex(target) < 0 {
		return nil, errors.NewValueError("Table.FeatureNames", "unknown target column "+target)
	}
	names := make([]string, 0, len(t.columns)-1)
	for _, c := range t.columns {
		if c != target {
			names = append(names, c)
		}
	}
	return names, nil
}

// Features returns the predictor matrix (all columns except target) together
// with the column names, in table order.
func (t *Table) Features(target string) (*mat.Dense, []string, error) {
	names, err := t.FeatureNames(target)
	if err != nil {
		return nil, nil, err
	}
	n := t.NumRows()
	X := mat.NewDense(n, len(names), nil)
	for j, name := range names {
		src := t.colIndex(name)
		for i := 0; i < n; i++ {
			X.Set(i, j, t.data.At(i, src))
		}
	}
	return X, names, nil
}

// Target returns the target column as a vector.
func (t *Table) Target(target string) (*mat.VecDense, error) {
	values, err := t.Column(target)
	if err != nil {
		return nil, err
	}
	return mat.NewVecDense(len(values), values), nil
}

// ReplaceColumn returns a new table where the named column is replaced by
// the given columns (used by one-hot encoding). The replacement columns are
// spliced in at the original column's position.
func (t *Table) ReplaceColumn(name string, newNames []string, newCols [][]float64) (*Table, error) {
	j := t.colIndex(name)
	if j < 0 {
		return nil, errors.NewValueError("Table.ReplaceColumn", "unknown column "+name)
	}
	if len(newNames) != len(newCols) {
		return nil, errors.NewDimensionError("Table.ReplaceColumn", len(newNames), len(newCols), 1)
	}
	n := t.NumRows()
	for _, col := range newCols {
		if len(col) != n {
			return nil, errors.NewDimensionError("Table.ReplaceColumn", n, len(col), 0)
		}
	}

	outNames := make([]string, 0, len(t.columns)-1+len(newNames))
	outNames = append(outNames, t.columns[:j]...)
	outNames = append(outNames, newNames...)
	outNames = append(outNames, t.columns[j+1:]...)

	out := mat.NewDense(n, len(outNames), nil)
	for i := 0; i < n; i++ {
		dst := 0
		for src := 0; src < j; src++ {
			out.Set(i, dst, t.data.At(i, src))
			dst++
		}
		for _, col := range newCols {
			out.Set(i, dst, col[i])
			dst++
		}
		for src := j + 1; src < len(t.columns); src++ {
			out.Set(i, dst, t.data.At(i, src))
			dst++
		}
	}
	return NewTable(outNames, out)
}
