package dataset

import (
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabtune/pkg/errors"
)

func TestReadCSV_ParsesNumericTable(t *testing.T) {
	csv := "a,b,medv\n1,2,3\n4,5,6\n"
	table, err := ReadCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.NumRows() != 2 || table.NumCols() != 3 {
		t.Errorf("got %dx%d, want 2x3", table.NumRows(), table.NumCols())
	}

	col, err := table.Column("b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col[0] != 2 || col[1] != 5 {
		t.Errorf("column b = %v, want [2 5]", col)
	}
}

func TestReadCSV_NonNumericNamesField(t *testing.T) {
	csv := "a,b\n1,oops\n"
	_, err := ReadCSV(strings.NewReader(csv))
	if err == nil {
		t.Fatal("expected error for non-numeric cell")
	}
	var shapeErr *errors.DataShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected DataShapeError, got %T: %v", err, err)
	}
	if shapeErr.Field != "b" {
		t.Errorf("error should name column b, got %s", shapeErr.Field)
	}
}

func TestTable_SelectRows(t *testing.T) {
	table, err := NewTable([]string{"x", "y"}, mat.NewDense(3, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub, err := table.SelectRows([]int{2, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := sub.At(0, "x"); v != 3 {
		t.Errorf("row 0 x = %v, want 3", v)
	}
	if v, _ := sub.At(1, "y"); v != 10 {
		t.Errorf("row 1 y = %v, want 10", v)
	}

	if _, err := table.SelectRows([]int{5}); err == nil {
		t.Error("expected error for out-of-range index")
	}
}

func TestTable_FeaturesExcludesTarget(t *testing.T) {
	table, err := NewTable([]string{"x", "medv", "y"}, mat.NewDense(2, 3, []float64{
		1, 100, 10,
		2, 200, 20,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	X, names, err := table.Features("medv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 || names[0] != "x" || names[1] != "y" {
		t.Errorf("feature names = %v, want [x y]", names)
	}
	if X.At(1, 1) != 20 {
		t.Errorf("X[1,1] = %v, want 20", X.At(1, 1))
	}

	y, err := table.Target("medv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if y.AtVec(0) != 100 {
		t.Errorf("y[0] = %v, want 100", y.AtVec(0))
	}
}

func TestTable_ReplaceColumn(t *testing.T) {
	table, err := NewTable([]string{"a", "cat", "b"}, mat.NewDense(2, 3, []float64{
		1, 7, 10,
		2, 8, 20,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := table.ReplaceColumn("cat",
		[]string{"cat_7", "cat_8"},
		[][]float64{{1, 0}, {0, 1}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"a", "cat_7", "cat_8", "b"}
	got := out.Columns()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("columns = %v, want %v", got, want)
		}
	}
	if v, _ := out.At(1, "cat_8"); v != 1 {
		t.Errorf("cat_8[1] = %v, want 1", v)
	}
	if v, _ := out.At(1, "b"); v != 20 {
		t.Errorf("b[1] = %v, want 20", v)
	}
}

func TestLoadHousing_Shape(t *testing.T) {
	table, err := LoadHousing()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.NumRows() != 506 {
		t.Errorf("rows = %d, want 506", table.NumRows())
	}
	if table.NumCols() != 14 {
		t.Errorf("cols = %d, want 14", table.NumCols())
	}
	if !table.HasColumn(TargetColumn) || !table.HasColumn(CategoricalColumn) {
		t.Error("expected medv and chas columns")
	}
}
