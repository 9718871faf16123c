package dataset

import (
	"bytes"
	_ "embed"
)

// TargetColumn is the target field of the bundled housing table.
const TargetColumn = "medv"

// CategoricalColumn is the integer-coded column the walkthrough treats as
// categorical and one-hot encodes before splitting.
const CategoricalColumn = "chas"

//go:embed housing.csv
var housingCSV []byte

// LoadHousing returns the bundled housing table: 506 rows, 13 predictor
// columns and the medv target, with no missing values.
func LoadHousing() (*Table, error) {
	return ReadCSV(bytes.NewReader(housingCSV))
}
