// Package neural implements the small feed-forward network family:
// sigmoid hidden layers, a linear output unit, trained with full-batch
// gradient descent on squared error. Inputs are expected to be
// standardized; the workflow scales them before fitting.
package neural

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabtune/core/model"
	"github.com/YuminosukeSato/tabtune/metrics"
	"github.com/YuminosukeSato/tabtune/pkg/errors"
	"github.com/YuminosukeSato/tabtune/pkg/log"
)

// MLPRegressor is a small multilayer perceptron for regression.
type MLPRegressor struct {
	model.BaseEstimator

	// Hidden lists the hidden layer sizes, e.g. []int{5, 3}.
	Hidden []int

	// LearningRate is the gradient descent step size.
	LearningRate float64

	// Epochs is the number of full-batch passes.
	Epochs int

	// Seed drives the weight initialization.
	Seed uint64

	// weights[l] is (units_out x units_in), biases[l] is units_out.
	weights  []*mat.Dense
	biases   [][]float64
	nInputs  int
	lossPath []float64
}

// NewMLPRegressor creates a network with one five-unit hidden layer,
// learning rate 0.01 and 2000 epochs.
func NewMLPRegressor() *MLPRegressor {
	return &MLPRegressor{
		Hidden:       []int{5},
		LearningRate: 0.01,
		Epochs:       2000,
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Fit trains the network on X and y.
func (m *MLPRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "MLPRegressor.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return errors.NewDimensionError("MLPRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("MLPRegressor.Fit", 1, yCols, 1)
	}
	if len(m.Hidden) == 0 {
		return errors.NewConfigIncompatibleError("feed-forward-neural-net", "hidden",
			"at least one hidden layer is required")
	}
	for _, h := range m.Hidden {
		if h < 1 {
			return errors.NewConfigIncompatibleError("feed-forward-neural-net", "hidden",
				"hidden layer sizes must be positive")
		}
	}
	if m.LearningRate <= 0 {
		return errors.NewConfigIncompatibleError("feed-forward-neural-net", "learning_rate",
			"must be positive")
	}
	if m.Epochs < 1 {
		return errors.NewConfigIncompatibleError("feed-forward-neural-net", "epochs",
			"must be at least 1")
	}

	m.nInputs = cols
	sizes := append([]int{cols}, m.Hidden...)
	sizes = append(sizes, 1)
	nLayers := len(sizes) - 1

	rng := rand.New(rand.NewPCG(m.Seed, m.Seed^0xc2b2ae3d27d4eb4f))
	m.weights = make([]*mat.Dense, nLayers)
	m.biases = make([][]float64, nLayers)
	for l := 0; l < nLayers; l++ {
		in, out := sizes[l], sizes[l+1]
		// Xavier-style scaling keeps sigmoid units out of saturation.
		scale := math.Sqrt(2.0 / float64(in+out))
		w := mat.NewDense(out, in, nil)
		for i := 0; i < out; i++ {
			for j := 0; j < in; j++ {
				w.Set(i, j, rng.NormFloat64()*scale)
			}
		}
		m.weights[l] = w
		m.biases[l] = make([]float64, out)
	}

	logger := log.GetLoggerWithName("neural")
	logger.Debug("fitting network",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"hidden", m.Hidden,
		"epochs", m.Epochs,
	)

	m.lossPath = m.lossPath[:0]
	activations := make([][][]float64, rows)
	input := make([]float64, cols)

	for epoch := 0; epoch < m.Epochs; epoch++ {
		// accumulate gradients over the full batch
		gradW := make([]*mat.Dense, nLayers)
		gradB := make([][]float64, nLayers)
		for l := 0; l < nLayers; l++ {
			r, c := m.weights[l].Dims()
			gradW[l] = mat.NewDense(r, c, nil)
			gradB[l] = make([]float64, r)
		}

		loss := 0.0
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				input[j] = X.At(i, j)
			}
			acts := m.forward(input)
			activations[i] = acts

			pred := acts[nLayers][0]
			diff := pred - y.At(i, 0)
			loss += diff * diff

			m.backward(acts, diff, gradW, gradB)
		}
		m.lossPath = append(m.lossPath, loss/float64(rows))

		step := m.LearningRate / float64(rows)
		for l := 0; l < nLayers; l++ {
			r, c := m.weights[l].Dims()
			for i := 0; i < r; i++ {
				for j := 0; j < c; j++ {
					m.weights[l].Set(i, j, m.weights[l].At(i, j)-step*gradW[l].At(i, j))
				}
				m.biases[l][i] -= step * gradB[l][i]
			}
		}
	}

	m.SetFitted()
	return nil
}

// forward returns the activations of every layer, input included.
func (m *MLPRegressor) forward(input []float64) [][]float64 {
	nLayers := len(m.weights)
	acts := make([][]float64, nLayers+1)
	acts[0] = append([]float64(nil), input...)

	for l := 0; l < nLayers; l++ {
		rowsOut, _ := m.weights[l].Dims()
		out := make([]float64, rowsOut)
		for i := 0; i < rowsOut; i++ {
			sum := m.biases[l][i]
			for j, v := range acts[l] {
				sum += m.weights[l].At(i, j) * v
			}
			if l == nLayers-1 {
				out[i] = sum // linear output
			} else {
				out[i] = sigmoid(sum)
			}
		}
		acts[l+1] = out
	}
	return acts
}

// backward accumulates one sample's gradients. diff is d(loss)/d(pred)/2.
func (m *MLPRegressor) backward(acts [][]float64, diff float64, gradW []*mat.Dense, gradB [][]float64) {
	nLayers := len(m.weights)

	// delta for the linear output layer
	delta := []float64{2 * diff}

	for l := nLayers - 1; l >= 0; l-- {
		for i, d := range delta {
			gradB[l][i] += d
			for j, a := range acts[l] {
				gradW[l].Set(i, j, gradW[l].At(i, j)+d*a)
			}
		}

		if l == 0 {
			break
		}

		prev := make([]float64, len(acts[l]))
		for j := range prev {
			sum := 0.0
			for i, d := range delta {
				sum += d * m.weights[l].At(i, j)
			}
			a := acts[l][j]
			prev[j] = sum * a * (1 - a) // sigmoid derivative
		}
		delta = prev
	}
}

// Predict returns one prediction per row of X.
func (m *MLPRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MLPRegressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != m.nInputs {
		return nil, errors.NewDimensionError("MLPRegressor.Predict", m.nInputs, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	input := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			input[j] = X.At(i, j)
		}
		acts := m.forward(input)
		out.Set(i, 0, acts[len(acts)-1][0])
	}
	return out, nil
}

// Score returns R^2 on (X, y).
func (m *MLPRegressor) Score(X, y mat.Matrix) (float64, error) {
	if !m.IsFitted() {
		return 0, errors.NewNotFittedError("MLPRegressor", "Score")
	}
	pred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := y.Dims()
	yVec := mat.NewVecDense(rows, nil)
	predVec := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yVec.SetVec(i, y.At(i, 0))
		predVec.SetVec(i, pred.At(i, 0))
	}
	return metrics.R2Score(yVec, predVec)
}

// LossPath returns the mean squared error after each epoch.
func (m *MLPRegressor) LossPath() []float64 {
	return append([]float64(nil), m.lossPath...)
}
