package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Logistic is L2-regularized logistic regression with balanced class
// weights, trained with L-BFGS. C is the inverse regularization strength.
type Logistic struct {
	C             float64   `json:"c"`
	MaxIterations int       `json:"max_iterations"`
	Coef          []float64 `json:"coef"`
	Intercept     float64   `json:"intercept"`
}

// ErrDiverged is returned when optimization produces non-finite weights.
var ErrDiverged = errors.New("optimization diverged")

// NewLogistic returns an untrained model with the pipeline's settings.
func NewLogistic() *Logistic {
	return &Logistic{C: 0.1, MaxIterations: 1000}
}

func (m *Logistic) Kind() Kind { return KindLogistic }

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// log1pExp computes log(1+exp(z)) without overflow.
func log1pExp(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

// Fit minimizes C * sum(w_i * logloss_i) + ||coef||^2 / 2. The intercept is
// not penalized.
func (m *Logistic) Fit(X *mat.Dense, y []float64) error {
	rows, cols := X.Dims()
	if rows != len(y) {
		return fmt.Errorf("logistic: %d rows but %d targets", rows, len(y))
	}
	w := BalancedWeights(y)
	data := Rows(X)

	// params = coef..., intercept
	loss := func(params []float64) float64 {
		coef, b := params[:cols], params[cols]
		total := 0.0
		for i, x := range data {
			z := floats.Dot(coef, x) + b
			// logloss = log(1+e^z) - y*z
			total += w[i] * (log1pExp(z) - y[i]*z)
		}
		return m.C*total + 0.5*floats.Dot(coef, coef)
	}
	grad := func(g, params []float64) {
		coef, b := params[:cols], params[cols]
		for j := range g {
			g[j] = 0
		}
		for i, x := range data {
			d := m.C * w[i] * (sigmoid(floats.Dot(coef, x)+b) - y[i])
			floats.AddScaled(g[:cols], d, x)
			g[cols] += d
		}
		floats.Add(g[:cols], coef)
	}

	problem := optimize.Problem{Func: loss, Grad: grad}
	settings := &optimize.Settings{
		GradientThreshold: 1e-6,
		MajorIterations:   m.MaxIterations,
	}
	result, err := optimize.Minimize(problem, make([]float64, cols+1), settings, &optimize.LBFGS{})
	if result == nil {
		return fmt.Errorf("logistic: optimize: %w", err)
	}
	// A line search that stalls near the optimum or an iteration cap still
	// leaves a usable solution; only non-finite parameters are fatal.
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("logistic: optimize diverged (status %v): %w", result.Status, errors.Join(err, ErrDiverged))
		}
	}
	m.Coef = append([]float64(nil), result.X[:cols]...)
	m.Intercept = result.X[cols]
	return nil
}

// PredictProba returns sigmoid(X·coef + intercept) per row.
func (m *Logistic) PredictProba(X mat.Matrix) []float64 {
	rows, _ := X.Dims()
	z := mat.NewVecDense(rows, nil)
	z.MulVec(X, mat.NewVecDense(len(m.Coef), m.Coef))
	out := make([]float64, rows)
	for i := range out {
		out[i] = sigmoid(z.AtVec(i) + m.Intercept)
	}
	return out
}

// FeatureImportance returns the absolute coefficients normalized to sum to
// one.
func (m *Logistic) FeatureImportance() []float64 {
	out := make([]float64, len(m.Coef))
	for i, c := range m.Coef {
		out[i] = math.Abs(c)
	}
	if s := floats.Sum(out); s > 0 {
		floats.Scale(1/s, out)
	}
	return out
}
