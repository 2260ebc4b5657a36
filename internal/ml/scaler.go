package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes each column to zero mean and unit population
// variance. Columns with zero variance are only centered.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler learns per-column mean and standard deviation from X.
func FitScaler(X *mat.Dense) *Scaler {
	r, c := X.Dims()
	s := &Scaler{Mean: make([]float64, c), Scale: make([]float64, c)}
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, variance := stat.PopMeanVariance(col, nil)
		s.Mean[j] = mean
		std := math.Sqrt(variance)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Scale[j] = std
	}
	return s
}

// Width returns the number of columns the scaler was fit on.
func (s *Scaler) Width() int {
	return len(s.Mean)
}

// Transform returns a standardized copy of X.
func (s *Scaler) Transform(X mat.Matrix) *mat.Dense {
	r, c := X.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return out
}

// TransformRow standardizes a single row.
func (s *Scaler) TransformRow(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d values, got %d", len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// Validate checks that the scaler is usable.
func (s *Scaler) Validate() error {
	if len(s.Mean) == 0 || len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("scaler has %d means and %d scales", len(s.Mean), len(s.Scale))
	}
	for j, sc := range s.Scale {
		if sc <= 0 || math.IsNaN(sc) || math.IsNaN(s.Mean[j]) {
			return fmt.Errorf("scaler column %d invalid", j)
		}
	}
	return nil
}
