// Package ml holds the numeric building blocks of the training pipeline:
// scaling, resampling, the three classifiers, and evaluation.
package ml

import (
	"gonum.org/v1/gonum/mat"
)

// Kind names a classifier family.
type Kind string

const (
	KindLogistic Kind = "logistic_regression"
	KindTree     Kind = "decision_tree"
	KindForest   Kind = "random_forest"
)

// Classifier is a binary classifier over scaled feature rows.
type Classifier interface {
	Kind() Kind
	// Fit trains on X with 0/1 targets y.
	Fit(X *mat.Dense, y []float64) error
	// PredictProba returns the positive-class probability for each row.
	PredictProba(X mat.Matrix) []float64
}

// Importancer is implemented by classifiers that can rank features.
type Importancer interface {
	FeatureImportance() []float64
}

// Factory builds an untrained classifier. Cross-validation trains a fresh
// one per fold.
type Factory func() Classifier

// Predict thresholds PredictProba. A probability equal to threshold is
// positive.
func Predict(c Classifier, X mat.Matrix, threshold float64) []float64 {
	proba := c.PredictProba(X)
	out := make([]float64, len(proba))
	for i, p := range proba {
		if p >= threshold {
			out[i] = 1
		}
	}
	return out
}

// BalancedWeights returns per-sample weights n / (2 * n_class) so both
// classes carry equal total weight.
func BalancedWeights(y []float64) []float64 {
	var pos float64
	for _, v := range y {
		pos += v
	}
	n := float64(len(y))
	neg := n - pos
	w := make([]float64, len(y))
	for i, v := range y {
		switch {
		case v == 1 && pos > 0:
			w[i] = n / (2 * pos)
		case v == 0 && neg > 0:
			w[i] = n / (2 * neg)
		default:
			w[i] = 1
		}
	}
	return w
}

// Rows returns the row slices of X without copying.
func Rows(X *mat.Dense) [][]float64 {
	r, _ := X.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = X.RawRowView(i)
	}
	return out
}

// SelectRows copies the listed rows of X into a new matrix. It returns nil
// for an empty selection, which gonum cannot represent.
func SelectRows(X *mat.Dense, idx []int) *mat.Dense {
	if len(idx) == 0 {
		return nil
	}
	_, c := X.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, j := range idx {
		out.SetRow(i, X.RawRowView(j))
	}
	return out
}

// SelectLabels picks y at the listed positions.
func SelectLabels(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
