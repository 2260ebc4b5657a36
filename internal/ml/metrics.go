package ml

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Confusion counts outcomes of binary predictions.
type Confusion struct {
	TN int `json:"tn"`
	FP int `json:"fp"`
	FN int `json:"fn"`
	TP int `json:"tp"`
}

// Metrics summarizes a classifier on held-out data.
type Metrics struct {
	Accuracy  float64   `json:"accuracy"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	F1        float64   `json:"f1"`
	ROCAUC    float64   `json:"roc_auc"`
	CVMean    float64   `json:"cv_mean"`
	CVStd     float64   `json:"cv_std"`
	Confusion Confusion `json:"confusion"`
}

// NewConfusion tallies predictions against truth.
func NewConfusion(yTrue, yPred []float64) Confusion {
	var c Confusion
	for i, t := range yTrue {
		switch {
		case t == 1 && yPred[i] == 1:
			c.TP++
		case t == 1:
			c.FN++
		case yPred[i] == 1:
			c.FP++
		default:
			c.TN++
		}
	}
	return c
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// Accuracy is the share of correct predictions.
func (c Confusion) Accuracy() float64 { return ratio(c.TP+c.TN, c.TP+c.TN+c.FP+c.FN) }

// Precision is TP / (TP + FP), zero when nothing was predicted positive.
func (c Confusion) Precision() float64 { return ratio(c.TP, c.TP+c.FP) }

// Recall is TP / (TP + FN), zero when there are no positives.
func (c Confusion) Recall() float64 { return ratio(c.TP, c.TP+c.FN) }

// F1 is the harmonic mean of precision and recall.
func (c Confusion) F1() float64 { return ratio(2*c.TP, 2*c.TP+c.FP+c.FN) }

// Evaluate scores positive-class probabilities against truth, predicting
// positive at or above threshold.
func Evaluate(yTrue, proba []float64, threshold float64) Metrics {
	pred := make([]float64, len(proba))
	for i, p := range proba {
		if p >= threshold {
			pred[i] = 1
		}
	}
	c := NewConfusion(yTrue, pred)
	return Metrics{
		Accuracy:  c.Accuracy(),
		Precision: c.Precision(),
		Recall:    c.Recall(),
		F1:        c.F1(),
		ROCAUC:    ROCAUC(yTrue, proba),
		Confusion: c,
	}
}

// ROCAUC is the area under the ROC curve, or NaN when yTrue holds a single
// class.
func ROCAUC(yTrue, proba []float64) float64 {
	scores := append([]float64(nil), proba...)
	classes := make([]bool, len(yTrue))
	var pos int
	for i, t := range yTrue {
		classes[i] = t == 1
		if classes[i] {
			pos++
		}
	}
	if pos == 0 || pos == len(yTrue) {
		return math.NaN()
	}
	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// CrossValidate trains a fresh classifier per stratified fold and returns
// the mean and population standard deviation of fold accuracy.
func CrossValidate(factory Factory, X *mat.Dense, y []float64, k int, r *rand.Rand) (mean, std float64, err error) {
	folds := StratifiedKFold(y, k, r)
	if len(folds) == 0 {
		return math.NaN(), math.NaN(), nil
	}
	scores := make([]float64, 0, len(folds))
	for _, held := range folds {
		trainIdx := Complement(len(y), held)
		c := factory()
		if err := c.Fit(SelectRows(X, trainIdx), SelectLabels(y, trainIdx)); err != nil {
			return 0, 0, err
		}
		yHeld := SelectLabels(y, held)
		pred := Predict(c, SelectRows(X, held), 0.5)
		scores = append(scores, NewConfusion(yHeld, pred).Accuracy())
	}
	mean, variance := stat.PopMeanVariance(scores, nil)
	return mean, math.Sqrt(variance), nil
}
