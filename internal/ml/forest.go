package ml

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Forest is a bagged ensemble of Gini trees, each split considering a
// random sqrt-sized subset of features.
type Forest struct {
	NTrees     int        `json:"n_trees"`
	Params     TreeParams `json:"params"`
	Seed       uint64     `json:"seed"`
	Trees      []*Tree    `json:"trees"`
	Importance []float64  `json:"importance"`
}

// NewForest returns an untrained forest with the pipeline's settings.
func NewForest(seed uint64) *Forest {
	return &Forest{NTrees: 100, Params: DefaultTreeParams(), Seed: seed}
}

func (f *Forest) Kind() Kind { return KindForest }

// Fit grows NTrees trees on bootstrap samples. Class weights are balanced
// over the full training set.
func (f *Forest) Fit(X *mat.Dense, y []float64) error {
	n, nf := X.Dims()
	if n != len(y) {
		return fmt.Errorf("forest: %d rows but %d targets", n, len(y))
	}
	if f.NTrees < 1 {
		return fmt.Errorf("forest: %d trees", f.NTrees)
	}
	rows := Rows(X)
	w := BalancedWeights(y)
	params := f.Params
	params.MaxFeatures = max(1, int(math.Sqrt(float64(nf))))

	r := rand.New(rand.NewPCG(f.Seed, f.Seed))
	f.Trees = make([]*Tree, f.NTrees)
	f.Importance = make([]float64, nf)
	for i := range f.Trees {
		boot := make([]int, n)
		for j := range boot {
			boot[j] = r.IntN(n)
		}
		seed := r.Uint64()
		t := &Tree{Params: params, Seed: seed}
		t.fit(rows, y, w, boot, rand.New(rand.NewPCG(seed, seed)))
		f.Trees[i] = t
		floats.Add(f.Importance, t.Importance)
	}
	if s := floats.Sum(f.Importance); s > 0 {
		floats.Scale(1/s, f.Importance)
	}
	return nil
}

// PredictProba averages the trees' probabilities.
func (f *Forest) PredictProba(X mat.Matrix) []float64 {
	rows, _ := X.Dims()
	out := make([]float64, rows)
	for _, t := range f.Trees {
		floats.Add(out, t.PredictProba(X))
	}
	if len(f.Trees) > 0 {
		floats.Scale(1/float64(len(f.Trees)), out)
	}
	return out
}

// FeatureImportance returns the mean decrease in impurity per feature.
func (f *Forest) FeatureImportance() []float64 {
	return append([]float64(nil), f.Importance...)
}
