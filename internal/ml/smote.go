package ml

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SMOTE oversamples the minority class by interpolating between a minority
// row and one of its nearest minority neighbours.
type SMOTE struct {
	// Ratio is the target minority/majority ratio after resampling.
	Ratio float64
	// K is the number of neighbours considered.
	K int
}

// DefaultSMOTE matches the pipeline's resampling settings.
func DefaultSMOTE() SMOTE {
	return SMOTE{Ratio: 0.8, K: 5}
}

// Resample returns X and y with synthetic minority rows appended. Nothing
// is added when the minority already meets the ratio.
func (s SMOTE) Resample(X *mat.Dense, y []float64, r *rand.Rand) (*mat.Dense, []float64, error) {
	neg, pos := classIndices(y)
	minority, majority := pos, neg
	label := 1.0
	if len(pos) > len(neg) {
		minority, majority = neg, pos
		label = 0
	}

	need := int(s.Ratio*float64(len(majority))) - len(minority)
	if need <= 0 {
		return X, y, nil
	}
	if len(minority) < 2 {
		return nil, nil, fmt.Errorf("%w: minority class has %d rows, need 2 to interpolate", ErrTooFewSamples, len(minority))
	}
	k := min(s.K, len(minority)-1)

	rows, c := X.Dims()
	neighbours := make([][]int, len(minority))
	for a, i := range minority {
		neighbours[a] = nearest(X, i, minority, k)
	}

	out := mat.NewDense(rows+need, c, nil)
	out.Slice(0, rows, 0, c).(*mat.Dense).Copy(X)
	yOut := make([]float64, rows+need)
	copy(yOut, y)

	synth := make([]float64, c)
	for n := 0; n < need; n++ {
		a := r.IntN(len(minority))
		base := X.RawRowView(minority[a])
		nb := X.RawRowView(neighbours[a][r.IntN(k)])
		gap := r.Float64()
		// base + gap*(nb-base)
		floats.SubTo(synth, nb, base)
		floats.Scale(gap, synth)
		floats.Add(synth, base)
		out.SetRow(rows+n, synth)
		yOut[rows+n] = label
	}
	return out, yOut, nil
}

// nearest returns the k rows among candidates closest to row i, excluding
// i itself.
func nearest(X *mat.Dense, i int, candidates []int, k int) []int {
	type cand struct {
		idx  int
		dist float64
	}
	src := X.RawRowView(i)
	all := make([]cand, 0, len(candidates)-1)
	for _, j := range candidates {
		if j == i {
			continue
		}
		all = append(all, cand{idx: j, dist: floats.Distance(src, X.RawRowView(j), 2)})
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].dist < all[b].dist })
	out := make([]int, k)
	for n := range out {
		out[n] = all[n].idx
	}
	return out
}

// AddNoise perturbs every value of X in place with N(0, std) noise.
func AddNoise(X *mat.Dense, std float64, r *rand.Rand) {
	X.Apply(func(_, _ int, v float64) float64 {
		return v + std*r.NormFloat64()
	}, X)
}
