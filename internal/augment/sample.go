package augment

import (
	"math"
	"math/rand/v2"
)

// Sample draws one value from d.
func (d Dist) Sample(r *rand.Rand) float64 {
	var v float64
	switch d.Kind {
	case DistUniform:
		v = d.Min + r.Float64()*(d.Max-d.Min)
	case DistInt:
		v = d.Min + float64(r.IntN(int(d.Max-d.Min)))
	case DistNormal:
		v = d.Mean + d.Std*r.NormFloat64()
	case DistChoice:
		v = d.Values[weightedIndex(r, d.Weights, len(d.Values))]
	case DistConst:
		v = d.Value
	}
	if d.Decimals != nil && *d.Decimals >= 0 {
		p := math.Pow(10, float64(*d.Decimals))
		v = math.Round(v*p) / p
	}
	return v
}

// weightedIndex picks an index in [0, n). Missing or all-zero weights mean
// a uniform pick.
func weightedIndex(r *rand.Rand, weights []float64, n int) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if len(weights) != n || total <= 0 {
		return r.IntN(n)
	}
	x := r.Float64() * total
	for i, w := range weights {
		if x < w {
			return i
		}
		x -= w
	}
	return n - 1
}

func (c Condition) holds(v float64) bool {
	switch c.Op {
	case "<":
		return v < c.Value
	case "<=":
		return v <= c.Value
	case ">":
		return v > c.Value
	case ">=":
		return v >= c.Value
	}
	return false
}
