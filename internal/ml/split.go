package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// ErrTooFewSamples is returned when a class is too small to stratify or
// resample.
var ErrTooFewSamples = errors.New("too few samples")

// classIndices groups row positions by 0/1 label.
func classIndices(y []float64) (neg, pos []int) {
	for i, v := range y {
		if v == 1 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}
	return neg, pos
}

// StratifiedSplit partitions row positions into train and test sets,
// keeping the class ratio in both. Each class needs at least two rows so
// that it appears on both sides.
func StratifiedSplit(y []float64, testFrac float64, r *rand.Rand) (train, test []int, err error) {
	neg, pos := classIndices(y)
	for _, cls := range []struct {
		name string
		idx  []int
	}{{"negative", neg}, {"positive", pos}} {
		if len(cls.idx) < 2 {
			return nil, nil, fmt.Errorf("%w: %s class has %d rows, need 2 to stratify", ErrTooFewSamples, cls.name, len(cls.idx))
		}
	}

	for _, idx := range [][]int{neg, pos} {
		r.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Round(testFrac * float64(len(idx))))
		nTest = max(1, min(len(idx)-1, nTest))
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}
	r.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	r.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

// StratifiedKFold deals each class round-robin into k folds and returns
// the held-out positions of every fold. k is capped at len(y).
func StratifiedKFold(y []float64, k int, r *rand.Rand) [][]int {
	k = min(k, len(y))
	if k < 2 {
		return nil
	}
	folds := make([][]int, k)
	neg, pos := classIndices(y)
	next := 0
	for _, idx := range [][]int{neg, pos} {
		r.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		for _, i := range idx {
			folds[next%k] = append(folds[next%k], i)
			next++
		}
	}
	return folds
}

// Complement returns 0..n-1 minus the given positions.
func Complement(n int, held []int) []int {
	skip := make(map[int]bool, len(held))
	for _, i := range held {
		skip[i] = true
	}
	out := make([]int, 0, n-len(held))
	for i := 0; i < n; i++ {
		if !skip[i] {
			out = append(out, i)
		}
	}
	return out
}
