package augment

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/abhisek/atrisk/internal/features"
)

// NewRand returns the seeded source used by the generators.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// Generate draws n records from t. Each record picks an archetype by
// weight, samples every feature, applies the table's rules in order and
// clamps to the feature domains.
func Generate(t *Table, n int, seed uint64) []features.Record {
	r := NewRand(seed)
	weights := make([]float64, len(t.Archetypes))
	for i, a := range t.Archetypes {
		weights[i] = a.Weight
	}

	out := make([]features.Record, 0, n)
	for range n {
		a := t.Archetypes[weightedIndex(r, weights, len(weights))]
		var v features.Vector
		for i, spec := range features.All() {
			d, ok := a.Features[string(spec.Name)]
			if !ok {
				d = t.Defaults[string(spec.Name)]
			}
			v[i] = d.Sample(r)
		}
		for _, rule := range t.Rules {
			wi, _ := features.Index(rule.When.Feature)
			if !rule.When.holds(v[wi]) {
				continue
			}
			fi, _ := features.Index(rule.Feature)
			v[fi] += rule.Shift.Sample(r)
		}
		out = append(out, features.Record{
			Values: v.Clamped(),
			Label:  int(t.Labels.Sample(r)),
		})
	}
	return out
}

// Augmentor generates records for either risk class.
type Augmentor struct {
	tables map[features.Risk]*Table
}

// New returns an augmentor using the built-in tables.
func New() (*Augmentor, error) {
	a := &Augmentor{tables: map[features.Risk]*Table{}}
	for _, risk := range []features.Risk{features.NoRisk, features.AtRisk} {
		t, err := Builtin(risk)
		if err != nil {
			return nil, err
		}
		a.tables[risk] = t
	}
	return a, nil
}

// SetTable replaces the table used for t.Risk.
func (a *Augmentor) SetTable(t *Table) {
	a.tables[features.Risk(t.Risk)] = t
}

// Table returns the table used for a risk class.
func (a *Augmentor) Table(risk features.Risk) *Table {
	return a.tables[risk]
}

// Generate draws n records of the given risk class.
func (a *Augmentor) Generate(n int, risk features.Risk, seed uint64) ([]features.Record, error) {
	t, ok := a.tables[risk]
	if !ok {
		return nil, fmt.Errorf("no archetype table for %s", risk)
	}
	return Generate(t, n, seed), nil
}

// jitter is the per-feature noise applied to a real record. Steps, when set,
// replace Gaussian noise with a uniform pick from the listed offsets.
type jitter struct {
	std   float64
	steps []float64
}

var jitterByFeature = [features.Count]jitter{
	features.IdxAttendance:      {std: 5},
	features.IdxSelfStudy:       {std: 2},
	features.IdxStress:          {steps: []float64{-1, 0, 1}},
	features.IdxWork:            {std: 5},
	features.IdxSleep:           {std: 1},
	features.IdxSocialMedia:     {std: 1},
	features.IdxGPA:             {std: 0.5},
	features.IdxHighSchoolGPA:   {std: 0.3},
	features.IdxExam1:           {std: 5},
	features.IdxExam2:           {std: 5},
	features.IdxExam3:           {std: 5},
	features.IdxFinancialStress: {steps: []float64{-1, 0, 1}},
}

var jitterLabels = map[features.Risk]Dist{
	features.AtRisk: {Kind: DistChoice, Values: []float64{4, 5}, Weights: []float64{0.7, 0.3}},
}

// Jitter creates n records of the given class by copying a random real
// record of that class and perturbing each feature. At-risk labels are
// redrawn; no-risk records keep the base label.
func Jitter(base []features.Record, n int, risk features.Risk, seed uint64) ([]features.Record, error) {
	var pool []features.Record
	for _, rec := range base {
		if rec.Labeled() && rec.Risk() == risk {
			pool = append(pool, rec)
		}
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("no %s records to jitter", risk)
	}

	r := NewRand(seed)
	out := make([]features.Record, 0, n)
	for range n {
		src := pool[r.IntN(len(pool))]
		var v features.Vector
		for i, x := range src.Values {
			j := jitterByFeature[i]
			if len(j.steps) > 0 {
				v[i] = math.Trunc(x + j.steps[r.IntN(len(j.steps))])
			} else {
				v[i] = x + j.std*r.NormFloat64()
			}
		}
		label := src.Label
		if d, ok := jitterLabels[risk]; ok {
			label = int(d.Sample(r))
		}
		out = append(out, features.Record{Values: v.Clamped(), Label: label})
	}
	return out, nil
}
