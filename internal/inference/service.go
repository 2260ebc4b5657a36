// Package inference scores a single student against a persisted model and
// scaler pair and explains the result.
package inference

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/abhisek/atrisk/internal/artifact"
	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/ml"
)

// Result is the outcome of one prediction.
type Result struct {
	Prediction  features.Risk `json:"prediction"`
	Tier        Tier          `json:"risk_level"`
	Probability float64       `json:"probability_risk"`
	Confidence  float64       `json:"confidence"` // Probability as a percentage
	Reasons     []Reason      `json:"reasons"`
	Forecast    Forecast      `json:"forecast"`
	Model       string        `json:"model"`
	Variant     ml.Kind       `json:"variant"`
	TrainedAt   time.Time     `json:"trained_at"`
	Imputed     []string      `json:"imputed,omitempty"`
}

// Service scores records with one loaded pair. It never writes.
type Service struct {
	pair *artifact.Pair
}

// New wraps an already loaded pair.
func New(p *artifact.Pair) (*Service, error) {
	if p == nil || p.Model == nil || p.Scaler == nil {
		return nil, fmt.Errorf("%w: incomplete pair", artifact.ErrModelNotTrained)
	}
	if p.Scaler.Width() != features.Count {
		return nil, fmt.Errorf("%w: scaler width %d", artifact.ErrModelNotTrained, p.Scaler.Width())
	}
	return &Service{pair: p}, nil
}

// Load reads the named pair from dir. An empty name loads the canonical
// pair.
func Load(dir artifact.Dir, name string) (*Service, error) {
	if name == "" {
		name = artifact.CanonicalName
	}
	p, err := dir.Load(name)
	if err != nil {
		return nil, err
	}
	return New(p)
}

// Pair returns the loaded pair.
func (s *Service) Pair() *artifact.Pair {
	return s.pair
}

// Impute fills missing values with the mean of the row's available values.
// It returns the filled vector and the names of the features it filled.
func Impute(v features.Vector) (features.Vector, []string, error) {
	missing := v.MissingFeatures()
	if len(missing) == 0 {
		return v, nil, nil
	}
	if len(missing) == features.Count {
		return v, nil, &features.SchemaError{Source: "record", Missing: missing}
	}
	var sum float64
	var n int
	for _, x := range v {
		if !math.IsNaN(x) {
			sum += x
			n++
		}
	}
	mean := sum / float64(n)
	for i, x := range v {
		if math.IsNaN(x) {
			v[i] = mean
		}
	}
	return v, missing, nil
}

// Probability returns the at-risk probability for a complete raw vector.
func (s *Service) Probability(v features.Vector) (float64, error) {
	row, err := s.pair.Scaler.TransformRow(v[:])
	if err != nil {
		return 0, err
	}
	p := s.pair.Model.PredictProba(mat.NewDense(1, features.Count, row))
	if len(p) != 1 || math.IsNaN(p[0]) {
		return 0, errors.New("model returned no probability")
	}
	return p[0], nil
}

// Predict scores one record. Only the model sees imputed values; reasons
// and the forecast read the answers as given.
func (s *Service) Predict(raw features.Vector) (*Result, error) {
	filled, imputed, err := Impute(raw)
	if err != nil {
		return nil, err
	}
	p, err := s.Probability(filled)
	if err != nil {
		return nil, fmt.Errorf("predict with %s: %w", s.pair.Name, err)
	}
	return &Result{
		Prediction:  Decide(p),
		Tier:        TierFor(p),
		Probability: p,
		Confidence:  p * 100,
		Reasons:     Reasons(raw),
		Forecast:    ForecastGPA(raw),
		Model:       s.pair.Name,
		Variant:     s.pair.Variant,
		TrainedAt:   s.pair.TrainedAt,
		Imputed:     imputed,
	}, nil
}

// PredictMap scores a record keyed by canonical feature name or dataset
// column. Every feature must be present as a key; a NaN value counts as
// missing and is imputed. Unknown keys are ignored.
func (s *Service) PredictMap(m map[string]float64) (*Result, error) {
	v, err := VectorFromMap(m)
	if err != nil {
		return nil, err
	}
	return s.Predict(v)
}

// PredictStudent validates a form entry and scores it.
func (s *Service) PredictStudent(st features.Student) (*Result, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return s.Predict(st.Vector())
}

// VectorFromMap builds a vector from named values, failing with a
// SchemaError that lists every absent feature.
func VectorFromMap(m map[string]float64) (features.Vector, error) {
	v := features.Missing()
	seen := make([]bool, features.Count)
	for k, x := range m {
		if i, ok := features.Index(k); ok {
			v[i] = x
			seen[i] = true
		}
	}
	var missing []string
	for i, ok := range seen {
		if !ok {
			missing = append(missing, string(features.At(i).Name))
		}
	}
	if len(missing) > 0 {
		return v, &features.SchemaError{Source: "record", Missing: missing}
	}
	return v, nil
}
