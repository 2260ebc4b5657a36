package inference

import (
	"math"

	"github.com/abhisek/atrisk/internal/features"
)

// Trend is the direction of a GPA forecast.
type Trend string

const (
	Improving Trend = "improving"
	Declining Trend = "declining"
	Stable    Trend = "stable"
)

// trendDeadZone is the absolute change below which a forecast is stable.
const trendDeadZone = 0.3

// Forecast is a next-term GPA estimate.
type Forecast struct {
	Current   float64 `json:"current_gpa"`
	Predicted float64 `json:"predicted_gpa"`
	Delta     float64 `json:"delta"`
	Trend     Trend   `json:"trend"`
}

type op int

const (
	atLeast op = iota
	above
	below
)

type adjustment struct {
	op    op
	limit float64
	delta float64
}

func (a adjustment) matches(x float64) bool {
	switch a.op {
	case atLeast:
		return x >= a.limit
	case above:
		return x > a.limit
	default:
		return x < a.limit
	}
}

// forecastRule applies the first matching adjustment for one feature.
type forecastRule struct {
	feature  int
	fallback float64
	steps    []adjustment
}

var forecastRules = []forecastRule{
	{features.IdxSelfStudy, 10, []adjustment{{atLeast, 10, 0.5}, {atLeast, 7, 0.2}}},
	{features.IdxAttendance, 85, []adjustment{{atLeast, 90, 0.3}, {atLeast, 80, 0.1}, {below, 70, -0.4}}},
	{features.IdxSleep, 7, []adjustment{{atLeast, 7, 0.2}, {below, 6, -0.3}}},
	{features.IdxStress, 3, []adjustment{{atLeast, 4, -0.4}, {atLeast, 3, -0.2}}},
	{features.IdxWork, 20, []adjustment{{above, 30, -0.5}, {above, 20, -0.2}}},
}

const defaultGPA = 7

// ForecastGPA adjusts the current GPA by a fixed point table and clamps the
// result to [1, 10]. Missing inputs take neutral defaults.
func ForecastGPA(v features.Vector) Forecast {
	current := orDefault(v[features.IdxGPA], defaultGPA)
	predicted := current
	for _, rule := range forecastRules {
		x := orDefault(v[rule.feature], rule.fallback)
		for _, step := range rule.steps {
			if step.matches(x) {
				predicted += step.delta
				break
			}
		}
	}
	predicted = math.Max(1, math.Min(10, predicted))

	f := Forecast{
		Current:   current,
		Predicted: math.Round(predicted*100) / 100,
		Delta:     math.Round((predicted-current)*100) / 100,
		Trend:     Stable,
	}
	switch {
	case f.Delta > trendDeadZone:
		f.Trend = Improving
	case f.Delta < -trendDeadZone:
		f.Trend = Declining
	}
	return f
}

func orDefault(x, fallback float64) float64 {
	if math.IsNaN(x) {
		return fallback
	}
	return x
}
