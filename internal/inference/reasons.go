package inference

import (
	"fmt"
	"math"

	"github.com/abhisek/atrisk/internal/features"
)

// Polarity says whether a reason raises or lowers concern.
type Polarity string

const (
	Negative Polarity = "negative"
	Positive Polarity = "positive"
	Neutral  Polarity = "neutral"
)

// Reason is one human-readable call-out on a raw feature value.
type Reason struct {
	Feature  features.Feature `json:"feature,omitempty"`
	Polarity Polarity         `json:"polarity"`
	Text     string           `json:"text"`
}

func (r Reason) String() string {
	switch r.Polarity {
	case Negative:
		return "- " + r.Text
	case Positive:
		return "+ " + r.Text
	default:
		return "* " + r.Text
	}
}

// reasonRule inspects the raw vector and returns at most one reason.
type reasonRule func(v features.Vector) (Reason, bool)

// reasonRules run in feature contract order.
var reasonRules = []reasonRule{
	func(v features.Vector) (Reason, bool) {
		x := v[features.IdxAttendance]
		switch {
		case x < 70:
			return neg(features.AttendancePct, "Low attendance (%.0f%%)", x), true
		case x >= 90:
			return pos(features.AttendancePct, "High attendance (%.0f%%)", x), true
		}
		return Reason{}, false
	},
	func(v features.Vector) (Reason, bool) {
		x := v[features.IdxSelfStudy]
		switch {
		case x < 5:
			return neg(features.SelfStudyHours, "Little self-study (%.0fh/week)", x), true
		case x >= 10:
			return pos(features.SelfStudyHours, "Plenty of self-study (%.0fh/week)", x), true
		}
		return Reason{}, false
	},
	func(v features.Vector) (Reason, bool) {
		x := v[features.IdxStress]
		switch {
		case x >= 4:
			return neg(features.StressLevel, "High stress level (%.0f/5)", x), true
		case x <= 2:
			return pos(features.StressLevel, "Low stress level (%.0f/5)", x), true
		}
		return Reason{}, false
	},
	func(v features.Vector) (Reason, bool) {
		x := v[features.IdxWork]
		switch {
		case x > 30:
			return neg(features.WorkHours, "Works a lot (%.0fh/week)", x), true
		case x <= 15:
			return pos(features.WorkHours, "Works little (%.0fh/week)", x), true
		}
		return Reason{}, false
	},
	func(v features.Vector) (Reason, bool) {
		x := v[features.IdxSleep]
		switch {
		case x < 6:
			return neg(features.SleepHours, "Sleeps too little (%.0fh)", x), true
		case x >= 7:
			return pos(features.SleepHours, "Sleeps enough (%.0fh)", x), true
		}
		return Reason{}, false
	},
	func(v features.Vector) (Reason, bool) {
		x := ExamMean(v)
		switch {
		case x > 0 && x < 60:
			return neg(features.ExamScore1, "Low exam scores (%.0f)", x), true
		case x >= 75:
			return pos(features.ExamScore1, "Good exam scores (%.0f)", x), true
		}
		return Reason{}, false
	},
	func(v features.Vector) (Reason, bool) {
		x := v[features.IdxFinancialStress]
		if x >= 4 {
			return neg(features.FinancialStress, "High financial stress (%.0f/5)", x), true
		}
		return Reason{}, false
	},
}

// AverageIndicators is the only reason given when no cutoff is crossed.
var AverageIndicators = Reason{Polarity: Neutral, Text: "All indicators are average"}

func neg(f features.Feature, format string, x float64) Reason {
	return Reason{Feature: f, Polarity: Negative, Text: fmt.Sprintf(format, x)}
}

func pos(f features.Feature, format string, x float64) Reason {
	return Reason{Feature: f, Polarity: Positive, Text: fmt.Sprintf(format, x)}
}

// ExamMean averages the exam scores that were given. It is NaN when none
// were.
func ExamMean(v features.Vector) float64 {
	var sum float64
	var n int
	for _, x := range []float64{v[features.IdxExam1], v[features.IdxExam2], v[features.IdxExam3]} {
		if !math.IsNaN(x) {
			sum += x
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Reasons compares raw (unscaled) values against fixed cutoffs and returns
// one line per crossed cutoff. Missing (NaN) values never cross a cutoff.
func Reasons(v features.Vector) []Reason {
	var out []Reason
	for _, rule := range reasonRules {
		if r, ok := rule(v); ok {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return []Reason{AverageIndicators}
	}
	return out
}
