package features

import "fmt"

// Label bounds for the "intend to quit" answer.
const (
	MinLabel = 1
	MaxLabel = 5

	// RiskLabelThreshold is the lowest label counted as at risk.
	RiskLabelThreshold = 4
)

// Risk is the binary dropout-risk target.
type Risk int

const (
	NoRisk Risk = 0
	AtRisk Risk = 1
)

// String returns a short display name.
func (r Risk) String() string {
	if r == AtRisk {
		return "at risk"
	}
	return "no risk"
}

// RiskFromLabel maps a 1-5 answer to the binary target.
func RiskFromLabel(label int) Risk {
	if label >= RiskLabelThreshold {
		return AtRisk
	}
	return NoRisk
}

// ValidLabel reports whether label is a recorded 1-5 answer.
func ValidLabel(label int) bool {
	return label >= MinLabel && label <= MaxLabel
}

// Record is one student: the feature values plus the 1-5 answer. Label is
// zero when the student did not answer.
type Record struct {
	Values Vector
	Label  int
}

// Risk returns the derived binary target.
func (r Record) Risk() Risk {
	return RiskFromLabel(r.Label)
}

// Labeled reports whether the record carries a usable answer.
func (r Record) Labeled() bool {
	return ValidLabel(r.Label)
}

// Validate checks that every value is set and within its domain.
func (r Record) Validate() error {
	for i, x := range r.Values {
		s := contract[i]
		if !s.Contains(x) {
			return fmt.Errorf("%s: value %v outside [%v, %v]", s.Name, x, s.Min, s.Max)
		}
	}
	if r.Label != 0 && !r.Labeled() {
		return fmt.Errorf("%s: value %d outside [%d, %d]", LabelColumn, r.Label, MinLabel, MaxLabel)
	}
	return nil
}
