package inference

import "github.com/abhisek/atrisk/internal/features"

// Threshold is the at-risk decision boundary on the positive-class
// probability. A probability equal to it is at risk.
const Threshold = 0.25

// Tier boundaries. Lower bounds are inclusive.
const (
	MediumTierFrom = 0.30
	HighTierFrom   = 0.60
)

// Tier is a coarse risk band. It is derived from the same probability as the
// binary prediction but with its own cutoffs, so the two may disagree near
// the margin.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// TierFor maps an at-risk probability to its tier.
func TierFor(p float64) Tier {
	switch {
	case p >= HighTierFrom:
		return TierHigh
	case p >= MediumTierFrom:
		return TierMedium
	default:
		return TierLow
	}
}

// Label returns the display text used by the CLI and the result screen.
func (t Tier) Label() string {
	switch t {
	case TierHigh:
		return "HIGH RISK"
	case TierMedium:
		return "MEDIUM RISK"
	default:
		return "LOW RISK"
	}
}

// Message is the advisor guidance shown under the tier.
func (t Tier) Message() string {
	switch t {
	case TierHigh:
		return "The student belongs to the high-risk group. Extra attention is recommended."
	case TierMedium:
		return "The student belongs to the medium-risk group. Keep monitoring the situation."
	default:
		return "The student is not in a risk group. Continuing studies is likely."
	}
}

// Decide applies Threshold.
func Decide(p float64) features.Risk {
	if p >= Threshold {
		return features.AtRisk
	}
	return features.NoRisk
}
