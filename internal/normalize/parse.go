package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)
	rangeRe  = regexp.MustCompile(`\d\s*[-–/]\s*\d`)
)

// clean strips percent signs, converts decimal commas and trims.
func clean(s string) string {
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strings.TrimSpace(s)
}

// isRange reports whether s holds a range such as "2-4" or "5/6": a
// delimiter between two digits. Signs and exponents ("-3", "1e-5") are not
// ranges.
func isRange(s string) bool {
	return rangeRe.MatchString(s)
}

// ParseNumber converts a free-text survey answer into a number. Ranges are
// averaged. Anything unparsable yields NaN.
func ParseNumber(raw string) float64 {
	s := clean(raw)
	if s == "" {
		return math.NaN()
	}
	if isRange(s) {
		parts := numberRe.FindAllString(s, -1)
		if len(parts) == 0 {
			return math.NaN()
		}
		sum := 0.0
		for _, p := range parts {
			v, _ := strconv.ParseFloat(p, 64)
			sum += v
		}
		return sum / float64(len(parts))
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// ParsePercentage is ParseNumber clamped to [0, 100].
func ParsePercentage(raw string) float64 {
	v := ParseNumber(raw)
	if math.IsNaN(v) {
		return v
	}
	return math.Max(0, math.Min(100, v))
}
