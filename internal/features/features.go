// Package features defines the fixed, ordered feature contract shared by
// the normalizer, the augmentor, training and inference.
package features

import (
	"fmt"
	"math"
	"strings"
)

// Feature is the canonical identifier of one model input.
type Feature string

const (
	AttendancePct    Feature = "attendance_pct"
	SelfStudyHours   Feature = "self_study_hours"
	StressLevel      Feature = "stress_level"
	WorkHours        Feature = "work_hours"
	SleepHours       Feature = "sleep_hours"
	SocialMediaHours Feature = "social_media_hours"
	GPA              Feature = "gpa"
	HighSchoolGPA    Feature = "high_school_gpa"
	ExamScore1       Feature = "exam_score_1"
	ExamScore2       Feature = "exam_score_2"
	ExamScore3       Feature = "exam_score_3"
	FinancialStress  Feature = "financial_stress"
)

// Count is the number of features every record carries.
const Count = 12

// Column positions in contract order.
const (
	IdxAttendance = iota
	IdxSelfStudy
	IdxStress
	IdxWork
	IdxSleep
	IdxSocialMedia
	IdxGPA
	IdxHighSchoolGPA
	IdxExam1
	IdxExam2
	IdxExam3
	IdxFinancialStress
)

const (
	// LabelColumn is the 1-5 "intend to quit" answer.
	LabelColumn = "ketinu_mesti_studijas"
	// RiskColumn is the derived binary target.
	RiskColumn = "rizika"
)

// Spec describes one feature: its names, its valid domain and how the form
// asks for it.
type Spec struct {
	Name    Feature
	Column  string // dataset CSV column
	Prompt  string // form question
	Min     float64
	Max     float64
	Percent bool // clamped to [0,100] when parsed
	Integer bool // entered as a whole number
}

var contract = [Count]Spec{
	{Name: AttendancePct, Column: "lankomumas_proc", Prompt: "Attendance this semester (%)", Min: 0, Max: 100, Percent: true},
	{Name: SelfStudyHours, Column: "savarankisko_mokymosi_val", Prompt: "Self-study hours per week", Min: 0, Max: 60},
	{Name: StressLevel, Column: "streso_lygis", Prompt: "Stress level (1-5)", Min: 1, Max: 5, Integer: true},
	{Name: WorkHours, Column: "darbo_valandos", Prompt: "Work hours per week", Min: 0, Max: 80},
	{Name: SleepHours, Column: "miego_valandos", Prompt: "Sleep hours per night", Min: 0, Max: 24},
	{Name: SocialMediaHours, Column: "socialiniu_tinklu_val", Prompt: "Social media hours per day", Min: 0, Max: 24},
	{Name: GPA, Column: "studiju_vidurkis", Prompt: "University GPA (0-10)", Min: 0, Max: 10},
	{Name: HighSchoolGPA, Column: "dvyliktos_klases_vidurkis", Prompt: "Final high school GPA (0-10)", Min: 0, Max: 10},
	{Name: ExamScore1, Column: "brandos_egzaminas_1", Prompt: "State exam: mathematics (0-100, 0 = not taken)", Min: 0, Max: 100, Integer: true},
	{Name: ExamScore2, Column: "brandos_egzaminas_2", Prompt: "State exam: Lithuanian (0-100, 0 = not taken)", Min: 0, Max: 100, Integer: true},
	{Name: ExamScore3, Column: "brandos_egzaminas_3", Prompt: "State exam: English (0-100, 0 = not taken)", Min: 0, Max: 100, Integer: true},
	{Name: FinancialStress, Column: "finansinis_stresas", Prompt: "Financial stress (1-5)", Min: 1, Max: 5, Integer: true},
}

// All returns the feature specs in contract order.
func All() []Spec {
	out := make([]Spec, Count)
	copy(out, contract[:])
	return out
}

// At returns the spec at position i.
func At(i int) Spec {
	return contract[i]
}

// Names returns the canonical feature names in contract order.
func Names() []string {
	out := make([]string, Count)
	for i, s := range contract {
		out[i] = string(s.Name)
	}
	return out
}

// Columns returns the dataset CSV column names in contract order.
func Columns() []string {
	out := make([]string, Count)
	for i, s := range contract {
		out[i] = s.Column
	}
	return out
}

// Index resolves a canonical name or a dataset column to its position.
func Index(name string) (int, bool) {
	name = strings.TrimSpace(name)
	for i, s := range contract {
		if string(s.Name) == name || s.Column == name {
			return i, true
		}
	}
	return -1, false
}

// Lookup returns the spec for a canonical name or dataset column.
func Lookup(name string) (Spec, error) {
	i, ok := Index(name)
	if !ok {
		return Spec{}, fmt.Errorf("unknown feature %q", name)
	}
	return contract[i], nil
}

// Clamp limits v to the feature's domain. NaN is returned unchanged.
func (s Spec) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Max(s.Min, math.Min(s.Max, v))
}

// Contains reports whether v lies inside the feature's domain.
func (s Spec) Contains(v float64) bool {
	return v >= s.Min && v <= s.Max
}

// Vector holds one value per feature in contract order. NaN marks a
// missing value.
type Vector [Count]float64

// Missing returns a vector with every value unset.
func Missing() Vector {
	var v Vector
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

// Get returns the value of a named feature.
func (v Vector) Get(f Feature) float64 {
	i, _ := Index(string(f))
	return v[i]
}

// Set assigns the value of a named feature.
func (v *Vector) Set(f Feature, x float64) {
	i, _ := Index(string(f))
	v[i] = x
}

// Slice returns a copy of the values as a slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, Count)
	copy(out, v[:])
	return out
}

// MissingFeatures lists the features whose value is NaN.
func (v Vector) MissingFeatures() []string {
	var out []string
	for i, x := range v {
		if math.IsNaN(x) {
			out = append(out, string(contract[i].Name))
		}
	}
	return out
}

// Clamped returns a copy with every value limited to its domain.
func (v Vector) Clamped() Vector {
	for i := range v {
		v[i] = contract[i].Clamp(v[i])
	}
	return v
}
