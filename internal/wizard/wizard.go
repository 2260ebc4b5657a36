// Package wizard holds the state of the one-field-at-a-time student form.
// It has no UI dependencies; the assessment screen drives it.
package wizard

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/normalize"
)

// IntentKey names the optional intent-to-quit step.
const IntentKey = features.LabelColumn

// ErrIncomplete is returned when a student is requested before every
// required step has a value.
var ErrIncomplete = errors.New("wizard: not every field is filled")

// Step is one question of the form.
type Step struct {
	Key      string
	Prompt   string
	Min      float64
	Max      float64
	Integer  bool
	Optional bool
}

// Steps returns the form questions: the 12 features in contract order,
// followed by the intent-to-quit answer when withIntent is set.
func Steps(withIntent bool) []Step {
	specs := features.All()
	steps := make([]Step, 0, len(specs)+1)
	for _, s := range specs {
		steps = append(steps, Step{
			Key:     string(s.Name),
			Prompt:  s.Prompt,
			Min:     s.Min,
			Max:     s.Max,
			Integer: s.Integer,
		})
	}
	if withIntent {
		steps = append(steps, Step{
			Key:      IntentKey,
			Prompt:   "Do you intend to quit your studies? (1 = no, 5 = yes; blank to skip)",
			Min:      features.MinLabel,
			Max:      features.MaxLabel,
			Integer:  true,
			Optional: true,
		})
	}
	return steps
}

// Parse converts raw input into a value for the step and checks its domain.
func (s Step) Parse(raw string) (float64, error) {
	v := normalize.ParseNumber(raw)
	if math.IsNaN(v) {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	if s.Integer && v != math.Trunc(v) {
		return 0, fmt.Errorf("enter a whole number between %g and %g", s.Min, s.Max)
	}
	if v < s.Min || v > s.Max {
		return 0, fmt.Errorf("enter a value between %g and %g", s.Min, s.Max)
	}
	return v, nil
}

// State tracks the current step, which steps are filled and their values.
type State struct {
	steps  []Step
	values []float64
	filled []bool
	cur    int
}

// New starts an empty form.
func New(withIntent bool) *State {
	steps := Steps(withIntent)
	return &State{
		steps:  steps,
		values: make([]float64, len(steps)),
		filled: make([]bool, len(steps)),
	}
}

// Len returns the number of steps.
func (s *State) Len() int { return len(s.steps) }

// Index returns the current step position. It equals Len once the form is
// done.
func (s *State) Index() int { return s.cur }

// Done reports whether the form has moved past the last step.
func (s *State) Done() bool { return s.cur >= len(s.steps) }

// Current returns the step being asked.
func (s *State) Current() (Step, bool) {
	if s.Done() {
		return Step{}, false
	}
	return s.steps[s.cur], true
}

// Value returns the stored value at step i and whether it is filled.
func (s *State) Value(i int) (float64, bool) {
	if i < 0 || i >= len(s.steps) {
		return 0, false
	}
	return s.values[i], s.filled[i]
}

// Filled returns how many steps have a value.
func (s *State) Filled() int {
	n := 0
	for _, f := range s.filled {
		if f {
			n++
		}
	}
	return n
}

// Submit parses raw for the current step and advances on success. A blank
// answer skips an optional step.
func (s *State) Submit(raw string) error {
	step, ok := s.Current()
	if !ok {
		return nil
	}
	if step.Optional && strings.TrimSpace(raw) == "" {
		s.filled[s.cur] = false
		s.values[s.cur] = 0
		s.cur++
		return nil
	}
	v, err := step.Parse(raw)
	if err != nil {
		return err
	}
	s.values[s.cur] = v
	s.filled[s.cur] = true
	s.cur++
	return nil
}

// Back returns to the previous step, keeping its value.
func (s *State) Back() bool {
	if s.cur == 0 {
		return false
	}
	s.cur--
	return true
}

// Reset clears every value and returns to the first step.
func (s *State) Reset() {
	for i := range s.values {
		s.values[i] = 0
		s.filled[i] = false
	}
	s.cur = 0
}

// Student builds the form struct from the filled values and validates it.
func (s *State) Student() (features.Student, error) {
	var rec features.Record
	for i, step := range s.steps {
		if !s.filled[i] {
			if step.Optional {
				continue
			}
			return features.Student{}, fmt.Errorf("%w: %s", ErrIncomplete, step.Key)
		}
		if step.Key == IntentKey {
			rec.Label = int(s.values[i])
			continue
		}
		rec.Values[i] = s.values[i]
	}
	st := features.StudentFromRecord(rec)
	if err := st.Validate(); err != nil {
		return features.Student{}, err
	}
	return st, nil
}
