// Package advisor asks an LLM for a short intervention note to go with a
// prediction. The note is advisory only and never changes the prediction.
package advisor

import (
	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/inference"
)

// Purpose labels advisor requests in the LLM event log.
const Purpose = "advisor-note"

// Input is what the note is written from.
type Input struct {
	Values features.Vector
	Result *inference.Result
}

// Action is one suggested step for the advisor.
type Action struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Note is the generated intervention note.
type Note struct {
	Summary       string   `json:"summary"`
	Concerns      []string `json:"concerns"`
	Actions       []Action `json:"actions"`
	FollowUpWeeks int      `json:"follow_up_weeks"`
}

// Config holds note generation settings.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the defaults for note generation.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   600,
		Temperature: 0.3,
	}
}
