package advisor

import "github.com/abhisek/atrisk/internal/llm"

// NoteSchema defines the JSON shape of an advisor note.
var NoteSchema = &llm.Schema{
	Name:        "advisor-note",
	Description: "A short intervention note for a student advisor",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "Two or three sentences on the student's situation",
			},
			"concerns": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"maxItems":    4,
				"description": "The most pressing concerns, most important first",
			},
			"actions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":  map[string]any{"type": "string"},
						"detail": map[string]any{"type": "string"},
					},
					"required":             []any{"title", "detail"},
					"additionalProperties": false,
				},
				"minItems": 1,
				"maxItems": 4,
			},
			"follow_up_weeks": map[string]any{
				"type":        "integer",
				"minimum":     1,
				"maximum":     12,
				"description": "Weeks until the advisor should check in again",
			},
		},
		"required":             []any{"summary", "concerns", "actions", "follow_up_weeks"},
		"additionalProperties": false,
	},
}
