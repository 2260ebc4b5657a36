// Package llm sends single-turn prompts to a hosted model and returns JSON
// checked against a schema. Providers are decorated with retry, timeout
// and event logging by NewProvider.
package llm

import (
	"context"
	"encoding/json"

	"github.com/abhisek/atrisk/internal/jsondoc"
)

// Provider completes one Request.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}

// Request is a system prompt plus one user prompt. With a Schema the
// provider asks for structured output and the reply is validated before it
// is returned.
type Request struct {
	System      string
	Prompt      string
	Schema      *Schema
	MaxTokens   int
	Temperature float64 // 0 keeps the provider default
}

// Schema is a named JSON Schema document.
type Schema struct {
	Name        string // kebab-case, also sent as the OpenAI schema name
	Description string
	Definition  map[string]any
}

// Document returns the schema in the form jsondoc compiles and caches.
func (s *Schema) Document() *jsondoc.Schema {
	return &jsondoc.Schema{Name: "llm-" + s.Name, Definition: s.Definition}
}

// Stop says why generation ended. Only truncation changes what callers do.
type Stop string

const (
	StopEnd       Stop = "end"
	StopMaxTokens Stop = "max_tokens"
)

// Response is a completed generation.
type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string // the model that actually served the call
	Stop    Stop
}

// Usage counts the tokens of one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
