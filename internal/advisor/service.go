package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/atrisk/internal/jsondoc"
	"github.com/abhisek/atrisk/internal/llm"
)

// Service writes advisor notes.
type Service struct {
	provider llm.Provider
	cfg      Config
}

// NewService creates a note service.
func NewService(provider llm.Provider, cfg Config) *Service {
	return &Service{provider: provider, cfg: cfg}
}

// Generate asks the provider for a note on in.
func (s *Service) Generate(ctx context.Context, in Input) (*Note, error) {
	if in.Result == nil {
		return nil, errors.New("advisor note needs a prediction")
	}
	ctx = llm.WithPurpose(ctx, Purpose)

	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      buildUserMessage(in),
		Schema:      NoteSchema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("advisor note: %w", err)
	}

	var note Note
	if err := jsondoc.Decode(NoteSchema.Document(), resp.Content, &note); err != nil {
		return nil, fmt.Errorf("parse advisor note: %w", err)
	}
	return &note, nil
}

// Render formats a note for a terminal.
func (n *Note) Render() string {
	var b strings.Builder
	b.WriteString(n.Summary)
	b.WriteString("\n")
	if len(n.Concerns) > 0 {
		b.WriteString("\nConcerns:\n")
		for _, c := range n.Concerns {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
	}
	b.WriteString("\nSuggested actions:\n")
	for i, a := range n.Actions {
		fmt.Fprintf(&b, "  %d. %s: %s\n", i+1, a.Title, a.Detail)
	}
	fmt.Fprintf(&b, "\nFollow up in %d week(s).\n", n.FollowUpWeeks)
	return b.String()
}
