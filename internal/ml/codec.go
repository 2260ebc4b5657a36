package ml

import (
	"encoding/json"
	"fmt"
)

type envelope struct {
	Kind  Kind            `json:"kind"`
	Model json.RawMessage `json:"model"`
}

// EncodeClassifier serializes a trained classifier with its kind.
func EncodeClassifier(c Classifier) ([]byte, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.Kind(), err)
	}
	return json.Marshal(envelope{Kind: c.Kind(), Model: body})
}

// DecodeClassifier restores a classifier and checks that it accepts rows of
// the given width.
func DecodeClassifier(raw []byte, width int) (Classifier, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode classifier: %w", err)
	}

	var c Classifier
	switch env.Kind {
	case KindLogistic:
		c = &Logistic{}
	case KindTree:
		c = &Tree{}
	case KindForest:
		c = &Forest{}
	default:
		return nil, fmt.Errorf("decode classifier: unknown kind %q", env.Kind)
	}
	if err := json.Unmarshal(env.Model, c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
	}
	if err := validateClassifier(c, width); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
	}
	return c, nil
}

func validateClassifier(c Classifier, width int) error {
	switch m := c.(type) {
	case *Logistic:
		if len(m.Coef) != width {
			return fmt.Errorf("logistic has %d coefficients, want %d", len(m.Coef), width)
		}
	case *Tree:
		return m.validate(width)
	case *Forest:
		if len(m.Trees) == 0 {
			return fmt.Errorf("forest has no trees")
		}
		for i, t := range m.Trees {
			if err := t.validate(width); err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
		}
	}
	return nil
}
