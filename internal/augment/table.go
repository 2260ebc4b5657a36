// Package augment generates synthetic student records from archetype
// tables or by jittering real records.
package augment

import (
	"embed"
	"fmt"
	"math"

	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/jsondoc"
)

// DistKind names a sampling distribution.
type DistKind string

const (
	DistUniform DistKind = "uniform" // continuous [min, max)
	DistInt     DistKind = "int"     // integer [min, max)
	DistNormal  DistKind = "normal"
	DistChoice  DistKind = "choice"
	DistConst   DistKind = "const"
)

// Dist describes how a single value is drawn.
type Dist struct {
	Kind    DistKind  `json:"dist"`
	Min     float64   `json:"min,omitempty"`
	Max     float64   `json:"max,omitempty"`
	Mean    float64   `json:"mean,omitempty"`
	Std     float64   `json:"std,omitempty"`
	Value   float64   `json:"value,omitempty"`
	Values  []float64 `json:"values,omitempty"`
	Weights []float64 `json:"weights,omitempty"`
	// Decimals rounds the drawn value; negative leaves it unrounded.
	Decimals *int `json:"decimals,omitempty"`
}

// Condition is a threshold test on one feature.
type Condition struct {
	Feature string  `json:"feature"`
	Op      string  `json:"op"` // <, <=, >, >=
	Value   float64 `json:"value"`
}

// Rule shifts one feature when a condition holds, expressing correlations
// between features (heavy work leaves less study time, short sleep raises
// stress).
type Rule struct {
	When    Condition `json:"when"`
	Feature string    `json:"feature"`
	Shift   Dist      `json:"shift"`
}

// Archetype is one weighted student profile.
type Archetype struct {
	Name     string          `json:"name"`
	Weight   float64         `json:"weight"`
	Features map[string]Dist `json:"features"`
}

// Table is a complete archetype table for one risk class.
type Table struct {
	Name       string          `json:"name"`
	Risk       int             `json:"risk"`
	Labels     Dist            `json:"labels"`
	Defaults   map[string]Dist `json:"defaults,omitempty"`
	Archetypes []Archetype     `json:"archetypes"`
	Rules      []Rule          `json:"rules,omitempty"`
}

var distSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"dist":     map[string]any{"type": "string", "enum": []string{"uniform", "int", "normal", "choice", "const"}},
		"min":      map[string]any{"type": "number"},
		"max":      map[string]any{"type": "number"},
		"mean":     map[string]any{"type": "number"},
		"std":      map[string]any{"type": "number", "minimum": 0},
		"value":    map[string]any{"type": "number"},
		"values":   map[string]any{"type": "array", "items": map[string]any{"type": "number"}, "minItems": 1},
		"weights":  map[string]any{"type": "array", "items": map[string]any{"type": "number", "minimum": 0}},
		"decimals": map[string]any{"type": "integer"},
	},
	"required":             []string{"dist"},
	"additionalProperties": false,
}

var featureDists = map[string]any{
	"type":                 "object",
	"propertyNames":        map[string]any{"enum": features.Names()},
	"additionalProperties": distSchema,
}

// TableSchema is the JSON Schema an archetype table file must satisfy.
var TableSchema = &jsondoc.Schema{
	Name: "archetype-table",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":     map[string]any{"type": "string", "minLength": 1},
			"risk":     map[string]any{"type": "integer", "enum": []int{0, 1}},
			"labels":   distSchema,
			"defaults": featureDists,
			"archetypes": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":     map[string]any{"type": "string", "minLength": 1},
						"weight":   map[string]any{"type": "number", "exclusiveMinimum": 0},
						"features": featureDists,
					},
					"required":             []string{"name", "weight", "features"},
					"additionalProperties": false,
				},
			},
			"rules": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"when": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"feature": map[string]any{"type": "string", "enum": features.Names()},
								"op":      map[string]any{"type": "string", "enum": []string{"<", "<=", ">", ">="}},
								"value":   map[string]any{"type": "number"},
							},
							"required":             []string{"feature", "op", "value"},
							"additionalProperties": false,
						},
						"feature": map[string]any{"type": "string", "enum": features.Names()},
						"shift":   distSchema,
					},
					"required":             []string{"when", "feature", "shift"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"name", "risk", "labels", "archetypes"},
		"additionalProperties": false,
	},
}

//go:embed tables/*.json
var builtin embed.FS

// Builtin returns the embedded table for a risk class.
func Builtin(risk features.Risk) (*Table, error) {
	name := "tables/no_risk.json"
	if risk == features.AtRisk {
		name = "tables/risk.json"
	}
	raw, err := builtin.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read builtin table: %w", err)
	}
	return ParseTable(raw)
}

// ParseTable decodes and validates a table document.
func ParseTable(raw []byte) (*Table, error) {
	var t Table
	if err := jsondoc.Decode(TableSchema, raw, &t); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTable reads a table from a JSON file.
func LoadTable(path string) (*Table, error) {
	var t Table
	if err := jsondoc.DecodeFile(TableSchema, path, &t); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &t, nil
}

// Validate checks the parts of a table the schema cannot express: every
// archetype covers every feature, distributions are well formed, and the
// labels belong to the table's risk class.
func (t *Table) Validate() error {
	if err := t.Labels.validate(); err != nil {
		return fmt.Errorf("table %s labels: %w", t.Name, err)
	}
	for _, l := range t.Labels.support() {
		label := int(l)
		if float64(label) != l || !features.ValidLabel(label) {
			return fmt.Errorf("table %s: label %v is not a 1-5 answer", t.Name, l)
		}
		if int(features.RiskFromLabel(label)) != t.Risk {
			return fmt.Errorf("table %s: label %d does not belong to risk class %d", t.Name, label, t.Risk)
		}
	}
	for name, d := range t.Defaults {
		if err := d.validate(); err != nil {
			return fmt.Errorf("table %s default %s: %w", t.Name, name, err)
		}
	}
	for _, a := range t.Archetypes {
		for name, d := range a.Features {
			if err := d.validate(); err != nil {
				return fmt.Errorf("table %s archetype %s feature %s: %w", t.Name, a.Name, name, err)
			}
		}
		for _, name := range features.Names() {
			_, own := a.Features[name]
			_, def := t.Defaults[name]
			if !own && !def {
				return fmt.Errorf("table %s archetype %s: no distribution for %s", t.Name, a.Name, name)
			}
		}
	}
	for i, r := range t.Rules {
		if err := r.Shift.validate(); err != nil {
			return fmt.Errorf("table %s rule %d: %w", t.Name, i, err)
		}
	}
	return nil
}

func (d Dist) validate() error {
	switch d.Kind {
	case DistUniform:
		if d.Max < d.Min {
			return fmt.Errorf("uniform max %v below min %v", d.Max, d.Min)
		}
	case DistInt:
		if d.Min != math.Trunc(d.Min) || d.Max != math.Trunc(d.Max) || d.Max <= d.Min {
			return fmt.Errorf("int range [%v, %v) invalid", d.Min, d.Max)
		}
	case DistNormal:
		if d.Std < 0 {
			return fmt.Errorf("normal std %v negative", d.Std)
		}
	case DistChoice:
		if len(d.Values) == 0 {
			return fmt.Errorf("choice without values")
		}
		if len(d.Weights) > 0 && len(d.Weights) != len(d.Values) {
			return fmt.Errorf("choice has %d values but %d weights", len(d.Values), len(d.Weights))
		}
	case DistConst:
	default:
		return fmt.Errorf("unknown distribution %q", d.Kind)
	}
	return nil
}

// support lists the values a discrete distribution can produce.
func (d Dist) support() []float64 {
	switch d.Kind {
	case DistConst:
		return []float64{d.Value}
	case DistChoice:
		return d.Values
	case DistInt:
		var out []float64
		for v := d.Min; v < d.Max; v++ {
			out = append(out, v)
		}
		return out
	default:
		return []float64{math.NaN()}
	}
}
