package normalize

import (
	"fmt"
	"strings"

	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/jsondoc"
)

// Kind selects the parser applied to a source column.
type Kind string

const (
	KindNumber  Kind = "number"
	KindPercent Kind = "percent"
)

// Column maps one source header onto a feature.
type Column struct {
	Source  string `json:"source"`
	Feature string `json:"feature"`
	Kind    Kind   `json:"kind"`
}

// Mapping is a versioned description of how a survey export maps onto the
// feature contract.
type Mapping struct {
	Version     string   `json:"version"`
	LabelColumn string   `json:"label_column"`
	Columns     []Column `json:"columns"`
}

// DefaultMappingVersion identifies the built-in survey mapping.
const DefaultMappingVersion = "2024.1"

// DefaultMapping returns the mapping for the institution's survey form.
func DefaultMapping() Mapping {
	return Mapping{
		Version:     DefaultMappingVersion,
		LabelColumn: "24. Ketinu nutraukti studijas",
		Columns: []Column{
			{Source: "18. Lankomumas šiame semestre (%)", Feature: string(features.AttendancePct), Kind: KindPercent},
			{Source: "20. Savarankiško mokymosi valandos per savaitę", Feature: string(features.SelfStudyHours), Kind: KindNumber},
			{Source: "23. Patiriu stiprų stresą", Feature: string(features.StressLevel), Kind: KindNumber},
			{Source: "9. Darbo valandos per savaitę", Feature: string(features.WorkHours), Kind: KindNumber},
			{Source: "21. Miego valandos per parą", Feature: string(features.SleepHours), Kind: KindNumber},
			{Source: "22. Laikas socialiniuose tinkluose per dieną (val.)", Feature: string(features.SocialMediaHours), Kind: KindNumber},
			{Source: "13. Koks yra jūsų bendras visų studijų semestrų vidurkis (1–10)?", Feature: string(features.GPA), Kind: KindNumber},
			{Source: "17. 12 klasės metinis vidurkis (1–10)", Feature: string(features.HighSchoolGPA), Kind: KindNumber},
			{Source: "14. Brandos egzaminas: Matematika (1–100, 0=nelaikiau)", Feature: string(features.ExamScore1), Kind: KindNumber},
			{Source: "15. Brandos egzaminas: Lietuvių kalba (1–100, 0=nelaikiau)", Feature: string(features.ExamScore2), Kind: KindNumber},
			{Source: "16. Brandos egzaminas: Anglų kalba (1–100, 0=nelaikiau)", Feature: string(features.ExamScore3), Kind: KindNumber},
			{Source: "7. Finansinis stresas (1–5)", Feature: string(features.FinancialStress), Kind: KindNumber},
		},
	}
}

// MappingSchema is the JSON Schema a mapping file must satisfy.
var MappingSchema = &jsondoc.Schema{
	Name: "column-mapping",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"version":      map[string]any{"type": "string", "minLength": 1},
			"label_column": map[string]any{"type": "string", "minLength": 1},
			"columns": map[string]any{
				"type":     "array",
				"minItems": features.Count,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"source":  map[string]any{"type": "string", "minLength": 1},
						"feature": map[string]any{"type": "string", "enum": features.Names()},
						"kind":    map[string]any{"type": "string", "enum": []string{string(KindNumber), string(KindPercent)}},
					},
					"required":             []string{"source", "feature", "kind"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"version", "label_column", "columns"},
		"additionalProperties": false,
	},
}

// LoadMapping reads and validates a mapping file.
func LoadMapping(path string) (Mapping, error) {
	var m Mapping
	if err := jsondoc.DecodeFile(MappingSchema, path, &m); err != nil {
		return Mapping{}, err
	}
	if err := m.Validate(); err != nil {
		return Mapping{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Validate checks that every feature is mapped exactly once.
func (m Mapping) Validate() error {
	seen := make(map[string]string, len(m.Columns))
	for _, c := range m.Columns {
		if _, ok := features.Index(c.Feature); !ok {
			return fmt.Errorf("mapping %s: unknown feature %q", m.Version, c.Feature)
		}
		if prev, dup := seen[c.Feature]; dup {
			return fmt.Errorf("mapping %s: feature %q mapped from both %q and %q", m.Version, c.Feature, prev, c.Source)
		}
		seen[c.Feature] = c.Source
	}
	var unmapped []string
	for _, name := range features.Names() {
		if _, ok := seen[name]; !ok {
			unmapped = append(unmapped, name)
		}
	}
	if len(unmapped) > 0 {
		return fmt.Errorf("mapping %s: features not mapped: %s", m.Version, strings.Join(unmapped, ", "))
	}
	if strings.TrimSpace(m.LabelColumn) == "" {
		return fmt.Errorf("mapping %s: label column not set", m.Version)
	}
	return nil
}
