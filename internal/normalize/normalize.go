// Package normalize turns raw survey exports into feature-contract records.
package normalize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/abhisek/atrisk/internal/dataset"
	"github.com/abhisek/atrisk/internal/features"
)

// Report summarizes one normalization run.
type Report struct {
	MappingVersion string
	RowsRead       int
	RowsKept       int
	RowsDropped    int            // no usable label
	ParseFailures  map[string]int // per feature, before imputation
	Imputed        int
	LabelsClamped  int
	EmptyColumns   []string // features with no value in any row; left blank
}

// Normalize reads a survey CSV and maps it through m. Rows without a label
// are dropped after feature imputation; row order is preserved. A column
// with no parseable value anywhere in the file stays missing and is listed
// in the report.
func Normalize(r io.Reader, m Mapping) (*dataset.Dataset, Report, error) {
	rep := Report{MappingVersion: m.Version, ParseFailures: map[string]int{}}
	if err := m.Validate(); err != nil {
		return nil, rep, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, rep, &features.SchemaError{Source: "survey", Missing: requiredSources(m)}
		}
		return nil, rep, fmt.Errorf("read survey header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[normalizeHeader(h)] = i
	}

	type source struct {
		col  int
		kind Kind
	}
	var cols [features.Count]source
	var missing []string
	for _, c := range m.Columns {
		fi, _ := features.Index(c.Feature)
		pos, ok := index[normalizeHeader(c.Source)]
		if !ok {
			missing = append(missing, c.Source)
			continue
		}
		cols[fi] = source{col: pos, kind: c.Kind}
	}
	labelCol, ok := index[normalizeHeader(m.LabelColumn)]
	if !ok {
		missing = append(missing, m.LabelColumn)
	}
	if len(missing) > 0 {
		return nil, rep, &features.SchemaError{Source: "survey", Missing: missing}
	}

	all := &dataset.Dataset{}
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, rep, fmt.Errorf("read survey line %d: %w", line, err)
		}
		rec := features.Record{Values: features.Missing()}
		for fi, src := range cols {
			raw := field(row, src.col)
			var v float64
			if src.kind == KindPercent {
				v = ParsePercentage(raw)
			} else {
				v = ParseNumber(raw)
			}
			if math.IsNaN(v) && strings.TrimSpace(raw) != "" {
				rep.ParseFailures[string(features.At(fi).Name)]++
			}
			rec.Values[fi] = v
		}
		if l := ParseNumber(field(row, labelCol)); !math.IsNaN(l) && math.Round(l) != 0 {
			label := int(math.Round(l))
			if !features.ValidLabel(label) {
				label = max(features.MinLabel, min(features.MaxLabel, label))
				rep.LabelsClamped++
			}
			rec.Label = label
		}
		all.Append(rec)
	}
	rep.RowsRead = all.Len()

	for i, mean := range all.ColumnMeans() {
		if all.Len() > 0 && math.IsNaN(mean) {
			rep.EmptyColumns = append(rep.EmptyColumns, string(features.At(i).Name))
		}
	}
	rep.Imputed = all.ImputeMeans()

	out := all.Labeled()
	rep.RowsKept = out.Len()
	rep.RowsDropped = rep.RowsRead - rep.RowsKept
	return out, rep, nil
}

func field(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}

// normalizeHeader trims whitespace and a byte-order mark.
func normalizeHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}

func requiredSources(m Mapping) []string {
	out := make([]string, 0, len(m.Columns)+1)
	for _, c := range m.Columns {
		out = append(out, c.Source)
	}
	return append(out, m.LabelColumn)
}
