// Package dataset reads and writes the normalized students CSV consumed by
// training.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abhisek/atrisk/internal/features"
)

// DefaultPath is where the normalized dataset lives unless configured.
const DefaultPath = "data/students_data.csv"

// Dataset is an ordered collection of student records.
type Dataset struct {
	Records []features.Record
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Append adds records to the end of the dataset.
func (d *Dataset) Append(recs ...features.Record) {
	d.Records = append(d.Records, recs...)
}

// Labeled returns a new dataset holding only records with a usable label.
func (d *Dataset) Labeled() *Dataset {
	out := &Dataset{}
	for _, r := range d.Records {
		if r.Labeled() {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// ClassCounts returns the number of no-risk and at-risk records.
func (d *Dataset) ClassCounts() (noRisk, atRisk int) {
	for _, r := range d.Records {
		if r.Risk() == features.AtRisk {
			atRisk++
		} else {
			noRisk++
		}
	}
	return noRisk, atRisk
}

// ColumnMeans returns the mean of each feature over non-missing values.
// A column with no values has a NaN mean.
func (d *Dataset) ColumnMeans() features.Vector {
	var sum, n features.Vector
	for _, r := range d.Records {
		for i, x := range r.Values {
			if !math.IsNaN(x) {
				sum[i] += x
				n[i]++
			}
		}
	}
	var out features.Vector
	for i := range out {
		if n[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum[i] / n[i]
	}
	return out
}

// ImputeMeans replaces missing feature values with the column mean and
// returns how many values were filled.
func (d *Dataset) ImputeMeans() int {
	means := d.ColumnMeans()
	filled := 0
	for ri := range d.Records {
		v := &d.Records[ri].Values
		for i, x := range v {
			if math.IsNaN(x) && !math.IsNaN(means[i]) {
				v[i] = means[i]
				filled++
			}
		}
	}
	return filled
}

// Header returns the dataset CSV header.
func Header() []string {
	return append(features.Columns(), features.LabelColumn, features.RiskColumn)
}

// Read parses a dataset CSV. Feature columns may use either the dataset
// column name or the canonical feature name. Empty or unparsable cells are
// read as missing.
func Read(r io.Reader) (*Dataset, error) {
	return read(r, true)
}

// ReadFeatures is Read for scoring input: only the feature columns are
// required, and a label column is used when present.
func ReadFeatures(r io.Reader) (*Dataset, error) {
	return read(r, false)
}

func read(r io.Reader, requireLabel bool) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Dataset{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var pos [features.Count]int
	for i := range pos {
		pos[i] = -1
	}
	labelPos := -1
	for col, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if name == features.LabelColumn {
			labelPos = col
			continue
		}
		if i, ok := features.Index(name); ok {
			pos[i] = col
		}
	}

	var missing []string
	for i, p := range pos {
		if p < 0 {
			missing = append(missing, features.At(i).Column)
		}
	}
	if labelPos < 0 && requireLabel {
		missing = append(missing, features.LabelColumn)
	}
	if len(missing) > 0 {
		return nil, &features.SchemaError{Source: "dataset", Missing: missing}
	}

	ds := &Dataset{}
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		rec := features.Record{Values: features.Missing()}
		for i, p := range pos {
			rec.Values[i] = cell(row, p)
		}
		if labelPos >= 0 {
			if l := cell(row, labelPos); !math.IsNaN(l) {
				rec.Label = int(math.Round(l))
			}
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

func cell(row []string, col int) float64 {
	if col >= len(row) {
		return math.NaN()
	}
	s := strings.TrimSpace(row[col])
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ReadFile reads a dataset CSV from disk.
func ReadFile(path string) (*Dataset, error) {
	return readFile(path, Read)
}

// ReadFeaturesFile reads a feature-only CSV from disk.
func ReadFeaturesFile(path string) (*Dataset, error) {
	return readFile(path, ReadFeatures)
}

func readFile(path string, parse func(io.Reader) (*Dataset, error)) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	ds, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Write encodes the dataset as CSV including the derived risk column.
func Write(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, features.Count+2)
	for _, r := range d.Records {
		for i, x := range r.Values {
			row[i] = formatValue(x)
		}
		row[features.Count] = strconv.Itoa(r.Label)
		row[features.Count+1] = strconv.Itoa(int(r.Risk()))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(x float64) string {
	if math.IsNaN(x) {
		return ""
	}
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// WriteFile writes the dataset to path, creating parent directories.
func WriteFile(path string, d *Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}
	if err := Write(f, d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// AppendFile adds records to the dataset at path, creating it when absent,
// and returns the combined dataset.
func AppendFile(path string, recs []features.Record) (*Dataset, error) {
	existing, err := ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		existing = &Dataset{}
	}
	existing.Append(recs...)
	if err := WriteFile(path, existing); err != nil {
		return nil, err
	}
	return existing, nil
}
