package artifact

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/abhisek/atrisk/internal/ml"
)

const (
	ImportanceFile = "feature_importance.csv"
	ComparisonFile = "model_comparison.csv"
)

// Importance is one feature's weight in the forest.
type Importance struct {
	Feature string
	Score   float64
}

// Comparison is one row of the model comparison table.
type Comparison struct {
	Model    string
	Selected bool
	Metrics  ml.Metrics
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// EncodeImportance renders the importance table, in the given order.
func EncodeImportance(rows []Importance) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"feature", "importance"})
	for _, r := range rows {
		_ = w.Write([]string{r.Feature, formatFloat(r.Score)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode importance: %w", err)
	}
	return buf.Bytes(), nil
}

var comparisonHeader = []string{"model", "accuracy", "precision", "recall", "f1", "roc_auc", "cv_mean", "cv_std", "selected"}

// EncodeComparison renders the comparison table.
func EncodeComparison(rows []Comparison) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(comparisonHeader)
	for _, r := range rows {
		m := r.Metrics
		_ = w.Write([]string{
			r.Model,
			formatFloat(m.Accuracy),
			formatFloat(m.Precision),
			formatFloat(m.Recall),
			formatFloat(m.F1),
			formatFloat(m.ROCAUC),
			formatFloat(m.CVMean),
			formatFloat(m.CVStd),
			strconv.FormatBool(r.Selected),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode comparison: %w", err)
	}
	return buf.Bytes(), nil
}

func (d Dir) readCSV(name string) ([][]string, error) {
	f, err := os.Open(filepath.Join(d.Path, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s absent", ErrModelNotTrained, name)
		}
		return nil, err
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read %s: empty", name)
	}
	return rows[1:], nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// ReadImportance loads the importance table written by training.
func (d Dir) ReadImportance() ([]Importance, error) {
	rows, err := d.readCSV(ImportanceFile)
	if err != nil {
		return nil, err
	}
	out := make([]Importance, 0, len(rows))
	for _, r := range rows {
		if len(r) < 2 {
			continue
		}
		out = append(out, Importance{Feature: r[0], Score: parseFloat(r[1])})
	}
	return out, nil
}

// ReadComparison loads the comparison table written by training.
func (d Dir) ReadComparison() ([]Comparison, error) {
	rows, err := d.readCSV(ComparisonFile)
	if err != nil {
		return nil, err
	}
	out := make([]Comparison, 0, len(rows))
	for _, r := range rows {
		if len(r) < len(comparisonHeader) {
			continue
		}
		sel, _ := strconv.ParseBool(r[8])
		out = append(out, Comparison{
			Model:    r[0],
			Selected: sel,
			Metrics: ml.Metrics{
				Accuracy:  parseFloat(r[1]),
				Precision: parseFloat(r[2]),
				Recall:    parseFloat(r[3]),
				F1:        parseFloat(r[4]),
				ROCAUC:    parseFloat(r[5]),
				CVMean:    parseFloat(r[6]),
				CVStd:     parseFloat(r[7]),
			},
		})
	}
	return out, nil
}
