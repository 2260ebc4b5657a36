package inference

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/abhisek/atrisk/internal/dataset"
	"github.com/abhisek/atrisk/internal/features"
)

// DefaultBatchOutput is where batch predictions are written unless told
// otherwise.
const DefaultBatchOutput = "predictions.csv"

// ErrorLevel replaces the tier of a row that could not be scored.
const ErrorLevel = "ERROR"

// BatchRow is the outcome for one input row. Exactly one of Result and Err
// is set.
type BatchRow struct {
	Index  int
	Result *Result
	Err    error
}

// PredictBatch scores every record. A failing row is recorded and the
// batch continues.
func (s *Service) PredictBatch(recs []features.Record) []BatchRow {
	out := make([]BatchRow, len(recs))
	for i, rec := range recs {
		res, err := s.Predict(rec.Values)
		out[i] = BatchRow{Index: i, Result: res, Err: err}
	}
	return out
}

// PredictFile reads a CSV of students and scores every row. Only the
// feature columns are required.
func (s *Service) PredictFile(path string) ([]BatchRow, error) {
	ds, err := dataset.ReadFeaturesFile(path)
	if err != nil {
		return nil, err
	}
	return s.PredictBatch(ds.Records), nil
}

// BatchHeader is the column layout of a predictions CSV.
var BatchHeader = []string{"index", "prediction", "risk_level", "confidence", "probability_risk", "error"}

// WriteBatch writes rows as CSV.
func WriteBatch(w io.Writer, rows []BatchRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(BatchHeader); err != nil {
		return err
	}
	for _, row := range rows {
		rec := []string{strconv.Itoa(row.Index), "", ErrorLevel, "0", "", ""}
		if row.Err != nil {
			rec[5] = row.Err.Error()
		} else {
			r := row.Result
			rec[1] = strconv.Itoa(int(r.Prediction))
			rec[2] = string(r.Tier)
			rec[3] = strconv.FormatFloat(r.Confidence, 'f', 2, 64)
			rec[4] = strconv.FormatFloat(r.Probability, 'f', 4, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBatchFile writes rows to path, creating its directory.
func WriteBatchFile(path string, rows []BatchRow) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteBatch(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// BatchSummary counts scored rows by tier.
type BatchSummary struct {
	Total  int
	Failed int
	AtRisk int
	Tiers  map[Tier]int
}

// Summarize tallies a batch.
func Summarize(rows []BatchRow) BatchSummary {
	s := BatchSummary{Total: len(rows), Tiers: map[Tier]int{}}
	for _, row := range rows {
		if row.Err != nil {
			s.Failed++
			continue
		}
		s.Tiers[row.Result.Tier]++
		if row.Result.Prediction == features.AtRisk {
			s.AtRisk++
		}
	}
	return s
}
