package training

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/abhisek/atrisk/internal/artifact"
	"github.com/abhisek/atrisk/internal/dataset"
	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/store"
)

// RetrainResult reports what a retraining run consumed.
type RetrainResult struct {
	*Result
	FromStore  int // stored students merged in
	FromExtra  int // extra records merged in
	Duplicates int // identical rows dropped
	Total      int // rows in the rewritten dataset
}

// Retrain merges the dataset at dataPath with stored students that have a
// real answer but were never trained on, plus any extra records, trains,
// and only then rewrites the dataset and marks those students trained.
// students may be nil.
func (p *Pipeline) Retrain(ctx context.Context, dataPath string, dir artifact.Dir, students store.StudentRepo, extra []features.Record) (*RetrainResult, error) {
	ds, err := dataset.ReadFile(dataPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		ds = &dataset.Dataset{}
	}

	out := &RetrainResult{}
	var ids []int64
	if students != nil {
		untrained, err := students.Untrained(ctx)
		if err != nil {
			return nil, fmt.Errorf("load untrained students: %w", err)
		}
		for _, s := range untrained {
			ds.Append(s.Record)
			ids = append(ids, s.ID)
		}
		out.FromStore = len(untrained)
	}
	ds.Append(extra...)
	out.FromExtra = len(extra)
	out.Duplicates = dedupe(ds)
	out.Total = ds.Len()

	p.logger.Info().
		Int("from_store", out.FromStore).
		Int("from_extra", out.FromExtra).
		Int("duplicates", out.Duplicates).
		Int("rows", out.Total).
		Msg("retraining")

	res, err := p.Run(ctx, ds, dir)
	if err != nil {
		return nil, err
	}
	out.Result = res

	if err := dataset.WriteFile(dataPath, ds); err != nil {
		return nil, fmt.Errorf("rewrite dataset: %w", err)
	}
	if students != nil {
		if err := students.MarkTrained(ctx, ids); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// dedupe drops exact duplicate records, keeping the first, and returns how
// many were dropped.
func dedupe(ds *dataset.Dataset) int {
	seen := make(map[features.Record]bool, ds.Len())
	kept := ds.Records[:0]
	for _, rec := range ds.Records {
		if seen[rec] {
			continue
		}
		seen[rec] = true
		kept = append(kept, rec)
	}
	dropped := len(ds.Records) - len(kept)
	ds.Records = kept
	return dropped
}
