package training

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/atrisk/internal/artifact"
	"github.com/abhisek/atrisk/internal/augment"
	"github.com/abhisek/atrisk/internal/dataset"
	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/ml"
	"github.com/abhisek/atrisk/internal/store"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.ForestTrees = 20
	cfg.CVFolds = 3
	return cfg
}

func synthetic(t *testing.T, noRisk, risk int) *dataset.Dataset {
	t.Helper()
	aug, err := augment.New()
	require.NoError(t, err)
	ds := &dataset.Dataset{}
	recs, err := aug.Generate(noRisk, features.NoRisk, 11)
	require.NoError(t, err)
	ds.Append(recs...)
	recs, err = aug.Generate(risk, features.AtRisk, 12)
	require.NoError(t, err)
	ds.Append(recs...)
	return ds
}

func TestRun_OneClassWritesNothing(t *testing.T) {
	ds := synthetic(t, 60, 0)
	dir := artifact.NewDir(filepath.Join(t.TempDir(), "models"))

	_, err := New(fastConfig(), zerolog.Nop()).Run(context.Background(), ds, dir)
	var ide *InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.True(t, errors.Is(err, ml.ErrTooFewSamples))

	_, statErr := os.Stat(dir.Path)
	assert.True(t, os.IsNotExist(statErr), "artifact dir should not be created")
}

func TestTrain_NoLabeledRecords(t *testing.T) {
	ds := &dataset.Dataset{}
	ds.Append(features.Record{Values: synthetic(t, 1, 0).Records[0].Values})

	_, err := New(fastConfig(), zerolog.Nop()).Train(context.Background(), ds)
	var ide *InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Contains(t, ide.Reason, "no labeled records")
}

func TestTrain_InvalidConfig(t *testing.T) {
	cfg := fastConfig()
	cfg.TestFraction = 1.5
	_, err := New(cfg, zerolog.Nop()).Train(context.Background(), synthetic(t, 20, 20))
	require.Error(t, err)
}

func TestTrain_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(fastConfig(), zerolog.Nop()).Train(ctx, synthetic(t, 40, 30))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_WritesArtifacts(t *testing.T) {
	dir := artifact.NewDir(t.TempDir())
	res, err := New(fastConfig(), zerolog.Nop()).Run(context.Background(), synthetic(t, 120, 80), dir)
	require.NoError(t, err)

	require.Len(t, res.Models, 3)
	assert.Equal(t, 200, res.Rows)
	assert.Equal(t, res.Rows, res.TrainRows+res.TestRows)
	assert.Greater(t, res.BalancedRows, 0)
	for _, m := range res.Models {
		assert.GreaterOrEqual(t, m.Metrics.Recall, 0.0)
		assert.LessOrEqual(t, m.Metrics.Recall, 1.0)
	}

	names, err := dir.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		artifact.CanonicalName,
		artifact.NameLogistic,
		artifact.NameTree,
		artifact.NameForest,
	}, names)

	canonical, err := dir.Load(artifact.CanonicalName)
	require.NoError(t, err)
	assert.Equal(t, res.Best().Model.Kind(), canonical.Variant)

	cmp, err := dir.ReadComparison()
	require.NoError(t, err)
	require.Len(t, cmp, 3)
	selected := 0
	for _, row := range cmp {
		if row.Selected {
			selected++
			assert.Equal(t, res.Best().Name, row.Model)
		}
	}
	assert.Equal(t, 1, selected)

	imp, err := dir.ReadImportance()
	require.NoError(t, err)
	require.Len(t, imp, features.Count)
	for i := 1; i < len(imp); i++ {
		assert.GreaterOrEqual(t, imp[i-1].Score, imp[i].Score)
	}
}

func TestTrain_Deterministic(t *testing.T) {
	ds := synthetic(t, 80, 50)
	a, err := New(fastConfig(), zerolog.Nop()).Train(context.Background(), ds)
	require.NoError(t, err)
	b, err := New(fastConfig(), zerolog.Nop()).Train(context.Background(), ds)
	require.NoError(t, err)

	require.Equal(t, a.Selected, b.Selected)
	for i := range a.Models {
		assert.Equal(t, a.Models[i].Metrics, b.Models[i].Metrics, a.Models[i].Name)
	}
}

func TestSelectBest(t *testing.T) {
	m := func(recall, f1 float64) ModelResult {
		return ModelResult{Metrics: ml.Metrics{Recall: recall, F1: f1}}
	}
	tests := []struct {
		name   string
		models []ModelResult
		want   int
	}{
		{"highest recall", []ModelResult{m(0.7, 0.9), m(0.9, 0.5), m(0.8, 0.8)}, 1},
		{"recall tie broken by f1", []ModelResult{m(0.9, 0.6), m(0.9, 0.7), m(0.8, 0.9)}, 1},
		{"full tie keeps first", []ModelResult{m(0.9, 0.7), m(0.9, 0.7), m(0.9, 0.7)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectBest(tt.models))
		})
	}
}

// fakeStudents is an in-memory StudentRepo.
type fakeStudents struct {
	store.StudentRepo
	untrained []store.Student
	marked    []int64
}

func (f *fakeStudents) Untrained(context.Context) ([]store.Student, error) {
	return f.untrained, nil
}

func (f *fakeStudents) MarkTrained(_ context.Context, ids []int64) error {
	f.marked = append(f.marked, ids...)
	return nil
}

func TestRetrain(t *testing.T) {
	tmp := t.TempDir()
	dataPath := filepath.Join(tmp, "data", "students_data.csv")
	base := synthetic(t, 100, 60)
	require.NoError(t, dataset.WriteFile(dataPath, base))

	students := &fakeStudents{untrained: []store.Student{
		{ID: 7, Record: base.Records[0]}, // duplicate of an existing row
		{ID: 8, Record: synthetic(t, 0, 1).Records[0]},
	}}
	extra := synthetic(t, 3, 0).Records

	dir := artifact.NewDir(filepath.Join(tmp, "models"))
	res, err := New(fastConfig(), zerolog.Nop()).Retrain(context.Background(), dataPath, dir, students, extra)
	require.NoError(t, err)

	assert.Equal(t, 2, res.FromStore)
	assert.Equal(t, 3, res.FromExtra)
	assert.GreaterOrEqual(t, res.Duplicates, 1)
	assert.Equal(t, []int64{7, 8}, students.marked)

	rewritten, err := dataset.ReadFile(dataPath)
	require.NoError(t, err)
	assert.Equal(t, res.Total, rewritten.Len())
	assert.Equal(t, res.Total, res.Rows)
}

func TestRetrain_FailureLeavesStateUntouched(t *testing.T) {
	tmp := t.TempDir()
	dataPath := filepath.Join(tmp, "students_data.csv")
	base := synthetic(t, 30, 0)
	require.NoError(t, dataset.WriteFile(dataPath, base))

	students := &fakeStudents{untrained: []store.Student{{ID: 1, Record: synthetic(t, 1, 0).Records[0]}}}
	_, err := New(fastConfig(), zerolog.Nop()).Retrain(context.Background(), dataPath, artifact.NewDir(tmp), students, nil)
	require.Error(t, err)
	assert.Empty(t, students.marked)

	again, err := dataset.ReadFile(dataPath)
	require.NoError(t, err)
	assert.Equal(t, base.Len(), again.Len())
}
