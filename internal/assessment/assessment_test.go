package assessment

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/abhisek/atrisk/internal/artifact"
	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/ml"
	"github.com/abhisek/atrisk/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// writeModel saves a small logistic pair where low attendance means risk.
func writeModel(t *testing.T, dir artifact.Dir) {
	t.Helper()
	n := 40
	X := mat.NewDense(n, features.Count, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		risk := i%2 == 1
		for j, spec := range features.All() {
			X.Set(i, j, (spec.Min+spec.Max)/2)
		}
		if risk {
			X.Set(i, features.IdxAttendance, 30+float64(i%5))
			y[i] = 1
		} else {
			X.Set(i, features.IdxAttendance, 90+float64(i%5))
		}
	}
	scaler := ml.FitScaler(X)
	model := ml.NewLogistic()
	require.NoError(t, model.Fit(scaler.Transform(X), y))
	require.NoError(t, dir.Save(artifact.NewPair(artifact.CanonicalName, model, scaler, time.Now())))
}

func student(attendance float64, intent int) features.Student {
	return features.Student{
		AttendancePct: attendance, SelfStudyHours: 30, StressLevel: 3, WorkHours: 40,
		SleepHours: 12, SocialMediaHours: 12, GPA: 5, HighSchoolGPA: 5,
		ExamScore1: 50, ExamScore2: 50, ExamScore3: 50, FinancialStress: 3,
		IntentToQuit: intent,
	}
}

func TestAssess_RecordsStudentAndPrediction(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	dir := artifact.NewDir(t.TempDir())
	writeModel(t, dir)

	a := New(dir, s.StudentRepo(), s.PredictionRepo(), zerolog.Nop())
	out, err := a.Assess(ctx, student(30, 5), true)
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.False(t, out.NotTrained)
	assert.NotZero(t, out.StudentID)
	assert.Equal(t, features.AtRisk, out.Result.Prediction)

	preds, err := s.PredictionRepo().ForStudent(ctx, out.StudentID)
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, string(out.Result.Tier), preds[0].RiskLevel)
	assert.Equal(t, artifact.CanonicalName, preds[0].ModelUsed)

	_, untrained, err := s.StudentRepo().Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, untrained)
}

func TestAssess_NoSave(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	dir := artifact.NewDir(t.TempDir())
	writeModel(t, dir)

	out, err := New(dir, s.StudentRepo(), s.PredictionRepo(), zerolog.Nop()).Assess(ctx, student(95, 0), false)
	require.NoError(t, err)
	assert.Zero(t, out.StudentID)
	assert.Equal(t, features.NoRisk, out.Result.Prediction)

	total, _, err := s.StudentRepo().Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestAssess_NotTrainedStillRecordsStudent(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	dir := artifact.NewDir(t.TempDir())
	a := New(dir, s.StudentRepo(), s.PredictionRepo(), zerolog.Nop())

	out, err := a.Assess(ctx, student(60, 2), true)
	require.NoError(t, err)
	assert.True(t, out.NotTrained)
	assert.Nil(t, out.Result)
	assert.NotZero(t, out.StudentID)

	stats, err := s.PredictionRepo().Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)

	// A model trained afterwards is picked up without a reload.
	writeModel(t, dir)
	out, err = a.Assess(ctx, student(60, 0), false)
	require.NoError(t, err)
	assert.NotNil(t, out.Result)
}

func TestAssess_InvalidStudent(t *testing.T) {
	a := New(artifact.NewDir(t.TempDir()), nil, nil, zerolog.Nop())
	_, err := a.Assess(context.Background(), student(150, 0), true)
	var fe features.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "attendance_pct")
}

func TestAssessor_ReloadPicksUpRetrain(t *testing.T) {
	dir := artifact.NewDir(t.TempDir())
	writeModel(t, dir)
	a := New(dir, nil, nil, zerolog.Nop())

	first, err := a.Service()
	require.NoError(t, err)
	cached, err := a.Service()
	require.NoError(t, err)
	assert.Same(t, first, cached)

	writeModel(t, dir)
	a.Reload()
	second, err := a.Service()
	require.NoError(t, err)
	assert.NotEqual(t, first.Pair().ID, second.Pair().ID)
}
