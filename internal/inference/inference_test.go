package inference

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/abhisek/atrisk/internal/artifact"
	"github.com/abhisek/atrisk/internal/augment"
	"github.com/abhisek/atrisk/internal/dataset"
	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/ml"
	"github.com/abhisek/atrisk/internal/training"
)

// fixedModel returns the same probability for every row.
type fixedModel struct{ p float64 }

func (m fixedModel) Kind() ml.Kind                   { return ml.KindLogistic }
func (m fixedModel) Fit(*mat.Dense, []float64) error { return nil }
func (m fixedModel) PredictProba(X mat.Matrix) []float64 {
	r, _ := X.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = m.p
	}
	return out
}

func identityScaler() *ml.Scaler {
	s := &ml.Scaler{Mean: make([]float64, features.Count), Scale: make([]float64, features.Count)}
	for i := range s.Scale {
		s.Scale[i] = 1
	}
	return s
}

func fixedService(t *testing.T, p float64) *Service {
	t.Helper()
	svc, err := New(&artifact.Pair{Name: "fixed", Model: fixedModel{p}, Scaler: identityScaler()})
	require.NoError(t, err)
	return svc
}

func average() features.Vector {
	return features.Student{
		AttendancePct: 80, SelfStudyHours: 7, StressLevel: 3, WorkHours: 20,
		SleepHours: 6.5, SocialMediaHours: 3, GPA: 7, HighSchoolGPA: 8,
		ExamScore1: 65, ExamScore2: 65, ExamScore3: 65, FinancialStress: 3,
	}.Vector()
}

func TestThresholdBoundaries(t *testing.T) {
	tests := []struct {
		p          float64
		prediction features.Risk
		tier       Tier
	}{
		{0.0, features.NoRisk, TierLow},
		{0.2499, features.NoRisk, TierLow},
		{0.25, features.AtRisk, TierLow},
		{0.2999, features.AtRisk, TierLow},
		{0.30, features.AtRisk, TierMedium},
		{0.5999, features.AtRisk, TierMedium},
		{0.60, features.AtRisk, TierHigh},
		{1.0, features.AtRisk, TierHigh},
	}
	for _, tt := range tests {
		res, err := fixedService(t, tt.p).Predict(average())
		require.NoError(t, err)
		assert.Equal(t, tt.prediction, res.Prediction, "p=%v", tt.p)
		assert.Equal(t, tt.tier, res.Tier, "p=%v", tt.p)
		assert.InDelta(t, tt.p*100, res.Confidence, 1e-9)
	}
}

func TestReasons_Average(t *testing.T) {
	assert.Equal(t, []Reason{AverageIndicators}, Reasons(average()))
}

func TestReasons_ContractOrder(t *testing.T) {
	v := average()
	v[features.IdxFinancialStress] = 5
	v[features.IdxAttendance] = 40
	v[features.IdxSleep] = 4
	v[features.IdxStress] = 5
	v[features.IdxWork] = 45

	var got []features.Feature
	for _, r := range Reasons(v) {
		assert.Equal(t, Negative, r.Polarity, r.Text)
		got = append(got, r.Feature)
	}
	assert.Equal(t, []features.Feature{
		features.AttendancePct,
		features.StressLevel,
		features.WorkHours,
		features.SleepHours,
		features.FinancialStress,
	}, got)
}

func TestReasons_Cutoffs(t *testing.T) {
	tests := []struct {
		name    string
		idx     int
		value   float64
		feature features.Feature
		want    Polarity
	}{
		{"attendance 69", features.IdxAttendance, 69, features.AttendancePct, Negative},
		{"attendance 90", features.IdxAttendance, 90, features.AttendancePct, Positive},
		{"study 4", features.IdxSelfStudy, 4, features.SelfStudyHours, Negative},
		{"study 10", features.IdxSelfStudy, 10, features.SelfStudyHours, Positive},
		{"stress 4", features.IdxStress, 4, features.StressLevel, Negative},
		{"stress 2", features.IdxStress, 2, features.StressLevel, Positive},
		{"work 31", features.IdxWork, 31, features.WorkHours, Negative},
		{"work 15", features.IdxWork, 15, features.WorkHours, Positive},
		{"sleep 5", features.IdxSleep, 5, features.SleepHours, Negative},
		{"sleep 7", features.IdxSleep, 7, features.SleepHours, Positive},
		{"financial 4", features.IdxFinancialStress, 4, features.FinancialStress, Negative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := average()
			v[tt.idx] = tt.value
			reasons := Reasons(v)
			require.Len(t, reasons, 1)
			assert.Equal(t, tt.feature, reasons[0].Feature)
			assert.Equal(t, tt.want, reasons[0].Polarity)
		})
	}
}

func TestReasons_Exams(t *testing.T) {
	v := average()
	v[features.IdxExam1], v[features.IdxExam2], v[features.IdxExam3] = 80, 75, 70
	reasons := Reasons(v)
	require.Len(t, reasons, 1)
	assert.Equal(t, Positive, reasons[0].Polarity)

	// Zero means not taken.
	v[features.IdxExam1], v[features.IdxExam2], v[features.IdxExam3] = 0, 0, 0
	assert.Equal(t, []Reason{AverageIndicators}, Reasons(v))
}

func TestForecastGPA(t *testing.T) {
	tests := []struct {
		name      string
		edit      func(v *features.Vector)
		predicted float64
		trend     Trend
	}{
		{"average", func(v *features.Vector) {}, 7.0 + 0.2 + 0.1 - 0.2, Stable},
		{"strong", func(v *features.Vector) {
			v[features.IdxSelfStudy] = 12
			v[features.IdxAttendance] = 95
			v[features.IdxSleep] = 8
			v[features.IdxStress] = 1
			v[features.IdxWork] = 0
		}, 8.0, Improving},
		{"weak", func(v *features.Vector) {
			v[features.IdxSelfStudy] = 2
			v[features.IdxAttendance] = 40
			v[features.IdxSleep] = 4
			v[features.IdxStress] = 5
			v[features.IdxWork] = 45
		}, 5.4, Declining},
		{"clamped high", func(v *features.Vector) {
			v[features.IdxGPA] = 10
			v[features.IdxSelfStudy] = 12
		}, 10, Stable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := average()
			tt.edit(&v)
			f := ForecastGPA(v)
			assert.InDelta(t, tt.predicted, f.Predicted, 1e-9)
			assert.Equal(t, tt.trend, f.Trend)
		})
	}
}

func TestForecastGPA_Defaults(t *testing.T) {
	f := ForecastGPA(features.Missing())
	assert.Equal(t, 7.0, f.Current)
	// study 10 +0.5, attendance 85 +0.1, sleep 7 +0.2, stress 3 -0.2, work 20 none
	assert.InDelta(t, 7.6, f.Predicted, 1e-9)
	assert.Equal(t, Improving, f.Trend)
}

func TestPredict_ImputesFromRow(t *testing.T) {
	v := average()
	v[features.IdxGPA] = math.NaN()
	res, err := fixedService(t, 0.1).Predict(v)
	require.NoError(t, err)
	assert.Equal(t, []string{string(features.GPA)}, res.Imputed)
}

func TestPredict_PartialRecordExplainsOnlyGivenValues(t *testing.T) {
	v := features.Missing()
	v[features.IdxAttendance] = 40
	v[features.IdxStress] = 5
	v[features.IdxSleep] = 4
	v[features.IdxWork] = 45
	v[features.IdxSelfStudy] = 2

	res, err := fixedService(t, 0.8).Predict(v)
	require.NoError(t, err)
	assert.Equal(t, TierHigh, res.Tier)
	assert.Len(t, res.Imputed, features.Count-5)

	got := map[features.Feature]Polarity{}
	for _, r := range res.Reasons {
		got[r.Feature] = r.Polarity
	}
	assert.Equal(t, map[features.Feature]Polarity{
		features.AttendancePct:  Negative,
		features.SelfStudyHours: Negative,
		features.StressLevel:    Negative,
		features.WorkHours:      Negative,
		features.SleepHours:     Negative,
	}, got)

	// GPA was not given, so the forecast starts from the default.
	assert.Equal(t, 7.0, res.Forecast.Current)
	assert.InDelta(t, 5.4, res.Forecast.Predicted, 1e-9)
	assert.Equal(t, Declining, res.Forecast.Trend)
}

func TestPredict_MissingAnswersGiveNoReasons(t *testing.T) {
	v := average()
	v[features.IdxStress] = math.NaN()
	v[features.IdxSleep] = math.NaN()
	res, err := fixedService(t, 0.1).Predict(v)
	require.NoError(t, err)
	assert.Equal(t, []Reason{AverageIndicators}, res.Reasons)
}

func TestExamMean_SkipsMissing(t *testing.T) {
	v := features.Missing()
	assert.True(t, math.IsNaN(ExamMean(v)))
	v[features.IdxExam1], v[features.IdxExam2] = 80, 90
	assert.Equal(t, 85.0, ExamMean(v))
}

func TestPredict_AllMissing(t *testing.T) {
	_, err := fixedService(t, 0.1).Predict(features.Missing())
	var se *features.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Len(t, se.Missing, features.Count)
}

func TestPredictMap_MissingColumns(t *testing.T) {
	m := map[string]float64{}
	for i, name := range features.Names() {
		if i == features.IdxSleep || i == features.IdxExam3 {
			continue
		}
		m[name] = 1
	}
	m["unknown"] = 3

	_, err := fixedService(t, 0.1).PredictMap(m)
	var se *features.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{string(features.SleepHours), string(features.ExamScore3)}, se.Missing)
}

func TestPredictMap_DatasetColumns(t *testing.T) {
	m := map[string]float64{}
	for i, col := range features.Columns() {
		m[col] = average()[i]
	}
	res, err := fixedService(t, 0.7).PredictMap(m)
	require.NoError(t, err)
	assert.Equal(t, TierHigh, res.Tier)
}

func TestPredictStudent_Validates(t *testing.T) {
	st := features.StudentFromRecord(features.Record{Values: average()})
	st.StressLevel = 9
	_, err := fixedService(t, 0.1).PredictStudent(st)
	var fe features.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "stress_level")
}

func TestLoad_NotTrained(t *testing.T) {
	_, err := Load(artifact.NewDir(t.TempDir()), "")
	assert.True(t, errors.Is(err, artifact.ErrModelNotTrained))
}

func TestPredictBatch(t *testing.T) {
	recs := []features.Record{
		{Values: average()},
		{Values: features.Missing()},
		{Values: average()},
	}
	rows := fixedService(t, 0.4).PredictBatch(recs)
	require.Len(t, rows, 3)
	assert.NoError(t, rows[0].Err)
	assert.Error(t, rows[1].Err)

	var buf bytes.Buffer
	require.NoError(t, WriteBatch(&buf, rows))
	out, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, BatchHeader, out[0])
	assert.Equal(t, []string{"0", "1", "medium", "40.00", "0.4000", ""}, out[1])
	assert.Equal(t, ErrorLevel, out[2][2])
	assert.True(t, strings.Contains(out[2][5], "missing required columns"))

	sum := Summarize(rows)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 2, sum.AtRisk)
	assert.Equal(t, 2, sum.Tiers[TierMedium])
}

func TestPredictFile_UnlabeledInput(t *testing.T) {
	var b strings.Builder
	b.WriteString(strings.Join(features.Columns(), ","))
	b.WriteString("\n")
	for _, x := range average() {
		b.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
		b.WriteString(",")
	}
	path := filepath.Join(t.TempDir(), "students.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimSuffix(b.String(), ",")+"\n"), 0o644))

	rows, err := fixedService(t, 0.7).PredictFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, rows[0].Err)
	assert.Equal(t, TierHigh, rows[0].Result.Tier)
}

// trainedService trains the real pipeline on synthetic data and loads the
// canonical pair from disk.
func trainedService(t *testing.T) *Service {
	t.Helper()
	aug, err := augment.New()
	require.NoError(t, err)
	noRisk, err := aug.Generate(150, features.NoRisk, 1)
	require.NoError(t, err)
	risk, err := aug.Generate(100, features.AtRisk, 2)
	require.NoError(t, err)

	ds := &dataset.Dataset{}
	ds.Append(noRisk...)
	ds.Append(risk...)

	cfg := training.DefaultConfig()
	cfg.ForestTrees = 30
	cfg.CVFolds = 3
	p := training.New(cfg, zerolog.Nop())
	dir := artifact.NewDir(t.TempDir())
	_, err = p.Run(context.Background(), ds, dir)
	require.NoError(t, err)

	svc, err := Load(dir, "")
	require.NoError(t, err)
	require.Equal(t, artifact.CanonicalName, svc.Pair().Name)
	require.WithinDuration(t, time.Now(), svc.Pair().TrainedAt, time.Minute)
	return svc
}

func TestEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("trains models")
	}
	svc := trainedService(t)

	t.Run("low risk", func(t *testing.T) {
		res, err := svc.PredictStudent(features.Student{
			AttendancePct: 95, SelfStudyHours: 20, StressLevel: 1, WorkHours: 5,
			SleepHours: 8, SocialMediaHours: 2, GPA: 8.5, HighSchoolGPA: 9,
			ExamScore1: 85, ExamScore2: 85, ExamScore3: 85, FinancialStress: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, TierLow, res.Tier)
		assert.Contains(t, res.Reasons, Reason{Feature: features.AttendancePct, Polarity: Positive, Text: "High attendance (95%)"})
	})

	t.Run("high risk", func(t *testing.T) {
		res, err := svc.PredictStudent(features.Student{
			AttendancePct: 40, SelfStudyHours: 2, StressLevel: 5, WorkHours: 45,
			SleepHours: 4, SocialMediaHours: 8, GPA: 5.5, HighSchoolGPA: 6.5,
			ExamScore1: 40, ExamScore2: 45, ExamScore3: 50, FinancialStress: 5,
		})
		require.NoError(t, err)
		assert.Equal(t, TierHigh, res.Tier)
		assert.Equal(t, features.AtRisk, res.Prediction)

		negatives := map[features.Feature]bool{}
		for _, r := range res.Reasons {
			if r.Polarity == Negative {
				negatives[r.Feature] = true
			}
		}
		for _, f := range []features.Feature{features.AttendancePct, features.StressLevel, features.SleepHours, features.WorkHours} {
			assert.True(t, negatives[f], "missing negative reason for %s", f)
		}
	})
}
