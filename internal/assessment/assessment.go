// Package assessment scores a form entry and records the student and the
// prediction. The TUI and the predict command share it.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/abhisek/atrisk/internal/artifact"
	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/inference"
	"github.com/abhisek/atrisk/internal/store"
)

// Outcome is the result of one assessment. Result is nil when no model has
// been trained yet; the student is still recorded.
type Outcome struct {
	Student    features.Student
	StudentID  int64
	Result     *inference.Result
	NotTrained bool
}

// Assessor loads the canonical model on first use and reuses it.
type Assessor struct {
	models      artifact.Dir
	students    store.StudentRepo
	predictions store.PredictionRepo
	logger      zerolog.Logger

	mu  sync.Mutex
	svc *inference.Service
}

// New creates an Assessor. Nil repos disable recording.
func New(models artifact.Dir, students store.StudentRepo, predictions store.PredictionRepo, logger zerolog.Logger) *Assessor {
	return &Assessor{
		models:      models,
		students:    students,
		predictions: predictions,
		logger:      logger,
	}
}

// Service returns the loaded inference service. A failed load is not
// cached, so a model trained later is picked up.
func (a *Assessor) Service() (*inference.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.svc != nil {
		return a.svc, nil
	}
	svc, err := inference.Load(a.models, "")
	if err != nil {
		return nil, err
	}
	a.svc = svc
	return svc, nil
}

// Reload drops the cached model so the next call reads the directory again.
func (a *Assessor) Reload() {
	a.mu.Lock()
	a.svc = nil
	a.mu.Unlock()
}

// Assess validates st, scores it, and when save is set stores the student
// and its prediction.
func (a *Assessor) Assess(ctx context.Context, st features.Student, save bool) (*Outcome, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	out := &Outcome{Student: st}

	svc, err := a.Service()
	switch {
	case errors.Is(err, artifact.ErrModelNotTrained):
		a.logger.Warn().Err(err).Msg("no trained model, recording student only")
		out.NotTrained = true
	case err != nil:
		return nil, err
	default:
		res, err := svc.PredictStudent(st)
		if err != nil {
			return nil, err
		}
		out.Result = res
	}

	if !save || a.students == nil {
		return out, nil
	}
	id, err := a.students.Save(ctx, st.Record())
	if err != nil {
		return nil, fmt.Errorf("save student: %w", err)
	}
	out.StudentID = id

	if out.Result != nil && a.predictions != nil {
		if err := a.predictions.Save(ctx, ToPrediction(id, out.Result)); err != nil {
			return nil, fmt.Errorf("save prediction: %w", err)
		}
	}
	a.logger.Info().
		Int64("student", id).
		Bool("labeled", st.Record().Labeled()).
		Bool("scored", out.Result != nil).
		Msg("assessment recorded")
	return out, nil
}

// ToPrediction converts a result into a stored prediction row.
func ToPrediction(studentID int64, res *inference.Result) *store.Prediction {
	return &store.Prediction{
		StudentID:   studentID,
		Prediction:  int(res.Prediction),
		Probability: res.Probability,
		Confidence:  res.Confidence,
		RiskLevel:   string(res.Tier),
		ModelUsed:   res.Model,
	}
}
