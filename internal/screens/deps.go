// Package screens holds what the TUI screens share.
package screens

import (
	"context"

	"github.com/abhisek/atrisk/internal/advisor"
	"github.com/abhisek/atrisk/internal/assessment"
	"github.com/abhisek/atrisk/internal/store"
	"github.com/abhisek/atrisk/internal/training"
)

// Deps are the services injected into every screen. Advisor is nil when
// no LLM provider is configured; Retrain is nil when retraining is not
// offered.
type Deps struct {
	Assessor    *assessment.Assessor
	Advisor     *advisor.Service
	Students    store.StudentRepo
	Predictions store.PredictionRepo
	Retrain     func(ctx context.Context) (*training.RetrainResult, error)

	// AskIntent adds the optional intent-to-quit question to the form.
	AskIntent bool
}
