package retrain

import (
	"context"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/atrisk/internal/ml"
	"github.com/abhisek/atrisk/internal/router"
	"github.com/abhisek/atrisk/internal/screens"
	"github.com/abhisek/atrisk/internal/training"
)

func fakeResult() *training.RetrainResult {
	return &training.RetrainResult{
		Result: &training.Result{
			Models: []training.ModelResult{
				{Name: "logistic_regression", Metrics: ml.Metrics{Recall: 0.7, F1: 0.6, ROCAUC: 0.8}},
				{Name: "random_forest_ensemble", Metrics: ml.Metrics{Recall: 0.9, F1: 0.8, ROCAUC: 0.9}},
			},
			Selected: 1,
		},
		FromStore:  2,
		Duplicates: 1,
		Total:      120,
	}
}

func run(t *testing.T, s *RetrainScreen) {
	t.Helper()
	cmd := s.Init()
	if cmd == nil {
		t.Fatal("expected retrain command")
	}
	s.Update(cmd())
}

func TestRetrainShowsComparison(t *testing.T) {
	calls := 0
	s := New(screens.Deps{Retrain: func(context.Context) (*training.RetrainResult, error) {
		calls++
		return fakeResult(), nil
	}})
	run(t, s)
	if calls != 1 {
		t.Fatalf("retrain calls = %d, want 1", calls)
	}
	view := s.View(100, 40)
	for _, want := range []string{"120 rows, 2 new students, 1 duplicates dropped", "random_forest_ensemble", "selected"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected navigation command")
	}
	if _, ok := cmd().(router.PopToRootMsg); !ok {
		t.Error("expected PopToRootMsg so home refreshes")
	}
}

func TestRetrainFailureShown(t *testing.T) {
	s := New(screens.Deps{Retrain: func(context.Context) (*training.RetrainResult, error) {
		return nil, &training.InsufficientDataError{Reason: "no labeled records"}
	}})
	run(t, s)
	if view := s.View(100, 40); !strings.Contains(view, "no labeled records") {
		t.Errorf("view = %q", view)
	}
}

func TestKeysIgnoredWhileRunning(t *testing.T) {
	s := New(screens.Deps{Retrain: func(context.Context) (*training.RetrainResult, error) {
		return fakeResult(), nil
	}})
	_ = s.Init()
	if _, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter}); cmd != nil {
		t.Error("enter should do nothing while retraining")
	}
	if len(s.KeyHints()) != 0 {
		t.Error("no hints while retraining")
	}
}

func TestRetrainUnavailable(t *testing.T) {
	s := New(screens.Deps{})
	if cmd := s.Init(); cmd != nil {
		t.Fatal("expected no command without a retrain hook")
	}
	if view := s.View(100, 40); !strings.Contains(view, "not available") {
		t.Errorf("view = %q", view)
	}
}
