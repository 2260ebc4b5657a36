package result

import (
	"encoding/json"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/atrisk/internal/advisor"
	"github.com/abhisek/atrisk/internal/assessment"
	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/inference"
	"github.com/abhisek/atrisk/internal/llm"
	"github.com/abhisek/atrisk/internal/router"
	"github.com/abhisek/atrisk/internal/screens"
)

func highRiskOutcome() *assessment.Outcome {
	st := features.Student{
		AttendancePct: 40, SelfStudyHours: 2, StressLevel: 5, WorkHours: 45,
		SleepHours: 4, SocialMediaHours: 6, GPA: 5, HighSchoolGPA: 6,
		ExamScore1: 40, ExamScore2: 45, ExamScore3: 50, FinancialStress: 5,
	}
	v := st.Vector()
	return &assessment.Outcome{
		Student:   st,
		StudentID: 3,
		Result: &inference.Result{
			Prediction:  features.AtRisk,
			Tier:        inference.TierHigh,
			Probability: 0.8,
			Confidence:  80,
			Reasons:     inference.Reasons(v),
			Forecast:    inference.ForecastGPA(v),
			Model:       "random_forest",
		},
	}
}

func TestViewShowsVerdict(t *testing.T) {
	s := New(screens.Deps{}, highRiskOutcome())
	view := s.View(100, 40)
	for _, want := range []string{"HIGH RISK", "Low attendance (40%)", "GPA 5.00"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	for _, h := range s.KeyHints() {
		if h.Key == "A" {
			t.Error("advisor hint shown without an advisor")
		}
	}
}

func TestEnterReturnsHome(t *testing.T) {
	s := New(screens.Deps{}, highRiskOutcome())
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected command")
	}
	if _, ok := cmd().(router.PopToRootMsg); !ok {
		t.Error("expected PopToRootMsg")
	}
}

func TestAdvisorNote(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{
		"summary": "Overloaded with work.",
		"concerns": ["attendance"],
		"actions": [{"title": "Meet", "detail": "Schedule a meeting this week."}],
		"follow_up_weeks": 1
	}`)})
	s := New(screens.Deps{Advisor: advisor.NewService(mock, advisor.DefaultConfig())}, highRiskOutcome())

	_, cmd := s.Update(tea.KeyPressMsg{Code: 'a', Text: "a"})
	if cmd == nil {
		t.Fatal("expected note request")
	}
	if !strings.Contains(s.View(100, 40), "Writing advisor note") {
		t.Error("expected loading text")
	}
	s.Update(cmd())
	if !strings.Contains(s.View(100, 50), "Overloaded with work.") {
		t.Error("expected note in view")
	}
}

func TestNotTrained(t *testing.T) {
	s := New(screens.Deps{}, &assessment.Outcome{NotTrained: true, StudentID: 9})
	view := s.View(100, 30)
	if !strings.Contains(view, NotTrainedMessage) || !strings.Contains(view, "#9") {
		t.Errorf("view = %q", view)
	}
}
