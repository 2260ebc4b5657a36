package assess

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"

	"github.com/abhisek/atrisk/internal/artifact"
	"github.com/abhisek/atrisk/internal/assessment"
	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/router"
	"github.com/abhisek/atrisk/internal/screen"
	"github.com/abhisek/atrisk/internal/screens"
	"github.com/abhisek/atrisk/internal/screens/result"
)

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func newTestScreen(t *testing.T) *AssessScreen {
	t.Helper()
	deps := screens.Deps{
		Assessor: assessment.New(artifact.NewDir(t.TempDir()), nil, nil, zerolog.Nop()),
	}
	return New(deps)
}

func answer(s *AssessScreen, text string) tea.Cmd {
	for _, r := range text {
		s.Update(keyPress(r))
	}
	_, cmd := s.Update(specialKey(tea.KeyEnter))
	return cmd
}

func TestScaleStepsUseSelector(t *testing.T) {
	s := newTestScreen(t)
	if s.useScale {
		t.Fatal("attendance should be a text field")
	}
	answer(s, "90")
	answer(s, "12")
	if !s.useScale {
		t.Fatalf("stress level should use the 1-5 selector (step %d)", s.state.Index())
	}
	if !strings.Contains(s.View(80, 30), "very high") {
		t.Error("expected scale labels in view")
	}
}

func TestInvalidValueStaysOnStep(t *testing.T) {
	s := newTestScreen(t)
	answer(s, "150")
	if s.state.Index() != 0 {
		t.Fatalf("index = %d, want 0", s.state.Index())
	}
	if !strings.Contains(s.View(80, 30), "between 0 and 100") {
		t.Error("expected domain error in view")
	}
}

func TestNonNumericKeysIgnored(t *testing.T) {
	s := newTestScreen(t)
	for _, r := range "8x5%" {
		s.Update(keyPress(r))
	}
	if got := s.input.Value(); got != "85%" {
		t.Errorf("input = %q, want %q", got, "85%")
	}
}

func TestBackRestoresValue(t *testing.T) {
	s := newTestScreen(t)
	answer(s, "90")
	s.Update(tea.KeyPressMsg{Code: tea.KeyTab, Mod: tea.ModShift})
	if s.state.Index() != 0 {
		t.Fatalf("index = %d after back", s.state.Index())
	}
	if got := s.input.Value(); got != "90" {
		t.Errorf("prefill = %q, want 90", got)
	}
}

func TestCompletedFormShowsResult(t *testing.T) {
	s := newTestScreen(t)
	inputs := []string{"90", "12", "2", "10", "8", "2", "8.5", "9", "80", "85", "90", "1"}

	var cmd tea.Cmd
	for i, in := range inputs {
		if i == features.IdxStress || i == features.IdxFinancialStress {
			s.Update(keyPress(rune(in[0])))
			_, cmd = s.Update(specialKey(tea.KeyEnter))
			continue
		}
		cmd = answer(s, in)
	}
	if !s.submitting || cmd == nil {
		t.Fatalf("expected submission after last step (index %d)", s.state.Index())
	}

	msg := cmd()
	var next screen.Screen
	_, cmd = s.Update(msg)
	if cmd == nil {
		t.Fatal("expected navigation command")
	}
	replace, ok := cmd().(router.ReplaceScreenMsg)
	if !ok {
		t.Fatal("expected ReplaceScreenMsg")
	}
	next = replace.Screen
	if _, ok := next.(*result.ResultScreen); !ok {
		t.Fatalf("expected result screen, got %T", next)
	}
	if !strings.Contains(next.View(100, 30), result.NotTrainedMessage) {
		t.Error("expected not-trained message without a model")
	}
}
