package retrain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/atrisk/internal/router"
	"github.com/abhisek/atrisk/internal/screen"
	"github.com/abhisek/atrisk/internal/screens"
	"github.com/abhisek/atrisk/internal/training"
	"github.com/abhisek/atrisk/internal/ui/components"
	"github.com/abhisek/atrisk/internal/ui/layout"
	"github.com/abhisek/atrisk/internal/ui/theme"
)

type retrainedMsg struct {
	Result *training.RetrainResult
	Err    error
}

// RetrainScreen retrains on the dataset plus newly recorded students and
// shows the model comparison.
type RetrainScreen struct {
	deps    screens.Deps
	running bool
	result  *training.RetrainResult
	err     error
}

var _ screen.Screen = (*RetrainScreen)(nil)
var _ screen.KeyHintProvider = (*RetrainScreen)(nil)

// New creates a RetrainScreen. The run starts on Init.
func New(deps screens.Deps) *RetrainScreen {
	return &RetrainScreen{deps: deps}
}

func (s *RetrainScreen) Init() tea.Cmd {
	retrain := s.deps.Retrain
	if retrain == nil {
		s.err = errors.New("retraining is not available")
		return nil
	}
	s.running = true
	return func() tea.Msg {
		res, err := retrain(context.Background())
		return retrainedMsg{Result: res, Err: err}
	}
}

func (s *RetrainScreen) Title() string {
	return "Retrain Model"
}

func (s *RetrainScreen) KeyHints() []layout.KeyHint {
	if s.running {
		return nil
	}
	return []layout.KeyHint{{Key: "Enter", Description: "Home"}}
}

func (s *RetrainScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case retrainedMsg:
		s.running = false
		s.result, s.err = msg.Result, msg.Err
		if s.err == nil && s.deps.Assessor != nil {
			s.deps.Assessor.Reload()
		}
	case tea.KeyMsg:
		if s.running {
			return s, nil
		}
		switch msg.String() {
		case "enter", "esc":
			return s, func() tea.Msg { return router.PopToRootMsg{} }
		}
	}
	return s, nil
}

func (s *RetrainScreen) View(width, height int) string {
	cw := components.ContentWidth(width)
	switch {
	case s.running:
		return layout.Center(theme.Hint.Render("Retraining, this can take a minute..."), width, height)
	case s.err != nil:
		return layout.Center(components.Card(theme.ErrorText.Render("Retrain failed: "+s.err.Error()), cw, true), width, height)
	case s.result == nil:
		return ""
	}

	res := s.result
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	var b strings.Builder
	b.WriteString(theme.Selected.Render("Retrained"))
	b.WriteString("\n")
	b.WriteString(dim.Render(fmt.Sprintf("%d rows, %d new students, %d duplicates dropped",
		res.Total, res.FromStore, res.Duplicates)))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%-22s %7s %7s %7s\n", "Model", "Recall", "F1", "ROC AUC")
	for i, m := range res.Models {
		line := fmt.Sprintf("%-22s %7.3f %7.3f %7.3f", m.Name, m.Metrics.Recall, m.Metrics.F1, m.Metrics.ROCAUC)
		if i == res.Selected {
			line = theme.Selected.Render(line + "  selected")
		} else {
			line = theme.Body.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return layout.Center(components.Card(strings.TrimRight(b.String(), "\n"), cw, true), width, height)
}
