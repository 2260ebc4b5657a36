package assess

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/atrisk/internal/assessment"
	"github.com/abhisek/atrisk/internal/router"
	"github.com/abhisek/atrisk/internal/screen"
	"github.com/abhisek/atrisk/internal/screens"
	"github.com/abhisek/atrisk/internal/screens/result"
	"github.com/abhisek/atrisk/internal/ui/components"
	"github.com/abhisek/atrisk/internal/ui/layout"
	"github.com/abhisek/atrisk/internal/ui/theme"
	"github.com/abhisek/atrisk/internal/wizard"
)

// scaleLabels annotate the 1-5 questions.
var scaleLabels = map[int]string{1: "very low", 3: "moderate", 5: "very high"}

type assessedMsg struct {
	Outcome *assessment.Outcome
	Err     error
}

// AssessScreen walks the student form one field at a time.
type AssessScreen struct {
	deps  screens.Deps
	state *wizard.State

	input    components.TextInput
	scale    components.Scale
	useScale bool

	submitting bool
	errMsg     string
}

var _ screen.Screen = (*AssessScreen)(nil)
var _ screen.KeyHintProvider = (*AssessScreen)(nil)

// New creates an AssessScreen with an empty form.
func New(deps screens.Deps) *AssessScreen {
	s := &AssessScreen{
		deps:  deps,
		state: wizard.New(deps.AskIntent),
		input: components.NewTextInput("", true, 12),
	}
	s.prepareStep()
	return s
}

func (s *AssessScreen) Init() tea.Cmd {
	return s.input.Init()
}

func (s *AssessScreen) Title() string {
	return "New Assessment"
}

func (s *AssessScreen) KeyHints() []layout.KeyHint {
	if s.submitting {
		return nil
	}
	hints := []layout.KeyHint{{Key: "Enter", Description: "Next"}}
	if s.useScale {
		hints = append(hints, layout.KeyHint{Key: "↑↓", Description: "Choose"})
	}
	if s.state.Index() > 0 {
		hints = append(hints, layout.KeyHint{Key: "Shift+Tab", Description: "Previous"})
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Cancel"})
}

// prepareStep sets up the widget for the current step, prefilled with any
// value already entered.
func (s *AssessScreen) prepareStep() {
	step, ok := s.state.Current()
	if !ok {
		return
	}
	v, filled := s.state.Value(s.state.Index())

	s.useScale = step.Integer && !step.Optional && step.Max-step.Min <= 4
	if s.useScale {
		start := int(step.Min)
		if filled {
			start = int(v)
		}
		s.scale = components.NewScale(int(step.Min), int(step.Max), start, scaleLabels)
		return
	}
	prefill := ""
	if filled {
		prefill = fmt.Sprintf("%g", v)
	}
	s.input.Reset(prefill)
	s.input.Model.Placeholder = fmt.Sprintf("%g-%g", step.Min, step.Max)
}

func (s *AssessScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case assessedMsg:
		s.submitting = false
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		return s, func() tea.Msg {
			return router.ReplaceScreenMsg{Screen: result.New(s.deps, msg.Outcome)}
		}

	case tea.KeyMsg:
		if s.submitting {
			return s, nil
		}
		switch msg.String() {
		case "shift+tab":
			if s.state.Back() {
				s.errMsg = ""
				s.prepareStep()
			}
			return s, nil
		case "enter":
			return s.submit()
		}
	}

	if s.useScale {
		s.scale = s.scale.Update(msg)
		return s, nil
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *AssessScreen) submit() (screen.Screen, tea.Cmd) {
	raw := s.input.Value()
	if s.useScale {
		raw = s.scale.Value()
	}
	if err := s.state.Submit(raw); err != nil {
		s.input.SetError(err.Error())
		return s, nil
	}
	s.errMsg = ""
	if !s.state.Done() {
		s.prepareStep()
		return s, nil
	}

	st, err := s.state.Student()
	if err != nil {
		s.errMsg = err.Error()
		s.state.Back()
		s.prepareStep()
		return s, nil
	}
	s.submitting = true
	assessor := s.deps.Assessor
	return s, func() tea.Msg {
		out, err := assessor.Assess(context.Background(), st, true)
		return assessedMsg{Outcome: out, Err: err}
	}
}

func (s *AssessScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	if s.submitting {
		return layout.Center(theme.Hint.Render("Scoring..."), width, height)
	}

	var sections []string

	progress := float64(s.state.Index()) / float64(s.state.Len())
	sections = append(sections, components.NewProgressBar(
		fmt.Sprintf("Question %d of %d", min(s.state.Index()+1, s.state.Len()), s.state.Len()),
		progress, false, cw).View())

	if step, ok := s.state.Current(); ok {
		var b strings.Builder
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(step.Prompt))
		b.WriteString("\n\n")
		if s.useScale {
			b.WriteString(s.scale.View())
		} else {
			b.WriteString(s.input.View())
		}
		sections = append(sections, components.Card(b.String(), cw, true))
	}

	if answered := s.renderAnswered(); answered != "" {
		sections = append(sections, answered)
	}
	if s.errMsg != "" {
		sections = append(sections, theme.ErrorText.Render(s.errMsg))
	}

	return layout.Center(strings.Join(sections, "\n\n"), width, height)
}

// renderAnswered lists the last few answers so the advisor can spot typos.
func (s *AssessScreen) renderAnswered() string {
	steps := wizard.Steps(s.deps.AskIntent)
	var lines []string
	for i := max(0, s.state.Index()-3); i < s.state.Index(); i++ {
		v, ok := s.state.Value(i)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %g", steps[i].Prompt, v))
	}
	if len(lines) == 0 {
		return ""
	}
	return lipgloss.NewStyle().Foreground(theme.TextDim).Render(strings.Join(lines, "\n"))
}
