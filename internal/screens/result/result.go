package result

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/atrisk/internal/advisor"
	"github.com/abhisek/atrisk/internal/assessment"
	"github.com/abhisek/atrisk/internal/inference"
	"github.com/abhisek/atrisk/internal/router"
	"github.com/abhisek/atrisk/internal/screen"
	"github.com/abhisek/atrisk/internal/screens"
	"github.com/abhisek/atrisk/internal/ui/components"
	"github.com/abhisek/atrisk/internal/ui/layout"
	"github.com/abhisek/atrisk/internal/ui/theme"
)

// NotTrainedMessage is shown when no model pair exists yet.
const NotTrainedMessage = "Model not trained yet. Run `atrisk train` first."

type noteMsg struct {
	Note *advisor.Note
	Err  error
}

// ResultScreen shows one assessment outcome.
type ResultScreen struct {
	deps    screens.Deps
	outcome *assessment.Outcome

	noteLoading bool
	note        *advisor.Note
	noteErr     string
}

var _ screen.Screen = (*ResultScreen)(nil)
var _ screen.KeyHintProvider = (*ResultScreen)(nil)

// New creates a ResultScreen for out.
func New(deps screens.Deps, out *assessment.Outcome) *ResultScreen {
	return &ResultScreen{deps: deps, outcome: out}
}

func (s *ResultScreen) Init() tea.Cmd {
	return nil
}

func (s *ResultScreen) Title() string {
	return "Assessment Result"
}

func (s *ResultScreen) canAdvise() bool {
	return s.deps.Advisor != nil && s.outcome.Result != nil && s.note == nil && !s.noteLoading
}

func (s *ResultScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Enter", Description: "Home"}}
	if s.canAdvise() {
		hints = append(hints, layout.KeyHint{Key: "A", Description: "Advisor note"})
	}
	return hints
}

func (s *ResultScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case noteMsg:
		s.noteLoading = false
		if msg.Err != nil {
			s.noteErr = msg.Err.Error()
			return s, nil
		}
		s.note = msg.Note
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "esc":
			return s, func() tea.Msg { return router.PopToRootMsg{} }
		case "a":
			if s.canAdvise() {
				s.noteLoading = true
				s.noteErr = ""
				return s, s.requestNote()
			}
		}
	}
	return s, nil
}

func (s *ResultScreen) requestNote() tea.Cmd {
	svc := s.deps.Advisor
	in := advisor.Input{Values: s.outcome.Student.Vector(), Result: s.outcome.Result}
	return func() tea.Msg {
		note, err := svc.Generate(context.Background(), in)
		return noteMsg{Note: note, Err: err}
	}
}

func (s *ResultScreen) View(width, height int) string {
	cw := components.ContentWidth(width)
	res := s.outcome.Result

	if res == nil {
		body := theme.Hint.Render(NotTrainedMessage)
		if s.outcome.StudentID != 0 {
			body += "\n\n" + lipgloss.NewStyle().Foreground(theme.TextDim).
				Render(fmt.Sprintf("Student #%d was saved for the next training run.", s.outcome.StudentID))
		}
		return layout.Center(components.Card(body, cw, true), width, height)
	}

	var sections []string
	sections = append(sections, components.Card(renderVerdict(res, cw), cw, true))
	sections = append(sections, components.Card(renderReasons(res), cw, false))
	sections = append(sections, components.Card(renderForecast(res.Forecast), cw, false))

	if note := s.renderNote(); note != "" {
		sections = append(sections, components.Card(note, cw, false))
	}

	return layout.Center(strings.Join(sections, "\n"), width, height)
}

func renderVerdict(res *inference.Result, cw int) string {
	style := theme.ForTier(string(res.Tier))
	var b strings.Builder
	b.WriteString(style.Render(res.Tier.Label()))
	b.WriteString("\n")
	b.WriteString(theme.Body.Render(res.Tier.Message()))
	b.WriteString("\n\n")
	bar := components.NewProgressBar("At-risk probability", res.Probability, true, cw-8)
	bar.Fill = style.GetForeground()
	b.WriteString(bar.View())
	if len(res.Imputed) > 0 {
		b.WriteString("\n")
		b.WriteString(theme.Hint.Render("Filled from other answers: " + strings.Join(res.Imputed, ", ")))
	}
	return b.String()
}

func renderReasons(res *inference.Result) string {
	var b strings.Builder
	b.WriteString(theme.Selected.Render("Why"))
	for _, r := range res.Reasons {
		b.WriteString("\n")
		var c lipgloss.Style
		switch r.Polarity {
		case inference.Negative:
			c = theme.RiskHigh
		case inference.Positive:
			c = theme.RiskLow
		default:
			c = theme.Unselected
		}
		b.WriteString(c.UnsetBold().Render(r.String()))
	}
	return b.String()
}

func renderForecast(f inference.Forecast) string {
	trend := map[inference.Trend]string{
		inference.Improving: "↑ improving",
		inference.Declining: "↓ declining",
		inference.Stable:    "→ stable",
	}[f.Trend]
	return fmt.Sprintf("%s\nGPA %.2f → %.2f  (%+.2f, %s)",
		theme.Selected.Render("Next semester"), f.Current, f.Predicted, f.Delta, trend)
}

func (s *ResultScreen) renderNote() string {
	switch {
	case s.noteLoading:
		return theme.Hint.Render("Writing advisor note...")
	case s.noteErr != "":
		return theme.ErrorText.Render("Advisor note failed: " + s.noteErr)
	case s.note != nil:
		return theme.Selected.Render("Advisor note") + "\n" + theme.Body.Render(s.note.Render())
	}
	return ""
}
