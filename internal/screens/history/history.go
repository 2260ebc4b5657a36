package history

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/screen"
	"github.com/abhisek/atrisk/internal/screens"
	"github.com/abhisek/atrisk/internal/store"
	"github.com/abhisek/atrisk/internal/ui/layout"
	"github.com/abhisek/atrisk/internal/ui/theme"
)

const pageSize = 50

type historyLoadedMsg struct {
	Predictions []store.Prediction
	Err         error
}

type studentLoadedMsg struct {
	Index   int
	Student *store.Student
	Err     error
}

// HistoryScreen lists recent predictions; Enter expands the student's
// answers.
type HistoryScreen struct {
	deps        screens.Deps
	predictions []store.Prediction
	students    map[int]*store.Student
	selected    int
	expanded    map[int]bool
	loaded      bool
	errMsg      string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a new HistoryScreen.
func New(deps screens.Deps) *HistoryScreen {
	return &HistoryScreen{
		deps:     deps,
		students: make(map[int]*store.Student),
		expanded: make(map[int]bool),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	repo := s.deps.Predictions
	return func() tea.Msg {
		preds, err := repo.List(context.Background(), store.QueryOpts{Limit: pageSize})
		return historyLoadedMsg{Predictions: preds, Err: err}
	}
}

func (s *HistoryScreen) Title() string {
	return "History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Details"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.predictions = msg.Predictions
		}
		s.loaded = true
		return s, nil

	case studentLoadedMsg:
		if msg.Err == nil {
			s.students[msg.Index] = msg.Student
		}
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
			return s, nil
		case "down", "j":
			if s.selected < len(s.predictions)-1 {
				s.selected++
			}
			return s, nil
		case "enter":
			if len(s.predictions) == 0 {
				return s, nil
			}
			s.expanded[s.selected] = !s.expanded[s.selected]
			if s.expanded[s.selected] && s.students[s.selected] == nil {
				return s, s.loadStudent(s.selected)
			}
			return s, nil
		}
	}
	return s, nil
}

func (s *HistoryScreen) loadStudent(i int) tea.Cmd {
	repo, id := s.deps.Students, s.predictions[i].StudentID
	return func() tea.Msg {
		st, err := repo.Get(context.Background(), id)
		return studentLoadedMsg{Index: i, Student: st, Err: err}
	}
}

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading history...")
	}
	if len(s.predictions) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No assessments yet.")
	}

	var b strings.Builder
	b.WriteString("\n")

	for i, p := range s.predictions {
		prefix := "  "
		if i == s.selected {
			prefix = "> "
		}
		line := fmt.Sprintf("%s%s  student #%-4d %-7s %5.1f%%  %s",
			prefix, p.CreatedAt.Local().Format("Jan 02 15:04"), p.StudentID,
			strings.ToUpper(p.RiskLevel), p.Confidence, p.ModelUsed)

		style := theme.ForTier(p.RiskLevel).UnsetBold()
		if i == s.selected {
			style = style.Bold(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")

		if s.expanded[i] {
			b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
				lipgloss.NewStyle().Foreground(theme.TextDim).Render(renderStudent(s.students[i]))))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func renderStudent(st *store.Student) string {
	if st == nil {
		return "    loading..."
	}
	var lines []string
	for i, spec := range features.All() {
		lines = append(lines, fmt.Sprintf("    %-28s %g", spec.Name, st.Record.Values[i]))
	}
	if st.Record.Labeled() {
		lines = append(lines, fmt.Sprintf("    %-28s %d", "intent to quit", st.Record.Label))
	}
	return strings.Join(lines, "\n")
}
