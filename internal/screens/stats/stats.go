package stats

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/atrisk/internal/inference"
	"github.com/abhisek/atrisk/internal/router"
	"github.com/abhisek/atrisk/internal/screen"
	"github.com/abhisek/atrisk/internal/screens"
	"github.com/abhisek/atrisk/internal/store"
	"github.com/abhisek/atrisk/internal/ui/components"
	"github.com/abhisek/atrisk/internal/ui/layout"
	"github.com/abhisek/atrisk/internal/ui/theme"
)

type statsLoadedMsg struct {
	Stats     store.PredictionStats
	Students  int
	Untrained int
	Err       error
}

// StatsScreen summarizes stored students and predictions.
type StatsScreen struct {
	deps   screens.Deps
	data   statsLoadedMsg
	loaded bool
}

var _ screen.Screen = (*StatsScreen)(nil)
var _ screen.KeyHintProvider = (*StatsScreen)(nil)

// New creates a StatsScreen.
func New(deps screens.Deps) *StatsScreen {
	return &StatsScreen{deps: deps}
}

func (s *StatsScreen) Init() tea.Cmd {
	students, predictions := s.deps.Students, s.deps.Predictions
	return func() tea.Msg {
		ctx := context.Background()
		var msg statsLoadedMsg
		msg.Stats, msg.Err = predictions.Stats(ctx)
		if msg.Err != nil {
			return msg
		}
		msg.Students, msg.Untrained, msg.Err = students.Counts(ctx)
		return msg
	}
}

func (s *StatsScreen) Title() string {
	return "Statistics"
}

func (s *StatsScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
}

func (s *StatsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case statsLoadedMsg:
		s.data = msg
		s.loaded = true
	case tea.KeyMsg:
		if msg.String() == "enter" {
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}

func (s *StatsScreen) View(width, height int) string {
	if !s.loaded {
		return layout.Center(theme.Hint.Render("Loading statistics..."), width, height)
	}
	if s.data.Err != nil {
		return layout.Center(theme.ErrorText.Render("Error: "+s.data.Err.Error()), width, height)
	}

	cw := components.ContentWidth(width)
	st := s.data.Stats

	var b strings.Builder
	row := func(label string, value any) {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Width(26).Render(label))
		b.WriteString(theme.Body.Render(fmt.Sprint(value)))
		b.WriteString("\n")
	}
	row("Students recorded", s.data.Students)
	row("Not yet trained on", s.data.Untrained)
	row("Predictions", st.Total)
	row("Flagged at risk", st.Risk)
	row("Average confidence", fmt.Sprintf("%.1f%%", st.AvgConfidence))

	var tiers strings.Builder
	tiers.WriteString(theme.Selected.Render("Risk levels"))
	for _, t := range []inference.Tier{inference.TierHigh, inference.TierMedium, inference.TierLow} {
		n := st.ByLevel[string(t)]
		share := 0.0
		if st.Total > 0 {
			share = float64(n) / float64(st.Total)
		}
		bar := components.NewProgressBar(fmt.Sprintf("%-6s %4d", t, n), share, true, cw-8)
		bar.Fill = theme.ForTier(string(t)).GetForeground()
		tiers.WriteString("\n")
		tiers.WriteString(bar.View())
	}

	content := components.Card(strings.TrimRight(b.String(), "\n"), cw, true) + "\n" +
		components.Card(tiers.String(), cw, false)
	if st.Total == 0 {
		content += "\n\n" + theme.Hint.Render("No predictions yet. Start a new assessment.")
	}
	return layout.Center(content, width, height)
}
