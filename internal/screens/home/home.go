package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/atrisk/internal/router"
	"github.com/abhisek/atrisk/internal/screen"
	"github.com/abhisek/atrisk/internal/screens"
	"github.com/abhisek/atrisk/internal/screens/assess"
	"github.com/abhisek/atrisk/internal/screens/history"
	"github.com/abhisek/atrisk/internal/screens/retrain"
	"github.com/abhisek/atrisk/internal/screens/stats"
	"github.com/abhisek/atrisk/internal/ui/components"
	"github.com/abhisek/atrisk/internal/ui/layout"
	"github.com/abhisek/atrisk/internal/ui/theme"
)

const banner = "Student Dropout Risk"

type statusMsg struct {
	Model     string
	Students  int
	Untrained int
	Err       error
}

// HomeScreen is the main menu.
type HomeScreen struct {
	deps   screens.Deps
	menu   components.Menu
	status statusMsg
}

var _ screen.Screen = (*HomeScreen)(nil)

// New creates a new HomeScreen.
func New(deps screens.Deps) *HomeScreen {
	push := func(build func() screen.Screen) func() tea.Cmd {
		return func() tea.Cmd {
			return func() tea.Msg { return router.PushScreenMsg{Screen: build()} }
		}
	}
	items := []components.MenuItem{
		{Label: "NEW ASSESSMENT", Action: push(func() screen.Screen { return assess.New(deps) })},
		{Label: "STATISTICS", Action: push(func() screen.Screen { return stats.New(deps) })},
		{Label: "HISTORY", Action: push(func() screen.Screen { return history.New(deps) })},
		{Label: "RETRAIN MODEL", Action: push(func() screen.Screen { return retrain.New(deps) }), Disabled: deps.Retrain == nil},
		{Label: "EXIT", Action: func() tea.Cmd { return tea.Quit }},
	}
	return &HomeScreen{
		deps: deps,
		menu: components.NewMenu(items),
	}
}

// Init refreshes the status card. It runs again whenever the router
// returns to this screen, and rereads the model directory so a retrain
// from another terminal shows up.
func (h *HomeScreen) Init() tea.Cmd {
	deps := h.deps
	return func() tea.Msg {
		var msg statusMsg
		msg.Students, msg.Untrained, msg.Err = deps.Students.Counts(context.Background())
		deps.Assessor.Reload()
		if svc, err := deps.Assessor.Service(); err == nil {
			p := svc.Pair()
			msg.Model = fmt.Sprintf("%s (%s, %s)", p.Name, p.Variant, p.TrainedAt.Local().Format("2006-01-02"))
		}
		return msg
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if st, ok := msg.(statusMsg); ok {
		h.status = st
		return h, nil
	}
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	title := lipgloss.NewStyle().Width(cw).Align(lipgloss.Center).
		Render(theme.Title.Render(banner) + "\n" + theme.Subtitle.Render("advisor assessment tool"))

	sections := []string{
		title,
		components.Card(h.renderStatus(), cw, false),
		components.Card(h.menu.View(), cw, true),
	}
	return layout.Center(strings.Join(sections, "\n\n"), width, height)
}

func (h *HomeScreen) renderStatus() string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	if h.status.Err != nil {
		return theme.ErrorText.Render(h.status.Err.Error())
	}
	model := h.status.Model
	if model == "" {
		model = theme.RiskMedium.Render("not trained")
	}
	return dim.Render("Model     ") + theme.Body.Render(model) + "\n" +
		dim.Render("Students  ") + theme.Body.Render(fmt.Sprintf("%d (%d new since training)", h.status.Students, h.status.Untrained))
}

func (h *HomeScreen) Title() string {
	return "Home"
}
