// Package screen defines what the router needs from a page of the TUI.
package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/atrisk/internal/ui/layout"
)

// Screen is one page on the router stack. The router draws the header and
// footer around View.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View(width, height int) string
	Title() string // shown in the header
}

// KeyHintProvider lets a screen replace the default footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}
