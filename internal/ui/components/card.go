package components

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/atrisk/internal/ui/theme"
)

// ContentWidth returns the uniform inner width used for stacked cards so
// they line up.
func ContentWidth(frameWidth int) int {
	return min(max(frameWidth-6, 20), 64)
}

// Card wraps content in a rounded-border card at the given content width.
func Card(content string, cw int, accent bool) string {
	border := theme.Border
	if accent {
		border = theme.Primary
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(cw - 2).
		Padding(0, 2).
		Render(content)
}
