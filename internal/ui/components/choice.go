package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/atrisk/internal/ui/theme"
)

// Scale is a vertical selector for small integer scales such as 1-5.
type Scale struct {
	Min, Max int
	Labels   map[int]string
	Selected int
}

// NewScale creates a selector over [lo, hi] with the cursor on start.
func NewScale(lo, hi, start int, labels map[int]string) Scale {
	if start < lo || start > hi {
		start = lo
	}
	return Scale{Min: lo, Max: hi, Labels: labels, Selected: start}
}

// Update moves the cursor. Digit keys jump straight to a value.
func (s Scale) Update(msg tea.Msg) Scale {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return s
	}
	key := kmsg.String()
	switch key {
	case "up", "k":
		if s.Selected > s.Min {
			s.Selected--
		}
	case "down", "j":
		if s.Selected < s.Max {
			s.Selected++
		}
	default:
		if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
			if v := int(key[0] - '0'); v >= s.Min && v <= s.Max {
				s.Selected = v
			}
		}
	}
	return s
}

// Value returns the selected value as text, ready for wizard parsing.
func (s Scale) Value() string {
	return fmt.Sprint(s.Selected)
}

// View renders the scale.
func (s Scale) View() string {
	var b strings.Builder
	for v := s.Min; v <= s.Max; v++ {
		line := fmt.Sprintf("%d", v)
		if label, ok := s.Labels[v]; ok {
			line += "  " + label
		}
		if v == s.Selected {
			b.WriteString(theme.Selected.Render("▸ " + line))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}
