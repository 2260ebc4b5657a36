package components

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/atrisk/internal/ui/theme"
)

// numericKeys are the characters a numeric field accepts besides digits:
// decimal point or comma, percent sign and a range dash.
const numericKeys = ".,%-"

// TextInput wraps bubbles/textinput with the app's styling.
type TextInput struct {
	Model       textinput.Model
	NumericOnly bool
	err         string
}

// NewTextInput creates a new styled text input.
func NewTextInput(placeholder string, numericOnly bool, maxWidth int) TextInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()

	if maxWidth > 0 {
		ti.CharLimit = maxWidth
	}

	return TextInput{
		Model:       ti,
		NumericOnly: numericOnly,
	}
}

// Init returns the initial command.
func (t TextInput) Init() tea.Cmd {
	return t.Model.Focus()
}

// Update handles messages. Numeric inputs drop keys that cannot be part of
// a number.
func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	if t.NumericOnly {
		if kmsg, ok := msg.(tea.KeyMsg); ok {
			key := kmsg.String()
			if len(key) == 1 && (key[0] < '0' || key[0] > '9') && !strings.Contains(numericKeys, key) {
				return t, nil
			}
		}
	}

	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

// View renders the text input with the last validation error below it.
func (t TextInput) View() string {
	view := t.Model.View()
	if t.err != "" {
		view += "\n" + lipgloss.NewStyle().Foreground(theme.Error).Render("✗ "+t.err)
	}
	return view
}

// Value returns the current input value.
func (t TextInput) Value() string {
	return t.Model.Value()
}

// SetError shows a validation message; an empty message clears it.
func (t *TextInput) SetError(msg string) {
	t.err = msg
}

// Reset clears the value and any error, optionally prefilling value.
func (t *TextInput) Reset(value string) {
	t.Model.SetValue(value)
	t.Model.CursorEnd()
	t.err = ""
}
