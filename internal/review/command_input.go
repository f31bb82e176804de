package review

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const commandPlaceholder = "n, t <id>, f <text>, r, d, s, q (? for help)"

// commandInput is the single editable line used to answer a review prompt on
// a terminal. Tab completes from commands accepted earlier in the session.
type commandInput struct {
	input     textinput.Model
	submitted bool
	cancelled bool
}

func newCommandInput(history []string, promptStyle lipgloss.Style) commandInput {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = promptStyle
	ti.Placeholder = commandPlaceholder
	ti.CharLimit = 200
	ti.Width = 60
	if len(history) > 0 {
		ti.ShowSuggestions = true
		ti.SetSuggestions(history)
	}
	ti.Focus()
	return commandInput{input: ti}
}

func (m commandInput) Init() tea.Cmd {
	return textinput.Blink
}

func (m commandInput) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.submitted = true
			m.input.Blur()
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			m.input.Blur()
			return m, tea.Quit
		case tea.KeyCtrlD:
			// Only an empty line ends the session; otherwise ctrl+d deletes forward.
			if m.input.Value() == "" {
				m.cancelled = true
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m commandInput) View() string {
	if m.submitted || m.cancelled {
		return m.input.PromptStyle.Render(m.input.Prompt) + m.input.Value() + "\n"
	}
	return m.input.View()
}

// Value returns the submitted command without surrounding space.
func (m commandInput) Value() string {
	return strings.TrimSpace(m.input.Value())
}
