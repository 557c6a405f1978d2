package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// helpMarkdown builds the help text from the keymap so the bindings have a
// single source of truth.
func helpMarkdown(keys KeyMap) string {
	row := func(b key.Binding) string {
		return fmt.Sprintf("| `%s` | %s |", b.Help().Key, b.Help().Desc)
	}
	var sb strings.Builder
	sb.WriteString("# geoform\n\n")
	sb.WriteString("Pick a state, then a district, then a block. Each list loads after its parent is chosen; ")
	sb.WriteString("changing a parent clears everything below it.\n\n")
	sb.WriteString("| Key | Action |\n|---|---|\n")
	for _, b := range []key.Binding{
		keys.Next, keys.Up, keys.Enter, keys.Submit, keys.Retry,
		keys.Copy, keys.Theme, keys.Help, keys.Escape, keys.Quit,
	} {
		sb.WriteString(row(b))
		sb.WriteString("\n")
	}
	sb.WriteString("\nPasswords are encrypted with the server's public key before they leave this terminal. ")
	sb.WriteString("Submitting is refused until that key has loaded.\n")
	return sb.String()
}

func (m *App) renderHelpOverlay() string {
	width := m.width - 8
	if width > 76 {
		width = 76
	}
	if width < 30 {
		width = 30
	}
	body := buildMarkdownRenderer(m.helpStyle, width-4)(helpMarkdown(Keys))
	footer := m.styles.Footer.Render("Press F1 or Esc to close")
	return m.styles.Overlay.Render(body + "\n\n" + footer)
}
