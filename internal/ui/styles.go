package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"geoform/internal/ui/theme"
)

// styles is rebuilt whenever the theme changes.
type styles struct {
	Header      lipgloss.Style
	HeaderMeta  lipgloss.Style
	Label       lipgloss.Style
	LabelFocus  lipgloss.Style
	Value       lipgloss.Style
	Placeholder lipgloss.Style
	Disabled    lipgloss.Style
	Loading     lipgloss.Style
	Error       lipgloss.Style
	Success     lipgloss.Style
	Warning     lipgloss.Style
	Accent      lipgloss.Style
	Muted       lipgloss.Style

	Field        lipgloss.Style
	FieldFocused lipgloss.Style

	Picker         lipgloss.Style
	PickerRow      lipgloss.Style
	PickerSelected lipgloss.Style
	PickerMatch    lipgloss.Style

	Button        lipgloss.Style
	ButtonFocused lipgloss.Style
	ButtonBusy    lipgloss.Style

	Overlay lipgloss.Style
	Footer  lipgloss.Style
}

func newStyles() styles {
	t := theme.Current()
	return styles{
		Header: lipgloss.NewStyle().
			Foreground(t.Background()).
			Background(t.Primary()).
			Bold(true).
			Padding(0, 1),
		HeaderMeta:  lipgloss.NewStyle().Foreground(t.TextMuted()),
		Label:       lipgloss.NewStyle().Foreground(t.Secondary()),
		LabelFocus:  lipgloss.NewStyle().Foreground(t.Primary()).Bold(true),
		Value:       lipgloss.NewStyle().Foreground(t.Text()),
		Placeholder: lipgloss.NewStyle().Foreground(t.TextMuted()),
		Disabled:    lipgloss.NewStyle().Foreground(t.TextMuted()).Faint(true),
		Loading:     lipgloss.NewStyle().Foreground(t.Info()),
		Error:       lipgloss.NewStyle().Foreground(t.Error()).Bold(true),
		Success:     lipgloss.NewStyle().Foreground(t.Success()).Bold(true),
		Warning:     lipgloss.NewStyle().Foreground(t.Warning()),
		Accent:      lipgloss.NewStyle().Foreground(t.Accent()).Bold(true),
		Muted:       lipgloss.NewStyle().Foreground(t.TextMuted()),

		Field: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.BorderNormal()).
			PaddingLeft(1),
		FieldFocused: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(t.BorderFocused()).
			PaddingLeft(1),

		Picker: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderFocused()).
			Background(t.BackgroundSecondary()).
			Padding(0, 1),
		PickerRow:      lipgloss.NewStyle().Foreground(t.Text()),
		PickerSelected: lipgloss.NewStyle().Foreground(t.Background()).Background(t.Accent()).Bold(true),
		PickerMatch:    lipgloss.NewStyle().Foreground(t.Accent()).Underline(true),

		Button: lipgloss.NewStyle().
			Foreground(t.Text()).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderNormal()).
			Padding(0, 2),
		ButtonFocused: lipgloss.NewStyle().
			Foreground(t.Background()).
			Background(t.Primary()).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderFocused()).
			Bold(true).
			Padding(0, 2),
		ButtonBusy: lipgloss.NewStyle().
			Foreground(t.TextMuted()).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderNormal()).
			Padding(0, 2),

		Overlay: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Primary()).
			Background(t.BackgroundSecondary()).
			Padding(1, 2),
		Footer: lipgloss.NewStyle().Foreground(t.TextMuted()),
	}
}

// buildMarkdownRenderer returns a renderer for the help text. "plain" and
// renderer failures fall back to word wrapping.
func buildMarkdownRenderer(format string, width int) func(string) string {
	fallback := func(input string) string {
		return wordwrap.String(input, width)
	}

	style := strings.ToLower(strings.TrimSpace(format))
	switch style {
	case "", "rich":
		style = "dark"
	case "plain":
		return fallback
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fallback
	}
	return func(input string) string {
		out, err := renderer.Render(input)
		if err != nil {
			return fallback(input)
		}
		return strings.TrimSpace(out)
	}
}
