package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"geoform/internal/selector"
	"geoform/internal/submit"
)

const labelWidth = 18

func (m *App) View() string {
	s := m.styles
	var rows []string
	rows = append(rows, m.renderHeader(), "")

	for i, item := range m.items {
		focused := i == m.focus
		switch item.kind {
		case itemButton:
			rows = append(rows, "", m.renderButton(focused))
		default:
			rows = append(rows, m.renderField(item, focused))
			if m.picker != nil && item.kind == itemSelect && item.level == m.picker.level {
				rows = append(rows, indent(m.picker.view(s, m.width-labelWidth-2), labelWidth+2))
			}
		}
	}

	if line := m.renderSubmitStatus(); line != "" {
		rows = append(rows, "", line)
	}
	if m.toast != "" {
		style := s.Success
		if m.toastErr {
			style = s.Error
		}
		rows = append(rows, "", style.Render(ansi.Truncate(m.toast, m.width-2, "…")))
	}
	if log := m.activity.render(s, m.width-2, activityRows); log != "" {
		rows = append(rows, "", s.Muted.Render("Activity"), log)
	}
	rows = append(rows, "", m.renderFooter())

	frame := strings.Join(rows, "\n")
	if !m.showHelp {
		return frame
	}
	height := m.height
	if n := len(splitLines(frame)); n > height {
		height = n
	}
	canvas := NewCanvas(m.width, height)
	canvas.DrawStringAt(0, 0, frame)
	canvas.CenterOverlay(m.renderHelpOverlay())
	return canvas.Render()
}

func (m *App) renderHeader() string {
	s := m.styles
	title := "GEOFORM"
	if m.version != "" {
		title = fmt.Sprintf("GEOFORM %s", m.version)
	}
	var status string
	switch {
	case m.keys.Loaded():
		status = s.Success.Render("● key loaded")
	case m.keys.Err() != nil:
		status = s.Error.Render("● key unavailable")
	default:
		status = s.Loading.Render(m.spinner.View() + " loading key")
	}
	return s.Header.Render(title) + " " + s.HeaderMeta.Render("Registration") + "  " + status
}

func (m *App) renderField(item *focusItem, focused bool) string {
	s := m.styles
	label := item.name
	if field, ok := m.form.Field(item.name); ok {
		label = field.Label
	}
	labelStyle := s.Label
	box := s.Field
	if focused {
		labelStyle = s.LabelFocus
		box = s.FieldFocused
	}
	label = labelStyle.Width(labelWidth).Render(ansi.Truncate(label, labelWidth-1, "…"))

	var content string
	switch item.kind {
	case itemInput:
		content = item.input.View()
		if field, ok := m.form.Field(item.name); ok && field.Encrypted() {
			content += " " + s.Muted.Render("(encrypted)")
		}
	case itemSelect:
		content = m.renderSelector(m.loader.State(item.level))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, label, box.Render(content))
}

func (m *App) renderSelector(st selector.State) string {
	s := m.styles
	maxWidth := m.width - labelWidth - 6
	if maxWidth < 10 {
		maxWidth = 10
	}
	text := st.Placeholder()
	if st.Selected > 0 && st.Selected < len(st.Entries) {
		text = st.Entries[st.Selected].Label
	}
	text = ansi.Truncate(text, maxWidth, "…")

	switch {
	case st.Status == selector.StatusLoading:
		return s.Loading.Render(m.spinner.View() + " " + text)
	case st.Status == selector.StatusError:
		return s.Error.Render(text)
	case st.Disabled:
		return s.Disabled.Render(text)
	case st.Selected == 0:
		return s.Placeholder.Render(text + " ▾")
	default:
		return s.Value.Render(text) + s.Muted.Render(" ▾")
	}
}

func (m *App) renderButton(focused bool) string {
	s := m.styles
	switch {
	case m.submitting:
		return indent(s.ButtonBusy.Render(m.spinner.View()+" Submitting"), labelWidth)
	case focused:
		return indent(s.ButtonFocused.Render("Submit"), labelWidth)
	default:
		return indent(s.Button.Render("Submit"), labelWidth)
	}
}

func (m *App) renderSubmitStatus() string {
	if m.lastSubmit == nil {
		return ""
	}
	s := m.styles
	res := m.lastSubmit
	switch res.Outcome {
	case submit.OutcomeSubmitted:
		return s.Success.Render(fmt.Sprintf("✓ Submitted, request %s", res.RequestID))
	case submit.OutcomeKeyNotLoaded:
		return s.Warning.Render("Not sent: encryption key not loaded")
	default:
		return s.Error.Render("✗ " + res.Outcome.String())
	}
}

func (m *App) renderFooter() string {
	hints := []string{
		Keys.Next.Help().Key + " move",
		Keys.Enter.Help().Key + " open",
		Keys.Submit.Help().Key + " submit",
		Keys.Help.Help().Key + " help",
		Keys.Quit.Help().Key + " quit",
	}
	return m.styles.Footer.Render(ansi.Truncate(strings.Join(hints, " • "), m.width-1, "…"))
}

func indent(block string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := splitLines(block)
	for i, line := range lines {
		lines[i] = pad + line
	}
	return strings.Join(lines, "\n")
}
