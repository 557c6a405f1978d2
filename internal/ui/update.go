package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"geoform/internal/cascade"
	"geoform/internal/domain"
	appErrors "geoform/internal/errors"
	"geoform/internal/selector"
	"geoform/internal/submit"
	"geoform/internal/ui/theme"
)

func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case levelLoadedMsg:
		return m, m.applyLevel(msg.result)
	case keyLoadedMsg:
		if msg.state.Loaded {
			m.activity.add(activityInfo, "encryption key loaded")
			return m, nil
		}
		m.activity.add(activityError, "encryption key unavailable: %v", msg.err)
		return m, m.showToast("Encryption key unavailable; submit is disabled", true)
	case submitDoneMsg:
		return m, m.finishSubmit(msg.result)
	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *App) applyLevel(r cascade.Result) tea.Cmd {
	out := m.loader.Apply(r)
	m.syncSelections()
	level := out.Level
	switch out.Kind {
	case cascade.OutcomePopulated:
		m.activity.add(activityInfo, "loaded %d %s", out.Options, level.Plural())
	case cascade.OutcomeEmpty:
		m.activity.add(activityWarn, "%s", level.EmptyMessage())
	case cascade.OutcomeFailed:
		m.activity.add(activityError, "%s: %v", level.FailureMessage(), out.Err)
		return m.showToast(level.FailureMessage()+" (Ctrl+R to retry)", true)
	case cascade.OutcomeCancelled:
		// Superseded results never reach the screen.
	}
	return nil
}

func (m *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, Keys.Quit) {
		m.cancel()
		return m, tea.Quit
	}

	if m.showHelp {
		if key.Matches(msg, Keys.Help, Keys.Escape) {
			m.showHelp = false
		}
		return m, nil
	}

	if m.picker != nil {
		return m.handlePickerKey(msg)
	}

	cur := m.focused()
	typing := cur != nil && cur.kind == itemInput

	switch {
	case key.Matches(msg, Keys.Next), key.Matches(msg, Keys.Down) && !typing:
		m.focusItem(m.focus + 1)
		return m, nil
	case key.Matches(msg, Keys.Prev), key.Matches(msg, Keys.Up) && !typing:
		m.focusItem(m.focus - 1)
		return m, nil
	case key.Matches(msg, Keys.Submit):
		return m, m.startSubmit()
	case key.Matches(msg, Keys.Retry):
		return m, m.retryFocused()
	case key.Matches(msg, Keys.Copy):
		return m, m.copySelection()
	case key.Matches(msg, Keys.Theme):
		name := theme.CycleTheme()
		m.styles = newStyles()
		return m, m.showToast("Theme: "+name, false)
	case key.Matches(msg, Keys.Help) && (msg.Type == tea.KeyF1 || !typing):
		m.showHelp = true
		return m, nil
	}

	if cur == nil {
		return m, nil
	}
	switch cur.kind {
	case itemSelect:
		if key.Matches(msg, Keys.Enter) || msg.Type == tea.KeySpace {
			return m, m.openPicker(cur.level)
		}
	case itemButton:
		if key.Matches(msg, Keys.Enter) || msg.Type == tea.KeySpace {
			return m, m.startSubmit()
		}
	case itemInput:
		if key.Matches(msg, Keys.Enter) {
			m.focusItem(m.focus + 1)
			return m, nil
		}
		if m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		*cur.input, cmd = cur.input.Update(msg)
		if v := cur.input.Value(); v != cur.prev {
			cur.prev = v
			if field, ok := m.form.Field(cur.name); ok {
				field.SetValue(v)
			}
		}
		return m, cmd
	}
	return m, nil
}

func (m *App) openPicker(level domain.Level) tea.Cmd {
	if m.submitting {
		return m.showToast("Submitting…", false)
	}
	state := m.loader.State(level)
	switch {
	case state.Status == selector.StatusLoading:
		return m.showToast(state.Placeholder(), false)
	case state.Status == selector.StatusError:
		return m.showToast(state.Placeholder()+" (Ctrl+R to retry)", true)
	case state.Disabled:
		if parent, ok := parentOf(level); ok {
			return m.showToast(fmt.Sprintf("Choose a %s first", parent), false)
		}
		return m.showToast(state.Placeholder(), false)
	}
	m.picker = newPicker(level, state)
	return nil
}

func (m *App) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.picker
	switch {
	case key.Matches(msg, Keys.Escape):
		m.picker = nil
		return m, nil
	case key.Matches(msg, Keys.Up), key.Matches(msg, Keys.Prev):
		p.move(-1)
		return m, nil
	case key.Matches(msg, Keys.Down), key.Matches(msg, Keys.Next):
		p.move(1)
		return m, nil
	case key.Matches(msg, Keys.Enter):
		entry, ok := p.current()
		if !ok {
			return m, nil
		}
		m.picker = nil
		return m, m.choose(p.level, entry.Value)
	}

	before := p.filter.Value()
	var cmd tea.Cmd
	p.filter, cmd = p.filter.Update(msg)
	if p.filter.Value() != before {
		p.refilter()
	}
	return m, cmd
}

// choose records id at level and starts loading the child level.
func (m *App) choose(level domain.Level, id string) tea.Cmd {
	task, err := m.loader.Select(m.ctx, level, id)
	m.syncSelections()
	if err != nil {
		m.activity.add(activityError, "select %s: %v", level, err)
		return m.showToast(err.Error(), true)
	}
	if opt, ok := m.loader.Selected(level); ok {
		m.activity.add(activityInfo, "%s set to %s", level, opt.Label)
	} else {
		m.activity.add(activityInfo, "%s cleared", level)
	}
	if task != nil {
		m.activity.add(activityInfo, "loading %s for %s %s", task.Level().Plural(), level, task.ParentID())
	}
	return runTaskCmd(task)
}

// retryFocused reloads the focused level when its last load failed.
func (m *App) retryFocused() tea.Cmd {
	cur := m.focused()
	if cur == nil || cur.kind != itemSelect || m.submitting {
		return nil
	}
	if m.loader.State(cur.level).Status != selector.StatusError {
		return nil
	}
	if cur.level == domain.LevelState {
		m.activity.add(activityInfo, "retrying %s", cur.level.Plural())
		return runTaskCmd(m.loader.Start(m.ctx))
	}
	parent, _ := parentOf(cur.level)
	opt, ok := m.loader.Selected(parent)
	if !ok {
		return nil
	}
	task, err := m.loader.Trigger(m.ctx, cur.level, opt.ID)
	if err != nil {
		return m.showToast(err.Error(), true)
	}
	m.syncSelections()
	m.activity.add(activityInfo, "retrying %s for %s %s", cur.level.Plural(), parent, opt.ID)
	return runTaskCmd(task)
}

func (m *App) copySelection() tea.Cmd {
	ids := m.selectedIDs()
	if ids == "" {
		return m.showToast("Nothing selected to copy", false)
	}
	if err := writeClipboard(ids); err != nil {
		m.activity.add(activityWarn, "clipboard: %v", err)
		return m.showToast("Clipboard unavailable", true)
	}
	return m.showToast("Copied "+ids, false)
}

func (m *App) startSubmit() tea.Cmd {
	if m.submitting {
		return nil
	}
	m.activity.add(activityInfo, "submitting %s", m.form.Name)
	p, res, ok := m.interceptor.Prepare()
	if !ok {
		return m.finishSubmit(res)
	}
	m.submitting = true
	return sendCmd(m.ctx, m.interceptor, p)
}

func (m *App) finishSubmit(res submit.Result) tea.Cmd {
	m.submitting = false
	m.lastSubmit = &res
	switch res.Outcome {
	case submit.OutcomeSubmitted:
		m.activity.add(activityInfo, "submitted (request %s, %d field(s) encrypted)", res.RequestID, res.Encrypted)
		return m.showToast("Form submitted", false)
	case submit.OutcomeKeyNotLoaded:
		m.activity.add(activityWarn, "submit blocked: encryption key not loaded")
		return m.showToast("Encryption key not loaded; nothing was sent", true)
	default:
		m.activity.add(activityError, "%s: %v", res.Outcome, res.Err)
		if appErrors.IsCode(res.Err, appErrors.CodeEncryption) {
			return m.showToast("Could not encrypt passwords; nothing was sent", true)
		}
		return m.showToast("Submit failed: "+res.Err.Error(), true)
	}
}

func parentOf(level domain.Level) (domain.Level, bool) {
	for _, l := range domain.Levels {
		if child, ok := l.Child(); ok && child == level {
			return l, true
		}
	}
	return 0, false
}
