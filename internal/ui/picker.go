package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/x/ansi"
	"github.com/sahilm/fuzzy"

	"geoform/internal/domain"
	"geoform/internal/selector"
)

const maxPickerRows = 8

// picker is the open list of one selector. Typing filters the entries with
// fuzzy matching; the placeholder entry stays available while the filter is
// empty so a choice can be cleared.
type picker struct {
	level   domain.Level
	entries []selector.Entry
	filter  textinput.Model
	visible []int
	cursor  int
	offset  int
}

func newPicker(level domain.Level, state selector.State) *picker {
	ti := textinput.New()
	ti.Prompt = "filter: "
	ti.Placeholder = "type to filter " + level.Plural()
	ti.Focus()

	p := &picker{
		level:   level,
		entries: append([]selector.Entry(nil), state.Entries...),
		filter:  ti,
	}
	p.refilter()
	if state.Selected > 0 && state.Selected < len(p.entries) {
		p.moveTo(state.Selected)
	}
	return p
}

// pickerSource adapts entries to fuzzy.Source.
type pickerSource []selector.Entry

func (s pickerSource) String(i int) string { return s[i].Label }
func (s pickerSource) Len() int            { return len(s) }

func (p *picker) refilter() {
	query := strings.TrimSpace(p.filter.Value())
	p.visible = p.visible[:0]
	if query == "" {
		for i := range p.entries {
			p.visible = append(p.visible, i)
		}
	} else if len(p.entries) > 1 {
		for _, match := range fuzzy.FindFrom(query, pickerSource(p.entries[1:])) {
			p.visible = append(p.visible, match.Index+1)
		}
	}
	p.cursor = 0
	p.offset = 0
}

func (p *picker) moveTo(entry int) {
	for i, idx := range p.visible {
		if idx == entry {
			p.cursor = i
			p.scroll()
			return
		}
	}
}

func (p *picker) move(delta int) {
	if len(p.visible) == 0 {
		return
	}
	p.cursor += delta
	if p.cursor < 0 {
		p.cursor = 0
	}
	if p.cursor >= len(p.visible) {
		p.cursor = len(p.visible) - 1
	}
	p.scroll()
}

func (p *picker) scroll() {
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+maxPickerRows {
		p.offset = p.cursor - maxPickerRows + 1
	}
}

// current returns the highlighted entry.
func (p *picker) current() (selector.Entry, bool) {
	if p.cursor < 0 || p.cursor >= len(p.visible) {
		return selector.Entry{}, false
	}
	return p.entries[p.visible[p.cursor]], true
}

func (p *picker) view(s styles, width int) string {
	if width < 12 {
		width = 12
	}
	inner := width - 4
	lines := []string{p.filter.View()}
	if len(p.visible) == 0 {
		lines = append(lines, s.Muted.Render(fmt.Sprintf("no %s match %q", p.level.Plural(), p.filter.Value())))
	}
	end := p.offset + maxPickerRows
	if end > len(p.visible) {
		end = len(p.visible)
	}
	for i := p.offset; i < end; i++ {
		e := p.entries[p.visible[i]]
		label := ansi.Truncate(e.Label, inner-2, "…")
		style := s.PickerRow
		if e.Value == "" {
			style = s.Placeholder
		}
		if i == p.cursor {
			lines = append(lines, s.PickerSelected.Render("› "+label))
			continue
		}
		lines = append(lines, style.Render("  "+label))
	}
	if len(p.visible) > maxPickerRows {
		lines = append(lines, s.Muted.Render(fmt.Sprintf("%d/%d", p.cursor+1, len(p.visible))))
	}
	return s.Picker.Width(width - 2).Render(strings.Join(lines, "\n"))
}
