// Package selector holds the state of one dropdown-like widget: a placeholder
// entry followed by zero or more options, a selection index and a disabled flag.
package selector

import (
	"fmt"
	"strings"

	"geoform/internal/domain"
	appErrors "geoform/internal/errors"
)

// Status tracks where a selector is in its load cycle.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusPopulated
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusPopulated:
		return "populated"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Entry is one row of the widget. The placeholder row has an empty Value.
type Entry struct {
	Value string
	Label string
}

// State is a snapshot of a selector. Entries[0] is always the placeholder.
type State struct {
	Status   Status
	Entries  []Entry
	Selected int
	Disabled bool
}

// Placeholder returns the text of the leading placeholder entry.
func (s State) Placeholder() string {
	if len(s.Entries) == 0 {
		return ""
	}
	return s.Entries[0].Label
}

// Options returns the real (non-placeholder) entries as options.
func (s State) Options() []domain.Option {
	if len(s.Entries) <= 1 {
		return nil
	}
	out := make([]domain.Option, 0, len(s.Entries)-1)
	for _, e := range s.Entries[1:] {
		out = append(out, domain.Option{ID: e.Value, Label: e.Label})
	}
	return out
}

// Selector is the mutable widget. It is not safe for concurrent use; owners
// serialise access (the cascade loader holds its own lock).
type Selector struct {
	name  string
	state State
}

// New returns a selector reset to placeholder and disabled.
func New(name, placeholder string) *Selector {
	s := &Selector{name: name}
	s.Reset(placeholder, true)
	return s
}

// Name returns the form field name the selector is bound to.
func (s *Selector) Name() string {
	return s.name
}

// Reset replaces every entry with a single placeholder, selects it and sets
// the disabled flag.
func (s *Selector) Reset(placeholder string, disabled bool) {
	s.state = State{
		Status:   StatusIdle,
		Entries:  []Entry{{Value: "", Label: placeholder}},
		Selected: 0,
		Disabled: disabled,
	}
}

// MarkLoading resets the selector to a disabled loading placeholder.
func (s *Selector) MarkLoading(placeholder string) {
	s.Reset(placeholder, true)
	s.state.Status = StatusLoading
}

// Fail resets the selector to a disabled placeholder carrying message.
func (s *Selector) Fail(message string) {
	s.Reset(message, true)
	s.state.Status = StatusError
}

// Populate writes the placeholder followed by options in input order and
// enables the widget. An empty option list is refused.
func (s *Selector) Populate(options []domain.Option, placeholder string) error {
	if len(options) == 0 {
		return appErrors.New(appErrors.CodeEmptyResult, fmt.Sprintf("populate %s: no options", s.name), nil)
	}
	entries := make([]Entry, 0, len(options)+1)
	entries = append(entries, Entry{Value: "", Label: placeholder})
	for _, opt := range options {
		entries = append(entries, Entry{Value: opt.ID, Label: opt.Label})
	}
	s.state = State{
		Status:   StatusPopulated,
		Entries:  entries,
		Selected: 0,
		Disabled: false,
	}
	return nil
}

// Select moves the selection to the option with id. An empty id selects the
// placeholder.
func (s *Selector) Select(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		s.state.Selected = 0
		return nil
	}
	if s.state.Disabled {
		return appErrors.New(appErrors.CodeInvalidSelection, fmt.Sprintf("%s is disabled", s.name), nil)
	}
	for i, e := range s.state.Entries {
		if i > 0 && e.Value == id {
			s.state.Selected = i
			return nil
		}
	}
	return appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("%s has no option %q", s.name, id), nil)
}

// Selected returns the chosen option; false when the placeholder is selected.
func (s *Selector) Selected() (domain.Option, bool) {
	if s.state.Selected <= 0 || s.state.Selected >= len(s.state.Entries) {
		return domain.Option{}, false
	}
	e := s.state.Entries[s.state.Selected]
	return domain.Option{ID: e.Value, Label: e.Label}, true
}

// Value returns the submitted form value: the selected id or "".
func (s *Selector) Value() string {
	opt, ok := s.Selected()
	if !ok {
		return ""
	}
	return opt.ID
}

// State returns a copy of the selector state.
func (s *Selector) State() State {
	st := s.state
	st.Entries = append([]Entry(nil), s.state.Entries...)
	return st
}
