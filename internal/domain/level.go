package domain

import (
	"fmt"
	"strings"
)

// Level identifies one stage of the cascading location selectors.
type Level int

const (
	LevelState Level = iota
	LevelDistrict
	LevelBlock
)

// Levels lists every level in dependency order.
var Levels = []Level{LevelState, LevelDistrict, LevelBlock}

type levelText struct {
	singular string
	plural   string
}

var levelNames = map[Level]levelText{
	LevelState:    {singular: "state", plural: "states"},
	LevelDistrict: {singular: "district", plural: "districts"},
	LevelBlock:    {singular: "block", plural: "blocks"},
}

// ParseLevel maps a level name ("state", "districts", ...) back to a Level.
func ParseLevel(raw string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for level, text := range levelNames {
		if name == text.singular || name == text.plural {
			return level, nil
		}
	}
	return 0, invalidLevelError(raw)
}

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

func (l Level) String() string {
	if text, ok := levelNames[l]; ok {
		return text.singular
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Plural returns the collection noun used in messages ("districts").
func (l Level) Plural() string {
	if text, ok := levelNames[l]; ok {
		return text.plural
	}
	return l.String()
}

// Title returns the capitalised singular noun.
func (l Level) Title() string {
	return capitalize(l.String())
}

// Placeholder is the default text of an idle selector.
func (l Level) Placeholder() string {
	return "— Select " + l.Title() + " —"
}

// LoadingPlaceholder is shown while the level's options are in flight.
func (l Level) LoadingPlaceholder() string {
	return "— Loading " + capitalize(l.Plural()) + "… —"
}

// EmptyMessage is shown when the backend returned no options.
func (l Level) EmptyMessage() string {
	return "No " + l.Plural() + " found"
}

// FailureMessage is shown when fetching options failed.
func (l Level) FailureMessage() string {
	return "Failed to load " + l.Plural()
}

// Child returns the level that depends on l.
func (l Level) Child() (Level, bool) {
	next := l + 1
	if !next.Valid() || !l.Valid() {
		return 0, false
	}
	return next, true
}

// Descendants returns every level below l, nearest first.
func (l Level) Descendants() []Level {
	var out []Level
	for next, ok := l.Child(); ok; next, ok = next.Child() {
		out = append(out, next)
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
