package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/muesli/reflow/wordwrap"

	"geoform/internal/debug"
)

type activityLevel int

const (
	activityInfo activityLevel = iota
	activityWarn
	activityError
)

type activityEntry struct {
	at    time.Time
	level activityLevel
	text  string
}

// activityLog keeps the most recent events shown under the form. Every entry
// is mirrored to the debug log.
type activityLog struct {
	entries []activityEntry
	max     int
	now     func() time.Time
}

func newActivityLog(max int) *activityLog {
	if max <= 0 {
		max = 50
	}
	return &activityLog{max: max, now: time.Now}
}

func (l *activityLog) add(level activityLevel, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	switch level {
	case activityWarn:
		debug.Warnf("ui: %s", text)
	case activityError:
		debug.Errorf("ui: %s", text)
	default:
		debug.Logf("ui: %s", text)
	}
	l.entries = append(l.entries, activityEntry{at: l.now(), level: level, text: text})
	if over := len(l.entries) - l.max; over > 0 {
		l.entries = append(l.entries[:0], l.entries[over:]...)
	}
}

func (l *activityLog) last() (activityEntry, bool) {
	if len(l.entries) == 0 {
		return activityEntry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// render returns at most rows wrapped lines, newest last.
func (l *activityLog) render(s styles, width, rows int) string {
	if rows <= 0 || len(l.entries) == 0 {
		return ""
	}
	if width < 20 {
		width = 20
	}
	var lines []string
	for i := len(l.entries) - 1; i >= 0 && len(lines) < rows; i-- {
		e := l.entries[i]
		style := s.Muted
		switch e.level {
		case activityWarn:
			style = s.Warning
		case activityError:
			style = s.Error
		}
		stamp := e.at.Format("15:04:05")
		wrapped := strings.Split(wordwrap.String(e.text, width-len(stamp)-1), "\n")
		for j := len(wrapped) - 1; j >= 0 && len(lines) < rows; j-- {
			prefix := strings.Repeat(" ", len(stamp))
			if j == 0 {
				prefix = stamp
			}
			lines = append(lines, s.Muted.Render(prefix)+" "+style.Render(wrapped[j]))
		}
	}
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.Join(lines, "\n")
}
