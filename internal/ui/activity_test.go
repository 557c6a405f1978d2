package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"geoform/internal/debug"
)

func TestActivityLogMirrorsToDebug(t *testing.T) {
	var buf bytes.Buffer
	restore := debug.SetOutput(&buf)
	defer restore()

	log := newActivityLog(10)
	log.add(activityInfo, "loaded %d %s", 3, "states")
	log.add(activityWarn, "No blocks found")
	log.add(activityError, "boom")

	out := buf.String()
	for _, want := range []string{"ui: loaded 3 states", "WARN ui: No blocks found", "ERROR ui: boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("debug output missing %q:\n%s", want, out)
		}
	}
}

func TestActivityLogTrimsOldest(t *testing.T) {
	log := newActivityLog(2)
	log.add(activityInfo, "one")
	log.add(activityInfo, "two")
	log.add(activityInfo, "three")
	if len(log.entries) != 2 || log.entries[0].text != "two" {
		t.Fatalf("entries = %+v", log.entries)
	}
	if last, ok := log.last(); !ok || last.text != "three" {
		t.Fatalf("last = %+v", last)
	}
}

func TestActivityLogRenderNewestLast(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)
	log := newActivityLog(10)
	log.now = func() time.Time { return time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC) }
	log.add(activityInfo, "first")
	log.add(activityInfo, "second")
	log.add(activityInfo, "third")

	lines := strings.Split(ansi.Strip(log.render(newStyles(), 60, 2)), "\n")
	if len(lines) != 2 {
		t.Fatalf("rendered %d lines, want 2", len(lines))
	}
	if !strings.HasSuffix(lines[1], "third") || !strings.HasSuffix(lines[0], "second") {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasPrefix(lines[0], "09:30:00") {
		t.Fatalf("missing timestamp: %q", lines[0])
	}
}
