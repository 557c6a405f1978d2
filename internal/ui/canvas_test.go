package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestCanvasNormalizesNewlines(t *testing.T) {
	canvas := NewCanvas(8, 4)
	canvas.DrawStringAt(0, 0, "A\r\nB")

	lines := strings.Split(canvas.Render(), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected at least 2 lines, got %d", len(lines))
	}
	if got := strings.TrimSpace(ansi.Strip(lines[0])); got != "A" {
		t.Fatalf("line 0 = %q, want A", got)
	}
	if got := strings.TrimSpace(ansi.Strip(lines[1])); got != "B" {
		t.Fatalf("line 1 = %q, want B", got)
	}
}

func TestCanvasCenterOverlay(t *testing.T) {
	const width, height = 20, 10
	canvas := NewCanvas(width, height)
	canvas.DrawStringAt(0, 0, strings.Repeat(strings.Repeat(".", width)+"\n", height))
	canvas.CenterOverlay("AA\nBB")

	lines := strings.Split(canvas.Render(), "\n")
	row := (height - 2) / 2
	if len(lines) <= row+1 {
		t.Fatalf("not enough lines rendered, got %d", len(lines))
	}
	if idx := strings.Index(ansi.Strip(lines[row]), "AA"); idx != 9 {
		t.Fatalf("AA at column %d, want 9", idx)
	}
	if idx := strings.Index(ansi.Strip(lines[row+1]), "BB"); idx != 9 {
		t.Fatalf("BB at column %d, want 9", idx)
	}
	if !strings.HasPrefix(ansi.Strip(lines[0]), "....") {
		t.Fatalf("background row lost: %q", lines[0])
	}
}

func TestCanvasClipsOverflow(t *testing.T) {
	canvas := NewCanvas(4, 2)
	canvas.DrawStringAt(0, 1, "one\ntwo\nthree")
	lines := strings.Split(canvas.Render(), "\n")
	for _, line := range lines {
		if strings.Contains(ansi.Strip(line), "two") {
			t.Fatal("rows past the canvas height must be dropped")
		}
	}
}
