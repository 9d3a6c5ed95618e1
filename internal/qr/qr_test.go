package qr

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	out, err := Render("RSQ-42")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.ContainsRune(out, '█') {
		t.Error("output has no block characters")
	}

	// Half-block encoding: every line covers two module rows, so all lines
	// must be the same width.
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 10 {
		t.Fatalf("got %d lines, expected a full QR block", len(lines))
	}
	width := len([]rune(lines[0]))
	for i, l := range lines {
		if len([]rune(l)) != width {
			t.Errorf("line %d width = %d, want %d", i, len([]rune(l)), width)
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	a, err := Render("RSQ-42")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Render("RSQ-42")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("same code rendered differently")
	}
}

func TestRenderEmpty(t *testing.T) {
	if _, err := Render(""); err == nil {
		t.Error("expected error for empty code")
	}
}
