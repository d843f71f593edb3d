package ui

import "testing"

func TestDetermineLayoutMode(t *testing.T) {
	if got := DetermineLayoutMode(120, 30); got != LayoutFull {
		t.Fatalf("expected full, got %v", got)
	}
	if got := DetermineLayoutMode(100, 16); got != LayoutCompact {
		t.Fatalf("expected compact by height, got %v", got)
	}
	if got := DetermineLayoutMode(60, 30); got != LayoutCompact {
		t.Fatalf("expected compact by width, got %v", got)
	}
	if got := DetermineLayoutMode(30, 30); got != LayoutTooSmall {
		t.Fatalf("expected too-small, got %v", got)
	}
	if got := DetermineLayoutMode(100, 10); got != LayoutTooSmall {
		t.Fatalf("expected too-small by height, got %v", got)
	}
}

func TestPanelAreaSubtractsFrameAndNotes(t *testing.T) {
	if w, h := PanelArea(120, 30, LayoutFull, 0); w != 120 || h != 27 {
		t.Fatalf("unexpected full area %dx%d", w, h)
	}
	if _, h := PanelArea(120, 16, LayoutCompact, 0); h != 14 {
		t.Fatalf("unexpected compact height %d", h)
	}
	if _, h := PanelArea(120, 30, LayoutFull, 6); h != 21 {
		t.Fatalf("expected notes drawer to shrink area, got %d", h)
	}
	if w, h := PanelArea(20, 5, LayoutTooSmall, 0); w != 0 || h != 0 {
		t.Fatalf("expected empty area when too small")
	}
}
