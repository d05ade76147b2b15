package tui

import (
	"strings"
	"testing"
)

func TestPageLayoutUpdate(t *testing.T) {
	cases := []struct {
		name           string
		width          int
		height         int
		viewportWidth  int
		viewportHeight int
		threadHeight   int
	}{
		{name: "standard", width: 80, height: 24, viewportWidth: 76, viewportHeight: 19, threadHeight: 13},
		{name: "wide", width: 200, height: 40, viewportWidth: 196, viewportHeight: 35, threadHeight: 29},
		{name: "tiny", width: 30, height: 8, viewportWidth: 40, viewportHeight: 6, threadHeight: 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			layout := newPageLayout()
			layout.Update(tc.width, tc.height)
			if layout.viewportWidth != tc.viewportWidth {
				t.Fatalf("viewport width mismatch: got %d want %d", layout.viewportWidth, tc.viewportWidth)
			}
			if layout.viewportHeight != tc.viewportHeight {
				t.Fatalf("viewport height mismatch: got %d want %d", layout.viewportHeight, tc.viewportHeight)
			}
			if layout.threadHeight != tc.threadHeight {
				t.Fatalf("thread height mismatch: got %d want %d", layout.threadHeight, tc.threadHeight)
			}
		})
	}
}

func TestContentBuilderCountsLines(t *testing.T) {
	cb := &contentBuilder{}
	cb.WriteString("a\nb")
	cb.WriteRune('\n')
	cb.WriteString("c")
	if cb.Line() != 2 {
		t.Fatalf("lines = %d, want 2", cb.Line())
	}
	if cb.String() != "a\nb\nc" {
		t.Fatalf("content = %q", cb.String())
	}
}

func TestPreviewText(t *testing.T) {
	if got := previewText("  call   me\nIshmael ", 0); got != "call me Ishmael" {
		t.Fatalf("collapse = %q", got)
	}
	got := previewText("abcdefghij", 4)
	if got != "abcd…" {
		t.Fatalf("truncate = %q", got)
	}
	if !strings.HasSuffix(previewText("héllo wörld", 5), "…") {
		t.Fatal("rune-aware truncation expected")
	}
}

func TestCommentLabel(t *testing.T) {
	if commentLabel(1) != "1 comment" || commentLabel(3) != "3 comments" {
		t.Fatalf("labels = %q %q", commentLabel(1), commentLabel(3))
	}
}

func TestCardLinesTrackCursorCards(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddBook("Walden", "one", "two", "three")
	m := env.model(t)
	freshLoad(t, m)
	m.refreshViewportIfDirty()
	if len(m.cardLines) != 3 {
		t.Fatalf("card lines = %v", m.cardLines)
	}
	for i := 1; i < len(m.cardLines); i++ {
		if m.cardLines[i] <= m.cardLines[i-1] {
			t.Fatalf("card lines must increase: %v", m.cardLines)
		}
	}
}
