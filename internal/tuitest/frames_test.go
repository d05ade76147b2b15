package tuitest

import (
	"bytes"
	"testing"
)

func TestParseFramesSplitsOnClear(t *testing.T) {
	raw := []byte("\x1b[2J\x1b[Hfirst   \r\n\x1b[2J\x1b[H\x1b[1msecond\x1b[0m\n\n")
	frames := parseFrames(raw)
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	if frames[0].Plain != "first" || frames[1].Plain != "second" {
		t.Fatalf("plain = %q, %q", frames[0].Plain, frames[1].Plain)
	}
	rec := &Recording{Raw: raw, Frames: frames}
	final, ok := rec.FinalFrame()
	if !ok || final.Index != 1 {
		t.Fatalf("final = %+v", final)
	}
	if !rec.Contains("second") {
		t.Fatal("Contains should see stripped text")
	}
}

func TestTerminalResponderAnswersQueries(t *testing.T) {
	var out bytes.Buffer
	tr := newTerminalResponder(&out)
	tr.Process([]byte("abc\x1b]11;?"))
	tr.Process([]byte("\x07def\x1b[6n"))
	want := "\x1b]11;rgb:0000/0000/0000\x07\x1b[1;1R"
	if out.String() != want {
		t.Fatalf("replies = %q, want %q", out.String(), want)
	}
}

func TestParseFramesSplitsOnAltScreen(t *testing.T) {
	raw := []byte("\x1b[?1049hfeed\nrow two  \n\x1b[?1049lbye")
	frames := parseFrames(raw)
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	lines := frames[0].Lines()
	if len(lines) != 2 || lines[1] != "row two" {
		t.Fatalf("lines = %q", lines)
	}
	rec := &Recording{Frames: frames}
	if f, ok := rec.LastFrameContaining("feed"); !ok || f.Index != 0 {
		t.Fatalf("frame containing feed = %+v %v", f, ok)
	}
	if _, ok := rec.LastFrameContaining("missing"); ok {
		t.Fatal("no frame should match")
	}
}
