package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/csheth/bookfeed/internal/api/apitest"
	"github.com/csheth/bookfeed/internal/tuitest"
)

func TestBookFeedShowsFeedAndSavesQuote(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	backend := apitest.New()
	backend.AddBook("Moby Dick", "Call me Ishmael.", "Towards thee I roll.")
	server := backend.Serve(t)

	cmdDir := moduleDir(t)
	binary := buildBinary(t, cmdDir)
	tmp := t.TempDir()

	rec, err := tuitest.Run(context.Background(), tuitest.Config{
		Command: []string{
			binary, "-no-alt-screen",
			"-server", server.URL,
			"-items-per-page", "5",
			"-db", filepath.Join(tmp, "bookfeed.db"),
			"-log-file", "",
			"-export", filepath.Join(tmp, "saved.json"),
		},
		Dir:    cmdDir,
		Width:  100,
		Height: 32,
		Steps: []tuitest.Step{
			{WaitFor: "Call me Ishmael."},
			{Input: tuitest.Keys("s")},
			{WaitFor: "Quote saved"},
			{Input: tuitest.Keys("S")},
			{WaitFor: "Saved quotes (1)"},
			{Input: tuitest.Keys("e")},
			{WaitFor: "Exported 1 quotes"},
			{Input: tuitest.KeyCtrlC},
		},
		Timeout:        20 * time.Second,
		AllowInterrupt: true,
	})
	if err != nil {
		t.Fatalf("run CLI: %v", err)
	}
	if _, ok := rec.LastFrameContaining("Moby Dick"); !ok && !rec.Contains("Moby Dick") {
		t.Fatalf("book title never drawn:\n%s", rec.Plain())
	}
	if _, err := os.Stat(filepath.Join(tmp, "saved.json")); err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	if reqs := backend.RequestsTo("/feed"); len(reqs) == 0 || reqs[0].Query["items_per_page"] != "5" {
		t.Fatalf("feed requests = %+v", reqs)
	}
}

func moduleDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	return filepath.Dir(file)
}

func buildBinary(t *testing.T, cmdDir string) string {
	t.Helper()
	name := "bookfeed-integration"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	binPath := filepath.Join(t.TempDir(), name)
	cmd := exec.Command("go", "build", "-o", binPath, ".")
	cmd.Dir = cmdDir
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build CLI: %v\n%s", err, output)
	}
	return binPath
}
