package share

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "Call me Ishmael.\n\nFrom: Moby Dick", Format("Call me Ishmael.", "Moby Dick"))
}

func TestShareFallsBackToClipboard(t *testing.T) {
	var copied string
	s := &Sharer{Copy: func(text string) error {
		copied = text
		return nil
	}}
	method, err := s.Share(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, ViaClipboard, method)
	assert.Equal(t, "hello", copied)
}

func TestShareClipboardFailure(t *testing.T) {
	s := &Sharer{Copy: func(string) error { return errors.New("no display") }}
	_, err := s.Share(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")
}

func TestShareRunsCommandWithStdin(t *testing.T) {
	if _, err := exec.LookPath("tee"); err != nil {
		t.Skip("tee not available")
	}
	out := filepath.Join(t.TempDir(), "shared.txt")
	s := New("tee " + out)

	method, err := s.Share(context.Background(), Format("Fear is the mind-killer.", "Dune"))
	require.NoError(t, err)
	assert.Equal(t, ViaCommand, method)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "Fear is the mind-killer.\n\nFrom: Dune", string(data))
}

func TestShareCommandFailure(t *testing.T) {
	s := New("bookfeed-share-command-that-does-not-exist")
	method, err := s.Share(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, ViaCommand, method)
}
