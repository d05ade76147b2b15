// Package share hands quote text to the platform share command or, when none
// is configured, to the system clipboard.
package share

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/atotto/clipboard"
)

// Method reports how a quote was shared.
type Method int

const (
	ViaCommand Method = iota
	ViaClipboard
)

// Format builds the shared text for a quote.
func Format(quote, book string) string {
	return quote + "\n\nFrom: " + book
}

// Sharer delivers text to the configured destination.
type Sharer struct {
	// Command is split on whitespace; the text is written to its stdin.
	Command string
	// Copy defaults to the system clipboard.
	Copy func(string) error
}

// New returns a Sharer for command, which may be empty.
func New(command string) *Sharer {
	return &Sharer{Command: strings.TrimSpace(command)}
}

// Share sends text through the share command, or copies it when no command
// is configured.
func (s *Sharer) Share(ctx context.Context, text string) (Method, error) {
	if s.Command == "" {
		copyFn := s.Copy
		if copyFn == nil {
			copyFn = clipboard.WriteAll
		}
		if clipboard.Unsupported && s.Copy == nil {
			return ViaClipboard, errors.New("clipboard unavailable")
		}
		if err := copyFn(text); err != nil {
			return ViaClipboard, fmt.Errorf("copy to clipboard: %w", err)
		}
		return ViaClipboard, nil
	}

	args := strings.Fields(s.Command)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return ViaCommand, fmt.Errorf("share command %q: %w: %s", args[0], err, msg)
		}
		return ViaCommand, fmt.Errorf("share command %q: %w", args[0], err)
	}
	return ViaCommand, nil
}
