// Package theme owns the light/dark preference and the lipgloss styles that
// go with each mode.
package theme

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// PrefKey is the preference key the mode is stored under.
const PrefKey = "theme"

// Mode is the active color scheme.
type Mode string

const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

// Parse maps a stored value to a Mode; anything unknown is light.
func Parse(value string) Mode {
	if Mode(value) == Dark {
		return Dark
	}
	return Light
}

// Other returns the opposite mode.
func (m Mode) Other() Mode {
	if m == Dark {
		return Light
	}
	return Dark
}

// Prefs is the key/value store the controller persists to.
type Prefs interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Controller tracks the active mode.
type Controller struct {
	prefs Prefs
	mode  Mode
}

// NewController returns a controller in light mode. prefs may be nil, in
// which case nothing is persisted.
func NewController(prefs Prefs) *Controller {
	return &Controller{prefs: prefs, mode: Light}
}

// Mode returns the active mode.
func (c *Controller) Mode() Mode { return c.mode }

// Init loads the stored mode. A missing or unreadable preference leaves the
// controller in light mode; the read error is returned for logging only.
func (c *Controller) Init(ctx context.Context) (Mode, error) {
	c.mode = Light
	if c.prefs == nil {
		return c.mode, nil
	}
	value, err := c.prefs.Get(ctx, PrefKey)
	if err != nil {
		return c.mode, err
	}
	c.mode = Parse(value)
	return c.mode, nil
}

// Toggle flips the mode and persists it. The in-memory mode flips even when
// persisting fails.
func (c *Controller) Toggle(ctx context.Context) (Mode, error) {
	c.mode = c.mode.Other()
	if c.prefs == nil {
		return c.mode, nil
	}
	if err := c.prefs.Set(ctx, PrefKey, string(c.mode)); err != nil {
		return c.mode, fmt.Errorf("persist theme: %w", err)
	}
	return c.mode, nil
}

// Styles is the set of lipgloss styles the UI renders with.
type Styles struct {
	Title      lipgloss.Style
	Book       lipgloss.Style
	Quote      lipgloss.Style
	Source     lipgloss.Style
	Helper     lipgloss.Style
	Error      lipgloss.Style
	Badge      lipgloss.Style
	Saved      lipgloss.Style
	Selected   lipgloss.Style
	Card       lipgloss.Style
	CardActive lipgloss.Style
	Panel      lipgloss.Style
	StatusBar  lipgloss.Style
	Key        lipgloss.Style
	KeyDesc    lipgloss.Style
	Toast      lipgloss.Style
	User       lipgloss.Style
	Reply      lipgloss.Style
	Chip       lipgloss.Style
	ChipActive lipgloss.Style
}

type palette struct {
	accent, text, muted, subtle, border, surface, error, badge, badgeText, user, reply string
}

var palettes = map[Mode]palette{
	Light: {
		accent:    "#7c3aed",
		text:      "#1f2937",
		muted:     "#6b7280",
		subtle:    "#ede9fe",
		border:    "#d1d5db",
		surface:   "#f9fafb",
		error:     "#dc2626",
		badge:     "#f59e0b",
		badgeText: "#111827",
		user:      "#2563eb",
		reply:     "#047857",
	},
	Dark: {
		accent:    "#c4b5fd",
		text:      "#e5e7eb",
		muted:     "#9ca3af",
		subtle:    "#312e81",
		border:    "#4b5563",
		surface:   "#111827",
		error:     "#f87171",
		badge:     "#fbbf24",
		badgeText: "#0f0f0f",
		user:      "#93c5fd",
		reply:     "#6ee7b7",
	},
}

// For builds the styles of mode m.
func For(m Mode) Styles {
	p := palettes[Parse(string(m))]
	c := func(hex string) lipgloss.Color { return lipgloss.Color(hex) }
	return Styles{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(c(p.accent)),
		Book:       lipgloss.NewStyle().Bold(true).Foreground(c(p.accent)),
		Quote:      lipgloss.NewStyle().Foreground(c(p.text)),
		Source:     lipgloss.NewStyle().Foreground(c(p.muted)).Italic(true).PaddingLeft(2),
		Helper:     lipgloss.NewStyle().Foreground(c(p.muted)),
		Error:      lipgloss.NewStyle().Foreground(c(p.error)),
		Badge:      lipgloss.NewStyle().Bold(true).Foreground(c(p.badgeText)).Background(c(p.badge)).Padding(0, 1),
		Saved:      lipgloss.NewStyle().Foreground(c(p.badge)),
		Selected:   lipgloss.NewStyle().Foreground(c(p.text)).Background(c(p.subtle)),
		Card:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(c(p.border)).Padding(0, 1),
		CardActive: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(c(p.accent)).Padding(0, 1),
		Panel:      lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(c(p.accent)).Padding(0, 1),
		StatusBar:  lipgloss.NewStyle().Foreground(c(p.surface)).Background(c(p.accent)).Padding(0, 1),
		Key:        lipgloss.NewStyle().Bold(true).Foreground(c(p.badgeText)).Background(c(p.badge)).Padding(0, 1),
		KeyDesc:    lipgloss.NewStyle().Foreground(c(p.muted)),
		Toast:      lipgloss.NewStyle().Bold(true).Foreground(c(p.surface)).Background(c(p.text)).Padding(0, 1),
		User:       lipgloss.NewStyle().Bold(true).Foreground(c(p.user)),
		Reply:      lipgloss.NewStyle().Foreground(c(p.reply)),
		Chip:       lipgloss.NewStyle().Foreground(c(p.muted)).Padding(0, 1),
		ChipActive: lipgloss.NewStyle().Bold(true).Foreground(c(p.surface)).Background(c(p.accent)).Padding(0, 1),
	}
}
