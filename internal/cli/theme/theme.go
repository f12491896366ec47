// Package theme holds the light/dark preference shared by every client
// process and applies it to the renderer.
package theme

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/coinvest-dev/coinvest/internal/cli/storage"
)

// Theme is the color scheme name
type Theme string

const (
	Dark  Theme = "dark"
	Light Theme = "light"

	// Key is the storage key of the preference
	Key = "theme"
	// Attribute is set on the renderer root on every change
	Attribute = "data-theme"
)

// Palette is the set of colors a theme renders with
type Palette struct {
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Accent  lipgloss.Color
	Border  lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

var palettes = map[Theme]Palette{
	Dark: {
		Text:    lipgloss.Color("#E6E6E6"),
		Muted:   lipgloss.Color("#888888"),
		Accent:  lipgloss.Color("#5B8DEF"),
		Border:  lipgloss.Color("#444444"),
		Success: lipgloss.Color("#4CAF50"),
		Warning: lipgloss.Color("#F5A623"),
		Error:   lipgloss.Color("#FF6B6B"),
	},
	Light: {
		Text:    lipgloss.Color("#1F1F1F"),
		Muted:   lipgloss.Color("#666666"),
		Accent:  lipgloss.Color("#1A56DB"),
		Border:  lipgloss.Color("#CCCCCC"),
		Success: lipgloss.Color("#2E7D32"),
		Warning: lipgloss.Color("#B26A00"),
		Error:   lipgloss.Color("#C62828"),
	},
}

// PaletteFor returns the palette of t, falling back to dark
func PaletteFor(t Theme) Palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[Dark]
}

// Valid reports whether t is a known theme
func (t Theme) Valid() bool {
	_, ok := palettes[t]
	return ok
}

// Root is the renderer the theme is applied to
type Root interface {
	SetAttribute(name, value string)
}

// Store owns the current theme
type Store struct {
	bridge *storage.Bridge
	root   Root
	log    zerolog.Logger

	mu          sync.Mutex
	current     Theme
	unsubscribe func()
}

// New loads the persisted theme (dark when absent or invalid) and applies
// it to root
func New(bridge *storage.Bridge, root Root, log zerolog.Logger) *Store {
	s := &Store{
		bridge: bridge,
		root:   root,
		log:    log.With().Str("component", "theme").Logger(),
	}
	s.current = s.load()
	s.root.SetAttribute(Attribute, string(s.current))
	s.unsubscribe = bridge.Subscribe(Key, func(string) { s.reload() })
	return s
}

// Close stops following changes from other processes
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Current returns the active theme
func (s *Store) Current() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Toggle flips between dark and light and returns the new theme
func (s *Store) Toggle() Theme {
	s.mu.Lock()
	next := Dark
	if s.current == Dark {
		next = Light
	}
	s.mu.Unlock()

	s.Set(next)
	return next
}

// Set persists t and applies it. Unknown themes are ignored.
func (s *Store) Set(t Theme) {
	if !t.Valid() {
		s.log.Warn().Str("theme", string(t)).Msg("Ignoring unknown theme")
		return
	}
	s.mu.Lock()
	s.current = t
	s.mu.Unlock()

	s.bridge.Write(Key, t)
	s.root.SetAttribute(Attribute, string(t))
}

func (s *Store) load() Theme {
	t := storage.Read(s.bridge, Key, Dark)
	if !t.Valid() {
		return Dark
	}
	return t
}

// reload applies a theme chosen in another process
func (s *Store) reload() {
	t := s.load()
	s.mu.Lock()
	s.current = t
	s.mu.Unlock()
	s.root.SetAttribute(Attribute, string(t))
	s.log.Debug().Str("theme", string(t)).Msg("Theme changed in another process")
}
