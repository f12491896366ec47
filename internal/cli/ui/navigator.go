package ui

import (
	"sync"

	"github.com/coinvest-dev/coinvest/internal/cli/routes"
)

// Navigator tracks the route the client is on. Commands do not move
// between screens, so a navigation is recorded and announced.
type Navigator struct {
	mu        sync.Mutex
	current   string
	history   []string
	listeners []func(path string)
}

// NewNavigator starts at start
func NewNavigator(start string) *Navigator {
	start = routes.Clean(start)
	return &Navigator{current: start, history: []string{start}}
}

// Navigate moves to path
func (n *Navigator) Navigate(path string) {
	n.mu.Lock()
	n.current = path
	n.history = append(n.history, path)
	fns := append([]func(string){}, n.listeners...)
	n.mu.Unlock()

	for _, fn := range fns {
		fn(path)
	}
}

// Current returns the current location
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// History returns every location visited, oldest first
func (n *Navigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.history...)
}

// OnNavigate registers fn to run after every navigation
func (n *Navigator) OnNavigate(fn func(path string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}
