// Package notify is the transient toast queue shown by the terminal UI
package notify

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Severity of a toast
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

const (
	// DefaultTTL applies when Add is given no ttl
	DefaultTTL = 5 * time.Second
	// DefaultMaxActive bounds the queue
	DefaultMaxActive = 50
)

// Toast is one queued message
type Toast struct {
	ID       string
	Message  string
	Severity Severity
	TTL      time.Duration
}

// Store is a bounded, self-expiring, insertion-ordered toast queue. It is
// not persisted.
type Store struct {
	mu        sync.Mutex
	toasts    []Toast
	timers    map[string]*time.Timer
	maxActive int
	entropy   *ulid.MonotonicEntropy

	subs   map[int]func([]Toast)
	nextID int
}

// New creates a store holding at most maxActive toasts; older ones are
// dropped first. maxActive <= 0 uses DefaultMaxActive.
func New(maxActive int) *Store {
	if maxActive <= 0 {
		maxActive = DefaultMaxActive
	}
	return &Store{
		timers:    make(map[string]*time.Timer),
		maxActive: maxActive,
		entropy:   ulid.Monotonic(rand.Reader, 0),
		subs:      make(map[int]func([]Toast)),
	}
}

// Add queues a toast and returns its id. An empty severity means Info and
// a zero ttl means DefaultTTL; a negative ttl never expires.
func (s *Store) Add(message string, severity Severity, ttl time.Duration) string {
	if severity == "" {
		severity = Info
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	id := ulid.MustNew(ulid.Now(), s.entropy).String()
	s.toasts = append(s.toasts, Toast{ID: id, Message: message, Severity: severity, TTL: ttl})
	for len(s.toasts) > s.maxActive {
		s.stopTimer(s.toasts[0].ID)
		s.toasts = s.toasts[1:]
	}
	if ttl > 0 {
		s.timers[id] = time.AfterFunc(ttl, func() { s.Remove(id) })
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return id
}

// Remove deletes the toast with id; unknown ids are ignored
func (s *Store) Remove(id string) {
	s.mu.Lock()
	idx := -1
	for i, t := range s.toasts {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.stopTimer(id)
	s.toasts = append(s.toasts[:idx], s.toasts[idx+1:]...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
}

// List returns the queued toasts oldest first
func (s *Store) List() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive the queue after every change
func (s *Store) Subscribe(fn func([]Toast)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Close stops every pending expiry
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.timers {
		s.stopTimer(id)
	}
}

func (s *Store) stopTimer(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Store) snapshotLocked() []Toast {
	return append([]Toast(nil), s.toasts...)
}

func (s *Store) notify(snapshot []Toast) {
	s.mu.Lock()
	fns := make([]func([]Toast), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snapshot)
	}
}
