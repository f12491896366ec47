package storage

import (
	"sort"
	"strings"
	"sync"
)

// MemoryBackend keeps entries in process memory. It backs tests and the
// in-memory-only mode used when the on-disk store cannot be opened.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]Entry
	closed  bool
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]Entry)}
}

func (m *MemoryBackend) Get(key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Entry{}, false, ErrClosed
	}
	e, ok := m.entries[key]
	if !ok || e.Deleted {
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (m *MemoryBackend) Put(key string, value []byte, writer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	e := m.entries[key]
	m.entries[key] = Entry{
		Key:      key,
		Value:    append([]byte(nil), value...),
		Writer:   writer,
		Revision: e.Revision + 1,
	}
	return nil
}

func (m *MemoryBackend) Delete(key, writer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	e, ok := m.entries[key]
	if !ok || e.Deleted {
		return nil
	}
	m.entries[key] = Entry{Key: key, Writer: writer, Revision: e.Revision + 1, Deleted: true}
	return nil
}

func (m *MemoryBackend) List(prefix string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]Entry, 0, len(m.entries))
	for k, e := range m.entries {
		if strings.HasPrefix(k, prefix) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
