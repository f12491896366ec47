package auth

import (
	"net/http"
	"sync"
)

// MemoryStore is an in-process CookieStore used by tests and when the OS
// keyring is unavailable.
type MemoryStore struct {
	mu      sync.Mutex
	cookies map[string][]*http.Cookie
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cookies: make(map[string][]*http.Cookie)}
}

func (m *MemoryStore) SaveCookies(host string, cookies []*http.Cookie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cookies[host] = append([]*http.Cookie(nil), cookies...)
	return nil
}

func (m *MemoryStore) LoadCookies(host string) ([]*http.Cookie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cookies, ok := m.cookies[host]
	if !ok {
		return nil, ErrNoCredentials
	}
	return append([]*http.Cookie(nil), cookies...), nil
}

func (m *MemoryStore) DeleteCookies(host string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cookies, host)
	return nil
}
