// Package auth persists the backend session cookie in the OS
// keychain/credential manager so a login survives process restarts.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keychain service name used when none is configured
const DefaultService = "coinvest-cli"

// ErrNoCredentials is returned when no session cookie is stored for a host
var ErrNoCredentials = errors.New("no stored session")

// CookieStore defines the credential storage operations.
// This allows us to swap the keyring for an in-memory fake in tests.
type CookieStore interface {
	SaveCookies(host string, cookies []*http.Cookie) error
	LoadCookies(host string) ([]*http.Cookie, error)
	DeleteCookies(host string) error
}

// storedCookie is the persisted subset of http.Cookie
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"httpOnly,omitempty"`
}

// KeyringStore implements CookieStore using the OS keyring
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a keyring-backed store under service
func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = DefaultService
	}
	return &KeyringStore{service: service}
}

// Available probes the keyring. A missing entry counts as available.
func (k *KeyringStore) Available() error {
	_, err := keyring.Get(k.service, keyringKey("probe"))
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("keyring unavailable: %w", err)
}

// keyringKey returns a unique key for storing cookies per backend host
func keyringKey(host string) string {
	return fmt.Sprintf("session-%s", host)
}

// SaveCookies persists the cookies for host, replacing any previous set
func (k *KeyringStore) SaveCookies(host string, cookies []*http.Cookie) error {
	data, err := encodeCookies(cookies)
	if err != nil {
		return err
	}
	if err := keyring.Set(k.service, keyringKey(host), data); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadCookies retrieves the cookies for host
func (k *KeyringStore) LoadCookies(host string) ([]*http.Cookie, error) {
	data, err := keyring.Get(k.service, keyringKey(host))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return decodeCookies(data)
}

// DeleteCookies removes the cookies for host
func (k *KeyringStore) DeleteCookies(host string) error {
	if err := keyring.Delete(k.service, keyringKey(host)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func encodeCookies(cookies []*http.Cookie) (string, error) {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	return string(data), nil
}

func decodeCookies(data string) ([]*http.Cookie, error) {
	var stored []storedCookie
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		cookies = append(cookies, &http.Cookie{
			Name:     s.Name,
			Value:    s.Value,
			Path:     s.Path,
			Domain:   s.Domain,
			Expires:  s.Expires,
			Secure:   s.Secure,
			HttpOnly: s.HttpOnly,
		})
	}
	return cookies, nil
}
