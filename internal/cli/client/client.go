package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinvest-dev/coinvest/internal/cli/auth"
	"github.com/coinvest-dev/coinvest/internal/models"
)

// LoginPath is exempt from the auth-failure signal: a 401 there means
// wrong credentials, not an ended session.
const LoginPath = "/auth/login"

// Client represents an HTTP client for the platform API. Credentials are
// the backend's session cookie, kept in a cookie jar and mirrored to a
// CookieStore. No CSRF token or header is ever injected.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	cookies    auth.CookieStore
	log        zerolog.Logger

	jar *sessionJar

	// authFailed is set by the first unexpected 401 and cleared by
	// ResetAuthFailure once logout completes.
	authFailed atomic.Bool

	listenersMu sync.Mutex
	listeners   map[int]func()
	nextID      int
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. Its Jar is replaced.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithCookieStore sets where the session cookie is persisted
func WithCookieStore(store auth.CookieStore) Option {
	return func(c *Client) { c.cookies = store }
}

// WithLogger sets the request logger
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a new API client for baseURL (e.g. https://host/api)
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q: scheme and host are required", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cookies:    auth.NewMemoryStore(),
		log:        zerolog.Nop(),
		listeners:  make(map[int]func()),
		jar:        &sessionJar{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("component", "http").Logger()
	// installed once; ClearSession and ReloadSession swap what it holds
	c.httpClient.Jar = c.jar

	if err := c.resetJar(true); err != nil {
		return nil, err
	}
	return c, nil
}

// BaseURL returns the configured API base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// resetJar installs a fresh cookie jar, optionally seeded from the store
func (c *Client) resetJar(seed bool) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if seed {
		stored, err := c.cookies.LoadCookies(c.baseURL.Host)
		switch {
		case err == nil:
			jar.SetCookies(c.baseURL, stored)
		case errors.Is(err, auth.ErrNoCredentials):
		default:
			c.log.Warn().Err(err).Msg("Failed to load stored session, starting without one")
		}
	}

	c.jar.swap(jar)
	return nil
}

// sessionJar is the http.Client's cookie jar. The jar it delegates to is
// replaced when the session is cleared or reloaded while requests may be
// in flight, so http.Client.Jar itself is never reassigned.
type sessionJar struct {
	mu    sync.Mutex
	inner *cookiejar.Jar
}

func (j *sessionJar) current() *cookiejar.Jar {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner
}

func (j *sessionJar) swap(inner *cookiejar.Jar) {
	j.mu.Lock()
	j.inner = inner
	j.mu.Unlock()
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if inner := j.current(); inner != nil {
		inner.SetCookies(u, cookies)
	}
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	if inner := j.current(); inner != nil {
		return inner.Cookies(u)
	}
	return nil
}

// ClearSession forgets the session cookie locally and in the store
func (c *Client) ClearSession() {
	if err := c.cookies.DeleteCookies(c.baseURL.Host); err != nil {
		c.log.Warn().Err(err).Msg("Failed to delete stored session")
	}
	if err := c.resetJar(false); err != nil {
		c.log.Error().Err(err).Msg("Failed to reset cookie jar")
	}
}

// ReloadSession re-reads the session cookie from the store, picking up
// a login performed by another process
func (c *Client) ReloadSession() {
	if err := c.resetJar(true); err != nil {
		c.log.Error().Err(err).Msg("Failed to reset cookie jar")
	}
}

// persistCookies mirrors the jar to the store after the backend set cookies
func (c *Client) persistCookies() {
	cookies := c.jar.Cookies(c.baseURL)

	var err error
	if len(cookies) == 0 {
		err = c.cookies.DeleteCookies(c.baseURL.Host)
	} else {
		err = c.cookies.SaveCookies(c.baseURL.Host, cookies)
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to persist session cookie")
	}
}

// OnAuthFailure registers fn to run when an unexpected 401 is observed.
// fn runs at most once per failure episode across all listeners' view of
// the flag (see ResetAuthFailure).
func (c *Client) OnAuthFailure(fn func()) (unsubscribe func()) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.listeners, id)
	}
}

// AuthFailurePending reports whether an auth failure was signalled and
// not yet reset
func (c *Client) AuthFailurePending() bool {
	return c.authFailed.Load()
}

// ResetAuthFailure re-arms failure detection for the next session
func (c *Client) ResetAuthFailure() {
	c.authFailed.Store(false)
}

func (c *Client) signalAuthFailure(method, path string) {
	if !c.authFailed.CompareAndSwap(false, true) {
		return
	}
	c.log.Warn().Str("method", method).Str("path", path).Msg("Session rejected by backend, signalling logout")

	c.listenersMu.Lock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// do sends one request and decodes the envelope. When out is non-nil the
// envelope's data is decoded into it.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) (*models.Envelope, error) {
	target := *c.baseURL
	target.Path = c.baseURL.Path + path
	if len(params) > 0 {
		target.RawQuery = params.Encode()
	}
	fullURL := target.String()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, &APIError{Kind: KindDecode, Method: method, Path: path, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
	}

	c.log.Debug().
		Str("method", method).
		Str("url", fullURL).
		Str("params", params.Encode()).
		RawJSON("body", rawOrNull(payload)).
		Msg("HTTP request")

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &APIError{Kind: KindTransport, Method: method, Path: path, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Str("url", fullURL).Msg("HTTP request failed")
		return nil, &APIError{Kind: KindTransport, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	if len(resp.Cookies()) > 0 {
		c.persistCookies()
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error().Err(err).Int("status", resp.StatusCode).Str("url", fullURL).Msg("Failed to read response")
		return nil, &APIError{Kind: KindTransport, Status: resp.StatusCode, Method: method, Path: path, Err: err}
	}

	var env models.Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 400 {
		c.log.Warn().Int("status", resp.StatusCode).Str("method", method).Str("url", fullURL).Str("message", env.Message).Msg("HTTP error response")
		if resp.StatusCode == http.StatusUnauthorized && path != LoginPath {
			c.signalAuthFailure(method, path)
		}
		return &env, &APIError{
			Kind:    kindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Method:  method,
			Path:    path,
			Message: env.Message,
			Errors:  env.Errors,
		}
	}

	c.log.Debug().Int("status", resp.StatusCode).Str("method", method).Str("url", fullURL).Msg("HTTP response")

	if decodeErr != nil {
		return nil, &APIError{Kind: KindDecode, Status: resp.StatusCode, Method: method, Path: path, Err: fmt.Errorf("failed to decode response: %w", decodeErr)}
	}
	if !env.Success {
		return &env, &APIError{
			Kind:    KindRejected,
			Status:  resp.StatusCode,
			Method:  method,
			Path:    path,
			Message: env.Message,
			Errors:  env.Errors,
		}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &env, &APIError{Kind: KindDecode, Status: resp.StatusCode, Method: method, Path: path, Err: fmt.Errorf("failed to decode data: %w", err)}
		}
	}
	return &env, nil
}

func rawOrNull(b []byte) []byte {
	if len(b) == 0 {
		return []byte("null")
	}
	return b
}
