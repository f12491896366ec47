// Package session holds the client's belief about who is logged in.
//
// The Store is a small state machine (anonymous, authenticating,
// authenticated, error) over a persisted user record. Every change of the
// user is written through to the key-value bridge, and changes made by
// other client processes are picked up from it. An unexpected 401 seen by
// the HTTP client ends the session through a single idempotent logout.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/coinvest-dev/coinvest/internal/cli/client"
	"github.com/coinvest-dev/coinvest/internal/cli/routes"
	"github.com/coinvest-dev/coinvest/internal/cli/storage"
	"github.com/coinvest-dev/coinvest/internal/models"
)

const (
	// UserKey holds the authenticated user record
	UserKey = "user"
	// ChatHistoryPrefix and SeenBroadcastsPrefix start the per-user cache
	// keys purged on logout.
	ChatHistoryPrefix    = "chat-history:"
	SeenBroadcastsPrefix = "seen-broadcasts:"
)

const (
	genericLoginError    = "Login failed. Please try again."
	genericRegisterError = "Registration failed. Please try again."
)

// State is a snapshot of the session
type State struct {
	User            *models.User
	IsAuthenticated bool
	IsLoading       bool
	AuthError       string
}

// Backend is the subset of the API the store drives
type Backend interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, req client.RegisterRequest) (*client.RegisterResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
}

// AuthFailures is the HTTP client's auth-failure signal and flag
type AuthFailures interface {
	OnAuthFailure(fn func()) (unsubscribe func())
	AuthFailurePending() bool
	ResetAuthFailure()
}

// sessionClearer is implemented by backends that hold local credentials
type sessionClearer interface {
	ClearSession()
}

// sessionReloader is implemented by backends whose credentials another
// process may have replaced
type sessionReloader interface {
	ReloadSession()
}

// Navigator moves the UI to a route path
type Navigator interface {
	Navigate(path string)
}

// Error is returned by Login and Register. Its message is the most
// specific one available and is what forms display inline.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// Store is the session state machine
type Store struct {
	backend  Backend
	failures AuthFailures
	bridge   *storage.Bridge
	nav      Navigator
	log      zerolog.Logger

	mu             sync.Mutex
	state          State
	subs           map[int]func(State)
	nextID         int
	logoutInFlight chan struct{}

	unsubscribe []func()
}

// New creates a store in the loading state. Call Bootstrap to load the
// persisted user.
func New(backend Backend, failures AuthFailures, bridge *storage.Bridge, nav Navigator, log zerolog.Logger) *Store {
	s := &Store{
		backend:  backend,
		failures: failures,
		bridge:   bridge,
		nav:      nav,
		log:      log.With().Str("component", "session").Logger(),
		state:    State{IsLoading: true},
		subs:     make(map[int]func(State)),
	}
	s.unsubscribe = append(s.unsubscribe,
		failures.OnAuthFailure(s.handleAuthFailure),
		bridge.Subscribe(UserKey, s.handleExternalChange),
	)
	return s
}

// Close detaches the store from the HTTP client and storage
func (s *Store) Close() {
	for _, fn := range s.unsubscribe {
		fn()
	}
	s.unsubscribe = nil
}

// State returns the current snapshot
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to receive every new state
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
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

// update applies mutate under the lock, re-derives IsAuthenticated and
// notifies subscribers with the resulting snapshot.
func (s *Store) update(mutate func(st *State)) State {
	s.mu.Lock()
	mutate(&s.state)
	s.state.IsAuthenticated = s.state.User != nil
	snapshot := s.state
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
	return snapshot
}

// Bootstrap loads the persisted user and leaves the loading state
func (s *Store) Bootstrap() State {
	user := storage.Read[*models.User](s.bridge, UserKey, nil)
	st := s.update(func(st *State) {
		st.User = user
		st.IsLoading = false
	})
	if st.IsAuthenticated {
		s.log.Debug().Str("user_id", user.ID).Msg("Restored persisted session")
	}
	return st
}

// LoginOption customizes Login
type LoginOption func(*loginOptions)

type loginOptions struct {
	from string
}

// WithReturnTo passes the path the user was redirected away from
func WithReturnTo(from string) LoginOption {
	return func(o *loginOptions) { o.from = from }
}

// Login authenticates, persists the user and navigates to the role's
// target page. On failure AuthError is set, the prior user is kept and
// the error is returned for inline display.
func (s *Store) Login(ctx context.Context, email, password string, opts ...LoginOption) (*models.User, error) {
	var o loginOptions
	for _, opt := range opts {
		opt(&o)
	}

	s.update(func(st *State) {
		st.IsLoading = true
		st.AuthError = ""
	})

	user, err := s.backend.Login(ctx, email, password)
	if err != nil {
		msg := client.ErrorMessage(err, genericLoginError)
		s.update(func(st *State) {
			st.IsLoading = false
			st.AuthError = msg
		})
		s.log.Info().Err(err).Str("email", email).Msg("Login failed")
		return nil, &Error{Op: "login", Message: msg, Err: err}
	}

	s.bridge.Write(UserKey, user)
	s.failures.ResetAuthFailure()
	s.update(func(st *State) {
		st.User = user
		st.IsLoading = false
		st.AuthError = ""
	})
	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("Logged in")

	s.nav.Navigate(routes.PostLoginTarget(user, o.from))
	return user, nil
}

// Register creates an account without logging in; the caller moves on to
// email verification.
func (s *Store) Register(ctx context.Context, req client.RegisterRequest) (*client.RegisterResult, error) {
	s.update(func(st *State) {
		st.IsLoading = true
		st.AuthError = ""
	})

	res, err := s.backend.Register(ctx, req)
	if err != nil {
		msg := client.ErrorMessage(err, genericRegisterError)
		s.update(func(st *State) {
			st.IsLoading = false
			st.AuthError = msg
		})
		return nil, &Error{Op: "register", Message: msg, Err: err}
	}

	s.update(func(st *State) { st.IsLoading = false })
	return res, nil
}

// Logout ends the session locally regardless of whether the backend call
// succeeds. Concurrent calls collapse into one; latecomers wait for it.
func (s *Store) Logout(ctx context.Context, shouldRedirect bool) {
	s.logout(ctx, shouldRedirect, true)
}

func (s *Store) logout(ctx context.Context, shouldRedirect, joinInFlight bool) {
	s.mu.Lock()
	if inFlight := s.logoutInFlight; inFlight != nil {
		s.mu.Unlock()
		if joinInFlight {
			<-inFlight
		}
		return
	}
	done := make(chan struct{})
	s.logoutInFlight = done
	s.mu.Unlock()

	var userID string
	s.update(func(st *State) {
		st.IsLoading = true
		if st.User != nil {
			userID = st.User.ID
		}
	})

	if err := s.backend.Logout(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Backend logout failed, clearing local session anyway")
	}
	if c, ok := s.backend.(sessionClearer); ok {
		c.ClearSession()
	}

	s.bridge.Remove(UserKey)
	purged := s.bridge.RemovePrefix(ChatHistoryPrefix, SeenBroadcastsPrefix)

	s.update(func(st *State) {
		st.User = nil
		st.IsLoading = false
		st.AuthError = ""
	})
	s.log.Info().Str("user_id", userID).Int("purged_keys", purged).Msg("Logged out")

	s.mu.Lock()
	s.logoutInFlight = nil
	s.mu.Unlock()
	// re-armed only once the session is gone: a 401 from a request of the
	// ended session that lands earlier belongs to this episode
	s.failures.ResetAuthFailure()
	close(done)

	if shouldRedirect {
		s.nav.Navigate(routes.Login)
	}
}

// FetchAndUpdateUser refreshes the user from the backend. A 401/403 ends
// the session; any other failure is logged and leaves the state alone.
func (s *Store) FetchAndUpdateUser(ctx context.Context) error {
	if !s.State().IsAuthenticated {
		return nil
	}

	user, err := s.backend.Me(ctx)
	if err != nil {
		if client.IsSessionEnded(err) {
			// a 401 has usually been handled by the auth-failure signal already
			if s.State().IsAuthenticated {
				s.Logout(ctx, true)
			}
			return err
		}
		s.log.Warn().Err(err).Msg("Failed to refresh user")
		return err
	}

	s.bridge.Write(UserKey, user)
	s.update(func(st *State) { st.User = user })
	return nil
}

// handleAuthFailure reacts to the HTTP client's signal. It acts only for
// a pending failure and never joins a logout already running, which may
// be the very call that produced the 401; that logout re-arms the flag
// when it finishes.
func (s *Store) handleAuthFailure() {
	if !s.failures.AuthFailurePending() {
		return
	}
	s.mu.Lock()
	inFlight := s.logoutInFlight != nil
	idle := s.state.User == nil && !inFlight
	s.mu.Unlock()
	switch {
	case inFlight:
		return
	case idle:
		// no session left to end
		s.failures.ResetAuthFailure()
		return
	}
	s.log.Info().Msg("Session ended by backend")
	s.logout(context.Background(), true, false)
}

// handleExternalChange re-reads the user after another process wrote it
func (s *Store) handleExternalChange(string) {
	user := storage.Read[*models.User](s.bridge, UserKey, nil)
	st := s.update(func(st *State) { st.User = user })
	if st.IsAuthenticated {
		if r, ok := s.backend.(sessionReloader); ok {
			r.ReloadSession()
		}
		// a new session detects its own failures
		s.failures.ResetAuthFailure()
	} else if c, ok := s.backend.(sessionClearer); ok {
		c.ClearSession()
	}
	s.log.Debug().Bool("authenticated", st.IsAuthenticated).Msg("Session changed in another process")
}
