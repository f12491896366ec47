package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinvest-dev/coinvest/internal/cli/auth"
	"github.com/coinvest-dev/coinvest/internal/models"
)

func writeEnvelope(t *testing.T, w http.ResponseWriter, status int, env map[string]interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(env))
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	c, err := New(srv.URL+"/api", opts...)
	require.NoError(t, err)
	return c
}

func TestLogin_401DoesNotSignalAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		writeEnvelope(t, w, http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Invalid credentials",
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	signals := 0
	c.OnAuthFailure(func() { signals++ })

	_, err := c.Login(context.Background(), "user@example.com", "wrongpass")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnauthorized))
	assert.Equal(t, "Invalid credentials", ErrorMessage(err, "Login failed"))
	assert.Zero(t, signals)
	assert.False(t, c.AuthFailurePending())
}

func TestUnauthorized_SignalsOnceForConcurrentFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Session expired",
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	var signals atomic.Int32
	c.OnAuthFailure(func() { signals.Add(1) })

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.UnreadCount(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), signals.Load())
	for _, err := range errs {
		require.Error(t, err, "callers still see the failure")
		assert.True(t, IsSessionEnded(err))
	}

	// Still flagged: another failure does not signal again
	_, _ = c.ListInvestments(context.Background())
	assert.Equal(t, int32(1), signals.Load())

	c.ResetAuthFailure()
	_, _ = c.ListInvestments(context.Background())
	assert.Equal(t, int32(2), signals.Load())
}

func TestUnsubscribedListenerIsNotCalled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	called := false
	unsubscribe := c.OnAuthFailure(func() { called = true })
	unsubscribe()

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.False(t, called)
	assert.True(t, c.AuthFailurePending())
}

func TestEnvelopeHandling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/plans":
			writeEnvelope(t, w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data": []map[string]interface{}{
					{"id": "p1", "name": "Starter", "minAmount": 100, "dailyRate": 1.5, "durationDays": 30, "isActive": true},
				},
			})
		case "/api/withdrawals":
			writeEnvelope(t, w, http.StatusOK, map[string]interface{}{
				"success": false,
				"message": "Insufficient balance",
			})
		case "/api/investments":
			writeEnvelope(t, w, http.StatusUnprocessableEntity, map[string]interface{}{
				"success": false,
				"errors":  []map[string]string{{"field": "amount", "message": "Amount is below the plan minimum"}},
			})
		default:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("<html>oops</html>"))
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx := context.Background()

	plans, err := c.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "Starter", plans[0].Name)
	assert.Equal(t, 1.5, plans[0].DailyRate)

	_, err = c.CreateWithdrawal(ctx, CreateWithdrawalRequest{Amount: 10})
	assert.True(t, IsKind(err, KindRejected))
	assert.Equal(t, "Insufficient balance", ErrorMessage(err, "fallback"))

	_, err = c.CreateInvestment(ctx, CreateInvestmentRequest{PlanID: "p1", Amount: 1})
	assert.True(t, IsKind(err, KindValidation))
	assert.Equal(t, "Amount is below the plan minimum", ErrorMessage(err, "fallback"))

	_, err = c.AdminAnalytics(ctx)
	assert.True(t, IsKind(err, KindServer))
	assert.Equal(t, "fallback", ErrorMessage(err, "fallback"))
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := newTestClient(t, srv)
	srv.Close()

	signals := 0
	c.OnAuthFailure(func() { signals++ })

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTransport))
	assert.Equal(t, TransportMessage, ErrorMessage(err, "fallback"))
	assert.Zero(t, signals)
}

func TestErrorMessage_NonAPIError(t *testing.T) {
	assert.Equal(t, "", ErrorMessage(nil, "x"))
	assert.Equal(t, "Something went wrong", ErrorMessage(errors.New("boom"), "Something went wrong"))
}

func TestSessionCookiePersistsAcrossClients(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("X-XSRF-TOKEN"))
		assert.Empty(t, r.Header.Get("X-CSRF-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		switch r.URL.Path {
		case "/api/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "session-1", Path: "/"})
			writeEnvelope(t, w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data":    map[string]interface{}{"user": map[string]interface{}{"id": "u1", "email": "a@b.c", "role": "Investor"}},
			})
		case "/api/auth/me":
			cookie, err := r.Cookie("sid")
			if err != nil || cookie.Value != "session-1" {
				writeEnvelope(t, w, http.StatusUnauthorized, map[string]interface{}{"success": false})
				return
			}
			writeEnvelope(t, w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data":    map[string]interface{}{"user": map[string]interface{}{"id": "u1", "email": "a@b.c", "role": "Investor"}},
			})
		case "/api/auth/logout":
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "", Path: "/", MaxAge: -1})
			writeEnvelope(t, w, http.StatusOK, map[string]interface{}{"success": true})
		}
	}))
	defer srv.Close()

	store := auth.NewMemoryStore()
	first := newTestClient(t, srv, WithCookieStore(store))

	user, err := first.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, models.RoleInvestor, user.Role)

	second := newTestClient(t, srv, WithCookieStore(store))
	me, err := second.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", me.ID)

	require.NoError(t, second.Logout(context.Background()))
	third := newTestClient(t, srv, WithCookieStore(store))
	_, err = third.Me(context.Background())
	assert.True(t, IsKind(err, KindUnauthorized))
}

func TestClearSession(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	store := auth.NewMemoryStore()
	c := newTestClient(t, srv, WithCookieStore(store))
	require.NoError(t, store.SaveCookies(c.baseURL.Host, []*http.Cookie{{Name: "sid", Value: "x"}}))

	c.ClearSession()
	_, err := store.LoadCookies(c.baseURL.Host)
	assert.ErrorIs(t, err, auth.ErrNoCredentials)
}

func TestSessionSwapDuringInFlightRequests(t *testing.T) {
	const inFlight = 20
	var arrived sync.WaitGroup
	arrived.Add(inFlight)
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users/notifications/unread-count":
			arrived.Done()
			<-release
			writeEnvelope(t, w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]int{"count": 1}})
		case "/api/auth/me":
			cookie, err := r.Cookie("sid")
			if err != nil || cookie.Value != "session-2" {
				writeEnvelope(t, w, http.StatusUnauthorized, map[string]interface{}{"success": false})
				return
			}
			writeEnvelope(t, w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data":    map[string]interface{}{"user": map[string]interface{}{"id": "u1", "role": "Investor"}},
			})
		}
	}))
	defer srv.Close()

	store := auth.NewMemoryStore()
	c := newTestClient(t, srv, WithCookieStore(store))
	require.NoError(t, store.SaveCookies(c.baseURL.Host, []*http.Cookie{{Name: "sid", Value: "session-1"}}))
	c.ReloadSession()
	installed := c.httpClient.Jar

	errs := make(chan error, inFlight)
	var requests sync.WaitGroup
	for i := 0; i < inFlight; i++ {
		requests.Add(1)
		go func() {
			defer requests.Done()
			_, err := c.UnreadCount(context.Background())
			errs <- err
		}()
	}
	arrived.Wait()

	// another process logs out and back in while every request is open
	var swaps sync.WaitGroup
	for i := 0; i < 10; i++ {
		swaps.Add(2)
		go func() {
			defer swaps.Done()
			c.ClearSession()
		}()
		go func() {
			defer swaps.Done()
			c.ReloadSession()
		}()
	}
	swaps.Wait()
	close(release)
	requests.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Same(t, installed, c.httpClient.Jar, "the client's jar is never replaced")

	require.NoError(t, store.SaveCookies(c.baseURL.Host, []*http.Cookie{{Name: "sid", Value: "session-2"}}))
	c.ReloadSession()
	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", me.ID)

	c.ClearSession()
	_, err = c.Me(context.Background())
	assert.True(t, IsKind(err, KindUnauthorized))
}

func TestRequestsAreLoggedAtDebug(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]int{"count": 3}})
	}))
	defer srv.Close()

	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	c := newTestClient(t, srv, WithLogger(log))

	count, err := c.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	out := buf.String()
	assert.Contains(t, out, `"method":"GET"`)
	assert.Contains(t, out, "/api/users/notifications/unread-count")
	assert.Contains(t, out, `"status":200`)
}

func TestNew_RejectsInvalidBaseURL(t *testing.T) {
	_, err := New("localhost")
	assert.Error(t, err)
}
