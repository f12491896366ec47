package app

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinvest-dev/coinvest/internal/cli/auth"
	"github.com/coinvest-dev/coinvest/internal/cli/guard"
	"github.com/coinvest-dev/coinvest/internal/cli/notify"
	"github.com/coinvest-dev/coinvest/internal/cli/routes"
	"github.com/coinvest-dev/coinvest/internal/cli/session"
	"github.com/coinvest-dev/coinvest/internal/cli/storage"
	"github.com/coinvest-dev/coinvest/internal/config"
	"github.com/coinvest-dev/coinvest/internal/models"
)

func newTestApp(t *testing.T, user *models.User) *App {
	t.Helper()
	backend := storage.NewMemoryBackend()
	if user != nil {
		storage.NewBridge(backend, zerolog.Nop()).Write(session.UserKey, user)
	}

	cfg := &config.Config{}
	cfg.API.BaseURL = "http://127.0.0.1:1/api"
	cfg.API.Timeout = time.Second
	cfg.Storage.PollInterval = time.Second
	cfg.Notifications.TTL = time.Minute
	cfg.Notifications.MaxActive = 10
	cfg.Notifications.PollInterval = time.Hour

	log := zerolog.Nop()
	a, err := New(Options{
		Config:  cfg,
		Out:     &bytes.Buffer{},
		ErrOut:  &bytes.Buffer{},
		Logger:  &log,
		Storage: backend,
		Cookies: auth.NewMemoryStore(),
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestEnter_PublicRouteNavigates(t *testing.T) {
	a := newTestApp(t, nil)

	require.NoError(t, a.Enter(routes.Plans))
	assert.Equal(t, routes.Plans, a.Nav.Current())
}

func TestEnter_AnonymousRemembersReturnPath(t *testing.T) {
	a := newTestApp(t, nil)

	err := a.Enter(routes.Withdrawals)
	var redirect *guard.RedirectError
	require.ErrorAs(t, err, &redirect)
	assert.Equal(t, "/login?from=%2Fdashboard%2Fwithdrawals", a.Nav.Current())
	assert.Equal(t, routes.Withdrawals, a.ReturnTo())

	// the login page's own from parameter takes precedence
	require.NoError(t, a.Enter(routes.Login))
	a.Nav.Navigate(guard.LoginLocation(routes.Profile))
	assert.Equal(t, routes.Profile, a.ReturnTo())

	a.ForgetReturnTo()
	a.Nav.Navigate(routes.Login)
	assert.Empty(t, a.ReturnTo())
}

func TestEnter_RoleMismatchDoesNotRememberPath(t *testing.T) {
	a := newTestApp(t, &models.User{ID: "u1", Email: "ivy@example.com", Role: models.RoleInvestor})

	require.NoError(t, a.Enter(routes.Investments))

	err := a.Enter(routes.AdminUsers)
	var redirect *guard.RedirectError
	require.ErrorAs(t, err, &redirect)
	assert.Equal(t, routes.UserDashboard, a.Nav.Current())
	assert.Empty(t, a.ReturnTo())
}

func TestNotify_UsesConfiguredTTL(t *testing.T) {
	a := newTestApp(t, nil)

	id := a.Notify("Saved", notify.Success)
	require.NotEmpty(t, id)
	toasts := a.Toasts.List()
	require.Len(t, toasts, 1)
	assert.Equal(t, time.Minute, toasts[0].TTL)
}
