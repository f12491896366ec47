package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinvest-dev/coinvest/internal/cli/app"
	"github.com/coinvest-dev/coinvest/internal/cli/auth"
	"github.com/coinvest-dev/coinvest/internal/cli/guard"
	"github.com/coinvest-dev/coinvest/internal/cli/routes"
	"github.com/coinvest-dev/coinvest/internal/cli/storage"
	"github.com/coinvest-dev/coinvest/internal/config"
	"github.com/coinvest-dev/coinvest/internal/mockapi"
	"github.com/coinvest-dev/coinvest/internal/models"
)

const (
	investorEmail = "investor@coinvest.test"
	investorPass  = "InvestPass1"
	adminEmail    = "admin@coinvest.test"
	adminPass     = "AdminPass1"
	payoutAddress = "bc1qpayoutaddress0000000000000"
)

// scriptedPrompter answers prompts from queues
type scriptedPrompter struct {
	inputs    []string
	passwords []string
	selects   []int
}

var errNoAnswer = errors.New("no scripted answer")

func (p *scriptedPrompter) Input(string) (string, error) {
	if len(p.inputs) == 0 {
		return "", errNoAnswer
	}
	v := p.inputs[0]
	p.inputs = p.inputs[1:]
	return v, nil
}

func (p *scriptedPrompter) Password(string) (string, error) {
	if len(p.passwords) == 0 {
		return "", errNoAnswer
	}
	v := p.passwords[0]
	p.passwords = p.passwords[1:]
	return v, nil
}

func (p *scriptedPrompter) Select(_ string, items []string) (int, error) {
	if len(p.selects) == 0 {
		return 0, errNoAnswer
	}
	i := p.selects[0]
	p.selects = p.selects[1:]
	if i >= len(items) {
		return 0, errNoAnswer
	}
	return i, nil
}

// persistentBackend outlives each command, like the state file on disk
type persistentBackend struct {
	storage.Backend
}

func (persistentBackend) Close() error { return nil }

// harness runs commands as separate processes sharing one state store,
// one credential store and one backend
type harness struct {
	t        *testing.T
	srv      *mockapi.Server
	cfg      *config.Config
	state    storage.Backend
	cookies  auth.CookieStore
	prompter *scriptedPrompter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	seed, err := mockapi.DefaultSeed()
	require.NoError(t, err)
	srv, err := mockapi.New(&config.MockAPIConfig{
		DatabaseURL: ":memory:",
		CookieName:  "coinvest_session",
		SessionTTL:  time.Hour,
	}, seed, zerolog.Nop())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	cfg := &config.Config{Env: "development"}
	cfg.API.BaseURL = ts.URL + "/api"
	cfg.API.Timeout = 5 * time.Second
	cfg.Storage.PollInterval = time.Second
	cfg.Notifications.TTL = time.Minute
	cfg.Notifications.MaxActive = 50
	cfg.Notifications.PollInterval = time.Hour

	return &harness{
		t:        t,
		srv:      srv,
		cfg:      cfg,
		state:    persistentBackend{storage.NewMemoryBackend()},
		cookies:  auth.NewMemoryStore(),
		prompter: &scriptedPrompter{},
	}
}

// run executes one command line and returns stdout and stderr
func (h *harness) run(args ...string) (string, string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	log := zerolog.Nop()
	rt := &Runtime{Options: app.Options{
		Config:   h.cfg,
		Out:      &out,
		ErrOut:   &errOut,
		Logger:   &log,
		Storage:  h.state,
		Cookies:  h.cookies,
		Prompter: h.prompter,
	}}

	root := &cobra.Command{Use: "coinvest", SilenceUsage: true, SilenceErrors: true}
	rt.BindFlags(root)
	AddAll(root, rt)
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)

	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func (h *harness) login(email, password string) {
	h.t.Helper()
	_, _, err := h.run("login", "--email", email, "--password", password)
	require.NoError(h.t, err)
}

func TestLogin_LandsOnRoleHome(t *testing.T) {
	h := newHarness(t)

	out, errOut, err := h.run("login", "--email", investorEmail, "--password", investorPass)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as investor@coinvest.test (Investor)")
	assert.Contains(t, errOut, "coinvest dashboard")

	out, _, err = h.run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Ivy Investor <investor@coinvest.test> (Investor)")

	out, _, err = h.run("login", "--email", adminEmail, "--password", adminPass)
	require.NoError(t, err)
	assert.Contains(t, out, "(Admin)")

	out, _, err = h.run("whoami", "-o", "json")
	require.NoError(t, err)
	var user models.User
	require.NoError(t, json.Unmarshal([]byte(out), &user))
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestLogin_PromptsForMissingCredentials(t *testing.T) {
	h := newHarness(t)
	h.prompter.inputs = []string{investorEmail}
	h.prompter.passwords = []string{investorPass}

	out, _, err := h.run("login")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as investor@coinvest.test")
}

func TestLogin_FieldErrorsAreInline(t *testing.T) {
	h := newHarness(t)

	_, errOut, err := h.run("login", "--email", "not-an-email", "--password", "x")
	assert.ErrorIs(t, err, errInvalidInput)
	assert.Contains(t, errOut, "email:")

	_, errOut, err = h.run("login", "--email", investorEmail, "--password", "wrong")
	require.Error(t, err)
	assert.Contains(t, errOut, "Invalid credentials")
}

func TestGuard_AnonymousIsSentToLoginAndBack(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("investments")
	var redirect *guard.RedirectError
	require.ErrorAs(t, err, &redirect)
	assert.Equal(t, routes.Login, redirect.Decision.To)
	assert.Equal(t, routes.Investments, redirect.Decision.From)
	assert.Empty(t, out, "nothing is rendered on redirect")
	assert.Contains(t, err.Error(), "coinvest login")

	// the next login returns to the page the user was bounced from
	_, errOut, err := h.run("login", "--email", investorEmail, "--password", investorPass)
	require.NoError(t, err)
	assert.Contains(t, errOut, "coinvest investments")

	// consumed by that login
	h.run("logout")
	_, errOut, err = h.run("login", "--email", investorEmail, "--password", investorPass)
	require.NoError(t, err)
	assert.Contains(t, errOut, "coinvest dashboard")
}

func TestGuard_InvestorCannotRunAdminCommands(t *testing.T) {
	h := newHarness(t)
	h.login(investorEmail, investorPass)

	_, _, err := h.run("admin", "analytics")
	var redirect *guard.RedirectError
	require.ErrorAs(t, err, &redirect)
	assert.Equal(t, routes.UserDashboard, redirect.Decision.To)
	assert.Equal(t, "access denied: redirected to /dashboard", err.Error())
}

func TestPublicCommandsNeedNoSession(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("plans")
	require.NoError(t, err)
	assert.Contains(t, out, "Starter")
	assert.Contains(t, out, "Growth")
	assert.NotContains(t, out, "Legacy")

	out, _, err = h.run("plans", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: Starter")

	out, _, err = h.run("prices")
	require.NoError(t, err)
	assert.Contains(t, out, "BTC")

	out, _, err = h.run("plans", "guide")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Pick a plan")

	_, _, err = h.run("plans", "-o", "xml")
	assert.Error(t, err)
}

func TestTheme(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("theme")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", out)

	_, _, err = h.run("theme", "toggle")
	require.NoError(t, err)
	out, _, err = h.run("theme")
	require.NoError(t, err)
	assert.Equal(t, "light\n", out, "persists across processes")

	_, _, err = h.run("theme", "set", "blue")
	assert.Error(t, err)
	_, _, err = h.run("theme", "set", "dark")
	require.NoError(t, err)
	out, _, _ = h.run("theme")
	assert.Equal(t, "dark\n", out)
}

func TestRegisterVerifyLogin(t *testing.T) {
	h := newHarness(t)
	h.prompter.passwords = []string{"Secret123", "Secret124"}

	// a mismatched confirmation never reaches the backend
	_, errOut, err := h.run("register", "--name", "New Person", "--email", "new@coinvest.test")
	assert.ErrorIs(t, err, errInvalidInput)
	assert.Contains(t, errOut, "confirm password")

	h.prompter.passwords = []string{"Secret123", "Secret123"}
	out, errOut, err := h.run("register", "--name", "New Person", "--email", "new@coinvest.test")
	require.NoError(t, err)
	assert.Contains(t, out, "Registration successful")
	assert.Contains(t, errOut, "coinvest verify-email --email new@coinvest.test")

	_, _, err = h.run("login", "--email", "new@coinvest.test", "--password", "Secret123")
	require.Error(t, err, "email not verified yet")

	_, _, err = h.run("verify-email", "--email", "new@coinvest.test", "--code", h.srv.OTPFor("new@coinvest.test"))
	require.NoError(t, err)

	out, _, err = h.run("login", "--email", "new@coinvest.test", "--password", "Secret123")
	require.NoError(t, err)
	assert.Contains(t, out, "(Investor)")
}

func TestForgotAndResetPassword(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("forgot-password", "--email", investorEmail)
	require.NoError(t, err)
	assert.Contains(t, out, "reset link")

	h.prompter.passwords = []string{"Brandnew99", "Brandnew99"}
	_, _, err = h.run("reset-password", "--token", h.srv.ResetTokenFor(investorEmail))
	require.NoError(t, err)

	h.login(investorEmail, "Brandnew99")
}

func TestInvestAndList(t *testing.T) {
	h := newHarness(t)
	h.login(investorEmail, investorPass)

	// plan Starter, amount 250, pay with BTC
	h.prompter.selects = []int{0, 0}
	h.prompter.inputs = []string{"250"}
	out, _, err := h.run("invest")
	require.NoError(t, err)
	assert.Contains(t, out, "Starter")
	assert.Contains(t, out, "pending")

	_, errOut, err := h.run("invest", "--plan", "plan-starter", "--amount", "250", "--crypto", "DOGE")
	assert.ErrorIs(t, err, errInvalidInput)
	assert.Contains(t, errOut, "crypto")

	_, _, err = h.run("invest", "--plan", "plan-growth", "--amount", "1500", "--crypto", "eth", "--tx", "0xfeed")
	require.NoError(t, err)

	out, _, err = h.run("investments", "-o", "json")
	require.NoError(t, err)
	var list []models.Investment
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "active", list[0].Status)

	out, _, err = h.run("dashboard", "-o", "json")
	require.NoError(t, err)
	var summary dashboardSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 1, summary.ActiveInvestments)
	assert.Equal(t, 1500.0, summary.Invested)
	assert.Equal(t, 2, summary.UnreadNotifications)
}

func TestWithdrawAndAdminReview(t *testing.T) {
	h := newHarness(t)
	h.login(investorEmail, investorPass)

	h.prompter.passwords = []string{"1234"}
	out, _, err := h.run("withdraw", "--amount", "100", "--crypto", "BTC", "--address", payoutAddress)
	require.NoError(t, err)
	assert.Contains(t, out, "pending")

	out, _, err = h.run("whoami", "-o", "json")
	require.NoError(t, err)
	var user models.User
	require.NoError(t, json.Unmarshal([]byte(out), &user))
	assert.Equal(t, 1398.5, user.Balance, "refreshed after the request")

	h.login(adminEmail, adminPass)
	out, _, err = h.run("admin", "withdrawals", "--status", "pending", "-o", "json")
	require.NoError(t, err)
	var pending []models.Withdrawal
	require.NoError(t, json.Unmarshal([]byte(out), &pending))
	require.Len(t, pending, 1)

	_, _, err = h.run("admin", "withdrawals", "review", pending[0].ID)
	assert.Error(t, err, "needs --approve or --reject")

	out, _, err = h.run("admin", "withdrawals", "review", pending[0].ID, "--reject", "--note", "wrong network")
	require.NoError(t, err)
	assert.Contains(t, out, "rejected")

	h.login(investorEmail, investorPass)
	out, _, err = h.run("notifications", "--unread")
	require.NoError(t, err)
	assert.Contains(t, out, "Withdrawal rejected")
}

func TestAnnouncementsAreMarkedSeenAndPurgedOnLogout(t *testing.T) {
	h := newHarness(t)
	h.login(adminEmail, adminPass)
	out, _, err := h.run("admin", "announce", "--title", "Maintenance", "--message", "Sunday 02:00 UTC", "--role", "Investor")
	require.NoError(t, err)
	assert.Contains(t, out, "Announcement sent to 1 users")

	h.login(investorEmail, investorPass)
	out, _, err = h.run("announcements")
	require.NoError(t, err)
	assert.Contains(t, out, "NEW")
	assert.Contains(t, out, "Maintenance")

	out, _, err = h.run("announcements")
	require.NoError(t, err)
	assert.NotContains(t, out, "NEW")

	bridge := storage.NewBridge(h.state, zerolog.Nop())
	assert.Len(t, bridge.Keys("seen-broadcasts:"), 1)

	_, _, err = h.run("logout")
	require.NoError(t, err)
	assert.Empty(t, bridge.Keys("seen-broadcasts:"))
	assert.Empty(t, bridge.Keys("user"))
}

func TestExpiredSessionLogsOut(t *testing.T) {
	h := newHarness(t)
	h.login(investorEmail, investorPass)
	require.NoError(t, h.srv.ExpireSessions())

	_, _, err := h.run("dashboard")
	require.Error(t, err)

	out, _, err := h.run("whoami")
	require.NoError(t, err)
	assert.Equal(t, "Not logged in.\n", out)

	_, _, err = h.run("dashboard")
	var redirect *guard.RedirectError
	assert.ErrorAs(t, err, &redirect)
}

func TestWatch_StopsWhenSessionEnds(t *testing.T) {
	h := newHarness(t)
	h.login(investorEmail, investorPass)
	require.NoError(t, h.srv.ExpireSessions())

	_, errOut, err := h.run("watch")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Session ended")

	out, _, _ := h.run("whoami")
	assert.Equal(t, "Not logged in.\n", out)
}

func TestProfile(t *testing.T) {
	h := newHarness(t)
	h.login(investorEmail, investorPass)

	_, _, err := h.run("profile", "wallet", "--crypto", "eth", "--address", "0x1234567890abcdef1234")
	require.NoError(t, err)
	_, _, err = h.run("profile", "update", "--name", "Ivy Q. Investor")
	require.NoError(t, err)

	out, _, err := h.run("profile", "-o", "json")
	require.NoError(t, err)
	var user models.User
	require.NoError(t, json.Unmarshal([]byte(out), &user))
	assert.Equal(t, "ETH", user.PreferredPayoutCrypto)
	assert.Equal(t, "Ivy Q. Investor", user.FullName)

	h.prompter.passwords = []string{"12", investorPass}
	_, errOut, err := h.run("profile", "pin")
	assert.ErrorIs(t, err, errInvalidInput)
	assert.Contains(t, errOut, "pin")

	out, _, err = h.run("activity")
	require.NoError(t, err)
	assert.Contains(t, out, "update-profile")
}

func TestAdminSettingsAndPlans(t *testing.T) {
	h := newHarness(t)
	h.login(adminEmail, adminPass)

	out, _, err := h.run("admin", "settings", "set", "--registration=false", "--fee", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Settings saved")

	out, _, err = h.run("admin", "settings", "-o", "json")
	require.NoError(t, err)
	var settings models.PlatformSettings
	require.NoError(t, json.Unmarshal([]byte(out), &settings))
	assert.False(t, settings.RegistrationEnabled)
	assert.Equal(t, 2.0, settings.WithdrawalFeePct)
	assert.Equal(t, 20.0, settings.MinWithdrawal, "unchanged fields are kept")

	_, _, err = h.run("admin", "plans", "save", "--name", "Elite", "--min", "10000", "--max", "50000", "--rate", "2.5", "--days", "60")
	require.NoError(t, err)
	out, _, err = h.run("admin", "plans")
	require.NoError(t, err)
	assert.Contains(t, out, "Elite")

	out, _, err = h.run("admin", "analytics", "-o", "json")
	require.NoError(t, err)
	var stats models.Analytics
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 3, stats.TotalUsers)

	out, _, err = h.run("admin", "logs", "--action", "update-settings")
	require.NoError(t, err)
	assert.Contains(t, out, "update-settings")
}
