package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/coinvest-dev/coinvest/internal/cli/app"
	"github.com/coinvest-dev/coinvest/internal/cli/forms"
	"github.com/coinvest-dev/coinvest/internal/cli/routes"
	"github.com/coinvest-dev/coinvest/internal/cli/session"
	"github.com/coinvest-dev/coinvest/internal/cli/ui"
)

// errInvalidInput is returned after field errors were printed inline
var errInvalidInput = errors.New("invalid input")

// Runtime carries what every command needs to build its App. Tests set
// Options to point at a fake backend and shared in-memory state.
type Runtime struct {
	Options app.Options
	Output  string
}

// BindFlags registers the global flags on the root command
func (r *Runtime) BindFlags(root *cobra.Command) {
	root.PersistentFlags().StringVarP(&r.Output, "output", "o", "table", "Output format: table, json or yaml")
}

// open builds the App for one command invocation
func (r *Runtime) open(cmd *cobra.Command) (*app.App, error) {
	format, err := ui.ParseFormat(r.Output)
	if err != nil {
		return nil, err
	}
	opts := r.Options
	opts.Format = format
	if opts.Out == nil {
		opts.Out = cmd.OutOrStdout()
	}
	if opts.ErrOut == nil {
		opts.ErrOut = cmd.ErrOrStderr()
	}
	return app.New(opts)
}

// run opens the App, passes the route guard for route (when set) and
// calls fn. The App is closed afterwards.
func (r *Runtime) run(cmd *cobra.Command, route string, fn func(ctx context.Context, a *app.App) error) error {
	a, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if route != "" {
		if err := a.Enter(route); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, a)
}

// call runs one backend request bounded by the configured timeout
func call[T any](ctx context.Context, a *app.App, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := a.Context(ctx)
	defer cancel()
	return fn(ctx)
}

// send is call for requests without a result
func send(ctx context.Context, a *app.App, fn func(ctx context.Context) error) error {
	ctx, cancel := a.Context(ctx)
	defer cancel()
	return fn(ctx)
}

// validate checks form and prints each failing field inline
func validate(a *app.App, form any) error {
	err := forms.Validate(form)
	if err == nil {
		return nil
	}
	var fieldErrs forms.Errors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			a.Console.FieldError(fe.Field, fe.Message)
		}
		return errInvalidInput
	}
	return err
}

// formError prints a session error inline; the store already holds the
// message in its state
func formError(a *app.App, err error) error {
	var serr *session.Error
	if errors.As(err, &serr) {
		a.Console.FieldError(serr.Op, serr.Message)
		return fmt.Errorf("%s failed", serr.Op)
	}
	return err
}

// ask returns value or prompts for it when empty
func ask(a *app.App, value, label string) (string, error) {
	if value = strings.TrimSpace(value); value != "" {
		return value, nil
	}
	answer, err := a.Prompter.Input(label)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(answer), nil
}

// askSecret returns value, then the env variable, then prompts
func askSecret(a *app.App, value, envVar, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	if envVar != "" {
		if v := os.Getenv(envVar); v != "" {
			return v, nil
		}
	}
	answer, err := a.Prompter.Password(label)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return answer, nil
}

// askAmount parses value or prompts for an amount
func askAmount(a *app.App, value float64, label string) (float64, error) {
	if value > 0 {
		return value, nil
	}
	raw, err := ask(a, "", label)
	if err != nil {
		return 0, err
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		a.Console.FieldError("amount", "must be a number")
		return 0, errInvalidInput
	}
	return amount, nil
}

// choose returns value or lets the user pick one of items
func choose(a *app.App, value, label string, items []string) (string, error) {
	if value != "" {
		return value, nil
	}
	i, err := a.Prompter.Select(label, items)
	if err != nil {
		return "", fmt.Errorf("selection cancelled: %w", err)
	}
	return items[i], nil
}

// commandFor names the command that shows path, for hints
func commandFor(path string) string {
	switch routes.Clean(path) {
	case routes.UserDashboard:
		return "coinvest dashboard"
	case routes.AdminDashboard:
		return "coinvest admin analytics"
	case routes.Login:
		return "coinvest login"
	case routes.Plans:
		return "coinvest plans"
	case routes.Investments:
		return "coinvest investments"
	case routes.Invest:
		return "coinvest invest"
	case routes.Withdrawals:
		return "coinvest withdrawals"
	case routes.Notifications:
		return "coinvest notifications"
	case routes.Profile:
		return "coinvest profile"
	case routes.Activity:
		return "coinvest activity"
	case routes.AdminUsers:
		return "coinvest admin users"
	case routes.AdminPlans:
		return "coinvest admin plans"
	case routes.AdminInvestments:
		return "coinvest admin investments"
	case routes.AdminWithdrawals:
		return "coinvest admin withdrawals"
	case routes.AdminSettings:
		return "coinvest admin settings"
	case routes.AdminLogs:
		return "coinvest admin logs"
	default:
		return "coinvest plans"
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
