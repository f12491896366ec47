package commands

import (
	"context"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coinvest-dev/coinvest/internal/cli/app"
	"github.com/coinvest-dev/coinvest/internal/cli/client"
	"github.com/coinvest-dev/coinvest/internal/cli/forms"
	"github.com/coinvest-dev/coinvest/internal/cli/routes"
	"github.com/coinvest-dev/coinvest/internal/models"
)

// NewWhoamiCmd creates the whoami command. It works offline from the
// saved session.
func NewWhoamiCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who is logged in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, "", func(ctx context.Context, a *app.App) error {
				st := a.Session.State()
				if !st.IsAuthenticated {
					a.Console.Println("Not logged in.")
					return nil
				}
				return a.Console.Render(st.User, func() {
					a.Console.Println("%s <%s> (%s)", st.User.FullName, st.User.Email, st.User.Role)
				})
			})
		},
	}
}

// NewDashboardCmd creates the dashboard command
func NewDashboardCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show your balance, positions and unread notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.UserDashboard, func(ctx context.Context, a *app.App) error {
				if err := refreshUser(ctx, a); err != nil {
					return err
				}
				user := a.Session.State().User

				investments, err := call(ctx, a, a.Client.ListInvestments)
				if err != nil {
					return err
				}
				unread, err := call(ctx, a, a.Client.UnreadCount)
				if err != nil {
					return err
				}

				summary := dashboardSummary{Balance: user.Balance, UnreadNotifications: unread}
				for _, inv := range investments {
					if inv.Status == "active" {
						summary.ActiveInvestments++
						summary.Invested += inv.Amount
						summary.AccruedInterest += inv.AccruedInterest
					}
				}

				return a.Console.Render(summary, func() {
					a.Console.Heading("Welcome back, " + user.FullName)
					a.Console.Table([]string{"BALANCE", "ACTIVE", "INVESTED", "INTEREST", "UNREAD"}, [][]string{{
						money(summary.Balance),
						itoa(summary.ActiveInvestments),
						money(summary.Invested),
						money(summary.AccruedInterest),
						itoa(summary.UnreadNotifications),
					}})
				})
			})
		},
	}
}

type dashboardSummary struct {
	Balance             float64 `json:"balance" yaml:"balance"`
	ActiveInvestments   int     `json:"activeInvestments" yaml:"activeInvestments"`
	Invested            float64 `json:"invested" yaml:"invested"`
	AccruedInterest     float64 `json:"accruedInterest" yaml:"accruedInterest"`
	UnreadNotifications int     `json:"unreadNotifications" yaml:"unreadNotifications"`
}

// refreshUser re-reads the user from the backend. A rejected session has
// already been logged out by the store.
func refreshUser(ctx context.Context, a *app.App) error {
	ctx, cancel := a.Context(ctx)
	defer cancel()
	return a.Session.FetchAndUpdateUser(ctx)
}

// NewProfileCmd creates the profile command and its subcommands
func NewProfileCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show and edit your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Profile, func(ctx context.Context, a *app.App) error {
				if err := refreshUser(ctx, a); err != nil {
					return err
				}
				return renderProfile(a, a.Session.State().User)
			})
		},
	}

	cmd.AddCommand(newProfileUpdateCmd(rt))
	cmd.AddCommand(newChangePasswordCmd(rt))
	cmd.AddCommand(newSetPinCmd(rt))
	cmd.AddCommand(newPayoutWalletsCmd(rt))

	return cmd
}

func renderProfile(a *app.App, user *models.User) error {
	return a.Console.Render(user, func() {
		rows := [][]string{
			{"Name", user.FullName},
			{"Email", user.Email},
			{"Role", string(user.Role)},
			{"Email verified", yesNo(user.IsEmailVerified)},
			{"Wallet PIN", yesNo(user.HasWalletPin)},
			{"Balance", money(user.Balance)},
			{"Payout crypto", orDash(user.PreferredPayoutCrypto)},
		}
		symbols := make([]string, 0, len(user.PayoutWalletAddresses))
		for s := range user.PayoutWalletAddresses {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		for _, s := range symbols {
			rows = append(rows, []string{s + " wallet", user.PayoutWalletAddresses[s]})
		}
		a.Console.Table([]string{"FIELD", "VALUE"}, rows)
	})
}

// reloadUser picks up a change just made on the backend
func reloadUser(ctx context.Context, a *app.App) {
	if err := refreshUser(ctx, a); err != nil {
		a.Log.Debug().Err(err).Msg("Failed to refresh user after update")
	}
}

func newProfileUpdateCmd(rt *Runtime) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change your display name",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Profile, func(ctx context.Context, a *app.App) error {
				name, err := ask(a, name, "Full name")
				if err != nil {
					return err
				}
				if len([]rune(name)) < 2 {
					a.Console.FieldError("full name", "must be at least 2 characters")
					return errInvalidInput
				}
				user, err := call(ctx, a, func(ctx context.Context) (*models.User, error) {
					return a.Client.UpdateProfile(ctx, client.ProfileUpdate{FullName: name})
				})
				if err != nil {
					return err
				}
				reloadUser(ctx, a)
				a.Console.Success("Profile updated for %s", user.FullName)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name")

	return cmd
}

func newChangePasswordCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Profile, func(ctx context.Context, a *app.App) error {
				var form forms.ChangePassword
				var err error
				if form.CurrentPassword, err = askSecret(a, "", "", "Current password"); err != nil {
					return err
				}
				if form.NewPassword, err = askSecret(a, "", "", "New password"); err != nil {
					return err
				}
				if err := validate(a, form); err != nil {
					return err
				}
				if err := send(ctx, a, func(ctx context.Context) error {
					return a.Client.ChangePassword(ctx, form.CurrentPassword, form.NewPassword)
				}); err != nil {
					return err
				}
				a.Console.Success("Password changed")
				return nil
			})
		},
	}
}

func newSetPinCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "pin",
		Short: "Set the wallet PIN that authorizes withdrawals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Profile, func(ctx context.Context, a *app.App) error {
				var form forms.WalletPin
				var err error
				if form.Pin, err = askSecret(a, "", "", "New PIN (4-6 digits)"); err != nil {
					return err
				}
				if form.Password, err = askSecret(a, "", "", "Account password"); err != nil {
					return err
				}
				if err := validate(a, form); err != nil {
					return err
				}
				if err := send(ctx, a, func(ctx context.Context) error {
					return a.Client.SetWalletPin(ctx, form.Pin, form.Password)
				}); err != nil {
					return err
				}
				reloadUser(ctx, a)
				a.Console.Success("Wallet PIN saved")
				return nil
			})
		},
	}
}

func newPayoutWalletsCmd(rt *Runtime) *cobra.Command {
	var crypto, address string

	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Set your preferred payout wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Profile, func(ctx context.Context, a *app.App) error {
				crypto, err := choose(a, strings.ToUpper(crypto), "Payout crypto", forms.SupportedCryptos)
				if err != nil {
					return err
				}
				if address, err = ask(a, address, crypto+" wallet address"); err != nil {
					return err
				}

				wallets := map[string]string{}
				for k, v := range a.Session.State().User.PayoutWalletAddresses {
					wallets[k] = v
				}
				wallets[crypto] = address

				user, err := call(ctx, a, func(ctx context.Context) (*models.User, error) {
					return a.Client.UpdatePayoutWallets(ctx, client.PayoutWalletsUpdate{
						PreferredPayoutCrypto: crypto,
						PayoutWalletAddresses: wallets,
					})
				})
				if err != nil {
					return err
				}
				reloadUser(ctx, a)
				a.Console.Success("Payouts will be sent in %s to %s", user.PreferredPayoutCrypto, user.PayoutWalletAddresses[crypto])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&crypto, "crypto", "", "Payout cryptocurrency (BTC, ETH, USDT)")
	cmd.Flags().StringVar(&address, "address", "", "Wallet address")

	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
