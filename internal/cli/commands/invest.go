package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coinvest-dev/coinvest/internal/cli/app"
	"github.com/coinvest-dev/coinvest/internal/cli/client"
	"github.com/coinvest-dev/coinvest/internal/cli/forms"
	"github.com/coinvest-dev/coinvest/internal/cli/notify"
	"github.com/coinvest-dev/coinvest/internal/cli/routes"
	"github.com/coinvest-dev/coinvest/internal/models"
)

// NewInvestCmd creates the invest command
func NewInvestCmd(rt *Runtime) *cobra.Command {
	var planID, crypto, txHash string
	var amount float64

	cmd := &cobra.Command{
		Use:   "invest",
		Short: "Invest in a plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Invest, func(ctx context.Context, a *app.App) error {
				plan, err := pickPlan(ctx, a, planID)
				if err != nil {
					return err
				}
				amount, err := askAmount(a, amount, fmt.Sprintf("Amount (%s - %s)", money(plan.MinAmount), money(plan.MaxAmount)))
				if err != nil {
					return err
				}
				crypto, err := choose(a, strings.ToUpper(crypto), "Pay with", forms.SupportedCryptos)
				if err != nil {
					return err
				}

				form := forms.Investment{PlanID: plan.ID, Amount: amount, Crypto: crypto}
				if err := validate(a, form); err != nil {
					return err
				}

				inv, err := call(ctx, a, func(ctx context.Context) (*models.Investment, error) {
					return a.Client.CreateInvestment(ctx, client.CreateInvestmentRequest{
						PlanID:          form.PlanID,
						Amount:          form.Amount,
						Crypto:          form.Crypto,
						TransactionHash: txHash,
					})
				})
				if err != nil {
					return err
				}

				a.Notify(fmt.Sprintf("Investment of %s %s in %s is %s", money(inv.Amount), inv.Crypto, inv.PlanName, inv.Status), notify.Success)
				a.Nav.Navigate(routes.Investments)
				return a.Console.Render(inv, func() {
					investmentsTable(a, []models.Investment{*inv})
					if inv.Status == "pending" {
						a.Console.Hint("Send the deposit to the platform address; the position activates once payment is confirmed.")
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&planID, "plan", "", "Plan ID (prompts when omitted)")
	cmd.Flags().Float64Var(&amount, "amount", 0, "Amount to invest")
	cmd.Flags().StringVar(&crypto, "crypto", "", "Deposit cryptocurrency (BTC, ETH, USDT)")
	cmd.Flags().StringVar(&txHash, "tx", "", "Deposit transaction hash")

	return cmd
}

// pickPlan loads id, or lets the user choose among the active plans
func pickPlan(ctx context.Context, a *app.App, id string) (*models.Plan, error) {
	if id != "" {
		return call(ctx, a, func(ctx context.Context) (*models.Plan, error) {
			return a.Client.GetPlan(ctx, id)
		})
	}
	plans, err := call(ctx, a, a.Client.ListPlans)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("no plans are open right now")
	}
	items := make([]string, len(plans))
	for i, p := range plans {
		items[i] = fmt.Sprintf("%s  %g%%/day for %dd, from %s", p.Name, p.DailyRate, p.DurationDays, money(p.MinAmount))
	}
	i, err := a.Prompter.Select("Plan", items)
	if err != nil {
		return nil, fmt.Errorf("selection cancelled: %w", err)
	}
	return &plans[i], nil
}

// NewInvestmentsCmd creates the investments command
func NewInvestmentsCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "investments",
		Short: "List your investments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Investments, func(ctx context.Context, a *app.App) error {
				investments, err := call(ctx, a, a.Client.ListInvestments)
				if err != nil {
					return err
				}
				if len(investments) == 0 {
					a.Console.Println("No investments yet.")
					a.Console.Hint("Start one with: coinvest invest")
					return nil
				}
				return a.Console.Render(investments, func() { investmentsTable(a, investments) })
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <investment-id>",
		Short: "Show one investment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Investments, func(ctx context.Context, a *app.App) error {
				inv, err := call(ctx, a, func(ctx context.Context) (*models.Investment, error) {
					return a.Client.GetInvestment(ctx, args[0])
				})
				if err != nil {
					return err
				}
				return a.Console.Render(inv, func() { investmentsTable(a, []models.Investment{*inv}) })
			})
		},
	})

	return cmd
}

func investmentsTable(a *app.App, investments []models.Investment) {
	rows := make([][]string, 0, len(investments))
	for _, inv := range investments {
		rows = append(rows, []string{
			inv.ID,
			inv.PlanName,
			money(inv.Amount) + " " + inv.Crypto,
			inv.Status,
			money(inv.AccruedInterest),
			date(inv.CreatedAt),
		})
	}
	a.Console.Table([]string{"ID", "PLAN", "AMOUNT", "STATUS", "INTEREST", "CREATED"}, rows)
}

// NewWithdrawCmd creates the withdraw command
func NewWithdrawCmd(rt *Runtime) *cobra.Command {
	var crypto, address string
	var amount float64

	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Request a withdrawal to your wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Withdrawals, func(ctx context.Context, a *app.App) error {
				user := a.Session.State().User
				if !user.HasWalletPin {
					a.Console.Warn("Set a wallet PIN first: coinvest profile pin")
					return fmt.Errorf("wallet PIN not set")
				}

				if crypto == "" {
					crypto = user.PreferredPayoutCrypto
				}
				crypto, err := choose(a, strings.ToUpper(crypto), "Withdraw in", forms.SupportedCryptos)
				if err != nil {
					return err
				}
				if address == "" {
					address = user.PayoutWalletAddresses[crypto]
				}
				address, err := ask(a, address, crypto+" wallet address")
				if err != nil {
					return err
				}
				amount, err := askAmount(a, amount, fmt.Sprintf("Amount (balance %s)", money(user.Balance)))
				if err != nil {
					return err
				}
				pin, err := askSecret(a, "", "", "Wallet PIN")
				if err != nil {
					return err
				}

				form := forms.Withdrawal{Amount: amount, Crypto: crypto, WalletAddress: address, Pin: pin}
				if err := validate(a, form); err != nil {
					return err
				}

				w, err := call(ctx, a, func(ctx context.Context) (*models.Withdrawal, error) {
					return a.Client.CreateWithdrawal(ctx, client.CreateWithdrawalRequest{
						Amount:        form.Amount,
						Crypto:        form.Crypto,
						WalletAddress: form.WalletAddress,
						Pin:           form.Pin,
					})
				})
				if err != nil {
					return err
				}
				reloadUser(ctx, a)

				a.Notify("Withdrawal requested, awaiting review", notify.Info)
				return a.Console.Render(w, func() { withdrawalsTable(a, []models.Withdrawal{*w}) })
			})
		},
	}

	cmd.Flags().Float64Var(&amount, "amount", 0, "Amount to withdraw")
	cmd.Flags().StringVar(&crypto, "crypto", "", "Payout cryptocurrency (defaults to your preferred one)")
	cmd.Flags().StringVar(&address, "address", "", "Wallet address (defaults to your saved one)")

	return cmd
}

// NewWithdrawalsCmd creates the withdrawals command
func NewWithdrawalsCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "withdrawals",
		Short: "List your withdrawal requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Withdrawals, func(ctx context.Context, a *app.App) error {
				withdrawals, err := call(ctx, a, a.Client.ListWithdrawals)
				if err != nil {
					return err
				}
				if len(withdrawals) == 0 {
					a.Console.Println("No withdrawals yet.")
					return nil
				}
				return a.Console.Render(withdrawals, func() { withdrawalsTable(a, withdrawals) })
			})
		},
	}
}

func withdrawalsTable(a *app.App, withdrawals []models.Withdrawal) {
	rows := make([][]string, 0, len(withdrawals))
	for _, w := range withdrawals {
		rows = append(rows, []string{
			w.ID,
			money(w.Amount) + " " + w.Crypto,
			w.WalletAddress,
			w.Status,
			orDash(w.AdminNote),
			date(w.CreatedAt),
		})
	}
	a.Console.Table([]string{"ID", "AMOUNT", "WALLET", "STATUS", "NOTE", "CREATED"}, rows)
}
