package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coinvest-dev/coinvest/internal/cli/app"
	"github.com/coinvest-dev/coinvest/internal/cli/client"
	"github.com/coinvest-dev/coinvest/internal/cli/forms"
	"github.com/coinvest-dev/coinvest/internal/cli/routes"
	"github.com/coinvest-dev/coinvest/internal/models"
)

// NewAdminCmd creates the admin command tree
func NewAdminCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Platform administration (admins only)",
	}

	cmd.AddCommand(newAdminAnalyticsCmd(rt))
	cmd.AddCommand(newAdminUsersCmd(rt))
	cmd.AddCommand(newAdminPlansCmd(rt))
	cmd.AddCommand(newAdminInvestmentsCmd(rt))
	cmd.AddCommand(newAdminWithdrawalsCmd(rt))
	cmd.AddCommand(newAdminSettingsCmd(rt))
	cmd.AddCommand(newAdminAnnounceCmd(rt))
	cmd.AddCommand(newAdminLogsCmd(rt))

	return cmd
}

func listFlags(cmd *cobra.Command, p *client.ListParams) {
	cmd.Flags().IntVar(&p.Page, "page", 0, "Page number")
	cmd.Flags().IntVar(&p.Limit, "limit", 0, "Page size")
	cmd.Flags().StringVar(&p.Status, "status", "", "Filter by status")
}

func newAdminAnalyticsCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "analytics",
		Aliases: []string{"dashboard"},
		Short:   "Show platform totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.AdminDashboard, func(ctx context.Context, a *app.App) error {
				stats, err := call(ctx, a, a.Client.AdminAnalytics)
				if err != nil {
					return err
				}
				return a.Console.Render(stats, func() {
					a.Console.Table([]string{"METRIC", "VALUE"}, [][]string{
						{"Users", itoa(stats.TotalUsers)},
						{"Active investments", itoa(stats.ActiveInvestments)},
						{"Total invested", money(stats.TotalInvested)},
						{"Pending withdrawals", itoa(stats.PendingWithdrawals)},
						{"Total withdrawn", money(stats.TotalWithdrawnValue)},
					})
				})
			})
		},
	}
}

func newAdminUsersCmd(rt *Runtime) *cobra.Command {
	var params client.ListParams

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.AdminUsers, func(ctx context.Context, a *app.App) error {
				users, err := call(ctx, a, func(ctx context.Context) ([]models.User, error) {
					return a.Client.AdminListUsers(ctx, params)
				})
				if err != nil {
					return err
				}
				return a.Console.Render(users, func() {
					rows := make([][]string, 0, len(users))
					for _, u := range users {
						rows = append(rows, []string{u.ID, u.Email, u.FullName, string(u.Role), orDash(u.Status), money(u.Balance)})
					}
					a.Console.Table([]string{"ID", "EMAIL", "NAME", "ROLE", "STATUS", "BALANCE"}, rows)
				})
			})
		},
	}
	listFlags(cmd, &params)
	cmd.Flags().StringVar(&params.Search, "search", "", "Match email or name")

	for _, action := range []struct{ use, status, short string }{
		{"suspend", "suspended", "Suspend a user and end their sessions"},
		{"activate", "active", "Reactivate a suspended user"},
	} {
		action := action
		cmd.AddCommand(&cobra.Command{
			Use:   action.use + " <user-id>",
			Short: action.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return rt.run(cmd, routes.AdminUsers, func(ctx context.Context, a *app.App) error {
					if err := send(ctx, a, func(ctx context.Context) error {
						return a.Client.AdminSetUserStatus(ctx, args[0], action.status)
					}); err != nil {
						return err
					}
					a.Console.Success("User %s is now %s", args[0], action.status)
					return nil
				})
			},
		})
	}

	return cmd
}

func newAdminPlansCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List all plans, including inactive ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.AdminPlans, func(ctx context.Context, a *app.App) error {
				plans, err := call(ctx, a, a.Client.AdminListPlans)
				if err != nil {
					return err
				}
				return a.Console.Render(plans, func() {
					rows := make([][]string, 0, len(plans))
					for _, p := range plans {
						rows = append(rows, []string{p.ID, p.Name, money(p.MinAmount), money(p.MaxAmount),
							fmt.Sprintf("%g%%", p.DailyRate), itoa(p.DurationDays) + "d", yesNo(p.IsActive)})
					}
					a.Console.Table([]string{"ID", "NAME", "MIN", "MAX", "DAILY", "DURATION", "ACTIVE"}, rows)
				})
			})
		},
	}

	var plan models.Plan
	var inactive bool
	save := &cobra.Command{
		Use:   "save",
		Short: "Create a plan, or update one with --id",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.AdminPlans, func(ctx context.Context, a *app.App) error {
				plan.IsActive = !inactive
				saved, err := call(ctx, a, func(ctx context.Context) (*models.Plan, error) {
					return a.Client.AdminSavePlan(ctx, plan)
				})
				if err != nil {
					return err
				}
				a.Console.Success("Saved plan %s (%s)", saved.Name, saved.ID)
				return nil
			})
		},
	}
	save.Flags().StringVar(&plan.ID, "id", "", "Plan to update (creates a new plan when empty)")
	save.Flags().StringVar(&plan.Name, "name", "", "Plan name")
	save.Flags().StringVar(&plan.Description, "description", "", "Description")
	save.Flags().Float64Var(&plan.MinAmount, "min", 0, "Minimum amount")
	save.Flags().Float64Var(&plan.MaxAmount, "max", 0, "Maximum amount (0 for none)")
	save.Flags().Float64Var(&plan.DailyRate, "rate", 0, "Daily rate in percent")
	save.Flags().IntVar(&plan.DurationDays, "days", 0, "Duration in days")
	save.Flags().BoolVar(&inactive, "inactive", false, "Hide the plan from investors")
	_ = save.MarkFlagRequired("name")
	cmd.AddCommand(save)

	return cmd
}

func newAdminInvestmentsCmd(rt *Runtime) *cobra.Command {
	var params client.ListParams

	cmd := &cobra.Command{
		Use:   "investments",
		Short: "List investments across all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.AdminInvestments, func(ctx context.Context, a *app.App) error {
				investments, err := call(ctx, a, func(ctx context.Context) ([]models.Investment, error) {
					return a.Client.AdminListInvestments(ctx, params)
				})
				if err != nil {
					return err
				}
				return a.Console.Render(investments, func() { investmentsTable(a, investments) })
			})
		},
	}
	listFlags(cmd, &params)

	return cmd
}

func newAdminWithdrawalsCmd(rt *Runtime) *cobra.Command {
	var params client.ListParams

	cmd := &cobra.Command{
		Use:   "withdrawals",
		Short: "List withdrawal requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.AdminWithdrawals, func(ctx context.Context, a *app.App) error {
				withdrawals, err := call(ctx, a, func(ctx context.Context) ([]models.Withdrawal, error) {
					return a.Client.AdminListWithdrawals(ctx, params)
				})
				if err != nil {
					return err
				}
				return a.Console.Render(withdrawals, func() { withdrawalsTable(a, withdrawals) })
			})
		},
	}
	listFlags(cmd, &params)

	var approve, reject bool
	var note string
	review := &cobra.Command{
		Use:   "review <withdrawal-id>",
		Short: "Approve or reject a withdrawal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if approve == reject {
				return fmt.Errorf("pass exactly one of --approve or --reject")
			}
			return rt.run(cmd, routes.AdminWithdrawals, func(ctx context.Context, a *app.App) error {
				w, err := call(ctx, a, func(ctx context.Context) (*models.Withdrawal, error) {
					return a.Client.AdminReviewWithdrawal(ctx, args[0], client.WithdrawalReview{Approve: approve, Note: note})
				})
				if err != nil {
					return err
				}
				a.Console.Success("Withdrawal %s %s", w.ID, w.Status)
				return nil
			})
		},
	}
	review.Flags().BoolVar(&approve, "approve", false, "Approve and pay out")
	review.Flags().BoolVar(&reject, "reject", false, "Reject and refund")
	review.Flags().StringVar(&note, "note", "", "Note shown to the user")
	cmd.AddCommand(review)

	return cmd
}

func newAdminSettingsCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show platform settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.AdminSettings, func(ctx context.Context, a *app.App) error {
				settings, err := call(ctx, a, a.Client.AdminSettings)
				if err != nil {
					return err
				}
				return renderSettings(a, settings)
			})
		},
	}

	var (
		minWithdrawal, fee        float64
		maintenance, registration bool
		cryptos                   []string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change platform settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.AdminSettings, func(ctx context.Context, a *app.App) error {
				settings, err := call(ctx, a, a.Client.AdminSettings)
				if err != nil {
					return err
				}

				flags := cmd.Flags()
				if flags.Changed("min-withdrawal") {
					settings.MinWithdrawal = minWithdrawal
				}
				if flags.Changed("fee") {
					settings.WithdrawalFeePct = fee
				}
				if flags.Changed("maintenance") {
					settings.MaintenanceMode = maintenance
				}
				if flags.Changed("registration") {
					settings.RegistrationEnabled = registration
				}
				if flags.Changed("cryptos") {
					settings.SupportedCryptos = upper(cryptos)
				}

				saved, err := call(ctx, a, func(ctx context.Context) (*models.PlatformSettings, error) {
					return a.Client.AdminUpdateSettings(ctx, *settings)
				})
				if err != nil {
					return err
				}
				a.Console.Success("Settings saved")
				return renderSettings(a, saved)
			})
		},
	}
	set.Flags().Float64Var(&minWithdrawal, "min-withdrawal", 0, "Minimum withdrawal amount")
	set.Flags().Float64Var(&fee, "fee", 0, "Withdrawal fee in percent")
	set.Flags().BoolVar(&maintenance, "maintenance", false, "Pause withdrawals")
	set.Flags().BoolVar(&registration, "registration", true, "Allow new sign-ups")
	set.Flags().StringSliceVar(&cryptos, "cryptos", nil, "Supported cryptocurrencies")
	cmd.AddCommand(set)

	return cmd
}

func renderSettings(a *app.App, s *models.PlatformSettings) error {
	return a.Console.Render(s, func() {
		a.Console.Table([]string{"SETTING", "VALUE"}, [][]string{
			{"Minimum withdrawal", money(s.MinWithdrawal)},
			{"Withdrawal fee", fmt.Sprintf("%g%%", s.WithdrawalFeePct)},
			{"Maintenance mode", yesNo(s.MaintenanceMode)},
			{"Registration open", yesNo(s.RegistrationEnabled)},
			{"Cryptocurrencies", strings.Join(s.SupportedCryptos, ", ")},
		})
	})
}

func upper(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return out
}

func newAdminAnnounceCmd(rt *Runtime) *cobra.Command {
	var form forms.Announcement

	cmd := &cobra.Command{
		Use:   "announce",
		Short: "Broadcast an announcement",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.AdminAnnounce, func(ctx context.Context, a *app.App) error {
				var err error
				if form.Title, err = ask(a, form.Title, "Title"); err != nil {
					return err
				}
				if form.Message, err = ask(a, form.Message, "Message"); err != nil {
					return err
				}
				if err := validate(a, form); err != nil {
					return err
				}
				msg, err := call(ctx, a, func(ctx context.Context) (string, error) {
					return a.Client.AdminAnnounce(ctx, models.Announcement{
						Title:      form.Title,
						Message:    form.Message,
						TargetRole: models.Role(form.TargetRole),
					})
				})
				if err != nil {
					return err
				}
				a.Console.Success("%s", msg)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&form.Title, "title", "", "Title")
	cmd.Flags().StringVar(&form.Message, "message", "", "Message body")
	cmd.Flags().StringVar(&form.TargetRole, "role", "", "Only send to this role (Admin, Investor, SupportAgent)")

	return cmd
}

func newAdminLogsCmd(rt *Runtime) *cobra.Command {
	var params client.ListParams

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the platform activity log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.AdminLogs, func(ctx context.Context, a *app.App) error {
				entries, err := call(ctx, a, func(ctx context.Context) ([]models.ActivityEntry, error) {
					return a.Client.AdminLogs(ctx, params)
				})
				if err != nil {
					return err
				}
				return a.Console.Render(entries, func() {
					rows := make([][]string, 0, len(entries))
					for _, e := range entries {
						rows = append(rows, []string{date(e.CreatedAt), orDash(e.UserID), e.Action, orDash(e.Details)})
					}
					a.Console.Table([]string{"WHEN", "USER", "ACTION", "DETAILS"}, rows)
				})
			})
		},
	}
	cmd.Flags().IntVar(&params.Page, "page", 0, "Page number")
	cmd.Flags().IntVar(&params.Limit, "limit", 0, "Page size")
	cmd.Flags().StringVar(&params.Search, "action", "", "Only show this action")

	return cmd
}
