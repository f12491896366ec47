package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/coinvest-dev/coinvest/internal/cli/app"
	"github.com/coinvest-dev/coinvest/internal/cli/routes"
	"github.com/coinvest-dev/coinvest/internal/cli/theme"
	"github.com/coinvest-dev/coinvest/internal/models"
)

// NewPlansCmd creates the plans command
func NewPlansCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List investment plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Plans, func(ctx context.Context, a *app.App) error {
				plans, err := call(ctx, a, a.Client.ListPlans)
				if err != nil {
					return err
				}
				if len(plans) == 0 {
					a.Console.Println("No plans are open right now.")
					return nil
				}
				return a.Console.Render(plans, func() { plansTable(a, plans) })
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show one plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Plans, func(ctx context.Context, a *app.App) error {
				plan, err := call(ctx, a, func(ctx context.Context) (*models.Plan, error) {
					return a.Client.GetPlan(ctx, args[0])
				})
				if err != nil {
					return err
				}
				return a.Console.Render(plan, func() {
					a.Console.Heading(plan.Name)
					if plan.Description != "" {
						a.Console.Println("%s\n", plan.Description)
					}
					plansTable(a, []models.Plan{*plan})
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "guide",
		Short: "How to choose and fund a plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.PlanGuide, func(ctx context.Context, a *app.App) error {
				guide, err := call(ctx, a, a.Client.PlanGuide)
				if err != nil {
					return err
				}
				return a.Console.Render(guide, func() {
					for i, section := range guide {
						a.Console.Heading(fmt.Sprintf("%d. %s", i+1, section.Title))
						a.Console.Println("%s\n", section.Body)
					}
				})
			})
		},
	})

	return cmd
}

func plansTable(a *app.App, plans []models.Plan) {
	rows := make([][]string, 0, len(plans))
	for _, p := range plans {
		limit := "-"
		if p.MaxAmount > 0 {
			limit = money(p.MaxAmount)
		}
		rows = append(rows, []string{
			p.ID,
			p.Name,
			money(p.MinAmount),
			limit,
			strconv.FormatFloat(p.DailyRate, 'f', -1, 64) + "%",
			itoa(p.DurationDays) + "d",
		})
	}
	a.Console.Table([]string{"ID", "NAME", "MIN", "MAX", "DAILY", "DURATION"}, rows)
}

// NewPricesCmd creates the prices command
func NewPricesCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "Show crypto prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Prices, func(ctx context.Context, a *app.App) error {
				prices, err := call(ctx, a, a.Client.CryptoPrices)
				if err != nil {
					return err
				}
				return a.Console.Render(prices, func() {
					rows := make([][]string, 0, len(prices))
					for _, p := range prices {
						rows = append(rows, []string{p.Symbol, money(p.PriceUSD), fmt.Sprintf("%+.2f%%", p.Change24h)})
					}
					a.Console.Table([]string{"SYMBOL", "USD", "24H"}, rows)
				})
			})
		},
	}
}

// NewThemeCmd creates the theme command
func NewThemeCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show the color theme",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, "", func(ctx context.Context, a *app.App) error {
				a.Console.Println("%s", a.Theme.Current())
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch between dark and light",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, "", func(ctx context.Context, a *app.App) error {
				a.Console.Success("Theme set to %s", a.Theme.Toggle())
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "set <dark|light>",
		Short:     "Choose a theme",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(theme.Dark), string(theme.Light)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, "", func(ctx context.Context, a *app.App) error {
				t := theme.Theme(args[0])
				if !t.Valid() {
					return fmt.Errorf("unknown theme %q (want dark or light)", args[0])
				}
				a.Theme.Set(t)
				a.Console.Success("Theme set to %s", t)
				return nil
			})
		},
	})

	return cmd
}
