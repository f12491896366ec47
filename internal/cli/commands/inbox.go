package commands

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coinvest-dev/coinvest/internal/cli/app"
	"github.com/coinvest-dev/coinvest/internal/cli/routes"
	"github.com/coinvest-dev/coinvest/internal/cli/session"
	"github.com/coinvest-dev/coinvest/internal/cli/storage"
	"github.com/coinvest-dev/coinvest/internal/models"
)

// NewNotificationsCmd creates the notifications command
func NewNotificationsCmd(rt *Runtime) *cobra.Command {
	var unreadOnly bool

	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"inbox"},
		Short:   "List your notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Notifications, func(ctx context.Context, a *app.App) error {
				all, err := call(ctx, a, a.Client.Notifications)
				if err != nil {
					return err
				}
				list := all[:0:0]
				for _, n := range all {
					if !unreadOnly || !n.IsRead {
						list = append(list, n)
					}
				}
				if len(list) == 0 {
					a.Console.Println("No notifications.")
					return nil
				}
				return a.Console.Render(list, func() {
					rows := make([][]string, 0, len(list))
					for _, n := range list {
						rows = append(rows, []string{n.ID, n.Title, n.Message, yesNo(n.IsRead), date(n.CreatedAt)})
					}
					a.Console.Table([]string{"ID", "TITLE", "MESSAGE", "READ", "RECEIVED"}, rows)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "Only show unread notifications")

	cmd.AddCommand(&cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Notifications, func(ctx context.Context, a *app.App) error {
				if err := send(ctx, a, func(ctx context.Context) error {
					return a.Client.MarkNotificationRead(ctx, args[0])
				}); err != nil {
					return err
				}
				a.Console.Success("Marked read")
				return nil
			})
		},
	})

	return cmd
}

// broadcast is an announcement as shown to one user
type broadcast struct {
	models.InAppNotification `yaml:",inline"`
	New                      bool `json:"new" yaml:"new"`
}

// NewAnnouncementsCmd creates the announcements command. Announcements
// already shown are remembered locally, apart from server read receipts.
func NewAnnouncementsCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "announcements",
		Short: "Show platform announcements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Notifications, func(ctx context.Context, a *app.App) error {
				all, err := call(ctx, a, a.Client.Notifications)
				if err != nil {
					return err
				}

				key := session.SeenBroadcastsKey(a.Session.State().User.ID)
				seen := map[string]bool{}
				for _, id := range storage.Read[[]string](a.Bridge, key, nil) {
					seen[id] = true
				}

				var list []broadcast
				var ids []string
				for _, n := range all {
					if !n.IsBroadcast {
						continue
					}
					list = append(list, broadcast{InAppNotification: n, New: !seen[n.ID]})
					ids = append(ids, n.ID)
				}
				if len(list) == 0 {
					a.Console.Println("No announcements.")
					return nil
				}
				a.Bridge.Write(key, ids)

				return a.Console.Render(list, func() {
					rows := make([][]string, 0, len(list))
					for _, b := range list {
						marker := ""
						if b.New {
							marker = "NEW"
						}
						rows = append(rows, []string{marker, b.Title, b.Message, date(b.CreatedAt)})
					}
					a.Console.Table([]string{"", "TITLE", "MESSAGE", "POSTED"}, rows)
				})
			})
		},
	}
}

// NewActivityCmd creates the activity command
func NewActivityCmd(rt *Runtime) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show your account activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Activity, func(ctx context.Context, a *app.App) error {
				entries, err := call(ctx, a, func(ctx context.Context) ([]models.ActivityEntry, error) {
					return a.Client.ActivityLog(ctx, page)
				})
				if err != nil {
					return err
				}
				return a.Console.Render(entries, func() { activityTable(a, entries) })
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")

	return cmd
}

func activityTable(a *app.App, entries []models.ActivityEntry) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{date(e.CreatedAt), e.Action, orDash(e.Details)})
	}
	a.Console.Table([]string{"WHEN", "ACTION", "DETAILS"}, rows)
}

// NewWatchCmd creates the watch command
func NewWatchCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay signed in and print new notifications as they arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.UserDashboard, func(ctx context.Context, a *app.App) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				ended := make(chan struct{})
				var once sync.Once
				unsubscribe := a.Session.Subscribe(func(st session.State) {
					if !st.IsAuthenticated && !st.IsLoading {
						once.Do(func() { close(ended) })
					}
				})
				defer unsubscribe()

				// follow logins, logouts and theme changes made by other commands
				if err := a.Watcher.Start(); err != nil {
					return err
				}
				if _, err := a.StartPoller(); err != nil {
					return err
				}
				a.Console.Hint("Watching for notifications. Press Ctrl+C to stop.")

				select {
				case <-ctx.Done():
					a.Console.Println("Stopped.")
				case <-ended:
					a.Console.Warn("Session ended")
					a.Console.Hint("Log in again with: %s", commandFor(routes.Login))
				}
				return nil
			})
		},
	}
}
