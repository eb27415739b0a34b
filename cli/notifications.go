package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/Afefmejri25/crm/i18n"
	"github.com/Afefmejri25/crm/models"
	"github.com/Afefmejri25/crm/store"
	"github.com/spf13/cobra"
)

// NotificationList is the notifications view with its unread badge.
type NotificationList struct {
	UnreadCount   int                   `json:"unread_count"`
	Notifications []models.Notification `json:"notifications"`
}

func newNotificationsCommand(r *runner) *cobra.Command {
	list := func(cmd *cobra.Command, args []string) error {
		return r.authed(cmd, func(app *store.App, p *Printer) error {
			if err := app.Notifications.FetchNotifications(app.Context()); err != nil {
				return err
			}
			st := app.Notifications.State()
			out := NotificationList{UnreadCount: st.UnreadCount, Notifications: st.Notifications}
			return p.Print(out, func(w io.Writer) error {
				heading(w, fmt.Sprintf("%s (%s)", p.T.T(i18n.DashboardNotifications), p.T.T(i18n.UnreadCount, out.UnreadCount)))
				rows := make([][]string, 0, len(out.Notifications))
				for _, n := range out.Notifications {
					rows = append(rows, notificationRow(n))
				}
				return table(w, []string{"", "ID", "DATE", "TITLE", "MESSAGE"}, rows)
			})
		})
	}

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List and acknowledge notifications",
		Args:  cobra.NoArgs,
		RunE:  list,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your notifications, newest first",
		Args:  cobra.NoArgs,
		RunE:  list,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark one notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.authed(cmd, func(app *store.App, p *Printer) error {
				if err := app.Notifications.FetchNotifications(app.Context()); err != nil {
					return err
				}
				if err := app.Notifications.MarkAsRead(app.Context(), args[0]); err != nil {
					return err
				}
				unread := app.Notifications.State().UnreadCount
				return p.Print(map[string]int{"unread_count": unread}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, p.T.T(i18n.UnreadCount, unread))
					return err
				})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "read-all",
		Short: "Mark all notifications as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.authed(cmd, func(app *store.App, p *Printer) error {
				if err := app.Notifications.MarkAllAsRead(app.Context()); err != nil {
					return err
				}
				return p.Print(map[string]int{"unread_count": 0}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, p.T.T(i18n.UnreadCount, 0))
					return err
				})
			})
		},
	})
	cmd.AddCommand(newNotificationsWatchCommand(r))

	return cmd
}

func notificationRow(n models.Notification) []string {
	mark := "*"
	if n.IsRead {
		mark = ""
	}
	return []string{mark, n.ID, n.CreatedAt.Local().Format(dateLayout), n.Title, n.Message}
}

func newNotificationsWatchCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print notifications as they arrive until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.authed(cmd, func(app *store.App, p *Printer) error {
				if err := app.Notifications.FetchNotifications(app.Context()); err != nil {
					return err
				}

				var mu sync.Mutex
				seen := map[string]bool{}
				for _, n := range app.Notifications.State().Notifications {
					seen[n.ID] = true
				}
				unsubscribe := app.Notifications.Subscribe(func(st store.NotificationState) {
					mu.Lock()
					defer mu.Unlock()
					for _, n := range st.Notifications {
						if seen[n.ID] {
							continue
						}
						seen[n.ID] = true
						if err := p.Print(n, func(w io.Writer) error {
							_, err := fmt.Fprintf(w, "[%s] %s: %s\n", n.CreatedAt.Local().Format(dateLayout), n.Title, n.Message)
							return err
						}); err != nil {
							return
						}
					}
				})
				defer unsubscribe()

				return app.Listen()
			})
		},
	}
}
