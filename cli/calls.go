package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/Afefmejri25/crm/i18n"
	"github.com/Afefmejri25/crm/models"
	"github.com/Afefmejri25/crm/store"
	"github.com/spf13/cobra"
)

// callbackInputLayouts are the accepted --callback formats, tried in order.
var callbackInputLayouts = []string{time.RFC3339, "2006-01-02 15:04", dateLayout}

func parseCallback(s string) (time.Time, error) {
	for _, layout := range callbackInputLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid callback time %q: use YYYY-MM-DD HH:MM", s)
}

func callTable(w io.Writer, calls []models.Call) error {
	rows := make([][]string, 0, len(calls))
	for _, c := range calls {
		company := "-"
		if c.Client != nil {
			company = c.Client.CompanyName
		}
		rows = append(rows, []string{c.ID, c.CreatedAt.Local().Format(dateLayout), company, string(c.Status), formatTime(c.ScheduledCallback), deref(c.Notes)})
	}
	return table(w, []string{"ID", "DATE", "COMPANY", "STATUS", "CALLBACK", "NOTES"}, rows)
}

func newCallsCommand(r *runner) *cobra.Command {
	var clientID string

	list := func(cmd *cobra.Command, args []string) error {
		return r.authed(cmd, func(app *store.App, p *Printer) error {
			var err error
			if clientID != "" {
				err = app.Calls.FetchCallsByClient(app.Context(), clientID)
			} else {
				err = app.Calls.FetchCalls(app.Context())
			}
			if err != nil {
				return err
			}
			calls := app.Calls.State().Calls
			return p.Print(calls, func(w io.Writer) error {
				heading(w, p.T.T(i18n.DashboardCalls))
				return callTable(w, calls)
			})
		})
	}

	cmd := &cobra.Command{
		Use:   "calls",
		Short: "List and log calls",
		Args:  cobra.NoArgs,
		RunE:  list,
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List your calls, newest first",
		Args:  cobra.NoArgs,
		RunE:  list,
	}
	listCmd.Flags().StringVar(&clientID, "client", "", "only calls with this client")
	cmd.Flags().StringVar(&clientID, "client", "", "only calls with this client")

	cmd.AddCommand(listCmd)
	cmd.AddCommand(newCallAddCommand(r))
	cmd.AddCommand(newCallUpdateCommand(r))

	return cmd
}

func newCallAddCommand(r *runner) *cobra.Command {
	var clientID, status, notes, callback string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a call with a client",
		Long: `Log a call with a client. A callback with --callback also creates a
reminder notification for you.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := models.CallInput{ClientID: clientID, Status: models.CallStatus(status)}
			if !input.Status.Valid() {
				return fmt.Errorf("invalid status %q: must be success, callback or no_answer", status)
			}
			if cmd.Flags().Changed("notes") {
				input.Notes = &notes
			}
			if callback != "" {
				t, err := parseCallback(callback)
				if err != nil {
					return err
				}
				input.ScheduledCallback = &t
			}

			return r.authed(cmd, func(app *store.App, p *Printer) error {
				call, err := app.Calls.AddCall(app.Context(), input)
				if call == nil {
					return err
				}
				if err != nil {
					// The call is saved; only the reminder failed.
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
				}
				return p.Print(call, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Logged %s call %s\n", call.Status, call.ID)
					return err
				})
			})
		},
	}

	cmd.Flags().StringVar(&clientID, "client", "", "client id")
	cmd.Flags().StringVar(&status, "status", "", "success, callback or no_answer")
	cmd.Flags().StringVar(&notes, "notes", "", "call notes")
	cmd.Flags().StringVar(&callback, "callback", "", "scheduled callback time (YYYY-MM-DD HH:MM)")
	cmd.MarkFlagRequired("client")
	cmd.MarkFlagRequired("status")

	return cmd
}

func newCallUpdateCommand(r *runner) *cobra.Command {
	var status, notes, callback string

	cmd := &cobra.Command{
		Use:   "update <call-id>",
		Short: "Change the status, notes or callback time of a call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch models.CallPatch
			if cmd.Flags().Changed("status") {
				s := models.CallStatus(status)
				if !s.Valid() {
					return fmt.Errorf("invalid status %q: must be success, callback or no_answer", status)
				}
				patch.Status = &s
			}
			if cmd.Flags().Changed("notes") {
				patch.Notes = &notes
			}
			if cmd.Flags().Changed("callback") {
				t, err := parseCallback(callback)
				if err != nil {
					return err
				}
				patch.ScheduledCallback = &t
			}
			if len(patch.Columns()) == 0 {
				return fmt.Errorf("nothing to update: set --status, --notes or --callback")
			}

			return r.authed(cmd, func(app *store.App, p *Printer) error {
				updated, err := app.Calls.UpdateCall(app.Context(), args[0], patch)
				if err != nil {
					return err
				}
				return p.Print(updated, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Updated call %s (%s)\n", updated.ID, updated.Status)
					return err
				})
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "success, callback or no_answer")
	cmd.Flags().StringVar(&notes, "notes", "", "call notes")
	cmd.Flags().StringVar(&callback, "callback", "", "scheduled callback time (YYYY-MM-DD HH:MM)")

	return cmd
}

func newCalendarCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "calendar",
		Short: "Show upcoming callbacks, soonest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.authed(cmd, func(app *store.App, p *Printer) error {
				if err := app.Calls.FetchCalls(app.Context()); err != nil {
					return err
				}
				upcoming := app.Calls.UpcomingCallbacks(time.Now())
				return p.Print(upcoming, func(w io.Writer) error {
					heading(w, p.T.T(i18n.DashboardCalendar))
					rows := make([][]string, 0, len(upcoming))
					for _, c := range upcoming {
						company := "-"
						if c.Client != nil {
							company = c.Client.CompanyName
						}
						rows = append(rows, []string{formatTime(c.ScheduledCallback), company, deref(c.Notes), c.ID})
					}
					return table(w, []string{"WHEN", "COMPANY", "NOTES", "CALL"}, rows)
				})
			})
		},
	}
}
