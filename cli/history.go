package cli

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/Afefmejri25/crm/i18n"
	"github.com/Afefmejri25/crm/models"
	"github.com/Afefmejri25/crm/store"
	"github.com/spf13/cobra"
)

func newHistoryCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show your calls, notifications and shared documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.authed(cmd, func(app *store.App, p *Printer) error {
				if err := app.History.FetchHistory(app.Context()); err != nil {
					return err
				}
				items := app.History.State().Items
				return p.Print(items, func(w io.Writer) error {
					heading(w, p.T.T(i18n.DashboardHistory))
					rows := make([][]string, 0, len(items))
					for _, it := range items {
						client := it.ClientName
						if client == "" {
							client = "-"
						}
						rows = append(rows, []string{it.CreatedAt.Local().Format(dateLayout), string(it.Type), it.Description, client})
					}
					return table(w, []string{"DATE", "TYPE", "DESCRIPTION", "CLIENT"}, rows)
				})
			})
		},
	}
}

func newAnalyticsCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Show call statistics (admin only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.authed(cmd, func(app *store.App, p *Printer) error {
				if !app.Auth.State().IsAdmin() {
					return fmt.Errorf("analytics requires the admin role")
				}
				if err := app.Analytics.FetchStats(app.Context()); err != nil {
					return err
				}
				stats := app.Analytics.State().Stats
				return p.Print(stats, func(w io.Writer) error {
					heading(w, p.T.T(i18n.DashboardAnalytics))
					fmt.Fprintf(w, "Total calls:   %d\n", stats.TotalCalls)
					fmt.Fprintf(w, "Successful:    %d\n", stats.SuccessfulCalls)
					fmt.Fprintf(w, "Success rate:  %.1f%%\n\n", stats.SuccessRate)

					statuses := []models.CallStatus{models.CallStatusSuccess, models.CallStatusCallback, models.CallStatusNoAnswer}
					rows := make([][]string, 0, len(statuses))
					for _, s := range statuses {
						rows = append(rows, []string{string(s), fmt.Sprint(stats.CallsByStatus[s])})
					}
					if err := table(w, []string{"STATUS", "CALLS"}, rows); err != nil {
						return err
					}
					fmt.Fprintln(w)

					agents := slices.Clone(stats.CallsByAgent)
					slices.SortStableFunc(agents, func(a, b models.AgentCallCount) int {
						return cmp.Compare(b.TotalCalls, a.TotalCalls)
					})
					rows = rows[:0]
					for _, a := range agents {
						rows = append(rows, []string{a.AgentName, fmt.Sprint(a.TotalCalls)})
					}
					return table(w, []string{"AGENT", "CALLS"}, rows)
				})
			})
		},
	}
}
