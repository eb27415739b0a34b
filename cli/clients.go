package cli

import (
	"fmt"
	"io"

	"github.com/Afefmejri25/crm/i18n"
	"github.com/Afefmejri25/crm/models"
	"github.com/Afefmejri25/crm/store"
	"github.com/spf13/cobra"
)

func newClientsCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "List and manage clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listClients(r, cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List clients sorted by company name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listClients(r, cmd)
		},
	})
	cmd.AddCommand(newClientAddCommand(r))
	cmd.AddCommand(newClientUpdateCommand(r))
	cmd.AddCommand(newClientShowCommand(r))

	return cmd
}

func listClients(r *runner, cmd *cobra.Command) error {
	return r.authed(cmd, func(app *store.App, p *Printer) error {
		if err := app.Clients.FetchClients(app.Context()); err != nil {
			return err
		}
		clients := app.Clients.State().Clients
		return p.Print(clients, func(w io.Writer) error {
			heading(w, p.T.T(i18n.DashboardClients))
			return clientTable(w, clients)
		})
	})
}

func clientTable(w io.Writer, clients []models.Client) error {
	rows := make([][]string, 0, len(clients))
	for _, c := range clients {
		rows = append(rows, []string{c.ID, c.CompanyName, c.ContactName, deref(c.Phone), deref(c.Email), deref(c.Region)})
	}
	return table(w, []string{"ID", "COMPANY", "CONTACT", "PHONE", "EMAIL", "REGION"}, rows)
}

// clientFields binds the optional client flags shared by add and update.
type clientFields struct {
	company, contact, email, phone, mobile, address, region string
	revenue                                                float64
}

func (f *clientFields) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.company, "company", "", "company name")
	cmd.Flags().StringVar(&f.contact, "contact", "", "contact name")
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
	cmd.Flags().StringVar(&f.phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&f.mobile, "mobile", "", "mobile number")
	cmd.Flags().StringVar(&f.address, "address", "", "postal address")
	cmd.Flags().StringVar(&f.region, "region", "", "region")
	cmd.Flags().Float64Var(&f.revenue, "revenue", 0, "annual revenue")
}

// patch returns the fields whose flag was set on the command line.
func (f *clientFields) patch(cmd *cobra.Command) models.ClientPatch {
	changed := cmd.Flags().Changed
	str := func(name, v string) *string {
		if !changed(name) {
			return nil
		}
		return &v
	}
	var p models.ClientPatch
	p.CompanyName = str("company", f.company)
	p.ContactName = str("contact", f.contact)
	p.Email = str("email", f.email)
	p.Phone = str("phone", f.phone)
	p.Mobile = str("mobile", f.mobile)
	p.Address = str("address", f.address)
	p.Region = str("region", f.region)
	if changed("revenue") {
		revenue := f.revenue
		p.AnnualRevenue = &revenue
	}
	return p
}

func newClientAddCommand(r *runner) *cobra.Command {
	f := &clientFields{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := f.patch(cmd)
			input := models.ClientInput{
				CompanyName:   f.company,
				ContactName:   f.contact,
				Email:         patch.Email,
				Phone:         patch.Phone,
				Mobile:        patch.Mobile,
				Address:       patch.Address,
				Region:        patch.Region,
				AnnualRevenue: patch.AnnualRevenue,
			}
			return r.authed(cmd, func(app *store.App, p *Printer) error {
				created, err := app.Clients.AddClient(app.Context(), input)
				if err != nil {
					return err
				}
				return p.Print(created, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Created client %s (%s)\n", created.CompanyName, created.ID)
					return err
				})
			})
		},
	}

	f.bind(cmd)
	cmd.MarkFlagRequired("company")
	cmd.MarkFlagRequired("contact")

	return cmd
}

func newClientUpdateCommand(r *runner) *cobra.Command {
	f := &clientFields{}

	cmd := &cobra.Command{
		Use:   "update <client-id>",
		Short: "Update the given fields of a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := f.patch(cmd)
			if len(patch.Columns()) == 0 {
				return fmt.Errorf("nothing to update: set at least one field flag")
			}
			return r.authed(cmd, func(app *store.App, p *Printer) error {
				updated, err := app.Clients.UpdateClient(app.Context(), args[0], patch)
				if err != nil {
					return err
				}
				return p.Print(updated, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Updated client %s (%s)\n", updated.CompanyName, updated.ID)
					return err
				})
			})
		},
	}

	f.bind(cmd)

	return cmd
}

// ClientDetail is a selected client with its call log.
type ClientDetail struct {
	Client models.Client `json:"client"`
	Calls  []models.Call `json:"calls"`
}

func newClientShowCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "show <client-id>",
		Short: "Select a client and show its calls",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.authed(cmd, func(app *store.App, p *Printer) error {
				ctx := app.Context()
				if err := app.Clients.FetchClients(ctx); err != nil {
					return err
				}
				if err := app.Clients.SetSelectedClient(args[0]); err != nil {
					return fmt.Errorf("client %s: %w", args[0], err)
				}
				if err := app.Calls.FetchCallsByClient(ctx, args[0]); err != nil {
					return err
				}

				detail := ClientDetail{Client: *app.Clients.State().Selected, Calls: app.Calls.State().Calls}
				return p.Print(detail, func(w io.Writer) error {
					c := detail.Client
					fmt.Fprintf(w, "%s\n", c.CompanyName)
					fmt.Fprintf(w, "  Contact:  %s\n", c.ContactName)
					fmt.Fprintf(w, "  Email:    %s\n", deref(c.Email))
					fmt.Fprintf(w, "  Phone:    %s\n", deref(c.Phone))
					fmt.Fprintf(w, "  Mobile:   %s\n", deref(c.Mobile))
					fmt.Fprintf(w, "  Address:  %s\n", deref(c.Address))
					fmt.Fprintf(w, "  Region:   %s\n", deref(c.Region))
					fmt.Fprintf(w, "  Revenue:  %s\n\n", deref(c.AnnualRevenue))
					heading(w, p.T.T(i18n.DashboardCalls))
					return callTable(w, detail.Calls)
				})
			})
		},
	}
}
