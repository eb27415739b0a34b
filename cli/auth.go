package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Afefmejri25/crm/i18n"
	"github.com/Afefmejri25/crm/models"
	"github.com/Afefmejri25/crm/store"
	"github.com/spf13/cobra"
)

// Identity is what login and whoami report.
type Identity struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	FullName    string      `json:"full_name,omitempty"`
	Theme       store.Theme `json:"theme"`
	Lang        string      `json:"lang"`
	UnreadCount *int        `json:"unread_count,omitempty"`
	Tabs        []store.Tab `json:"tabs"`
}

func identityOf(app *store.App) Identity {
	st := app.Auth.State()
	id := Identity{
		Role:  st.Role,
		Theme: st.Theme,
		Lang:  app.Translator().Lang(),
		Tabs:  app.Tabs(),
	}
	if st.User != nil {
		id.ID = st.User.ID
		id.Email = st.User.Email
	}
	if st.Profile != nil {
		id.FullName = st.Profile.FullName
	}
	return id
}

func newLoginCommand(r *runner) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in with email and password. The session is stored locally and
reused by the other commands until logout. Without --password the
password is read from the first line of standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				pw, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = pw
			}
			return r.run(cmd, func(app *store.App, p *Printer) error {
				err := app.Auth.SignIn(app.Context(), email, password)
				if errors.Is(err, store.ErrAlreadySignedIn) {
					return fmt.Errorf("already signed in as %s: run crm logout first", app.Auth.State().User.Email)
				}
				if err != nil {
					return err
				}
				id := identityOf(app)
				return p.Print(id, func(w io.Writer) error {
					fmt.Fprintln(w, p.T.T(i18n.DashboardWelcome))
					fmt.Fprintf(w, "%s (%s)\n", id.Email, id.Role)
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	cmd.MarkFlagRequired("email")

	return cmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(app *store.App, p *Printer) error {
				if app.View() != store.ViewDashboard {
					return ErrNotSignedIn
				}
				// The local session is gone even when the server call fails.
				if err := app.Auth.SignOut(app.Context()); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
				}
				return p.Print(map[string]string{"status": "signed out"}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, "Signed out")
					return err
				})
			})
		},
	}
}

func newWhoamiCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user, role and dashboard tabs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.authed(cmd, func(app *store.App, p *Printer) error {
				id := identityOf(app)
				if err := app.Notifications.FetchNotifications(app.Context()); err == nil {
					unread := app.Notifications.State().UnreadCount
					id.UnreadCount = &unread
				}
				return p.Print(id, func(w io.Writer) error {
					fmt.Fprintln(w, p.T.T(i18n.DashboardTitle))
					fmt.Fprintf(w, "%s (%s)\n", id.Email, id.Role)
					if id.UnreadCount != nil {
						fmt.Fprintln(w, p.T.T(i18n.UnreadCount, *id.UnreadCount))
					}
					labels := make([]string, len(id.Tabs))
					for i, tab := range id.Tabs {
						labels[i] = tab.Label
					}
					_, err := fmt.Fprintln(w, strings.Join(labels, " | "))
					return err
				})
			})
		},
	}
}

func newThemeCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "theme",
		Short: "Toggle between the light and dark theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.local(cmd, func(app *store.App, p *Printer) error {
				theme := app.Auth.ToggleTheme()
				return p.Print(map[string]store.Theme{"theme": theme}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, theme)
					return err
				})
			})
		},
	}
}

func newLangCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:       "lang [fr|de]",
		Short:     "Switch the interface language",
		Long:      "Set the interface language. Without an argument it toggles between French and German.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"fr", "de"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.local(cmd, func(app *store.App, p *Printer) error {
				lang := i18n.Toggle(app.Translator().Lang())
				if len(args) == 1 {
					if args[0] != "fr" && args[0] != "de" {
						return fmt.Errorf("unsupported language %q", args[0])
					}
					lang = args[0]
				}
				app.SetLang(lang)
				return p.Print(map[string]string{"lang": lang}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, app.Translator().T(i18n.LoginTitle))
					return err
				})
			})
		},
	}
}
