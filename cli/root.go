// Package cli is the crm command line front-end. Each command plays the part of
// one dashboard view, bound to the stores of a store.App.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/Afefmejri25/crm/backend"
	"github.com/Afefmejri25/crm/store"
	"github.com/spf13/cobra"
)

// ErrNotSignedIn is returned by commands that need a session when there is none.
var ErrNotSignedIn = errors.New("not signed in: run crm login")

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "text" | "json" | "yaml"
	Server     string
	Lang       string
	ConfigFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// AppFactory builds the application for one command run.
type AppFactory func(ctx context.Context, cfg Config) (*store.App, error)

// NewRootCommand creates the root command for the crm CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(NewApp)
}

func newRootCommand(factory AppFactory) *cobra.Command {
	opts := &RootOptions{}
	r := &runner{opts: opts, factory: factory}

	cmd := &cobra.Command{
		Use:           "crm",
		Short:         "Call center CRM",
		Long:          "Manage clients, calls, documents and notifications of the call center CRM.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Lang != "" && opts.Lang != "fr" && opts.Lang != "de" {
				return fmt.Errorf("invalid language %q: must be fr or de", opts.Lang)
			}
			setupLogging(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.Server, "server", "", "CRM server URL")
	cmd.PersistentFlags().StringVar(&opts.Lang, "lang", "", "interface language (fr|de)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file")

	cmd.AddCommand(newLoginCommand(r))
	cmd.AddCommand(newLogoutCommand(r))
	cmd.AddCommand(newWhoamiCommand(r))
	cmd.AddCommand(newThemeCommand(r))
	cmd.AddCommand(newLangCommand(r))
	cmd.AddCommand(newClientsCommand(r))
	cmd.AddCommand(newCallsCommand(r))
	cmd.AddCommand(newCalendarCommand(r))
	cmd.AddCommand(newNotificationsCommand(r))
	cmd.AddCommand(newDocumentsCommand(r))
	cmd.AddCommand(newHistoryCommand(r))
	cmd.AddCommand(newAnalyticsCommand(r))

	return cmd
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// runner opens a store.App around each command.
type runner struct {
	opts    *RootOptions
	factory AppFactory
}

// local runs fn without contacting the server.
func (r *runner) local(cmd *cobra.Command, fn func(*store.App, *Printer) error) error {
	return r.with(cmd, false, fn)
}

// run restores the persisted session first.
func (r *runner) run(cmd *cobra.Command, fn func(*store.App, *Printer) error) error {
	return r.with(cmd, true, fn)
}

// authed is run for commands that need a signed-in user.
func (r *runner) authed(cmd *cobra.Command, fn func(*store.App, *Printer) error) error {
	return r.run(cmd, func(app *store.App, p *Printer) error {
		if app.View() != store.ViewDashboard {
			return ErrNotSignedIn
		}
		return fn(app, p)
	})
}

func (r *runner) with(cmd *cobra.Command, restore bool, fn func(*store.App, *Printer) error) (err error) {
	cfg, err := loadConfig(cmd, r.opts)
	if err != nil {
		return err
	}
	app, err := r.factory(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			slog.Warn("Failed to save preferences", "error", cerr)
		}
	}()

	if cfg.Lang != "" {
		app.SetLang(cfg.Lang)
	}
	if restore {
		if err := app.Start(); err != nil && !backend.IsUnauthorized(err) {
			return fmt.Errorf("failed to restore session: %w", err)
		}
	}

	return fn(app, &Printer{Format: r.opts.Format, Out: cmd.OutOrStdout(), T: app.Translator()})
}
