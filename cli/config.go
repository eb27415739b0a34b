package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Afefmejri25/crm/backend"
	"github.com/Afefmejri25/crm/models"
	"github.com/Afefmejri25/crm/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the resolved client configuration. Flags win over the environment,
// which wins over the config file.
type Config struct {
	ServerURL   string
	SessionFile string
	Lang        string
}

func loadConfig(cmd *cobra.Command, opts *RootOptions) (Config, error) {
	v := viper.New()

	v.SetDefault("server.url", "http://localhost:8080")
	v.SetDefault("session.file", defaultSessionFile())
	v.SetDefault("ui.lang", "")

	v.BindEnv("server.url", "CRM_SERVER_URL")
	v.BindEnv("session.file", "CRM_SESSION_FILE")
	v.BindEnv("ui.lang", "CRM_LANG")

	flags := cmd.Root().PersistentFlags()
	if err := v.BindPFlag("server.url", flags.Lookup("server")); err != nil {
		return Config{}, err
	}
	if err := v.BindPFlag("ui.lang", flags.Lookup("lang")); err != nil {
		return Config{}, err
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", opts.ConfigFile, err)
		}
	}

	return Config{
		ServerURL:   v.GetString("server.url"),
		SessionFile: v.GetString("session.file"),
		Lang:        v.GetString("ui.lang"),
	}, nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "crm", "session.yaml")
}

// NewApp wires the HTTP backend and the session file into a store.App.
// Refreshed sessions are written back so the next run starts with them.
func NewApp(ctx context.Context, cfg Config) (*store.App, error) {
	sessions := store.NewFileSessionStorage(cfg.SessionFile)
	api := backend.New(cfg.ServerURL, backend.WithSessionListener(func(s *models.Session) {
		if err := sessions.SaveSession(s); err != nil {
			slog.Warn("Failed to persist session", "error", err, "path", sessions.Path())
		}
	}))
	slog.Debug("Using server", "url", cfg.ServerURL, "session_file", cfg.SessionFile)
	return store.NewApp(ctx, api, sessions), nil
}
