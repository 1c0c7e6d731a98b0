// Package commands implements the mapknowledge CLI subcommands.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/teranos/mapknowledge/config"
	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/logger"
	"github.com/teranos/mapknowledge/session"
	"github.com/teranos/mapknowledge/store"
)

// Flags shared by every command, bound by the root command.
var (
	ConfigFile string
	JSONLog    bool
	Verbosity  int
)

// InitLogger initializes the global logger from the command line flags and,
// when given, the loaded configuration.
func InitLogger(cfg *config.Config) error {
	jsonLog, verbosity := JSONLog, Verbosity
	if cfg != nil {
		jsonLog = jsonLog || cfg.Log.JSON
		verbosity = max(verbosity, cfg.Log.Verbosity)
	}
	return logger.Initialize(jsonLog, verbosity)
}

// Hints returns the user facing hints attached to err.
func Hints(err error) []string {
	return errors.GetAllHints(err)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(ConfigFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if cfg.Log.JSON || cfg.Log.Verbosity > 0 {
		if err := InitLogger(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func openSession(ctx context.Context, cfg *config.Config) (*session.Session, error) {
	s, err := session.Open(ctx, cfg, logger.Logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open knowledge session")
	}
	return s, nil
}

// openStore opens the configured store directly, without providers.
func openStore(cfg *config.Config, readOnly bool) (*store.Store, error) {
	path := cfg.StorePath()
	if path == "" {
		return nil, errors.WithHint(errors.New("no knowledge store configured"),
			"Set store.directory in mapknowledge.toml or MAPKNOWLEDGE_STORE_DIRECTORY")
	}
	readOnly = readOnly || cfg.Store.ReadOnly
	return store.Open(path, store.Options{ReadOnly: readOnly, Create: cfg.Store.Create && !readOnly}, logger.Logger)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
