// Command parlando is the voice command core CLI: an interactive
// listen/confirm/execute loop plus one-shot parsing, command history, and
// undo against the persisted ledger.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/parlando-app/parlando/internal/config"
	"github.com/parlando-app/parlando/internal/ledger"
	"github.com/parlando-app/parlando/internal/ledger/postgres"
	"github.com/parlando-app/parlando/internal/ledger/sqlitestore"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "parlando",
		Short:         "Deterministic voice command parsing and execution",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML configuration file")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(undoCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "parlando: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and installs the default logger at the
// configured level. A missing file is not fatal: every setting has a
// usable default, so subcommands work out of the box.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = &config.Config{}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel.Slog(),
	}))
	slog.SetDefault(logger)
	return cfg, nil
}

// closableStore pairs a ledger store with its close function so subcommands
// can defer cleanup uniformly.
type closableStore struct {
	ledger.Store
	close func()
}

// openStore builds the configured ledger store. The memory backend is the
// default and gives each process its own empty ledger.
func openStore(cmd *cobra.Command, cfg *config.Config) (closableStore, error) {
	codec, err := transcriptCodec(cfg)
	if err != nil {
		return closableStore{}, err
	}

	switch cfg.Ledger.Backend {
	case config.BackendPostgres:
		s, err := postgres.NewStore(cmd.Context(), cfg.Ledger.DSN, postgres.WithCodec(codec))
		if err != nil {
			return closableStore{}, err
		}
		return closableStore{Store: s, close: s.Close}, nil
	case config.BackendSQLite:
		s, err := sqlitestore.New(cfg.Ledger.Path, sqlitestore.WithCodec(codec))
		if err != nil {
			return closableStore{}, err
		}
		return closableStore{Store: s, close: func() { s.Close() }}, nil
	default:
		return closableStore{Store: ledger.NewMemStore(), close: func() {}}, nil
	}
}

// transcriptCodec selects the at-rest transcript codec: AES-256-GCM when a
// key is configured, reversible encoding otherwise.
func transcriptCodec(cfg *config.Config) (ledger.Codec, error) {
	if cfg.Ledger.TranscriptKey != "" {
		return ledger.NewAESCodec(cfg.Ledger.TranscriptKey)
	}
	return ledger.PlainCodec{}, nil
}

// userID returns the configured user or the single-user default.
func userID(cfg *config.Config) string {
	if cfg.UserID != "" {
		return cfg.UserID
	}
	return "local"
}
