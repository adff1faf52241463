// ABOUTME: Entry point for paymentsdb, the payments database maintenance tool
// ABOUTME: Resolves configuration, sets up logging and dispatches cobra subcommands

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/lnledger/internal/config"
	"github.com/2389/lnledger/internal/logging"
	"github.com/2389/lnledger/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

// app carries the state shared by subcommands once flags are parsed.
type app struct {
	configPath string
	dbPath     string
	logLevel   string

	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
}

// getConfigPath returns the path to the ledger config file.
// Priority: LNLEDGER_CONFIG env var > XDG_CONFIG_HOME/lnledger/ledger.yaml > ~/.config/lnledger/ledger.yaml
func getConfigPath() string {
	if envPath := os.Getenv("LNLEDGER_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "ledger.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "lnledger", "ledger.yaml")
}

// loadConfig reads the config file when one exists. Without a file the
// defaults are used and --db must name the database.
func (a *app) loadConfig() error {
	path := a.configPath
	explicit := path != ""
	if !explicit {
		path = getConfigPath()
	}

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil || explicit {
		cfg, err = config.Read(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}

	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	a.cfg = cfg
	return nil
}

func (a *app) openStore(ctx context.Context) (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(ctx, a.cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	a := &app{closeLog: func() error { return nil }}

	root := &cobra.Command{
		Use:           "paymentsdb",
		Short:         "Inspect, migrate and export a Lightning node payments database",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			a.logger, a.closeLog = logging.Setup(a.cfg.Logging, stderr)
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.closeLog()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (.yaml or .toml)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "payments database path, overrides database.path")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newMigrateCmd(a))
	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newSummaryCmd(a))

	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stderr).ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
