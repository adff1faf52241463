// ABOUTME: migrate and status subcommands for the payments database schema
// ABOUTME: status only reads the version; migrate opens the store, which upgrades it

package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/2389/lnledger/internal/migrate"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the schema version and the migrations still to apply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout(), a.cfg.Database.Path)
		},
	}
}

func runStatus(ctx context.Context, out io.Writer, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("database %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	version, err := migrate.Version(ctx, db)
	if err != nil {
		return err
	}
	pending, err := migrate.Pending(ctx, db)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	fmt.Fprintln(out)
	cyan.Fprintln(out, "  Schema Status")
	cyan.Fprintln(out, "  -------------")
	fmt.Fprintf(out, "  Database: %s\n", path)
	fmt.Fprintf(out, "  Version:  v%d (current v%d)\n", version, migrate.CurrentVersion)

	if len(pending) == 0 {
		green.Fprintln(out, "  up to date")
	} else {
		yellow.Fprintf(out, "  %d pending:\n", len(pending))
		for _, p := range pending {
			fmt.Fprintf(out, "    %s\n", p)
		}
	}
	fmt.Fprintln(out)
	return nil
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade the payments database to the current schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			a.logger.Info("payments database ready", "path", a.cfg.Database.Path, "version", migrate.CurrentVersion)
			green := color.New(color.FgGreen)
			green.Fprint(out, "✓ ")
			fmt.Fprintf(out, "%s is at schema v%d\n", a.cfg.Database.Path, migrate.CurrentVersion)
			return nil
		},
	}
}
