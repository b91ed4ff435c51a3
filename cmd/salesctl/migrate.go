package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/sales/internal/storage/postgres"
)

const defaultMigrateTimeout = 30 * time.Second

type migrateFlags struct {
	dsn       string
	upSteps   int
	downSteps int
	timeout   time.Duration
}

func migrateCmd() *cobra.Command {
	flags := &migrateFlags{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back PostgreSQL schema migrations",
	}
	cmd.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "PostgreSQL DSN (fallback: "+envPostgresDSN+")")
	cmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", defaultMigrateTimeout, "overall timeout")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, flags, func(ctx context.Context, store *postgres.Store) error {
				if err := store.MigrateUp(ctx, flags.upSteps); err != nil {
					return fmt.Errorf("migrate up failed: %w", err)
				}
				return printStatus(ctx, cmd, store, "migrate up ok")
			})
		},
	}
	up.Flags().IntVar(&flags.upSteps, "steps", 0, "number of migrations to apply (0=all)")

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			steps := flags.downSteps
			if steps <= 0 {
				steps = 1
			}
			return withStore(cmd, flags, func(ctx context.Context, store *postgres.Store) error {
				if err := store.MigrateDown(ctx, steps); err != nil {
					return fmt.Errorf("migrate down failed: %w", err)
				}
				return printStatus(ctx, cmd, store, "migrate down ok")
			})
		},
	}
	down.Flags().IntVar(&flags.downSteps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, flags, func(ctx context.Context, store *postgres.Store) error {
				if err := printStatus(ctx, cmd, store, "migration status"); err != nil {
					return err
				}
				pending, err := store.PendingMigrations(ctx)
				if err != nil {
					return fmt.Errorf("pending migrations: %w", err)
				}
				for _, m := range pending {
					fmt.Fprintf(cmd.OutOrStdout(), "pending: %d %s\n", m.Version, m.Name)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

func resolveDSN(flagValue string) (string, error) {
	dsn := strings.TrimSpace(flagValue)
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv(envPostgresDSN))
	}
	if dsn == "" {
		return "", errors.New(envPostgresDSN + " (or --dsn) is required")
	}
	return dsn, nil
}

func withStore(cmd *cobra.Command, flags *migrateFlags, fn func(ctx context.Context, store *postgres.Store) error) error {
	dsn, err := resolveDSN(flags.dsn)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open postgres store: %w", err)
	}
	defer store.Close()

	return fn(ctx, store)
}

func printStatus(ctx context.Context, cmd *cobra.Command, store *postgres.Store, prefix string) error {
	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: version=%d applied=%d\n", prefix, version, count)
	return nil
}
