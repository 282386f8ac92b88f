package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	pg "github.com/kileldylan/afrinet-project/internal/infra/db/postgres"
)

func newMigrateCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply, roll back or inspect the embedded database migrations.`,
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd.Context(), flags, func(m *pg.Migrator) error {
				if err := m.Down(steps); err != nil {
					return err
				}
				v, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Printf("rolled back %d migration(s); version is now %d\n", steps, v)
				return nil
			})
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd.Context(), flags, func(m *pg.Migrator) error {
					v, err := m.Up()
					if err != nil {
						return err
					}
					fmt.Printf("database is at version %d\n", v)
					return nil
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd.Context(), flags, func(m *pg.Migrator) error {
					return m.Status()
				})
			},
		},
	)
	return cmd
}

// withMigrator needs only Postgres, so it skips the full app wiring.
func withMigrator(ctx context.Context, flags *rootFlags, fn func(m *pg.Migrator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, _, err := loadConfig(flags)
	if err != nil {
		return err
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	m, err := pg.NewMigrator(pool)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}
