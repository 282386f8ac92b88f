package postgres

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Migrator applies the embedded goose migrations over a database/sql handle
// borrowed from the pgx pool configuration.
type Migrator struct {
	db *sql.DB
}

func NewMigrator(pool *pgxpool.Pool) (*Migrator, error) {
	connCfg := pool.Config().ConnConfig.Copy()
	db := stdlib.OpenDB(*connCfg)

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return &Migrator{db: db}, nil
}

// Up applies every pending migration and returns the resulting version.
func (m *Migrator) Up() (int64, error) {
	if err := goose.Up(m.db, migrationsDir); err != nil {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}
	return m.Version()
}

func (m *Migrator) Down(steps int) error {
	for i := 0; i < steps; i++ {
		if err := goose.Down(m.db, migrationsDir); err != nil {
			return fmt.Errorf("failed to run down migration: %w", err)
		}
	}
	return nil
}

func (m *Migrator) Version() (int64, error) {
	v, err := goose.GetDBVersion(m.db)
	if err != nil {
		return 0, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}

func (m *Migrator) Status() error {
	return goose.Status(m.db, migrationsDir)
}

func (m *Migrator) Close() error { return m.db.Close() }
