package store

import (
	"embed"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers the pgx5 driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// runMigrations applies the embedded schema migrations against url.
// A database already at head is not an error
func runMigrations(url string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	// golang-migrate's pgx/v5 driver expects the pgx5 scheme
	u := url
	if strings.HasPrefix(u, "postgres://") {
		u = "pgx5://" + strings.TrimPrefix(u, "postgres://")
	} else if strings.HasPrefix(u, "postgresql://") {
		u = "pgx5://" + strings.TrimPrefix(u, "postgresql://")
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, u)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
