// Package migrate applies the embedded schema migrations with golang-migrate.
package migrate

import (
	"errors"
	"fmt"

	"authgate/internal/db"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Run migrates the database at dsn in the given direction ("up" or "down").
// The returned bool reports whether any migration was applied; false with a
// nil error means the schema was already at the target version.
func Run(dsn string, direction string) (bool, error) {
	if dsn == "" {
		return false, errors.New("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	var apply func(*migrate.Migrate) error
	switch direction {
	case "up":
		apply = (*migrate.Migrate).Up
	case "down":
		apply = (*migrate.Migrate).Down
	default:
		return false, fmt.Errorf("direction must be up or down, got %q", direction)
	}

	sourceDriver, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return false, fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, dsn)
	if err != nil {
		return false, fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := apply(m); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("migrate %s: %w", direction, err)
	}
	return true, nil
}
