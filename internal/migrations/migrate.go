// Package migrations applies the engine's schema migrations with goose.
package migrations

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

const dialect = "sqlite3"

// Up applies every pending migration found in dir.
func Up(db *sql.DB, dir string) error {
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}
