// Package migrations holds the catalog schema as embedded goose SQL migrations.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"log"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var files embed.FS

const dir = "sql"

var setupOnce sync.Once
var setupErr error

func setup() error {
	setupOnce.Do(func() {
		goose.SetBaseFS(files)
		setupErr = goose.SetDialect("postgres")
	})
	return setupErr
}

// Up applies every pending migration.
func Up(db *sql.DB) error {
	if err := setup(); err != nil {
		return fmt.Errorf("migrations setup: %w", err)
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("migrations up: %w", err)
	}
	log.Printf("[INFO] migrations: schema is up to date")
	return nil
}

// Down rolls back the most recent migration.
func Down(db *sql.DB) error {
	if err := setup(); err != nil {
		return fmt.Errorf("migrations setup: %w", err)
	}
	if err := goose.Down(db, dir); err != nil {
		return fmt.Errorf("migrations down: %w", err)
	}
	return nil
}

// Status prints the applied state of each migration through goose's logger.
func Status(db *sql.DB) error {
	if err := setup(); err != nil {
		return fmt.Errorf("migrations setup: %w", err)
	}
	if err := goose.Status(db, dir); err != nil {
		return fmt.Errorf("migrations status: %w", err)
	}
	return nil
}

// Collect parses the embedded migrations without touching a database.
func Collect() (goose.Migrations, error) {
	if err := setup(); err != nil {
		return nil, err
	}
	return goose.CollectMigrations(dir, 0, goose.MaxVersion)
}
