package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"catalog/internal/config"
	"catalog/internal/migrations"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply or inspect the catalog schema migrations",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "database URL (defaults to DATABASE_URL)")

	run := func(name, short string, fn func(*sql.DB) error) *cobra.Command {
		return &cobra.Command{
			Use:   name,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, _ []string) error {
				db, closeDB, err := open(c.Context(), dsn)
				if err != nil {
					return err
				}
				defer closeDB()
				return fn(db)
			},
		}
	}

	cmd.AddCommand(
		run("up", "Apply every pending migration", migrations.Up),
		run("down", "Roll back the most recent migration", migrations.Down),
		run("status", "Print the state of each migration", migrations.Status),
	)
	return cmd
}

// open connects through a pgx pool and exposes it as a database/sql handle for goose.
func open(ctx context.Context, dsn string) (*sql.DB, func(), error) {
	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		dsn = cfg.DatabaseURL
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	return db, func() {
		_ = db.Close()
		pool.Close()
	}, nil
}
