package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations applies embedded SQL migrations via goose. If database is nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sql.DB) error {
	if database == nil {
		return nil
	}
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, "migrations")
}

// Migrate runs a goose command ("up", "down" or "status") against the embedded migrations.
func Migrate(ctx context.Context, database *sql.DB, command string) error {
	switch command {
	case "", "up":
		return RunMigrations(ctx, database)
	case "down", "status":
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
	if database == nil {
		return errors.New("database is required")
	}
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if command == "down" {
		return goose.DownContext(ctx, database, "migrations")
	}
	return goose.StatusContext(ctx, database, "migrations")
}
