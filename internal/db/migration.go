package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// RunMigrations applies all pending migrations from the embedded set.
func RunMigrations(dbURL string, schema string) error {
	slog.Info("Running database migrations...")

	if schema == "" {
		schema = "public"
	}

	sqlDB, err := sql.Open("pgx", dbURL)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := ensureSchemaExists(sqlDB, schema); err != nil {
		return err
	}

	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return err
	}

	slog.Info("Database migrations completed")
	return nil
}

func ensureSchemaExists(sqlDB *sql.DB, schema string) error {
	if _, err := sqlDB.Exec("CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{schema}.Sanitize()); err != nil {
		return err
	}
	if _, err := sqlDB.Exec("SET search_path TO " + pgx.Identifier{schema}.Sanitize()); err != nil {
		return err
	}
	slog.Info("Schema is ready", "schema", schema)
	return nil
}
