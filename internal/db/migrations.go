package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/terraincognita07/flowcast/migrations"
)

func applyMigrations(ctx context.Context, sqlDB *sql.DB, dialectorName string) error {
	dialect, err := gooseDialect(dialectorName)
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(dialect, sqlDB, migrations.Files)
	if err != nil {
		return fmt.Errorf("init migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func gooseDialect(dialectorName string) (goose.Dialect, error) {
	switch dialectorName {
	case dialectSQLite:
		return goose.DialectSQLite3, nil
	case dialectPostgres:
		return goose.DialectPostgres, nil
	default:
		return "", fmt.Errorf("no migration dialect for %q", dialectorName)
	}
}
