package db

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/terraincognita07/flowcast/internal/config"
	"github.com/terraincognita07/flowcast/internal/logging"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

// Open connects to the configured database and applies the embedded
// migrations. logger may be nil, in which case gorm warnings go to stdout.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *logging.SlogLogger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite, "":
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dialector = sqlite.Open(fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", cfg.Path))
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	database, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(logger),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialector.Name(), err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql db: %w", err)
	}
	if database.Dialector.Name() == dialectSQLite {
		// One writer at a time; transactions then queue instead of failing with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := applyMigrations(ctx, sqlDB, database.Dialector.Name()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply embedded migrations: %w", err)
	}

	return database, nil
}

// OpenSQLite opens a SQLite database file with migrations applied.
func OpenSQLite(dbPath string) (*gorm.DB, error) {
	return Open(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, Path: dbPath}, nil)
}

func newGormLogger(logger *logging.SlogLogger) gormlogger.Interface {
	var writer gormlogger.Writer = log.New(os.Stdout, "\r\n", log.LstdFlags)
	colorful := true
	if logger != nil {
		writer = logger.StdLogger(slog.LevelWarn)
		colorful = false
	}

	return gormlogger.New(writer, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  colorful,
	})
}
