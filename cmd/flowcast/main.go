package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/terraincognita07/flowcast/internal/api"
	"github.com/terraincognita07/flowcast/internal/cli"
	"github.com/terraincognita07/flowcast/internal/config"
	"github.com/terraincognita07/flowcast/internal/db"
	"github.com/terraincognita07/flowcast/internal/events"
	"github.com/terraincognita07/flowcast/internal/i18n"
	"github.com/terraincognita07/flowcast/internal/logging"
	"github.com/terraincognita07/flowcast/internal/services"
	"github.com/terraincognita07/flowcast/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	if len(os.Args) > 1 && os.Args[1] == "reset-password" {
		if err := cli.RunResetPasswordCommand(ctx, os.Args[2:], os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "reset-password: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "flowcast: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	time.Local = cfg.Location

	logger, err := logging.New(stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	database, err := db.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		return fmt.Errorf("access sql db: %w", err)
	}
	defer sqlDB.Close()

	publisher := newPublisher(cfg.Kafka)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn(context.Background(), "event publisher close failed", "error", err)
		}
	}()

	archive, err := newArchive(ctx, cfg.S3)
	if err != nil {
		return fmt.Errorf("s3 archive: %w", err)
	}

	i18nManager, err := i18n.NewEmbeddedManager(cfg.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("i18n init failed: %w", err)
	}

	repositories := db.NewRepositories(database)
	dependencies := api.NewDependencies(repositories, publisher, logger, archive)
	handler, err := api.NewHandler(dependencies, api.Options{
		SecretKey:       cfg.SecretKey,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		Location:        cfg.Location,
		I18n:            i18nManager,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}
	app := newApp(handler)

	reminders := services.NewReminderService(repositories.Users, dependencies.Cycles, publisher, logger, services.ReminderOptions{
		Interval:           cfg.Reminders.Interval,
		PeriodReminderDays: cfg.Reminders.PeriodReminderDays,
		Location:           cfg.Location,
	})
	reminders.Start(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error(shutdownCtx, "server shutdown failed", "error", err)
		}
	}()

	logger.Info(ctx, "flowcast listening",
		"port", cfg.Port,
		"db_driver", cfg.Database.Driver,
		"tz", cfg.Location.String(),
		"events", cfg.Kafka.Enabled(),
		"archive", cfg.S3.Enabled(),
		"reminders", reminders.Enabled(),
	)
	if err := app.Listen(":" + cfg.Port); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}

func newApp(handler *api.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Flowcast",
		DisableStartupMessage: true,
		ErrorHandler:          handler.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(compress.New())
	api.RegisterRoutes(app, handler)
	return app
}

func newPublisher(cfg config.KafkaConfig) events.Publisher {
	if !cfg.Enabled() {
		return events.NopPublisher{}
	}
	return events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
}

// newArchive returns a nil interface, not a nil *S3Archive, when S3 is off.
func newArchive(ctx context.Context, cfg config.S3Config) (services.ArchiveStore, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	archive, err := storage.NewS3Archive(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return archive, nil
}
