// Package config resolves server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	minSecretKeyLength = 32
)

// Config holds everything the server and the CLI need at start-up.
//
//   - SecretKey signs access and refresh tokens.
//   - Location decides which calendar day "today" is.
//   - Kafka and S3 are optional; empty brokers or bucket disable them.
type Config struct {
	SecretKey       string
	Port            string
	Location        *time.Location
	DefaultLanguage string

	Database DatabaseConfig

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	LogLevel  string
	LogFormat string

	Kafka     KafkaConfig
	S3        S3Config
	Reminders ReminderConfig
}

type DatabaseConfig struct {
	Driver string
	Path   string
	URL    string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type ReminderConfig struct {
	Interval           time.Duration
	PeriodReminderDays int
}

// Load reads the process environment. Every invalid value is reported at once.
func Load() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := Config{
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		Database: DatabaseConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
			Path:   getEnv("DB_PATH", filepath.Join("data", "flowcast.db")),
			URL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "flowcast.cycle-events"),
		},
		S3: S3Config{
			Bucket:    strings.TrimSpace(os.Getenv("S3_BUCKET")),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Endpoint:  strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
			AccessKey: strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
			SecretKey: strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
		},
	}

	var err error
	cfg.SecretKey, err = ResolveSecretKey()
	collect(err)
	cfg.Port, err = ResolvePort()
	collect(err)
	cfg.Location, err = ResolveLocation()
	collect(err)

	cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", 7*24*time.Hour)
	collect(err)
	cfg.RefreshTokenTTL, err = durationEnv("REFRESH_TOKEN_TTL", 30*24*time.Hour)
	collect(err)
	cfg.Reminders.Interval, err = durationEnv("REMINDER_INTERVAL", 6*time.Hour)
	collect(err)
	cfg.Reminders.PeriodReminderDays, err = intEnv("PERIOD_REMINDER_DAYS", 2)
	collect(err)
	if cfg.Reminders.PeriodReminderDays < 0 {
		collect(fmt.Errorf("PERIOD_REMINDER_DAYS must not be negative"))
	}

	switch cfg.Database.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.Database.URL == "" {
			collect(errors.New("DATABASE_URL is required when DB_DRIVER=postgres"))
		}
	default:
		collect(fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver))
	}

	if cfg.S3.Enabled() && (cfg.S3.AccessKey == "") != (cfg.S3.SecretKey == "") {
		collect(errors.New("S3_ACCESS_KEY and S3_SECRET_KEY must be set together"))
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// DatabaseOnly resolves the subset of settings the admin CLI needs, so a
// reset can run without SECRET_KEY or PORT.
func DatabaseOnly() (DatabaseConfig, error) {
	database := DatabaseConfig{
		Driver: strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		Path:   getEnv("DB_PATH", filepath.Join("data", "flowcast.db")),
		URL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
	}
	if database.Driver != DriverSQLite && database.Driver != DriverPostgres {
		return DatabaseConfig{}, fmt.Errorf("unsupported DB_DRIVER %q", database.Driver)
	}
	if database.Driver == DriverPostgres && database.URL == "" {
		return DatabaseConfig{}, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
	}
	return database, nil
}

func ResolveSecretKey() (string, error) {
	secret := strings.TrimSpace(os.Getenv("SECRET_KEY"))
	if secret == "" {
		return "", errors.New("SECRET_KEY is required")
	}
	switch strings.ToLower(secret) {
	case "change_me_in_production", "replace_with_at_least_32_random_characters":
		return "", errors.New("SECRET_KEY uses an insecure placeholder value")
	}
	if len(secret) < minSecretKeyLength {
		return "", fmt.Errorf("SECRET_KEY must be at least %d characters", minSecretKeyLength)
	}
	return secret, nil
}

func ResolvePort() (string, error) {
	raw := getEnv("PORT", "8080")
	port, err := strconv.Atoi(raw)
	if err != nil {
		return "", fmt.Errorf("invalid PORT %q: %w", raw, err)
	}
	if port < 1 || port > 65535 {
		return "", fmt.Errorf("PORT %d out of range", port)
	}
	return strconv.Itoa(port), nil
}

func ResolveLocation() (*time.Location, error) {
	name := getEnv("TZ", "UTC")
	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ %q: %w", name, err)
	}
	return location, nil
}

func getEnv(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return value, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return value, nil
}

func splitList(raw string) []string {
	values := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return nil
	}
	return values
}
