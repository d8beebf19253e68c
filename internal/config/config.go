package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppEnv   string     `env:"APP_ENV" envDefault:"dev"`
	LogLevel slog.Level `env:"-"`
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`

	// Driver selects the series store: "sqlite3" (Path or DSN) or "postgres" (DatabaseURL).
	Driver          string        `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN             string        `env:"DB_DSN"`
	Path            string        `env:"SQLITE_PATH" envDefault:"data/app.db"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"1"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"1"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"0s"`
	LogSQL          bool          `env:"DB_LOG_SQL" envDefault:"false"`
	DatabaseURL     string        `env:"DATABASE_URL"`

	MQTT     MQTTConfig     `envPrefix:"MQTT_"`
	Readings ReadingsConfig
}

type MQTTConfig struct {
	Enabled  bool   `env:"ENABLED" envDefault:"false"`
	Broker   string `env:"BROKER" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"1883"`
	ClientID string `env:"CLIENT_ID" envDefault:"prodline-server"`
	Topic    string `env:"TOPIC" envDefault:"production/parameters"`
}

// ReadingsConfig tunes the reading generator and history queries.
type ReadingsConfig struct {
	DefaultHours    int           `env:"HISTORY_DEFAULT_HOURS" envDefault:"24"`
	MaxHours        int           `env:"HISTORY_MAX_HOURS" envDefault:"720"`
	PerturbFraction float64       `env:"PERTURB_FRACTION" envDefault:"0.1"`
	Tolerance       float64       `env:"TARGET_TOLERANCE" envDefault:"0.15"`
	SeedCount       int           `env:"SEED_COUNT" envDefault:"24"`
	SeedSpacing     time.Duration `env:"SEED_SPACING" envDefault:"1h"`
	SeedOnStart     bool          `env:"SEED_ON_START" envDefault:"false"`
}

func LoadFromEnv() (Config, error) {
	var raw struct {
		Config
		LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	}
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg := raw.Config

	cfg.AppEnv = orDefault(cfg.AppEnv, "dev")
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	level, err := parseLogLevel(orDefault(raw.LogLevel, "info"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	cfg.HTTPAddr = orDefault(cfg.HTTPAddr, ":8080")

	cfg.Driver = orDefault(cfg.Driver, "sqlite3")
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	cfg.Path = orDefault(cfg.Path, "data/app.db")
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	switch cfg.Driver {
	case "sqlite3":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q (allowed: sqlite3, postgres)", cfg.Driver)
	}
	if cfg.MaxOpenConns < 0 {
		return Config{}, fmt.Errorf("invalid DB_MAX_OPEN_CONNS %d (must be >= 0)", cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime < 0 {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %s (must be >= 0)", cfg.ConnMaxLifetime)
	}

	if err := cfg.MQTT.validate(); err != nil {
		return Config{}, err
	}
	if err := cfg.Readings.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (m *MQTTConfig) validate() error {
	m.Broker = strings.TrimSpace(m.Broker)
	m.Topic = strings.Trim(strings.TrimSpace(m.Topic), "/")
	m.ClientID = orDefault(m.ClientID, "prodline-server")
	if !m.Enabled {
		return nil
	}
	if m.Broker == "" {
		return errors.New("MQTT_BROKER is required when MQTT_ENABLED=true")
	}
	if m.Port <= 0 || m.Port > 65535 {
		return fmt.Errorf("invalid MQTT_PORT %d (allowed: 1-65535)", m.Port)
	}
	if m.Topic == "" {
		return errors.New("MQTT_TOPIC is required when MQTT_ENABLED=true")
	}
	return nil
}

// MaxHistoryHours bounds HISTORY_MAX_HOURS to ten years so the history
// window always fits in a time.Duration.
const MaxHistoryHours = 87600

func (r ReadingsConfig) validate() error {
	if r.DefaultHours < 1 {
		return fmt.Errorf("invalid HISTORY_DEFAULT_HOURS %d (must be >= 1)", r.DefaultHours)
	}
	if r.MaxHours < r.DefaultHours {
		return fmt.Errorf("invalid HISTORY_MAX_HOURS %d (must be >= HISTORY_DEFAULT_HOURS %d)", r.MaxHours, r.DefaultHours)
	}
	if r.MaxHours > MaxHistoryHours {
		return fmt.Errorf("invalid HISTORY_MAX_HOURS %d (must be <= %d)", r.MaxHours, MaxHistoryHours)
	}
	if r.PerturbFraction <= 0 || r.PerturbFraction >= 1 {
		return fmt.Errorf("invalid PERTURB_FRACTION %g (allowed: 0 < f < 1)", r.PerturbFraction)
	}
	if r.Tolerance <= 0 {
		return fmt.Errorf("invalid TARGET_TOLERANCE %g (must be > 0)", r.Tolerance)
	}
	if r.SeedCount < 1 {
		return fmt.Errorf("invalid SEED_COUNT %d (must be >= 1)", r.SeedCount)
	}
	if r.SeedSpacing <= 0 {
		return fmt.Errorf("invalid SEED_SPACING %s (must be > 0)", r.SeedSpacing)
	}
	return nil
}

func orDefault(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
