package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"prodline-server/internal/config"
	"prodline-server/internal/logging"
	"prodline-server/internal/modules/parameters/types"
)

func sqliteConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		AppEnv:       "dev",
		Driver:       "sqlite3",
		Path:         t.TempDir() + "/app.db",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		Readings: config.ReadingsConfig{
			DefaultHours:    24,
			MaxHours:        720,
			PerturbFraction: 0.1,
			Tolerance:       0.15,
			SeedCount:       5,
			SeedSpacing:     time.Hour,
		},
	}
}

func TestServiceOptions(t *testing.T) {
	opts := serviceOptions(config.ReadingsConfig{
		DefaultHours:    12,
		MaxHours:        48,
		PerturbFraction: 0.2,
		Tolerance:       0.05,
		SeedCount:       3,
		SeedSpacing:     30 * time.Minute,
	})

	if opts.DefaultHours != 12 || opts.MaxHours != 48 {
		t.Errorf("hours = %d/%d; want 12/48", opts.DefaultHours, opts.MaxHours)
	}
	if opts.PerturbFraction != 0.2 || opts.Tolerance != 0.05 {
		t.Errorf("fractions = %v/%v", opts.PerturbFraction, opts.Tolerance)
	}
	if opts.Seed.Count != 3 || opts.Seed.Spacing != 30*time.Minute {
		t.Errorf("seed = %+v", opts.Seed)
	}
	if opts.Seed.Base.Temperature != 25 || opts.Seed.Spread.Pressure != 10 {
		t.Errorf("seed base/spread lost defaults: %+v", opts.Seed)
	}
}

func TestOpenStore_unsupportedDriver(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Driver = "mysql"

	_, err := openStore(context.Background(), cfg, logging.Discard())
	if err == nil || !strings.Contains(err.Error(), "unsupported DB_DRIVER") {
		t.Fatalf("openStore() = %v; want unsupported driver error", err)
	}
}

func TestMigrateThenSeed(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)
	logger := logging.Discard()

	if err := Migrate(ctx, cfg, logger); err != nil {
		t.Fatalf("Migrate() = %v", err)
	}
	n, err := Seed(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Seed() = %v", err)
	}
	if n != 5 {
		t.Errorf("Seed() = %d; want 5", n)
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("openStore() = %v", err)
	}
	defer st.close()

	count, err := st.repository.Count(ctx, types.KindMeasured)
	if err != nil {
		t.Fatalf("Count() = %v", err)
	}
	if count != 5 {
		t.Errorf("Count() = %d; want 5", count)
	}
}
