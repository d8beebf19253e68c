package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"prodline-server/internal/app"
	"prodline-server/internal/config"
	"prodline-server/internal/logging"
)

const (
	appName = "prodline-server"
	// Default version is "dev" if not set with -ldflags "-X main.version=..."
	version = "dev"
)

const usage = "usage: prodline-server [serve|migrate|seed]"

func main() {
	loadDotEnv()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg, version, appName)

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	logger.Info("starting",
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
		"command", command,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "serve":
		err = app.Run(ctx, cfg, logger)
	case "migrate":
		err = app.Migrate(ctx, cfg, logger)
	case "seed":
		var n int
		n, err = app.Seed(ctx, cfg, logger)
		if err == nil {
			logger.Info("seed complete", "rows", n)
		}
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run failed", "command", command, "err", err)
		os.Exit(1)
	}

	logger.Info("shutting down")
}

// loadDotEnv loads the first .env found in the working directory or its two
// parents. Real environment variables win over the file.
func loadDotEnv() {
	workDir, err := os.Getwd()
	if err != nil {
		return
	}
	parent := filepath.Dir(workDir)
	for _, dir := range []string{workDir, parent, filepath.Dir(parent)} {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			fmt.Fprintf(os.Stderr, "loaded environment from %s\n", path)
			return
		}
	}
}
