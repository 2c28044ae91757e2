package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/desertthunder/tunepool/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	if env := os.Getenv("TUNEPOOL_CONFIG"); env != "" {
		configPath = env
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		loadedConfig, err := shared.LoadConfig(configPath)
		if err != nil {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		} else {
			config = loadedConfig
		}
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "tunepool",
		Usage:    "Search, queue and play music from local files and online catalogs",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := app.Run(ctx, os.Args)
	stop()
	runner.Close()

	if err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
