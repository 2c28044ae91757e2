package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/repositories"
	"github.com/desertthunder/tunepool/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase writes a default config when none exists, migrates the database and seeds the library.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if configPath == "" {
		configPath = r.configPath
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		return err
	}
	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.OpenStore(config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	repos, err := repositories.Open(db, shared.WithLogger(r.logger, "component", "repositories"))
	if err != nil {
		return err
	}

	r.writePlainHeader("Setup complete")
	r.writePlain("Config:    %s\n", configPath)
	r.writePlain("Database:  %s\n", config.Database.Path)
	r.writePlain("Playlists: %d\n", len(repos.Library.Playlists()))
	for _, kind := range models.Providers() {
		if e, ok := repos.Registry.Selected(kind); ok {
			r.writePlain("%-9s  %s\n", kind.Label()+":", e.BaseURL)
		}
	}
	return nil
}
