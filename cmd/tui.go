package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunepool/internal/shared"
	"github.com/desertthunder/tunepool/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive player.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	path := r.config.Log.File
	if path == "" {
		path = "./tmp/tunepool-tui.log"
	}
	fileLogger, err := shared.NewFileLogger(path)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	repos, err := r.stores()
	if err != nil {
		return err
	}
	session, err := r.playerSession(ctx, sessionOpts{start: true})
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, session, repos.Library)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
