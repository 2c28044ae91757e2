package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tunepool/internal/server"
	"github.com/desertthunder/tunepool/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs a player session behind the local control API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := r.config.Server
	if host := cmd.String("host"); host != "" {
		addr.Host = host
	}
	if port := int(cmd.Int("port")); port > 0 {
		addr.Port = port
	}

	repos, err := r.stores()
	if err != nil {
		return err
	}
	session, err := r.playerSession(ctx, sessionOpts{start: true})
	if err != nil {
		return err
	}

	logger := shared.WithLogger(r.logger, "component", "server")

	router := server.NewBasicRouter()
	router.Use(server.Recover(logger), server.LogRequests(logger))
	router.Handler(server.NewAPI(session, repos.Library, repos.Registry, logger))

	if err := server.Serve(ctx, addr.Addr(), router, logger); err != nil {
		return fmt.Errorf("control api: %w", err)
	}
	return nil
}
