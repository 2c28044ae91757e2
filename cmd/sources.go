package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/repositories"
	"github.com/desertthunder/tunepool/internal/shared"
	"github.com/urfave/cli/v3"
)

type sourceRow struct {
	Provider models.ProviderTag `json:"platform"`
	Name     string             `json:"name"`
	URL      string             `json:"url"`
	Builtin  bool               `json:"builtin"`
	Selected bool               `json:"selected"`
}

// SourcesList prints every endpoint grouped by catalog.
func (r *Runner) SourcesList(ctx context.Context, cmd *cli.Command) error {
	repos, err := r.stores()
	if err != nil {
		return err
	}

	var rows []sourceRow
	for _, kind := range models.Providers() {
		selected, _ := repos.Registry.Selected(kind)
		for _, e := range repos.Registry.EndpointsFor(kind) {
			rows = append(rows, sourceRow{
				Provider: kind,
				Name:     e.DisplayName,
				URL:      e.BaseURL,
				Builtin:  repositories.IsBuiltin(e),
				Selected: e == selected,
			})
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Catalog endpoints")
	for _, row := range rows {
		mark := " "
		if row.Selected {
			mark = "*"
		}
		origin := "custom"
		if row.Builtin {
			origin = "builtin"
		}
		r.writePlain("%s %-8s %-20s %s (%s)\n", mark, row.Provider.Label(), row.Name, row.URL, origin)
	}
	return nil
}

// SourcesAdd registers a custom endpoint.
func (r *Runner) SourcesAdd(ctx context.Context, cmd *cli.Command) error {
	kind, err := onlineProvider(cmd.StringArg("provider"))
	if err != nil {
		return err
	}
	name := strings.TrimSpace(cmd.StringArg("name"))
	url := strings.TrimSpace(cmd.StringArg("url"))
	if name == "" || url == "" {
		return fmt.Errorf("%w: name and url", shared.ErrMissingArgument)
	}

	repos, err := r.stores()
	if err != nil {
		return err
	}

	endpoint := models.CatalogEndpoint{DisplayName: name, BaseURL: url, Provider: kind}
	if err := repos.Registry.Add(endpoint); err != nil {
		return err
	}
	r.writePlain("Added %s endpoint %s (%s)\n", kind.Label(), name, url)
	return nil
}

// SourcesRemove deletes a custom endpoint. Built-in endpoints cannot be removed.
func (r *Runner) SourcesRemove(ctx context.Context, cmd *cli.Command) error {
	repos, endpoint, err := r.endpointArg(cmd)
	if err != nil {
		return err
	}
	if err := repos.Registry.Remove(endpoint); err != nil {
		return err
	}
	r.writePlain("Removed %s endpoint %s\n", endpoint.Provider.Label(), endpoint.BaseURL)
	return nil
}

// SourcesSelect makes an endpoint the one used for its catalog.
func (r *Runner) SourcesSelect(ctx context.Context, cmd *cli.Command) error {
	repos, endpoint, err := r.endpointArg(cmd)
	if err != nil {
		return err
	}
	if err := repos.Registry.Select(endpoint.Provider, endpoint); err != nil {
		return err
	}
	r.writePlain("Selected %s endpoint %s\n", endpoint.Provider.Label(), endpoint.BaseURL)
	return nil
}

func (r *Runner) endpointArg(cmd *cli.Command) (*repositories.Repositories, models.CatalogEndpoint, error) {
	kind, err := onlineProvider(cmd.StringArg("provider"))
	if err != nil {
		return nil, models.CatalogEndpoint{}, err
	}
	url := strings.TrimRight(strings.TrimSpace(cmd.StringArg("url")), "/")
	if url == "" {
		return nil, models.CatalogEndpoint{}, fmt.Errorf("%w: url", shared.ErrMissingArgument)
	}

	repos, err := r.stores()
	if err != nil {
		return nil, models.CatalogEndpoint{}, err
	}

	for _, e := range repos.Registry.EndpointsFor(kind) {
		if e.Base() == url {
			return repos, e, nil
		}
	}
	return nil, models.CatalogEndpoint{}, fmt.Errorf("%w: %s %s", shared.ErrEndpointNotFound, kind, url)
}

func onlineProvider(name string) (models.ProviderTag, error) {
	if strings.TrimSpace(name) == "" {
		return models.Local, fmt.Errorf("%w: provider", shared.ErrMissingArgument)
	}
	kind, err := models.ParseProviderTag(name)
	if err != nil {
		return models.Local, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	if !kind.Online() {
		return models.Local, fmt.Errorf("%w: %s is not an online catalog", shared.ErrInvalidArgument, kind)
	}
	return kind, nil
}
