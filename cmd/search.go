package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
	"github.com/desertthunder/tunepool/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Search runs one online search across the enabled catalogs and prints the merged results.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	pinned, err := providerFlag(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("searching catalogs", "query", query)

	results, err := r.searchOnline(ctx, query, pinned)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(results, cmd.Bool("pretty"))
	}

	if len(results) == 0 {
		r.writePlain("No results for %q\n", query)
		return nil
	}
	r.writePlainHeader(fmt.Sprintf("Results for %q (%d)", query, len(results)))
	r.writeTracks(results)
	return nil
}

// Resolve prints the playable URL for a catalog track. Falls back to the origin URI when the catalog fails.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	kind, err := models.ParseProviderTag(cmd.String("provider"))
	if err != nil {
		return err
	}
	if !kind.Online() {
		return fmt.Errorf("%w: %s is not an online catalog", shared.ErrInvalidArgument, kind)
	}

	var id int64
	if raw := cmd.String("id"); raw != "" {
		if id, err = parseID(raw); err != nil {
			return err
		}
	}

	repos, err := r.stores()
	if err != nil {
		return err
	}

	track := models.NewTrack(id, "", "", 0, cmd.String("uri"), kind)
	resolver := tasks.NewResolver(r.catalogs(), repos.Registry, r.config.HTTP.Timeout, shared.WithLogger(r.logger, "component", "resolver"))

	url := resolver.Resolve(ctx, track)
	if url == track.OriginURI() {
		r.logger.Warn("resolution failed, printing origin uri", "provider", kind)
	}
	r.writePlain("%s\n", url)
	return nil
}

// searchOnline sends query through the session's orchestrator and waits for its published result set.
func (r *Runner) searchOnline(ctx context.Context, query string, pinned *models.ProviderTag) ([]models.Track, error) {
	session, err := r.playerSession(ctx, sessionOpts{forceOnline: true, pinned: pinned})
	if err != nil {
		return nil, err
	}

	snaps, unsubscribe := session.Subscribe()
	defer unsubscribe()

	wait := r.config.Search.Debounce + r.config.Search.Timeout + 5*time.Second
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	session.Query(query)

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("search %q: %w", query, ctx.Err())
		case snap, ok := <-snaps:
			if !ok {
				return nil, fmt.Errorf("%w: session closed", shared.ErrServiceUnavailable)
			}
			if snap.Query == query && snap.SearchState == tasks.SearchPublished {
				return snap.Results, nil
			}
		}
	}
}

// pickTrack finds the track a single-track command acts on, from local files or an online search.
func (r *Runner) pickTrack(ctx context.Context, cmd *cli.Command) (models.Track, error) {
	query := strings.TrimSpace(cmd.StringArg("query"))

	var candidates []models.Track
	if cmd.Bool("local") {
		tracks, err := r.localTracks(query, false)
		if err != nil {
			return models.Track{}, err
		}
		candidates = tracks
	} else {
		if query == "" {
			return models.Track{}, fmt.Errorf("%w: query", shared.ErrMissingArgument)
		}
		pinned, err := providerFlag(cmd)
		if err != nil {
			return models.Track{}, err
		}
		if candidates, err = r.searchOnline(ctx, query, pinned); err != nil {
			return models.Track{}, err
		}
	}

	return choose(candidates, int(cmd.Int("index")))
}

func choose(tracks []models.Track, index int) (models.Track, error) {
	if len(tracks) == 0 {
		return models.Track{}, fmt.Errorf("%w: no matching tracks", shared.ErrTrackNotFound)
	}
	if index < 0 || index >= len(tracks) {
		return models.Track{}, fmt.Errorf("%w: index %d out of range [0, %d)", shared.ErrInvalidArgument, index, len(tracks))
	}
	return tracks[index], nil
}

func providerFlag(cmd *cli.Command) (*models.ProviderTag, error) {
	name := cmd.String("provider")
	if name == "" {
		return nil, nil
	}
	kind, err := models.ParseProviderTag(name)
	if err != nil {
		return nil, err
	}
	if !kind.Online() {
		return nil, fmt.Errorf("%w: %s is not an online catalog", shared.ErrInvalidArgument, kind)
	}
	return &kind, nil
}
