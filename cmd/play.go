package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
	"github.com/desertthunder/tunepool/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Play starts a track from search results, the local library or a playlist, then follows the queue until interrupted.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	playlist := strings.TrimSpace(cmd.String("playlist"))
	fromSearch := playlist == "" && !cmd.Bool("local")

	var (
		session    *tasks.Session
		candidates []models.Track
		source     models.QueueSource
		err        error
	)

	if fromSearch {
		if query == "" {
			return fmt.Errorf("%w: query", shared.ErrMissingArgument)
		}
		pinned, err := providerFlag(cmd)
		if err != nil {
			return err
		}
		if candidates, err = r.searchOnline(ctx, query, pinned); err != nil {
			return err
		}
		source = models.SourceSearch
	}

	if session, err = r.playerSession(ctx, sessionOpts{forceOnline: fromSearch}); err != nil {
		return err
	}
	session.Rescan()

	switch {
	case playlist != "":
		if err := session.OpenPlaylist(playlist); err != nil {
			return err
		}
		candidates = filterTracks(session.Snapshot().PlaylistTracks, query)
		source = models.SourceLibrary
	case !fromSearch:
		candidates = filterTracks(session.Snapshot().Local, query)
		source = models.SourceLocal
	}

	track, err := choose(candidates, int(cmd.Int("index")))
	if err != nil {
		return err
	}

	snaps, unsubscribe := session.Subscribe()
	defer unsubscribe()

	session.Watch(ctx)
	if err := session.Play(ctx, track, source); err != nil {
		return err
	}
	r.logger.Info("playing", "track", track.Key(), "source", source)

	return r.follow(ctx, snaps)
}

// follow prints status changes until ctx ends or the queue hits a terminal error.
func (r *Runner) follow(ctx context.Context, snaps <-chan tasks.Snapshot) error {
	var lastStatus, lastError string
	for {
		select {
		case <-ctx.Done():
			r.writePlain("\n")
			return nil
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			if snap.Error != "" && snap.Error != lastError {
				lastError = snap.Error
				r.writePlain("\n! %s\n", snap.Error)
				if !snap.IsPlaying && strings.HasPrefix(snap.Error, shared.ErrPlaybackFailed.Error()) {
					return shared.ErrPlaybackFailed
				}
			}
			if status := snap.Status(); status != lastStatus {
				lastStatus = status
				r.writePlain("\r%-72s", status)
			}
		}
	}
}

func filterTracks(tracks []models.Track, query string) []models.Track {
	out := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.Matches(query) {
			out = append(out, t)
		}
	}
	return out
}
