package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/tunepool/internal/formatter"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
	"github.com/desertthunder/tunepool/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistsList prints every playlist with its track count. Favorites is always first.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	repos, err := r.stores()
	if err != nil {
		return err
	}

	playlists := repos.Library.Playlists()
	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(playlists)))
	for _, p := range playlists {
		r.writePlain("%-36s %-24s %d tracks\n", p.ID, p.Name, len(p.Tracks))
	}
	return nil
}

// PlaylistsShow prints the tracks of one playlist. Keys that no longer resolve are skipped.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requiredArg(cmd, "id")
	if err != nil {
		return err
	}

	repos, err := r.stores()
	if err != nil {
		return err
	}

	playlist, err := repos.Library.Playlist(id)
	if err != nil {
		return err
	}
	local, err := r.localTracks("", true)
	if err != nil {
		return err
	}
	tracks, err := repos.Library.TracksIn(id, local)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s (%d)", playlist.Name, len(tracks)))
	r.writeTracks(tracks)
	if missing := len(playlist.Tracks) - len(tracks); missing > 0 {
		r.writePlainln("%d track(s) could not be found", missing)
	}
	return nil
}

// PlaylistsCreate adds an empty playlist.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	repos, err := r.stores()
	if err != nil {
		return err
	}

	p, err := repos.Library.CreatePlaylist(cmd.StringArg("name"))
	if err != nil {
		return err
	}
	r.writePlain("Created playlist %s (%s)\n", p.Name, p.ID)
	return nil
}

// PlaylistsRename renames a user playlist.
func (r *Runner) PlaylistsRename(ctx context.Context, cmd *cli.Command) error {
	id, err := requiredArg(cmd, "id")
	if err != nil {
		return err
	}

	repos, err := r.stores()
	if err != nil {
		return err
	}

	if err := repos.Library.RenamePlaylist(id, cmd.StringArg("name")); err != nil {
		return err
	}
	r.writePlain("Renamed playlist %s\n", id)
	return nil
}

// PlaylistsDelete removes a user playlist.
func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requiredArg(cmd, "id")
	if err != nil {
		return err
	}

	repos, err := r.stores()
	if err != nil {
		return err
	}

	if err := repos.Library.DeletePlaylist(id); err != nil {
		return err
	}
	r.writePlain("Deleted playlist %s\n", id)
	return nil
}

// PlaylistsAdd searches for a track and appends it to a playlist.
func (r *Runner) PlaylistsAdd(ctx context.Context, cmd *cli.Command) error {
	id, err := requiredArg(cmd, "id")
	if err != nil {
		return err
	}

	repos, err := r.stores()
	if err != nil {
		return err
	}
	if _, err := repos.Library.Playlist(id); err != nil {
		return err
	}

	track, err := r.pickTrack(ctx, cmd)
	if err != nil {
		return err
	}

	if err := repos.Library.AddToPlaylist(id, track); err != nil {
		return err
	}
	r.writePlain("Added %s - %s to %s\n", track.Artist(), track.Title(), id)
	return nil
}

// PlaylistsRemove removes a track by its key (PROVIDER|uri).
func (r *Runner) PlaylistsRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := requiredArg(cmd, "id")
	if err != nil {
		return err
	}
	raw, err := requiredArg(cmd, "key")
	if err != nil {
		return err
	}
	key, err := models.ParseTrackKey(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	repos, err := r.stores()
	if err != nil {
		return err
	}

	if err := repos.Library.RemoveFromPlaylist(id, key); err != nil {
		return err
	}
	r.writePlain("Removed %s from %s\n", key, id)
	return nil
}

// PlaylistsExport writes playlists to files in the chosen format, one file per playlist plus a manifest.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	format := strings.ToLower(cmd.String("format"))
	if !slices.Contains(formatter.Formats(), format) {
		return fmt.Errorf("%w: format must be one of %s", shared.ErrInvalidArgument, strings.Join(formatter.Formats(), ", "))
	}

	repos, err := r.stores()
	if err != nil {
		return err
	}

	ids := cmd.StringSlice("id")
	if len(ids) == 0 {
		for _, p := range repos.Library.Playlists() {
			ids = append(ids, p.ID)
		}
	}

	local, err := r.localTracks("", true)
	if err != nil {
		return err
	}

	r.logger.Info("exporting playlists", "count", len(ids), "format", format)

	result, err := tasks.ExportPlaylists(ctx, repos.Library, local, ids, tasks.ExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
	})
	if err != nil {
		return err
	}

	r.writePlainHeader("Export complete")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Succeeded: %d\n", result.Succeeded)
	r.writePlain("Failed:    %d\n", result.Failed)
	for _, res := range result.Results {
		if res.Error != "" {
			r.writePlain("  ✗ %s: %s\n", res.PlaylistID, res.Error)
		}
	}
	if result.ManifestPath != "" {
		r.writePlain("Manifest:  %s\n", result.ManifestPath)
	}
	return nil
}

// FavoritesToggle adds a track to favorites, or removes it when already there.
func (r *Runner) FavoritesToggle(ctx context.Context, cmd *cli.Command) error {
	repos, err := r.stores()
	if err != nil {
		return err
	}

	track, err := r.pickTrack(ctx, cmd)
	if err != nil {
		return err
	}

	added, err := repos.Library.ToggleFavorite(track)
	if err != nil {
		return err
	}
	if added {
		r.writePlain("♥ %s - %s added to favorites\n", track.Artist(), track.Title())
	} else {
		r.writePlain("♡ %s - %s removed from favorites\n", track.Artist(), track.Title())
	}
	return nil
}

func requiredArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.StringArg(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}
