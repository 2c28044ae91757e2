package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/repositories"
	"github.com/desertthunder/tunepool/internal/shared"
	"github.com/urfave/cli/v3"
)

type localRow struct {
	Track  models.Track `json:"track"`
	Hidden bool         `json:"hidden"`
}

// Local lists the local library, optionally filtered by query.
func (r *Runner) Local(ctx context.Context, cmd *cli.Command) error {
	repos, err := r.stores()
	if err != nil {
		return err
	}

	includeHidden := cmd.Bool("hidden")
	tracks, err := r.localTracks(cmd.String("query"), includeHidden)
	if err != nil {
		return err
	}

	rows := make([]localRow, len(tracks))
	for i, t := range tracks {
		rows[i] = localRow{Track: t, Hidden: repos.Library.IsHidden(t.ID())}
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Local tracks (%d)", len(rows)))
	for _, row := range rows {
		mark := " "
		if row.Hidden {
			mark = "h"
		}
		r.writePlain("%s %20d  %s - %s [%s]\n", mark, row.Track.ID(), row.Track.Artist(), row.Track.Title(), shared.FormatDuration(row.Track.DurationMs()))
	}
	return nil
}

// Hide excludes a local track from every local view.
func (r *Runner) Hide(ctx context.Context, cmd *cli.Command) error {
	return r.setHidden(cmd, true)
}

// Unhide makes a hidden local track visible again.
func (r *Runner) Unhide(ctx context.Context, cmd *cli.Command) error {
	return r.setHidden(cmd, false)
}

func (r *Runner) setHidden(cmd *cli.Command, hidden bool) error {
	raw, err := requiredArg(cmd, "id")
	if err != nil {
		return err
	}
	id, err := parseID(raw)
	if err != nil {
		return err
	}

	repos, err := r.stores()
	if err != nil {
		return err
	}

	if hidden {
		err = repos.Library.Hide(id)
	} else {
		err = repos.Library.Unhide(id)
	}
	if err != nil {
		return err
	}

	verb := "Unhid"
	if hidden {
		verb = "Hid"
	}
	r.writePlain("%s local track %d\n", verb, id)
	return nil
}

// Online prints or sets the persisted online search toggle.
func (r *Runner) Online(ctx context.Context, cmd *cli.Command) error {
	repos, err := r.stores()
	if err != nil {
		return err
	}

	state := strings.ToLower(strings.TrimSpace(cmd.StringArg("state")))
	switch state {
	case "":
		enabled, err := repos.Settings.GetBool(repositories.KeyOnlineEnabled, r.config.Search.OnlineEnabled)
		if err != nil {
			return err
		}
		r.writePlain("online search: %s\n", onOff(enabled))
		return nil
	case "on", "off":
		if err := repos.Settings.PutBool(repositories.KeyOnlineEnabled, state == "on"); err != nil {
			return err
		}
		r.writePlain("online search: %s\n", state)
		return nil
	default:
		return fmt.Errorf("%w: state must be on or off", shared.ErrInvalidArgument)
	}
}

// localTracks enumerates the configured library roots. Hidden tracks are dropped unless includeHidden is set.
func (r *Runner) localTracks(query string, includeHidden bool) ([]models.Track, error) {
	repos, err := r.stores()
	if err != nil {
		return nil, err
	}

	items := r.localCatalog().Enumerate()
	tracks := make([]models.Track, 0, len(items))
	for _, it := range items {
		t := it.Track()
		if !includeHidden && repos.Library.IsHidden(t.ID()) {
			continue
		}
		if t.Matches(query) {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q is not a number", shared.ErrInvalidArgument, raw)
	}
	return id, nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
