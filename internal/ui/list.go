package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	return fmt.Sprintf("%d tracks", len(i.playlist.Tracks))
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track   models.Track
	playing bool
}

func (i trackItem) FilterValue() string { return i.track.Title() + " " + i.track.Artist() }
func (i trackItem) Title() string {
	if i.playing {
		return "▶ " + i.track.Title()
	}
	return i.track.Title()
}
func (i trackItem) Description() string {
	return fmt.Sprintf("%s • %s • %s", i.track.Artist(), shared.FormatDuration(i.track.DurationMs()), i.track.Provider().Label())
}

func trackItems(tracks []models.Track, current *models.Track) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t, playing: current != nil && current.Key() == t.Key()}
	}
	return items
}

func playlistItems(playlists []models.Playlist) []list.Item {
	items := make([]list.Item, len(playlists))
	for i, p := range playlists {
		items[i] = playlistItem{playlist: p}
	}
	return items
}
