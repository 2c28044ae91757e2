package models

import (
	"fmt"
	"slices"
	"strings"
)

// FavoritesID is the reserved id of the playlist backing favorites.
const FavoritesID = "favorites"

// Playlist is an ordered list of track keys.
type Playlist struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Tracks []TrackKey `json:"tracks"`
}

// NewFavorites returns the empty favorites playlist.
func NewFavorites() Playlist {
	return Playlist{ID: FavoritesID, Name: "Favorites", Tracks: []TrackKey{}}
}

// IsFavorites reports whether p is the reserved favorites playlist.
func (p Playlist) IsFavorites() bool {
	return p.ID == FavoritesID
}

// Contains reports membership of key.
func (p Playlist) Contains(key TrackKey) bool {
	return slices.Contains(p.Tracks, key)
}

// With returns a copy with key appended; already present keys are not duplicated.
func (p Playlist) With(key TrackKey) Playlist {
	if p.Contains(key) {
		return p
	}
	p.Tracks = append(slices.Clone(p.Tracks), key)
	return p
}

// Without returns a copy with key removed.
func (p Playlist) Without(key TrackKey) Playlist {
	p.Tracks = slices.DeleteFunc(slices.Clone(p.Tracks), func(k TrackKey) bool { return k == key })
	return p
}

// QueueSource names the list a play queue was drawn from.
type QueueSource int

const (
	SourceLocal QueueSource = iota
	SourceSearch
	SourceLibrary
)

func (s QueueSource) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceSearch:
		return "search"
	case SourceLibrary:
		return "library"
	default:
		return ""
	}
}

// ParseQueueSource is the inverse of [QueueSource.String].
func ParseQueueSource(s string) (QueueSource, error) {
	for _, src := range []QueueSource{SourceLocal, SourceSearch, SourceLibrary} {
		if strings.EqualFold(strings.TrimSpace(s), src.String()) {
			return src, nil
		}
	}
	return 0, fmt.Errorf("unknown queue source %q", s)
}
