package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Track is one playable item. Fields are unexported so a Track cannot change after construction.
type Track struct {
	id         int64
	title      string
	artist     string
	durationMs int64
	originURI  string
	provider   ProviderTag
}

// NewTrack builds a Track; blank titles and artists become "Unknown".
func NewTrack(id int64, title, artist string, durationMs int64, originURI string, provider ProviderTag) Track {
	if strings.TrimSpace(title) == "" {
		title = Unknown
	}
	if strings.TrimSpace(artist) == "" {
		artist = Unknown
	}
	if durationMs < 0 {
		durationMs = 0
	}
	return Track{
		id:         id,
		title:      title,
		artist:     artist,
		durationMs: durationMs,
		originURI:  originURI,
		provider:   provider,
	}
}

// Unknown is the placeholder for missing metadata.
const Unknown = "Unknown"

func (t Track) ID() int64             { return t.id }
func (t Track) Title() string         { return t.title }
func (t Track) Artist() string        { return t.artist }
func (t Track) DurationMs() int64     { return t.durationMs }
func (t Track) OriginURI() string     { return t.originURI }
func (t Track) Provider() ProviderTag { return t.provider }

// Key returns the composite identity of the track.
func (t Track) Key() TrackKey {
	return TrackKey{Provider: t.provider, OriginURI: t.originURI}
}

// Matches reports whether query is blank or found in the title or artist, ignoring case.
func (t Track) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.title), q) || strings.Contains(strings.ToLower(t.artist), q)
}

type trackJSON struct {
	ID         int64       `json:"id"`
	Title      string      `json:"title"`
	Artist     string      `json:"artist"`
	DurationMs int64       `json:"duration_ms"`
	OriginURI  string      `json:"origin_uri"`
	Provider   ProviderTag `json:"provider"`
}

func (t Track) MarshalJSON() ([]byte, error) {
	return json.Marshal(trackJSON{
		ID:         t.id,
		Title:      t.title,
		Artist:     t.artist,
		DurationMs: t.durationMs,
		OriginURI:  t.originURI,
		Provider:   t.provider,
	})
}

func (t *Track) UnmarshalJSON(b []byte) error {
	var tj trackJSON
	if err := json.Unmarshal(b, &tj); err != nil {
		return err
	}
	*t = NewTrack(tj.ID, tj.Title, tj.Artist, tj.DurationMs, tj.OriginURI, tj.Provider)
	return nil
}

// TrackKey identifies a track across providers. Dedup and playlist membership key on it.
type TrackKey struct {
	Provider  ProviderTag `json:"provider"`
	OriginURI string      `json:"origin_uri"`
}

// String renders the key as PROVIDER|uri; it doubles as the playback engine's stable item id.
func (k TrackKey) String() string {
	return k.Provider.String() + "|" + k.OriginURI
}

// ParseTrackKey is the inverse of [TrackKey.String].
func ParseTrackKey(s string) (TrackKey, error) {
	name, uri, ok := strings.Cut(s, "|")
	if !ok || uri == "" {
		return TrackKey{}, fmt.Errorf("malformed track key %q", s)
	}
	tag, err := ParseProviderTag(name)
	if err != nil {
		return TrackKey{}, err
	}
	return TrackKey{Provider: tag, OriginURI: uri}, nil
}

// LocalItem is one entry produced by the local media catalog.
type LocalItem struct {
	ID         int64
	Title      string
	Artist     string
	DurationMs int64
	URI        string
}

// Track converts the item to a [Local] track.
func (i LocalItem) Track() Track {
	return NewTrack(i.ID, i.Title, i.Artist, i.DurationMs, i.URI, Local)
}

// DedupByOrigin keeps the first track for each origin uri, preserving order.
func DedupByOrigin(tracks []Track) []Track {
	seen := make(map[string]struct{}, len(tracks))
	out := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		if _, ok := seen[t.originURI]; ok {
			continue
		}
		seen[t.originURI] = struct{}{}
		out = append(out, t)
	}
	return out
}

// IndexOf returns the position of key in tracks, or -1.
func IndexOf(tracks []Track, key TrackKey) int {
	for i, t := range tracks {
		if t.Key() == key {
			return i
		}
	}
	return -1
}
