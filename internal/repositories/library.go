package repositories

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
)

// LibraryStore holds the user's playlists, favorites and hidden local tracks.
//
// State is cached in memory and written through to the settings store on every change.
// Favorites is the reserved playlist [models.FavoritesID]; it always exists and cannot be renamed or deleted.
type LibraryStore struct {
	mu        sync.RWMutex
	store     *SettingsStore
	tracks    *TrackRepository
	logger    *log.Logger
	playlists []models.Playlist
	hidden    map[int64]struct{}
}

// NewLibraryStore loads the library from store. Corrupt persisted values are logged and replaced by defaults.
func NewLibraryStore(store *SettingsStore, tracks *TrackRepository, logger *log.Logger) (*LibraryStore, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	l := &LibraryStore{store: store, tracks: tracks, logger: logger, hidden: make(map[int64]struct{})}

	if err := l.loadPlaylists(); err != nil {
		return nil, err
	}
	if err := l.loadHidden(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LibraryStore) loadPlaylists() error {
	l.playlists = []models.Playlist{models.NewFavorites()}

	raw, ok, err := l.store.GetString(KeyUserPlaylists)
	if err != nil || !ok {
		return err
	}

	var saved []models.Playlist
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		l.logger.Warn("ignoring corrupt playlists", "err", err)
		return nil
	}

	for _, p := range saved {
		if p.ID == "" {
			continue
		}
		if p.Tracks == nil {
			p.Tracks = []models.TrackKey{}
		}
		if p.IsFavorites() {
			l.playlists[0] = p
			continue
		}
		l.playlists = append(l.playlists, p)
	}
	return nil
}

func (l *LibraryStore) loadHidden() error {
	ids, err := l.store.GetStringSet(KeyHiddenSongs)
	if err != nil {
		l.logger.Warn("ignoring corrupt hidden set", "err", err)
		return nil
	}

	for _, s := range ids {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			l.logger.Warn("skipping malformed hidden id", "id", s)
			continue
		}
		l.hidden[id] = struct{}{}
	}
	return nil
}

// Playlists returns every playlist, favorites first.
func (l *LibraryStore) Playlists() []models.Playlist {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Playlist, len(l.playlists))
	for i, p := range l.playlists {
		p.Tracks = slices.Clone(p.Tracks)
		out[i] = p
	}
	return out
}

// Playlist returns the playlist with id.
func (l *LibraryStore) Playlist(id string) (models.Playlist, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := l.indexOf(id)
	if idx < 0 {
		return models.Playlist{}, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	p := l.playlists[idx]
	p.Tracks = slices.Clone(p.Tracks)
	return p, nil
}

// CreatePlaylist adds an empty playlist named name.
func (l *LibraryStore) CreatePlaylist(name string) (models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Playlist{}, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p := models.Playlist{ID: shared.GenerateID(), Name: name, Tracks: []models.TrackKey{}}
	next := append(slices.Clone(l.playlists), p)
	if err := l.savePlaylists(next); err != nil {
		return models.Playlist{}, err
	}
	l.playlists = next
	return p, nil
}

// RenamePlaylist changes the name of a user playlist.
func (l *LibraryStore) RenamePlaylist(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}
	return l.update(id, true, func(p models.Playlist) models.Playlist {
		p.Name = name
		return p
	})
}

// DeletePlaylist removes a user playlist.
func (l *LibraryStore) DeletePlaylist(id string) error {
	if id == models.FavoritesID {
		return fmt.Errorf("%w: %s", shared.ErrReservedPlaylist, id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	next := slices.Delete(slices.Clone(l.playlists), idx, idx+1)
	if err := l.savePlaylists(next); err != nil {
		return err
	}
	l.playlists = next
	return nil
}

// AddToPlaylist appends track to the playlist. Online tracks are stored so the playlist can list them later.
//
// Adding a track that is already present is a no-op.
func (l *LibraryStore) AddToPlaylist(id string, track models.Track) error {
	if track.Provider().Online() && l.tracks != nil {
		if err := l.tracks.Save(track); err != nil {
			return err
		}
	}
	return l.update(id, false, func(p models.Playlist) models.Playlist {
		return p.With(track.Key())
	})
}

// RemoveFromPlaylist removes key from the playlist.
func (l *LibraryStore) RemoveFromPlaylist(id string, key models.TrackKey) error {
	return l.update(id, false, func(p models.Playlist) models.Playlist {
		return p.Without(key)
	})
}

// IsFavorite reports whether key is in favorites.
func (l *LibraryStore) IsFavorite(key models.TrackKey) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.playlists[0].Contains(key)
}

// ToggleFavorite adds or removes track from favorites and returns the new state.
func (l *LibraryStore) ToggleFavorite(track models.Track) (bool, error) {
	if l.IsFavorite(track.Key()) {
		return false, l.RemoveFromPlaylist(models.FavoritesID, track.Key())
	}
	return true, l.AddToPlaylist(models.FavoritesID, track)
}

// Hide excludes the local track id from every local view.
func (l *LibraryStore) Hide(id int64) error {
	return l.setHidden(id, true)
}

// Unhide makes the local track id visible again.
func (l *LibraryStore) Unhide(id int64) error {
	return l.setHidden(id, false)
}

// IsHidden reports whether the local track id is hidden.
func (l *LibraryStore) IsHidden(id int64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.hidden[id]
	return ok
}

// Hidden returns the hidden ids in ascending order.
func (l *LibraryStore) Hidden() []int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]int64, 0, len(l.hidden))
	for id := range l.hidden {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// StoredTracks returns every online track kept for playlists.
func (l *LibraryStore) StoredTracks() ([]models.Track, error) {
	if l.tracks == nil {
		return []models.Track{}, nil
	}
	return l.tracks.List()
}

// TracksIn resolves the playlist's keys against local and stored tracks, in playlist order.
//
// Keys that resolve to neither are skipped.
func (l *LibraryStore) TracksIn(id string, local []models.Track) ([]models.Track, error) {
	p, err := l.Playlist(id)
	if err != nil {
		return nil, err
	}

	stored, err := l.StoredTracks()
	if err != nil {
		return nil, err
	}

	known := make(map[models.TrackKey]models.Track, len(local)+len(stored))
	for _, t := range local {
		known[t.Key()] = t
	}
	for _, t := range stored {
		if _, ok := known[t.Key()]; !ok {
			known[t.Key()] = t
		}
	}

	out := make([]models.Track, 0, len(p.Tracks))
	for _, key := range p.Tracks {
		if t, ok := known[key]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (l *LibraryStore) setHidden(id int64, hidden bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := make(map[int64]struct{}, len(l.hidden)+1)
	for k := range l.hidden {
		next[k] = struct{}{}
	}
	if hidden {
		next[id] = struct{}{}
	} else {
		delete(next, id)
	}

	values := make([]string, 0, len(next))
	for k := range next {
		values = append(values, strconv.FormatInt(k, 10))
	}
	if err := l.store.PutStringSet(KeyHiddenSongs, values); err != nil {
		return err
	}
	l.hidden = next
	return nil
}

// update applies fn to the playlist with id and persists the result.
func (l *LibraryStore) update(id string, userOnly bool, fn func(models.Playlist) models.Playlist) error {
	if userOnly && id == models.FavoritesID {
		return fmt.Errorf("%w: %s", shared.ErrReservedPlaylist, id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	next := slices.Clone(l.playlists)
	next[idx] = fn(next[idx])
	if err := l.savePlaylists(next); err != nil {
		return err
	}
	l.playlists = next
	return nil
}

func (l *LibraryStore) indexOf(id string) int {
	return slices.IndexFunc(l.playlists, func(p models.Playlist) bool { return p.ID == id })
}

func (l *LibraryStore) savePlaylists(playlists []models.Playlist) error {
	data, err := json.Marshal(playlists)
	if err != nil {
		return fmt.Errorf("failed to encode playlists: %w", err)
	}
	return l.store.PutString(KeyUserPlaylists, string(data))
}
