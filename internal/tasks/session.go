package tasks

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/player"
	"github.com/desertthunder/tunepool/internal/repositories"
	"github.com/desertthunder/tunepool/internal/services"
	"github.com/desertthunder/tunepool/internal/shared"
)

// LocalCatalog enumerates local media.
type LocalCatalog interface {
	Enumerate() []models.LocalItem
}

// Library is the part of the library store the session reads and mutates.
type Library interface {
	IsHidden(id int64) bool
	Hide(id int64) error
	Unhide(id int64) error
	TracksIn(id string, local []models.Track) ([]models.Track, error)
}

// Preferences persists session toggles.
type Preferences interface {
	PutBool(key string, value bool) error
	PutString(key, value string) error
	Delete(key string) error
}

// SessionDeps are the collaborators of a [Session]. The engine is owned by the caller.
type SessionDeps struct {
	Providers   map[models.ProviderTag]services.Provider
	Endpoints   EndpointSource
	Engine      player.Engine
	Catalog     LocalCatalog
	Library     Library
	Preferences Preferences
	Logger      *log.Logger
}

// SessionOptions tunes a [Session].
type SessionOptions struct {
	Workers        int
	Debounce       time.Duration
	SearchTimeout  time.Duration
	ResolveTimeout time.Duration
	PollInterval   time.Duration
	Online         bool
	Pinned         *models.ProviderTag
}

// Session wires the search orchestrator, queue controller and position poller around one owner loop.
type Session struct {
	loop     *Loop
	pool     *Pool
	search   *Orchestrator
	resolver *Resolver
	queue    *QueueController
	poller   *Poller
	deps     SessionDeps
	logger   *log.Logger

	// owned by the loop
	localAll      []models.Track
	playlistID    string
	playlistItems []models.Track

	mu     sync.Mutex
	subs   map[int]chan Snapshot
	nextID int
	closed bool
}

// NewSession builds a session. Call Start to scan the local catalog and begin position polling.
func NewSession(deps SessionDeps, opts SessionOptions) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := &Session{
		loop:   NewLoop(),
		pool:   NewPool(opts.Workers),
		deps:   deps,
		logger: logger,
		subs:   make(map[int]chan Snapshot),
	}

	s.resolver = NewResolver(deps.Providers, deps.Endpoints, opts.ResolveTimeout, shared.WithLogger(logger, "component", "resolver"))
	s.search = NewOrchestrator(s.loop, s.pool, deps.Providers, deps.Endpoints, SearchOptions{
		Debounce: opts.Debounce,
		Timeout:  opts.SearchTimeout,
		Online:   opts.Online,
	}, shared.WithLogger(logger, "component", "search"), s.publish)
	s.queue = NewQueueController(s.loop, s.pool, deps.Engine, s.resolver, s.sourceList, shared.WithLogger(logger, "component", "queue"), s.publish)
	s.poller = NewPoller(deps.Engine, opts.PollInterval, func(int64) { s.loop.Post(s.publish) })

	if opts.Pinned != nil {
		pinned := *opts.Pinned
		s.loop.Post(func() { s.search.SetPinned(pinned) })
	}

	return s
}

// Start scans the local catalog in the background and starts the position poller.
func (s *Session) Start(ctx context.Context) {
	s.Watch(ctx)
	go s.Rescan()
}

// Watch starts only the position poller, for callers that scan on their own.
func (s *Session) Watch(ctx context.Context) {
	s.poller.Start(ctx)
}

// Rescan enumerates the local catalog and reloads the local queue. Returns the number of local tracks.
func (s *Session) Rescan() int {
	if s.deps.Catalog == nil {
		return 0
	}

	items := s.deps.Catalog.Enumerate()
	tracks := make([]models.Track, len(items))
	for i, it := range items {
		tracks[i] = it.Track()
	}

	s.loop.Do(func() {
		s.localAll = tracks
		s.queue.SyncLocal(s.localFiltered())
	})
	s.logger.Info("local library scanned", "tracks", len(tracks))
	return len(tracks)
}

// localFiltered returns local tracks that are not hidden and match the current query. Runs on the loop.
func (s *Session) localFiltered() []models.Track {
	query := s.search.Session().Query
	out := make([]models.Track, 0, len(s.localAll))
	for _, t := range s.localAll {
		if s.deps.Library != nil && s.deps.Library.IsHidden(t.ID()) {
			continue
		}
		if t.Matches(query) {
			out = append(out, t)
		}
	}
	return out
}

// sourceList implements [SourceFunc]. Runs on the loop.
func (s *Session) sourceList(source models.QueueSource) []models.Track {
	switch source {
	case models.SourceLocal:
		return s.localFiltered()
	case models.SourceSearch:
		return s.search.Results()
	case models.SourceLibrary:
		return s.playlistItems
	default:
		return nil
	}
}

// Query updates the search query.
func (s *Session) Query(text string) {
	s.loop.Post(func() { s.search.Query(text) })
}

// SetOnline persists and applies the online search toggle.
func (s *Session) SetOnline(enabled bool) error {
	if s.deps.Preferences != nil {
		if err := s.deps.Preferences.PutBool(repositories.KeyOnlineEnabled, enabled); err != nil {
			return err
		}
	}
	s.loop.Post(func() { s.search.SetOnline(enabled) })
	return nil
}

// SetPinned limits searches to one catalog.
func (s *Session) SetPinned(kind models.ProviderTag) error {
	if !kind.Online() {
		return fmt.Errorf("%w: %s is not an online catalog", shared.ErrInvalidArgument, kind)
	}
	if s.deps.Preferences != nil {
		if err := s.deps.Preferences.PutString(repositories.KeyPinnedProvider, kind.String()); err != nil {
			return err
		}
	}
	s.loop.Post(func() { s.search.SetPinned(kind) })
	return nil
}

// ClearPinned searches every catalog.
func (s *Session) ClearPinned() error {
	if s.deps.Preferences != nil {
		if err := s.deps.Preferences.Delete(repositories.KeyPinnedProvider); err != nil {
			return err
		}
	}
	s.loop.Post(func() { s.search.ClearPinned() })
	return nil
}

// Hide hides a local track and reloads the local queue.
func (s *Session) Hide(id int64) error {
	if err := s.deps.Library.Hide(id); err != nil {
		return err
	}
	s.loop.Do(func() { s.queue.SyncLocal(s.localFiltered()) })
	return nil
}

// Unhide restores a hidden local track and reloads the local queue.
func (s *Session) Unhide(id int64) error {
	if err := s.deps.Library.Unhide(id); err != nil {
		return err
	}
	s.loop.Do(func() { s.queue.SyncLocal(s.localFiltered()) })
	return nil
}

// OpenPlaylist makes the playlist's tracks the library source list.
func (s *Session) OpenPlaylist(id string) error {
	var local []models.Track
	s.loop.Do(func() { local = s.localAll })

	tracks, err := s.deps.Library.TracksIn(id, local)
	if err != nil {
		return err
	}

	s.loop.Do(func() {
		s.playlistID = id
		s.playlistItems = tracks
		s.publish()
	})
	return nil
}

// RefreshPlaylist reloads the open playlist after the library changed. Does nothing when none is open.
func (s *Session) RefreshPlaylist() error {
	var id string
	s.loop.Do(func() { id = s.playlistID })
	if id == "" {
		return nil
	}
	return s.OpenPlaylist(id)
}

// Play starts track from the given source list.
func (s *Session) Play(ctx context.Context, track models.Track, source models.QueueSource) error {
	return s.queue.Play(ctx, track, source)
}

// TogglePlay pauses or resumes playback.
func (s *Session) TogglePlay() { s.loop.Post(s.queue.TogglePlay) }

// Next skips to the next track.
func (s *Session) Next() { s.loop.Post(s.queue.Next) }

// Previous returns to the previous track.
func (s *Session) Previous() { s.loop.Post(s.queue.Previous) }

// SeekFraction seeks to a fraction of the current track.
func (s *Session) SeekFraction(f float64) {
	s.loop.Post(func() { s.queue.SeekFraction(f) })
}

// DismissError clears the playback error.
func (s *Session) DismissError() { s.loop.Post(s.queue.DismissError) }

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot
	s.loop.Do(func() { snap = s.build() })
	return snap
}

// Subscribe returns a channel receiving the latest snapshot after every change, and a function to unsubscribe.
//
// Slow readers only miss intermediate snapshots, never the latest one.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	s.loop.Post(s.publish)

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
}

// publish sends a fresh snapshot to every subscriber. Runs on the loop.
func (s *Session) publish() {
	snap := s.build()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		sendLatest(ch, snap)
	}
}

func (s *Session) build() Snapshot {
	sess := s.search.Session()
	pinned, hasPinned := s.search.Pinned()
	queue, source := s.queue.Queue()

	snap := Snapshot{
		Query:          sess.Query,
		Generation:     sess.Generation,
		SearchState:    s.search.State(),
		Results:        slices.Clone(s.search.Results()),
		Dropped:        s.search.Dropped(),
		Online:         s.search.Online(),
		Pinned:         pinned,
		HasPinned:      hasPinned,
		Local:          s.localFiltered(),
		Queue:          slices.Clone(queue),
		QueueSource:    source,
		CurrentIndex:   s.queue.CurrentIndex(),
		IsPlaying:      s.queue.IsPlaying(),
		PositionMs:     s.poller.Position(),
		Error:          s.queue.Error(),
		PlaylistID:     s.playlistID,
		PlaylistTracks: slices.Clone(s.playlistItems),
	}
	if t, ok := s.queue.Current(); ok {
		snap.Current = &t
	}
	return snap
}

// Close stops polling, cancels in-flight searches and shuts the loop and pool down. The engine is left to its owner.
func (s *Session) Close() {
	s.poller.Stop()
	s.loop.Do(s.search.Close)
	s.pool.Close()
	s.loop.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
