package tasks

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/repositories"
	"github.com/desertthunder/tunepool/internal/shared"
	tu "github.com/desertthunder/tunepool/internal/testing"
)

type memoryLibrary struct {
	mu        sync.Mutex
	hidden    map[int64]bool
	playlists map[string][]models.TrackKey
	stored    []models.Track
}

func newMemoryLibrary() *memoryLibrary {
	return &memoryLibrary{hidden: map[int64]bool{}, playlists: map[string][]models.TrackKey{}}
}

func (l *memoryLibrary) IsHidden(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hidden[id]
}

func (l *memoryLibrary) Hide(id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hidden[id] = true
	return nil
}

func (l *memoryLibrary) Unhide(id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hidden, id)
	return nil
}

func (l *memoryLibrary) TracksIn(id string, local []models.Track) ([]models.Track, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys, ok := l.playlists[id]
	if !ok {
		return nil, shared.ErrPlaylistNotFound
	}
	all := append(slices.Clone(local), l.stored...)
	var out []models.Track
	for _, k := range keys {
		if i := models.IndexOf(all, k); i >= 0 {
			out = append(out, all[i])
		}
	}
	return out, nil
}

type memoryPrefs struct {
	mu     sync.Mutex
	values map[string]string
}

func (p *memoryPrefs) PutBool(key string, value bool) error {
	v := "false"
	if value {
		v = "true"
	}
	return p.PutString(key, v)
}

func (p *memoryPrefs) PutString(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.values == nil {
		p.values = map[string]string{}
	}
	p.values[key] = value
	return nil
}

func (p *memoryPrefs) Delete(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, key)
	return nil
}

func (p *memoryPrefs) get(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[key]
	return v, ok
}

type sessionFixture struct {
	session *Session
	engine  *tu.FakeEngine
	library *memoryLibrary
	prefs   *memoryPrefs
	kuwo    *tu.FakeProvider
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		engine:  &tu.FakeEngine{},
		library: newMemoryLibrary(),
		prefs:   &memoryPrefs{},
		kuwo: &tu.FakeProvider{Tag: models.Kuwo, Results: []models.Track{
			track(models.Kuwo, 1, "http://kuwo/1"),
			track(models.Kuwo, 2, "http://kuwo/2"),
		}},
	}
	catalog := &tu.FakeCatalog{Items: []models.LocalItem{
		{ID: 1, Title: "Blue Moon", Artist: "Ella", DurationMs: 1000, URI: "file:///1.mp3"},
		{ID: 2, Title: "Red Sky", Artist: "Nina", DurationMs: 1000, URI: "file:///2.mp3"},
		{ID: 3, Title: "Green Field", Artist: "Ella", DurationMs: 1000, URI: "file:///3.mp3"},
	}}

	f.session = NewSession(SessionDeps{
		Providers:   providerMap(f.kuwo),
		Endpoints:   allEndpoints{},
		Engine:      f.engine,
		Catalog:     catalog,
		Library:     f.library,
		Preferences: f.prefs,
		Logger:      testLogger(),
	}, SessionOptions{Workers: 2, Debounce: time.Millisecond, PollInterval: 10 * time.Millisecond, Online: true})
	t.Cleanup(f.session.Close)
	return f
}

// waitSnapshot reads snapshots until match accepts one.
func waitSnapshot(t *testing.T, ch <-chan Snapshot, match func(Snapshot) bool) Snapshot {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatal("subscription closed")
			}
			if match(snap) {
				return snap
			}
		case <-timeout:
			t.Fatal("no matching snapshot")
		}
	}
}

func localIDs(tracks []models.Track) []int64 {
	ids := make([]int64, len(tracks))
	for i, tr := range tracks {
		ids[i] = tr.ID()
	}
	return ids
}

func TestSession(t *testing.T) {
	t.Run("rescan loads local tracks without playing", func(t *testing.T) {
		f := newSessionFixture(t)

		if n := f.session.Rescan(); n != 3 {
			t.Fatalf("expected 3 local tracks, got %d", n)
		}

		snap := f.session.Snapshot()
		if !slices.Equal(localIDs(snap.Local), []int64{1, 2, 3}) {
			t.Errorf("unexpected local tracks %v", localIDs(snap.Local))
		}
		if snap.QueueSource != models.SourceLocal || len(snap.Queue) != 3 {
			t.Errorf("expected local queue of 3, got %v with %d", snap.QueueSource, len(snap.Queue))
		}
		if got := f.engine.Calls(); !slices.Equal(got, []string{"Load", "Prepare"}) {
			t.Errorf("expected Load and Prepare, got %v", got)
		}
		if snap.IsPlaying || snap.Current != nil {
			t.Error("expected nothing playing after a scan")
		}
	})

	t.Run("hide removes a track and unhide restores it", func(t *testing.T) {
		f := newSessionFixture(t)
		f.session.Rescan()

		if err := f.session.Hide(2); err != nil {
			t.Fatalf("hide failed: %v", err)
		}
		snap := f.session.Snapshot()
		if !slices.Equal(localIDs(snap.Local), []int64{1, 3}) {
			t.Errorf("expected track 2 hidden, got %v", localIDs(snap.Local))
		}
		if len(f.engine.Items()) != 2 {
			t.Errorf("expected engine reloaded with 2 items, got %d", len(f.engine.Items()))
		}

		if err := f.session.Unhide(2); err != nil {
			t.Fatalf("unhide failed: %v", err)
		}
		snap = f.session.Snapshot()
		if !slices.Equal(localIDs(snap.Local), []int64{1, 2, 3}) {
			t.Errorf("expected track 2 restored, got %v", localIDs(snap.Local))
		}
	})

	t.Run("hiding another local track keeps playback going", func(t *testing.T) {
		f := newSessionFixture(t)
		f.session.Rescan()

		snap := f.session.Snapshot()
		if err := f.session.Play(context.Background(), snap.Local[1], models.SourceLocal); err != nil {
			t.Fatalf("play failed: %v", err)
		}
		f.engine.ResetCalls()

		if err := f.session.Hide(1); err != nil {
			t.Fatalf("hide failed: %v", err)
		}

		snap = f.session.Snapshot()
		if !snap.IsPlaying || snap.Current == nil || snap.Current.ID() != 2 {
			t.Fatalf("expected track 2 still playing, got playing=%v current=%v", snap.IsPlaying, snap.Current)
		}
		if !slices.Equal(localIDs(snap.Queue), []int64{2, 3}) {
			t.Errorf("expected queue without track 1, got %v", localIDs(snap.Queue))
		}
		if slices.Contains(f.engine.Calls(), "Load") {
			t.Errorf("expected no reload, got %v", f.engine.Calls())
		}
		if !f.engine.IsPlaying() || f.engine.Index() != 0 {
			t.Errorf("expected engine playing at 0, got %v at %d", f.engine.IsPlaying(), f.engine.Index())
		}
	})

	t.Run("query filters local tracks and searches online", func(t *testing.T) {
		f := newSessionFixture(t)
		f.session.Rescan()

		ch, cancel := f.session.Subscribe()
		defer cancel()

		f.session.Query("ella")
		snap := waitSnapshot(t, ch, func(s Snapshot) bool {
			return s.Query == "ella" && s.SearchState == SearchPublished
		})

		if !slices.Equal(localIDs(snap.Local), []int64{1, 3}) {
			t.Errorf("expected local matches 1 and 3, got %v", localIDs(snap.Local))
		}
		if len(snap.Results) != 2 {
			t.Errorf("expected 2 online results, got %d", len(snap.Results))
		}
		if got := f.kuwo.Queries(); !slices.Equal(got, []string{"ella"}) {
			t.Errorf("unexpected provider queries %v", got)
		}
	})

	t.Run("plays from search results", func(t *testing.T) {
		f := newSessionFixture(t)
		f.session.Query("x")

		var results []models.Track
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if snap := f.session.Snapshot(); snap.SearchState == SearchPublished {
				results = snap.Results
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}

		if err := f.session.Play(context.Background(), results[1], models.SourceSearch); err != nil {
			t.Fatalf("play failed: %v", err)
		}

		snap := f.session.Snapshot()
		if snap.Current == nil || snap.Current.Key() != results[1].Key() {
			t.Fatalf("expected second result current, got %v", snap.Current)
		}
		if snap.QueueSource != models.SourceSearch || !snap.IsPlaying {
			t.Errorf("expected playing search queue, got %v playing=%v", snap.QueueSource, snap.IsPlaying)
		}
	})

	t.Run("open playlist exposes its tracks", func(t *testing.T) {
		f := newSessionFixture(t)
		f.session.Rescan()
		f.library.playlists["mix"] = []models.TrackKey{
			{Provider: models.Local, OriginURI: "file:///3.mp3"},
			{Provider: models.Local, OriginURI: "file:///1.mp3"},
		}

		if err := f.session.OpenPlaylist("mix"); err != nil {
			t.Fatalf("open failed: %v", err)
		}
		snap := f.session.Snapshot()
		if snap.PlaylistID != "mix" || !slices.Equal(localIDs(snap.PlaylistTracks), []int64{3, 1}) {
			t.Errorf("unexpected playlist view %q %v", snap.PlaylistID, localIDs(snap.PlaylistTracks))
		}

		if err := f.session.Play(context.Background(), snap.PlaylistTracks[1], models.SourceLibrary); err != nil {
			t.Fatalf("play failed: %v", err)
		}
		if f.engine.Index() != 1 {
			t.Errorf("expected engine at index 1, got %d", f.engine.Index())
		}

		if err := f.session.OpenPlaylist("missing"); err == nil {
			t.Error("expected error for unknown playlist")
		}
	})

	t.Run("refresh playlist picks up library changes", func(t *testing.T) {
		f := newSessionFixture(t)
		f.session.Rescan()

		if err := f.session.RefreshPlaylist(); err != nil {
			t.Fatalf("refresh without an open playlist failed: %v", err)
		}

		f.library.playlists["mix"] = []models.TrackKey{{Provider: models.Local, OriginURI: "file:///3.mp3"}}
		if err := f.session.OpenPlaylist("mix"); err != nil {
			t.Fatalf("open failed: %v", err)
		}

		f.library.mu.Lock()
		f.library.playlists["mix"] = append(f.library.playlists["mix"], models.TrackKey{Provider: models.Local, OriginURI: "file:///1.mp3"})
		f.library.mu.Unlock()

		if got := localIDs(f.session.Snapshot().PlaylistTracks); !slices.Equal(got, []int64{3}) {
			t.Fatalf("expected the open view unchanged before refresh, got %v", got)
		}
		if err := f.session.RefreshPlaylist(); err != nil {
			t.Fatalf("refresh failed: %v", err)
		}
		if got := localIDs(f.session.Snapshot().PlaylistTracks); !slices.Equal(got, []int64{3, 1}) {
			t.Errorf("expected refreshed playlist, got %v", got)
		}
	})

	t.Run("persists toggles", func(t *testing.T) {
		f := newSessionFixture(t)

		if err := f.session.SetOnline(false); err != nil {
			t.Fatalf("set online failed: %v", err)
		}
		if v, _ := f.prefs.get(repositories.KeyOnlineEnabled); v != "false" {
			t.Errorf("expected online=false persisted, got %q", v)
		}

		if err := f.session.SetPinned(models.NetEase); err != nil {
			t.Fatalf("pin failed: %v", err)
		}
		if v, _ := f.prefs.get(repositories.KeyPinnedProvider); v != "NETEASE" {
			t.Errorf("expected pinned provider persisted, got %q", v)
		}
		if err := f.session.SetPinned(models.Local); err == nil {
			t.Error("expected local to be rejected as a pinned catalog")
		}

		if err := f.session.ClearPinned(); err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		if _, ok := f.prefs.get(repositories.KeyPinnedProvider); ok {
			t.Error("expected pinned provider removed")
		}

		snap := f.session.Snapshot()
		if snap.Online || snap.HasPinned {
			t.Errorf("expected offline and unpinned, got online=%v pinned=%v", snap.Online, snap.HasPinned)
		}
	})

	t.Run("poller publishes position changes", func(t *testing.T) {
		f := newSessionFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f.session.Start(ctx)

		ch, unsubscribe := f.session.Subscribe()
		defer unsubscribe()
		waitSnapshot(t, ch, func(s Snapshot) bool { return len(s.Queue) == 3 })

		f.engine.SetPosition(4200)
		waitSnapshot(t, ch, func(s Snapshot) bool { return s.PositionMs == 4200 })
	})

	t.Run("close ends subscriptions", func(t *testing.T) {
		f := newSessionFixture(t)
		ch, _ := f.session.Subscribe()

		f.session.Close()
		for range ch {
		}

		late, _ := f.session.Subscribe()
		if _, ok := <-late; ok {
			t.Error("expected closed channel after Close")
		}
	})
}

func TestSnapshotStatus(t *testing.T) {
	if got := (Snapshot{}).Status(); got != "stopped" {
		t.Errorf("expected stopped, got %q", got)
	}

	tr := models.NewTrack(1, "Song", "Singer", 65000, "u", models.Local)
	got := Snapshot{Current: &tr, IsPlaying: true, PositionMs: 5000}.Status()
	if got != "playing: Singer - Song [0:05/1:05]" {
		t.Errorf("unexpected status %q", got)
	}
}

func TestSendLatest(t *testing.T) {
	ch := make(chan Snapshot, 1)
	sendLatest(ch, Snapshot{Query: "old"})
	sendLatest(ch, Snapshot{Query: "new"})

	if got := (<-ch).Query; got != "new" {
		t.Errorf("expected latest snapshot, got %q", got)
	}
}
