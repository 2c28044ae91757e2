package ui

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/tasks"
)

type fakeController struct {
	mu      sync.Mutex
	snaps   chan tasks.Snapshot
	queries []string
	calls   []string
	played  models.Track
	source  models.QueueSource
	opened  string
	hidden  []int64
	online  bool
	seek    float64
}

func newFakeController() *fakeController {
	return &fakeController{snaps: make(chan tasks.Snapshot, 1)}
}

func (f *fakeController) Subscribe() (<-chan tasks.Snapshot, func()) {
	return f.snaps, func() {}
}

func (f *fakeController) record(c string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeController) Query(text string)        { f.queries = append(f.queries, text) }
func (f *fakeController) TogglePlay()              { f.record("toggle") }
func (f *fakeController) Next()                    { f.record("next") }
func (f *fakeController) Previous()                { f.record("previous") }
func (f *fakeController) DismissError()            { f.record("dismiss") }
func (f *fakeController) SeekFraction(v float64)   { f.seek = v }
func (f *fakeController) SetOnline(on bool) error  { f.online = on; return nil }
func (f *fakeController) Hide(id int64) error      { f.hidden = append(f.hidden, id); return nil }
func (f *fakeController) RefreshPlaylist() error   { f.record("refresh"); return nil }
func (f *fakeController) OpenPlaylist(id string) error {
	if id == "broken" {
		return errors.New("boom")
	}
	f.opened = id
	return nil
}

func (f *fakeController) Play(_ context.Context, track models.Track, source models.QueueSource) error {
	f.played, f.source = track, source
	return nil
}

type fakeLibrary struct {
	playlists []models.Playlist
	favorites map[models.TrackKey]bool
}

func (l *fakeLibrary) Playlists() []models.Playlist { return l.playlists }

func (l *fakeLibrary) ToggleFavorite(t models.Track) (bool, error) {
	if l.favorites == nil {
		l.favorites = map[models.TrackKey]bool{}
	}
	l.favorites[t.Key()] = !l.favorites[t.Key()]
	return l.favorites[t.Key()], nil
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T) (*Model, *fakeController, *fakeLibrary) {
	t.Helper()

	ctrl := newFakeController()
	lib := &fakeLibrary{playlists: []models.Playlist{models.NewFavorites(), {ID: "mix", Name: "Mix"}}}
	m := NewModel(context.Background(), ctrl, lib)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, ctrl, lib
}

func testSnapshot() tasks.Snapshot {
	return tasks.Snapshot{
		Query:       "moon",
		SearchState: tasks.SearchPublished,
		Online:      true,
		Results: []models.Track{
			models.NewTrack(1, "Moon", "A", 200000, "https://n/1", models.NetEase),
			models.NewTrack(2, "Moon II", "B", 200000, "http://k/2", models.Kuwo),
		},
		Local: []models.Track{models.NewTrack(7, "Moonlight", "C", 1000, "file:///7.mp3", models.Local)},
	}
}

// run executes cmd and feeds its message back into the model.
func run(m *Model, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	m.Update(cmd())
}

func TestModel(t *testing.T) {
	t.Run("typing queries the session", func(t *testing.T) {
		m, ctrl, _ := newTestModel(t)

		m.Update(keyRunes("m"))
		m.Update(keyRunes("o"))

		if strings.Join(ctrl.queries, ",") != "m,mo" {
			t.Errorf("unexpected queries %v", ctrl.queries)
		}
	})

	t.Run("snapshots fill the result list", func(t *testing.T) {
		m, _, _ := newTestModel(t)

		_, cmd := m.Update(snapshotMsg(testSnapshot()))
		if cmd == nil {
			t.Error("expected to keep waiting for snapshots")
		}
		if got := len(m.tracks.Items()); got != 2 {
			t.Errorf("expected 2 results, got %d", got)
		}
		if !strings.Contains(m.View(), "Moon II") {
			t.Error("expected results rendered")
		}
	})

	t.Run("enter plays the selected result", func(t *testing.T) {
		m, ctrl, _ := newTestModel(t)
		m.Update(snapshotMsg(testSnapshot()))

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.typing {
			t.Fatal("expected focus on the list")
		}
		m.Update(tea.KeyMsg{Type: tea.KeyDown})
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		run(m, cmd)

		if ctrl.played.ID() != 2 || ctrl.source != models.SourceSearch {
			t.Errorf("expected second result from search, got %v from %v", ctrl.played, ctrl.source)
		}
	})

	t.Run("tab switches to local tracks", func(t *testing.T) {
		m, ctrl, _ := newTestModel(t)
		m.Update(snapshotMsg(testSnapshot()))

		m.Update(tea.KeyMsg{Type: tea.KeyTab})
		if m.view != LocalView || len(m.tracks.Items()) != 1 {
			t.Fatalf("expected local view with 1 track, got %v with %d", m.view, len(m.tracks.Items()))
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		_, cmd := m.Update(keyRunes("x"))
		run(m, cmd)
		if len(ctrl.hidden) != 1 || ctrl.hidden[0] != 7 {
			t.Errorf("expected local track hidden, got %v", ctrl.hidden)
		}
		if !strings.Contains(m.notice, "hidden") {
			t.Errorf("expected notice, got %q", m.notice)
		}
	})

	t.Run("transport keys", func(t *testing.T) {
		m, ctrl, _ := newTestModel(t)
		snap := testSnapshot()
		snap.Current = &snap.Results[0]
		snap.PositionMs = 100000
		m.Update(snapshotMsg(snap))
		m.Update(tea.KeyMsg{Type: tea.KeyEsc})

		m.Update(tea.KeyMsg{Type: tea.KeySpace})
		m.Update(keyRunes("n"))
		m.Update(keyRunes("p"))
		m.Update(keyRunes("d"))
		if strings.Join(ctrl.calls, ",") != "toggle,next,previous,dismiss" {
			t.Errorf("unexpected calls %v", ctrl.calls)
		}

		ctrl.online = true
		m.Update(keyRunes("]"))
		if ctrl.seek < 0.59 || ctrl.seek > 0.61 {
			t.Errorf("expected seek near 0.6, got %v", ctrl.seek)
		}

		_, cmd := m.Update(keyRunes("o"))
		run(m, cmd)
		if ctrl.online {
			t.Error("expected online toggled off")
		}
	})

	t.Run("favorite toggles the selected track", func(t *testing.T) {
		m, ctrl, lib := newTestModel(t)
		m.Update(snapshotMsg(testSnapshot()))
		m.Update(tea.KeyMsg{Type: tea.KeyEsc})

		_, cmd := m.Update(keyRunes("f"))
		run(m, cmd)
		if !lib.favorites[testSnapshot().Results[0].Key()] {
			t.Error("expected first result favorited")
		}
		if !slices.Contains(ctrl.calls, "refresh") {
			t.Errorf("expected the open playlist refreshed, got %v", ctrl.calls)
		}
	})

	t.Run("library opens playlists", func(t *testing.T) {
		m, ctrl, _ := newTestModel(t)
		m.Update(tea.KeyMsg{Type: tea.KeyTab})
		m.Update(tea.KeyMsg{Type: tea.KeyTab})
		if m.view != LibraryView || len(m.playlists.Items()) != 2 {
			t.Fatalf("expected library with 2 playlists, got %v", m.view)
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		m.Update(tea.KeyMsg{Type: tea.KeyDown})
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		run(m, cmd)

		if ctrl.opened != "mix" || m.view != PlaylistTracksView {
			t.Errorf("expected mix opened, got %q in %v", ctrl.opened, m.view)
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.view != LibraryView {
			t.Errorf("expected esc to return to playlists, got %v", m.view)
		}
	})

	t.Run("closed subscription quits", func(t *testing.T) {
		m, _, _ := newTestModel(t)

		_, cmd := m.Update(closedMsg())
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})

	t.Run("errors are shown", func(t *testing.T) {
		m, _, _ := newTestModel(t)
		snap := testSnapshot()
		snap.Error = "playback failed: 404"
		m.Update(snapshotMsg(snap))

		if !strings.Contains(m.View(), "playback failed: 404") {
			t.Error("expected playback error rendered")
		}
	})
}
