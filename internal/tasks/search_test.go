package tasks

import (
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/tunepool/internal/models"
	tu "github.com/desertthunder/tunepool/internal/testing"
)

func newOrchestrator(t *testing.T, opts SearchOptions, fakes ...*tu.FakeProvider) (*Orchestrator, *Loop) {
	t.Helper()

	loop, pool := newLoopAndPool(t, 4)
	o := NewOrchestrator(loop, pool, providerMap(fakes...), allEndpoints{}, opts, testLogger(), nil)
	t.Cleanup(func() { loop.Do(o.Close) })
	return o, loop
}

func uris(tracks []models.Track) []string {
	out := make([]string, len(tracks))
	for i, tr := range tracks {
		out[i] = tr.OriginURI()
	}
	return out
}

func TestOrchestrator(t *testing.T) {
	opts := SearchOptions{Debounce: 20 * time.Millisecond, Timeout: time.Second, Online: true}

	t.Run("debounces rapid queries into one search", func(t *testing.T) {
		kuwo := &tu.FakeProvider{Tag: models.Kuwo, Results: []models.Track{track(models.Kuwo, 1, "k1")}}
		o, loop := newOrchestrator(t, opts, kuwo)

		for _, q := range []string{"a", "ab", "abc"} {
			loop.Do(func() { o.Query(q) })
		}
		eventually(t, loop, func() bool { return o.State() == SearchPublished })

		if got := kuwo.Queries(); !slices.Equal(got, []string{"abc"}) {
			t.Errorf("expected a single search for abc, got %v", got)
		}

		var sess models.SearchSession
		loop.Do(func() { sess = o.Session() })
		if sess.Query != "abc" || sess.Generation != 3 {
			t.Errorf("unexpected session %+v", sess)
		}
	})

	t.Run("merges providers in dispatch order without duplicate origins", func(t *testing.T) {
		kugou := &tu.FakeProvider{Tag: models.Kugou, Results: []models.Track{track(models.Kugou, 4, "u4")}}
		netease := &tu.FakeProvider{Tag: models.NetEase}
		bodian := &tu.FakeProvider{Tag: models.Bodian, Results: []models.Track{
			track(models.Bodian, 9, "u1"),
			track(models.Bodian, 3, "u3"),
		}}
		kuwo := &tu.FakeProvider{Tag: models.Kuwo, Results: []models.Track{
			track(models.Kuwo, 1, "u1"),
			track(models.Kuwo, 2, "u2"),
		}}
		o, loop := newOrchestrator(t, opts, kugou, netease, bodian, kuwo)

		loop.Do(func() { o.Query("song") })
		eventually(t, loop, func() bool { return o.State() == SearchPublished })

		var results []models.Track
		loop.Do(func() { results = o.Results() })

		if got := uris(results); !slices.Equal(got, []string{"u1", "u2", "u3", "u4"}) {
			t.Fatalf("unexpected merge order %v", got)
		}
		if results[0].Provider() != models.Kuwo {
			t.Errorf("expected first-seen kuwo entry to win, got %v", results[0].Provider())
		}
		if len(netease.Queries()) != 1 {
			t.Error("expected the empty provider to be queried too")
		}
	})

	t.Run("drops results of superseded generations", func(t *testing.T) {
		block := make(chan struct{})
		kuwo := &tu.FakeProvider{Tag: models.Kuwo, Results: []models.Track{track(models.Kuwo, 1, "k1")}, Block: block}
		o, loop := newOrchestrator(t, SearchOptions{Debounce: time.Millisecond, Online: true}, kuwo)

		loop.Do(func() { o.Query("first") })
		eventually(t, loop, func() bool { return o.State() == SearchInFlight })

		loop.Do(func() { o.Query("second") })
		eventually(t, loop, func() bool { return len(kuwo.Queries()) == 2 })
		close(block)

		eventually(t, loop, func() bool { return o.State() == SearchPublished && o.Dropped() == 1 })

		loop.Do(func() {
			if o.StateOf(1) != SearchSuperseded {
				t.Errorf("expected generation 1 superseded, got %v", o.StateOf(1))
			}
			if o.Session().Query != "second" {
				t.Errorf("expected latest query to remain, got %q", o.Session().Query)
			}
		})
	})

	t.Run("superseded generations never reach providers while workers are busy", func(t *testing.T) {
		kuwo := &tu.FakeProvider{Tag: models.Kuwo, Results: []models.Track{track(models.Kuwo, 1, "k1")}}
		loop, pool := newLoopAndPool(t, 1)
		o := NewOrchestrator(loop, pool, providerMap(kuwo), allEndpoints{}, SearchOptions{Debounce: time.Millisecond, Timeout: time.Second, Online: true}, testLogger(), nil)
		t.Cleanup(func() { loop.Do(o.Close) })

		hold := make(chan struct{})
		release := sync.OnceFunc(func() { close(hold) })
		t.Cleanup(release)
		started := make(chan struct{})
		pool.Submit(func() {
			close(started)
			<-hold
		})
		<-started

		for i, q := range []string{"a", "ab", "abc"} {
			gen := uint64(i + 1)
			loop.Do(func() { o.Query(q) })
			eventually(t, loop, func() bool { return o.State() == SearchInFlight && o.Session().Generation == gen })
		}
		release()

		eventually(t, loop, func() bool { return o.State() == SearchPublished && o.Dropped() == 2 })

		if got := kuwo.Queries(); !slices.Equal(got, []string{"abc"}) {
			t.Errorf("expected only the latest query to be searched, got %v", got)
		}
		var results []models.Track
		loop.Do(func() { results = o.Results() })
		if got := uris(results); !slices.Equal(got, []string{"k1"}) {
			t.Errorf("unexpected results %v", got)
		}
	})

	t.Run("blank query publishes empty immediately", func(t *testing.T) {
		kuwo := &tu.FakeProvider{Tag: models.Kuwo, Results: []models.Track{track(models.Kuwo, 1, "k1")}}
		o, loop := newOrchestrator(t, SearchOptions{Debounce: time.Hour, Online: true}, kuwo)

		loop.Do(func() {
			o.Query("   ")
			if o.State() != SearchPublished || len(o.Results()) != 0 {
				t.Errorf("expected empty publish, got %v with %d results", o.State(), len(o.Results()))
			}
		})
		if len(kuwo.Queries()) != 0 {
			t.Error("blank query must not reach providers")
		}
	})

	t.Run("offline publishes empty without calling providers", func(t *testing.T) {
		kuwo := &tu.FakeProvider{Tag: models.Kuwo, Results: []models.Track{track(models.Kuwo, 1, "k1")}}
		o, loop := newOrchestrator(t, SearchOptions{Debounce: time.Millisecond, Online: false}, kuwo)

		loop.Do(func() { o.Query("x") })
		eventually(t, loop, func() bool { return o.State() == SearchPublished })

		if len(kuwo.Queries()) != 0 {
			t.Error("expected no provider calls while offline")
		}
	})

	t.Run("going online reruns the current query", func(t *testing.T) {
		kuwo := &tu.FakeProvider{Tag: models.Kuwo, Results: []models.Track{track(models.Kuwo, 1, "k1")}}
		o, loop := newOrchestrator(t, SearchOptions{Debounce: time.Millisecond, Online: false}, kuwo)

		loop.Do(func() { o.Query("x") })
		eventually(t, loop, func() bool { return o.State() == SearchPublished })
		loop.Do(func() { o.SetOnline(true) })
		eventually(t, loop, func() bool { return o.State() == SearchPublished && len(o.Results()) == 1 })

		if got := kuwo.Queries(); !slices.Equal(got, []string{"x"}) {
			t.Errorf("expected rerun of x, got %v", got)
		}
	})

	t.Run("pinned provider limits fan-out", func(t *testing.T) {
		kuwo := &tu.FakeProvider{Tag: models.Kuwo}
		netease := &tu.FakeProvider{Tag: models.NetEase, Results: []models.Track{track(models.NetEase, 5, "n5")}}
		o, loop := newOrchestrator(t, opts, kuwo, netease)

		loop.Do(func() {
			o.SetPinned(models.NetEase)
			o.Query("x")
		})
		eventually(t, loop, func() bool { return o.State() == SearchPublished && len(o.Results()) == 1 })

		if len(kuwo.Queries()) != 0 {
			t.Error("expected unpinned provider to be skipped")
		}
		loop.Do(func() {
			if pinned, ok := o.Pinned(); !ok || pinned != models.NetEase {
				t.Errorf("expected NetEase pinned, got %v %v", pinned, ok)
			}
		})
	})

	t.Run("no selectable provider publishes empty", func(t *testing.T) {
		o, loop := newOrchestrator(t, SearchOptions{Debounce: time.Millisecond, Online: true})

		loop.Do(func() { o.Query("x") })
		eventually(t, loop, func() bool { return o.State() == SearchPublished })
	})
}

func TestSearchState(t *testing.T) {
	for state, want := range map[SearchState]string{
		SearchIdle:       "idle",
		SearchDebouncing: "debouncing",
		SearchInFlight:   "in_flight",
		SearchPublished:  "published",
		SearchSuperseded: "superseded",
	} {
		if got := state.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}
