package tasks

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/services"
	"github.com/desertthunder/tunepool/internal/shared"
	tu "github.com/desertthunder/tunepool/internal/testing"
)

func testLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}

// allEndpoints selects a placeholder endpoint for every catalog.
type allEndpoints struct{}

func (allEndpoints) Selected(kind models.ProviderTag) (models.CatalogEndpoint, bool) {
	return models.CatalogEndpoint{DisplayName: "test", BaseURL: "http://test.invalid", Provider: kind}, true
}

func providerMap(fakes ...*tu.FakeProvider) map[models.ProviderTag]services.Provider {
	m := make(map[models.ProviderTag]services.Provider, len(fakes))
	for _, f := range fakes {
		m[f.Tag] = f
	}
	return m
}

func track(provider models.ProviderTag, id int64, uri string) models.Track {
	return models.NewTrack(id, "Song "+uri, "Artist", 180000, uri, provider)
}

// eventually polls cond on the loop until it holds or the deadline passes.
func eventually(t *testing.T, loop *Loop, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var ok bool
		loop.Do(func() { ok = cond() })
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newLoopAndPool(t *testing.T, workers int) (*Loop, *Pool) {
	t.Helper()

	loop := NewLoop()
	pool := NewPool(workers)
	t.Cleanup(func() {
		pool.Close()
		loop.Close()
	})
	return loop, pool
}
