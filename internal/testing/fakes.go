package testing

import (
	"context"
	"slices"
	"sync"

	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/player"
)

// FakeProvider is a scripted catalog provider.
//
// Search returns Results (or an empty slice), recording each query. Resolve returns ResolveURL or ResolveErr.
type FakeProvider struct {
	Tag        models.ProviderTag
	Results    []models.Track
	ResolveURL string
	ResolveErr error
	// Block, when set, is waited on by Search before returning so tests can hold calls in flight.
	Block chan struct{}

	mu      sync.Mutex
	queries []string
}

func (f *FakeProvider) Kind() models.ProviderTag { return f.Tag }
func (f *FakeProvider) Name() string             { return "fake-" + f.Tag.String() }

func (f *FakeProvider) Search(ctx context.Context, _ models.CatalogEndpoint, query string) []models.Track {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return []models.Track{}
		}
	}
	if f.Results == nil {
		return []models.Track{}
	}
	return slices.Clone(f.Results)
}

func (f *FakeProvider) Resolve(_ context.Context, _ models.CatalogEndpoint, track models.Track) (string, error) {
	if f.ResolveErr != nil {
		return "", f.ResolveErr
	}
	if f.ResolveURL == "" {
		return track.OriginURI(), nil
	}
	return f.ResolveURL, nil
}

// Queries returns the queries Search has received.
func (f *FakeProvider) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.queries)
}

// FakeCatalog is a fixed local media catalog.
type FakeCatalog struct {
	Items []models.LocalItem
}

func (c *FakeCatalog) Enumerate() []models.LocalItem {
	return slices.Clone(c.Items)
}

// FakeEngine is an in-memory [player.Engine] that records every call by name.
type FakeEngine struct {
	mu       sync.Mutex
	items    []player.EngineItem
	index    int
	position int64
	playing  bool
	calls    []string
	listener player.EngineListener
}

func (f *FakeEngine) record(name string) {
	f.calls = append(f.calls, name)
}

func (f *FakeEngine) Load(items []player.EngineItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Load")
	f.items = slices.Clone(items)
	f.index = 0
	f.position = 0
}

func (f *FakeEngine) Replace(items []player.EngineItem, index int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Replace")
	f.items = slices.Clone(items)
	if index < 0 || index >= len(items) {
		f.index = 0
		f.position = 0
		f.playing = false
		return
	}
	f.index = index
}

func (f *FakeEngine) Prepare() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Prepare")
}

func (f *FakeEngine) SeekToIndex(index int, offsetMs int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SeekToIndex")
	if index >= 0 && index < len(f.items) {
		f.index = index
		f.position = offsetMs
	}
}

func (f *FakeEngine) Play() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Play")
	f.playing = len(f.items) > 0
}

func (f *FakeEngine) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Pause")
	f.playing = false
}

func (f *FakeEngine) SeekToPositionMs(ms int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SeekToPositionMs")
	f.position = ms
}

func (f *FakeEngine) HasNext() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.index+1 < len(f.items)
}

func (f *FakeEngine) Next() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Next")
	if f.index+1 < len(f.items) {
		f.index++
		f.position = 0
	}
}

func (f *FakeEngine) HasPrev() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.index > 0
}

func (f *FakeEngine) Prev() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Prev")
	if f.index > 0 {
		f.index--
		f.position = 0
	}
}

func (f *FakeEngine) CurrentPositionMs() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

func (f *FakeEngine) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *FakeEngine) ItemCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func (f *FakeEngine) SetListener(l player.EngineListener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = l
}

func (f *FakeEngine) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Release")
	f.listener = nil
}

// Calls returns the names of the recorded mutating calls in order.
func (f *FakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// ResetCalls clears the call log.
func (f *FakeEngine) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// Items returns the loaded sequence.
func (f *FakeEngine) Items() []player.EngineItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.items)
}

// Index returns the current index.
func (f *FakeEngine) Index() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.index
}

// SetPosition sets the value CurrentPositionMs reports.
func (f *FakeEngine) SetPosition(ms int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.position = ms
}

// Listener returns the registered listener so tests can raise engine events.
func (f *FakeEngine) Listener() player.EngineListener {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listener
}
