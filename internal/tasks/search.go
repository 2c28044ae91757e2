package tasks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/services"
)

// SearchState is the lifecycle of the latest query.
type SearchState int

const (
	SearchIdle SearchState = iota
	SearchDebouncing
	SearchInFlight
	SearchPublished
	SearchSuperseded
)

func (s SearchState) String() string {
	switch s {
	case SearchIdle:
		return "idle"
	case SearchDebouncing:
		return "debouncing"
	case SearchInFlight:
		return "in_flight"
	case SearchPublished:
		return "published"
	case SearchSuperseded:
		return "superseded"
	default:
		return ""
	}
}

// EndpointSource reports the endpoint selected for a catalog.
type EndpointSource interface {
	Selected(kind models.ProviderTag) (models.CatalogEndpoint, bool)
}

// SearchOptions tunes an [Orchestrator].
type SearchOptions struct {
	Debounce time.Duration // quiet period before a query is sent
	Timeout  time.Duration // per provider call
	Online   bool          // when false every query publishes an empty result
}

// Orchestrator debounces queries, fans them out to the catalogs and publishes the merged result.
//
// Every field below the dependencies is owned by the loop.
type Orchestrator struct {
	loop      *Loop
	pool      *Pool
	providers map[models.ProviderTag]services.Provider
	endpoints EndpointSource
	opts      SearchOptions
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	notify    func()

	session   models.SearchSession
	state     SearchState
	results   []models.Track
	online    bool
	pinned    models.ProviderTag
	hasPinned bool
	timer     *time.Timer
	dropped   uint64
	stopGen   context.CancelFunc // cancels the fan-out of the generation in flight
}

// providerCall is one adapter call of a fan-out.
type providerCall struct {
	provider services.Provider
	endpoint models.CatalogEndpoint
}

// NewOrchestrator creates an orchestrator. notify runs on the loop after every observable change.
func NewOrchestrator(
	loop *Loop,
	pool *Pool,
	providers map[models.ProviderTag]services.Provider,
	endpoints EndpointSource,
	opts SearchOptions,
	logger *log.Logger,
	notify func(),
) *Orchestrator {
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if notify == nil {
		notify = func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		loop:      loop,
		pool:      pool,
		providers: providers,
		endpoints: endpoints,
		opts:      opts,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		notify:    notify,
		results:   []models.Track{},
		online:    opts.Online,
	}
}

// Query starts a new generation for text. Must run on the loop.
//
// Blank text publishes an empty result immediately; anything else waits out the debounce window first.
func (o *Orchestrator) Query(text string) {
	o.stopPending()

	if o.state == SearchDebouncing || o.state == SearchInFlight {
		o.logger.Debug("search superseded", "generation", o.session.Generation, "query", o.session.Query)
	}

	o.session = models.SearchSession{Query: text, Generation: o.session.Generation + 1}

	if strings.TrimSpace(text) == "" {
		o.results = []models.Track{}
		o.state = SearchPublished
		o.notify()
		return
	}

	o.state = SearchDebouncing
	gen := o.session.Generation
	o.timer = time.AfterFunc(o.opts.Debounce, func() {
		o.loop.Post(func() { o.fire(gen) })
	})
	o.notify()
}

// Refresh repeats the current query without waiting for the debounce window.
func (o *Orchestrator) Refresh() {
	o.stopPending()
	o.session.Generation++
	if strings.TrimSpace(o.session.Query) == "" {
		o.results = []models.Track{}
		o.state = SearchPublished
		o.notify()
		return
	}
	o.fire(o.session.Generation)
}

// fire leaves the debounce window for gen.
func (o *Orchestrator) fire(gen uint64) {
	if gen != o.session.Generation {
		return
	}
	o.timer = nil

	if !o.online {
		o.results = []models.Track{}
		o.state = SearchPublished
		o.notify()
		return
	}

	calls := o.calls()
	if len(calls) == 0 {
		o.results = []models.Track{}
		o.state = SearchPublished
		o.notify()
		return
	}

	o.state = SearchInFlight
	o.notify()

	ctx, cancel := context.WithCancel(o.ctx)
	o.stopGen = cancel
	query := o.session.Query
	go o.fanOut(ctx, gen, query, calls)
}

// stopPending stops the debounce timer and cancels the fan-out of the previous generation.
func (o *Orchestrator) stopPending() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if o.stopGen != nil {
		o.stopGen()
		o.stopGen = nil
	}
}

// calls lists the selectable providers in dispatch order with their selected endpoints.
func (o *Orchestrator) calls() []providerCall {
	var out []providerCall
	for _, kind := range models.Providers() {
		if o.hasPinned && kind != o.pinned {
			continue
		}
		p, ok := o.providers[kind]
		if !ok {
			continue
		}
		ep, ok := o.endpoints.Selected(kind)
		if !ok {
			o.logger.Warn("no endpoint selected", "provider", kind)
			continue
		}
		out = append(out, providerCall{provider: p, endpoint: ep})
	}
	return out
}

// fanOut runs off the loop: it waits for every adapter call and posts the merged result back.
//
// Once genCtx is cancelled by a newer generation, calls still waiting for a worker are skipped.
func (o *Orchestrator) fanOut(genCtx context.Context, gen uint64, query string, calls []providerCall) {
	results := make([][]models.Track, len(calls))

	var wg sync.WaitGroup
	for i, c := range calls {
		wg.Add(1)
		ok := o.pool.SubmitContext(genCtx, func() {
			defer wg.Done()
			if genCtx.Err() != nil {
				return
			}
			ctx, cancel := context.WithTimeout(genCtx, o.opts.Timeout)
			defer cancel()

			start := time.Now()
			results[i] = c.provider.Search(ctx, c.endpoint, query)
			o.logger.Debug("provider searched", "provider", c.provider.Name(), "results", len(results[i]), "took", time.Since(start))
		})
		if !ok {
			wg.Done()
		}
	}
	wg.Wait()

	merged := mergeResults(results)
	o.loop.Post(func() { o.publish(gen, merged) })
}

// publish applies the merged result if gen is still the latest generation.
func (o *Orchestrator) publish(gen uint64, merged []models.Track) {
	if gen != o.session.Generation {
		o.dropped++
		o.logger.Debug("dropping stale results", "generation", gen, "latest", o.session.Generation)
		return
	}

	o.results = merged
	o.state = SearchPublished
	o.logger.Info("search published", "query", o.session.Query, "results", len(merged))
	o.notify()
}

// mergeResults concatenates per-provider results in dispatch order, keeping the first track per origin URI.
func mergeResults(results [][]models.Track) []models.Track {
	var all []models.Track
	for _, r := range results {
		all = append(all, r...)
	}
	return models.DedupByOrigin(all)
}

// SetOnline enables or disables online search and reruns the current query.
func (o *Orchestrator) SetOnline(enabled bool) {
	if o.online == enabled {
		return
	}
	o.online = enabled
	o.Refresh()
}

// SetPinned limits searches to a single catalog and reruns the current query.
func (o *Orchestrator) SetPinned(kind models.ProviderTag) {
	o.pinned, o.hasPinned = kind, true
	o.Refresh()
}

// ClearPinned searches every catalog again.
func (o *Orchestrator) ClearPinned() {
	if !o.hasPinned {
		return
	}
	o.hasPinned = false
	o.Refresh()
}

// Session returns the current query and generation.
func (o *Orchestrator) Session() models.SearchSession { return o.session }

// State returns the lifecycle state of the current query.
func (o *Orchestrator) State() SearchState { return o.state }

// Results returns the last published result.
func (o *Orchestrator) Results() []models.Track { return o.results }

// Online reports whether online search is enabled.
func (o *Orchestrator) Online() bool { return o.online }

// Pinned returns the pinned catalog, if any.
func (o *Orchestrator) Pinned() (models.ProviderTag, bool) { return o.pinned, o.hasPinned }

// StateOf reports the state of generation gen. Every generation older than the current one is superseded.
func (o *Orchestrator) StateOf(gen uint64) SearchState {
	switch {
	case gen == o.session.Generation:
		return o.state
	case gen < o.session.Generation:
		return SearchSuperseded
	default:
		return SearchIdle
	}
}

// Dropped counts results discarded because a newer generation existed.
func (o *Orchestrator) Dropped() uint64 { return o.dropped }

// Close stops the debounce timer and cancels in-flight calls. Must run on the loop.
func (o *Orchestrator) Close() {
	o.stopPending()
	o.cancel()
}
