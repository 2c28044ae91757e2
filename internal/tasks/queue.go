package tasks

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/player"
	"github.com/desertthunder/tunepool/internal/shared"
)

// SourceFunc returns the current track list of a queue source. It is called on the loop.
type SourceFunc func(source models.QueueSource) []models.Track

// QueueController builds the engine's play queue from a source list and reacts to engine events.
//
// It is the engine's listener; events are marshaled onto the loop before touching state.
type QueueController struct {
	loop     *Loop
	pool     *Pool
	engine   player.Engine
	resolver *Resolver
	sources  SourceFunc
	logger   *log.Logger
	notify   func()

	queue    []models.Track
	source   models.QueueSource
	hasQueue bool
	current  int
	playing  bool
	errMsg   string
	terminal bool
	local    []models.Track
	playSeq  uint64
}

// NewQueueController creates a controller and registers it as the engine listener.
func NewQueueController(loop *Loop, pool *Pool, engine player.Engine, resolver *Resolver, sources SourceFunc, logger *log.Logger, notify func()) *QueueController {
	if notify == nil {
		notify = func() {}
	}
	c := &QueueController{
		loop:     loop,
		pool:     pool,
		engine:   engine,
		resolver: resolver,
		sources:  sources,
		logger:   logger,
		notify:   notify,
		current:  -1,
	}
	engine.SetListener(c)
	return c
}

// SyncLocal replaces the cached local candidates. Must run on the loop.
//
// When no queue from another source is active the engine is reloaded with them, without starting playback.
// A local queue that has a current track is swapped in place so the track keeps playing.
func (c *QueueController) SyncLocal(local []models.Track) {
	c.local = slices.Clone(local)
	if c.hasQueue && c.source != models.SourceLocal {
		return
	}
	if c.hasQueue && c.current >= 0 && c.current < len(c.queue) {
		c.replaceLocal()
	} else {
		c.loadLocal()
	}
	c.notify()
}

// replaceLocal keeps the current track by key. When it is no longer a candidate (it was just hidden) it
// stays at its old position until playback moves off it.
func (c *QueueController) replaceLocal() {
	cur := c.queue[c.current]
	list := c.local
	idx := models.IndexOf(list, cur.Key())
	if idx < 0 {
		idx = min(c.current, len(list))
		list = slices.Insert(slices.Clone(list), idx, cur)
	}

	c.queue = list
	c.current = idx
	c.engine.Replace(engineItems(list, -1, ""), idx)
}

func (c *QueueController) loadLocal() {
	c.queue = c.local
	c.source = models.SourceLocal
	c.hasQueue = true
	c.current = -1

	c.engine.Load(engineItems(c.queue, -1, ""))
	c.engine.Prepare()
	c.playing = c.engine.IsPlaying()
}

// Play resolves track, loads its source list into the engine and starts playback at the track.
//
// Safe to call from any goroutine except the loop. Tracks missing from the source list are rejected.
func (c *QueueController) Play(ctx context.Context, track models.Track, source models.QueueSource) error {
	var (
		list []models.Track
		idx  int
		seq  uint64
	)

	if !c.loop.Do(func() {
		list = slices.Clone(c.sources(source))
		idx = models.IndexOf(list, track.Key())
		c.playSeq++
		seq = c.playSeq
	}) {
		return fmt.Errorf("%w: player is closed", shared.ErrServiceUnavailable)
	}

	if idx < 0 {
		return fmt.Errorf("%w: %s in %s", shared.ErrTrackNotInSource, track.Key(), source)
	}

	url := c.resolve(ctx, list[idx])
	if err := ctx.Err(); err != nil {
		return err
	}

	c.loop.Do(func() {
		if seq != c.playSeq {
			c.logger.Debug("newer play request won", "title", track.Title())
			return
		}
		c.start(list, idx, url, source)
	})
	return nil
}

// resolve runs the resolver on the worker pool.
func (c *QueueController) resolve(ctx context.Context, track models.Track) string {
	out := make(chan string, 1)
	if !c.pool.Submit(func() { out <- c.resolver.Resolve(ctx, track) }) {
		return track.OriginURI()
	}

	select {
	case url := <-out:
		return url
	case <-ctx.Done():
		return track.OriginURI()
	}
}

func (c *QueueController) start(list []models.Track, idx int, url string, source models.QueueSource) {
	c.engine.Load(engineItems(list, idx, url))
	c.engine.Prepare()
	c.engine.SeekToIndex(idx, 0)
	c.engine.Play()

	c.queue = list
	c.source = source
	c.hasQueue = true
	c.current = idx
	c.errMsg = ""
	c.terminal = false
	c.playing = c.engine.IsPlaying()

	c.logger.Info("now playing", "title", list[idx].Title(), "artist", list[idx].Artist(), "source", source)
	c.notify()
}

// engineItems builds engine items; the item at idx plays url, every other item its origin URI.
func engineItems(tracks []models.Track, idx int, url string) []player.EngineItem {
	items := make([]player.EngineItem, len(tracks))
	for i, t := range tracks {
		u := t.OriginURI()
		if i == idx {
			u = url
		}
		items[i] = player.EngineItem{ID: t.Key().String(), URL: u, Title: t.Title(), DurationMs: t.DurationMs()}
	}
	return items
}

// TogglePlay pauses or resumes. With nothing loaded, the local candidates are loaded first. Must run on the loop.
func (c *QueueController) TogglePlay() {
	if c.engine.ItemCount() == 0 {
		if len(c.local) == 0 {
			return
		}
		c.loadLocal()
	}

	if c.engine.IsPlaying() {
		c.engine.Pause()
	} else {
		if c.current < 0 {
			c.current = 0
		}
		c.terminal = false
		c.engine.Play()
	}
	c.playing = c.engine.IsPlaying()
	c.notify()
}

// Next moves to the next item. Must run on the loop.
func (c *QueueController) Next() {
	if !c.engine.HasNext() {
		return
	}
	c.engine.Next()
	c.current++
	c.notify()
}

// Previous moves to the previous item. Must run on the loop.
func (c *QueueController) Previous() {
	if !c.engine.HasPrev() {
		return
	}
	c.engine.Prev()
	c.current--
	c.notify()
}

// SeekFraction seeks to f (clamped to [0, 1]) of the current track's duration. Must run on the loop.
func (c *QueueController) SeekFraction(f float64) {
	track, ok := c.Current()
	if !ok || track.DurationMs() <= 0 {
		return
	}
	f = min(max(f, 0), 1)
	c.engine.SeekToPositionMs(int64(f * float64(track.DurationMs())))
}

// DismissError clears the error message. Must run on the loop.
func (c *QueueController) DismissError() {
	if c.errMsg == "" {
		return
	}
	c.errMsg = ""
	c.terminal = false
	c.notify()
}

// OnError advances past a failed item, or reports a terminal error on the last one.
func (c *QueueController) OnError(message string) {
	c.loop.Post(func() { c.handleError(message) })
}

func (c *QueueController) handleError(message string) {
	if c.terminal {
		return
	}

	if c.engine.HasNext() {
		c.logger.Warn("playback error, skipping", "err", message)
		c.engine.Next()
		c.engine.Play()
		c.current++
		c.errMsg = message
		c.notify()
		return
	}

	c.logger.Error("playback failed", "err", message)
	c.terminal = true
	c.playing = false
	c.errMsg = fmt.Errorf("%w: %s", shared.ErrPlaybackFailed, message).Error()
	c.notify()
}

// OnItemTransition marks the item with the stable id as current.
func (c *QueueController) OnItemTransition(id string) {
	c.loop.Post(func() {
		key, err := models.ParseTrackKey(id)
		if err != nil {
			c.logger.Debug("ignoring transition", "id", id, "err", err)
			return
		}
		if idx := models.IndexOf(c.queue, key); idx >= 0 {
			c.current = idx
			c.notify()
		}
	})
}

// OnIsPlayingChanged records the engine's playing state.
func (c *QueueController) OnIsPlayingChanged(playing bool) {
	c.loop.Post(func() {
		c.playing = playing
		c.notify()
	})
}

// Queue returns the loaded queue and its source. Must run on the loop.
func (c *QueueController) Queue() ([]models.Track, models.QueueSource) {
	return c.queue, c.source
}

// Current returns the current track. Must run on the loop.
func (c *QueueController) Current() (models.Track, bool) {
	if c.current < 0 || c.current >= len(c.queue) {
		return models.Track{}, false
	}
	return c.queue[c.current], true
}

// CurrentIndex returns the index of the current track, or -1. Must run on the loop.
func (c *QueueController) CurrentIndex() int { return c.current }

// IsPlaying reports the last known playing state. Must run on the loop.
func (c *QueueController) IsPlaying() bool { return c.playing }

// Error returns the user-visible error message, if any. Must run on the loop.
func (c *QueueController) Error() string { return c.errMsg }

// Local returns the cached local candidates. Must run on the loop.
func (c *QueueController) Local() []models.Track { return c.local }
