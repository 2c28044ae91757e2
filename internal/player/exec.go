package player

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepool/internal/shared"
)

const (
	urlPlaceholder   = "{url}"
	startPlaceholder = "{start}"
)

// ExecEngine plays each item by running an external command, one process at a time.
//
// Pausing stops the process and remembers the offset; resuming restarts it with the offset substituted for {start}.
// A zero exit moves to the next item, any other exit is reported through [EngineListener.OnError].
type ExecEngine struct {
	mu        sync.Mutex
	command   []string
	logger    *log.Logger
	listener  EngineListener
	items     []EngineItem
	index     int
	offsetMs  int64
	playing   bool
	startedAt time.Time
	proc      *exec.Cmd
	gen       uint64 // incremented whenever a process is started or stopped on purpose
	now       func() time.Time
}

// NewExecEngine creates an engine running command, which must contain {url}.
func NewExecEngine(command []string, logger *log.Logger) (*ExecEngine, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("%w: player command is empty", shared.ErrInvalidConfig)
	}
	if !strings.Contains(strings.Join(command, " "), urlPlaceholder) {
		return nil, fmt.Errorf("%w: player command needs a %s placeholder", shared.ErrInvalidConfig, urlPlaceholder)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ExecEngine{command: command, logger: logger, now: time.Now}, nil
}

func (e *ExecEngine) SetListener(l EngineListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

// Load replaces the sequence and stops playback.
func (e *ExecEngine) Load(items []EngineItem) {
	e.mu.Lock()
	wasPlaying := e.playing
	e.stopLocked()
	e.items = append([]EngineItem(nil), items...)
	e.index = 0
	e.offsetMs = 0
	l := e.listener
	e.mu.Unlock()

	if wasPlaying && l != nil {
		l.OnIsPlayingChanged(false)
	}
}

// Replace swaps the sequence and keeps the running process. An index outside items behaves like [ExecEngine.Load].
func (e *ExecEngine) Replace(items []EngineItem, index int) {
	if index < 0 || index >= len(items) {
		e.Load(items)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = append([]EngineItem(nil), items...)
	e.index = index
}

// Prepare validates the loaded sequence. Items without a URL are started as-is and fail on play.
func (e *ExecEngine) Prepare() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, it := range e.items {
		if it.URL == "" {
			e.logger.Debug("item has no url yet", "index", i, "id", it.ID)
		}
	}
}

func (e *ExecEngine) SeekToIndex(index int, offsetMs int64) {
	e.mu.Lock()
	if index < 0 || index >= len(e.items) {
		e.mu.Unlock()
		return
	}
	e.index = index
	e.offsetMs = max(offsetMs, 0)
	e.restartLocked()
}

func (e *ExecEngine) Play() {
	e.mu.Lock()
	if e.playing || len(e.items) == 0 {
		e.mu.Unlock()
		return
	}
	e.playing = true
	err := e.startLocked()
	id := e.items[e.index].ID
	l := e.listener
	if err != nil {
		e.playing = false
	}
	e.mu.Unlock()

	if l == nil {
		return
	}
	if err != nil {
		l.OnError(err.Error())
		return
	}
	l.OnIsPlayingChanged(true)
	l.OnItemTransition(id)
}

func (e *ExecEngine) Pause() {
	e.mu.Lock()
	if !e.playing {
		e.mu.Unlock()
		return
	}
	e.offsetMs = e.positionLocked()
	e.stopLocked()
	l := e.listener
	e.mu.Unlock()

	if l != nil {
		l.OnIsPlayingChanged(false)
	}
}

func (e *ExecEngine) SeekToPositionMs(ms int64) {
	e.mu.Lock()
	if len(e.items) == 0 {
		e.mu.Unlock()
		return
	}
	e.offsetMs = max(ms, 0)
	e.restartLocked()
}

func (e *ExecEngine) HasNext() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index+1 < len(e.items)
}

func (e *ExecEngine) Next() {
	e.mu.Lock()
	if e.index+1 >= len(e.items) {
		e.mu.Unlock()
		return
	}
	e.index++
	e.offsetMs = 0
	e.restartLocked()
}

func (e *ExecEngine) HasPrev() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index > 0
}

func (e *ExecEngine) Prev() {
	e.mu.Lock()
	if e.index == 0 {
		e.mu.Unlock()
		return
	}
	e.index--
	e.offsetMs = 0
	e.restartLocked()
}

func (e *ExecEngine) CurrentPositionMs() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

func (e *ExecEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *ExecEngine) ItemCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items)
}

// CurrentIndex returns the index of the current item.
func (e *ExecEngine) CurrentIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

// Release stops the process and drops the listener. The engine is unusable afterwards.
func (e *ExecEngine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	e.items = nil
	e.listener = nil
}

// restartLocked moves the process to the current index and offset and unlocks e.mu.
func (e *ExecEngine) restartLocked() {
	if !e.playing {
		e.mu.Unlock()
		return
	}
	e.stopLocked()
	e.playing = true
	err := e.startLocked()
	id := e.items[e.index].ID
	l := e.listener
	if err != nil {
		e.playing = false
	}
	e.mu.Unlock()

	if l == nil {
		return
	}
	if err != nil {
		l.OnError(err.Error())
		return
	}
	l.OnItemTransition(id)
}

func (e *ExecEngine) positionLocked() int64 {
	if !e.playing {
		return e.offsetMs
	}
	return e.offsetMs + e.now().Sub(e.startedAt).Milliseconds()
}

func (e *ExecEngine) args(item EngineItem) []string {
	start := strconv.FormatFloat(float64(e.offsetMs)/1000, 'f', 3, 64)
	args := make([]string, len(e.command))
	for i, a := range e.command {
		a = strings.ReplaceAll(a, urlPlaceholder, item.URL)
		args[i] = strings.ReplaceAll(a, startPlaceholder, start)
	}
	return args
}

func (e *ExecEngine) startLocked() error {
	item := e.items[e.index]
	if item.URL == "" {
		return fmt.Errorf("%w: no stream url for %s", shared.ErrPlaybackFailed, item.Title)
	}

	args := e.args(item)
	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPlaybackFailed, err)
	}

	e.gen++
	e.proc = cmd
	e.startedAt = e.now()
	e.logger.Debug("started player", "id", item.ID, "offset_ms", e.offsetMs)

	go e.wait(cmd, e.gen)
	return nil
}

func (e *ExecEngine) stopLocked() {
	e.gen++
	if e.proc != nil && e.proc.Process != nil {
		if err := e.proc.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			e.logger.Debug("failed to stop player", "err", err)
		}
	}
	e.proc = nil
	e.playing = false
}

// wait reacts to a process exiting on its own. Exits caused by stopLocked are ignored.
func (e *ExecEngine) wait(cmd *exec.Cmd, gen uint64) {
	err := cmd.Wait()

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.proc = nil
	l := e.listener

	if err != nil {
		e.playing = false
		e.mu.Unlock()
		if l != nil {
			l.OnIsPlayingChanged(false)
			l.OnError(fmt.Sprintf("player exited: %v", err))
		}
		return
	}

	if e.index+1 >= len(e.items) {
		e.playing = false
		e.offsetMs = 0
		e.mu.Unlock()
		if l != nil {
			l.OnIsPlayingChanged(false)
		}
		return
	}

	e.index++
	e.offsetMs = 0
	startErr := e.startLocked()
	id := e.items[e.index].ID
	if startErr != nil {
		e.playing = false
	}
	e.mu.Unlock()

	if l == nil {
		return
	}
	if startErr != nil {
		l.OnError(startErr.Error())
		return
	}
	l.OnItemTransition(id)
}
