// package player defines the playback engine boundary and an implementation that drives an external player process.
package player

// EngineItem is one entry of the loaded sequence.
type EngineItem struct {
	ID         string // stable id, the track key
	URL        string // resolved stream or file URL; may be empty until resolved
	Title      string
	DurationMs int64
}

// EngineListener receives engine events. Calls may arrive on any goroutine.
type EngineListener interface {
	OnIsPlayingChanged(playing bool)
	OnError(message string)
	OnItemTransition(id string)
}

// Engine plays an ordered sequence of items.
type Engine interface {
	Load(items []EngineItem)
	// Replace swaps the sequence without interrupting the item being played, which must sit at index in items.
	Replace(items []EngineItem, index int)
	Prepare()
	SeekToIndex(index int, offsetMs int64)
	Play()
	Pause()
	SeekToPositionMs(ms int64)
	HasNext() bool
	Next()
	HasPrev() bool
	Prev()
	CurrentPositionMs() int64
	IsPlaying() bool
	ItemCount() int
	SetListener(l EngineListener)
	Release()
}
