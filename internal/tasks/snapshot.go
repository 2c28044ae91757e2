package tasks

import (
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
)

// Snapshot is an immutable view of the session, published from the loop after every change.
type Snapshot struct {
	Query       string
	Generation  uint64
	SearchState SearchState
	Results     []models.Track
	Dropped     uint64 // stale result sets discarded so far

	Online    bool
	Pinned    models.ProviderTag
	HasPinned bool

	Local []models.Track // local tracks that are not hidden and match Query

	Queue        []models.Track
	QueueSource  models.QueueSource
	CurrentIndex int
	Current      *models.Track
	IsPlaying    bool
	PositionMs   int64

	Error string

	PlaylistID     string
	PlaylistTracks []models.Track
}

// Status renders a one-line playback summary.
func (s Snapshot) Status() string {
	if s.Current == nil {
		return "stopped"
	}
	state := "paused"
	if s.IsPlaying {
		state = "playing"
	}
	return state + ": " + s.Current.Artist() + " - " + s.Current.Title() +
		" [" + shared.FormatDuration(s.PositionMs) + "/" + shared.FormatDuration(s.Current.DurationMs()) + "]"
}

// sendLatest delivers snap without blocking, replacing an undelivered older snapshot.
func sendLatest(ch chan Snapshot, snap Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
