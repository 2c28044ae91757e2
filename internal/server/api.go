package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/shared"
	"github.com/desertthunder/tunepool/internal/tasks"
)

// Controller is the player session driven by the API.
type Controller interface {
	Snapshot() tasks.Snapshot
	Query(text string)
	Play(ctx context.Context, track models.Track, source models.QueueSource) error
	TogglePlay()
	Next()
	Previous()
	SeekFraction(f float64)
	DismissError()
	SetOnline(enabled bool) error
	SetPinned(kind models.ProviderTag) error
	ClearPinned() error
	OpenPlaylist(id string) error
	Hide(id int64) error
	Unhide(id int64) error
}

// PlaylistLister lists library playlists.
type PlaylistLister interface {
	Playlists() []models.Playlist
}

// EndpointLister lists catalog endpoints and the selected one per catalog.
type EndpointLister interface {
	Endpoints() []models.CatalogEndpoint
	Selected(kind models.ProviderTag) (models.CatalogEndpoint, bool)
}

// API serves the local control API under /api/.
type API struct {
	ctrl      Controller
	playlists PlaylistLister
	endpoints EndpointLister
	logger    *log.Logger
	mux       *http.ServeMux
}

// NewAPI builds the control API. playlists and endpoints may be nil; their routes then answer 503.
func NewAPI(ctrl Controller, playlists PlaylistLister, endpoints EndpointLister, logger *log.Logger) *API {
	a := &API{ctrl: ctrl, playlists: playlists, endpoints: endpoints, logger: logger, mux: http.NewServeMux()}

	a.mux.HandleFunc("GET /api/status", a.status)
	a.mux.HandleFunc("GET /api/search", a.search)
	a.mux.HandleFunc("POST /api/play", a.play)
	a.mux.HandleFunc("POST /api/toggle", a.transport(ctrl.TogglePlay))
	a.mux.HandleFunc("POST /api/next", a.transport(ctrl.Next))
	a.mux.HandleFunc("POST /api/previous", a.transport(ctrl.Previous))
	a.mux.HandleFunc("POST /api/dismiss", a.transport(ctrl.DismissError))
	a.mux.HandleFunc("POST /api/seek", a.seek)
	a.mux.HandleFunc("POST /api/online", a.online)
	a.mux.HandleFunc("POST /api/pin", a.pin)
	a.mux.HandleFunc("GET /api/playlists", a.listPlaylists)
	a.mux.HandleFunc("POST /api/playlists/{id}/open", a.openPlaylist)
	a.mux.HandleFunc("POST /api/local/{id}/hide", a.hide(true))
	a.mux.HandleFunc("POST /api/local/{id}/unhide", a.hide(false))
	a.mux.HandleFunc("GET /api/sources", a.sources)

	return a
}

// Routes implements [Handler].
func (a *API) Routes() []string {
	return []string{"/api/"}
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// statusView is the JSON form of [tasks.Snapshot].
type statusView struct {
	Query          string         `json:"query"`
	Generation     uint64         `json:"generation"`
	SearchState    string         `json:"search_state"`
	Results        []models.Track `json:"results"`
	Dropped        uint64         `json:"dropped"`
	Online         bool           `json:"online"`
	Pinned         string         `json:"pinned,omitempty"`
	Local          []models.Track `json:"local"`
	Queue          []models.Track `json:"queue"`
	QueueSource    string         `json:"queue_source"`
	CurrentIndex   int            `json:"current_index"`
	Current        *models.Track  `json:"current,omitempty"`
	Playing        bool           `json:"playing"`
	PositionMs     int64          `json:"position_ms"`
	Status         string         `json:"status"`
	Error          string         `json:"error,omitempty"`
	PlaylistID     string         `json:"playlist_id,omitempty"`
	PlaylistTracks []models.Track `json:"playlist_tracks,omitempty"`
}

func newStatusView(s tasks.Snapshot) statusView {
	v := statusView{
		Query:          s.Query,
		Generation:     s.Generation,
		SearchState:    s.SearchState.String(),
		Results:        nonNil(s.Results),
		Dropped:        s.Dropped,
		Online:         s.Online,
		Local:          nonNil(s.Local),
		Queue:          nonNil(s.Queue),
		QueueSource:    s.QueueSource.String(),
		CurrentIndex:   s.CurrentIndex,
		Current:        s.Current,
		Playing:        s.IsPlaying,
		PositionMs:     s.PositionMs,
		Status:         s.Status(),
		Error:          s.Error,
		PlaylistID:     s.PlaylistID,
		PlaylistTracks: s.PlaylistTracks,
	}
	if s.HasPinned {
		v.Pinned = s.Pinned.String()
	}
	return v
}

func nonNil(tracks []models.Track) []models.Track {
	if tracks == nil {
		return []models.Track{}
	}
	return tracks
}

func (a *API) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStatusView(a.ctrl.Snapshot()))
}

// search starts a query; clients poll /api/status for the published results.
func (a *API) search(w http.ResponseWriter, r *http.Request) {
	a.ctrl.Query(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusAccepted, newStatusView(a.ctrl.Snapshot()))
}

type playRequest struct {
	Source string `json:"source"`
	Key    string `json:"key"`
	Index  *int   `json:"index,omitempty"`
}

// play starts a track chosen by key or by index into the source list.
func (a *API) play(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if !decodeBody(w, r, &req) {
		return
	}

	source, err := models.ParseQueueSource(req.Source)
	if err != nil {
		a.fail(w, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err))
		return
	}

	snap := a.ctrl.Snapshot()
	list := sourceTracks(snap, source)

	var track models.Track
	switch {
	case req.Index != nil:
		if *req.Index < 0 || *req.Index >= len(list) {
			a.fail(w, fmt.Errorf("%w: index %d out of range", shared.ErrTrackNotInSource, *req.Index))
			return
		}
		track = list[*req.Index]
	case req.Key != "":
		key, err := models.ParseTrackKey(req.Key)
		if err != nil {
			a.fail(w, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err))
			return
		}
		idx := models.IndexOf(list, key)
		if idx < 0 {
			a.fail(w, fmt.Errorf("%w: %s", shared.ErrTrackNotInSource, key))
			return
		}
		track = list[idx]
	default:
		a.fail(w, fmt.Errorf("%w: key or index", shared.ErrMissingArgument))
		return
	}

	if err := a.ctrl.Play(r.Context(), track, source); err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatusView(a.ctrl.Snapshot()))
}

func sourceTracks(s tasks.Snapshot, source models.QueueSource) []models.Track {
	switch source {
	case models.SourceSearch:
		return s.Results
	case models.SourceLibrary:
		return s.PlaylistTracks
	default:
		return s.Local
	}
}

func (a *API) transport(fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn()
		w.WriteHeader(http.StatusAccepted)
	}
}

func (a *API) seek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fraction float64 `json:"fraction"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	a.ctrl.SeekFraction(req.Fraction)
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) online(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := a.ctrl.SetOnline(req.Enabled); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// pin limits search to one catalog; an empty provider clears the pin.
func (a *API) pin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Provider) == "" {
		if err := a.ctrl.ClearPinned(); err != nil {
			a.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	kind, err := models.ParseProviderTag(req.Provider)
	if err != nil {
		a.fail(w, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err))
		return
	}
	if err := a.ctrl.SetPinned(kind); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) listPlaylists(w http.ResponseWriter, r *http.Request) {
	if a.playlists == nil {
		a.fail(w, fmt.Errorf("%w: library not available", shared.ErrServiceUnavailable))
		return
	}
	writeJSON(w, http.StatusOK, a.playlists.Playlists())
}

func (a *API) openPlaylist(w http.ResponseWriter, r *http.Request) {
	if err := a.ctrl.OpenPlaylist(r.PathValue("id")); err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatusView(a.ctrl.Snapshot()))
}

func (a *API) hide(hidden bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			a.fail(w, fmt.Errorf("%w: track id %q", shared.ErrInvalidArgument, r.PathValue("id")))
			return
		}

		if hidden {
			err = a.ctrl.Hide(id)
		} else {
			err = a.ctrl.Unhide(id)
		}
		if err != nil {
			a.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type sourceView struct {
	models.CatalogEndpoint
	Selected bool `json:"selected"`
}

func (a *API) sources(w http.ResponseWriter, r *http.Request) {
	if a.endpoints == nil {
		a.fail(w, fmt.Errorf("%w: registry not available", shared.ErrServiceUnavailable))
		return
	}

	all := a.endpoints.Endpoints()
	out := make([]sourceView, len(all))
	for i, ep := range all {
		sel, ok := a.endpoints.Selected(ep.Provider)
		out[i] = sourceView{CatalogEndpoint: ep, Selected: ok && sel == ep}
	}
	writeJSON(w, http.StatusOK, out)
}

// fail maps err onto a status code and writes it as a JSON error body.
func (a *API) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrMissingArgument):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrPlaylistNotFound), errors.Is(err, shared.ErrTrackNotInSource):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrServiceUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		status = 499
	}

	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	data, _ := json.Marshal(map[string]string{"error": msg})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}
