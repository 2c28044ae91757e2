package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SearchView ViewState = iota
	LocalView
	LibraryView
	PlaylistTracksView
)

func (v ViewState) String() string {
	switch v {
	case SearchView:
		return "Search"
	case LocalView:
		return "Local"
	case LibraryView, PlaylistTracksView:
		return "Library"
	default:
		return ""
	}
}

// Controller is the player session the TUI drives.
type Controller interface {
	Subscribe() (<-chan tasks.Snapshot, func())
	Query(text string)
	Play(ctx context.Context, track models.Track, source models.QueueSource) error
	TogglePlay()
	Next()
	Previous()
	SeekFraction(f float64)
	DismissError()
	SetOnline(enabled bool) error
	OpenPlaylist(id string) error
	RefreshPlaylist() error
	Hide(id int64) error
}

// Library lists playlists and toggles favorites.
type Library interface {
	Playlists() []models.Playlist
	ToggleFavorite(track models.Track) (bool, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	ctrl      Controller
	library   Library
	snaps     <-chan tasks.Snapshot
	cancel    func()
	snap      tasks.Snapshot
	input     textinput.Model
	typing    bool
	tracks    list.Model
	playlists list.Model
	width     int
	height    int
	opening   string // playlist id being opened
	notice    string
	err       error
	help      help.Model
	keys      keyMap
}

// NewModel creates a TUI model subscribed to ctrl. The search box starts focused.
func NewModel(ctx context.Context, ctrl Controller, library Library) *Model {
	input := textinput.New()
	input.Placeholder = "search local and online catalogs"
	input.Prompt = "› "
	input.Focus()

	tracks := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	tracks.SetShowHelp(false)
	tracks.SetFilteringEnabled(false)

	playlists := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	playlists.Title = "Playlists"
	playlists.SetShowHelp(false)
	playlists.SetFilteringEnabled(false)

	snaps, cancel := ctrl.Subscribe()

	m := &Model{
		ctx:       ctx,
		view:      SearchView,
		ctrl:      ctrl,
		library:   library,
		snaps:     snaps,
		cancel:    cancel,
		input:     input,
		typing:    true,
		tracks:    tracks,
		playlists: playlists,
		help:      help.New(),
		keys:      newKeyMap(),
	}
	m.refreshLists()
	return m
}

// Init starts listening for session snapshots.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForSnapshot())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.tracks.SetSize(msg.Width-4, max(msg.Height-10, 4))
		m.playlists.SetSize(msg.Width-4, max(msg.Height-10, 4))
		return m, nil

	case Msg:
		switch msg.kind {
		case MsgSnapshot:
			m.snap = msg.data.(tasks.Snapshot)
			m.refreshLists()
			return m, m.waitForSnapshot()
		case MsgSubscriptionClosed:
			return m, tea.Quit
		case MsgActionDone:
			res := msg.data.(actionResult)
			m.notice, m.err = res.notice, res.err
			if m.opening != "" {
				if res.err == nil {
					m.view = PlaylistTracksView
				}
				m.opening = ""
			}
			m.refreshLists()
			return m, nil
		}

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.typing {
			return m.handleInputKeys(msg)
		}
		return m.handleListKeys(msg)
	}

	if m.typing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m.updateLists(msg)
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	return m, tea.Quit
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter", "down":
		m.typing = false
		m.input.Blur()
		return m, nil
	case "tab":
		m.switchView()
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.ctrl.Query(m.input.Value())
	}
	return m, cmd
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()

	case key.Matches(msg, m.keys.focus):
		if m.view == PlaylistTracksView {
			m.view = LibraryView
			m.refreshLists()
			return m, nil
		}
		m.typing = true
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.tab):
		m.switchView()
		return m, nil

	case key.Matches(msg, m.keys.enter):
		return m, m.activate()

	case key.Matches(msg, m.keys.toggle):
		m.ctrl.TogglePlay()
		return m, nil

	case key.Matches(msg, m.keys.next):
		m.ctrl.Next()
		return m, nil

	case key.Matches(msg, m.keys.prev):
		m.ctrl.Previous()
		return m, nil

	case key.Matches(msg, m.keys.rewind):
		m.seekBy(-0.1)
		return m, nil

	case key.Matches(msg, m.keys.forward):
		m.seekBy(0.1)
		return m, nil

	case key.Matches(msg, m.keys.dismiss):
		m.ctrl.DismissError()
		m.notice, m.err = "", nil
		return m, nil

	case key.Matches(msg, m.keys.online):
		enabled := !m.snap.Online
		return m, func() tea.Msg {
			if err := m.ctrl.SetOnline(enabled); err != nil {
				return actionDoneMsg("", err)
			}
			return actionDoneMsg(fmt.Sprintf("online search %s", onOff(enabled)), nil)
		}

	case key.Matches(msg, m.keys.favorite):
		return m, m.toggleFavorite()

	case key.Matches(msg, m.keys.hide):
		return m, m.hideSelected()
	}

	return m.updateLists(msg)
}

// switchView cycles Search, Local and Library.
func (m *Model) switchView() {
	switch m.view {
	case SearchView:
		m.view = LocalView
	case LocalView:
		m.view = LibraryView
	default:
		m.view = SearchView
	}
	m.refreshLists()
}

// activate plays the selected track or opens the selected playlist.
func (m *Model) activate() tea.Cmd {
	if m.view == LibraryView {
		selected, ok := m.playlists.SelectedItem().(playlistItem)
		if !ok {
			return nil
		}
		id := selected.playlist.ID
		m.opening = id
		return func() tea.Msg {
			if err := m.ctrl.OpenPlaylist(id); err != nil {
				return actionDoneMsg("", err)
			}
			return actionDoneMsg("", nil)
		}
	}

	track, ok := m.selectedTrack()
	if !ok {
		return nil
	}
	source := sourceFor(m.view)
	return func() tea.Msg {
		if err := m.ctrl.Play(m.ctx, track, source); err != nil {
			return actionDoneMsg("", err)
		}
		return actionDoneMsg("", nil)
	}
}

func (m *Model) toggleFavorite() tea.Cmd {
	track, ok := m.selectedTrack()
	if !ok && m.snap.Current != nil {
		track, ok = *m.snap.Current, true
	}
	if !ok || m.library == nil {
		return nil
	}
	return func() tea.Msg {
		added, err := m.library.ToggleFavorite(track)
		if err != nil {
			return actionDoneMsg("", err)
		}
		if err := m.ctrl.RefreshPlaylist(); err != nil {
			return actionDoneMsg("", err)
		}
		if added {
			return actionDoneMsg("added to favorites: "+track.Title(), nil)
		}
		return actionDoneMsg("removed from favorites: "+track.Title(), nil)
	}
}

func (m *Model) hideSelected() tea.Cmd {
	track, ok := m.selectedTrack()
	if !ok || m.view != LocalView {
		return nil
	}
	return func() tea.Msg {
		if err := m.ctrl.Hide(track.ID()); err != nil {
			return actionDoneMsg("", err)
		}
		return actionDoneMsg("hidden: "+track.Title(), nil)
	}
}

func (m *Model) seekBy(delta float64) {
	cur := m.snap.Current
	if cur == nil || cur.DurationMs() <= 0 {
		return
	}
	m.ctrl.SeekFraction(float64(m.snap.PositionMs)/float64(cur.DurationMs()) + delta)
}

func (m *Model) selectedTrack() (models.Track, bool) {
	if m.view == LibraryView {
		return models.Track{}, false
	}
	item, ok := m.tracks.SelectedItem().(trackItem)
	if !ok {
		return models.Track{}, false
	}
	return item.track, true
}

func sourceFor(v ViewState) models.QueueSource {
	switch v {
	case LocalView:
		return models.SourceLocal
	case PlaylistTracksView:
		return models.SourceLibrary
	default:
		return models.SourceSearch
	}
}

// refreshLists rebuilds the visible list from the latest snapshot.
func (m *Model) refreshLists() {
	switch m.view {
	case SearchView:
		m.tracks.Title = fmt.Sprintf("Online results (%s)", m.snap.SearchState)
		m.tracks.SetItems(trackItems(m.snap.Results, m.snap.Current))
	case LocalView:
		m.tracks.Title = "Local tracks"
		m.tracks.SetItems(trackItems(m.snap.Local, m.snap.Current))
	case PlaylistTracksView:
		m.tracks.Title = "Playlist " + m.playlistName(m.snap.PlaylistID)
		m.tracks.SetItems(trackItems(m.snap.PlaylistTracks, m.snap.Current))
	case LibraryView:
		if m.library != nil {
			m.playlists.SetItems(playlistItems(m.library.Playlists()))
		}
	}
}

func (m *Model) playlistName(id string) string {
	if m.library == nil {
		return id
	}
	for _, p := range m.library.Playlists() {
		if p.ID == id {
			return p.Name
		}
	}
	return id
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.view == LibraryView {
		m.playlists, cmd = m.playlists.Update(msg)
	} else {
		m.tracks, cmd = m.tracks.Update(msg)
	}
	return m, cmd
}

func (m *Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.snaps
		if !ok {
			return closedMsg()
		}
		return snapshotMsg(snap)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.view == LibraryView {
		b.WriteString(m.playlists.View())
	} else {
		b.WriteString(m.tracks.View())
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.helpKeys()))

	return b.String()
}

func (m *Model) renderTabs() string {
	tabs := make([]string, 0, 3)
	for _, v := range []ViewState{SearchView, LocalView, LibraryView} {
		label := v.String()
		if v == m.view || (v == LibraryView && m.view == PlaylistTracksView) {
			tabs = append(tabs, styles.active.Render(label))
		} else {
			tabs = append(tabs, styles.tab.Render(label))
		}
	}

	online := styles.help.Render("offline")
	if m.snap.Online {
		online = styles.ok.Render("online")
	}
	if m.snap.HasPinned {
		online += styles.help.Render(" · " + m.snap.Pinned.Label())
	}
	return strings.Join(tabs, " ") + "  " + online
}

func (m *Model) renderStatus() string {
	lines := []string{styles.status.Render(m.snap.Status())}

	switch {
	case m.err != nil:
		lines = append(lines, styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.snap.Error != "":
		lines = append(lines, styles.warn.Render(m.snap.Error+" (d to dismiss)"))
	case m.notice != "":
		lines = append(lines, styles.help.Render(m.notice))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) helpKeys() []key.Binding {
	if m.typing {
		return []key.Binding{m.keys.focus, m.keys.tab, m.keys.quit}
	}
	keys := []key.Binding{m.keys.enter, m.keys.toggle, m.keys.next, m.keys.prev, m.keys.favorite}
	if m.view == LocalView {
		keys = append(keys, m.keys.hide)
	}
	return append(keys, m.keys.online, m.keys.focus, m.keys.tab, m.keys.quit)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
