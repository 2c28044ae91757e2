// Package ui implements an interactive terminal player using bubbletea's Elm architecture.
//
// The TUI has three tabs over one [tasks.Session]:
//  1. [SearchView] : the search box plus merged online results, updated as the debounced query publishes
//  2. [LocalView] : local tracks that are not hidden and match the query
//  3. [LibraryView] : playlists; enter opens one as [PlaylistTracksView]
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Session snapshots arrive on a latest-wins channel, so a slow render never blocks the player.
//
// The search box takes every printable key while focused; esc moves focus to the list, where
// single-letter bindings control playback. Help is rendered with charmbracelet/bubbles/help.
package ui
