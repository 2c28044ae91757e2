// Package repositories implements SQLite persistence for tunepool.
//
// Most state lives in a typed key/value table accessed through [SettingsStore]; online tracks referenced by
// playlists live in their own table so playlists can list them after a restart.
//
// Key Implementations:
//   - [SettingsStore] : string, bool and string set values keyed by name
//   - [TrackRepository] : online tracks unique on provider and origin uri
//   - [CatalogRegistry] : built-in and custom endpoints per catalog and the selected one
//   - [LibraryStore] : playlists, favorites and hidden local tracks
//
// Values that fail to decode are logged and replaced by defaults rather than failing startup.
package repositories
