// Package models defines the value types shared by every tunepool layer.
//
//   - [Track] : immutable normalized record for one playable item, local or online
//   - [TrackKey] : composite (provider, origin uri) identity used for dedup and membership
//   - [ProviderTag] : closed set of track origins; the online tags are the catalog kinds
//   - [CatalogEndpoint] : a configured base URL for one catalog
//   - [Playlist] : ordered membership list, including the reserved favorites playlist
//   - [SearchSession] : query plus the generation that invalidates older work
//
// Provider-local numeric ids collide across catalogs and are random for catalogs without stable ids,
// so nothing outside display code should key on [Track.ID].
package models
