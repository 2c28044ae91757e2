// Package server exposes the player session over a small JSON API bound to localhost.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [BasicRouter] registers method patterns on an [http.ServeMux]; [Middleware] registered first runs outermost.
//
// Handlers that own several routes implement [Handler], which adds Routes to the stdlib interface.
// [API] is one: it is mounted at /api/ and dispatches internally.
//
// # Routes
//
//	GET  /api/status                 snapshot of search, queue and playback
//	GET  /api/search?q=              start a debounced query
//	POST /api/play                   {"source": "search", "key": "NETEASE|..."} or {"source": "local", "index": 0}
//	POST /api/toggle|next|previous   transport
//	POST /api/seek                   {"fraction": 0.5}
//	POST /api/dismiss                clear the playback error
//	POST /api/online                 {"enabled": true}
//	POST /api/pin                    {"provider": "KUWO"}, empty clears
//	GET  /api/playlists              library playlists
//	POST /api/playlists/{id}/open    make a playlist the library source list
//	POST /api/local/{id}/hide|unhide hide or restore a local track
//	GET  /api/sources                catalog endpoints with the selected flag
//
// Errors are returned as {"error": "..."} with a status derived from the shared sentinel errors.
package server
