// Package tasks runs the interactive player: searching, resolving and queueing tracks.
//
// # Owner Loop
//
// A [Loop] executes posted closures one at a time. The [Orchestrator], [QueueController] and [Session]
// keep their mutable state on it; anything that blocks (adapter HTTP calls, stream resolution, catalog scans)
// runs elsewhere and posts its result back.
//
// # Search
//
//  1. [Orchestrator.Query] bumps the generation and starts a debounce timer
//  2. When the timer fires for the latest generation, every selectable catalog is queried on the [Pool]
//  3. Results are joined, concatenated in dispatch order and deduplicated by origin URI
//  4. The merge is published only if its generation is still the latest
//
// # Playback
//
// [QueueController.Play] resolves the selected track through the [Resolver], loads its source list into the
// [player.Engine] and starts playback. Engine errors skip to the next item; an error on the last item is
// reported as a terminal error.
//
// # Observing
//
// [Session.Subscribe] delivers immutable [Snapshot] values without ever blocking the loop.
// A [Poller] samples the playback position on its own goroutine.
//
// [ExportPlaylists] writes library playlists to disk on a worker pool.
package tasks
