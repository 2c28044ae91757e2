// Package services implements one [Provider] per remote music catalog.
//
// # Provider Interface
//
// Every catalog exposes the same two capabilities:
//   - Search: translate a query into the catalog's request, parse its bespoke response shape and emit [models.Track] records
//   - Resolve: turn a stored track reference into a stream URL using the catalog's own anti-hotlinking protocol
//
// Search never fails. Network errors ([shared.ErrProviderUnavailable]) and shape mismatches
// ([shared.ErrMalformedResponse]) are logged at debug level and degrade to an empty result,
// because partial provider failure is routine. Individual records with missing or wrong-typed
// fields are skipped or defaulted instead of discarding the whole response.
//
// # Catalogs
//
//   - [KuwoProvider] : JS-literal response (single quotes) under abslist; anti-leech rid exchange
//   - [KugouProvider] : results under data.info; resolution by hash lookup
//   - [BodianProvider] : flat data array whose url is already the stream
//   - [NetEaseProvider] : results under result.songs; playback url lookup on the selected endpoint
//
// # HTTP
//
// All requests go through one [Fetcher], which owns the long-lived [http.Client], stamps the shared
// User-Agent and Referer headers (Kuwo rejects requests without them) and rate limits each catalog.
package services
