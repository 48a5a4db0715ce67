// Package server implements the local gallery proxy.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first), and the
// [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Routes
//
//   - GET /api/client-id : the current credential as {"clientId": ...}, or 500 {"error": ...}
//   - GET /api/soundcloud/<path> : upstream JSON fetched server-side, so refreshes and 429 backoff
//     happen here and never in the caller
//   - GET /api/gallery : one full load cycle over the configured playlists.json
//   - GET /health : liveness plus credential validity
//   - GET /metrics : Prometheus exposition
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and
// adds routes, so a handler encapsulates its own route definitions.
package server
