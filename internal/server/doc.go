// Package server provides HTTP routing, middleware and the playback API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers "METHOD /path" patterns on an [http.ServeMux].
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// # Endpoints
//
//	GET  /health                  → liveness
//	GET  /sessions                → live session keys
//	GET  /sessions/{key}          → snapshot, 404 when no live session
//	POST /sessions/{key}/play     → {"query": "..."}; 400 missing query, 422 lookup failed, 409 stopped
//	POST /sessions/{key}/skip     → advance past the current item
//	POST /sessions/{key}/stop     → stop and remove the session
//	POST /sessions/{key}/pause    → pause the current item
//	POST /sessions/{key}/resume   → resume a paused item
//	POST /signals                 → end-of-track signal from a transport, 202 once queued
//	GET  /events[?key=...]        → Server-Sent Events stream of session events
//
// Errors are JSON [ErrorResponse] bodies whose message is the same text the CLI prints.
//
// # Middleware
//
//   - [RequestID] : keeps or assigns X-Request-ID
//   - [Logging] : one log line per request
//   - [Recover] : turns panics into 500s
package server
