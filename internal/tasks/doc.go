// Package tasks runs the playback command flow on top of the session registry.
//
// # Core Operations
//
// [PlaybackEngine] is what the HTTP server, CLI and TUI call:
//
//  1. [PlaybackEngine.Play] : resolve a request and enqueue it
//     - Gets or creates the session for the destination key
//     - Resolves the query outside every session lock
//     - Enqueues the item; an Idle session starts it right away
//     - Discards the item when the session stopped during resolution
//
//  2. [PlaybackEngine.Skip], [PlaybackEngine.Pause], [PlaybackEngine.Resume] : act on a live session
//
//  3. [PlaybackEngine.Stop] : stop and forget a session
//
//  4. [PlaybackEngine.Queue] : snapshot of current item and queue
//
// # Replies
//
// [PlayResult.Message] and [FailureMessage] build the text shown to users,
// e.g. `Now playing "<title>"` or `could not fetch the song: <err>`.
//
// # Background Workers
//
//   - [IdleSweeper] : evicts sessions that stayed idle past the grace period
//   - [HistoryRecorder] : persists now-playing and failure events as play records
package tasks
