// Package playback owns per-destination playback queues.
//
// # Sessions
//
// A [Session] holds the FIFO queue, the item currently playing and a monotonic
// [TrackToken] for one destination. Every mutation (Enqueue, Advance, Skip,
// Pause, Resume, Stop, Finish) runs under the session's own mutex, so calls from
// command handlers and from the transport are linearized per destination while
// unrelated destinations never contend.
//
// The token increases on every start attempt. End-of-track signals carry the
// token they were issued for; a signal whose token no longer matches is stale
// and changes nothing.
//
// State machine:
//
//	Idle --Enqueue--> Playing --Advance(queue non-empty)--> Playing
//	Playing --Advance(queue empty)--> Idle
//	Playing <--Pause/Resume--> Paused
//	Playing/Paused/Idle --Stop--> Stopped (terminal)
//
// A play request the transport rejects counts as an immediate end of that item:
// the failure is published and the next item is tried, until
// Options.MaxFailures consecutive failures halt auto-advance and the session
// falls back to Idle with the rest of the queue left in place.
//
// # Registry
//
// [Registry] maps destination keys to sessions. Creation is insert-if-absent
// under one lock, so concurrent first use of a key yields one session.
// Lock order is registry, then session; sessions never call the registry.
//
// # Bridge
//
// [Bridge] consumes transport [Signal] values from a channel and routes them to
// [Session.Finish]. Signals for unknown keys are dropped: that is the normal
// outcome of a shutdown race.
//
// # Events
//
// Sessions publish [Event] values to a [Hub]. Delivery is non-blocking; a
// subscriber that falls behind loses events rather than stalling playback.
package playback
