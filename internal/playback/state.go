package playback

import "github.com/desertthunder/jukebox/internal/models"

// TrackToken identifies one playback attempt within a session.
type TrackToken uint64

// State represents the playback state of a session.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// IsActive returns true if something is loaded (playing or paused).
func (s State) IsActive() bool {
	return s == StatePlaying || s == StatePaused
}

// AdvanceKind tells what an advance did.
type AdvanceKind int

const (
	// AdvanceStale means the token did not match; nothing changed.
	AdvanceStale AdvanceKind = iota
	// AdvanceAdvanced means the next item is now playing.
	AdvanceAdvanced
	// AdvanceIdle means the session ran out of items (or halted) and is Idle.
	AdvanceIdle
)

// String returns the kind name.
func (k AdvanceKind) String() string {
	switch k {
	case AdvanceStale:
		return "Stale"
	case AdvanceAdvanced:
		return "Advanced"
	case AdvanceIdle:
		return "Idle"
	default:
		return "Unknown"
	}
}

// AdvanceOutcome is the result of Advance, Skip and Finish.
type AdvanceOutcome struct {
	Kind  AdvanceKind
	Item  models.PlaylistItem // set when Kind is AdvanceAdvanced
	Token TrackToken          // token of Item
}

// SignalOutcome is how the transport says a track ended.
type SignalOutcome int

const (
	SignalEnded SignalOutcome = iota
	SignalFailed
)

// String returns the outcome name.
func (o SignalOutcome) String() string {
	switch o {
	case SignalEnded:
		return "ended"
	case SignalFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Signal is an end-of-track notification emitted by the transport.
type Signal struct {
	Key     string
	Token   TrackToken
	Outcome SignalOutcome
	Err     error
}
