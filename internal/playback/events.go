package playback

import (
	"time"

	"github.com/desertthunder/jukebox/internal/models"
)

// EventKind enumerates session events.
type EventKind int

const (
	// EventQueued is emitted when an item is appended behind something else.
	EventQueued EventKind = iota
	// EventNowPlaying is emitted each time an item starts with a fresh token.
	EventNowPlaying
	// EventTrackFailed is emitted once per item the transport could not play.
	EventTrackFailed
	// EventPlaybackHalted is emitted when consecutive failures stop auto-advance.
	EventPlaybackHalted
	// EventStateChanged is emitted on every state transition.
	EventStateChanged
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventQueued:
		return "queued"
	case EventNowPlaying:
		return "now_playing"
	case EventTrackFailed:
		return "track_failed"
	case EventPlaybackHalted:
		return "playback_halted"
	case EventStateChanged:
		return "state_changed"
	default:
		return "unknown"
	}
}

// Event describes something that happened in a session.
//
// Which fields are set depends on Kind:
//   - EventQueued: Item, Position
//   - EventNowPlaying: Item, Token
//   - EventTrackFailed: Item, Token, Err, Failures
//   - EventPlaybackHalted: Err, Failures, Position (items left in queue)
//   - EventStateChanged: Previous, Current
type Event struct {
	Kind     EventKind
	Key      string
	Item     models.PlaylistItem
	Token    TrackToken
	Position int
	Previous State
	Current  State
	Failures int
	Err      error
	At       time.Time
}
