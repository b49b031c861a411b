package playback

import (
	"context"

	"github.com/desertthunder/jukebox/internal/models"
)

// Transport opens connections to destinations.
type Transport interface {
	Connect(ctx context.Context, key string) (Connection, error)
}

// Connection is one open audio channel to a destination, owned by exactly one [Session].
//
// All methods must return promptly: Play starts playback and returns, and the
// end of the track is reported later as a [Signal] carrying token. A non-nil
// error from Play means the item never started. Play replaces whatever is
// currently playing.
type Connection interface {
	Play(item models.PlaylistItem, token TrackToken) error
	Pause() error
	Resume() error
	// Stop halts the current track without releasing the connection.
	Stop() error
	// Close releases the connection; it is not used again.
	Close() error
}
