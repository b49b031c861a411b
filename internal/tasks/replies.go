package tasks

import (
	"errors"
	"fmt"

	"github.com/desertthunder/jukebox/internal/shared"
)

func nowPlayingReply(title string) string {
	return fmt.Sprintf("Now playing %q", title)
}

func queuedReply(title string, pos int) string {
	return fmt.Sprintf("Queued %q at position %d", title, pos)
}

// FailureMessage returns the reply shown when a command fails.
func FailureMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, shared.ErrMissingArgument):
		return "missing URL or search"
	case errors.Is(err, shared.ErrResolution):
		return fmt.Sprintf("could not fetch the song: %v", err)
	case errors.Is(err, shared.ErrSessionStopped):
		return "playback was stopped before the song could be queued"
	case errors.Is(err, shared.ErrSessionNotFound):
		return "nothing is playing here"
	case errors.Is(err, shared.ErrTransportStart), errors.Is(err, shared.ErrDestinationOffline):
		return fmt.Sprintf("could not start playback: %v", err)
	default:
		return err.Error()
	}
}
