package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Resolution errors
	ErrResolution         = fmt.Errorf("could not resolve track")
	ErrNoResults          = fmt.Errorf("no results found")
	ErrUnsupportedLocator = fmt.Errorf("unsupported locator")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Playback errors
	ErrTransportStart     = fmt.Errorf("transport rejected play request")
	ErrTransportClosed    = fmt.Errorf("transport connection closed")
	ErrDestinationOffline = fmt.Errorf("destination unreachable")
	ErrSessionStopped     = fmt.Errorf("session stopped")
	ErrSessionNotFound    = fmt.Errorf("session not found")
	ErrBridgeClosed       = fmt.Errorf("event bridge closed")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRecordNotFound     = fmt.Errorf("record not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
