// package tasks implements the playback command flow.
//
// The core abstraction is PlaybackEngine, which ties the session registry to a track resolver.
// Resolution always happens before any session lock is taken.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/playback"
	"github.com/desertthunder/jukebox/internal/services"
	"github.com/desertthunder/jukebox/internal/shared"
)

// PlayResult is the outcome of a successful [PlaybackEngine.Play].
type PlayResult struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Position int    `json:"position"` // 0 when the item is playing now
}

// Message returns the reply shown to the requester.
func (r PlayResult) Message() string {
	if r.Position == 0 {
		return nowPlayingReply(r.Title)
	}
	return queuedReply(r.Title, r.Position)
}

// Controller defines the playback commands exposed to the server, CLI and TUI.
type Controller interface {
	// Play resolves query and enqueues it on the session for key.
	Play(ctx context.Context, key, query string) (*PlayResult, error)

	// Skip ends the current item and starts the next one.
	Skip(key string) (playback.AdvanceOutcome, error)

	// Stop stops the session for key and removes it.
	Stop(key string) error

	// Pause pauses the current item; false means nothing was playing.
	Pause(key string) (bool, error)

	// Resume resumes a paused item; false means nothing was paused.
	Resume(key string) (bool, error)

	// Queue returns a snapshot of the session for key.
	Queue(key string) (playback.Snapshot, error)

	// Sessions lists the keys of live sessions.
	Sessions() []string
}

// PlaybackEngine implements Controller on a [playback.Registry].
type PlaybackEngine struct {
	registry *playback.Registry
	resolver services.Resolver
	logger   *log.Logger
}

// NewPlaybackEngine creates an engine resolving requests with resolver.
func NewPlaybackEngine(registry *playback.Registry, resolver services.Resolver, logger *log.Logger) *PlaybackEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &PlaybackEngine{registry: registry, resolver: resolver, logger: logger}
}

// Play gets or creates the session for key, resolves query and enqueues the result.
//
// Errors wrap [shared.ErrMissingArgument] for an empty query, [shared.ErrResolution]
// when the lookup fails and [shared.ErrSessionStopped] when the session was stopped
// while the lookup ran; the resolved item is discarded in that case.
func (e *PlaybackEngine) Play(ctx context.Context, key, query string) (*PlayResult, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: empty session key", shared.ErrInvalidArgument)
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	session := e.registry.GetOrCreate(key)
	logger := shared.WithLogger(e.logger, "session", key)

	logger.Debug("resolving", "query", query, "resolver", e.resolver.Name())
	item, err := e.resolver.Resolve(ctx, query)
	if err != nil {
		logger.Warn("resolution failed", "query", query, "error", err)
		return nil, err
	}

	pos, err := session.Enqueue(item)
	if errors.Is(err, shared.ErrSessionStopped) && session.Expired() {
		// Evicted for idleness while resolving; nobody asked it to stop.
		logger.Debug("session expired during resolution, recreating")
		pos, err = e.registry.GetOrCreate(key).Enqueue(item)
	}
	if err != nil {
		if errors.Is(err, shared.ErrSessionStopped) {
			logger.Info("session stopped during resolution, discarding item", "title", item.Title())
		}
		return nil, err
	}

	logger.Info("enqueued", "title", item.Title(), "position", pos)
	return &PlayResult{Key: key, Title: item.Title(), Position: pos}, nil
}

// Skip advances past the current item of a live session.
func (e *PlaybackEngine) Skip(key string) (playback.AdvanceOutcome, error) {
	session, err := e.lookup(key)
	if err != nil {
		return playback.AdvanceOutcome{}, err
	}
	return session.Skip(), nil
}

// Stop stops the session for key and removes it from the registry.
func (e *PlaybackEngine) Stop(key string) error {
	return e.registry.Remove(key)
}

// Pause pauses the session for key.
func (e *PlaybackEngine) Pause(key string) (bool, error) {
	session, err := e.lookup(key)
	if err != nil {
		return false, err
	}
	return session.Pause()
}

// Resume resumes the session for key.
func (e *PlaybackEngine) Resume(key string) (bool, error) {
	session, err := e.lookup(key)
	if err != nil {
		return false, err
	}
	return session.Resume()
}

// Queue returns the current item and queue of the session for key.
func (e *PlaybackEngine) Queue(key string) (playback.Snapshot, error) {
	session, err := e.lookup(key)
	if err != nil {
		return playback.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Sessions lists live session keys.
func (e *PlaybackEngine) Sessions() []string {
	return e.registry.Keys()
}

func (e *PlaybackEngine) lookup(key string) (*playback.Session, error) {
	session, ok := e.registry.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, key)
	}
	return session, nil
}

var _ Controller = (*PlaybackEngine)(nil)
