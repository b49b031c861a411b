package playback

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

const (
	// DefaultMaxFailures is how many consecutive start failures halt auto-advance.
	DefaultMaxFailures = 3

	defaultConnectTimeout = 10 * time.Second
)

// Options configures the sessions a [Registry] creates.
type Options struct {
	Transport      Transport
	Hub            *Hub
	Logger         *log.Logger
	MaxFailures    int
	ConnectTimeout time.Duration
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = shared.NewLogger(io.Discard)
	}
	if o.MaxFailures <= 0 {
		o.MaxFailures = DefaultMaxFailures
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Snapshot is a copy of a session's state taken under its lock.
type Snapshot struct {
	Key          string
	State        State
	Current      *models.PlaylistItem
	Token        TrackToken
	Queue        []models.PlaylistItem
	Failures     int
	LastActivity time.Time
}

// Session is the playback queue for one destination.
//
// The stopped, expired and lastActivity fields are readable without mu so the
// registry never waits on a session lock.
type Session struct {
	key    string
	opts   Options
	logger *log.Logger

	stopped      atomic.Bool
	expired      atomic.Bool
	lastActivity atomic.Int64

	// connMu serializes transport connects, which run outside mu.
	connMu sync.Mutex

	mu       sync.Mutex
	queue    []models.PlaylistItem
	current  *models.PlaylistItem
	token    TrackToken
	state    State
	failures int
	conn     Connection
	connErr  error
}

// NewSession creates an Idle session for key. Most callers should go through [Registry.GetOrCreate].
func NewSession(key string, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		key:    key,
		opts:   opts,
		logger: shared.WithLogger(opts.Logger, "session", key),
		state:  StateIdle,
	}
	s.touch()
	return s
}

// Key returns the destination key.
func (s *Session) Key() string { return s.key }

// State returns the current playback state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Expired reports whether the session was stopped by idle eviction rather than by a caller.
func (s *Session) Expired() bool { return s.expired.Load() }

// Token returns the token of the current item, or 0 if nothing is loaded.
func (s *Session) Token() TrackToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0
	}
	return s.token
}

// Current returns a copy of the item playing (or paused), or nil.
func (s *Session) Current() *models.PlaylistItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	item := *s.current
	return &item
}

// Queue returns a copy of the pending items.
func (s *Session) Queue() []models.PlaylistItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.queue)
}

// Snapshot returns a consistent copy of the whole session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Key:          s.key,
		State:        s.state,
		Queue:        slices.Clone(s.queue),
		Failures:     s.failures,
		LastActivity: s.lastSeen(),
	}
	if s.current != nil {
		item := *s.current
		snap.Current = &item
		snap.Token = s.token
	}
	return snap
}

// Enqueue appends item and, if the session is Idle, starts playback right away.
//
// The returned position is 0 when item is now playing, otherwise its 1-based
// place in the queue. A Stopped session rejects the item with
// [shared.ErrSessionStopped]. If item itself was started and the transport
// rejected it, the error wraps [shared.ErrTransportStart]. The same holds when
// restarting an Idle session halted again before reaching item: the item stays
// queued at the returned position and the error reports the halt.
func (s *Session) Enqueue(item models.PlaylistItem) (int, error) {
	if err := item.Validate(); err != nil {
		return 0, err
	}

	s.connect()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		return 0, fmt.Errorf("%w: %s", shared.ErrSessionStopped, s.key)
	}

	s.touch()
	s.queue = append(s.queue, item)
	index := len(s.queue) - 1

	if s.state != StateIdle {
		s.publishLocked(Event{Kind: EventQueued, Item: item, Position: index + 1})
		return index + 1, nil
	}

	// A user request restarts a halted session with a fresh failure budget.
	s.failures = 0
	popped, err := s.startNextLocked()

	switch {
	case index >= popped && s.current == nil:
		pos := index - popped + 1
		s.publishLocked(Event{Kind: EventQueued, Item: item, Position: pos})
		return pos, fmt.Errorf("%w: playback halted after %d consecutive failures, %q is queued at position %d: %w",
			shared.ErrTransportStart, s.failures, item.Title(), pos, err)
	case index >= popped:
		pos := index - popped + 1
		s.publishLocked(Event{Kind: EventQueued, Item: item, Position: pos})
		return pos, nil
	case index == popped-1 && s.current != nil:
		return 0, nil
	default:
		return 0, err
	}
}

// Advance moves past the item identified by expected.
//
// A token that does not match the current item is stale and changes nothing.
func (s *Session) Advance(expected TrackToken) AdvanceOutcome {
	return s.Finish(Signal{Key: s.key, Token: expected, Outcome: SignalEnded})
}

// Skip advances past whatever is playing. With nothing loaded it returns AdvanceIdle and changes nothing.
func (s *Session) Skip() AdvanceOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return AdvanceOutcome{Kind: AdvanceIdle}
	}
	return s.finishLocked(Signal{Key: s.key, Token: s.token, Outcome: SignalEnded})
}

// Finish handles an end-of-track signal from the transport.
//
// Failed outcomes count toward the consecutive-failure threshold; a normal end resets it.
func (s *Session) Finish(sig Signal) AdvanceOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishLocked(sig)
}

func (s *Session) finishLocked(sig Signal) AdvanceOutcome {
	if s.current == nil || sig.Token != s.token {
		s.logger.Debug("dropping stale signal", "token", sig.Token, "current", s.token, "state", s.state)
		return AdvanceOutcome{Kind: AdvanceStale}
	}

	s.touch()
	finished := *s.current
	s.current = nil

	if sig.Outcome == SignalFailed {
		err := sig.Err
		if err == nil {
			err = shared.ErrTransportStart
		}
		if s.recordFailureLocked(finished, sig.Token, err) {
			s.haltLocked()
			s.setStateLocked(StateIdle)
			return AdvanceOutcome{Kind: AdvanceIdle}
		}
	} else {
		s.failures = 0
	}

	s.startNextLocked()

	if s.current == nil {
		s.stopAudioLocked()
		return AdvanceOutcome{Kind: AdvanceIdle}
	}
	return AdvanceOutcome{Kind: AdvanceAdvanced, Item: *s.current, Token: s.token}
}

// Pause pauses playback. It reports false when the session was not playing.
func (s *Session) Pause() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		return false, nil
	}
	if s.conn != nil {
		if err := s.conn.Pause(); err != nil {
			return false, fmt.Errorf("failed to pause %s: %w", s.key, err)
		}
	}

	s.touch()
	s.setStateLocked(StatePaused)
	return true, nil
}

// Resume resumes paused playback. It reports false when the session was not paused.
func (s *Session) Resume() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePaused {
		return false, nil
	}
	if s.conn != nil {
		if err := s.conn.Resume(); err != nil {
			return false, fmt.Errorf("failed to resume %s: %w", s.key, err)
		}
	}

	s.touch()
	s.setStateLocked(StatePlaying)
	return true, nil
}

// Stop clears everything, releases the connection and makes the session terminal.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Session) stopLocked() error {
	if s.state == StateStopped {
		return nil
	}

	s.queue = nil
	s.current = nil
	s.stopped.Store(true)
	s.setStateLocked(StateStopped)
	return s.closeConnLocked()
}

func (s *Session) closeConnLocked() error {
	if s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil
	if err := conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection for %s: %w", s.key, err)
	}
	return nil
}

// expireIfIdle stops the session if it has nothing to do and no activity since deadline.
func (s *Session) expireIfIdle(deadline time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state == StateStopped:
		return true
	case s.state != StateIdle, len(s.queue) > 0, s.lastSeen().After(deadline):
		return false
	}

	s.expired.Store(true)
	if err := s.stopLocked(); err != nil {
		s.logger.Warn("error releasing idle session", "error", err)
	}
	return true
}

func (s *Session) touch() {
	s.lastActivity.Store(s.opts.Now().UnixNano())
}

func (s *Session) lastSeen() time.Time {
	return time.Unix(0, s.lastActivity.Load()).UTC()
}

// connect opens the transport connection if the session has none. It runs
// without mu held; a failure is kept for the next start attempt to report.
func (s *Session) connect() {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	s.mu.Lock()
	ready := s.conn != nil || s.state == StateStopped
	s.mu.Unlock()
	if ready {
		return
	}

	var (
		conn Connection
		err  error
	)
	if s.opts.Transport == nil {
		err = fmt.Errorf("%w: no transport configured", shared.ErrTransportStart)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.ConnectTimeout)
		conn, err = s.opts.Transport.Connect(ctx, s.key)
		cancel()
		if err != nil {
			err = fmt.Errorf("%w: connect: %w", shared.ErrTransportStart, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case err != nil:
		s.connErr = err
	case s.state == StateStopped:
		if err := conn.Close(); err != nil {
			s.logger.Warn("failed to close connection opened during stop", "error", err)
		}
	default:
		s.conn = conn
		s.connErr = nil
	}
}

// startNextLocked pops items until one starts or the failure threshold is reached.
//
// It returns how many items were popped and the last start error. On return
// the session is Playing with s.current set, or Idle.
func (s *Session) startNextLocked() (int, error) {
	var (
		popped  int
		lastErr error
	)

	for len(s.queue) > 0 {
		item := s.queue[0]
		s.queue[0] = models.PlaylistItem{}
		s.queue = s.queue[1:]
		popped++

		s.token++
		token := s.token

		err := s.playLocked(item, token)
		if err == nil {
			s.current = &item
			s.logger.Info("now playing", "title", item.Title(), "token", token)
			s.publishLocked(Event{Kind: EventNowPlaying, Item: item, Token: token})
			s.setStateLocked(StatePlaying)
			return popped, nil
		}

		lastErr = err
		if s.recordFailureLocked(item, token, err) {
			s.haltLocked()
			break
		}
	}

	if len(s.queue) == 0 {
		s.queue = nil
	}
	s.current = nil
	s.setStateLocked(StateIdle)
	return popped, lastErr
}

func (s *Session) playLocked(item models.PlaylistItem, token TrackToken) error {
	if s.conn == nil {
		if s.connErr != nil {
			return s.connErr
		}
		return fmt.Errorf("%w: %s is not connected", shared.ErrTransportStart, s.key)
	}

	if err := s.conn.Play(item, token); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrTransportStart, err)
	}
	return nil
}

// recordFailureLocked counts a failed item and reports whether auto-advance must halt.
func (s *Session) recordFailureLocked(item models.PlaylistItem, token TrackToken, err error) bool {
	s.failures++
	s.logger.Warn("track failed", "title", item.Title(), "token", token, "failures", s.failures, "error", err)
	s.publishLocked(Event{
		Kind:     EventTrackFailed,
		Item:     item,
		Token:    token,
		Err:      err,
		Failures: s.failures,
	})
	return s.failures >= s.opts.MaxFailures
}

func (s *Session) haltLocked() {
	err := fmt.Errorf("%w: %d consecutive failures", shared.ErrTransportStart, s.failures)
	s.logger.Error("halting playback", "failures", s.failures, "remaining", len(s.queue))
	s.publishLocked(Event{
		Kind:     EventPlaybackHalted,
		Err:      err,
		Failures: s.failures,
		Position: len(s.queue),
	})
	s.stopAudioLocked()
	if err := s.closeConnLocked(); err != nil {
		s.logger.Warn("failed to release halted connection", "error", err)
	}
}

// stopAudioLocked silences the destination when the session runs dry.
func (s *Session) stopAudioLocked() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Stop(); err != nil {
		s.logger.Warn("failed to stop audio", "error", err)
	}
}

func (s *Session) setStateLocked(next State) {
	prev := s.state
	if prev == next {
		return
	}
	s.state = next
	s.publishLocked(Event{Kind: EventStateChanged, Previous: prev, Current: next})
}

func (s *Session) publishLocked(e Event) {
	e.Key = s.key
	e.At = s.opts.Now()
	s.opts.Hub.Publish(e)
}
