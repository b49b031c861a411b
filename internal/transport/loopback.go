// package transport provides destinations that sessions stream to.
//
// [Loopback] plays nothing: it waits out each track on a timer and reports the
// end as a [playback.Signal], which is enough to drive the orchestrator
// end-to-end without a real voice connection.
package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/playback"
	"github.com/desertthunder/jukebox/internal/shared"
)

const (
	// DefaultTrackLength stands in for items whose duration is unknown.
	DefaultTrackLength = 3 * time.Minute

	submitTimeout = 5 * time.Second
)

// SignalSink receives end-of-track signals. [playback.Bridge] implements it.
type SignalSink interface {
	Submit(ctx context.Context, sig playback.Signal) error
}

// Options configures a [Loopback].
type Options struct {
	// Speed divides every track length. Values <= 0 mean real time.
	Speed float64
	// DefaultLength is used for items without a duration.
	DefaultLength time.Duration
	// Unreachable lists destination keys that refuse connections.
	Unreachable []string
	Logger      *log.Logger
}

// Loopback is a simulated transport.
type Loopback struct {
	sink   SignalSink
	speed  float64
	length time.Duration
	logger *log.Logger

	mu          sync.Mutex
	unreachable map[string]bool
	conns       map[string]*Connection
	started     map[string]int
}

// NewLoopback creates a loopback transport that reports track ends to sink.
func NewLoopback(sink SignalSink, opts Options) *Loopback {
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	if opts.DefaultLength <= 0 {
		opts.DefaultLength = DefaultTrackLength
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	l := &Loopback{
		sink:        sink,
		speed:       opts.Speed,
		length:      opts.DefaultLength,
		logger:      opts.Logger,
		unreachable: make(map[string]bool),
		conns:       make(map[string]*Connection),
		started:     make(map[string]int),
	}
	for _, key := range opts.Unreachable {
		l.unreachable[key] = true
	}
	return l
}

// Connect opens a connection to the destination named by key.
func (l *Loopback) Connect(ctx context.Context, key string) (playback.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.unreachable[key] {
		return nil, fmt.Errorf("%w: %s", shared.ErrDestinationOffline, key)
	}

	c := &Connection{loopback: l, key: key}
	l.conns[key] = c
	l.logger.Debug("destination connected", "session", key)
	return c, nil
}

// SetReachable marks a destination reachable or not. Open connections start
// rejecting play requests as soon as their destination goes offline.
func (l *Loopback) SetReachable(key string, reachable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if reachable {
		delete(l.unreachable, key)
	} else {
		l.unreachable[key] = true
	}
}

// Started returns how many tracks the destination has started.
func (l *Loopback) Started(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started[key]
}

// Connected reports whether key has an open connection.
func (l *Loopback) Connected(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.conns[key]
	return ok
}

func (l *Loopback) reachable(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.unreachable[key]
}

func (l *Loopback) recordStart(key string) {
	l.mu.Lock()
	l.started[key]++
	l.mu.Unlock()
}

func (l *Loopback) release(c *Connection) {
	l.mu.Lock()
	if l.conns[c.key] == c {
		delete(l.conns, c.key)
	}
	l.mu.Unlock()
}

// scale converts a track length to wall-clock time.
func (l *Loopback) scale(d time.Duration) time.Duration {
	if d <= 0 {
		d = l.length
	}
	return time.Duration(float64(d) / l.speed)
}

func (l *Loopback) emit(sig playback.Signal) {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	if err := l.sink.Submit(ctx, sig); err != nil {
		l.logger.Warn("failed to deliver signal", "session", sig.Key, "token", sig.Token, "error", err)
	}
}

// Connection is one destination's simulated audio channel.
type Connection struct {
	loopback *Loopback
	key      string

	mu        sync.Mutex
	timer     *time.Timer
	gen       uint64
	token     playback.TrackToken
	remaining time.Duration
	startedAt time.Time
	paused    bool
	closed    bool
}

// Play replaces whatever is playing with item. The end is reported
// asynchronously with token.
func (c *Connection) Play(item models.PlaylistItem, token playback.TrackToken) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("%w: %s", shared.ErrTransportClosed, c.key)
	}
	if !c.loopback.reachable(c.key) {
		return fmt.Errorf("%w: %s", shared.ErrDestinationOffline, c.key)
	}

	c.stopTimerLocked()
	c.token = token
	c.paused = false
	c.remaining = c.loopback.scale(item.Duration())
	c.startTimerLocked()
	c.loopback.recordStart(c.key)
	c.loopback.logger.Debug("playing", "session", c.key, "title", item.Title(), "token", token, "for", c.remaining)
	return nil
}

// Pause holds the current track, remembering how much of it is left.
func (c *Connection) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("%w: %s", shared.ErrTransportClosed, c.key)
	}
	if c.paused || c.timer == nil {
		return nil
	}

	c.stopTimerLocked()
	c.remaining -= time.Since(c.startedAt)
	if c.remaining < 0 {
		c.remaining = 0
	}
	c.paused = true
	return nil
}

// Resume continues a paused track.
func (c *Connection) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("%w: %s", shared.ErrTransportClosed, c.key)
	}
	if !c.paused {
		return nil
	}

	c.paused = false
	c.startTimerLocked()
	return nil
}

// Stop silences the destination without closing it.
func (c *Connection) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	c.paused = false
	return nil
}

// Close releases the destination. Pending track ends are never reported.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stopTimerLocked()
	c.mu.Unlock()

	c.loopback.release(c)
	c.loopback.logger.Debug("destination closed", "session", c.key)
	return nil
}

func (c *Connection) startTimerLocked() {
	c.gen++
	gen := c.gen
	c.startedAt = time.Now()
	c.timer = time.AfterFunc(c.remaining, func() { c.finish(gen) })
}

func (c *Connection) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// finish runs on the timer goroutine. A timer that lost a race with Play,
// Pause, Stop or Close sees a newer generation and reports nothing.
func (c *Connection) finish(gen uint64) {
	c.mu.Lock()
	if c.closed || c.paused || c.timer == nil || c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	token := c.token
	reachable := c.loopback.reachable(c.key)
	c.mu.Unlock()

	sig := playback.Signal{Key: c.key, Token: token, Outcome: playback.SignalEnded}
	if !reachable {
		sig.Outcome = playback.SignalFailed
		sig.Err = fmt.Errorf("%w: %s", shared.ErrDestinationOffline, c.key)
	}
	c.loopback.emit(sig)
}
