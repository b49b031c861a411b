package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/jukebox/internal/models"
)

var errRejected = errors.New("destination rejected play request")

type played struct {
	title string
	token TrackToken
}

// fakeTransport records every call and can be told to reject plays.
type fakeTransport struct {
	mu         sync.Mutex
	connects   int
	connectErr error
	conns      []*fakeConn
	failTitles map[string]bool
	failAll    bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failTitles: make(map[string]bool)}
}

func (f *fakeTransport) Connect(ctx context.Context, key string) (Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connects++
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	c := &fakeConn{transport: f, key: key}
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *fakeTransport) failOn(titles ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range titles {
		f.failTitles[t] = true
	}
}

func (f *fakeTransport) setFailAll(v bool) {
	f.mu.Lock()
	f.failAll = v
	f.mu.Unlock()
}

func (f *fakeTransport) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *fakeTransport) plays() []played {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []played
	for _, c := range f.conns {
		out = append(out, c.played...)
	}
	return out
}

type fakeConn struct {
	transport *fakeTransport
	key       string
	played    []played
	pauses    int
	resumes   int
	stops     int
	closed    bool
}

func (c *fakeConn) Play(item models.PlaylistItem, token TrackToken) error {
	c.transport.mu.Lock()
	defer c.transport.mu.Unlock()

	if c.closed {
		return fmt.Errorf("connection for %s is closed", c.key)
	}
	if c.transport.failAll || c.transport.failTitles[item.Title()] {
		return errRejected
	}
	c.played = append(c.played, played{title: item.Title(), token: token})
	return nil
}

func (c *fakeConn) Pause() error {
	c.transport.mu.Lock()
	c.pauses++
	c.transport.mu.Unlock()
	return nil
}

func (c *fakeConn) Resume() error {
	c.transport.mu.Lock()
	c.resumes++
	c.transport.mu.Unlock()
	return nil
}

func (c *fakeConn) Stop() error {
	c.transport.mu.Lock()
	c.stops++
	c.transport.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.transport.mu.Lock()
	c.closed = true
	c.transport.mu.Unlock()
	return nil
}

func item(title string) models.PlaylistItem {
	loc := models.Locator{Kind: models.SearchPhrase, Value: title}
	return models.NewPlaylistItem(
		models.ItemMetadata{Title: title, Duration: 3 * time.Minute},
		"https://example.com/watch?v="+title,
		loc,
		title,
		"",
	)
}

// fixedClock is a settable time source.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestSession(t *fakeTransport, hub *Hub) *Session {
	return NewSession("guild-1", Options{Transport: t, Hub: hub})
}

// drain collects every event currently buffered on sub.
func drain(sub *Subscription) []Event {
	var out []Event
	for {
		select {
		case e := <-sub.Events:
			out = append(out, e)
		default:
			return out
		}
	}
}

func ofKind(events []Event, kind EventKind) []Event {
	var out []Event
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
