package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/playback"
	"github.com/desertthunder/jukebox/internal/shared"
)

// mockResolver resolves every query to an item titled after it.
type mockResolver struct {
	mu      sync.Mutex
	calls   int
	err     error
	started chan string   // receives the query when a lookup begins, if set
	release chan struct{} // lookups block until closed, if set
}

func (m *mockResolver) Name() string { return "mock" }

func (m *mockResolver) Resolve(ctx context.Context, raw string) (models.PlaylistItem, error) {
	m.mu.Lock()
	m.calls++
	err := m.err
	m.mu.Unlock()

	if m.started != nil {
		m.started <- raw
	}
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return models.PlaylistItem{}, ctx.Err()
		}
	}

	if err != nil {
		return models.PlaylistItem{}, fmt.Errorf("%w: %q: %w", shared.ErrResolution, raw, err)
	}
	return testItem(raw), nil
}

func testItem(title string) models.PlaylistItem {
	loc, _ := models.ParseLocator(title)
	meta := models.ItemMetadata{Title: title, Duration: time.Minute}
	return models.NewPlaylistItem(meta, "https://example.com/"+title, loc, title, "")
}

// mockTransport accepts every play and records it.
type mockTransport struct {
	mu    sync.Mutex
	plays []string
}

func (m *mockTransport) Connect(ctx context.Context, key string) (playback.Connection, error) {
	return &mockConn{transport: m}, nil
}

func (m *mockTransport) played() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.plays...)
}

type mockConn struct {
	transport *mockTransport
}

func (c *mockConn) Play(item models.PlaylistItem, token playback.TrackToken) error {
	c.transport.mu.Lock()
	defer c.transport.mu.Unlock()
	c.transport.plays = append(c.transport.plays, item.Title())
	return nil
}

func (c *mockConn) Pause() error  { return nil }
func (c *mockConn) Resume() error { return nil }
func (c *mockConn) Stop() error   { return nil }
func (c *mockConn) Close() error  { return nil }

// mockStore keeps created records in memory.
type mockStore struct {
	mu      sync.Mutex
	records []*models.PlayRecord
	err     error
}

func (m *mockStore) Create(record *models.PlayRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

var errStore = errors.New("disk full")

func newTestEngine(resolver *mockResolver) (*PlaybackEngine, *playback.Registry, *mockTransport) {
	transport := &mockTransport{}
	registry := playback.NewRegistry(playback.Options{Transport: transport, Hub: playback.NewHub(16)}, time.Minute)
	return NewPlaybackEngine(registry, resolver, nil), registry, transport
}

// waitFor polls cond until it holds or a second passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
