package playback

import (
	"slices"
	"sync"
	"sync/atomic"
)

const defaultEventBuffer = 64

// Subscription receives session events from a [Hub].
type Subscription struct {
	Events <-chan Event
	Done   <-chan struct{}

	eventCh chan Event
	doneCh  chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

func newSubscription(buffer int) *Subscription {
	s := &Subscription{
		eventCh: make(chan Event, buffer),
		doneCh:  make(chan struct{}),
	}
	s.Events = s.eventCh
	s.Done = s.doneCh
	return s
}

// Dropped returns how many events were discarded because the buffer was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// send delivers e without blocking.
func (s *Subscription) send(e Event) {
	select {
	case s.eventCh <- e:
	default:
		s.dropped.Add(1)
	}
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.doneCh) })
}

// Hub fans events out to subscribers. The zero value is not usable; use [NewHub].
type Hub struct {
	mu     sync.RWMutex
	subs   []*Subscription
	buffer int
	closed bool
}

// NewHub creates a hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	return &Hub{buffer: buffer}
}

// Subscribe registers a new subscription. After Close, the returned subscription is already done.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := newSubscription(h.buffer)
	if h.closed {
		sub.close()
		return sub
	}
	h.subs = append(h.subs, sub)
	return sub
}

// Unsubscribe removes sub and signals its Done channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	h.subs = slices.DeleteFunc(h.subs, func(s *Subscription) bool { return s == sub })
	h.mu.Unlock()
	sub.close()
}

// Publish delivers e to every subscriber without blocking.
func (h *Hub) Publish(e Event) {
	if h == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		sub.send(e)
	}
}

// Close signals every subscriber and drops them.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, sub := range h.subs {
		sub.close()
	}
	h.subs = nil
}
