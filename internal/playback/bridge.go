package playback

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/shared"
)

const defaultSignalBuffer = 64

// SessionLookup finds the live session for a key. [Registry] implements it.
type SessionLookup interface {
	Lookup(key string) (*Session, bool)
}

// LookupFunc adapts a function to [SessionLookup]. It lets a bridge be built
// before the registry whose transport reports into it.
type LookupFunc func(key string) (*Session, bool)

// Lookup calls f(key).
func (f LookupFunc) Lookup(key string) (*Session, bool) { return f(key) }

// Bridge routes transport signals to the session that owns them.
type Bridge struct {
	lookup  SessionLookup
	logger  *log.Logger
	signals chan Signal

	once sync.Once
	done chan struct{}
}

// NewBridge creates a bridge with room for buffer pending signals.
func NewBridge(lookup SessionLookup, buffer int, logger *log.Logger) *Bridge {
	if buffer <= 0 {
		buffer = defaultSignalBuffer
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Bridge{
		lookup:  lookup,
		logger:  logger,
		signals: make(chan Signal, buffer),
		done:    make(chan struct{}),
	}
}

// Submit queues sig for delivery. It blocks while the buffer is full, until ctx is done.
func (b *Bridge) Submit(ctx context.Context, sig Signal) error {
	select {
	case <-b.done:
		return shared.ErrBridgeClosed
	default:
	}

	select {
	case b.signals <- sig:
		return nil
	case <-b.done:
		return shared.ErrBridgeClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run delivers queued signals until ctx is cancelled or the bridge is closed.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			b.drain()
			return nil
		case sig := <-b.signals:
			b.Deliver(sig)
		}
	}
}

// Deliver routes one signal synchronously.
func (b *Bridge) Deliver(sig Signal) AdvanceOutcome {
	s, ok := b.lookup.Lookup(sig.Key)
	if !ok {
		b.logger.Debug("dropping signal for unknown session", "session", sig.Key, "token", sig.Token)
		return AdvanceOutcome{Kind: AdvanceStale}
	}

	out := s.Finish(sig)
	b.logger.Debug("signal delivered",
		"session", sig.Key,
		"token", sig.Token,
		"outcome", sig.Outcome,
		"result", out.Kind,
	)
	return out
}

// Close stops accepting signals. Run delivers whatever is already buffered and returns.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Bridge) drain() {
	for {
		select {
		case sig := <-b.signals:
			b.Deliver(sig)
		default:
			return
		}
	}
}
