package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/playback"
)

const defaultSweepInterval = 30 * time.Second

// IdleSweeper periodically evicts sessions that have been idle past the registry's grace period.
type IdleSweeper struct {
	registry *playback.Registry
	interval time.Duration
	now      func() time.Time
	logger   *log.Logger
}

// NewIdleSweeper creates a sweeper that checks every interval.
func NewIdleSweeper(registry *playback.Registry, interval time.Duration, logger *log.Logger) *IdleSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IdleSweeper{registry: registry, interval: interval, now: time.Now, logger: logger}
}

// Sweep checks every registered session once and returns the evicted keys.
func (s *IdleSweeper) Sweep() []string {
	now := s.now()

	var evicted []string
	for _, key := range s.registry.Keys() {
		if s.registry.RemoveIfIdle(key, now) {
			evicted = append(evicted, key)
		}
	}

	if len(evicted) > 0 {
		s.logger.Info("evicted idle sessions", "count", len(evicted), "keys", evicted)
	}
	return evicted
}

// Run sweeps on every tick until ctx is done.
func (s *IdleSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep()
		}
	}
}
