package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/playback"
	"github.com/desertthunder/jukebox/internal/repositories"
	"github.com/desertthunder/jukebox/internal/services"
	"github.com/desertthunder/jukebox/internal/shared"
	"github.com/desertthunder/jukebox/internal/tasks"
	"github.com/desertthunder/jukebox/internal/transport"
	"golang.org/x/sync/errgroup"
)

// stack is the in-process player: sessions on the loopback transport, with
// the bridge, idle sweeper and history recorder running alongside.
type stack struct {
	db       *sql.DB
	history  *repositories.PlayRecordRepository
	hub      *playback.Hub
	registry *playback.Registry
	bridge   *playback.Bridge
	loopback *transport.Loopback
	engine   *tasks.PlaybackEngine
	sweeper  *tasks.IdleSweeper
	recorder *tasks.HistoryRecorder
	logger   *log.Logger

	cancel context.CancelFunc
	group  *errgroup.Group
}

func newStack(cfg *shared.Config, logger *log.Logger) (*stack, error) {
	db, err := shared.OpenDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	resolver, err := services.NewResolver(services.OptionsFromConfig(cfg, shared.WithLogger(logger, "component", "resolver")))
	if err != nil {
		db.Close()
		return nil, err
	}

	hub := playback.NewHub(cfg.Playback.EventBuffer)

	// The bridge needs the registry and the registry needs the transport,
	// which reports into the bridge.
	var registry *playback.Registry
	lookup := playback.LookupFunc(func(key string) (*playback.Session, bool) {
		return registry.Lookup(key)
	})
	bridge := playback.NewBridge(lookup, cfg.Playback.EventBuffer, shared.WithLogger(logger, "component", "bridge"))

	loopback := transport.NewLoopback(bridge, transport.Options{
		Speed:         cfg.Transport.Speed,
		DefaultLength: cfg.Transport.DefaultLength.Duration,
		Unreachable:   cfg.Transport.Unreachable,
		Logger:        shared.WithLogger(logger, "component", "loopback"),
	})

	registry = playback.NewRegistry(playback.Options{
		Transport:   loopback,
		Hub:         hub,
		Logger:      logger,
		MaxFailures: cfg.Playback.MaxConsecutiveFailures,
	}, cfg.Playback.IdleGrace.Duration)

	history := repositories.NewPlayRecordRepository(db)

	return &stack{
		db:       db,
		history:  history,
		hub:      hub,
		registry: registry,
		bridge:   bridge,
		loopback: loopback,
		engine:   tasks.NewPlaybackEngine(registry, resolver, logger),
		sweeper:  tasks.NewIdleSweeper(registry, cfg.Playback.SweepInterval.Duration, shared.WithLogger(logger, "component", "sweeper")),
		recorder: tasks.NewHistoryRecorder(hub, history, shared.WithLogger(logger, "component", "history")),
		logger:   logger,
	}, nil
}

// start launches the background workers. Extra run functions share their lifetime.
func (s *stack) start(ctx context.Context, extra ...func(context.Context) error) context.Context {
	ctx, s.cancel = context.WithCancel(ctx)
	s.group, ctx = errgroup.WithContext(ctx)

	for _, run := range append([]func(context.Context) error{s.bridge.Run, s.sweeper.Run, s.recorder.Run}, extra...) {
		s.group.Go(func() error {
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return ctx
}

// wait blocks until a worker fails or ctx passed to start is done.
func (s *stack) wait() error {
	if s.group == nil {
		return nil
	}
	return s.group.Wait()
}

// close stops every session, lets the workers drain and closes the database.
func (s *stack) close() error {
	var errs []error

	if err := s.registry.Close(); err != nil {
		errs = append(errs, err)
	}
	s.bridge.Close()
	s.hub.Close()

	if s.cancel != nil {
		s.cancel()
		if err := s.group.Wait(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}

	return errors.Join(errs...)
}
