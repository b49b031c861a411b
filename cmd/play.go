package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/jukebox/internal/playback"
	"github.com/desertthunder/jukebox/internal/shared"
	"github.com/desertthunder/jukebox/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Play queues every argument on one session and follows playback until the queue runs dry.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	key := cmd.String("key")
	queries := cmd.Args().Slice()
	if len(queries) == 0 {
		return fmt.Errorf("%w: %s", shared.ErrMissingArgument, tasks.FailureMessage(shared.ErrMissingArgument))
	}

	s, err := newStack(r.config, r.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.close(); err != nil {
			r.logger.Warn("shutdown finished with errors", "error", err)
		}
	}()

	sub := s.hub.Subscribe()
	ctx = s.start(ctx)

	queued := 0
	for _, query := range queries {
		result, err := s.engine.Play(ctx, key, query)
		if err != nil {
			r.writePlain("✗ %s\n", tasks.FailureMessage(err))
			continue
		}
		queued++
		r.writePlain("%s\n", result.Message())
	}
	if queued == 0 {
		return fmt.Errorf("%w: nothing could be queued", shared.ErrResolution)
	}

	return r.follow(ctx, s.engine, sub, key)
}

// follow prints events for key until its session goes idle or ctx is done.
func (r *Runner) follow(ctx context.Context, engine tasks.Controller, sub *playback.Subscription, key string) error {
	if idle(engine, key) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done:
			return nil
		case e := <-sub.Events:
			if e.Key != key {
				continue
			}
			switch e.Kind {
			case playback.EventNowPlaying:
				r.writePlain("▶ %s [%s]\n", e.Item.Title(), shared.FormatDuration(e.Item.Duration()))
			case playback.EventTrackFailed:
				r.writePlain("✗ %s: %v\n", e.Item.Title(), e.Err)
			case playback.EventPlaybackHalted:
				r.writePlain("■ playback halted after %d failures, %d left in queue\n", e.Failures, e.Position)
				return nil
			case playback.EventStateChanged:
				if e.Current == playback.StateIdle && idle(engine, key) {
					r.writePlainln("Queue finished")
					return nil
				}
			}
		}
	}
}

func idle(engine tasks.Controller, key string) bool {
	snap, err := engine.Queue(key)
	if err != nil {
		return true
	}
	return snap.State == playback.StateIdle && snap.Current == nil && len(snap.Queue) == 0
}
