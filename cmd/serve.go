package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/jukebox/internal/server"
	"github.com/desertthunder/jukebox/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API on top of the in-process player until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := r.config.Server.Addr()
	if cmd.IsSet("addr") {
		addr = cmd.String("addr")
	}

	s, err := newStack(r.config, r.logger)
	if err != nil {
		return err
	}

	router := server.NewAPIRouter(s.engine, s.bridge, s.hub, shared.WithLogger(r.logger, "component", "http"))
	srv := server.New(addr, router, r.logger)

	r.logger.Info("player ready",
		"resolver", r.config.Resolver.Backend,
		"max_failures", r.config.Playback.MaxConsecutiveFailures,
		"idle_grace", r.config.Playback.IdleGrace.Duration,
	)

	s.start(ctx, srv.Run)
	runErr := s.wait()
	if err := s.close(); err != nil {
		r.logger.Warn("shutdown finished with errors", "error", err)
	}
	if runErr != nil {
		return fmt.Errorf("server stopped: %w", runErr)
	}
	return nil
}
