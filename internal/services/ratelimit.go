package services

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
	"golang.org/x/time/rate"
)

const defaultResolveRate = 2.0

// RateLimitedResolver throttles lookups shared by every session.
type RateLimitedResolver struct {
	next    Resolver
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewRateLimitedResolver wraps next with a limiter allowing perSecond lookups and bursts of burst.
func NewRateLimitedResolver(next Resolver, perSecond float64, burst int, logger *log.Logger) *RateLimitedResolver {
	if perSecond <= 0 {
		perSecond = defaultResolveRate
	}
	if burst <= 0 {
		burst = 1
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	return &RateLimitedResolver{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:  logger,
	}
}

// Name returns the wrapped backend's name.
func (r *RateLimitedResolver) Name() string { return r.next.Name() }

// Resolve waits for the limiter, then delegates. A cancelled wait is a resolution error.
func (r *RateLimitedResolver) Resolve(ctx context.Context, raw string) (models.PlaylistItem, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return models.PlaylistItem{}, resolutionError(raw, fmt.Errorf("rate limit wait: %w", err))
	}

	item, err := r.next.Resolve(ctx, raw)
	if err != nil {
		r.logger.Warn("resolution failed", "backend", r.next.Name(), "query", raw, "error", err)
		return models.PlaylistItem{}, err
	}

	r.logger.Debug("resolved", "backend", r.next.Name(), "query", raw, "title", item.Title())
	return item, nil
}
