// package services turns raw play requests into playable items
//
// yt-dlp, HTTP search proxy
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

// Resolver converts a raw query or URL into a [models.PlaylistItem].
//
// Implementations must be safe for concurrent use and must not touch session state.
type Resolver interface {
	// Resolve parses raw, looks it up and returns a playable item.
	// Every failure wraps [shared.ErrResolution].
	Resolve(ctx context.Context, raw string) (models.PlaylistItem, error)

	// Name returns the backend name (e.g., "yt-dlp", "proxy")
	Name() string
}

// ResolverOptions selects and tunes a resolver built by [NewResolver].
type ResolverOptions struct {
	Backend     string
	ProxyURL    string
	RateLimit   float64
	Burst       int
	Timeout     time.Duration
	Placeholder string
	Logger      *log.Logger
}

// OptionsFromConfig maps the [shared.Config] sections a resolver cares about.
func OptionsFromConfig(cfg *shared.Config, logger *log.Logger) ResolverOptions {
	return ResolverOptions{
		Backend:     cfg.Resolver.Backend,
		ProxyURL:    cfg.Resolver.ProxyURL,
		RateLimit:   cfg.Resolver.RateLimit,
		Burst:       cfg.Resolver.Burst,
		Timeout:     cfg.Resolver.Timeout.Duration,
		Placeholder: cfg.Playback.PlaceholderTitle,
		Logger:      logger,
	}
}

// NewResolver builds the configured backend wrapped in a rate limiter.
func NewResolver(opts ResolverOptions) (Resolver, error) {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	var base Resolver
	switch opts.Backend {
	case "", "ytdlp":
		base = NewYTDLPResolver(opts.Placeholder, opts.Timeout)
	case "proxy":
		client := &http.Client{Timeout: opts.Timeout}
		base = NewProxyResolver(NewAPIService(opts.ProxyURL, client), opts.Placeholder)
	default:
		return nil, fmt.Errorf("%w: unknown resolver backend %q", shared.ErrInvalidConfig, opts.Backend)
	}

	return NewRateLimitedResolver(base, opts.RateLimit, opts.Burst, opts.Logger), nil
}

// resolutionError wraps err so callers can match [shared.ErrResolution]
// while still reaching the cause.
func resolutionError(raw string, err error) error {
	return fmt.Errorf("%w: %q: %w", shared.ErrResolution, raw, err)
}
