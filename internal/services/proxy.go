// Proxy [Resolver] implementation
//
// Talks to an HTTP search proxy exposing /api/search and /api/resolve.
package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

// ProxyTrack is one result from the proxy.
type ProxyTrack struct {
	VideoID     string `json:"videoId"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	DurationSec int    `json:"duration_seconds"`
}

// sourceURL prefers the URL the proxy returned, then builds one from the video ID.
func (t ProxyTrack) sourceURL() string {
	if t.URL != "" {
		return t.URL
	}
	if t.VideoID != "" {
		return "https://www.youtube.com/watch?v=" + t.VideoID
	}
	return ""
}

// ProxyResolver resolves requests through [APIService].
type ProxyResolver struct {
	api         *APIService
	placeholder string
}

// NewProxyResolver creates a resolver backed by api.
func NewProxyResolver(api *APIService, placeholder string) *ProxyResolver {
	return &ProxyResolver{api: api, placeholder: placeholder}
}

// Name returns the backend name.
func (p *ProxyResolver) Name() string { return "proxy" }

// Resolve looks raw up on the proxy.
//
// Search phrases call GET /api/search?q=...&limit=1; direct locators call GET /api/resolve?url=...
func (p *ProxyResolver) Resolve(ctx context.Context, raw string) (models.PlaylistItem, error) {
	loc, err := models.ParseLocator(raw)
	if err != nil {
		return models.PlaylistItem{}, resolutionError(raw, err)
	}

	var track ProxyTrack
	switch loc.Kind {
	case models.SearchPhrase:
		var results []ProxyTrack
		query := url.Values{"q": {loc.Value}, "limit": {"1"}}
		if err := p.api.GetJSON(ctx, "/api/search", query, &results); err != nil {
			return models.PlaylistItem{}, resolutionError(raw, err)
		}
		if len(results) == 0 {
			return models.PlaylistItem{}, resolutionError(raw, shared.ErrNoResults)
		}
		track = results[0]
	case models.DirectLocator:
		if err := p.api.GetJSON(ctx, "/api/resolve", url.Values{"url": {loc.Value}}, &track); err != nil {
			return models.PlaylistItem{}, resolutionError(raw, err)
		}
		if track.URL == "" && track.VideoID == "" {
			track.URL = loc.Value
		}
	default:
		return models.PlaylistItem{}, resolutionError(raw, fmt.Errorf("%w: %s", shared.ErrUnsupportedLocator, loc.Kind))
	}

	source := track.sourceURL()
	if source == "" {
		return models.PlaylistItem{}, resolutionError(raw, shared.ErrNoResults)
	}

	meta := models.ItemMetadata{
		Title:    strings.TrimSpace(track.Title),
		Duration: time.Duration(track.DurationSec) * time.Second,
	}
	return models.NewPlaylistItem(meta, source, loc, raw, p.placeholder), nil
}
