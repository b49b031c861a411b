package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/jukebox/internal/shared"
)

// DefaultTitle is shown when resolved metadata carries no title.
const DefaultTitle = "[object Object]"

// LocatorKind tags a [Locator].
type LocatorKind int

const (
	SearchPhrase LocatorKind = iota
	DirectLocator
)

// String returns the kind name.
func (k LocatorKind) String() string {
	switch k {
	case SearchPhrase:
		return "search"
	case DirectLocator:
		return "direct"
	default:
		return "unknown"
	}
}

// directSchemes are the URI prefixes treated as direct locators.
var directSchemes = []string{"http://", "https://"}

// Locator is a raw request classified once, at resolution time.
type Locator struct {
	Kind  LocatorKind
	Value string
}

// ParseLocator trims raw and classifies it: recognized URI schemes are direct locators, anything else is a search phrase.
func ParseLocator(raw string) (Locator, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Locator{}, fmt.Errorf("%w: empty query", shared.ErrInvalidInput)
	}

	lower := strings.ToLower(value)
	for _, scheme := range directSchemes {
		if strings.HasPrefix(lower, scheme) {
			return Locator{Kind: DirectLocator, Value: value}, nil
		}
	}

	return Locator{Kind: SearchPhrase, Value: value}, nil
}

// IsSearch reports whether the locator needs a search lookup.
func (l Locator) IsSearch() bool { return l.Kind == SearchPhrase }

func (l Locator) String() string {
	return fmt.Sprintf("%s:%s", l.Kind, l.Value)
}

// PlaylistItem is an immutable, resolved, queueable unit of playback.
//
// Build one with [NewPlaylistItem]; fields are read through accessors only.
type PlaylistItem struct {
	title    string
	source   string
	query    string
	duration time.Duration
	locator  Locator
}

// ItemMetadata is what a resolver learned about a track.
type ItemMetadata struct {
	Title    string
	Duration time.Duration
}

// NewPlaylistItem builds an item from resolver metadata, substituting placeholder for a missing title.
//
// An empty placeholder falls back to [DefaultTitle].
func NewPlaylistItem(meta ItemMetadata, source string, locator Locator, query, placeholder string) PlaylistItem {
	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = placeholder
	}
	if title == "" {
		title = DefaultTitle
	}

	duration := meta.Duration
	if duration < 0 {
		duration = 0
	}

	return PlaylistItem{
		title:    title,
		source:   source,
		query:    query,
		duration: duration,
		locator:  locator,
	}
}

func (p PlaylistItem) Title() string           { return p.title }
func (p PlaylistItem) SourceReference() string { return p.source }
func (p PlaylistItem) OriginalQuery() string   { return p.query }
func (p PlaylistItem) Locator() Locator        { return p.locator }

// Duration returns the track length; zero means unknown (e.g. a live stream).
func (p PlaylistItem) Duration() time.Duration { return p.duration }

// IsZero reports whether p was never built.
func (p PlaylistItem) IsZero() bool { return p.source == "" && p.title == "" }

// Validate checks an item is playable.
func (p PlaylistItem) Validate() error {
	if p.source == "" {
		return fmt.Errorf("%w: item %q has no source reference", shared.ErrInvalidInput, p.title)
	}
	return nil
}

func (p PlaylistItem) String() string {
	return fmt.Sprintf("%s [%s]", p.title, shared.FormatDuration(p.duration))
}
