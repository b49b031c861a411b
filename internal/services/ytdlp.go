// yt-dlp [Resolver] implementation
//
// Runs the yt-dlp binary through github.com/lrstanley/go-ytdlp and reads the
// printed metadata of the first match.
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
	"github.com/lrstanley/go-ytdlp"
)

const (
	defaultYTDLPTimeout = 30 * time.Second

	// ytdlpTemplate prints one tab separated line per match.
	ytdlpTemplate = "%(webpage_url)s\t%(title)s\t%(duration)s"

	// ytdlpMissing is what yt-dlp prints for an absent field.
	ytdlpMissing = "NA"
)

// ytdlpRunner runs yt-dlp against target and returns its stdout.
type ytdlpRunner func(ctx context.Context, target string) (string, error)

// YTDLPResolver resolves requests by running yt-dlp.
type YTDLPResolver struct {
	placeholder string
	timeout     time.Duration
	run         ytdlpRunner
}

// NewYTDLPResolver creates a resolver that shells out to yt-dlp for every lookup.
func NewYTDLPResolver(placeholder string, timeout time.Duration) *YTDLPResolver {
	if timeout <= 0 {
		timeout = defaultYTDLPTimeout
	}
	return &YTDLPResolver{placeholder: placeholder, timeout: timeout, run: runYTDLP}
}

// Name returns the backend name.
func (y *YTDLPResolver) Name() string { return "yt-dlp" }

// Resolve runs yt-dlp on a URL, or on "ytsearch1:<phrase>" for a search.
func (y *YTDLPResolver) Resolve(ctx context.Context, raw string) (models.PlaylistItem, error) {
	loc, err := models.ParseLocator(raw)
	if err != nil {
		return models.PlaylistItem{}, resolutionError(raw, err)
	}

	var target string
	switch loc.Kind {
	case models.SearchPhrase:
		target = "ytsearch1:" + loc.Value
	case models.DirectLocator:
		target = loc.Value
	default:
		return models.PlaylistItem{}, resolutionError(raw, fmt.Errorf("%w: %s", shared.ErrUnsupportedLocator, loc.Kind))
	}

	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	out, err := y.run(ctx, target)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("%w: %w", shared.ErrTimeout, err)
		}
		return models.PlaylistItem{}, resolutionError(raw, err)
	}

	meta, source, ok := parseYTDLPOutput(out)
	if !ok {
		return models.PlaylistItem{}, resolutionError(raw, shared.ErrNoResults)
	}
	if source == "" {
		if loc.IsSearch() {
			return models.PlaylistItem{}, resolutionError(raw, shared.ErrNoResults)
		}
		source = loc.Value
	}

	return models.NewPlaylistItem(meta, source, loc, raw, y.placeholder), nil
}

func runYTDLP(ctx context.Context, target string) (string, error) {
	res, err := ytdlp.New().
		Quiet().
		NoWarnings().
		IgnoreConfig().
		NoPlaylist().
		Print(ytdlpTemplate).
		Run(ctx, target)
	if err != nil {
		if res != nil && strings.TrimSpace(res.Stderr) != "" {
			return "", fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(res.Stderr))
		}
		return "", fmt.Errorf("yt-dlp: %w", err)
	}
	return res.Stdout, nil
}

// parseYTDLPOutput reads the first complete line printed with [ytdlpTemplate].
func parseYTDLPOutput(out string) (models.ItemMetadata, string, bool) {
	for line := range strings.Lines(out) {
		parts := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
		if len(parts) < 3 {
			continue
		}

		source := field(parts[0])
		title := field(parts[1])

		var duration time.Duration
		if secs, err := strconv.ParseFloat(field(parts[2]), 64); err == nil && secs > 0 {
			duration = time.Duration(secs * float64(time.Second))
		}

		return models.ItemMetadata{Title: title, Duration: duration}, source, true
	}
	return models.ItemMetadata{}, "", false
}

func field(s string) string {
	s = strings.TrimSpace(s)
	if s == ytdlpMissing {
		return ""
	}
	return s
}
