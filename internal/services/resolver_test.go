package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

func newProxyServer(t *testing.T, search []ProxyTrack, resolved *ProxyTrack) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/search":
			if r.URL.Query().Get("limit") != "1" {
				t.Errorf("expected limit=1, got %q", r.URL.Query().Get("limit"))
			}
			json.NewEncoder(w).Encode(search)
		case "/api/resolve":
			if resolved == nil {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]string{"detail": "video not found"})
				return
			}
			json.NewEncoder(w).Encode(resolved)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestProxyResolver(t *testing.T) {
	t.Run("search phrase", func(t *testing.T) {
		server := newProxyServer(t, []ProxyTrack{{VideoID: "abc123", Title: "One More Time", DurationSec: 320}}, nil)
		r := NewProxyResolver(NewAPIService(server.URL, nil), "")

		item, err := r.Resolve(context.Background(), "  daft punk one more time ")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if item.Title() != "One More Time" {
			t.Errorf("title = %q", item.Title())
		}
		if item.SourceReference() != "https://www.youtube.com/watch?v=abc123" {
			t.Errorf("source = %q", item.SourceReference())
		}
		if item.Duration() != 320*time.Second {
			t.Errorf("duration = %v, want 5m20s", item.Duration())
		}
		if !item.Locator().IsSearch() {
			t.Error("expected a search locator")
		}
		if item.OriginalQuery() != "  daft punk one more time " {
			t.Errorf("original query = %q", item.OriginalQuery())
		}
	})

	t.Run("no results", func(t *testing.T) {
		server := newProxyServer(t, []ProxyTrack{}, nil)
		r := NewProxyResolver(NewAPIService(server.URL, nil), "")

		_, err := r.Resolve(context.Background(), "nothing matches")
		if !errors.Is(err, shared.ErrResolution) || !errors.Is(err, shared.ErrNoResults) {
			t.Errorf("error = %v, want ErrResolution wrapping ErrNoResults", err)
		}
	})

	t.Run("direct locator", func(t *testing.T) {
		server := newProxyServer(t, nil, &ProxyTrack{URL: "https://youtu.be/xyz", Title: ""})
		r := NewProxyResolver(NewAPIService(server.URL, nil), "")

		item, err := r.Resolve(context.Background(), "https://youtu.be/xyz")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if item.Title() != models.DefaultTitle {
			t.Errorf("title = %q, want placeholder", item.Title())
		}
		if item.Locator().Kind != models.DirectLocator {
			t.Errorf("locator kind = %v, want direct", item.Locator().Kind)
		}
	})

	t.Run("direct locator not found", func(t *testing.T) {
		server := newProxyServer(t, nil, nil)
		r := NewProxyResolver(NewAPIService(server.URL, nil), "")

		_, err := r.Resolve(context.Background(), "https://youtu.be/missing")
		if !errors.Is(err, shared.ErrResolution) || !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("error = %v, want ErrResolution wrapping ErrAPIRequest", err)
		}
	})

	t.Run("empty query", func(t *testing.T) {
		r := NewProxyResolver(NewAPIService("http://127.0.0.1:1", nil), "")

		_, err := r.Resolve(context.Background(), "   ")
		if !errors.Is(err, shared.ErrResolution) || !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("error = %v, want ErrResolution wrapping ErrInvalidInput", err)
		}
	})

	t.Run("custom placeholder", func(t *testing.T) {
		server := newProxyServer(t, []ProxyTrack{{VideoID: "abc"}}, nil)
		r := NewProxyResolver(NewAPIService(server.URL, nil), "untitled")

		item, err := r.Resolve(context.Background(), "anything")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if item.Title() != "untitled" {
			t.Errorf("title = %q, want untitled", item.Title())
		}
	})
}

func TestYTDLPResolver(t *testing.T) {
	newResolver := func(run ytdlpRunner) (*YTDLPResolver, *string) {
		var target string
		r := NewYTDLPResolver("", time.Second)
		r.run = func(ctx context.Context, tgt string) (string, error) {
			target = tgt
			return run(ctx, tgt)
		}
		return r, &target
	}

	t.Run("search uses ytsearch1", func(t *testing.T) {
		r, target := newResolver(func(ctx context.Context, _ string) (string, error) {
			return "https://www.youtube.com/watch?v=abc\tAround the World\t429.0\n", nil
		})

		item, err := r.Resolve(context.Background(), "around the world")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if *target != "ytsearch1:around the world" {
			t.Errorf("target = %q", *target)
		}
		if item.Title() != "Around the World" || item.Duration() != 429*time.Second {
			t.Errorf("item = %v", item)
		}
		if item.SourceReference() != "https://www.youtube.com/watch?v=abc" {
			t.Errorf("source = %q", item.SourceReference())
		}
	})

	t.Run("direct locator is passed through", func(t *testing.T) {
		r, target := newResolver(func(ctx context.Context, _ string) (string, error) {
			return "NA\tNA\tNA\n", nil
		})

		item, err := r.Resolve(context.Background(), "HTTPS://example.com/stream")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if *target != "HTTPS://example.com/stream" {
			t.Errorf("target = %q", *target)
		}
		if item.SourceReference() != "HTTPS://example.com/stream" {
			t.Errorf("source should fall back to the locator, got %q", item.SourceReference())
		}
		if item.Title() != models.DefaultTitle || item.Duration() != 0 {
			t.Errorf("item = %v, want placeholder with unknown duration", item)
		}
	})

	t.Run("empty search output", func(t *testing.T) {
		r, _ := newResolver(func(ctx context.Context, _ string) (string, error) { return "", nil })

		if _, err := r.Resolve(context.Background(), "nothing"); !errors.Is(err, shared.ErrNoResults) {
			t.Errorf("error = %v, want ErrNoResults", err)
		}
	})

	t.Run("runner failure", func(t *testing.T) {
		boom := errors.New("exit status 1")
		r, _ := newResolver(func(ctx context.Context, _ string) (string, error) { return "", boom })

		_, err := r.Resolve(context.Background(), "something")
		if !errors.Is(err, shared.ErrResolution) || !errors.Is(err, boom) {
			t.Errorf("error = %v, want ErrResolution wrapping the cause", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		r, _ := newResolver(func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})
		r.timeout = 10 * time.Millisecond

		if _, err := r.Resolve(context.Background(), "slow"); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("error = %v, want ErrTimeout", err)
		}
	})
}

func TestParseYTDLPOutput(t *testing.T) {
	tc := []struct {
		name      string
		out       string
		wantOK    bool
		wantTitle string
		wantSrc   string
		wantDur   time.Duration
	}{
		{name: "empty", out: "", wantOK: false},
		{name: "short line skipped", out: "garbage\nhttps://a\tTitle\t60\n", wantOK: true, wantTitle: "Title", wantSrc: "https://a", wantDur: time.Minute},
		{name: "windows newlines", out: "https://a\tT\t1.5\r\n", wantOK: true, wantTitle: "T", wantSrc: "https://a", wantDur: 1500 * time.Millisecond},
		{name: "live stream", out: "https://a\tLive\tNA\n", wantOK: true, wantTitle: "Live", wantSrc: "https://a"},
		{name: "all missing", out: "NA\tNA\tNA\n", wantOK: true},
		{name: "first match wins", out: "https://a\tA\t1\nhttps://b\tB\t2\n", wantOK: true, wantTitle: "A", wantSrc: "https://a", wantDur: time.Second},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			meta, src, ok := parseYTDLPOutput(tt.out)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if meta.Title != tt.wantTitle || src != tt.wantSrc || meta.Duration != tt.wantDur {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)", meta.Title, src, meta.Duration, tt.wantTitle, tt.wantSrc, tt.wantDur)
			}
		})
	}
}

type countingResolver struct {
	calls atomic.Int32
	err   error
}

func (c *countingResolver) Name() string { return "counting" }

func (c *countingResolver) Resolve(ctx context.Context, raw string) (models.PlaylistItem, error) {
	c.calls.Add(1)
	if c.err != nil {
		return models.PlaylistItem{}, c.err
	}
	loc, _ := models.ParseLocator(raw)
	return models.NewPlaylistItem(models.ItemMetadata{Title: raw}, "src:"+raw, loc, raw, ""), nil
}

func TestRateLimitedResolver(t *testing.T) {
	t.Run("delegates", func(t *testing.T) {
		next := &countingResolver{}
		r := NewRateLimitedResolver(next, 100, 1, nil)

		item, err := r.Resolve(context.Background(), "song")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if item.Title() != "song" || next.calls.Load() != 1 {
			t.Errorf("item = %v, calls = %d", item, next.calls.Load())
		}
		if r.Name() != "counting" {
			t.Errorf("Name() = %q", r.Name())
		}
	})

	t.Run("passes errors through", func(t *testing.T) {
		cause := resolutionError("song", shared.ErrNoResults)
		r := NewRateLimitedResolver(&countingResolver{err: cause}, 100, 1, nil)

		if _, err := r.Resolve(context.Background(), "song"); !errors.Is(err, shared.ErrNoResults) {
			t.Errorf("error = %v, want ErrNoResults", err)
		}
	})

	t.Run("cancelled wait", func(t *testing.T) {
		next := &countingResolver{}
		r := NewRateLimitedResolver(next, 0.001, 1, nil)

		if _, err := r.Resolve(context.Background(), "first"); err != nil {
			t.Fatalf("first Resolve() error = %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := r.Resolve(ctx, "second")
		if !errors.Is(err, shared.ErrResolution) {
			t.Errorf("error = %v, want ErrResolution", err)
		}
		if next.calls.Load() != 1 {
			t.Errorf("calls = %d, want 1", next.calls.Load())
		}
	})
}

func TestNewResolver(t *testing.T) {
	tc := []struct {
		name     string
		backend  string
		wantName string
		wantErr  bool
	}{
		{name: "default", backend: "", wantName: "yt-dlp"},
		{name: "ytdlp", backend: "ytdlp", wantName: "yt-dlp"},
		{name: "proxy", backend: "proxy", wantName: "proxy"},
		{name: "unknown", backend: "napster", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResolver(ResolverOptions{Backend: tt.backend, ProxyURL: "http://127.0.0.1:1"})
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidConfig) {
					t.Errorf("error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewResolver() error = %v", err)
			}
			if r.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", r.Name(), tt.wantName)
			}
		})
	}

	t.Run("from config", func(t *testing.T) {
		cfg := shared.DefaultConfig()
		opts := OptionsFromConfig(cfg, nil)

		if opts.Backend != "ytdlp" || opts.Placeholder != models.DefaultTitle || opts.Timeout != 30*time.Second {
			t.Errorf("unexpected options %+v", opts)
		}
	})
}
