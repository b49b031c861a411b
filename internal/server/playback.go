package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/playback"
	"github.com/desertthunder/jukebox/internal/shared"
	"github.com/desertthunder/jukebox/internal/tasks"
)

const maxBodyBytes = 64 << 10

const (
	routeSessions = "GET /sessions"
	routeSnapshot = "GET /sessions/{key}"
	routePlay     = "POST /sessions/{key}/play"
	routeSkip     = "POST /sessions/{key}/skip"
	routeStop     = "POST /sessions/{key}/stop"
	routePause    = "POST /sessions/{key}/pause"
	routeResume   = "POST /sessions/{key}/resume"
)

// PlayRequest is the body of POST /sessions/{key}/play.
type PlayRequest struct {
	Query string `json:"query"`
}

// PlaybackHandler exposes a [tasks.Controller] over HTTP.
type PlaybackHandler struct {
	engine tasks.Controller
	logger *log.Logger
}

// NewPlaybackHandler creates a handler for the session endpoints.
func NewPlaybackHandler(engine tasks.Controller, logger *log.Logger) *PlaybackHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &PlaybackHandler{engine: engine, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *PlaybackHandler) Routes() []string {
	return []string{routeSessions, routeSnapshot, routePlay, routeSkip, routeStop, routePause, routeResume}
}

// ServeHTTP dispatches on the matched route pattern.
func (h *PlaybackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	switch r.Pattern {
	case routeSessions:
		writeJSON(w, http.StatusOK, map[string][]string{"sessions": h.engine.Sessions()})
	case routeSnapshot:
		h.snapshot(w, key)
	case routePlay:
		h.play(w, r, key)
	case routeSkip:
		h.skip(w, key)
	case routeStop:
		h.stop(w, key)
	case routePause:
		changed, err := h.engine.Pause(key)
		h.control(w, key, "pause", changed, err)
	case routeResume:
		changed, err := h.engine.Resume(key)
		h.control(w, key, "resume", changed, err)
	default:
		http.NotFound(w, r)
	}
}

func (h *PlaybackHandler) snapshot(w http.ResponseWriter, key string) {
	snap, err := h.engine.Queue(key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotResponse(snap))
}

func (h *PlaybackHandler) play(w http.ResponseWriter, r *http.Request, key string) {
	var req PlayRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && err != io.EOF {
		writeError(w, fmt.Errorf("%w: malformed body: %v", shared.ErrInvalidArgument, err))
		return
	}

	result, err := h.engine.Play(r.Context(), key, req.Query)
	if err != nil {
		h.logger.Debug("play failed", "session", key, "error", err, "request_id", RequestIDFrom(r.Context()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PlayResponse{PlayResult: *result, Message: result.Message()})
}

func (h *PlaybackHandler) skip(w http.ResponseWriter, key string) {
	out, err := h.engine.Skip(key)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := ControlResponse{Key: key, Action: "skip", Outcome: out.Kind.String(), Changed: out.Kind != playback.AdvanceStale}
	if !out.Item.IsZero() {
		item := newItemResponse(out.Item)
		resp.Current = &item
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PlaybackHandler) stop(w http.ResponseWriter, key string) {
	if err := h.engine.Stop(key); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ControlResponse{Key: key, Action: "stop", Changed: true})
}

func (h *PlaybackHandler) control(w http.ResponseWriter, key, action string, changed bool, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ControlResponse{Key: key, Action: action, Changed: changed})
}

// Health answers GET /health.
func Health() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
