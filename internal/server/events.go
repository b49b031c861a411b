package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/playback"
)

const keepAliveInterval = 15 * time.Second

// EventsHandler streams session events as Server-Sent Events.
//
// GET /events streams every session; GET /events?key=<key> streams one.
type EventsHandler struct {
	hub    *playback.Hub
	logger *log.Logger
}

// NewEventsHandler creates a handler streaming events from hub.
func NewEventsHandler(hub *playback.Hub, logger *log.Logger) *EventsHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &EventsHandler{hub: hub, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *EventsHandler) Routes() []string {
	return []string{"GET /events"}
}

// ServeHTTP holds the connection open until the client leaves or the hub closes.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	key := r.URL.Query().Get("key")

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Warn("event stream cannot flush", "error", err)
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done:
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case e := <-sub.Events:
			if key != "" && e.Key != key {
				continue
			}
			data, err := json.Marshal(newEventResponse(e))
			if err != nil {
				h.logger.Error("failed to encode event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
