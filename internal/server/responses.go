package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/playback"
	"github.com/desertthunder/jukebox/internal/shared"
	"github.com/desertthunder/jukebox/internal/tasks"
)

// ItemResponse is the JSON form of a [models.PlaylistItem].
type ItemResponse struct {
	Title           string `json:"title"`
	Source          string `json:"source"`
	Query           string `json:"query,omitempty"`
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
}

// SnapshotResponse is the JSON form of a [playback.Snapshot].
type SnapshotResponse struct {
	Key          string         `json:"key"`
	State        string         `json:"state"`
	Current      *ItemResponse  `json:"current,omitempty"`
	Token        uint64         `json:"token,omitempty"`
	Queue        []ItemResponse `json:"queue"`
	Failures     int            `json:"failures"`
	LastActivity time.Time      `json:"last_activity"`
}

// PlayResponse is returned by POST /sessions/{key}/play.
type PlayResponse struct {
	tasks.PlayResult
	Message string `json:"message"`
}

// ControlResponse is returned by the skip, stop, pause and resume endpoints.
type ControlResponse struct {
	Key     string        `json:"key"`
	Action  string        `json:"action"`
	Changed bool          `json:"changed"`
	Outcome string        `json:"outcome,omitempty"`
	Current *ItemResponse `json:"current,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// EventResponse is one entry of the /events stream.
type EventResponse struct {
	Kind     string        `json:"kind"`
	Key      string        `json:"key"`
	Item     *ItemResponse `json:"item,omitempty"`
	Token    uint64        `json:"token,omitempty"`
	Position int           `json:"position,omitempty"`
	Previous string        `json:"previous,omitempty"`
	Current  string        `json:"current,omitempty"`
	Failures int           `json:"failures,omitempty"`
	Error    string        `json:"error,omitempty"`
	At       time.Time     `json:"at"`
}

func newItemResponse(item models.PlaylistItem) ItemResponse {
	return ItemResponse{
		Title:           item.Title(),
		Source:          item.SourceReference(),
		Query:           item.OriginalQuery(),
		DurationSeconds: int64(item.Duration() / time.Second),
	}
}

func newSnapshotResponse(snap playback.Snapshot) SnapshotResponse {
	resp := SnapshotResponse{
		Key:          snap.Key,
		State:        snap.State.String(),
		Token:        uint64(snap.Token),
		Queue:        make([]ItemResponse, 0, len(snap.Queue)),
		Failures:     snap.Failures,
		LastActivity: snap.LastActivity,
	}
	if snap.Current != nil {
		cur := newItemResponse(*snap.Current)
		resp.Current = &cur
	}
	for _, item := range snap.Queue {
		resp.Queue = append(resp.Queue, newItemResponse(item))
	}
	return resp
}

func newEventResponse(e playback.Event) EventResponse {
	resp := EventResponse{
		Kind:     e.Kind.String(),
		Key:      e.Key,
		Token:    uint64(e.Token),
		Position: e.Position,
		Failures: e.Failures,
		At:       e.At,
	}
	if !e.Item.IsZero() {
		item := newItemResponse(e.Item)
		resp.Item = &item
	}
	if e.Kind == playback.EventStateChanged {
		resp.Previous = e.Previous.String()
		resp.Current = e.Current.String()
	}
	if e.Err != nil {
		resp.Error = e.Err.Error()
	}
	return resp
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrResolution):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrSessionStopped):
		return http.StatusConflict
	case errors.Is(err, shared.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrTransportStart), errors.Is(err, shared.ErrDestinationOffline):
		return http.StatusBadGateway
	case errors.Is(err, shared.ErrBridgeClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), ErrorResponse{Error: err.Error(), Message: tasks.FailureMessage(err)})
}
