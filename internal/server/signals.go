package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/playback"
	"github.com/desertthunder/jukebox/internal/shared"
)

// SignalSink accepts transport signals; [playback.Bridge] satisfies it.
type SignalSink interface {
	Submit(ctx context.Context, sig playback.Signal) error
}

// SignalRequest is the body of POST /signals, sent by external transports.
type SignalRequest struct {
	Key     string `json:"key"`
	Token   uint64 `json:"token"`
	Outcome string `json:"outcome"` // "ended" or "failed"
	Error   string `json:"error,omitempty"`
}

// Signal converts the request into a [playback.Signal].
func (s SignalRequest) Signal() (playback.Signal, error) {
	if strings.TrimSpace(s.Key) == "" {
		return playback.Signal{}, fmt.Errorf("%w: key is required", shared.ErrMissingArgument)
	}
	if s.Token == 0 {
		return playback.Signal{}, fmt.Errorf("%w: token is required", shared.ErrMissingArgument)
	}

	sig := playback.Signal{Key: s.Key, Token: playback.TrackToken(s.Token)}
	switch strings.ToLower(s.Outcome) {
	case "ended":
		sig.Outcome = playback.SignalEnded
	case "failed":
		sig.Outcome = playback.SignalFailed
		if s.Error != "" {
			sig.Err = errors.New(s.Error)
		}
	default:
		return playback.Signal{}, fmt.Errorf("%w: unknown outcome %q", shared.ErrInvalidArgument, s.Outcome)
	}
	return sig, nil
}

// SignalHandler forwards end-of-track notifications to the event bridge.
type SignalHandler struct {
	sink   SignalSink
	logger *log.Logger
}

// NewSignalHandler creates a handler for POST /signals.
func NewSignalHandler(sink SignalSink, logger *log.Logger) *SignalHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &SignalHandler{sink: sink, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *SignalHandler) Routes() []string {
	return []string{"POST /signals"}
}

// ServeHTTP decodes a signal and submits it; the advance happens asynchronously.
func (h *SignalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req SignalRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed body: %v", shared.ErrInvalidArgument, err))
		return
	}

	sig, err := req.Signal()
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.sink.Submit(r.Context(), sig); err != nil {
		h.logger.Warn("signal not accepted", "session", sig.Key, "token", sig.Token, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true, "key": sig.Key, "token": uint64(sig.Token)})
}
