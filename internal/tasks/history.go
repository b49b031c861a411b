package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/playback"
)

// RecordCreator persists play records; repositories.PlayRecordRepository satisfies it.
type RecordCreator interface {
	Create(record *models.PlayRecord) error
}

// HistoryRecorder turns now-playing and failure events into play records.
//
// Storage errors are logged and never reach the session that produced the event.
type HistoryRecorder struct {
	hub    *playback.Hub
	store  RecordCreator
	logger *log.Logger
}

// NewHistoryRecorder creates a recorder reading from hub and writing to store.
func NewHistoryRecorder(hub *playback.Hub, store RecordCreator, logger *log.Logger) *HistoryRecorder {
	if logger == nil {
		logger = log.Default()
	}
	return &HistoryRecorder{hub: hub, store: store, logger: logger}
}

// Run records events until ctx is done or the hub closes.
func (h *HistoryRecorder) Run(ctx context.Context) error {
	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			h.flush(sub)
			return ctx.Err()
		case <-sub.Done:
			h.flush(sub)
			if n := sub.Dropped(); n > 0 {
				h.logger.Warn("history events dropped", "count", n)
			}
			return nil
		case e := <-sub.Events:
			if err := h.Record(e); err != nil {
				h.logger.Error("failed to record play", "session", e.Key, "error", err)
			}
		}
	}
}

// Record stores e when it is a now-playing or failure event and ignores anything else.
func (h *HistoryRecorder) Record(e playback.Event) error {
	var record *models.PlayRecord
	switch e.Kind {
	case playback.EventNowPlaying:
		record = models.NewPlayRecord(0, e.Key, uint64(e.Token), e.Item, models.OutcomeStarted, "")
	case playback.EventTrackFailed:
		errText := ""
		if e.Err != nil {
			errText = e.Err.Error()
		}
		record = models.NewPlayRecord(0, e.Key, uint64(e.Token), e.Item, models.OutcomeFailed, errText)
	default:
		return nil
	}

	if err := h.store.Create(record); err != nil {
		return fmt.Errorf("failed to store play record: %w", err)
	}
	return nil
}

// flush records whatever is already buffered.
func (h *HistoryRecorder) flush(sub *playback.Subscription) {
	for {
		select {
		case e := <-sub.Events:
			if err := h.Record(e); err != nil {
				h.logger.Error("failed to record play", "session", e.Key, "error", err)
			}
		default:
			return
		}
	}
}
