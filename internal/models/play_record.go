package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/jukebox/internal/shared"
)

// PlayOutcome is how a playback attempt went.
type PlayOutcome string

const (
	OutcomeStarted PlayOutcome = "started"
	OutcomeFailed  PlayOutcome = "failed"
)

// PlayRecord is one playback attempt in a session's history.
type PlayRecord struct {
	id        string
	sequence  int
	key       string
	title     string
	source    string
	query     string
	duration  time.Duration
	token     uint64
	outcome   PlayOutcome
	errText   string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPlayRecord creates a record for item on session key; errText is empty for a successful start.
func NewPlayRecord(sequence int, key string, token uint64, item PlaylistItem, outcome PlayOutcome, errText string) *PlayRecord {
	now := time.Now()
	return &PlayRecord{
		sequence:  sequence,
		key:       key,
		title:     item.Title(),
		source:    item.SourceReference(),
		query:     item.OriginalQuery(),
		duration:  item.Duration(),
		token:     token,
		outcome:   outcome,
		errText:   errText,
		createdAt: now,
		updatedAt: now,
	}
}

func (r *PlayRecord) ID() string              { return r.id }
func (r *PlayRecord) Sequence() int           { return r.sequence }
func (r *PlayRecord) SessionKey() string      { return r.key }
func (r *PlayRecord) Title() string           { return r.title }
func (r *PlayRecord) SourceReference() string { return r.source }
func (r *PlayRecord) OriginalQuery() string   { return r.query }
func (r *PlayRecord) Duration() time.Duration { return r.duration }
func (r *PlayRecord) Token() uint64           { return r.token }
func (r *PlayRecord) Outcome() PlayOutcome    { return r.outcome }
func (r *PlayRecord) ErrorText() string       { return r.errText }
func (r *PlayRecord) CreatedAt() time.Time    { return r.createdAt }
func (r *PlayRecord) UpdatedAt() time.Time    { return r.updatedAt }
func (r *PlayRecord) DeletedAt() *time.Time   { return r.deletedAt }

func (r *PlayRecord) SetID(id string)           { r.id = id }
func (r *PlayRecord) SetSequence(seq int)       { r.sequence = seq }
func (r *PlayRecord) SetCreatedAt(t time.Time)  { r.createdAt = t }
func (r *PlayRecord) SetUpdatedAt(t time.Time)  { r.updatedAt = t }
func (r *PlayRecord) SetDeletedAt(t *time.Time) { r.deletedAt = t }
func (r *PlayRecord) SetOutcome(o PlayOutcome)  { r.outcome = o }
func (r *PlayRecord) SetError(errText string)   { r.errText = errText }

// Validate checks required fields.
func (r *PlayRecord) Validate() error {
	switch {
	case r.id == "":
		return fmt.Errorf("%w: play record ID is required", shared.ErrInvalidInput)
	case r.key == "":
		return fmt.Errorf("%w: session key is required", shared.ErrInvalidInput)
	case r.source == "":
		return fmt.Errorf("%w: source reference is required", shared.ErrInvalidInput)
	case r.token == 0:
		return fmt.Errorf("%w: track token is required", shared.ErrInvalidInput)
	}

	switch r.outcome {
	case OutcomeStarted, OutcomeFailed:
		return nil
	default:
		return fmt.Errorf("%w: unknown outcome %q", shared.ErrInvalidInput, r.outcome)
	}
}

var _ Model = (*PlayRecord)(nil)
