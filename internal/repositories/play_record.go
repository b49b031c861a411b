package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

const playRecordColumns = `id, sequence, session_key, title, source_reference, original_query,
	duration_seconds, token, outcome, error, created_at, updated_at, deleted_at`

// PlayRecordRepository implements models.Repository[*models.PlayRecord] for play history.
//
// Records are append-mostly: one row per playback attempt, soft deleted when pruned.
type PlayRecordRepository struct {
	db *sql.DB
}

// NewPlayRecordRepository creates a new PlayRecordRepository with the given database connection
func NewPlayRecordRepository(db *sql.DB) *PlayRecordRepository {
	return &PlayRecordRepository{db: db}
}

// Create inserts a new [models.PlayRecord] with generated ID and sequence
func (r *PlayRecordRepository) Create(record *models.PlayRecord) error {
	sequence, err := NextSequence(r.db, "play_records")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	record.SetID(shared.GenerateID())
	record.SetSequence(sequence)

	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO play_records (id, sequence, session_key, title, source_reference, original_query,
			duration_seconds, token, outcome, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		record.ID(),
		record.Sequence(),
		record.SessionKey(),
		record.Title(),
		record.SourceReference(),
		record.OriginalQuery(),
		int64(record.Duration()/time.Second),
		int64(record.Token()),
		string(record.Outcome()),
		record.ErrorText(),
		record.CreatedAt(),
		record.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert play record: %w", err)
	}

	return nil
}

// Get retrieves a record by ID, excluding soft-deleted records
func (r *PlayRecordRepository) Get(id string) (*models.PlayRecord, error) {
	query := `SELECT ` + playRecordColumns + ` FROM play_records WHERE id = ? AND deleted_at IS NULL`

	record, err := scanPlayRecord(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: play record %s", shared.ErrRecordNotFound, id)
	}
	return record, err
}

// Update rewrites the outcome and error of an existing record
func (r *PlayRecordRepository) Update(record *models.PlayRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	record.SetUpdatedAt(now)

	query := `
		UPDATE play_records
		SET outcome = ?, error = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, string(record.Outcome()), record.ErrorText(), now, record.ID())
	if err != nil {
		return fmt.Errorf("failed to update play record: %w", err)
	}

	return expectAffected(result, record.ID())
}

// Delete soft-deletes a record by ID
func (r *PlayRecordRepository) Delete(id string) error {
	query := `
		UPDATE play_records
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete play record: %w", err)
	}

	return expectAffected(result, id)
}

// List retrieves records matching the given criteria, excluding soft-deleted records.
//
// Supported criteria: "session_key" (string), "outcome" (string), "limit" (int).
// With a limit the most recent records are returned, still in sequence order.
func (r *PlayRecordRepository) List(criteria map[string]any) ([]*models.PlayRecord, error) {
	query := `SELECT ` + playRecordColumns + ` FROM play_records WHERE deleted_at IS NULL`
	args := []any{}

	if key, ok := criteria["session_key"].(string); ok && key != "" {
		query += " AND session_key = ?"
		args = append(args, key)
	}

	if outcome, ok := criteria["outcome"].(string); ok && outcome != "" {
		query += " AND outcome = ?"
		args = append(args, outcome)
	}

	limit, _ := criteria["limit"].(int)
	if limit > 0 {
		query += " ORDER BY sequence DESC LIMIT ?"
		args = append(args, limit)
	} else {
		query += " ORDER BY sequence ASC"
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query play records: %w", err)
	}
	defer rows.Close()

	var records []*models.PlayRecord
	for rows.Next() {
		record, err := scanPlayRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if limit > 0 {
		slices.Reverse(records)
	}

	return records, nil
}

// SessionKeys returns every session key with history, in first-seen order.
func (r *PlayRecordRepository) SessionKeys() ([]string, error) {
	rows, err := r.db.Query(`
		SELECT session_key FROM play_records
		WHERE deleted_at IS NULL
		GROUP BY session_key
		ORDER BY MIN(sequence) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query session keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan session key: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanPlayRecord(s scanner) (*models.PlayRecord, error) {
	var (
		id        string
		sequence  int
		key       string
		title     string
		source    string
		query     string
		duration  int64
		token     int64
		outcome   string
		errText   string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := s.Scan(&id, &sequence, &key, &title, &source, &query, &duration, &token, &outcome, &errText, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan play record: %w", err)
	}

	loc, _ := models.ParseLocator(query)
	meta := models.ItemMetadata{Title: title, Duration: time.Duration(duration) * time.Second}
	item := models.NewPlaylistItem(meta, source, loc, query, "")

	record := models.NewPlayRecord(sequence, key, uint64(token), item, models.PlayOutcome(outcome), errText)
	record.SetID(id)
	record.SetCreatedAt(createdAt)
	record.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		record.SetDeletedAt(&deletedAt.Time)
	}

	return record, nil
}

func expectAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: play record not found or already deleted: %s", shared.ErrRecordNotFound, id)
	}
	return nil
}

var _ models.Repository[*models.PlayRecord] = (*PlayRecordRepository)(nil)
