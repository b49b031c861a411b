// package formatter renders queues and play history to CSV, Markdown, JSON and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/playback"
	"github.com/desertthunder/jukebox/internal/shared"
)

// Format is an export format name.
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat accepts the format names used on the command line.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "txt", "text":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// QueueToText renders a session snapshot as plain text
func QueueToText(snap playback.Snapshot) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Session: %s (%s)\n", snap.Key, snap.State))
	if snap.Current != nil {
		buf.WriteString(fmt.Sprintf("Now playing: %s [%s] #%d\n", snap.Current.Title(), shared.FormatDuration(snap.Current.Duration()), snap.Token))
	} else {
		buf.WriteString("Now playing: nothing\n")
	}
	if snap.Failures > 0 {
		buf.WriteString(fmt.Sprintf("Consecutive failures: %d\n", snap.Failures))
	}
	buf.WriteString(fmt.Sprintf("Queue: %d\n", len(snap.Queue)))

	if len(snap.Queue) > 0 {
		buf.WriteString("\n")
	}
	for i, item := range snap.Queue {
		buf.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, item.Title(), shared.FormatDuration(item.Duration())))
	}

	return buf.Bytes()
}

// QueueToMarkdown renders a session snapshot as Markdown
func QueueToMarkdown(snap playback.Snapshot) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", snap.Key))
	buf.WriteString(fmt.Sprintf("**State**: %s\n", snap.State))
	if snap.Current != nil {
		buf.WriteString(fmt.Sprintf("**Now playing**: [%s](%s) [%s]\n", snap.Current.Title(), snap.Current.SourceReference(), shared.FormatDuration(snap.Current.Duration())))
	}
	buf.WriteString(fmt.Sprintf("**Queued**: %d\n\n", len(snap.Queue)))

	if len(snap.Queue) == 0 {
		return buf.Bytes()
	}

	buf.WriteString("## Up Next\n\n")
	for i, item := range snap.Queue {
		buf.WriteString(fmt.Sprintf("%d. [%s](%s) [%s]\n", i+1, item.Title(), item.SourceReference(), shared.FormatDuration(item.Duration())))
	}

	return buf.Bytes()
}

// HistoryToCSV converts play records to CSV with columns: Sequence, Session, Title, Source, Query, Duration, Token, Outcome, Error, Played At
func HistoryToCSV(records []*models.PlayRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "Session", "Title", "Source", "Query", "Duration", "Token", "Outcome", "Error", "Played At"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		record := []string{
			strconv.Itoa(r.Sequence()),
			r.SessionKey(),
			r.Title(),
			r.SourceReference(),
			r.OriginalQuery(),
			strconv.Itoa(int(r.Duration() / time.Second)),
			strconv.FormatUint(r.Token(), 10),
			string(r.Outcome()),
			r.ErrorText(),
			r.CreatedAt().UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToMarkdown renders play records as a Markdown list grouped under title
func HistoryToMarkdown(title string, records []*models.PlayRecord) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Plays**: %d\n", countOutcome(records, models.OutcomeStarted)))
	buf.WriteString(fmt.Sprintf("**Failures**: %d\n\n", countOutcome(records, models.OutcomeFailed)))

	buf.WriteString("## History\n\n")
	for i, r := range records {
		line := fmt.Sprintf("%d. [%s](%s) [%s] `%s`", i+1, r.Title(), r.SourceReference(), shared.FormatDuration(r.Duration()), r.SessionKey())
		if r.Outcome() == models.OutcomeFailed {
			line += fmt.Sprintf(" ✗ %s", r.ErrorText())
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes()
}

// HistoryToText renders play records one per line
func HistoryToText(records []*models.PlayRecord) []byte {
	var buf bytes.Buffer

	for _, r := range records {
		mark := "✓"
		if r.Outcome() == models.OutcomeFailed {
			mark = "✗"
		}
		buf.WriteString(fmt.Sprintf("%s %s  %-12s %s [%s]",
			mark, r.CreatedAt().Local().Format("2006-01-02 15:04"), r.SessionKey(), r.Title(), shared.FormatDuration(r.Duration())))
		if r.ErrorText() != "" {
			buf.WriteString(": " + r.ErrorText())
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// HistoryRecord is the JSON form of a [models.PlayRecord].
type HistoryRecord struct {
	ID              string    `json:"id"`
	Sequence        int       `json:"sequence"`
	Session         string    `json:"session"`
	Title           string    `json:"title"`
	Source          string    `json:"source"`
	Query           string    `json:"query,omitempty"`
	DurationSeconds int64     `json:"duration_seconds"`
	Token           uint64    `json:"token"`
	Outcome         string    `json:"outcome"`
	Error           string    `json:"error,omitempty"`
	PlayedAt        time.Time `json:"played_at"`
}

// HistoryToJSON renders play records as an indented JSON array
func HistoryToJSON(records []*models.PlayRecord) ([]byte, error) {
	out := make([]HistoryRecord, 0, len(records))
	for _, r := range records {
		out = append(out, HistoryRecord{
			ID:              r.ID(),
			Sequence:        r.Sequence(),
			Session:         r.SessionKey(),
			Title:           r.Title(),
			Source:          r.SourceReference(),
			Query:           r.OriginalQuery(),
			DurationSeconds: int64(r.Duration() / time.Second),
			Token:           r.Token(),
			Outcome:         string(r.Outcome()),
			Error:           r.ErrorText(),
			PlayedAt:        r.CreatedAt().UTC(),
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	return append(data, '\n'), nil
}

// RenderHistory renders records in the given format
func RenderHistory(format Format, title string, records []*models.PlayRecord) ([]byte, error) {
	switch format {
	case FormatCSV:
		return HistoryToCSV(records)
	case FormatMarkdown:
		return HistoryToMarkdown(title, records), nil
	case FormatJSON:
		return HistoryToJSON(records)
	case FormatText:
		return HistoryToText(records), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteHistoryExport writes records to a file in the given format.
//
// Defaults to history_{epoch}.{ext} as the filename.
func WriteHistoryExport(format Format, title string, records []*models.PlayRecord, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("history_%d.%s", time.Now().Unix(), format.Extension())
	}

	data, err := RenderHistory(format, title, records)
	if err != nil {
		return "", fmt.Errorf("failed to render history: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write history file: %w", err)
	}

	return filepath, nil
}

func countOutcome(records []*models.PlayRecord, outcome models.PlayOutcome) int {
	n := 0
	for _, r := range records {
		if r.Outcome() == outcome {
			n++
		}
	}
	return n
}
