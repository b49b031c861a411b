package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/jukebox/internal/formatter"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/repositories"
	"github.com/desertthunder/jukebox/internal/shared"
	"github.com/urfave/cli/v3"
)

// HistoryList prints play history, newest last.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	records, err := r.loadHistory(cmd)
	if err != nil {
		return err
	}

	if format == formatter.FormatText {
		if len(records) == 0 {
			return r.writePlain("No plays recorded\n")
		}
		r.writePlainHeader(historyTitle(cmd.String("key")))
	}

	data, err := formatter.RenderHistory(format, historyTitle(cmd.String("key")), records)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// HistoryExport writes play history to a file.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	records, err := r.loadHistory(cmd)
	if err != nil {
		return err
	}

	path, err := formatter.WriteHistoryExport(format, historyTitle(cmd.String("key")), records, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("history exported", "records", len(records), "path", path)
	return r.writePlain("✓ Exported %d plays to %s\n", len(records), path)
}

// HistorySessions lists every session key with recorded plays.
func (r *Runner) HistorySessions(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	keys, err := repositories.NewPlayRecordRepository(db).SessionKeys()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(keys, true)
	}
	for _, key := range keys {
		r.writePlain("%s\n", key)
	}
	return nil
}

func (r *Runner) loadHistory(cmd *cli.Command) ([]*models.PlayRecord, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	criteria := map[string]any{}
	if key := cmd.String("key"); key != "" {
		criteria["session_key"] = key
	}
	if cmd.Bool("failed") {
		criteria["outcome"] = string(models.OutcomeFailed)
	}
	if limit := cmd.Int("limit"); limit > 0 {
		criteria["limit"] = limit
	}

	records, err := repositories.NewPlayRecordRepository(db).List(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return records, nil
}

func historyTitle(key string) string {
	if key == "" {
		return "Play History"
	}
	return fmt.Sprintf("Play History: %s", key)
}
