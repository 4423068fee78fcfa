// Package events records dataset-wide changes (imports, overwrites, VAT
// repairs) in the import log.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Change modes.
const (
	ModeMerge     = "merge"
	ModeOverwrite = "overwrite"
	ModeRevat     = "revat"
)

// Entry is one row of the import log.
type Entry struct {
	UUID        string          `db:"uuid" json:"uuid"`
	Mode        string          `db:"mode" json:"mode"`
	Source      string          `db:"source" json:"source"`
	SnapshotRev string          `db:"snapshot_rev" json:"snapshot_rev"`
	StatsText   string          `db:"stats" json:"-"`
	Stats       json.RawMessage `db:"-" json:"stats"`
	CreatedAt   string          `db:"created_at" json:"created_at"`
}

// Writer handles writing entries to the import log
type Writer struct {
	now func() time.Time
}

// NewWriter creates a new log writer
func NewWriter() *Writer {
	return &Writer{now: time.Now}
}

// Log writes entry inside tx, filling in its UUID and timestamp. stats is
// encoded as JSON.
func (w *Writer) Log(ctx context.Context, tx *sqlx.Tx, entry *Entry, stats any) error {
	if stats != nil {
		data, err := json.Marshal(stats)
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		entry.Stats = data
	}
	if len(entry.Stats) == 0 {
		entry.Stats = json.RawMessage("{}")
	}
	entry.StatsText = string(entry.Stats)
	entry.UUID = uuid.NewString()
	entry.CreatedAt = w.now().UTC().Format("2006-01-02T15:04:05Z")

	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO import_log (uuid, mode, source, snapshot_rev, stats, created_at)
		VALUES (:uuid, :mode, :source, :snapshot_rev, :stats, :created_at)
	`, entry)
	if err != nil {
		return fmt.Errorf("failed to write import log: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first. A limit of 0 or less
// returns every entry.
func List(ctx context.Context, q sqlx.QueryerContext, limit int) ([]Entry, error) {
	query := `
		SELECT uuid, mode, source, snapshot_rev, stats, created_at
		FROM import_log
		ORDER BY created_at DESC, rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	entries := []Entry{}
	if err := sqlx.SelectContext(ctx, q, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query import log: %w", err)
	}
	for i := range entries {
		entries[i].Stats = json.RawMessage(entries[i].StatsText)
	}
	return entries, nil
}
