// Package store persists the six collections and records every dataset-wide
// change in the import log. Collections are stored as JSON arrays, one row
// each, with an etag that increases on every write.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hbimpianti/hbdesk/internal/db"
	"github.com/hbimpianti/hbdesk/internal/domain"
	"github.com/hbimpianti/hbdesk/internal/events"
	"github.com/hbimpianti/hbdesk/internal/snapshot"
)

// Store wraps the database with collection-level operations.
type Store struct {
	db  *db.DB
	x   *sqlx.DB
	log *events.Writer
}

// New creates a new Store wrapping the given database connection.
func New(database *db.DB) *Store {
	return &Store{
		db:  database,
		x:   database.X(),
		log: events.NewWriter(),
	}
}

// DB returns the underlying database connection (for read-only queries).
func (s *Store) DB() *db.DB {
	return s.db
}

// State is the dataset together with the etag each collection was read at.
type State struct {
	Snapshot *snapshot.Snapshot
	ETags    map[domain.Collection]int64
}

type collectionRow struct {
	Name      string `db:"name"`
	Data      string `db:"data"`
	ETag      int64  `db:"etag"`
	UpdatedAt string `db:"updated_at"`
}

// withTx executes fn within a transaction. If fn returns nil, the transaction
// is committed; otherwise it is rolled back.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.x.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// Load reads all six collections in one consistent read.
func (s *Store) Load(ctx context.Context) (*State, error) {
	var rows []collectionRow
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &rows, `SELECT name, data, etag, updated_at FROM collections`)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load collections: %w", err)
	}

	state := &State{
		Snapshot: &snapshot.Snapshot{},
		ETags:    make(map[domain.Collection]int64, len(rows)),
	}
	for _, row := range rows {
		col, err := domain.ParseCollection(row.Name)
		if err != nil {
			return nil, err
		}
		if err := snapshot.DecodeCollection(state.Snapshot, col, []byte(row.Data)); err != nil {
			return nil, err
		}
		state.ETags[col] = row.ETag
	}
	state.Snapshot.Normalize()
	return state, nil
}

// Change describes a dataset-wide write.
type Change struct {
	// Mode is one of the events.Mode* constants.
	Mode        string
	Source      string
	SnapshotRev string
	Stats       any
	// IfMatch holds the etags the snapshot was derived from. A collection
	// whose etag moved since is not overwritten and the commit fails.
	IfMatch map[domain.Collection]int64
	// Backup copies each collection that is about to change into
	// collection_backups first.
	Backup bool
}

// Commit writes every collection of snap and logs the change, all in one
// transaction. Collections whose content is unchanged keep their etag.
func (s *Store) Commit(ctx context.Context, snap *snapshot.Snapshot, change Change) (*events.Entry, error) {
	entry := &events.Entry{
		Mode:        change.Mode,
		Source:      change.Source,
		SnapshotRev: change.SnapshotRev,
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, col := range domain.Collections {
			data, err := snapshot.EncodeCollection(snap, col)
			if err != nil {
				return err
			}
			if _, err := s.writeCollection(ctx, tx, col, data, change.IfMatch[col], change.Backup, change.Mode); err != nil {
				return err
			}
		}
		return s.log.Log(ctx, tx, entry, change.Stats)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// SaveCollection replaces one collection. ifMatch of 0 skips the etag check.
// It returns the new etag.
func (s *Store) SaveCollection(ctx context.Context, col domain.Collection, data []byte, ifMatch int64) (int64, error) {
	var etag int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		etag, err = s.writeCollection(ctx, tx, col, data, ifMatch, false, "")
		return err
	})
	return etag, err
}

func (s *Store) writeCollection(ctx context.Context, tx *sqlx.Tx, col domain.Collection, data []byte, ifMatch int64, backup bool, reason string) (int64, error) {
	var current collectionRow
	err := tx.GetContext(ctx, &current, `SELECT name, data, etag, updated_at FROM collections WHERE name = ?`, string(col))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w %q", domain.ErrUnknownCollection, col)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", col, err)
	}

	if ifMatch > 0 {
		if err := domain.CheckETag(col, ifMatch, current.ETag); err != nil {
			return 0, err
		}
	}

	if current.Data == string(data) {
		return current.ETag, nil
	}

	if backup {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO collection_backups (name, data, etag, reason)
			VALUES (?, ?, ?, ?)
		`, current.Name, current.Data, current.ETag, reason)
		if err != nil {
			return 0, fmt.Errorf("failed to back up %s: %w", col, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE collections
		SET data = ?, etag = etag + 1, updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')
		WHERE name = ?
	`, string(data), string(col))
	if err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", col, err)
	}
	return current.ETag + 1, nil
}

// Collection returns the raw JSON array stored for col and its etag.
func (s *Store) Collection(ctx context.Context, col domain.Collection) ([]byte, int64, error) {
	var row collectionRow
	err := s.x.GetContext(ctx, &row, `SELECT name, data, etag, updated_at FROM collections WHERE name = ?`, string(col))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("%w %q", domain.ErrUnknownCollection, col)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", col, err)
	}
	return []byte(row.Data), row.ETag, nil
}

// History returns the most recent import log entries, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]events.Entry, error) {
	return events.List(ctx, s.x, limit)
}

// Backup is a saved copy of a collection.
type Backup struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"collection"`
	ETag      int64  `db:"etag" json:"etag"`
	Reason    string `db:"reason" json:"reason"`
	Records   int    `db:"records" json:"records"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// Backups lists saved collection copies, newest first.
func (s *Store) Backups(ctx context.Context, limit int) ([]Backup, error) {
	query := `
		SELECT id, name, etag, reason, json_array_length(data) AS records, created_at
		FROM collection_backups
		ORDER BY id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	backups := []Backup{}
	if err := s.x.SelectContext(ctx, &backups, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query backups: %w", err)
	}
	return backups, nil
}
