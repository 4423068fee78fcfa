// Package importer applies a backup to the store: it picks the import mode,
// runs the merge engine and commits the result atomically.
package importer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hbimpianti/hbdesk/internal/domain"
	"github.com/hbimpianti/hbdesk/internal/events"
	"github.com/hbimpianti/hbdesk/internal/merge"
	"github.com/hbimpianti/hbdesk/internal/snapshot"
	"github.com/hbimpianti/hbdesk/internal/store"
	"github.com/hbimpianti/hbdesk/internal/webhooks"
)

// Import modes.
const (
	ModeMerge     = "merge"
	ModeOverwrite = "overwrite"
	ModeAuto      = "auto"
)

// Options configures an import.
type Options struct {
	// Mode is merge, overwrite or auto. auto overwrites an empty store and
	// merges into a populated one. Empty means auto.
	Mode            string
	DryRun          bool
	Orphans         merge.OrphanPolicy
	RecomputeTotals bool
	VATRate         decimal.Decimal
	// Source names where the backup came from (a path, "http"); it is kept
	// in the import log.
	Source string
	Logger *zap.Logger
	// Hooks is notified once the import is committed.
	Hooks *webhooks.Dispatcher
}

// Report describes what an import did, or would do on a dry run.
type Report struct {
	Mode        string                 `json:"mode"`
	DryRun      bool                   `json:"dry_run"`
	Stats       *merge.Stats           `json:"stats,omitempty"`
	Orphans     []merge.Orphan         `json:"orphans,omitempty"`
	Duplicates  []snapshot.DuplicateID `json:"duplicates,omitempty"`
	Before      snapshot.Counts        `json:"before"`
	After       snapshot.Counts        `json:"after"`
	SnapshotRev string                 `json:"snapshot_rev"`
	ImportUUID  string                 `json:"import_uuid,omitempty"`
}

// Run imports imported into st.
func Run(ctx context.Context, st *store.Store, imported *snapshot.Snapshot, opts Options) (*Report, error) {
	if imported == nil {
		return nil, fmt.Errorf("%w: nothing to import", domain.ErrInvalidSnapshot)
	}
	if opts.Mode == "" {
		opts.Mode = ModeAuto
	}
	if err := domain.ValidateImportMode(opts.Mode); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	current, err := st.Load(ctx)
	if err != nil {
		return nil, err
	}

	mode := opts.Mode
	if mode == ModeAuto {
		mode = ModeMerge
		if current.Snapshot.IsEmpty() {
			mode = ModeOverwrite
		}
	}

	rev, err := snapshot.Rev(imported)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Mode:        mode,
		DryRun:      opts.DryRun,
		Before:      current.Snapshot.Counts(),
		SnapshotRev: rev,
	}
	log = log.With(zap.String("mode", mode), zap.String("source", opts.Source), zap.String("rev", rev))

	var next *snapshot.Snapshot
	var stats any
	switch mode {
	case ModeOverwrite:
		next = merge.Overwrite(imported)
		stats = next.Counts()
	default:
		result, err := merge.Merge(current.Snapshot, imported, merge.Options{
			Orphans:         opts.Orphans,
			RecomputeTotals: opts.RecomputeTotals,
			VATRate:         opts.VATRate,
		})
		if err != nil {
			log.Warn("merge failed", zap.Error(err))
			return nil, err
		}
		next = result.Merged
		report.Stats = &result.Stats
		report.Orphans = result.Orphans
		report.Duplicates = result.Duplicates
		stats = result.Stats
		for _, o := range result.Orphans {
			log.Info("unresolved reference", zap.Stringer("orphan", o))
		}
		for _, dup := range result.Duplicates {
			log.Warn("duplicate imported id",
				zap.String("collection", string(dup.Collection)),
				zap.Int("id", dup.ID),
				zap.Int("count", dup.Count))
		}
	}
	report.After = next.Counts()

	if opts.DryRun {
		log.Debug("dry run, nothing committed", zap.Int("records", report.After.Total()))
		return report, nil
	}

	entry, err := st.Commit(ctx, next, store.Change{
		Mode:        mode,
		Source:      opts.Source,
		SnapshotRev: rev,
		Stats:       stats,
		IfMatch:     current.ETags,
		Backup:      mode == events.ModeOverwrite,
	})
	if err != nil {
		log.Error("import commit failed", zap.Error(err))
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	report.ImportUUID = entry.UUID

	log.Info("import committed",
		zap.String("import_uuid", entry.UUID),
		zap.Int("before", report.Before.Total()),
		zap.Int("after", report.After.Total()))

	opts.Hooks.Dispatch(ctx, webhooks.PayloadFor(entry, report.After))
	return report, nil
}
