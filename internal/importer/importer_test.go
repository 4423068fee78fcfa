package importer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hbimpianti/hbdesk/internal/db"
	"github.com/hbimpianti/hbdesk/internal/domain"
	"github.com/hbimpianti/hbdesk/internal/merge"
	"github.com/hbimpianti/hbdesk/internal/snapshot"
	"github.com/hbimpianti/hbdesk/internal/store"
	"github.com/hbimpianti/hbdesk/internal/webhooks"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return store.New(database)
}

func backupA() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Clients: []domain.Client{{ID: 1, GivenName: "Anna", FamilyName: "Rossi", Phone: "333"}},
		Jobs:    []domain.Job{{ID: 1, ClientID: 1, Date: "2024-03-01", Description: "Impianto"}},
	}
}

func backupB() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Clients: []domain.Client{
			{ID: 1, GivenName: "anna", FamilyName: "ROSSI", Phone: "333"},
			{ID: 2, GivenName: "Marco", FamilyName: "Verdi"},
		},
		Jobs: []domain.Job{{ID: 4, ClientID: 2, Date: "2024-04-01", Description: "Caldaia"}},
	}
}

func TestRun_AutoOverwritesEmptyStore(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t)

	report, err := Run(ctx, st, backupA(), Options{Source: "a.json"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.Mode != ModeOverwrite {
		t.Errorf("Mode = %q, want overwrite for an empty store", report.Mode)
	}
	if report.Stats != nil {
		t.Error("overwrite should not report merge stats")
	}
	if report.ImportUUID == "" {
		t.Error("expected import UUID")
	}
	if report.After.Clients != 1 || report.After.Jobs != 1 {
		t.Errorf("After = %+v", report.After)
	}
}

func TestRun_AutoMergesPopulatedStore(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t)

	if _, err := Run(ctx, st, backupA(), Options{}); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	report, err := Run(ctx, st, backupB(), Options{Mode: ModeAuto})
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if report.Mode != ModeMerge {
		t.Fatalf("Mode = %q, want merge", report.Mode)
	}
	if report.Stats.Clients.Added != 1 || report.Stats.Clients.Skipped != 1 {
		t.Errorf("client stats = %+v", report.Stats.Clients)
	}
	if report.Stats.Jobs.Added != 1 {
		t.Errorf("job stats = %+v", report.Stats.Jobs)
	}

	state, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(state.Snapshot.Clients) != 2 || len(state.Snapshot.Jobs) != 2 {
		t.Fatalf("stored counts = %+v", state.Snapshot.Counts())
	}
	marco := state.Snapshot.Clients[1]
	if marco.ID != 2 || state.Snapshot.Jobs[1].ClientID != marco.ID {
		t.Errorf("job not remapped to Marco: %+v", state.Snapshot.Jobs[1])
	}

	history, err := st.History(ctx, 10)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 2 || history[0].Mode != ModeMerge {
		t.Errorf("history = %+v", history)
	}
}

func TestRun_DryRunCommitsNothing(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t)

	report, err := Run(ctx, st, backupA(), Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !report.DryRun || report.ImportUUID != "" {
		t.Errorf("unexpected report: %+v", report)
	}
	if report.After.Clients != 1 {
		t.Errorf("dry run should still preview counts: %+v", report.After)
	}

	state, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !state.Snapshot.IsEmpty() {
		t.Errorf("dry run wrote data: %+v", state.Snapshot.Counts())
	}
}

func TestRun_ReimportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t)

	if _, err := Run(ctx, st, backupA(), Options{}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	before, _ := st.Load(ctx)

	report, err := Run(ctx, st, backupA(), Options{Mode: ModeMerge})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if added := report.Stats.Totals().Added; added != 0 {
		t.Errorf("re-import added %d records", added)
	}

	after, _ := st.Load(ctx)
	for col, etag := range before.ETags {
		if after.ETags[col] != etag {
			t.Errorf("%s etag moved from %d to %d on a no-op import", col, etag, after.ETags[col])
		}
	}
}

func TestRun_StrictOrphansAbort(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t)
	if _, err := Run(ctx, st, backupA(), Options{}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	bad := &snapshot.Snapshot{
		Jobs: []domain.Job{{ID: 1, ClientID: 99, Date: "2024-05-01", Description: "Nessuno"}},
	}
	_, err := Run(ctx, st, bad, Options{Mode: ModeMerge, Orphans: merge.OrphanStrict})
	if !errors.Is(err, domain.ErrOrphanReference) {
		t.Fatalf("Run() error = %v, want ErrOrphanReference", err)
	}

	state, _ := st.Load(ctx)
	if len(state.Snapshot.Jobs) != 1 {
		t.Errorf("failed import changed jobs: %+v", state.Snapshot.Jobs)
	}
}

func TestRun_OverwriteKeepsBackup(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t)
	if _, err := Run(ctx, st, backupA(), Options{}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if _, err := Run(ctx, st, backupB(), Options{Mode: ModeOverwrite}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	backups, err := st.Backups(ctx, 10)
	if err != nil {
		t.Fatalf("Backups() error: %v", err)
	}
	found := false
	for _, b := range backups {
		if b.Name == string(domain.CollectionClients) && b.Reason == ModeOverwrite && b.Records == 1 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a backup of the previous clients, got %+v", backups)
	}
}

func TestRun_InvalidMode(t *testing.T) {
	st := setupStore(t)
	if _, err := Run(context.Background(), st, backupA(), Options{Mode: "replace"}); err == nil {
		t.Error("expected error for invalid mode")
	}
	if _, err := Run(context.Background(), st, nil, Options{}); !errors.Is(err, domain.ErrInvalidSnapshot) {
		t.Errorf("Run(nil) error = %v, want ErrInvalidSnapshot", err)
	}
}

func TestRun_LogsCommit(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	st := setupStore(t)

	if _, err := Run(context.Background(), st, backupA(), Options{Source: "a.json", Logger: zap.New(core)}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	entries := logs.FilterMessage("import committed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one commit log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["source"] != "a.json" || fields["mode"] != ModeOverwrite {
		t.Errorf("log fields = %v", fields)
	}
}

func TestRun_NotifiesWebhooksAfterCommit(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t)

	var mu sync.Mutex
	var payloads []webhooks.Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhooks.Payload
		_ = json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		payloads = append(payloads, p)
		mu.Unlock()
	}))
	defer srv.Close()
	hooks := webhooks.New([]string{srv.URL + "/hbdesk"}, nil)

	if _, err := Run(ctx, st, backupA(), Options{DryRun: true, Hooks: hooks}); err != nil {
		t.Fatalf("dry run error: %v", err)
	}
	if len(payloads) != 0 {
		t.Fatalf("dry run should not notify, got %v", payloads)
	}

	report, err := Run(ctx, st, backupA(), Options{Source: "a.json", Hooks: hooks})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(payloads) != 1 {
		t.Fatalf("expected one notification, got %d", len(payloads))
	}
	p := payloads[0]
	if p.UUID != report.ImportUUID || p.Mode != ModeOverwrite || p.Source != "a.json" || p.Counts.Clients != 1 {
		t.Errorf("unexpected payload: %+v", p)
	}
}
