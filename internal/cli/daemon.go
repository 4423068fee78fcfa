package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hbimpianti/hbdesk/internal/cli/appctx"
	"github.com/hbimpianti/hbdesk/internal/config"
	"github.com/hbimpianti/hbdesk/internal/domain"
	"github.com/hbimpianti/hbdesk/internal/importer"
	"github.com/hbimpianti/hbdesk/internal/logging"
	"github.com/hbimpianti/hbdesk/internal/merge"
	"github.com/hbimpianti/hbdesk/internal/snapshot"
	"github.com/hbimpianti/hbdesk/internal/store"
	"github.com/hbimpianti/hbdesk/internal/webhooks"
)

// maxBackupBytes bounds an uploaded backup; job attachments are inlined as
// base64 so backups can be large.
const maxBackupBytes = 256 << 20

// DaemonOptions configures the hbdeskd daemon.
type DaemonOptions struct {
	Addr   string
	Unix   string
	Token  string
	DBPath string
}

// ServeDaemon starts the hbdeskd daemon and blocks until ctx is cancelled or
// the listener fails.
func ServeDaemon(ctx context.Context, opts DaemonOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.Token == "" {
		opts.Token = cfg.DaemonToken
	}
	if opts.Addr == "" {
		opts.Addr = cfg.DaemonAddr
	}

	logger, err := logging.New(logging.Config{Encoding: "json", Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer logger.Sync()

	database, err := appctx.OpenMigrated(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	server := &daemonServer{
		store:  store.New(database),
		cfg:    cfg,
		token:  opts.Token,
		logger: logger,
		hooks:  webhooks.New(cfg.WebhookURLs, logger),
	}

	httpServer := &http.Server{
		Handler:      server.handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	var listener net.Listener
	if opts.Unix != "" {
		_ = os.Remove(opts.Unix)
		listener, err = net.Listen("unix", opts.Unix)
	} else {
		listener, err = net.Listen("tcp", opts.Addr)
	}
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()
	logger.Info("hbdeskd listening", zap.String("addr", listener.Addr().String()), zap.String("db", cfg.DBPath))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("hbdeskd shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

type daemonServer struct {
	store  *store.Store
	cfg    *config.Config
	token  string
	logger *zap.Logger
	hooks  *webhooks.Dispatcher
}

func (s *daemonServer) handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return s.withLogging(mux)
}

func (s *daemonServer) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/health", s.withAuth(s.handleHealth))
	mux.HandleFunc("GET /v1/backup/export", s.withAuth(s.handleExport))
	mux.HandleFunc("POST /v1/backup/import", s.withAuth(s.handleImport))
	mux.HandleFunc("GET /v1/collections/{name}", s.withAuth(s.handleCollectionGet))
	mux.HandleFunc("PUT /v1/collections/{name}", s.withAuth(s.handleCollectionPut))
	mux.HandleFunc("GET /v1/history", s.withAuth(s.handleHistory))
}

func (s *daemonServer) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			token := r.Header.Get("Authorization")
			if strings.HasPrefix(token, "Bearer ") {
				token = strings.TrimPrefix(token, "Bearer ")
			}
			if token == "" {
				token = r.Header.Get("X-Hbdesk-Token")
			}
			if token != s.token {
				s.writeError(w, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
				return
			}
		}

		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *daemonServer) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *daemonServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *daemonServer) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.writeJSON(w, status, map[string]any{
		"message": err.Error(),
	})
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	var mismatch *domain.ETagMismatchError
	switch {
	case errors.As(err, &mismatch):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrInvalidSnapshot), errors.Is(err, domain.ErrOrphanReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnknownCollection):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *daemonServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"version": Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *daemonServer) handleExport(w http.ResponseWriter, r *http.Request) {
	state, err := s.store.Load(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	now := time.Now()
	snap := state.Snapshot
	snap.ExportDate = snapshot.FormatTimestamp(now)
	snap.AppVersion = Version
	snap.AppName = snapshot.DefaultAppName

	canonical, _ := strconv.ParseBool(r.URL.Query().Get("canonical"))
	data, err := snapshot.Encode(snap, canonical)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", snapshot.BackupFilename(now)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *daemonServer) handleImport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mode := q.Get("mode")
	if mode == "" {
		mode = importer.ModeAuto
	}
	if err := domain.ValidateImportMode(mode); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	dryRun, _ := strconv.ParseBool(q.Get("dry_run"))
	recompute, _ := strconv.ParseBool(q.Get("recompute_totals"))

	policyName := q.Get("orphans")
	if policyName == "" {
		policyName = s.cfg.Orphans
	}
	policy, err := merge.ParseOrphanPolicy(policyName)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	rate, err := s.cfg.VAT()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBackupBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	imported, err := snapshot.Parse(data)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}

	source := q.Get("source")
	if source == "" {
		source = "http"
	}
	report, err := importer.Run(r.Context(), s.store, imported, importer.Options{
		Mode:            mode,
		DryRun:          dryRun,
		Orphans:         policy,
		RecomputeTotals: recompute,
		VATRate:         rate,
		Source:          source,
		Logger:          s.logger,
		Hooks:           s.hooks,
	})
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}

	resp := struct {
		*importer.Report
		Summary string `json:"summary,omitempty"`
	}{Report: report}
	if report.Stats != nil {
		resp.Summary = report.Stats.Summary()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *daemonServer) handleCollectionGet(w http.ResponseWriter, r *http.Request) {
	col, err := domain.ParseCollection(r.PathValue("name"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}

	data, etag, err := s.store.Collection(r.Context(), col)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", strconv.FormatInt(etag, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *daemonServer) handleCollectionPut(w http.ResponseWriter, r *http.Request) {
	col, err := domain.ParseCollection(r.PathValue("name"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}

	var ifMatch int64
	if h := strings.Trim(r.Header.Get("If-Match"), `"`); h != "" {
		ifMatch, err = strconv.ParseInt(h, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid If-Match header %q", h))
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBackupBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	// Round-trip through the record codec so stored data always uses the
	// canonical member names.
	var tmp snapshot.Snapshot
	if err := snapshot.DecodeCollection(&tmp, col, body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	data, err := snapshot.EncodeCollection(&tmp, col)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	etag, err := s.store.SaveCollection(r.Context(), col, data, ifMatch)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}

	w.Header().Set("ETag", strconv.FormatInt(etag, 10))
	s.writeJSON(w, http.StatusOK, map[string]any{
		"collection": col,
		"etag":       etag,
	})
}

func (s *daemonServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	entries, err := s.store.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}
