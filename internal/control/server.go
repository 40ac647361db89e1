// Package control is the device-local HTTP surface behind the "sync now" and
// "clear offline data" buttons. It listens on loopback only.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Guizzs26/scorebook-sync/internal/models"
	"github.com/Guizzs26/scorebook-sync/internal/offline"
	"github.com/Guizzs26/scorebook-sync/internal/service"
)

type Server struct {
	manager *offline.Manager
	syncer  *service.Synchronizer
	probe   service.Probe
	logger  *slog.Logger
}

func NewServer(m *offline.Manager, s *service.Synchronizer, p service.Probe, logger *slog.Logger) *Server {
	return &Server{manager: m, syncer: s, probe: p, logger: logger}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sync", s.handleSync)
	mux.HandleFunc("POST /clear", s.handleClear)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /conflicts", s.handleConflicts)
	mux.HandleFunc("POST /conflicts/{matchId}/resolve", s.handleResolve)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// ListenAndServe blocks until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("Control agent listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write json response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.syncer.SyncPending(r.Context())
	switch {
	case errors.Is(err, service.ErrSyncInProgress):
		writeError(w, http.StatusConflict, "sync_in_progress", err.Error())
	case errors.Is(err, offline.ErrCorruptState):
		s.logger.Error("Pending log unreadable", "error", err)
		writeError(w, http.StatusInternalServerError, "corrupt_state", err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.ClearAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.manager.Status(r.Context(), s.probe.Probe(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	recs, err := s.manager.Conflicts().List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if recs == nil {
		recs = []models.ConflictRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conflicts": recs})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resolution models.Resolution `json:"resolution"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Resolution.Valid() {
		writeError(w, http.StatusBadRequest, "bad_request", "resolution must be one of ManualRequired, KeepLocal, KeepServer, Discard")
		return
	}
	n, err := s.manager.Conflicts().Resolve(r.Context(), r.PathValue("matchId"), req.Resolution)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"resolved": n})
}
