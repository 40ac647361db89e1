// Package api serves the score API that devices replay their offline actions against.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Guizzs26/scorebook-sync/internal/models"
	"github.com/Guizzs26/scorebook-sync/pkg/metrics"
)

// MatchStore is the document store behind the API.
type MatchStore interface {
	Ping(ctx context.Context) error
	CreateMatch(ctx context.Context, fields models.Document) (models.Document, error)
	GetMatch(ctx context.Context, id string) (models.Document, error)
	UpdateMatch(ctx context.Context, id string, partial models.Document) (models.Document, error)
	AddBall(ctx context.Context, matchID string, fields models.Document) (models.Document, error)
	ListBalls(ctx context.Context, matchID string) ([]models.Document, error)
}

// EventPublisher receives a MatchEvent after every successful mutation.
type EventPublisher interface {
	PublishMatchEvent(ctx context.Context, ev models.MatchEvent) error
}

const publishTimeout = 3 * time.Second

type Server struct {
	addr   string
	http   *http.Server
	store  MatchStore
	logger *slog.Logger

	pubMu     sync.RWMutex
	publisher EventPublisher
}

func NewServer(addr string, store MatchStore, logger *slog.Logger) *Server {
	s := &Server{
		addr:   addr,
		store:  store,
		logger: logger,
	}
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// SetPublisher swaps the event publisher; nil disables notifications.
func (s *Server) SetPublisher(p EventPublisher) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.publisher = p
}

// Start begins listening (non-blocking).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server", "err", err)
		}
	}()
	s.logger.Info("Score API listening", "addr", ln.Addr().String())
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /matches", s.handleCreateMatch)
	mux.HandleFunc("GET /matches/{id}", s.handleGetMatch)
	mux.HandleFunc("PATCH /matches/{id}", s.handleUpdateMatch)
	mux.HandleFunc("POST /matches/{id}/balls", s.handleAddBall)
	mux.HandleFunc("GET /matches/{id}/balls", s.handleListBalls)

	return http.MaxBytesHandler(metricsMiddleware(mux), 1<<20)
}

type statusCapture struct {
	http.ResponseWriter
	code int
}

func (sc *statusCapture) WriteHeader(code int) {
	sc.code = code
	sc.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware observes latency by route pattern and status class.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sc := &statusCapture{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sc, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		class := strconv.Itoa(sc.code/100) + "xx"
		metrics.APIRequestDuration.WithLabelValues(route, class).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "detail": "store unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	fields, ok := decodeDocument(w, r)
	if !ok {
		return
	}
	doc, err := s.store.CreateMatch(r.Context(), fields)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.publish(r.Context(), doc.ID(), models.EventMatchCreated, doc)
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetMatch(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleUpdateMatch(w http.ResponseWriter, r *http.Request) {
	partial, ok := decodeDocument(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	doc, err := s.store.UpdateMatch(r.Context(), id, partial)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.publish(r.Context(), id, models.EventMatchUpdated, partial)
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleAddBall(w http.ResponseWriter, r *http.Request) {
	fields, ok := decodeDocument(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	ball, err := s.store.AddBall(r.Context(), id, fields)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.publish(r.Context(), id, models.EventBallAdded, ball)
	writeJSON(w, http.StatusCreated, ball)
}

func (s *Server) handleListBalls(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetMatch(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	balls, err := s.store.ListBalls(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balls": balls})
}

// decodeDocument reads a JSON object body. Numbers stay json.Number so
// versions and scores round-trip exactly.
func decodeDocument(w http.ResponseWriter, r *http.Request) (models.Document, bool) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var doc models.Document
	if err := dec.Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON object: "+err.Error())
		return nil, false
	}
	if doc == nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "body must be a JSON object")
		return nil, false
	}
	return doc, true
}

// publish emits a notification. Failures are logged and never fail the request.
func (s *Server) publish(ctx context.Context, matchID, eventType string, data models.Document) {
	s.pubMu.RLock()
	p := s.publisher
	s.pubMu.RUnlock()

	if p == nil {
		metrics.EventsPublished.WithLabelValues(eventType, "skipped").Inc()
		return
	}

	ev := models.MatchEvent{
		EventID:   uuid.NewString(),
		MatchID:   matchID,
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.PublishMatchEvent(ctx, ev); err != nil {
		s.logger.Warn("Failed to publish match event", "match_id", matchID, "type", eventType, "error", err)
		metrics.EventsPublished.WithLabelValues(eventType, "error").Inc()
		return
	}
	metrics.EventsPublished.WithLabelValues(eventType, "sent").Inc()
}
