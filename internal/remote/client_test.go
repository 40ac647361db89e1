package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Guizzs26/scorebook-sync/internal/models"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second)
}

func TestClient_AddBall(t *testing.T) {
	var gotPath, gotBody string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"srv-ball-1"}`))
	})

	id, err := c.AddBall(context.Background(), "M1", json.RawMessage(`{"runs":4}`))
	if err != nil {
		t.Fatalf("add ball: %v", err)
	}
	if id != "srv-ball-1" {
		t.Errorf("id: got %q", id)
	}
	if gotPath != "POST /matches/M1/balls" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotBody != `{"runs":4}` {
		t.Errorf("body: got %q", gotBody)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantConflict bool
		wantNotFound bool
		wantCode     string
	}{
		{"version mismatch", http.StatusConflict, `{"error":{"code":"version_mismatch","message":"stale version 3"}}`, true, false, CodeVersionMismatch},
		{"bare 409", http.StatusConflict, `nope`, true, false, CodeConflict},
		{"not found", http.StatusNotFound, `{"error":{"code":"not_found","message":"no match"}}`, false, true, CodeNotFound},
		{"server error mentioning version", http.StatusInternalServerError, `{"error":{"code":"internal","message":"unsupported version of driver"}}`, false, false, CodeInternal},
		{"bad request", http.StatusBadRequest, ``, false, false, CodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			err := c.UpdateMatch(context.Background(), "M1", json.RawMessage(`{"totalRuns":10}`))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, models.ErrConflict); got != tt.wantConflict {
				t.Errorf("conflict: got %v, want %v (%v)", got, tt.wantConflict, err)
			}
			if got := errors.Is(err, models.ErrNotFound); got != tt.wantNotFound {
				t.Errorf("not found: got %v, want %v", got, tt.wantNotFound)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("not an APIError: %T", err)
			}
			if apiErr.Code != tt.wantCode || apiErr.Status != tt.status {
				t.Errorf("api error: %+v", apiErr)
			}
		})
	}
}

func TestClient_GetMatch(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"M1","totalRuns":120,"version":4}`))
	})
	doc, err := c.GetMatch(context.Background(), "M1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.ID() != "M1" || doc["totalRuns"] != 120.0 {
		t.Errorf("doc: %v", doc)
	}
}

func TestHTTPProbe(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	up := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("probe path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"ok"}`))
	})
	if !NewHTTPProbe(up, logger).Probe(context.Background()) {
		t.Error("healthy server reported unreachable")
	}

	down := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if NewHTTPProbe(down, logger).Probe(context.Background()) {
		t.Error("503 reported reachable")
	}

	gone := New("http://127.0.0.1:1", time.Second)
	if NewHTTPProbe(gone, logger).Probe(context.Background()) {
		t.Error("closed port reported reachable")
	}
}
