package control

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Guizzs26/scorebook-sync/internal/kv"
	"github.com/Guizzs26/scorebook-sync/internal/models"
	"github.com/Guizzs26/scorebook-sync/internal/offline"
	"github.com/Guizzs26/scorebook-sync/internal/remote"
	"github.com/Guizzs26/scorebook-sync/internal/service"
)

// conflictingRemote rejects every match update and accepts everything else.
type conflictingRemote struct{}

func (conflictingRemote) AddBall(context.Context, string, json.RawMessage) (string, error) {
	return "b1", nil
}

func (conflictingRemote) UpdateMatch(context.Context, string, json.RawMessage) error {
	return &remote.APIError{Status: http.StatusConflict, Code: remote.CodeVersionMismatch}
}

func (conflictingRemote) CreateMatch(context.Context, json.RawMessage) (string, error) {
	return "m1", nil
}

func newTestAgent(t *testing.T) (*offline.Manager, *httptest.Server) {
	t.Helper()
	st, err := kv.NewMemoryBadgerStore()
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := offline.NewManager(offline.NewActionStore(st), offline.NewSnapshotCache(st), offline.NewConflictLedger(st), logger)
	probe := remote.StaticProbe(true)
	syncer := service.NewSynchronizer(m.Actions(), m.Conflicts(), conflictingRemote{}, probe, logger)

	ts := httptest.NewServer(NewServer(m, syncer, probe, logger).Handler())
	t.Cleanup(ts.Close)
	return m, ts
}

func call(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, _ := http.NewRequest(method, url, bytes.NewBufferString(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestSyncNowAndStatus(t *testing.T) {
	m, ts := newTestAgent(t)
	ctx := context.Background()
	_, _ = m.RecordBallAdded(ctx, "M1", models.Document{"runs": 4})
	_, _ = m.RecordMatchUpdated(ctx, "M1", models.Document{"version": 3})

	var res models.SyncResult
	if code := call(t, http.MethodPost, ts.URL+"/sync", "", &res); code != http.StatusOK {
		t.Fatalf("sync: got %d", code)
	}
	if res != (models.SyncResult{SuccessCount: 1, ConflictCount: 1}) {
		t.Fatalf("result: %+v", res)
	}

	var st models.OfflineStatus
	if code := call(t, http.MethodGet, ts.URL+"/status", "", &st); code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if !st.IsOnline || st.PendingActionCount != 1 || st.ConflictCount != 1 || st.LastSyncMillis == 0 {
		t.Fatalf("status: %+v", st)
	}
}

func TestConflictsAndResolve(t *testing.T) {
	m, ts := newTestAgent(t)
	_, _ = m.RecordMatchUpdated(context.Background(), "M1", models.Document{"version": 3})
	call(t, http.MethodPost, ts.URL+"/sync", "", nil)

	var list struct {
		Conflicts []models.ConflictRecord `json:"conflicts"`
	}
	call(t, http.MethodGet, ts.URL+"/conflicts", "", &list)
	if len(list.Conflicts) != 1 || list.Conflicts[0].TargetMatchID != "M1" {
		t.Fatalf("conflicts: %+v", list.Conflicts)
	}

	if code := call(t, http.MethodPost, ts.URL+"/conflicts/M1/resolve", `{"resolution":"Merge"}`, nil); code != http.StatusBadRequest {
		t.Fatalf("invalid resolution: got %d", code)
	}

	var resolved map[string]int
	if code := call(t, http.MethodPost, ts.URL+"/conflicts/M1/resolve", `{"resolution":"KeepServer"}`, &resolved); code != http.StatusOK {
		t.Fatalf("resolve: got %d", code)
	}
	if resolved["resolved"] != 1 {
		t.Fatalf("resolved: %v", resolved)
	}

	var st models.OfflineStatus
	call(t, http.MethodGet, ts.URL+"/status", "", &st)
	if st.ConflictCount != 0 {
		t.Errorf("unresolved conflicts after resolve: %d", st.ConflictCount)
	}
}

func TestClearOfflineData(t *testing.T) {
	m, ts := newTestAgent(t)
	ctx := context.Background()
	_, _ = m.RecordBallAdded(ctx, "M1", models.Document{"runs": 1})

	if code := call(t, http.MethodPost, ts.URL+"/clear", "", nil); code != http.StatusNoContent {
		t.Fatalf("clear: got %d", code)
	}
	pending, err := m.Actions().ListPending(ctx)
	if err != nil || len(pending) != 0 {
		t.Fatalf("pending after clear: %v, %v", pending, err)
	}
	balls, _ := m.Snapshots().GetBalls(ctx, "M1")
	if len(balls) != 0 {
		t.Errorf("balls after clear: %v", balls)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestAgent(t)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte("go_goroutines")) {
		t.Fatalf("metrics: %d", resp.StatusCode)
	}
}
