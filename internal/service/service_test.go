package service

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kotlinhustle/power-split/internal/calculator"
	"github.com/kotlinhustle/power-split/internal/models"
	"github.com/kotlinhustle/power-split/internal/report"
	"github.com/kotlinhustle/power-split/internal/state"
	"github.com/kotlinhustle/power-split/internal/storage"
	"github.com/kotlinhustle/power-split/internal/storage/memory"
	"github.com/kotlinhustle/power-split/internal/storage/sqlite"
	"github.com/kotlinhustle/power-split/internal/syncer"
)

// setupTestServer serves the API over a fresh SQLite store. remote may be nil.
func setupTestServer(t *testing.T, remote storage.RemoteStore) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	c, err := state.Open(context.Background(), state.Options{
		Local:  store,
		Remote: remote,
		Sync:   syncer.Options{Debounce: 10 * time.Millisecond},
	})
	if err != nil {
		store.Close()
		t.Fatalf("failed to open state: %v", err)
	}

	server := httptest.NewServer(New(c, report.Options{}).Handler())
	t.Cleanup(func() {
		server.Close()
		c.Close(context.Background())
		store.Close()
	})
	return server
}

func do(t *testing.T, server *httptest.Server, method, path, body string, headers ...string) (*http.Response, []byte) {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, server.URL+path, rd)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp, data
}

func expectStatus(t *testing.T, resp *http.Response, body []byte, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected status %d, got %d (%s)", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body)
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

func TestGetState(t *testing.T) {
	server := setupTestServer(t, nil)

	resp, body := do(t, server, http.MethodGet, "/api/state", "")
	expectStatus(t, resp, body, http.StatusOK)

	tag := resp.Header.Get("ETag")
	if tag != etag(models.Fingerprint(models.Default())) {
		t.Errorf("unexpected ETag %q", tag)
	}
	if got := models.Decode(body); got.Policy != models.PolicyEqual || len(got.SubMeters) != 2 {
		t.Errorf("expected default state, got %+v", got)
	}

	resp, body = do(t, server, http.MethodGet, "/api/state", "", "If-None-Match", tag)
	expectStatus(t, resp, body, http.StatusNotModified)
}

func TestComputeOverHTTP(t *testing.T) {
	server := setupTestServer(t, nil)

	steps := []struct {
		method, path, body string
	}{
		{http.MethodPut, "/api/tariff", `{"day": 5, "night": 3}`},
		{http.MethodPut, "/api/aggregate/day", `{"prev": "0", "curr": "100"}`},
		{http.MethodPut, "/api/aggregate/night", `{"prev": "0", "curr": "50"}`},
		{http.MethodPatch, "/api/meters/b", `{"prev": "0", "curr": "40"}`},
		{http.MethodPatch, "/api/meters/c", `{"prev": "0", "curr": "60"}`},
	}
	for _, step := range steps {
		resp, body := do(t, server, step.method, step.path, step.body)
		expectStatus(t, resp, body, http.StatusOK)
	}

	resp, body := do(t, server, http.MethodGet, "/api/result", "")
	expectStatus(t, resp, body, http.StatusOK)

	var res calculator.Result
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if !approx(res.Common, 50) {
		t.Errorf("expected common 50, got %v", res.Common)
	}
	if !approx(res.Rooms[0].Cost, 140.83) {
		t.Errorf("expected room 1 cost 140.83, got %v", res.Rooms[0].Cost)
	}
	if !approx(res.Totals.Cost, 650) {
		t.Errorf("expected total cost 650, got %v", res.Totals.Cost)
	}

	resp, body = do(t, server, http.MethodGet, "/api/report", "")
	expectStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(string(body), "Total: 150.00 kWh = 650.00 ₽") {
		t.Errorf("report is missing the total:\n%s", body)
	}
}

func TestHugeInputsStillEncode(t *testing.T) {
	server := setupTestServer(t, nil)

	steps := []struct {
		method, path, body string
	}{
		{http.MethodPut, "/api/tariff", `{"day": 1e308, "night": 1e15}`},
		{http.MethodPut, "/api/aggregate/day", `{"prev": "-1e308", "curr": "1e308"}`},
		{http.MethodPut, "/api/aggregate/night", `{"prev": "-1e15", "curr": "1e15"}`},
		{http.MethodPatch, "/api/meters/b", `{"prev": "-1e308", "curr": "1e308"}`},
	}
	for _, step := range steps {
		resp, body := do(t, server, step.method, step.path, step.body)
		expectStatus(t, resp, body, http.StatusOK)
	}

	resp, body := do(t, server, http.MethodGet, "/api/result", "")
	expectStatus(t, resp, body, http.StatusOK)

	var res calculator.Result
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("failed to decode result: %v (%q)", err, body)
	}
	if math.IsInf(res.Totals.Cost, 0) || math.IsNaN(res.Totals.Cost) || res.Totals.Cost < 0 {
		t.Errorf("expected a finite total cost, got %v", res.Totals.Cost)
	}
}

func TestBadRequests(t *testing.T) {
	server := setupTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown policy", http.MethodPut, "/api/policy", `{"policy": "lottery"}`, http.StatusBadRequest},
		{"malformed tariff", http.MethodPut, "/api/tariff", `not json`, http.StatusBadRequest},
		{"unknown tariff field", http.MethodPut, "/api/tariff", `{"evening": 1}`, http.StatusBadRequest},
		{"state not an object", http.MethodPut, "/api/state", `[1, 2]`, http.StatusBadRequest},
		{"unknown rate", http.MethodPut, "/api/aggregate/evening", `{"curr": "1"}`, http.StatusBadRequest},
		{"group without rooms", http.MethodPost, "/api/groups", `{"name": "Ghosts", "roomIndexes": [9]}`, http.StatusBadRequest},
		{"unknown meter", http.MethodPatch, "/api/meters/zzz", `{"name": "x"}`, http.StatusNotFound},
		{"remove unknown meter", http.MethodDelete, "/api/meters/zzz", ``, http.StatusNotFound},
		{"unknown group", http.MethodPatch, "/api/groups/zzz", `{"name": "x"}`, http.StatusNotFound},
		{"remove unknown group", http.MethodDelete, "/api/groups/zzz", ``, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, server, tt.method, tt.path, tt.body)
			expectStatus(t, resp, body, tt.want)

			var e errorResponse
			if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
				t.Errorf("expected an error body, got %s", body)
			}
		})
	}

	// None of the rejected edits may have changed the state.
	resp, body := do(t, server, http.MethodGet, "/api/state", "")
	expectStatus(t, resp, body, http.StatusOK)
	if got := models.Decode(body); models.Fingerprint(got) != models.Fingerprint(models.Default()) {
		t.Errorf("state changed after rejected edits: %+v", got)
	}
}

func TestMeters(t *testing.T) {
	server := setupTestServer(t, nil)

	resp, body := do(t, server, http.MethodPost, "/api/meters", `{"name": "Kitchen", "curr": "7", "rooms": [3, 3]}`)
	expectStatus(t, resp, body, http.StatusCreated)

	var created meterView
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("failed to decode meter: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected an ID for the new meter")
	}
	if created.Name != "Kitchen" || created.Curr != "7" || len(created.Rooms) != 1 || created.Rooms[0] != 3 {
		t.Errorf("unexpected meter %+v", created)
	}

	resp, body = do(t, server, http.MethodPatch, "/api/meters/"+created.ID, `{"name": "Hall", "rooms": [0, 1]}`)
	expectStatus(t, resp, body, http.StatusOK)
	var updated meterView
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatalf("failed to decode meter: %v", err)
	}
	if updated.Name != "Hall" || updated.Curr != "7" || len(updated.Rooms) != 2 {
		t.Errorf("unexpected meter after update %+v", updated)
	}

	resp, body = do(t, server, http.MethodDelete, "/api/meters/"+created.ID, "")
	expectStatus(t, resp, body, http.StatusNoContent)

	resp, body = do(t, server, http.MethodGet, "/api/state", "")
	expectStatus(t, resp, body, http.StatusOK)
	if _, ok := models.Decode(body).SubMeter(created.ID); ok {
		t.Error("expected meter to be removed")
	}
}

func TestGroups(t *testing.T) {
	server := setupTestServer(t, nil)

	resp, body := do(t, server, http.MethodPost, "/api/groups", `{"name": "Ivanovs", "roomIndexes": [0, 1, 7]}`)
	expectStatus(t, resp, body, http.StatusCreated)

	var g models.Group
	if err := json.Unmarshal(body, &g); err != nil {
		t.Fatalf("failed to decode group: %v", err)
	}
	if g.ID == "" || g.Name != "Ivanovs" || len(g.RoomIndexes) != 2 {
		t.Errorf("unexpected group %+v", g)
	}

	resp, body = do(t, server, http.MethodPatch, "/api/groups/"+g.ID, `{"name": "Petrovs"}`)
	expectStatus(t, resp, body, http.StatusOK)

	resp, body = do(t, server, http.MethodGet, "/api/result", "")
	expectStatus(t, resp, body, http.StatusOK)
	var res calculator.Result
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if len(res.Groups) != 1 || res.Groups[0].Name != "Petrovs" || res.Groups[0].People != 2 {
		t.Errorf("unexpected groups %+v", res.Groups)
	}

	resp, body = do(t, server, http.MethodPatch, "/api/groups/"+g.ID, `{"roomIndexes": [8]}`)
	expectStatus(t, resp, body, http.StatusBadRequest)

	resp, body = do(t, server, http.MethodDelete, "/api/groups/"+g.ID, "")
	expectStatus(t, resp, body, http.StatusNoContent)
}

func TestPutState(t *testing.T) {
	server := setupTestServer(t, nil)

	resp, body := do(t, server, http.MethodGet, "/api/state", "")
	expectStatus(t, resp, body, http.StatusOK)
	tag := resp.Header.Get("ETag")

	legacy := `{"tariffDay": "5", "distributionMode": "proportional", "meterB": {"prev": "1", "curr": "2"}}`

	resp, body = do(t, server, http.MethodPut, "/api/state", legacy, "If-Match", `"stale"`)
	expectStatus(t, resp, body, http.StatusPreconditionFailed)

	resp, body = do(t, server, http.MethodPut, "/api/state", legacy, "If-Match", tag)
	expectStatus(t, resp, body, http.StatusOK)

	got := models.Decode(body)
	if got.Policy != models.PolicyProportional || got.Tariff.Day != 5 || got.SubMeters[0].Reading.Current != "2" {
		t.Errorf("legacy blob not adopted: %+v", got)
	}
	if resp.Header.Get("ETag") == tag {
		t.Error("expected a new ETag after replacing the state")
	}
}

func TestResetAndPolicy(t *testing.T) {
	server := setupTestServer(t, nil)

	resp, body := do(t, server, http.MethodPut, "/api/policy", `{"policy": "occupancy"}`)
	expectStatus(t, resp, body, http.StatusOK)
	resp, body = do(t, server, http.MethodPut, "/api/occupancy", `{"occupancy": [2, 0, 1, 1]}`)
	expectStatus(t, resp, body, http.StatusOK)
	if got := models.Decode(body); got.Policy != models.PolicyOccupancy || got.Occupancy[0] != 2 {
		t.Errorf("unexpected state %+v", got)
	}

	resp, body = do(t, server, http.MethodPost, "/api/reset", "")
	expectStatus(t, resp, body, http.StatusOK)
	if got := models.Decode(body); models.Fingerprint(got) != models.Fingerprint(models.Default()) {
		t.Errorf("expected defaults after reset, got %+v", got)
	}
}

func TestSyncDisabled(t *testing.T) {
	server := setupTestServer(t, nil)

	resp, body := do(t, server, http.MethodGet, "/api/sync", "")
	expectStatus(t, resp, body, http.StatusOK)
	if strings.TrimSpace(string(body)) != `{"enabled":false}` {
		t.Errorf("unexpected sync body %s", body)
	}

	resp, body = do(t, server, http.MethodPost, "/api/sync/retry", "")
	expectStatus(t, resp, body, http.StatusConflict)
}

func TestSyncEnabled(t *testing.T) {
	remote := memory.NewRemoteStore()
	server := setupTestServer(t, remote)

	resp, body := do(t, server, http.MethodGet, "/api/sync", "")
	expectStatus(t, resp, body, http.StatusOK)

	var got struct {
		Enabled bool          `json:"enabled"`
		Status  syncer.Status `json:"status"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("failed to decode sync state: %v", err)
	}
	if !got.Enabled || got.Status != syncer.StatusSynced {
		t.Errorf("unexpected sync state %s", body)
	}
	if saves := remote.Saves(); len(saves) != 1 || !saves[0].InsertOnly {
		t.Errorf("expected one insert-only save, got %+v", saves)
	}

	resp, body = do(t, server, http.MethodPost, "/api/sync/retry", "")
	expectStatus(t, resp, body, http.StatusOK)
	if strings.TrimSpace(string(body)) != `{"retried":false}` {
		t.Errorf("unexpected retry body %s", body)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	server := setupTestServer(t, nil)

	resp, body := do(t, server, http.MethodGet, "/healthz", "")
	expectStatus(t, resp, body, http.StatusOK)
	if string(body) != "ok" {
		t.Errorf("unexpected health body %q", body)
	}

	do(t, server, http.MethodGet, "/api/result", "")
	resp, body = do(t, server, http.MethodGet, "/metrics", "")
	expectStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(string(body), "powersplit_computations_total") {
		t.Error("expected computation counter in metrics output")
	}
}
