package postgrest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotlinhustle/power-split/internal/storage"
)

// fakeServer is a minimal PostgREST table keyed by "key".
type fakeServer struct {
	mu      sync.Mutex
	rows    map[string]json.RawMessage
	prefers []string
	fail    int
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("apikey") != "secret" || r.Header.Get("Authorization") != "Bearer secret" {
		http.Error(w, `{"message":"no key"}`, http.StatusUnauthorized)
		return
	}
	if f.fail != 0 {
		http.Error(w, `{"message":"boom"}`, f.fail)
		return
	}
	if r.URL.Path != "/rest/v1/apartments" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		key := r.URL.Query().Get("key")[len("eq."):]
		out := []map[string]any{}
		if data, ok := f.rows[key]; ok {
			out = append(out, map[string]any{"key": key, "data": data, "updated_at": "2024-05-01T10:00:00Z"})
		}
		json.NewEncoder(w).Encode(out)
	case http.MethodPost:
		f.prefers = append(f.prefers, r.Header.Get("Prefer"))
		body, _ := io.ReadAll(r.Body)
		var rows []row
		if err := json.Unmarshal(body, &rows); err != nil || len(rows) != 1 {
			http.Error(w, `{"message":"bad body"}`, http.StatusBadRequest)
			return
		}
		if _, exists := f.rows[rows[0].Key]; exists && r.Header.Get("Prefer") == "return=minimal" {
			http.Error(w, `{"message":"duplicate key"}`, http.StatusConflict)
			return
		}
		f.rows[rows[0].Key] = rows[0].Data
		w.WriteHeader(http.StatusCreated)
	}
}

func (f *fakeServer) snapshot() ([]string, map[string]json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := make(map[string]json.RawMessage, len(f.rows))
	for k, v := range f.rows {
		rows[k] = v
	}
	return append([]string(nil), f.prefers...), rows
}

func newTestStore(t *testing.T) (*Store, *fakeServer) {
	t.Helper()
	fake := &fakeServer{rows: map[string]json.RawMessage{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := New(Config{URL: srv.URL + "/", APIKey: "secret"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, fake
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	assert.Error(t, err)
	_, err = New(Config{URL: "http://x"})
	assert.Error(t, err)
}

func TestLoadMissing(t *testing.T) {
	store, _ := newTestStore(t)

	rec, err := store.Load(context.Background(), "power-split")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSaveAndLoad(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "power-split", []byte(`{"tariffDay":5}`), storage.SaveOptions{}))

	rec, err := store.Load(ctx, "power-split")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "power-split", rec.Key)
	assert.JSONEq(t, `{"tariffDay":5}`, string(rec.Data))
	assert.Equal(t, 2024, rec.UpdatedAt.Year())
	prefers, _ := fake.snapshot()
	assert.Equal(t, []string{"resolution=merge-duplicates,return=minimal"}, prefers)
}

func TestInsertOnlyConflict(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "k", []byte(`{}`), storage.SaveOptions{InsertOnly: true}))
	err := store.Save(ctx, "k", []byte(`{"a":1}`), storage.SaveOptions{InsertOnly: true})
	assert.ErrorIs(t, err, storage.ErrConflict)
	prefers, _ := fake.snapshot()
	assert.Equal(t, []string{"return=minimal", "return=minimal"}, prefers)

	// An upsert still goes through.
	require.NoError(t, store.Save(ctx, "k", []byte(`{"a":2}`), storage.SaveOptions{}))
	_, rows := fake.snapshot()
	assert.JSONEq(t, `{"a":2}`, string(rows["k"]))
}

func TestErrorStatus(t *testing.T) {
	store, fake := newTestStore(t)
	fake.mu.Lock()
	fake.fail = http.StatusServiceUnavailable
	fake.mu.Unlock()

	_, err := store.Load(context.Background(), "k")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)
	assert.Contains(t, se.Body, "boom")

	err = store.Save(context.Background(), "k", []byte(`{}`), storage.SaveOptions{})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "save", se.Op)
}
