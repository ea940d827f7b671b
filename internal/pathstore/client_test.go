package pathstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeStore is an in-memory stand-in for the pathstore /kv endpoints.
type fakeStore struct {
	mu    sync.Mutex
	nodes map[string]json.RawMessage
	auth  []string
}

func newFakeStore(t *testing.T) (*fakeStore, *Client) {
	t.Helper()
	fs := &fakeStore{nodes: make(map[string]json.RawMessage)}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/", "ps-key")
	t.Cleanup(c.Close)
	return fs, c
}

func (fs *fakeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.auth = append(fs.auth, r.Header.Get("Authorization"))

	key := strings.TrimPrefix(r.URL.EscapedPath(), "/kv/")
	switch {
	case r.Method == http.MethodPut:
		var req struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fs.nodes[key] = req.Value
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodGet && strings.HasSuffix(key, "/*"):
		prefix := strings.TrimSuffix(key, "*")
		var nodes []map[string]any
		for k, v := range fs.nodes {
			if strings.HasPrefix(k, prefix) {
				nodes = append(nodes, map[string]any{"key_path": k, "value": v})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"nodes": nodes})
	case r.Method == http.MethodGet:
		v, ok := fs.nodes[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"key_path": key, "value": v})
	case r.Method == http.MethodDelete:
		if _, ok := fs.nodes[key]; !ok {
			http.NotFound(w, r)
			return
		}
		delete(fs.nodes, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestClient_SummaryLifecycle(t *testing.T) {
	fs, c := newFakeStore(t)
	ctx := context.Background()

	s := Summary{
		DocID:     "doc1",
		UserID:    "alice",
		Filename:  "notes.txt",
		Style:     "general",
		Chunks:    3,
		Calls:     4,
		Text:      "A short summary.",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := c.PutSummary(ctx, s); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := c.PutSummary(ctx, Summary{DocID: "doc2", UserID: "alice", Text: "Second."}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	if err := c.PutSummary(ctx, Summary{DocID: "doc3", UserID: "bob", Text: "Other user."}); err != nil {
		t.Fatalf("put other user: %v", err)
	}

	got, err := c.GetSummary(ctx, "alice", "doc1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Text != s.Text || got.Chunks != 3 || !got.CreatedAt.Equal(s.CreatedAt) {
		t.Fatalf("get = %+v", got)
	}

	list, err := c.ListSummaries(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list returned %d summaries, want 2", len(list))
	}

	if err := c.DeleteSummary(ctx, "alice", "doc1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := c.DeleteSummary(ctx, "alice", "doc1"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	got, err = c.GetSummary(ctx, "alice", "doc1")
	if err != nil || got != nil {
		t.Fatalf("get after delete = %+v, %v", got, err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, a := range fs.auth {
		if a != "Bearer ps-key" {
			t.Fatalf("authorization header = %q", a)
		}
	}
}

func TestClient_PutRequiresIDs(t *testing.T) {
	_, c := newFakeStore(t)
	if err := c.PutSummary(context.Background(), Summary{UserID: "alice"}); err == nil {
		t.Fatal("expected error without doc_id")
	}
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "k")

	_, err := c.ListSummaries(context.Background(), "alice", 0)
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Fatalf("list error = %v, want status 500", err)
	}
	if err := c.DeleteSummary(context.Background(), "alice", "doc"); err == nil {
		t.Fatal("expected delete error")
	}
}
