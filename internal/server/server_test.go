package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pamdev00/price/internal/config"
	"github.com/pamdev00/price/internal/store"
)

func setupServer(t *testing.T, writeLimit int) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.BackupDir = t.TempDir()
	cfg.WriteLimit = writeLimit

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(cfg, store.NewMemoryStore(0), store.JSON{}, logger)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestRoutes(t *testing.T) {
	ts := setupServer(t, 0)

	tests := []struct {
		method, path, body string
		want               int
	}{
		{"GET", "/health", "", http.StatusOK},
		{"GET", "/api/units", "", http.StatusOK},
		{"POST", "/api/products", `{"name":"Milk","price":2,"quantity":1000}`, http.StatusCreated},
		{"GET", "/api/products", "", http.StatusOK},
		{"PUT", "/api/sort", `{"mode":"recency"}`, http.StatusOK},
		{"POST", "/api/sessions", `{"name":"Dairy"}`, http.StatusCreated},
		{"GET", "/api/sessions", "", http.StatusOK},
		{"GET", "/api/sessions/0", "", http.StatusOK},
		{"GET", "/api/templates?q=mi", "", http.StatusOK},
		{"GET", "/api/prompts", "", http.StatusOK},
		{"GET", "/api/undo", "", http.StatusOK},
		{"POST", "/api/undo/nope", "", http.StatusGone},
		{"GET", "/api/storage", "", http.StatusOK},
		{"GET", "/api/backups", "", http.StatusOK},
		{"PATCH", "/api/products", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if resp.Header.Get("X-Request-ID") == "" {
				t.Error("missing request id header")
			}
		})
	}
}

func TestWriteLimit(t *testing.T) {
	ts := setupServer(t, 1)

	post := func() int {
		resp, err := http.Post(ts.URL+"/api/products", "application/json", strings.NewReader(`{"name":"a","price":1,"quantity":1}`))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}
	if got := post(); got != http.StatusCreated {
		t.Fatalf("first write = %d", got)
	}
	if got := post(); got != http.StatusTooManyRequests {
		t.Errorf("second write = %d, want 429", got)
	}

	resp, err := http.Get(ts.URL + "/api/products")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("read after limit = %d", resp.StatusCode)
	}
}
