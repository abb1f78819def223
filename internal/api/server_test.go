package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/dwell-core/internal/infrastructure/config"
	"github.com/nerrad567/dwell-core/internal/infrastructure/logging"
	"github.com/nerrad567/dwell-core/internal/tracking"
)

// newTestServer builds a server with an in-memory registry and a router
// ready for httptest requests. No listener is started.
func newTestServer(t *testing.T) (*Server, *tracking.Registry, http.Handler) {
	t.Helper()

	logger := logging.New(config.LoggingConfig{Level: "error", Format: "json"}, "test")
	registry := tracking.NewRegistry(newMemStore(), nil, nil)

	srv, err := New(Deps{
		Config:   config.APIConfig{Host: "127.0.0.1", Port: 8080},
		WS:       config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Logger:   logger,
		Registry: registry,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	srv.hub = NewHub(srv.wsCfg, logger)

	return srv, registry, srv.buildRouter()
}

// memStore is a minimal in-memory record store for handler tests.
type memStore struct {
	records map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := s.records[key]
	if !ok {
		return nil, tracking.ErrRecordNotFound
	}
	return data, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte) error {
	s.records[key] = value
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	delete(s.records, key)
	return nil
}

func TestNew_RequiresDependencies(t *testing.T) {
	logger := logging.New(config.LoggingConfig{Level: "error"}, "test")

	if _, err := New(Deps{Registry: tracking.NewRegistry(newMemStore(), nil, nil)}); err == nil {
		t.Error("expected error when logger is missing")
	}
	if _, err := New(Deps{Logger: logger}); err == nil {
		t.Error("expected error when registry is missing")
	}
}

func TestHandleHealth(t *testing.T) {
	_, _, router := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshalling body: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestHandleMetrics(t *testing.T) {
	_, registry, router := newTestServer(t)
	ctx := context.Background()

	if err := registry.AddSource(ctx, "motion-hall"); err != nil {
		t.Fatalf("AddSource failed: %v", err)
	}
	if err := registry.HandleEvent(ctx, "motion-hall", tracking.StateOn, time.Now()); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var metrics SystemMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("unmarshalling metrics: %v", err)
	}
	if metrics.Tracking.TrackedSources != 1 {
		t.Errorf("expected 1 tracked source, got %d", metrics.Tracking.TrackedSources)
	}
	if metrics.Tracking.OccupiedNow != 1 {
		t.Errorf("expected 1 occupied source, got %d", metrics.Tracking.OccupiedNow)
	}
	if metrics.Tracking.Activations != 1 {
		t.Errorf("expected 1 activation, got %d", metrics.Tracking.Activations)
	}
}

func TestRequestIDHeader(t *testing.T) {
	_, _, router := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated X-Request-ID header")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-chosen")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "client-chosen" {
		t.Errorf("expected client request id echoed, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, _, router := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sources", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("expected origin allowed, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestBodySizeLimit(t *testing.T) {
	_, _, router := newTestServer(t)

	oversized := bytes.Repeat([]byte("x"), maxRequestBodySize+1)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sources", bytes.NewReader(oversized))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for oversized body, got %d", rec.Code)
	}
}
