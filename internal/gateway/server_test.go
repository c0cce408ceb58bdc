package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/espen/sup-gateway/internal/secretstore"
)

func newTestServer() *Server {
	store := secretstore.NewMemoryStore(nil)
	handler := New(store, false)
	return NewServer(Config{Address: ":0"}, handler)
}

func TestServerHealthz(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestServerReadyz(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("GET", "/readyz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestServerMetricsRoutesToPrometheusHandler(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.Len() == 0 {
		t.Fatalf("expected prometheus exposition body")
	}
}

func TestServerMetricsRequiresBasicAuthWhenConfigured(t *testing.T) {
	store := secretstore.NewMemoryStore(nil)
	handler := New(store, false)
	s := NewServer(Config{Address: ":0", MetricsUser: "u", MetricsPass: "p"}, handler)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without credentials", w.Code)
	}
}

func TestServerUnmatchedPathReachesGatewayHandler(t *testing.T) {
	s := newTestServer()
	// No signing envelope at all -> rejected by the gateway handler, not a 404.
	req := httptest.NewRequest("GET", "/anything", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (malformed envelope), not a mux 404", w.Code)
	}
}
