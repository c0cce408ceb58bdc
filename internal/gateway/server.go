package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server timeout constants, chosen to mitigate Slowloris-style attacks on
// the accept layer; the core handler itself carries no timeouts (those are
// delegated to the outbound client and to this accept layer).
const (
	ReadHeaderTimeout = 10 * time.Second
	IdleTimeout       = 120 * time.Second
	MaxHeaderBytes    = 1 << 20 // 1 MB
)

// Config is the subset of gateway-relevant server settings; the full
// configuration type lives in internal/config.
type Config struct {
	Address        string
	TrustedProxies []string
	MetricsUser    string
	MetricsPass    string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Server is the gateway's HTTP server: the signing-verification handler
// plus health, readiness, and metrics endpoints.
type Server struct {
	cfg        Config
	handler    *Handler
	httpServer *http.Server
}

// NewServer builds a Server around handler using cfg's address and
// timeouts.
func NewServer(cfg Config, handler *Handler) *Server {
	return &Server{cfg: cfg, handler: handler}
}

// Handler returns the fully wrapped HTTP handler: request ID, access log,
// metrics, health/ready/metrics endpoints, then the signing gateway itself.
func (s *Server) Handler() http.Handler {
	metricsAuth := MetricsBasicAuth(s.cfg.MetricsUser, s.cfg.MetricsPass)
	metricsHandler := metricsAuth(promhttp.Handler())

	gatewayHandler := MetricsMiddleware(s.handler)

	mux := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/metrics":
			metricsHandler.ServeHTTP(w, r)
			return
		case "/healthz", "/readyz":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		gatewayHandler.ServeHTTP(w, r)
	})

	return RequestIDMiddleware(AccessLogMiddleware(s.cfg.TrustedProxies)(mux))
}

// ListenAndServe starts the server with security-hardened timeouts.
func (s *Server) ListenAndServe() error {
	slog.Info("starting signing gateway", "address", s.cfg.Address)

	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       IdleTimeout,
		MaxHeaderBytes:    MaxHeaderBytes,
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server without interrupting active
// connections.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down gateway gracefully")
	return s.httpServer.Shutdown(ctx)
}
