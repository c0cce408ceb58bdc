package gateway

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/espen/sup-gateway/internal/metrics"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

const requestIDHeader = "X-Request-ID"

// trustedProxyChecker validates whether a request's direct peer is allowed
// to set X-Forwarded-For / X-Real-IP.
type trustedProxyChecker struct {
	cidrs []*net.IPNet
	ips   map[string]bool
}

func newTrustedProxyChecker(trustedProxies []string) *trustedProxyChecker {
	checker := &trustedProxyChecker{ips: make(map[string]bool)}
	for _, proxy := range trustedProxies {
		proxy = strings.TrimSpace(proxy)
		if proxy == "" {
			continue
		}
		if _, cidr, err := net.ParseCIDR(proxy); err == nil {
			checker.cidrs = append(checker.cidrs, cidr)
		} else if ip := net.ParseIP(proxy); ip != nil {
			checker.ips[ip.String()] = true
		}
	}
	return checker
}

func (c *trustedProxyChecker) isTrusted(ipStr string) bool {
	if len(c.cidrs) == 0 && len(c.ips) == 0 {
		return false
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	if c.ips[ip.String()] {
		return true
	}
	for _, cidr := range c.cidrs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture status code and
// bytes written, for metrics and access logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// RequestIDMiddleware adds a request ID to the context and response
// header, generating one with google/uuid when the caller didn't supply
// one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the request context.
func GetRequestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}

// MetricsMiddleware records the requests-in-flight gauge, the request
// count and duration, and request-body bytes received.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.RequestsInFlight.Inc()
		defer metrics.RequestsInFlight.Dec()

		start := time.Now()
		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		metrics.RequestsTotal.WithLabelValues(r.Method, status).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method).Observe(duration)

		if r.ContentLength > 0 {
			metrics.BytesReceived.Add(float64(r.ContentLength))
		}
	})
}

// AccessLogMiddleware logs each request with log/slog, using trustedProxies
// to decide whether X-Forwarded-For / X-Real-IP are believed.
func AccessLogMiddleware(trustedProxies []string) func(http.Handler) http.Handler {
	proxyChecker := newTrustedProxyChecker(trustedProxies)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			clientIP := getClientIPWithTrust(r, proxyChecker)
			requestID := GetRequestID(r)

			if isInternalEndpoint(r.URL.Path) {
				slog.Debug("request",
					"client_ip", clientIP,
					"method", r.Method,
					"path", r.URL.Path,
					"status", rw.statusCode,
					"duration", duration.String(),
				)
				return
			}

			slog.Info("request",
				"client_ip", clientIP,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"bytes_out", rw.bytesWritten,
				"duration", duration.String(),
				"request_id", requestID,
			)
		})
	}
}

func isInternalEndpoint(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

func getClientIP(r *http.Request) string {
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

func getClientIPWithTrust(r *http.Request, checker *trustedProxyChecker) string {
	remoteIP := getClientIP(r)
	if checker != nil && checker.isTrusted(remoteIP) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if idx := strings.Index(xff, ","); idx != -1 {
				return strings.TrimSpace(xff[:idx])
			}
			return strings.TrimSpace(xff)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}
	return remoteIP
}

// MetricsBasicAuth requires basic auth for the metrics endpoint. If
// username and password are both empty, anonymous access is allowed.
func MetricsBasicAuth(username, password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if username == "" && password == "" {
				next.ServeHTTP(w, r)
				return
			}
			u, p, ok := r.BasicAuth()
			if !ok || u != username || p != password {
				w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
