package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// statusWriter captures the response code for the access log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := newRequestID()
		clientIP := extractClientIP(r)

		setSecurityHeaders(w)
		w.Header().Set("X-Request-ID", requestID)

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			if !s.limiter.allow(clientIP) {
				slog.WarnContext(r.Context(), "rate limit exceeded",
					"request_id", requestID,
					"client_ip", clientIP,
					"path", r.URL.Path)
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rateLimitWindow.Seconds())))
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)

		slog.InfoContext(r.Context(), "request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}
