package http

import (
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	. "github.com/roelfdiedericks/nexusrelay/internal/logging"
	. "github.com/roelfdiedericks/nexusrelay/internal/metrics"
	"github.com/roelfdiedericks/nexusrelay/internal/relay"
)

const requestIDHeader = "X-Request-ID"

// newRequestID returns "req_" followed by eight hex characters.
func newRequestID() string {
	return "req_" + uuid.New().String()[:8]
}

// recoverPanic turns a handler panic into a 500
func (s *Server) recoverPanic(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				L_error("http: panic recovered",
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", relay.RequestID(r.Context()),
					"error", err,
					"stack", string(debug.Stack()))
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
			}
		}()
		handler(w, r)
	}
}

// requestID attaches an ID to the request context and the response.
// A client-supplied X-Request-ID is kept when it looks sane.
func (s *Server) requestID(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 64 || strings.ContainsAny(id, " \t\r\n") {
			id = newRequestID()
		}
		w.Header().Set(requestIDHeader, id)
		handler(w, r.WithContext(relay.WithRequestID(r.Context(), id)))
	}
}

// logRequest wraps an HTTP handler to log requests
func (s *Server) logRequest(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(lw, r)

		MetricInc("http", "requests")
		MetricOutcome("http", "status", strconv.Itoa(lw.statusCode))
		L_info("http: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", lw.statusCode,
			"request_id", relay.RequestID(r.Context()),
			"ip", clientIP(r),
			"duration", time.Since(start).Round(time.Millisecond))
	}
}

// loggingResponseWriter wraps ResponseWriter to capture status code
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lw *loggingResponseWriter) WriteHeader(code int) {
	lw.statusCode = code
	lw.ResponseWriter.WriteHeader(code)
}

// corsPolicy is the allowlist applied to every response
type corsPolicy struct {
	anyOrigin bool
	origins   map[string]bool
}

const (
	corsMethods = "GET, POST, OPTIONS"
	corsHeaders = "Content-Type, Accept, Authorization"
)

func newCORSPolicy(origins []string) corsPolicy {
	p := corsPolicy{origins: make(map[string]bool)}
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			p.anyOrigin = true
		} else if o != "" {
			p.origins[o] = true
		}
	}
	return p
}

// corsHeaders sets Access-Control-* headers and answers preflights with 204
func (s *Server) corsHeaders(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case s.cors.anyOrigin:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && s.cors.origins[origin]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", corsMethods)
		w.Header().Set("Access-Control-Allow-Headers", corsHeaders)
		w.Header().Set("Access-Control-Expose-Headers", requestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		handler(w, r)
	}
}

// clientIP returns the peer address without port. Forwarding headers are
// not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
