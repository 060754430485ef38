// Package http provides the HTTP surface of the relay.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/roelfdiedericks/nexusrelay/internal/config"
	. "github.com/roelfdiedericks/nexusrelay/internal/logging"
	"github.com/roelfdiedericks/nexusrelay/internal/relay"
)

// Relayer is what the server needs from the relay.
type Relayer interface {
	Handle(ctx context.Context, message string) relay.Result
	Mode() string
	MaxDuration() time.Duration // worst-case Handle time
}

// writeSlack is the time left for reading the request and writing the
// response on top of the relay's own worst case.
const writeSlack = 30 * time.Second

// writeTimeoutFor returns a write deadline that outlasts a relay running
// for at most relayMax.
func writeTimeoutFor(relayMax time.Duration) time.Duration {
	if relayMax < 0 {
		relayMax = 0
	}
	return relayMax + writeSlack
}

// Server represents the HTTP server
type Server struct {
	server      *http.Server
	relay       Relayer
	cors        corsPolicy
	rateLimiter *RateLimiter // nil when disabled
	maxBody     int64

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *config.ServerConfig, r Relayer) (*Server, error) {
	if r == nil {
		return nil, errors.New("http: relay is required")
	}
	listen := cfg.Listen
	if listen == "" {
		listen = ":3000"
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	s := &Server{
		relay:   r,
		cors:    newCORSPolicy(cfg.CORSOrigins),
		maxBody: maxBody,
	}
	if cfg.RateLimit > 0 {
		s.rateLimiter = NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	}

	s.server = &http.Server{
		Addr:              listen,
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeoutFor(r.MaxDuration()),
		IdleTimeout:       120 * time.Second,
	}

	L_debug("http: server created", "listen", listen, "writeTimeout", s.server.WriteTimeout, "cors", cfg.CORSOrigins, "rateLimit", cfg.RateLimit, "maxBody", maxBody)
	return s, nil
}

// Handler returns the routed handler with its middleware chain
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Apply middleware chain: recover -> request id -> logging -> CORS -> rate limit
	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		return s.recoverPanic(s.requestID(s.logRequest(s.corsHeaders(s.rateLimit(h)))))
	}

	mux.HandleFunc("/", wrap(s.handleIndex))
	mux.HandleFunc("/message", wrap(s.handleMessage))
	mux.HandleFunc("/healthz", wrap(s.handleHealth))
	mux.HandleFunc("/metrics", wrap(s.handleMetrics))

	return mux
}

// Start binds the listen address and serves in the background.
// Bind errors are returned; serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("http: listen %s: %w", s.server.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		L_info("http: server starting", "addr", ln.Addr().String(), "mode", s.relay.Mode())

		err := s.server.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			L_error("http: server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		L_error("http: shutdown error", "error", err)
		return err
	}

	s.wg.Wait()
	L_info("http: server stopped")
	return nil
}
