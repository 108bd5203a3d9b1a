// Package web exposes extraction jobs over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/core"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/web/middleware"
)

// Extractor runs one extraction job. *core.Service implements it.
type Extractor interface {
	Extract(ctx context.Context, blobPath string) (*core.JobResult, error)
}

// Options configures a Server.
type Options struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration

	// MaxBodyBytes caps request bodies. Zero means 1 MiB.
	MaxBodyBytes int64

	TrustedProxies []string
	AllowedOrigin  string

	RateLimit         bool
	RequestsPerMinute int
	ExtractPerMinute  int
}

// Server is the HTTP front of the extraction service.
type Server struct {
	extractor Extractor
	opts      Options
	router    *chi.Mux
	server    *http.Server
}

// NewServer creates a Server running jobs on extractor.
func NewServer(extractor Extractor, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	s := &Server{
		extractor: extractor,
		opts:      opts,
		router:    chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.opts.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.opts.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.opts.RequestTimeout))
	}
	s.router.Use(securityHeaders)
	s.router.Use(middleware.CORS(s.opts.AllowedOrigin))

	if s.opts.RateLimit {
		s.router.Use(middleware.NewRateLimiter(s.opts.RequestsPerMinute).Middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleHealth)
	s.router.Options("/*", s.handlePreflight)

	extract := s.router.With()
	if s.opts.RateLimit {
		extract = s.router.With(middleware.NewRateLimiter(s.opts.ExtractPerMinute).Middleware)
	}
	extract.Post("/extract-data", s.handleExtract)
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v with status. Encoding errors are only logged since
// the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
