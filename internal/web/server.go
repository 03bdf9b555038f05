// Package web provides the HTTP server and handlers for the project-status dashboard.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/config"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/retrieval"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/service"
	webmw "github.com/katrinamanzanilla/2nd-mini-site/internal/web/middleware"
)

// contentSecurityPolicy allows the htmx bundle and inline styles only.
const contentSecurityPolicy = "default-src 'self'; script-src 'self' https://unpkg.com; " +
	"style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'; frame-ancestors 'none'"

// Options configures the server. Zero values select defaults.
type Options struct {
	Server    config.ServerConfig
	Session   config.SessionConfig
	Rate      config.RateLimitConfig
	Security  config.SecurityConfig
	Endpoints retrieval.Endpoints
}

// OptionsFromConfig picks the web-relevant sections out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Server:   cfg.Server,
		Session:  cfg.Session,
		Rate:     cfg.Rate,
		Security: cfg.Security,
		Endpoints: retrieval.Endpoints{
			DocsBaseURL:      cfg.Fetch.DocsBaseURL,
			OpenSheetBaseURL: cfg.Fetch.OpenSheetBaseURL,
		},
	}
}

// Server is the HTTP server for the dashboard.
type Server struct {
	service  *service.Service
	opts     Options
	router   *chi.Mux
	server   *http.Server
	limiters []*rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(svc *service.Service, opts Options) *Server {
	if opts.Session.CookieName == "" {
		opts.Session.CookieName = defaultCookieName
	}
	if opts.Session.TTL <= 0 {
		opts.Session.TTL = 12 * time.Hour
	}

	s := &Server{
		service: svc,
		opts:    opts,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(webmw.TrustedRealIP(s.opts.Security.TrustedProxies))
	s.router.Use(webmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if t := s.opts.Server.RequestTimeout; t > 0 {
		s.router.Use(middleware.Timeout(t))
	}

	s.router.Use(securityHeaders(s.opts.Security.EnableCSP))

	if s.opts.Rate.Enabled && s.opts.Rate.RequestsPerMinute > 0 {
		s.router.Use(s.newRateLimiter(s.opts.Rate.RequestsPerMinute, time.Minute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(s.withSession)
		r.Get("/", s.handleDashboard)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(webmw.APIKeyAuth(&s.opts.Security))
		r.Use(s.withSession)

		// Loads hit the network, so they get a tighter budget.
		r.Group(func(r chi.Router) {
			if s.opts.Rate.Enabled && s.opts.Rate.LoadLimit > 0 {
				r.Use(s.newRateLimiter(s.opts.Rate.LoadLimit, time.Minute).middleware)
			}
			r.Post("/load", s.handleLoad)
			r.Post("/reload", s.handleReload)
		})

		r.Post("/reset", s.handleReset)
		r.Get("/view", s.handleView)
		r.Get("/export", s.handleExport)
		r.Get("/history", s.handleHistory)
		r.Get("/resolve", s.handleResolve)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.Server.ReadTimeout,
		WriteTimeout: s.opts.Server.WriteTimeout,
		IdleTimeout:  s.opts.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				h.Set("Content-Security-Policy", contentSecurityPolicy)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
