// Package web provides the HTTP server and handlers for the record editor.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/custedit/internal/config"
	"github.com/JonMunkholm/custedit/internal/core"
	mw "github.com/JonMunkholm/custedit/internal/web/middleware"
)

// Server is the HTTP server for the record editor.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	limiter       *rateLimiter
	importLimiter *rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.limiter = newRateLimiter(cfg.Rate.RequestsPerMinute, cfg.Rate.Burst)
		s.importLimiter = newRateLimiter(cfg.Rate.UploadLimit, 1)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(s.securityHeaders)

	if s.limiter != nil {
		s.router.Use(s.limiter.middleware(s.rejectRateLimited))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		// Page and form endpoints
		r.Get("/", s.handleIndex)
		r.With(s.importLimit).Post("/import", s.handleImportForm)
		r.Post("/rows", s.handleAddForm)
		r.Post("/rows/{id}/edit", s.handleEditForm)
		r.Post("/rows/{id}/delete", s.handleDeleteForm)
		r.Post("/rows/{id}/select", s.handleSelectForm)
		r.Post("/selection/page", s.handleSelectPageForm)
		r.Post("/selection/clear", s.handleClearSelectionForm)
		r.Get("/export", s.handleExport)
		r.Get("/send", s.handleSendPage)

		// API routes
		r.Route("/api", func(r chi.Router) {
			r.Use(mw.APIKeyAuth(&s.cfg.Security))

			r.With(s.importLimit).Post("/import", s.handleImportAPI)
			r.Get("/import/status", s.handleImportStatus)

			r.Get("/rows", s.handleListRows)
			r.Post("/rows", s.handleAddRow)
			r.Post("/rows/delete-matching", s.handleDeleteMatching)
			r.Put("/rows/{id}", s.handleEditRow)
			r.Delete("/rows/{id}", s.handleDeleteRow)

			r.Post("/selection/page", s.handleSelectPage)
			r.Post("/selection/{id}", s.handleSelectRow)
			r.Delete("/selection", s.handleClearSelection)

			r.Get("/export", s.handleExport)
			r.Get("/send", s.handleSend)
			r.Get("/audit", s.handleAuditLog)
		})
	})
}

// importLimit applies the stricter per-IP import limit when rate limiting
// is enabled.
func (s *Server) importLimit(next http.Handler) http.Handler {
	if s.importLimiter == nil {
		return next
	}
	return s.importLimiter.middleware(s.rejectRateLimited)(next)
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// StartMaintenance drops idle rate limit entries until ctx is cancelled.
func (s *Server) StartMaintenance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := 0
			if s.limiter != nil {
				n += s.limiter.cleanup()
			}
			if s.importLimiter != nil {
				n += s.importLimiter.cleanup()
			}
			if n > 0 {
				slog.Debug("rate limiter cleanup", "removed", n)
			}
		}
	}
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// The page carries its script and styles inline
		if s.cfg.Security.EnableCSP {
			w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; form-action 'self'")
		}

		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// handleHealth reports liveness and current load.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.service.SessionCount(),
		"imports":  s.service.ImportStatus(),
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
