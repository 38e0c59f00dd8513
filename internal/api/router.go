package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds the dependency checks behind /health.
const healthCheckTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Post("/login", s.handleLogin)
	r.Post("/messages", s.handleMessages)

	// Hyphenated paths plus the legacy spellings the original client uses.
	for _, p := range []string{"/check-location", "/checklocation"} {
		r.Post(p, s.handleCheckLocation)
	}
	for _, p := range []string{"/sha-check", "/shacheck"} {
		r.Post(p, s.handleShaCheck)
	}
	for _, p := range []string{"/check-failed", "/checkfailed"} {
		r.Post(p, s.handleCheckFailed)
	}
	for _, p := range []string{"/list-files", "/listfiles"} {
		r.Get(p, s.handleListFiles)
	}
	for _, p := range []string{"/get-file", "/getfile"} {
		r.Post(p, s.handleGetFile)
	}

	return r
}

// handleRoot is the liveness probe the original client calls.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Server OK."})
}

// handleHealth reports the version and dependency state. Only the database
// can make the server unhealthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	checks := map[string]string{}

	if s.database != nil {
		if err := s.database.HealthCheck(ctx); err != nil {
			s.logger.Error("database health check failed", "error", err)
			status = "degraded"
			code = http.StatusServiceUnavailable
			checks["database"] = "unavailable"
		} else {
			checks["database"] = "ok"
		}
	}

	for name, dep := range s.optional {
		if dep == nil {
			continue
		}
		if err := dep.HealthCheck(ctx); err != nil {
			checks[name] = "unavailable"
		} else {
			checks[name] = "ok"
		}
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}
