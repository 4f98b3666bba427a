// Package httptransport assembles the full HTTP surface: platform
// middleware, the security pipeline, probes, metrics, and the auth
// routes.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authHandler "masthead/internal/auth/handler"
	"masthead/internal/platform/health"
	"masthead/internal/platform/middleware"
	"masthead/internal/security"
)

// Deps carries everything the router composes. Health and Pipeline are
// optional; the corresponding layer is skipped when nil.
type Deps struct {
	Auth     *authHandler.Handler
	Pipeline *security.Pipeline
	Health   *health.Handler
	Logger   *slog.Logger

	// CORSOrigins lists allowed browser origins. Empty disables CORS.
	CORSOrigins []string
}

// NewRouter wires the middleware stack around the application routes.
// Probes and metrics sit outside the security pipeline so monitoring
// keeps working while an address is blocked or rate limited.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))

	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", security.CSRFHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if deps.Health != nil {
		deps.Health.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if deps.Pipeline != nil {
			r.Use(deps.Pipeline.Handler)
		}
		r.Use(middleware.ContentTypeJSON)
		deps.Auth.Mount(r)
	})

	return r
}
