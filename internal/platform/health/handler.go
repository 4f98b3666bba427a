// Package health exposes liveness and readiness probes for the service.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"masthead/internal/transport/http/json"

	"github.com/go-chi/chi/v5"
)

// Version is stamped at build time via ldflags.
var Version = "dev"

// Check probes a single dependency. A nil error means the dependency
// is reachable.
type Check func(ctx context.Context) error

// Handler serves the health endpoints. Readiness consults every
// registered dependency check; liveness only reports that the process
// is up.
type Handler struct {
	started     time.Time
	environment string

	mu     sync.RWMutex
	checks map[string]Check
}

func New(environment string) *Handler {
	return &Handler{
		started:     time.Now(),
		environment: environment,
		checks:      make(map[string]Check),
	}
}

// AddCheck registers a named dependency probe used by the readiness
// endpoint. Later registrations under the same name replace earlier
// ones.
func (h *Handler) AddCheck(name string, check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Register mounts the probe routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.status)
	r.Get("/health/live", h.live)
	r.Get("/health/ready", h.ready)
}

func (h *Handler) live(w http.ResponseWriter, _ *http.Request) {
	json.WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// DependencyStatus reports the outcome of one readiness check.
type DependencyStatus struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// ReadinessReport is the readiness endpoint payload.
type ReadinessReport struct {
	Status       string             `json:"status"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]Check, len(names))
	for i, name := range names {
		checks[i] = h.checks[name]
	}
	h.mu.RUnlock()

	report := ReadinessReport{Status: "ready"}
	for i, check := range checks {
		begin := time.Now()
		err := check(ctx)
		status := DependencyStatus{
			Name:      names[i],
			Healthy:   err == nil,
			LatencyMS: time.Since(begin).Milliseconds(),
		}
		if err != nil {
			status.Error = err.Error()
			report.Status = "not_ready"
		}
		report.Dependencies = append(report.Dependencies, status)
	}

	code := http.StatusOK
	if report.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	json.WriteJSON(w, code, report)
}

// StatusReport is the general status payload with version and uptime.
type StatusReport struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Environment   string `json:"environment"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	json.WriteJSON(w, http.StatusOK, StatusReport{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}
