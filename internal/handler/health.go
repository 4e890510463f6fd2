package handler

import (
	"context"
	"net/http"
	"time"

	"wikiflow/internal/httputil"
)

// Pinger reports whether an optional backend is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports server liveness and the state of optional backends
type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler creates a health handler. Nil checks are skipped.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	live := make(map[string]Pinger, len(checks))
	for name, c := range checks {
		if c != nil {
			live[name] = c
		}
	}
	return &HealthHandler{checks: live}
}

// HealthCheck is a simple health check endpoint
// GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	backends := make(map[string]string, len(h.checks))
	for name, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			backends[name] = "unavailable"
			continue
		}
		backends[name] = "ok"
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"time":     time.Now(),
		"backends": backends,
	})
}
