package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports reachability of a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	deps map[string]Pinger
}

func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// Health reports process liveness plus the state of each backing dependency.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	type depStatus struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}

	overall := "ok"
	status := http.StatusOK
	deps := make(map[string]depStatus, len(h.deps))
	for name, p := range h.deps {
		if err := p.Ping(ctx); err != nil {
			deps[name] = depStatus{Status: "down", Error: err.Error()}
			overall = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = depStatus{Status: "up"}
	}

	writeJSON(w, status, map[string]any{
		"status":       overall,
		"dependencies": deps,
		"time":         time.Now().UTC(),
	})
}
