package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the health-check endpoint, probing each registered
// dependency with a short timeout.
type HealthHandler struct {
	components map[string]Pinger
	logger     *slog.Logger
}

// NewHealthHandler creates a HealthHandler. components maps a dependency name
// (postgres, redis) to its probe; nil entries are skipped.
func NewHealthHandler(components map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{components: components, logger: logger}
}

// HealthCheck responds with the server status and per-dependency reachability.
// Any failing dependency degrades the overall status and the response code.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	checks := make(map[string]string, len(h.components))

	for name, p := range h.components {
		if p == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := p.Ping(ctx)
		cancel()
		if err != nil {
			status = "degraded"
			checks[name] = err.Error()
			h.logger.WarnContext(r.Context(), "handler: health probe failed",
				slog.String("component", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		checks[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"components": checks,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
