package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/solvios/flashpool/internal/domain"
)

// StatusPools provides the pool snapshots for the status summary.
type StatusPools interface {
	ListSnapshots(ctx context.Context) ([]domain.PoolSnapshot, error)
}

// StatusProfit provides the trailing profit sum for the status summary.
type StatusProfit interface {
	TotalProfit(ctx context.Context, since time.Time) (uint64, error)
}

// StatusEvents reports the in-memory event window occupancy.
type StatusEvents interface {
	Len() int
	Total() uint64
}

// StatusHandler serves the operational summary for the dashboard.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	pools     StatusPools
	profit    StatusProfit
	events    StatusEvents
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler. Any nil source drops its fields
// from the summary instead of failing the endpoint.
func NewStatusHandler(mode string, startedAt time.Time, pools StatusPools, profit StatusProfit, events StatusEvents, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		startedAt: startedAt,
		pools:     pools,
		profit:    profit,
		events:    events,
		logger:    logger,
	}
}

// GetStatus responds with the backend mode, uptime, and aggregate pool and
// profit figures. Partial source failures degrade the summary, never the
// endpoint.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"mode":           h.mode,
		"started_at":     h.startedAt.UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}

	if h.pools != nil {
		snaps, err := h.pools.ListSnapshots(r.Context())
		if err != nil {
			h.logger.WarnContext(r.Context(), "handler: status pool summary failed",
				slog.String("error", err.Error()),
			)
		} else {
			var liquidity uint64
			for _, s := range snaps {
				liquidity += s.Liquidity
			}
			resp["pool_count"] = len(snaps)
			resp["total_liquidity"] = liquidity
		}
	}

	if h.profit != nil {
		total, err := h.profit.TotalProfit(r.Context(), time.Now().Add(-24*time.Hour))
		if err != nil {
			h.logger.WarnContext(r.Context(), "handler: status profit summary failed",
				slog.String("error", err.Error()),
			)
		} else {
			resp["profit_24h"] = total
		}
	}

	if h.events != nil {
		resp["events_retained"] = h.events.Len()
		resp["events_total"] = h.events.Total()
	}

	writeJSON(w, http.StatusOK, resp)
}
