package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/solvios/flashpool/internal/domain"
)

// RouteService defines the methods that the route handler requires from the
// service layer.
type RouteService interface {
	AddRoute(ctx context.Context, route domain.Route) error
	Routes(pair domain.AssetPair) []domain.Route
	Pairs() []string
}

// RouteHandler serves the venue route registry endpoints.
type RouteHandler struct {
	routes RouteService
	logger *slog.Logger
}

// NewRouteHandler creates a RouteHandler with the given service and logger.
func NewRouteHandler(routes RouteService, logger *slog.Logger) *RouteHandler {
	return &RouteHandler{
		routes: routes,
		logger: logger,
	}
}

// ListRoutes returns the routes registered for a pair, or the list of known
// pairs when no pair is given.
// GET /api/routes?pair=SUI/USDC
func (h *RouteHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	pairRaw := r.URL.Query().Get("pair")
	if pairRaw == "" {
		pairs := h.routes.Pairs()
		if pairs == nil {
			pairs = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"pairs": pairs})
		return
	}

	tokenA, tokenB, ok := strings.Cut(pairRaw, "/")
	if !ok || tokenA == "" || tokenB == "" {
		writeError(w, http.StatusBadRequest, "pair must be TOKEN/TOKEN, e.g. SUI/USDC")
		return
	}

	pair := domain.AssetPair{TokenA: tokenA, TokenB: tokenB}
	routes := h.routes.Routes(pair)
	if routes == nil {
		routes = []domain.Route{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pair":   pair.Key(),
		"routes": routes,
	})
}

// AddRoute registers a venue route from a JSON body.
// POST /api/routes
func (h *RouteHandler) AddRoute(w http.ResponseWriter, r *http.Request) {
	var req routePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	route := req.toRoute()
	if err := h.routes.AddRoute(r.Context(), route); err != nil {
		writeServiceError(w, r, h.logger, err, "failed to add route")
		return
	}

	writeJSON(w, http.StatusCreated, route)
}
