package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/solvios/flashpool/internal/domain"
	"github.com/solvios/flashpool/internal/service"
)

// ArbService defines the methods that the arbitrage handler requires from
// the service layer.
type ArbService interface {
	Submit(ctx context.Context, req service.SubmitRequest) (domain.ArbExecution, error)
	SubmitBatch(ctx context.Context, poolID string, opps []domain.Opportunity, minTotalProfit uint64) (domain.BatchResult, error)
	FindOpportunity(ctx context.Context, pair domain.AssetPair, maxAmount, minProfit uint64) (domain.Opportunity, bool, error)
	GetExecution(ctx context.Context, id string) (domain.ArbExecution, error)
	ListRecent(ctx context.Context, limit int) ([]domain.ArbExecution, error)
	ListByPool(ctx context.Context, poolID string, opts domain.ListOpts) ([]domain.ArbExecution, error)
	TotalProfit(ctx context.Context, since time.Time) (uint64, error)
	VerifyExecution(ctx context.Context, id string) (bool, error)
}

// ArbHandler serves arbitrage submission and execution-ledger endpoints.
type ArbHandler struct {
	arb    ArbService
	logger *slog.Logger
}

// NewArbHandler creates an ArbHandler with the given service and logger.
func NewArbHandler(arb ArbService, logger *slog.Logger) *ArbHandler {
	return &ArbHandler{
		arb:    arb,
		logger: logger,
	}
}

// routePayload is the JSON shape of one venue hop.
type routePayload struct {
	Venue       string `json:"venue"`
	VenuePoolID string `json:"venue_pool_id"`
	TokenA      string `json:"token_a"`
	TokenB      string `json:"token_b"`
	FeeTier     uint64 `json:"fee_tier"`
}

func (p routePayload) toRoute() domain.Route {
	return domain.Route{
		Venue:       domain.VenueType(p.Venue),
		VenuePoolID: p.VenuePoolID,
		TokenA:      p.TokenA,
		TokenB:      p.TokenB,
		FeeTier:     p.FeeTier,
	}
}

// submitRequest is the JSON body for a single arbitrage submission.
// DeadlineSeconds is relative to receipt; zero values inherit the service
// defaults.
type submitRequest struct {
	Pool            string       `json:"pool"`
	RouteA          routePayload `json:"route_a"`
	RouteB          routePayload `json:"route_b"`
	Amount          uint64       `json:"amount"`
	MinProfit       uint64       `json:"min_profit"`
	DeadlineSeconds int64        `json:"deadline_seconds"`
}

// Submit runs one flash-loan arbitrage and returns its ledger record. The
// record is returned even when the trade terminated rejected or below
// target; only failures before a record exists map to an error status.
// POST /api/arbitrage/submit
func (h *ArbHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Pool == "" {
		writeError(w, http.StatusBadRequest, "pool is required")
		return
	}

	var deadline time.Time
	if req.DeadlineSeconds > 0 {
		deadline = time.Now().Add(time.Duration(req.DeadlineSeconds) * time.Second)
	}

	exec, err := h.arb.Submit(r.Context(), service.SubmitRequest{
		Pool:      req.Pool,
		RouteA:    req.RouteA.toRoute(),
		RouteB:    req.RouteB.toRoute(),
		Amount:    req.Amount,
		MinProfit: req.MinProfit,
		Deadline:  deadline,
	})
	if err != nil && exec.ID == "" {
		writeServiceError(w, r, h.logger, err, "failed to submit arbitrage")
		return
	}

	writeJSON(w, http.StatusOK, exec)
}

// batchOpportunity is one slot of a batch submission body.
type batchOpportunity struct {
	RouteA         routePayload `json:"route_a"`
	RouteB         routePayload `json:"route_b"`
	Amount         uint64       `json:"amount"`
	ExpectedProfit uint64       `json:"expected_profit"`
}

// batchRequest is the JSON body for a batch submission.
type batchRequest struct {
	Pool           string             `json:"pool"`
	MinTotalProfit uint64             `json:"min_total_profit"`
	Opportunities  []batchOpportunity `json:"opportunities"`
}

// SubmitBatch runs a sequence of opportunities against one pool and returns
// the per-entry outcomes plus the profit total.
// POST /api/arbitrage/batch
func (h *ArbHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Pool == "" || len(req.Opportunities) == 0 {
		writeError(w, http.StatusBadRequest, "pool and opportunities are required")
		return
	}

	opps := make([]domain.Opportunity, 0, len(req.Opportunities))
	for _, o := range req.Opportunities {
		opps = append(opps, domain.Opportunity{
			RouteA:         o.RouteA.toRoute(),
			RouteB:         o.RouteB.toRoute(),
			Amount:         o.Amount,
			ExpectedProfit: o.ExpectedProfit,
		})
	}

	result, err := h.arb.SubmitBatch(r.Context(), req.Pool, opps, req.MinTotalProfit)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to submit batch")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Opportunities scans the registered routes for the most profitable two-leg
// cycle on a pair. Finding nothing is a normal outcome, not an error.
// GET /api/arbitrage/opportunities?pair=SUI/USDC&max_amount=100000&min_profit=50
func (h *ArbHandler) Opportunities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	pairRaw := q.Get("pair")
	tokenA, tokenB, ok := strings.Cut(pairRaw, "/")
	if !ok || tokenA == "" || tokenB == "" {
		writeError(w, http.StatusBadRequest, "pair query parameter required, e.g. SUI/USDC")
		return
	}

	maxAmount := parseUint(q.Get("max_amount"))
	minProfit := parseUint(q.Get("min_profit"))

	pair := domain.AssetPair{TokenA: tokenA, TokenB: tokenB}
	opp, found, err := h.arb.FindOpportunity(r.Context(), pair, maxAmount, minProfit)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to scan opportunities")
		return
	}

	resp := map[string]any{
		"pair":  pair.Key(),
		"found": found,
	}
	if found {
		resp["opportunity"] = opp
	}
	writeJSON(w, http.StatusOK, resp)
}

// listExecutionsResponse wraps the execution list response.
type listExecutionsResponse struct {
	Executions []domain.ArbExecution `json:"executions"`
}

// ListExecutions returns persisted executions, newest first, optionally
// filtered to one pool.
// GET /api/arbitrage/executions?pool=sui-main&limit=50&offset=0
func (h *ArbHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	poolID := r.URL.Query().Get("pool")
	opts := parseListOpts(r)

	var execs []domain.ArbExecution
	var err error
	if poolID != "" {
		execs, err = h.arb.ListByPool(r.Context(), poolID, opts)
	} else {
		execs, err = h.arb.ListRecent(r.Context(), opts.Limit)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list executions failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list executions")
		return
	}

	if execs == nil {
		execs = []domain.ArbExecution{}
	}

	writeJSON(w, http.StatusOK, listExecutionsResponse{Executions: execs})
}

// GetExecution returns one execution by id.
// GET /api/arbitrage/executions/{id}
func (h *ArbHandler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing execution id")
		return
	}

	exec, err := h.arb.GetExecution(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to get execution")
		return
	}

	writeJSON(w, http.StatusOK, exec)
}

// VerifyExecution recovers the signer of a persisted execution and checks it
// against the recorded borrower.
// GET /api/arbitrage/executions/{id}/verify
func (h *ArbHandler) VerifyExecution(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing execution id")
		return
	}

	valid, err := h.arb.VerifyExecution(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to verify execution")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"execution_id": id,
		"valid":        valid,
	})
}

// GetProfit returns the summed profit of settled executions since a point in
// time, defaulting to the trailing 24 hours.
// GET /api/arbitrage/profit?since=2026-01-01T00:00:00Z
func (h *ArbHandler) GetProfit(w http.ResponseWriter, r *http.Request) {
	since, ok := parseTime(r.URL.Query().Get("since"))
	if !ok {
		since = time.Now().Add(-24 * time.Hour)
	}

	total, err := h.arb.TotalProfit(r.Context(), since)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: total profit failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute profit")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"since":        since.UTC().Format(time.RFC3339),
		"total_profit": total,
	})
}

func parseUint(v string) uint64 {
	if v == "" {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
