package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/solvios/flashpool/internal/domain"
	"github.com/solvios/flashpool/internal/service"
)

// PoolService defines the methods that the pool handler requires from the
// service layer.
type PoolService interface {
	CreatePool(ctx context.Context, spec service.PoolSpec) (domain.PoolSnapshot, error)
	Deposit(ctx context.Context, poolID string, from domain.Identity, amount uint64) (domain.PoolSnapshot, error)
	Withdraw(ctx context.Context, poolID string, caller domain.Identity, amount uint64) (domain.Funds, error)
	Pause(ctx context.Context, poolID string, caller domain.Identity) error
	Resume(ctx context.Context, poolID string, caller domain.Identity) error
	Snapshot(ctx context.Context, poolID string) (domain.PoolSnapshot, error)
	ListSnapshots(ctx context.Context) ([]domain.PoolSnapshot, error)
	Health(ctx context.Context, poolID string) (domain.PoolHealth, error)
	History(ctx context.Context, poolID string, opts domain.ListOpts) ([]domain.PoolSnapshot, error)
}

// PoolHandler serves pool lifecycle and liquidity HTTP endpoints.
type PoolHandler struct {
	pools  PoolService
	logger *slog.Logger
}

// NewPoolHandler creates a PoolHandler with the given service and logger.
func NewPoolHandler(pools PoolService, logger *slog.Logger) *PoolHandler {
	return &PoolHandler{
		pools:  pools,
		logger: logger,
	}
}

// createPoolRequest is the JSON body for pool creation.
type createPoolRequest struct {
	ID           string `json:"id"`
	Asset        string `json:"asset"`
	Liquidity    uint64 `json:"liquidity"`
	FeeBps       uint64 `json:"fee_bps"`
	MaxLoanRatio uint64 `json:"max_loan_ratio"`
	Admin        string `json:"admin"`
}

// amountRequest is the JSON body for deposits and withdrawals. Caller is only
// consulted when the request carries no authenticated identity.
type amountRequest struct {
	Amount uint64 `json:"amount"`
	Caller string `json:"caller"`
}

// listPoolsResponse wraps the pool list response.
type listPoolsResponse struct {
	Pools []domain.PoolSnapshot `json:"pools"`
}

// CreatePool registers a new pool from a JSON body.
// POST /api/pools
func (h *PoolHandler) CreatePool(w http.ResponseWriter, r *http.Request) {
	var req createPoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ID == "" || req.Asset == "" {
		writeError(w, http.StatusBadRequest, "id and asset are required")
		return
	}

	snap, err := h.pools.CreatePool(r.Context(), service.PoolSpec{
		ID:           req.ID,
		Asset:        req.Asset,
		Liquidity:    req.Liquidity,
		FeeBps:       req.FeeBps,
		MaxLoanRatio: req.MaxLoanRatio,
		Admin:        callerIdentity(r, req.Admin),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to create pool")
		return
	}

	writeJSON(w, http.StatusCreated, snap)
}

// ListPools returns a snapshot of every pool.
// GET /api/pools
func (h *PoolHandler) ListPools(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.pools.ListSnapshots(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list pools failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list pools")
		return
	}

	if snaps == nil {
		snaps = []domain.PoolSnapshot{}
	}

	writeJSON(w, http.StatusOK, listPoolsResponse{Pools: snaps})
}

// GetPool returns the current snapshot of one pool.
// GET /api/pools/{id}
func (h *PoolHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing pool id")
		return
	}

	snap, err := h.pools.Snapshot(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to get pool")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// GetPoolHealth returns the utilization and recovery readout for one pool.
// GET /api/pools/{id}/health
func (h *PoolHandler) GetPoolHealth(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing pool id")
		return
	}

	health, err := h.pools.Health(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to get pool health")
		return
	}

	writeJSON(w, http.StatusOK, health)
}

// GetPoolHistory returns persisted snapshots for one pool, newest first.
// GET /api/pools/{id}/history?limit=50&offset=0&since=2026-01-01
func (h *PoolHandler) GetPoolHistory(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing pool id")
		return
	}

	snaps, err := h.pools.History(r.Context(), id, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: pool history failed",
			slog.String("pool", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load pool history")
		return
	}

	if snaps == nil {
		snaps = []domain.PoolSnapshot{}
	}

	writeJSON(w, http.StatusOK, listPoolsResponse{Pools: snaps})
}

// Deposit adds liquidity to a pool.
// POST /api/pools/{id}/deposit
func (h *PoolHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	snap, err := h.pools.Deposit(r.Context(), id, callerIdentity(r, req.Caller), req.Amount)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to deposit")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// Withdraw removes liquidity from a pool. Only the pool admin may withdraw.
// POST /api/pools/{id}/withdraw
func (h *PoolHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	funds, err := h.pools.Withdraw(r.Context(), id, callerIdentity(r, req.Caller), req.Amount)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to withdraw")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pool":   id,
		"asset":  funds.Asset(),
		"amount": funds.Value(),
	})
}

// pauseRequest is the optional JSON body for pause and resume.
type pauseRequest struct {
	Caller string `json:"caller"`
}

// Pause halts borrows and deposits on a pool. Admin only.
// POST /api/pools/{id}/pause
func (h *PoolHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

// Resume lifts a pause. Admin only.
// POST /api/pools/{id}/resume
func (h *PoolHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *PoolHandler) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	id := pathParam(r, "id")

	// The body is optional; an empty body means the authenticated identity
	// or anonymous.
	var req pauseRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	caller := callerIdentity(r, req.Caller)
	var err error
	if paused {
		err = h.pools.Pause(r.Context(), id, caller)
	} else {
		err = h.pools.Resume(r.Context(), id, caller)
	}
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to change pause state")
		return
	}

	state := "resumed"
	if paused {
		state = "paused"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": state,
		"pool":   id,
	})
}
