package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/solvios/flashpool/internal/asset"
	"github.com/solvios/flashpool/internal/domain"
	"github.com/solvios/flashpool/internal/engine"
	"github.com/solvios/flashpool/internal/pool"
)

// PoolSpec carries the parameters for creating a pool.
type PoolSpec struct {
	ID           string
	Asset        string
	Liquidity    uint64
	FeeBps       uint64
	MaxLoanRatio uint64
	Admin        domain.Identity
}

// PoolService owns the live pools and their observability trail. The
// in-memory pool is the source of truth; every mutation refreshes the Redis
// snapshot cache and appends a history row, both best-effort, so a storage
// outage degrades the trail without failing pool operations.
type PoolService struct {
	assets    *asset.Registry
	enforce   bool
	snapshots domain.SnapshotStore
	cache     domain.PoolCache
	sink      pool.EventSink
	logger    *slog.Logger

	mu    sync.RWMutex
	pools map[string]*pool.Pool
}

// NewPoolService creates a PoolService with all required dependencies.
// enforce gates pool creation and loan sizes on the asset whitelist.
func NewPoolService(
	assets *asset.Registry,
	enforce bool,
	snapshots domain.SnapshotStore,
	cache domain.PoolCache,
	sink pool.EventSink,
	logger *slog.Logger,
) *PoolService {
	return &PoolService{
		assets:    assets,
		enforce:   enforce,
		snapshots: snapshots,
		cache:     cache,
		sink:      sink,
		logger:    logger,
		pools:     make(map[string]*pool.Pool),
	}
}

// CreatePool registers a new pool and seeds its snapshot trail. The asset
// must be whitelisted when enforcement is on, and pool ids are unique.
func (s *PoolService) CreatePool(ctx context.Context, spec PoolSpec) (domain.PoolSnapshot, error) {
	if spec.ID == "" {
		return domain.PoolSnapshot{}, fmt.Errorf("pool_service: create: empty pool id")
	}
	if s.enforce {
		if err := s.assets.Check(spec.Asset, 0); err != nil {
			return domain.PoolSnapshot{}, fmt.Errorf("pool_service: create %q: %w", spec.ID, err)
		}
	}
	p, err := pool.New(spec.ID, spec.Asset, spec.Liquidity, spec.FeeBps, spec.MaxLoanRatio, spec.Admin, s.sink)
	if err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("pool_service: create %q: %w", spec.ID, err)
	}

	s.mu.Lock()
	if _, ok := s.pools[spec.ID]; ok {
		s.mu.Unlock()
		return domain.PoolSnapshot{}, fmt.Errorf("pool_service: pool %q: %w", spec.ID, domain.ErrAlreadyExists)
	}
	s.pools[spec.ID] = p
	s.mu.Unlock()

	snap := s.refreshSnapshot(ctx, p)

	s.logger.InfoContext(ctx, "pool_service: pool created",
		slog.String("pool", spec.ID),
		slog.String("asset", p.Asset()),
		slog.Uint64("liquidity", spec.Liquidity),
		slog.Uint64("fee_bps", spec.FeeBps),
	)
	return snap, nil
}

// CheckLoan validates a prospective loan of amount units of asset against
// the whitelist policy. A no-op when enforcement is off.
func (s *PoolService) CheckLoan(asset string, amount uint64) error {
	if !s.enforce {
		return nil
	}
	return s.assets.Check(asset, amount)
}

// Get returns the live pool with the given id.
func (s *PoolService) Get(id string) (*pool.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[id]
	if !ok {
		return nil, fmt.Errorf("pool_service: pool %q: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// List returns the live pools sorted by id.
func (s *PoolService) List() []*pool.Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*pool.Pool, 0, len(s.pools))
	for _, p := range s.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// PoolForAsset returns the id of the first unpaused pool holding asset, in
// id order, so the scanner picks deterministically.
func (s *PoolService) PoolForAsset(asset string) (string, bool) {
	for _, p := range s.List() {
		if strings.EqualFold(p.Asset(), asset) && !p.IsPaused() {
			return p.ID(), true
		}
	}
	return "", false
}

// Deposit credits amount of the pool's asset inside its own unit and
// refreshes the snapshot trail. Anyone may deposit.
func (s *PoolService) Deposit(ctx context.Context, poolID string, from domain.Identity, amount uint64) (domain.PoolSnapshot, error) {
	p, err := s.Get(poolID)
	if err != nil {
		return domain.PoolSnapshot{}, err
	}

	unit := p.Begin()
	if err := unit.Deposit(from, domain.NewFunds(p.Asset(), amount)); err != nil {
		unit.Rollback()
		return domain.PoolSnapshot{}, fmt.Errorf("pool_service: deposit: %w", err)
	}
	if err := unit.Commit(); err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("pool_service: deposit: %w", err)
	}

	snap := s.refreshSnapshot(ctx, p)
	s.logger.InfoContext(ctx, "pool_service: deposit received",
		slog.String("pool", poolID),
		slog.String("from", from.String()),
		slog.Uint64("amount", amount),
		slog.Uint64("liquidity", snap.Liquidity),
	)
	return snap, nil
}

// Withdraw debits amount from the pool and returns it as funds. Admin only.
func (s *PoolService) Withdraw(ctx context.Context, poolID string, caller domain.Identity, amount uint64) (domain.Funds, error) {
	p, err := s.Get(poolID)
	if err != nil {
		return domain.Funds{}, err
	}

	unit := p.Begin()
	funds, err := unit.Withdraw(caller, amount)
	if err != nil {
		unit.Rollback()
		return domain.Funds{}, fmt.Errorf("pool_service: withdraw: %w", err)
	}
	if err := unit.Commit(); err != nil {
		return domain.Funds{}, fmt.Errorf("pool_service: withdraw: %w", err)
	}

	snap := s.refreshSnapshot(ctx, p)
	s.logger.InfoContext(ctx, "pool_service: withdrawal processed",
		slog.String("pool", poolID),
		slog.String("caller", caller.String()),
		slog.Uint64("amount", amount),
		slog.Uint64("liquidity", snap.Liquidity),
	)
	return funds, nil
}

// Pause stops borrowing on the pool. Admin only.
func (s *PoolService) Pause(ctx context.Context, poolID string, caller domain.Identity) error {
	return s.setPaused(ctx, poolID, caller, true)
}

// Resume re-enables borrowing on the pool. Admin only.
func (s *PoolService) Resume(ctx context.Context, poolID string, caller domain.Identity) error {
	return s.setPaused(ctx, poolID, caller, false)
}

func (s *PoolService) setPaused(ctx context.Context, poolID string, caller domain.Identity, paused bool) error {
	p, err := s.Get(poolID)
	if err != nil {
		return err
	}

	op := "resume"
	if paused {
		op = "pause"
	}
	unit := p.Begin()
	if paused {
		err = unit.Pause(caller)
	} else {
		err = unit.Resume(caller)
	}
	if err != nil {
		unit.Rollback()
		return fmt.Errorf("pool_service: %s: %w", op, err)
	}
	if err := unit.Commit(); err != nil {
		return fmt.Errorf("pool_service: %s: %w", op, err)
	}

	s.refreshSnapshot(ctx, p)
	s.logger.InfoContext(ctx, "pool_service: pause state changed",
		slog.String("pool", poolID),
		slog.String("caller", caller.String()),
		slog.Bool("paused", paused),
	)
	return nil
}

// Snapshot returns the current snapshot for poolID. Live pools are read
// directly; for pools not loaded in this process the Redis cache is tried
// first, then the latest persisted row, which is backfilled into the cache.
func (s *PoolService) Snapshot(ctx context.Context, poolID string) (domain.PoolSnapshot, error) {
	if p, err := s.Get(poolID); err == nil {
		return p.Snapshot(), nil
	}

	snap, err := s.cache.GetSnapshot(ctx, poolID)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "pool_service: snapshot cache read failed",
			slog.String("pool", poolID),
			slog.String("error", err.Error()),
		)
	}

	snap, err = s.snapshots.Latest(ctx, poolID)
	if err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("pool_service: snapshot %q: %w", poolID, err)
	}
	if cacheErr := s.cache.SetSnapshot(ctx, snap); cacheErr != nil {
		s.logger.WarnContext(ctx, "pool_service: snapshot cache set failed",
			slog.String("pool", poolID),
			slog.String("error", cacheErr.Error()),
		)
	}
	return snap, nil
}

// ListSnapshots captures every live pool, or falls back to the latest
// persisted rows when this process holds no pools.
func (s *PoolService) ListSnapshots(ctx context.Context) ([]domain.PoolSnapshot, error) {
	pools := s.List()
	if len(pools) == 0 {
		snaps, err := s.snapshots.ListLatest(ctx)
		if err != nil {
			return nil, fmt.Errorf("pool_service: list snapshots: %w", err)
		}
		return snaps, nil
	}
	snaps := make([]domain.PoolSnapshot, 0, len(pools))
	for _, p := range pools {
		snaps = append(snaps, p.Snapshot())
	}
	return snaps, nil
}

// SnapshotAll captures every live pool and refreshes its snapshot trail.
// The monitor runs this on the health interval so the history table tracks
// pool state over time even when no mutations happen.
func (s *PoolService) SnapshotAll(ctx context.Context) []domain.PoolSnapshot {
	pools := s.List()
	snaps := make([]domain.PoolSnapshot, 0, len(pools))
	for _, p := range pools {
		snaps = append(snaps, s.refreshSnapshot(ctx, p))
	}
	return snaps
}

// Health computes the health readout for poolID from its snapshot.
func (s *PoolService) Health(ctx context.Context, poolID string) (domain.PoolHealth, error) {
	snap, err := s.Snapshot(ctx, poolID)
	if err != nil {
		return domain.PoolHealth{}, err
	}
	return engine.HealthFromSnapshot(snap), nil
}

// HealthAll returns the health readout of every live pool.
func (s *PoolService) HealthAll() []domain.PoolHealth {
	pools := s.List()
	out := make([]domain.PoolHealth, 0, len(pools))
	for _, p := range pools {
		out = append(out, engine.CheckPoolHealth(p))
	}
	return out
}

// History returns persisted snapshot rows for poolID, newest first.
func (s *PoolService) History(ctx context.Context, poolID string, opts domain.ListOpts) ([]domain.PoolSnapshot, error) {
	snaps, err := s.snapshots.History(ctx, poolID, opts)
	if err != nil {
		return nil, fmt.Errorf("pool_service: history %q: %w", poolID, err)
	}
	return snaps, nil
}

// refreshSnapshot persists and caches the pool's current snapshot. The
// history row and the cache entry are observability surfaces; failures are
// logged, never returned.
func (s *PoolService) refreshSnapshot(ctx context.Context, p *pool.Pool) domain.PoolSnapshot {
	snap := p.Snapshot()
	if err := s.snapshots.Insert(ctx, snap); err != nil {
		s.logger.WarnContext(ctx, "pool_service: snapshot insert failed",
			slog.String("pool", snap.PoolID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.cache.SetSnapshot(ctx, snap); err != nil {
		s.logger.WarnContext(ctx, "pool_service: snapshot cache set failed",
			slog.String("pool", snap.PoolID),
			slog.String("error", err.Error()),
		)
	}
	return snap
}
