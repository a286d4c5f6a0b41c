package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solvios/flashpool/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using PostgreSQL, one row
// per capture.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a new SnapshotStore backed by the given
// connection pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

const snapshotColumns = `pool_id, asset, liquidity, fee_bps, max_loan_ratio, total_borrowed, total_repaid, active_loans, admin, paused, utilization_bps, captured_at`

// Insert persists one snapshot capture.
func (s *SnapshotStore) Insert(ctx context.Context, snap domain.PoolSnapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pool_snapshots (`+snapshotColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		snap.PoolID, snap.Asset, int64(snap.Liquidity), int64(snap.FeeBps),
		int64(snap.MaxLoanRatio), int64(snap.TotalBorrowed), int64(snap.TotalRepaid),
		int64(snap.ActiveLoans), snap.Admin.String(), snap.Paused,
		int64(snap.UtilizationBps), snap.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert snapshot %s: %w", snap.PoolID, err)
	}
	return nil
}

// Latest returns the most recent snapshot for one pool.
// It returns domain.ErrNotFound when the pool has no captures.
func (s *SnapshotStore) Latest(ctx context.Context, poolID string) (domain.PoolSnapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+snapshotColumns+`
		FROM pool_snapshots WHERE pool_id = $1
		ORDER BY captured_at DESC LIMIT 1`, poolID)

	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PoolSnapshot{}, domain.ErrNotFound
		}
		return domain.PoolSnapshot{}, fmt.Errorf("postgres: latest snapshot %s: %w", poolID, err)
	}
	return snap, nil
}

// ListLatest returns the most recent snapshot of every pool.
func (s *SnapshotStore) ListLatest(ctx context.Context) ([]domain.PoolSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (pool_id) `+snapshotColumns+`
		FROM pool_snapshots
		ORDER BY pool_id, captured_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list latest snapshots: %w", err)
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

// History returns snapshot captures for one pool with pagination and
// optional time filtering, newest first.
func (s *SnapshotStore) History(ctx context.Context, poolID string, opts domain.ListOpts) ([]domain.PoolSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM pool_snapshots WHERE pool_id = $1`
	args := []any{poolID}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND captured_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND captured_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY captured_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: snapshot history %s: %w", poolID, err)
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

// scanSnapshot reads one snapshot row from a pgx row scanner.
func scanSnapshot(row pgx.Row) (domain.PoolSnapshot, error) {
	var snap domain.PoolSnapshot
	var liquidity, feeBps, maxRatio, borrowed, repaid, active, utilization int64
	var admin string

	err := row.Scan(&snap.PoolID, &snap.Asset, &liquidity, &feeBps, &maxRatio,
		&borrowed, &repaid, &active, &admin, &snap.Paused, &utilization,
		&snap.CapturedAt)
	if err != nil {
		return domain.PoolSnapshot{}, err
	}

	snap.Liquidity = uint64(liquidity)
	snap.FeeBps = uint64(feeBps)
	snap.MaxLoanRatio = uint64(maxRatio)
	snap.TotalBorrowed = uint64(borrowed)
	snap.TotalRepaid = uint64(repaid)
	snap.ActiveLoans = uint64(active)
	snap.UtilizationBps = uint64(utilization)
	snap.Admin = domain.Identity(admin)
	return snap, nil
}

// collectSnapshots drains a row set produced by a SELECT over
// snapshotColumns.
func collectSnapshots(rows pgx.Rows) ([]domain.PoolSnapshot, error) {
	var list []domain.PoolSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan snapshot: %w", err)
		}
		list = append(list, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: snapshot rows: %w", err)
	}
	return list, nil
}

// Compile-time interface check.
var _ domain.SnapshotStore = (*SnapshotStore)(nil)
