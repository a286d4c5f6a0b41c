package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solvios/flashpool/internal/domain"
)

// ExecutionStore implements domain.ExecutionStore using PostgreSQL.
type ExecutionStore struct {
	pool *pgxpool.Pool
}

// NewExecutionStore creates a new ExecutionStore backed by the given
// connection pool.
func NewExecutionStore(pool *pgxpool.Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

const executionColumns = `id, pool, token_a, token_b, route_a, route_b, amount_in, fee, expected, profit, status, reason, borrower, signature, created_at`

// Insert persists one execution record.
func (s *ExecutionStore) Insert(ctx context.Context, exec domain.ArbExecution) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO arb_executions (`+executionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		exec.ID, exec.Pool, exec.TokenA, exec.TokenB, exec.RouteA, exec.RouteB,
		int64(exec.AmountIn), int64(exec.Fee), int64(exec.Expected), int64(exec.Profit),
		string(exec.Status), exec.Reason, exec.Borrower.String(), exec.Signature, exec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert execution %s: %w", exec.ID, err)
	}
	return nil
}

// GetByID returns one execution record.
// It returns domain.ErrNotFound when no row matches.
func (s *ExecutionStore) GetByID(ctx context.Context, id string) (domain.ArbExecution, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+executionColumns+`
		FROM arb_executions WHERE id = $1`, id)

	exec, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ArbExecution{}, domain.ErrNotFound
		}
		return domain.ArbExecution{}, fmt.Errorf("postgres: get execution %s: %w", id, err)
	}
	return exec, nil
}

// ListRecent returns the most recent executions, newest first.
func (s *ExecutionStore) ListRecent(ctx context.Context, limit int) ([]domain.ArbExecution, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+executionColumns+`
		FROM arb_executions ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions: %w", err)
	}
	defer rows.Close()
	return collectExecutions(rows)
}

// ListByPool returns executions for one pool with pagination and optional
// time filtering, newest first.
func (s *ExecutionStore) ListByPool(ctx context.Context, pool string, opts domain.ListOpts) ([]domain.ArbExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM arb_executions WHERE pool = $1`
	args := []any{pool}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

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
		return nil, fmt.Errorf("postgres: list executions for pool %s: %w", pool, err)
	}
	defer rows.Close()
	return collectExecutions(rows)
}

// ListSince returns executions created at or after the given time, oldest
// first, for archival passes.
func (s *ExecutionStore) ListSince(ctx context.Context, since time.Time) ([]domain.ArbExecution, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+executionColumns+`
		FROM arb_executions WHERE created_at >= $1 ORDER BY created_at ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions since %s: %w", since, err)
	}
	defer rows.Close()
	return collectExecutions(rows)
}

// SumProfit returns the realized profit sum for executions since the given
// time. Rejected executions carry zero profit, so no status filter is needed.
func (s *ExecutionStore) SumProfit(ctx context.Context, since time.Time) (uint64, error) {
	var sum int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(profit), 0) FROM arb_executions WHERE created_at >= $1`, since,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("postgres: sum execution profit: %w", err)
	}
	return uint64(sum), nil
}

// scanExecution reads one execution row from a pgx row scanner.
func scanExecution(row pgx.Row) (domain.ArbExecution, error) {
	var exec domain.ArbExecution
	var amountIn, fee, expected, profit int64
	var status, borrower string

	err := row.Scan(&exec.ID, &exec.Pool, &exec.TokenA, &exec.TokenB,
		&exec.RouteA, &exec.RouteB, &amountIn, &fee, &expected, &profit,
		&status, &exec.Reason, &borrower, &exec.Signature, &exec.CreatedAt)
	if err != nil {
		return domain.ArbExecution{}, err
	}

	exec.AmountIn = uint64(amountIn)
	exec.Fee = uint64(fee)
	exec.Expected = uint64(expected)
	exec.Profit = uint64(profit)
	exec.Status = domain.ExecutionStatus(status)
	exec.Borrower = domain.Identity(borrower)
	return exec, nil
}

// collectExecutions drains a row set produced by a SELECT over
// executionColumns.
func collectExecutions(rows pgx.Rows) ([]domain.ArbExecution, error) {
	var list []domain.ArbExecution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan execution: %w", err)
		}
		list = append(list, exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: execution rows: %w", err)
	}
	return list, nil
}

// Compile-time interface check.
var _ domain.ExecutionStore = (*ExecutionStore)(nil)
