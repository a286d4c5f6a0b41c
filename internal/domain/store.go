package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ExecutionStore persists arbitrage executions for profit tracking.
type ExecutionStore interface {
	Insert(ctx context.Context, exec ArbExecution) error
	GetByID(ctx context.Context, id string) (ArbExecution, error)
	ListRecent(ctx context.Context, limit int) ([]ArbExecution, error)
	ListByPool(ctx context.Context, pool string, opts ListOpts) ([]ArbExecution, error)
	ListSince(ctx context.Context, since time.Time) ([]ArbExecution, error)
	SumProfit(ctx context.Context, since time.Time) (uint64, error)
}

// EventStore persists the emitted event history.
type EventStore interface {
	Append(ctx context.Context, ev Event) error
	AppendBatch(ctx context.Context, evs []Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
	ListByPool(ctx context.Context, pool string, opts ListOpts) ([]Event, error)
	ListSince(ctx context.Context, since time.Time) ([]Event, error)
}

// SnapshotStore persists pool snapshot history, one row per capture.
type SnapshotStore interface {
	Insert(ctx context.Context, snap PoolSnapshot) error
	Latest(ctx context.Context, poolID string) (PoolSnapshot, error)
	ListLatest(ctx context.Context) ([]PoolSnapshot, error)
	History(ctx context.Context, poolID string, opts ListOpts) ([]PoolSnapshot, error)
}
