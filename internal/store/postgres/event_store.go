package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solvios/flashpool/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL. Event payload
// fields are stored as JSONB.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Append persists one event.
func (s *EventStore) Append(ctx context.Context, ev domain.Event) error {
	fieldsJSON, err := json.Marshal(ev.Fields)
	if err != nil {
		return fmt.Errorf("postgres: marshal event fields: %w", err)
	}

	const query = `INSERT INTO pool_events (type, pool, at, fields) VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query, string(ev.Type), ev.Pool, ev.At, fieldsJSON); err != nil {
		return fmt.Errorf("postgres: append event %s: %w", ev.Type, err)
	}
	return nil
}

// AppendBatch persists a slice of events in one transaction, preserving
// order. An empty slice is a no-op.
func (s *EventStore) AppendBatch(ctx context.Context, evs []domain.Event) error {
	if len(evs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, ev := range evs {
		fieldsJSON, err := json.Marshal(ev.Fields)
		if err != nil {
			return fmt.Errorf("postgres: marshal event fields: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO pool_events (type, pool, at, fields) VALUES ($1, $2, $3, $4)`,
			string(ev.Type), ev.Pool, ev.At, fieldsJSON,
		)
		if err != nil {
			return fmt.Errorf("postgres: append event %s: %w", ev.Type, err)
		}
	}

	return tx.Commit(ctx)
}

// ListRecent returns the most recent events, newest first.
func (s *EventStore) ListRecent(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT type, pool, at, fields
		FROM pool_events ORDER BY at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListByPool returns events for one pool with pagination and optional time
// filtering, newest first.
func (s *EventStore) ListByPool(ctx context.Context, pool string, opts domain.ListOpts) ([]domain.Event, error) {
	query := `SELECT type, pool, at, fields FROM pool_events WHERE pool = $1`
	args := []any{pool}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY at DESC, id DESC"

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
		return nil, fmt.Errorf("postgres: list events for pool %s: %w", pool, err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListSince returns events emitted at or after the given time, oldest first,
// for archival passes.
func (s *EventStore) ListSince(ctx context.Context, since time.Time) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT type, pool, at, fields
		FROM pool_events WHERE at >= $1 ORDER BY at ASC, id ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events since %s: %w", since, err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// collectEvents drains a row set of (type, pool, at, fields) rows.
func collectEvents(rows pgx.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var ev domain.Event
		var typ string
		var fieldsJSON []byte

		if err := rows.Scan(&typ, &ev.Pool, &ev.At, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		ev.Type = domain.EventType(typ)

		if fieldsJSON != nil {
			if err := json.Unmarshal(fieldsJSON, &ev.Fields); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal event fields: %w", err)
			}
		}

		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: event rows: %w", err)
	}
	return events, nil
}

// Compile-time interface check.
var _ domain.EventStore = (*EventStore)(nil)
