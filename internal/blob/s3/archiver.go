package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/solvios/flashpool/internal/domain"
)

// ---------------------------------------------------------------------------
// Narrow store interfaces required by the archiver. The Postgres stores
// satisfy these implicitly through their ListSince methods.
// ---------------------------------------------------------------------------

// ExecutionArchiveStore provides read access to execution history for
// archival purposes.
type ExecutionArchiveStore interface {
	ListSince(ctx context.Context, since time.Time) ([]domain.ArbExecution, error)
}

// EventArchiveStore provides read access to event history for archival
// purposes.
type EventArchiveStore interface {
	ListSince(ctx context.Context, since time.Time) ([]domain.Event, error)
}

// Archiver implements domain.Archiver by querying the stores for recent
// records, serializing them to JSONL, and uploading the result to S3.
//
// Archives are additive copies; the primary store is never pruned here.
type Archiver struct {
	writer     domain.BlobWriter
	executions ExecutionArchiveStore
	events     EventArchiveStore
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer domain.BlobWriter, executions ExecutionArchiveStore, events EventArchiveStore) *Archiver {
	return &Archiver{
		writer:     writer,
		executions: executions,
		events:     events,
	}
}

// ArchiveExecutions copies all executions created at or after since to S3 at
// archive/executions/YYYY-MM-DD.jsonl and returns the number of archived
// records. Nothing is uploaded when the window is empty.
func (a *Archiver) ArchiveExecutions(ctx context.Context, since time.Time) (int64, error) {
	execs, err := a.executions.ListSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive executions query: %w", err)
	}
	if len(execs) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(execs)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive executions marshal: %w", err)
	}

	path := archivePath("executions", since)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive executions upload: %w", err)
	}

	return int64(len(execs)), nil
}

// ArchiveEvents copies all events emitted at or after since to S3 at
// archive/events/YYYY-MM-DD.jsonl and returns the number of archived
// records. Nothing is uploaded when the window is empty.
func (a *Archiver) ArchiveEvents(ctx context.Context, since time.Time) (int64, error) {
	events, err := a.events.ListSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive events query: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(events)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive events marshal: %w", err)
	}

	path := archivePath("events", since)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive events upload: %w", err)
	}

	return int64(len(events)), nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// archivePath builds the S3 key for an archive file, partitioned by the day
// the window opens.
//
//	archive/executions/2026-08-25.jsonl
//	archive/events/2026-08-25.jsonl
func archivePath(kind string, since time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, since.UTC().Format("2006-01-02"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
