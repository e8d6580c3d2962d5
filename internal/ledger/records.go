package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chatscribe/internal/job"
)

// Record is one job's history row.
type Record struct {
	ID          string
	BatchID     string
	ArchiveName string
	State       job.State
	Progress    float64
	ResultPath  string
	FailedStage string
	Failure     string
	CreatedAt   time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
	UpdatedAt   time.Time
}

// ErrNotFound indicates the requested job has no history row.
var ErrNotFound = errors.New("ledger: job not found")

// RecordSnapshot upserts the job's current snapshot into its history row.
func (s *Store) RecordSnapshot(ctx context.Context, batchID string, snap job.Snapshot) error {
	const query = `
INSERT INTO jobs (id, batch_id, archive_name, state, progress, result_path, failed_stage, failure, created_at, started_at, finished_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    state = excluded.state,
    progress = excluded.progress,
    result_path = excluded.result_path,
    failed_stage = excluded.failed_stage,
    failure = excluded.failure,
    started_at = excluded.started_at,
    finished_at = excluded.finished_at,
    updated_at = excluded.updated_at`
	return s.execWithRetry(ctx, query,
		snap.ID,
		batchID,
		snap.ArchiveName,
		string(snap.State),
		snap.Progress,
		snap.Result,
		snap.FailedStage,
		snap.Cause,
		formatTime(snap.CreatedAt),
		formatTime(snap.StartedAt),
		formatTime(snap.FinishedAt),
		formatTime(time.Now()),
	)
}

// Get returns the history row for one job.
func (s *Store) Get(ctx context.Context, jobID string) (Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, selectClause+" WHERE id = ?", jobID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return record, err
}

// List returns the most recently updated history rows, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, selectClause+" ORDER BY updated_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListBatch returns every history row recorded for one batch.
func (s *Store) ListBatch(ctx context.Context, batchID string) ([]Record, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, selectClause+" WHERE batch_id = ? ORDER BY created_at, id", batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch jobs: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Clear removes every history row.
func (s *Store) Clear(ctx context.Context) error {
	return s.execWithRetry(ctx, "DELETE FROM jobs")
}

const selectClause = `
SELECT id, batch_id, archive_name, state, progress, result_path, failed_stage, failure, created_at, started_at, finished_at, updated_at
FROM jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		record    Record
		state     string
		createdAt string
		startedAt string
		finished  string
		updatedAt string
	)
	err := row.Scan(
		&record.ID,
		&record.BatchID,
		&record.ArchiveName,
		&state,
		&record.Progress,
		&record.ResultPath,
		&record.FailedStage,
		&record.Failure,
		&createdAt,
		&startedAt,
		&finished,
		&updatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	record.State = job.State(state)
	record.CreatedAt = parseTime(createdAt)
	record.StartedAt = parseTime(startedAt)
	record.FinishedAt = parseTime(finished)
	record.UpdatedAt = parseTime(updatedAt)
	return record, nil
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return records, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
