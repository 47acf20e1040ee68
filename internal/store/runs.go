package store

import (
	"context"
	"fmt"

	"CashNudge/internal/model"
	"CashNudge/internal/recorder"
)

// RecordBatchRun appends a nightly run summary to batch_runs.
func (s *SQLiteStore) RecordBatchRun(ctx context.Context, res model.BatchResult) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `INSERT INTO batch_runs
		(started_at, finished_at, processed, notified, skipped, ineligible, failed)
		VALUES (?,?,?,?,?,?,?)`,
		unixNano(res.StartedAt), unixNano(res.FinishedAt),
		res.Processed, res.Notified, res.Skipped, res.Ineligible, res.Failed,
	)
	if err != nil {
		return model.Transient(fmt.Errorf("insert batch run: %w", err))
	}
	return nil
}

// RecentBatchRuns returns up to limit runs, newest first.
func (s *SQLiteStore) RecentBatchRuns(ctx context.Context, limit int) ([]model.BatchResult, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `SELECT
		started_at, finished_at, processed, notified, skipped, ineligible, failed
		FROM batch_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, model.Transient(fmt.Errorf("query batch runs: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var out []model.BatchResult
	for rows.Next() {
		var (
			r                 model.BatchResult
			started, finished int64
		)
		if err := rows.Scan(&started, &finished, &r.Processed, &r.Notified,
			&r.Skipped, &r.Ineligible, &r.Failed); err != nil {
			return nil, model.Transient(fmt.Errorf("scan batch run: %w", err))
		}
		r.StartedAt = fromUnixNano(started)
		r.FinishedAt = fromUnixNano(finished)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Transient(err)
	}
	return out, nil
}

var _ recorder.History = (*SQLiteStore)(nil)
