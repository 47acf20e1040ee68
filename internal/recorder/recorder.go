// Package recorder keeps a history of nightly batch runs.
package recorder

import (
	"context"

	"CashNudge/internal/model"
)

// Recorder persists batch run summaries for later inspection.
type Recorder interface {
	RecordBatchRun(ctx context.Context, res model.BatchResult) error
}

// History is a Recorder that can also list past runs.
type History interface {
	Recorder
	RecentBatchRuns(ctx context.Context, limit int) ([]model.BatchResult, error)
}
