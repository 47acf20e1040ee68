package recorder

import (
	"context"

	"CashNudge/internal/model"
)

// NoopRecorder is a no-op implementation used when run history is not kept.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordBatchRun(_ context.Context, _ model.BatchResult) error { return nil }
