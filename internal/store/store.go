// Package store persists the run ledger: one row per extraction run and one
// per batch outcome.
package store

import (
	"context"

	"github.com/sells-group/listing-extract/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// BatchFilter specifies criteria for listing batch outcomes of a run.
type BatchFilter struct {
	Status model.BatchStatus `json:"status,omitempty"`
	File   string            `json:"file,omitempty"`
}

// Store defines the persistence interface for the run ledger.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run model.Run) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary, errMsg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Batches
	RecordBatch(ctx context.Context, outcome *model.BatchOutcome) error
	ListBatches(ctx context.Context, runID string, filter BatchFilter) ([]model.BatchOutcome, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
