package model

import "time"

// RunStatus represents the lifecycle state of an extraction run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one invocation of the extraction pipeline.
type Run struct {
	ID         string      `json:"id"`
	Provider   string      `json:"provider"`
	Model      string      `json:"model"`
	OutputPath string      `json:"output_path"`
	Status     RunStatus   `json:"status"`
	Summary    *RunSummary `json:"summary,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// RunSummary counts what happened during a run.
type RunSummary struct {
	FilesAttempted int `json:"files_attempted"`
	FilesMissing   int `json:"files_missing"`
	FilesFailed    int `json:"files_failed"`
	BatchesWritten int `json:"batches_written"`
	BatchesSkipped int `json:"batches_skipped"`
	BatchesErrored int `json:"batches_errored"`
	RecordsWritten int `json:"records_written"`
}

// Batches returns the number of batches that reached a terminal outcome.
func (s RunSummary) Batches() int {
	return s.BatchesWritten + s.BatchesSkipped + s.BatchesErrored
}

// Add folds a batch outcome into the summary.
func (s *RunSummary) Add(o BatchOutcome) {
	switch o.Status {
	case BatchWritten:
		s.BatchesWritten++
		s.RecordsWritten += o.Records
	case BatchSkipped:
		s.BatchesSkipped++
	case BatchParseFailed, BatchInvalid, BatchWriteFailed:
		s.BatchesErrored++
	}
}

// BatchStatus is the terminal state of one batch.
type BatchStatus string

const (
	// BatchWritten means the records were appended to the result table.
	BatchWritten BatchStatus = "written"
	// BatchSkipped means every extraction attempt failed.
	BatchSkipped BatchStatus = "skipped"
	// BatchParseFailed means the response held no decodable JSON array.
	BatchParseFailed BatchStatus = "parse_failed"
	// BatchInvalid means the decoded response was not a list of records.
	BatchInvalid BatchStatus = "invalid"
	// BatchWriteFailed means appending to the result table failed.
	BatchWriteFailed BatchStatus = "write_failed"
)

// BatchOutcome records how one batch of one input file ended.
type BatchOutcome struct {
	ID        string      `json:"id"`
	RunID     string      `json:"run_id"`
	File      string      `json:"file"`
	Start     int         `json:"start"`
	Rows      int         `json:"rows"`
	Status    BatchStatus `json:"status"`
	Attempts  int         `json:"attempts"`
	Records   int         `json:"records"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
