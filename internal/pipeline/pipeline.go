// Package pipeline drives the extraction run: input files are split into
// batches, each batch is sent for extraction, and the parsed records land in
// the result table or one of the failure logs.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-extract/internal/batch"
	"github.com/sells-group/listing-extract/internal/config"
	"github.com/sells-group/listing-extract/internal/extract"
	"github.com/sells-group/listing-extract/internal/faillog"
	"github.com/sells-group/listing-extract/internal/model"
	"github.com/sells-group/listing-extract/internal/parse"
	"github.com/sells-group/listing-extract/internal/prompt"
	"github.com/sells-group/listing-extract/internal/sink"
	"github.com/sells-group/listing-extract/internal/store"
	"github.com/sells-group/listing-extract/internal/table"
)

// Submitter sends one batch prompt for extraction.
type Submitter interface {
	Submit(ctx context.Context, batchStart int, prompt string) (extract.Result, error)
}

// Driver runs the pipeline over the configured input files. A Driver is
// single-use: Run opens (and truncates) the outputs, processes every file
// once, and closes them.
type Driver struct {
	cfg       *config.Config
	files     []string
	client    Submitter
	template  prompt.Template
	ledger    store.Store
	provider  string
	modelName string

	sink    *sink.CSV
	logs    *faillog.Logs
	runID   string
	summary model.RunSummary
}

// Option customizes a Driver.
type Option func(*Driver)

// WithLedger records the run and every batch outcome in st.
func WithLedger(st store.Store) Option {
	return func(d *Driver) { d.ledger = st }
}

// WithTemplate overrides the default prompt template.
func WithTemplate(t prompt.Template) Option {
	return func(d *Driver) { d.template = t }
}

// WithFiles overrides the input file list derived from cfg.Input.
func WithFiles(files []string) Option {
	return func(d *Driver) { d.files = files }
}

// New creates a Driver.
func New(cfg *config.Config, client Submitter, opts ...Option) *Driver {
	d := &Driver{
		cfg:       cfg,
		files:     InputFiles(cfg.Input),
		client:    client,
		template:  prompt.Default(),
		provider:  cfg.Extract.Provider,
		modelName: modelFor(cfg),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func modelFor(cfg *config.Config) string {
	if cfg.Extract.Provider == config.ProviderAnthropic {
		return cfg.Anthropic.Model
	}
	return cfg.Gemini.Model
}

// RunID returns the ledger id of the current run, or "" without a ledger.
func (d *Driver) RunID() string { return d.runID }

// Run processes every expected input file in order. Batch and file failures
// are logged and never stop the run; only a failure to open the outputs or a
// cancelled context does.
func (d *Driver) Run(ctx context.Context) (*model.RunSummary, error) {
	start := time.Now()
	log := zap.L().With(zap.String("provider", d.provider), zap.String("model", d.modelName))

	if err := d.openOutputs(); err != nil {
		return nil, err
	}
	defer d.closeOutputs()

	d.startRun(ctx)
	log.Info("pipeline: starting run",
		zap.String("run_id", d.runID),
		zap.Int("files", len(d.files)),
		zap.Int("batch_size", d.cfg.Batch.Size),
	)

	var runErr error
	for _, path := range d.files {
		if err := d.ProcessFile(ctx, path); err != nil {
			runErr = err
			break
		}
	}

	summary := d.summary
	d.finishRun(ctx, runErr, &summary)

	fields := []zap.Field{
		zap.String("run_id", d.runID),
		zap.Int("files_attempted", summary.FilesAttempted),
		zap.Int("files_missing", summary.FilesMissing),
		zap.Int("files_failed", summary.FilesFailed),
		zap.Int("batches_written", summary.BatchesWritten),
		zap.Int("batches_skipped", summary.BatchesSkipped),
		zap.Int("batches_errored", summary.BatchesErrored),
		zap.Int("records_written", summary.RecordsWritten),
		zap.Duration("elapsed", time.Since(start)),
	}
	if runErr != nil {
		log.Error("pipeline: run stopped", append(fields, zap.Error(runErr))...)
		return &summary, eris.Wrap(runErr, "pipeline: run")
	}
	log.Info("pipeline: run complete", fields...)
	return &summary, nil
}

// ProcessFile loads one input file and processes its batches in order. A
// missing or unreadable file is logged and skipped. Only context
// cancellation is returned.
func (d *Driver) ProcessFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := zap.L().With(zap.String("file", path))
	d.summary.FilesAttempted++

	t, err := table.Load(path, table.Options{
		Delimiter: d.cfg.Input.DelimiterRune(),
		Sheet:     d.cfg.Input.Sheet,
	})
	if errors.Is(err, table.ErrNotFound) {
		d.summary.FilesMissing++
		log.Info("pipeline: file not found, skipping")
		return nil
	}
	if err != nil {
		d.summary.FilesFailed++
		log.Error("pipeline: failed to load file, skipping", zap.Error(err))
		return nil
	}

	log.Info("pipeline: file loaded", zap.Int("rows", t.Len()), zap.Strings("columns", t.Columns))
	if ce := log.Check(zap.DebugLevel, "pipeline: file head"); ce != nil {
		ce.Write(zap.String("head", batch.Render(t.Head(5))))
	}

	for b := range batch.Split(t, d.cfg.Batch.Size) {
		if err := d.processBatch(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// processBatch drives one batch to a terminal outcome. It returns an error
// only when the context is done.
func (d *Driver) processBatch(ctx context.Context, b batch.Batch) error {
	log := zap.L().With(zap.String("file", b.File), zap.Int("batch_start", b.Start))
	log.Info("pipeline: processing batch", zap.Int("rows", b.Len()))

	excerpt := b.Render()
	res, err := d.client.Submit(ctx, b.Start, d.template.Build(excerpt))

	outcome := model.BatchOutcome{
		RunID:    d.runID,
		File:     b.File,
		Start:    b.Start,
		Rows:     b.Len(),
		Attempts: res.Attempts,
	}

	var mre *extract.MaxRetriesError
	switch {
	case errors.As(err, &mre):
		log.Warn("pipeline: max retries reached, skipping batch", zap.Int("attempts", mre.Attempts), zap.Error(mre.Err))
		outcome.Status = model.BatchSkipped
		outcome.Error = err.Error()
		d.failLog(log, d.logs.Skipped(b.Start, excerpt))
	case err != nil:
		return err
	default:
		d.handleResponse(log, b, res.Text, &outcome)
	}

	d.summary.Add(outcome)
	d.recordBatch(ctx, log, &outcome)
	return nil
}

// handleResponse parses, validates and writes one successful response.
func (d *Driver) handleResponse(log *zap.Logger, b batch.Batch, text string, outcome *model.BatchOutcome) {
	records, err := parse.Records(text)

	var (
		extErr   *parse.ExtractionError
		decErr   *parse.DecodeError
		shapeErr *parse.ShapeError
	)
	switch {
	case errors.As(err, &extErr):
		log.Warn("pipeline: no JSON array in response", zap.Error(err))
		outcome.Status = model.BatchParseFailed
		outcome.Error = err.Error()
		d.failLog(log, d.logs.Undecodable(b.Start, extErr.Raw))
		return
	case errors.As(err, &decErr):
		log.Warn("pipeline: error decoding JSON", zap.Error(err))
		outcome.Status = model.BatchParseFailed
		outcome.Error = err.Error()
		d.failLog(log, d.logs.Undecodable(b.Start, decErr.Content()))
		return
	case errors.As(err, &shapeErr):
		log.Warn("pipeline: response is not a list of records", zap.Error(err))
		outcome.Status = model.BatchInvalid
		outcome.Error = err.Error()
		d.failLog(log, d.logs.Invalid(b.Start, shapeErr.Content()))
		return
	case err != nil:
		log.Warn("pipeline: unexpected parse failure", zap.Error(err))
		outcome.Status = model.BatchParseFailed
		outcome.Error = err.Error()
		d.failLog(log, d.logs.Undecodable(b.Start, text))
		return
	}

	n, err := d.sink.Append(records)
	if err != nil {
		log.Error("pipeline: failed to write records", zap.Int("records", len(records)), zap.Error(err))
		outcome.Status = model.BatchWriteFailed
		outcome.Error = err.Error()
		d.failLog(log, d.logs.WriteFailed(b.Start, err.Error()))
		return
	}

	outcome.Status = model.BatchWritten
	outcome.Records = n
	log.Info("pipeline: batch written", zap.Int("records", n), zap.String("output", d.sink.Path()))
}

func (d *Driver) failLog(log *zap.Logger, err error) {
	if err != nil {
		log.Error("pipeline: failed to write failure log entry", zap.Error(err))
	}
}

func (d *Driver) openOutputs() error {
	out, err := sink.Open(d.cfg.Output.ResultPath())
	if err != nil {
		return eris.Wrap(err, "pipeline: open result table")
	}
	logs, err := faillog.Open(d.cfg.Output.SkippedPath(), d.cfg.Output.ErrorPath())
	if err != nil {
		out.Close() //nolint:errcheck
		return eris.Wrap(err, "pipeline: open failure logs")
	}
	d.sink, d.logs = out, logs
	return nil
}

func (d *Driver) closeOutputs() {
	if err := d.sink.Close(); err != nil {
		zap.L().Error("pipeline: close result table", zap.Error(err))
	}
	if err := d.logs.Close(); err != nil {
		zap.L().Error("pipeline: close failure logs", zap.Error(err))
	}
}

// Ledger failures are logged and never affect the run.

func (d *Driver) startRun(ctx context.Context) {
	if d.ledger == nil {
		return
	}
	run, err := d.ledger.CreateRun(ctx, model.Run{
		Provider:   d.provider,
		Model:      d.modelName,
		OutputPath: d.cfg.Output.ResultPath(),
	})
	if err != nil {
		zap.L().Warn("pipeline: failed to create run record", zap.Error(err))
		return
	}
	d.runID = run.ID
}

func (d *Driver) recordBatch(ctx context.Context, log *zap.Logger, o *model.BatchOutcome) {
	if d.ledger == nil || d.runID == "" {
		return
	}
	if err := d.ledger.RecordBatch(ctx, o); err != nil {
		log.Warn("pipeline: failed to record batch outcome", zap.Error(err))
	}
}

func (d *Driver) finishRun(ctx context.Context, runErr error, summary *model.RunSummary) {
	if d.ledger == nil || d.runID == "" {
		return
	}
	status, msg := model.RunStatusComplete, ""
	if runErr != nil {
		status, msg = model.RunStatusFailed, runErr.Error()
	}
	// The run context may already be cancelled; the final status still has to land.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := d.ledger.CompleteRun(ctx, d.runID, status, summary, msg); err != nil {
		zap.L().Warn("pipeline: failed to complete run record", zap.String("run_id", d.runID), zap.Error(err))
	}
}
