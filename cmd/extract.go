package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/listing-extract/internal/config"
	"github.com/sells-group/listing-extract/internal/extract"
	"github.com/sells-group/listing-extract/internal/model"
	"github.com/sells-group/listing-extract/internal/pipeline"
	"github.com/sells-group/listing-extract/internal/prompt"
	"github.com/sells-group/listing-extract/internal/store"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract job listings from the configured input tables",
	Long: `Processes every expected input table in order. Each table is split into
batches, every batch is sent to the selected provider, and the returned records
are appended to the result table. Batches that cannot be resolved are written
to the skipped-batch or error log.

Examples:
  # Default layout: moiz/split_pak_file_{3,6,...,48}.csv -> output_folder/output1.csv
  listing-extract extract

  # Explicit files through Anthropic
  listing-extract extract --provider anthropic --files jobs.csv,jobs2.xlsx`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyExtractFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := runExtract(ctx, cfg)
		if summary != nil {
			formatSummary(cmd.OutOrStdout(), summary)
		}
		return err
	},
}

func init() {
	f := extractCmd.Flags()
	f.Int("batch-size", 0, "rows per batch (default from config: 2)")
	f.Int("max-retries", 0, "attempts per batch before it is skipped (default from config: 5)")
	f.Float64("rate-limit-delay", 0, "base wait in seconds between calls (default from config: 5)")
	f.String("provider", "", "extraction provider: gemini or anthropic")
	f.String("input-dir", "", "directory holding the input tables")
	f.String("pattern", "", "input file name pattern containing %d")
	f.String("delimiter", "", "CSV field separator (default from config: ,)")
	f.String("sheet", "", "worksheet to read from .xlsx inputs (default: first sheet)")
	f.StringSlice("files", nil, "explicit input files (overrides --pattern)")
	f.String("output-dir", "", "directory for the result table and failure logs")
	f.String("prompt-file", "", "YAML prompt template (default: embedded)")
	rootCmd.AddCommand(extractCmd)
}

// applyExtractFlags copies explicitly set flags over the loaded config.
func applyExtractFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("batch-size") {
		c.Batch.Size, _ = f.GetInt("batch-size")
	}
	if f.Changed("max-retries") {
		c.Extract.MaxRetries, _ = f.GetInt("max-retries")
	}
	if f.Changed("rate-limit-delay") {
		c.Extract.RateLimitDelaySecs, _ = f.GetFloat64("rate-limit-delay")
	}
	if f.Changed("provider") {
		c.Extract.Provider, _ = f.GetString("provider")
	}
	if f.Changed("input-dir") {
		c.Input.Dir, _ = f.GetString("input-dir")
	}
	if f.Changed("pattern") {
		c.Input.Pattern, _ = f.GetString("pattern")
	}
	if f.Changed("delimiter") {
		c.Input.Delimiter, _ = f.GetString("delimiter")
	}
	if f.Changed("sheet") {
		c.Input.Sheet, _ = f.GetString("sheet")
	}
	if f.Changed("files") {
		c.Input.Files, _ = f.GetStringSlice("files")
	}
	if f.Changed("output-dir") {
		c.Output.Dir, _ = f.GetString("output-dir")
	}
	if f.Changed("prompt-file") {
		c.Prompt.File, _ = f.GetString("prompt-file")
	}
}

// runExtract wires the provider, ledger and template into a pipeline run.
// Ledger problems other than a bad driver name only disable the ledger.
func runExtract(ctx context.Context, c *config.Config) (*model.RunSummary, error) {
	provider, err := extract.NewProvider(ctx, c)
	if err != nil {
		return nil, eris.Wrap(err, "extract: init provider")
	}

	tmpl, err := prompt.Load(c.Prompt.File)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{pipeline.WithTemplate(tmpl)}
	st, err := openLedger(ctx)
	if err != nil {
		return nil, err
	}
	if st != nil {
		defer st.Close() //nolint:errcheck
		opts = append(opts, pipeline.WithLedger(st))
	}

	client := extract.NewClient(provider, extract.OptionsFromConfig(c.Extract))
	return pipeline.New(c, client, opts...).Run(ctx)
}

func openLedger(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		return nil, err
	}
	if err != nil {
		zap.L().Warn("extract: run ledger unavailable, continuing without it", zap.Error(err))
		return nil, nil
	}
	if st == nil {
		return nil, nil
	}
	if err := st.Migrate(ctx); err != nil {
		zap.L().Warn("extract: run ledger migration failed, continuing without it", zap.Error(err))
		_ = st.Close()
		return nil, nil
	}
	return st, nil
}

func formatSummary(out io.Writer, s *model.RunSummary) {
	_, _ = fmt.Fprintf(out, "files: %d attempted, %d missing, %d failed\n", s.FilesAttempted, s.FilesMissing, s.FilesFailed)
	_, _ = fmt.Fprintf(out, "batches: %d written, %d skipped, %d errored\n", s.BatchesWritten, s.BatchesSkipped, s.BatchesErrored)
	_, _ = fmt.Fprintf(out, "records written: %d\n", s.RecordsWritten)
}
