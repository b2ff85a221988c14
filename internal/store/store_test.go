package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-extract/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func newRun() model.Run {
	return model.Run{Provider: "gemini", Model: "gemini-1.5-flash", OutputPath: "output_folder/output1.csv"}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, newRun())
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusRunning, run.Status)
		assert.False(t, run.CreatedAt.IsZero())

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, "gemini", got.Provider)
		assert.Equal(t, "gemini-1.5-flash", got.Model)
		assert.Equal(t, "output_folder/output1.csv", got.OutputPath)
		assert.Equal(t, model.RunStatusRunning, got.Status)
		assert.Nil(t, got.Summary)
	})

	t.Run("CompleteRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, newRun())
		require.NoError(t, err)

		summary := &model.RunSummary{FilesAttempted: 2, FilesMissing: 1, BatchesWritten: 3, RecordsWritten: 7}
		require.NoError(t, s.CompleteRun(ctx, run.ID, model.RunStatusComplete, summary, ""))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		require.NotNil(t, got.Summary)
		assert.Equal(t, *summary, *got.Summary)
		assert.Empty(t, got.Error)
	})

	t.Run("CompleteRunFailed", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, newRun())
		require.NoError(t, err)
		require.NoError(t, s.CompleteRun(ctx, run.ID, model.RunStatusFailed, nil, "context canceled"))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, got.Status)
		assert.Equal(t, "context canceled", got.Error)
		assert.Nil(t, got.Summary)
	})

	t.Run("CompleteRunNotFound", func(t *testing.T) {
		s := newStore(t)
		err := s.CompleteRun(context.Background(), "missing", model.RunStatusComplete, nil, "")
		assert.ErrorContains(t, err, "run not found")
	})

	t.Run("GetRunNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRun(context.Background(), "missing")
		assert.Error(t, err)
	})

	t.Run("ListRuns", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		var ids []string
		for range 3 {
			run, err := s.CreateRun(ctx, newRun())
			require.NoError(t, err)
			ids = append(ids, run.ID)
		}
		require.NoError(t, s.CompleteRun(ctx, ids[0], model.RunStatusComplete, &model.RunSummary{}, ""))

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
		require.NoError(t, err)
		require.Len(t, complete, 1)
		assert.Equal(t, ids[0], complete[0].ID)

		limited, err := s.ListRuns(ctx, RunFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		offset, err := s.ListRuns(ctx, RunFilter{Limit: 10, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, offset, 1)
	})

	t.Run("RecordAndListBatches", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, newRun())
		require.NoError(t, err)

		outcomes := []model.BatchOutcome{
			{RunID: run.ID, File: "a.csv", Start: 0, Rows: 2, Status: model.BatchWritten, Attempts: 1, Records: 2},
			{RunID: run.ID, File: "a.csv", Start: 2, Rows: 2, Status: model.BatchSkipped, Attempts: 5, Error: "max retries exceeded"},
			{RunID: run.ID, File: "b.csv", Start: 0, Rows: 1, Status: model.BatchInvalid, Attempts: 1},
		}
		for i := range outcomes {
			require.NoError(t, s.RecordBatch(ctx, &outcomes[i]))
			assert.NotEmpty(t, outcomes[i].ID)
		}

		all, err := s.ListBatches(ctx, run.ID, BatchFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, model.BatchWritten, all[0].Status)
		assert.Equal(t, 2, all[0].Records)
		assert.Equal(t, "max retries exceeded", all[1].Error)
		assert.Equal(t, 5, all[1].Attempts)

		skipped, err := s.ListBatches(ctx, run.ID, BatchFilter{Status: model.BatchSkipped})
		require.NoError(t, err)
		require.Len(t, skipped, 1)
		assert.Equal(t, 2, skipped[0].Start)

		fileB, err := s.ListBatches(ctx, run.ID, BatchFilter{File: "b.csv"})
		require.NoError(t, err)
		require.Len(t, fileB, 1)
		assert.Equal(t, 1, fileB[0].Rows)

		none, err := s.ListBatches(ctx, "other-run", BatchFilter{})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("MigrateIdempotent", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Migrate(context.Background()))
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
