package ledger

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "state", FileName))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestNewRunIDIsTimeOrdered(t *testing.T) {
	a := NewRunID()
	time.Sleep(2 * time.Millisecond)
	b := NewRunID()
	assert.Len(t, a, 36)
	assert.Less(t, a, b)
}

func TestRunLifecycle(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()
	start := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.BeginRun(ctx, "run-1", start))

	run, err := l.Run(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, run.Status)
	assert.True(t, run.StartedAt.Equal(start))
	assert.Nil(t, run.FinishedAt)

	require.NoError(t, l.RecordDataset(ctx, DatasetRun{
		RunID:           "run-1",
		Dataset:         "mlb_nrfi_predictions.csv",
		Source:          "/src/mlb_nrfi_predictions.csv",
		Destination:     "/data/mlb_nrfi_predictions.csv",
		MergeKey:        "Game Date,Away Team,Home Team",
		SourceRows:      3,
		DestinationRows: 5,
		Superseded:      2,
		Retained:        3,
		ResultRows:      6,
		SnapshotPath:    "/state/snapshots/mlb_nrfi_predictions/run-1.csv",
		Status:          StatusOK,
	}))
	require.NoError(t, l.RecordDataset(ctx, DatasetRun{
		RunID:       "run-1",
		Dataset:     "mlb_nrfi_results_full.csv",
		Source:      "/src/mlb_nrfi_results_full.csv",
		Destination: "/data/mlb_nrfi_results_full.csv",
		Status:      StatusFailed,
		Error:       "source not found",
	}))

	end := start.Add(3 * time.Second)
	require.NoError(t, l.FinishRun(ctx, "run-1", StatusFailed, end, "source not found"))

	run, err = l.Run(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, 2, run.Datasets)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, "source not found", run.Error)
	require.NotNil(t, run.FinishedAt)
	assert.True(t, run.FinishedAt.Equal(end))

	ds, err := l.Datasets(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, "mlb_nrfi_predictions.csv", ds[0].Dataset)
	assert.Equal(t, 6, ds[0].ResultRows)
	assert.Equal(t, 2, ds[0].Superseded)
	assert.Equal(t, StatusOK, ds[0].Status)
	assert.False(t, ds[0].RecordedAt.IsZero())
	assert.Equal(t, StatusFailed, ds[1].Status)
}

func TestRunsNewestFirstWithLimit(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()
	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, l.BeginRun(ctx, id, base.Add(time.Duration(i)*time.Minute)))
	}

	runs, err := l.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)

	all, err := l.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUnknownRun(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	_, err := l.Run(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = l.FinishRun(ctx, "missing", StatusOK, time.Now(), "")
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = l.RecordDataset(ctx, DatasetRun{RunID: "missing", Dataset: "x", Status: StatusOK})
	assert.ErrorIs(t, err, ErrRunNotFound)

	ds, err := l.Datasets(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, ds)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	ctx := context.Background()

	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.BeginRun(ctx, "run-1", time.Now()))
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "Close is idempotent")

	assert.ErrorIs(t, l.BeginRun(ctx, "run-2", time.Now()), ErrClosed)

	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()
	runs, err := l.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}

func TestTimestampsSortLexically(t *testing.T) {
	a := formatTime(time.Date(2024, 4, 1, 0, 0, 5, 0, time.UTC))
	b := formatTime(time.Date(2024, 4, 1, 0, 0, 5, 100, time.UTC))
	assert.Less(t, a, b)
	assert.True(t, strings.HasSuffix(a, "Z"))
}
