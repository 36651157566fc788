package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/bullpen/pkg/types"
)

func sampleTable(prob string) *types.Table {
	schema := types.Schema{
		{Name: "Game Date", Kind: types.KindDate},
		{Name: "Away Team", Kind: types.KindText},
		{Name: "Home Team", Kind: types.KindText},
		{Name: "prob", Kind: types.KindNumber},
	}
	return types.NewTable(schema,
		types.Row{types.Date("2024-04-01"), types.Text("A"), types.Text("B"), types.Number(prob)},
	)
}

func TestBackupPath(t *testing.T) {
	tests := []struct {
		dest string
		want string
	}{
		{"data/mlb_nrfi_predictions.csv", "data/mlb_nrfi_predictions_backup.csv"},
		{"/abs/x.tar.csv", "/abs/x.tar_backup.csv"},
		{"noext", "noext_backup"},
	}
	for _, tt := range tests {
		t.Run(tt.dest, func(t *testing.T) {
			assert.Equal(t, tt.want, BackupPath(tt.dest))
		})
	}
}

func TestPersistNewDestination(t *testing.T) {
	dir := t.TempDir()
	st := New(filepath.Join(dir, "state"), 0)
	dest := filepath.Join(dir, "preds.csv")

	p, err := st.Persist(context.Background(), "preds.csv", "run-001", sampleTable("72"), dest)
	require.NoError(t, err)

	assert.Empty(t, p.BackupPath, "no backup without a prior destination")
	assert.NoFileExists(t, BackupPath(dest))
	assert.Equal(t, 1, p.Rows)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "Game Date,Away Team,Home Team,prob\n2024-04-01,A,B,72\n", string(got))
	assert.Equal(t, len(got), p.Bytes)

	snap, err := os.ReadFile(p.SnapshotPath)
	require.NoError(t, err)
	assert.Equal(t, got, snap)
	assert.Equal(t, filepath.Join(dir, "state", "snapshots", "preds", "run-001.csv"), p.SnapshotPath)
}

func TestPersistBacksUpPriorBytesExactly(t *testing.T) {
	dir := t.TempDir()
	st := New(filepath.Join(dir, "state"), 0)
	dest := filepath.Join(dir, "preds.csv")

	prior := []byte("Game Date,Away Team\r\n04/01/2024,A\r\n\"quoted, cell\",B\r\n")
	require.NoError(t, os.WriteFile(dest, prior, 0o600))

	p, err := st.Persist(context.Background(), "preds.csv", "run-001", sampleTable("72"), dest)
	require.NoError(t, err)
	require.Equal(t, BackupPath(dest), p.BackupPath)

	backup, err := os.ReadFile(p.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, prior, backup)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "destination keeps its mode")
}

func TestPersistBackupFailureLeavesDestination(t *testing.T) {
	dir := t.TempDir()
	st := New(filepath.Join(dir, "state"), 0)
	dest := filepath.Join(dir, "preds.csv")

	prior := []byte("old contents\n")
	require.NoError(t, os.WriteFile(dest, prior, 0o644))
	// A directory at the backup path makes the rename fail.
	require.NoError(t, os.MkdirAll(filepath.Join(BackupPath(dest), "blocker"), 0o755))

	_, err := st.Persist(context.Background(), "preds.csv", "run-001", sampleTable("72"), dest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrBackupWrite))

	var bwe *types.BackupWriteError
	require.True(t, errors.As(err, &bwe))
	assert.Equal(t, dest, bwe.Path)
	assert.Equal(t, BackupPath(dest), bwe.BackupPath)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, prior, got)

	snaps, err := st.Snapshots("preds.csv")
	require.NoError(t, err)
	assert.Empty(t, snaps, "no snapshot after a failed backup")
}

func TestPersistWriteFailure(t *testing.T) {
	dir := t.TempDir()
	st := New(filepath.Join(dir, "state"), 0)
	dest := filepath.Join(dir, "missing", "preds.csv")

	_, err := st.Persist(context.Background(), "preds.csv", "run-001", sampleTable("72"), dest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrPersistWrite))

	var pwe *types.PersistWriteError
	require.True(t, errors.As(err, &pwe))
	assert.Equal(t, dest, pwe.Path)
	assert.Equal(t, 1, pwe.Rows)
}

func TestPersistRejectsEmptyRunID(t *testing.T) {
	dir := t.TempDir()
	st := New(dir, 0)
	_, err := st.Persist(context.Background(), "preds.csv", "", sampleTable("72"), filepath.Join(dir, "p.csv"))
	assert.ErrorIs(t, err, ErrEmptyRunID)
}

func TestPersistHonorsCancelledContext(t *testing.T) {
	dir := t.TempDir()
	st := New(dir, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := filepath.Join(dir, "p.csv")
	_, err := st.Persist(ctx, "p.csv", "run-001", sampleTable("72"), dest)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, dest)
}

func TestPersistPrunesOldestSnapshots(t *testing.T) {
	dir := t.TempDir()
	st := New(filepath.Join(dir, "state"), 2)
	dest := filepath.Join(dir, "preds.csv")
	ctx := context.Background()

	var last Persisted
	for i, id := range []string{"run-001", "run-002", "run-003"} {
		p, err := st.Persist(ctx, "preds.csv", id, sampleTable(string(rune('1'+i))), dest)
		require.NoError(t, err)
		last = p
	}
	assert.Equal(t, 1, last.Pruned)

	snaps, err := st.Snapshots("preds.csv")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "run-003", snaps[0].RunID)
	assert.Equal(t, "run-002", snaps[1].RunID)
}

func TestSnapshotsMissingDir(t *testing.T) {
	st := New(t.TempDir(), 0)
	snaps, err := st.Snapshots("never.csv")
	require.NoError(t, err)
	assert.Nil(t, snaps)
}

func TestRestore(t *testing.T) {
	dir := t.TempDir()
	st := New(filepath.Join(dir, "state"), 0)
	dest := filepath.Join(dir, "preds.csv")
	ctx := context.Background()

	firstID, secondID := uuid.NewString(), uuid.NewString()
	first, err := st.Persist(ctx, "preds.csv", firstID, sampleTable("60"), dest)
	require.NoError(t, err)
	_, err = st.Persist(ctx, "preds.csv", secondID, sampleTable("72"), dest)
	require.NoError(t, err)
	current, err := os.ReadFile(dest)
	require.NoError(t, err)

	p, err := st.Restore(ctx, "preds.csv", firstID, dest)
	require.NoError(t, err)
	assert.Equal(t, first.SnapshotPath, p.SnapshotPath)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	want, err := os.ReadFile(first.SnapshotPath)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	backup, err := os.ReadFile(BackupPath(dest))
	require.NoError(t, err)
	assert.Equal(t, current, backup, "restore backs up the replaced destination")
}

func TestRestoreUnknownRun(t *testing.T) {
	dir := t.TempDir()
	st := New(dir, 0)
	_, err := st.Restore(context.Background(), "preds.csv", uuid.NewString(), filepath.Join(dir, "p.csv"))
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRestoreRejectsInvalidRunID(t *testing.T) {
	dir := t.TempDir()
	st := New(filepath.Join(dir, "state"), 0)
	dest := filepath.Join(dir, "preds.csv")

	// A file the run ID would reach by walking out of the snapshot dir.
	outside := filepath.Join(dir, "state", "x.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(outside), 0o755))
	require.NoError(t, os.WriteFile(outside, []byte("a\n1\n"), 0o644))

	for _, id := range []string{"../../x", "nope", ""} {
		t.Run(id, func(t *testing.T) {
			_, err := st.Restore(context.Background(), "preds.csv", id, dest)
			assert.ErrorIs(t, err, ErrInvalidRunID)
			assert.NoFileExists(t, dest)
		})
	}
}
