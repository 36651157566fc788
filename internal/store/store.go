// Package store persists reconciled tables as CSV files.
//
// Every write follows the same sequence: copy the current destination to its
// backup path, write an immutable per-run snapshot under the state
// directory, then atomically replace the destination. The destination is
// the current pointer and only advances once the snapshot is durable.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/bullpen/internal/csvtable"
	"github.com/mesh-intelligence/bullpen/internal/logging"
	"github.com/mesh-intelligence/bullpen/pkg/types"
)

// BackupSuffix is inserted before the destination's extension to form the
// backup path. Only the most recent backup is kept.
const BackupSuffix = "_backup"

const (
	snapshotDirName = "snapshots"
	snapshotExt     = ".csv"
	filePerm        = 0o644
	dirPerm         = 0o755
)

// Run ID errors.
var (
	ErrEmptyRunID   = errors.New("run id must not be empty")
	ErrInvalidRunID = errors.New("run id is not a valid UUID")
)

// Store writes destination tables and keeps their snapshots.
type Store struct {
	stateDir  string
	retention int
}

// New returns a Store keeping snapshots under stateDir. A retention of zero
// keeps every snapshot.
func New(stateDir string, retention int) *Store {
	return &Store{stateDir: stateDir, retention: retention}
}

// Persisted describes the files touched by one write.
type Persisted struct {
	Destination  string `json:"destination" yaml:"destination"`
	BackupPath   string `json:"backup_path,omitempty" yaml:"backup_path,omitempty"`
	SnapshotPath string `json:"snapshot_path,omitempty" yaml:"snapshot_path,omitempty"`
	Rows         int    `json:"rows" yaml:"rows"`
	Bytes        int    `json:"bytes" yaml:"bytes"`
	Pruned       int    `json:"pruned,omitempty" yaml:"pruned,omitempty"`
}

// Snapshot is one stored version of a dataset.
type Snapshot struct {
	RunID string `json:"run_id" yaml:"run_id"`
	Path  string `json:"path" yaml:"path"`
	Size  int64  `json:"size" yaml:"size"`
}

// BackupPath returns dest with BackupSuffix inserted before its extension.
func BackupPath(dest string) string {
	ext := filepath.Ext(dest)
	return strings.TrimSuffix(dest, ext) + BackupSuffix + ext
}

// SnapshotDir returns the directory holding the snapshots of dataset name.
func (s *Store) SnapshotDir(name string) string {
	label := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(s.stateDir, snapshotDirName, label)
}

// Persist writes t to dest for dataset name as part of run runID.
//
// A failed backup is a *types.BackupWriteError and leaves dest untouched. A
// failed snapshot or destination write is a *types.PersistWriteError; since
// the destination is replaced by rename, it still holds its prior contents.
func (s *Store) Persist(ctx context.Context, name, runID string, t *types.Table, dest string) (Persisted, error) {
	log := logging.FromContext(ctx)
	p := Persisted{Destination: dest, Rows: t.Len()}
	if err := ctx.Err(); err != nil {
		return p, err
	}
	if runID == "" {
		return p, ErrEmptyRunID
	}

	data, err := csvtable.Encode(t)
	if err != nil {
		return p, &types.PersistWriteError{Path: dest, Rows: t.Len(), Err: err}
	}
	p.Bytes = len(data)

	perm := os.FileMode(filePerm)
	info, err := os.Stat(dest)
	switch {
	case err == nil:
		perm = info.Mode().Perm()
		backup := BackupPath(dest)
		if err := copyFileAtomic(dest, backup); err != nil {
			return p, &types.BackupWriteError{Path: dest, BackupPath: backup, Err: err}
		}
		p.BackupPath = backup
		log.Debug().Str("dataset", name).Str("backup", backup).Msg("backed up destination")
	case !errors.Is(err, fs.ErrNotExist):
		return p, &types.BackupWriteError{Path: dest, BackupPath: BackupPath(dest), Err: err}
	}

	snapDir := s.SnapshotDir(name)
	if err := os.MkdirAll(snapDir, dirPerm); err != nil {
		return p, &types.PersistWriteError{Path: snapDir, Rows: t.Len(), Err: err}
	}
	snap := filepath.Join(snapDir, runID+snapshotExt)
	if err := writeFileAtomic(snap, data, filePerm); err != nil {
		return p, &types.PersistWriteError{Path: snap, Rows: t.Len(), Err: err}
	}
	p.SnapshotPath = snap

	if err := writeFileAtomic(dest, data, perm); err != nil {
		return p, &types.PersistWriteError{Path: dest, Rows: t.Len(), Err: err}
	}

	pruned, err := s.prune(name)
	if err != nil {
		log.Warn().Err(err).Str("dataset", name).Msg("pruning snapshots")
	}
	p.Pruned = pruned
	return p, nil
}

// Snapshots lists the snapshots of dataset name, newest first. Run IDs are
// UUID v7, so lexical order is chronological.
func (s *Store) Snapshots(name string) ([]Snapshot, error) {
	dir := s.SnapshotDir(name)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var snaps []Snapshot
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != snapshotExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		snaps = append(snaps, Snapshot{
			RunID: strings.TrimSuffix(e.Name(), snapshotExt),
			Path:  filepath.Join(dir, e.Name()),
			Size:  info.Size(),
		})
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].RunID > snaps[j].RunID })
	return snaps, nil
}

// Restore replaces dest with the snapshot that run runID wrote for dataset
// name. The current destination is backed up first, as in Persist.
func (s *Store) Restore(ctx context.Context, name, runID, dest string) (Persisted, error) {
	p := Persisted{Destination: dest}
	if err := ctx.Err(); err != nil {
		return p, err
	}
	if _, err := uuid.Parse(runID); err != nil {
		return p, fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}

	snap := filepath.Join(s.SnapshotDir(name), runID+snapshotExt)
	data, err := os.ReadFile(snap)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, &types.NotFoundError{Dataset: name, Path: snap, Err: err}
		}
		return p, fmt.Errorf("reading snapshot %s: %w", snap, err)
	}
	p.SnapshotPath = snap
	p.Bytes = len(data)

	if _, err := os.Stat(dest); err == nil {
		backup := BackupPath(dest)
		if err := copyFileAtomic(dest, backup); err != nil {
			return p, &types.BackupWriteError{Dataset: name, Path: dest, BackupPath: backup, Err: err}
		}
		p.BackupPath = backup
	}
	if err := writeFileAtomic(dest, data, filePerm); err != nil {
		return p, &types.PersistWriteError{Dataset: name, Path: dest, Err: err}
	}

	logging.FromContext(ctx).Info().
		Str("dataset", name).
		Str("run_id", runID).
		Str("destination", dest).
		Msg("restored snapshot")
	return p, nil
}

func (s *Store) prune(name string) (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	snaps, err := s.Snapshots(name)
	if err != nil {
		return 0, err
	}
	if len(snaps) <= s.retention {
		return 0, nil
	}
	removed := 0
	for _, snap := range snaps[s.retention:] {
		if err := os.Remove(snap.Path); err != nil {
			return removed, fmt.Errorf("removing %s: %w", snap.Path, err)
		}
		removed++
	}
	return removed, nil
}
