package types

import (
	"errors"
	"fmt"
	"strings"
)

// Reconciliation errors. Typed errors below match these with errors.Is.
var (
	ErrNotFound        = errors.New("source table not found")
	ErrSchemaMismatch  = errors.New("schema mismatch")
	ErrBackupWrite     = errors.New("backup write failed")
	ErrPersistWrite    = errors.New("persist write failed")
	ErrInvalidDate     = errors.New("invalid date value")
	ErrEmptyMergeKey   = errors.New("merge key must not be empty")
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// NotFoundError reports a missing mandatory source table.
type NotFoundError struct {
	Dataset string
	Path    string
	Err     error
}

func (e *NotFoundError) Error() string {
	return withDataset(e.Dataset, fmt.Sprintf("source %s not found", e.Path))
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Unwrap returns the underlying filesystem error.
func (e *NotFoundError) Unwrap() error { return e.Err }

// SchemaMismatchError reports merge-key columns absent from the source, or
// incompatible source and destination column sets under a partial key.
type SchemaMismatchError struct {
	Dataset            string
	Key                MergeKey
	Missing            []string
	SourceColumns      []string
	DestinationColumns []string
}

func (e *SchemaMismatchError) Error() string {
	var msg string
	if len(e.Missing) > 0 {
		msg = fmt.Sprintf("merge key [%s] columns missing from source: %s",
			e.Key, strings.Join(e.Missing, ", "))
	} else {
		msg = fmt.Sprintf("merge key [%s]: source columns [%s] differ from destination columns [%s]",
			e.Key, strings.Join(e.SourceColumns, ", "), strings.Join(e.DestinationColumns, ", "))
	}
	return withDataset(e.Dataset, msg)
}

// Is matches ErrSchemaMismatch.
func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

// BackupWriteError reports a failed safety copy. The destination was not
// modified.
type BackupWriteError struct {
	Dataset    string
	Path       string
	BackupPath string
	Err        error
}

func (e *BackupWriteError) Error() string {
	return withDataset(e.Dataset, fmt.Sprintf("backup %s to %s: %v", e.Path, e.BackupPath, e.Err))
}

// Is matches ErrBackupWrite.
func (e *BackupWriteError) Is(target error) bool { return target == ErrBackupWrite }

// Unwrap returns the underlying write error.
func (e *BackupWriteError) Unwrap() error { return e.Err }

// PersistWriteError reports a failed write of the merged table. Rows is the
// row count that was being written.
type PersistWriteError struct {
	Dataset string
	Path    string
	Rows    int
	Err     error
}

func (e *PersistWriteError) Error() string {
	return withDataset(e.Dataset, fmt.Sprintf("write %d rows to %s: %v", e.Rows, e.Path, e.Err))
}

// Is matches ErrPersistWrite.
func (e *PersistWriteError) Is(target error) bool { return target == ErrPersistWrite }

// Unwrap returns the underlying write error.
func (e *PersistWriteError) Unwrap() error { return e.Err }

// AttachDataset sets the dataset name on any typed error in err's chain that
// does not carry one yet.
func AttachDataset(err error, dataset string) {
	var nf *NotFoundError
	if errors.As(err, &nf) && nf.Dataset == "" {
		nf.Dataset = dataset
	}
	var sm *SchemaMismatchError
	if errors.As(err, &sm) && sm.Dataset == "" {
		sm.Dataset = dataset
	}
	var bw *BackupWriteError
	if errors.As(err, &bw) && bw.Dataset == "" {
		bw.Dataset = dataset
	}
	var pw *PersistWriteError
	if errors.As(err, &pw) && pw.Dataset == "" {
		pw.Dataset = dataset
	}
}

func withDataset(dataset, msg string) string {
	if dataset == "" {
		return msg
	}
	return "dataset " + dataset + ": " + msg
}
