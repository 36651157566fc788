// Package syncer runs the reconciliation of every configured dataset, one
// after another, and records the outcome of each.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mesh-intelligence/bullpen/internal/csvtable"
	"github.com/mesh-intelligence/bullpen/internal/ledger"
	"github.com/mesh-intelligence/bullpen/internal/logging"
	"github.com/mesh-intelligence/bullpen/internal/reconcile"
	"github.com/mesh-intelligence/bullpen/internal/store"
	"github.com/mesh-intelligence/bullpen/pkg/types"
)

// Persister writes a reconciled table to its destination.
type Persister interface {
	Persist(ctx context.Context, name, runID string, t *types.Table, dest string) (store.Persisted, error)
}

// Recorder keeps the history of runs. *ledger.Ledger implements it.
type Recorder interface {
	BeginRun(ctx context.Context, id string, started time.Time) error
	RecordDataset(ctx context.Context, d ledger.DatasetRun) error
	FinishRun(ctx context.Context, id string, status ledger.Status, finished time.Time, errText string) error
}

// DatasetReport is the outcome of one dataset within a run.
type DatasetReport struct {
	Dataset     string          `json:"dataset" yaml:"dataset"`
	Source      string          `json:"source" yaml:"source"`
	Destination string          `json:"destination" yaml:"destination"`
	Key         types.MergeKey  `json:"key,omitempty" yaml:"key,omitempty"`
	Stats       reconcile.Stats `json:"stats" yaml:"stats"`
	Persisted   store.Persisted `json:"persisted" yaml:"persisted"`
	Status      ledger.Status   `json:"status" yaml:"status"`
	Error       string          `json:"error,omitempty" yaml:"error,omitempty"`
	Err         error           `json:"-" yaml:"-"`
}

// Report summarizes a run.
type Report struct {
	RunID      string          `json:"run_id" yaml:"run_id"`
	Status     ledger.Status   `json:"status" yaml:"status"`
	StartedAt  time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time       `json:"finished_at" yaml:"finished_at"`
	Datasets   []DatasetReport `json:"datasets" yaml:"datasets"`
}

// Failed returns the number of datasets that failed.
func (r Report) Failed() int {
	n := 0
	for _, d := range r.Datasets {
		if d.Status == ledger.StatusFailed {
			n++
		}
	}
	return n
}

// Syncer reconciles datasets into the data directory.
type Syncer struct {
	store    Persister
	recorder Recorder
	now      func() time.Time
	newID    func() string
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithRecorder records every run and dataset outcome to r.
func WithRecorder(r Recorder) Option {
	return func(s *Syncer) { s.recorder = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// WithRunIDs replaces the run ID generator.
func WithRunIDs(fn func() string) Option {
	return func(s *Syncer) { s.newID = fn }
}

// New returns a Syncer persisting through p.
func New(p Persister, opts ...Option) *Syncer {
	s := &Syncer{
		store: p,
		now:   time.Now,
		newID: ledger.NewRunID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reconciles every dataset in cfg in order.
//
// With cfg.FailFast set the first failure stops the run; the remaining
// datasets are reported as skipped and the failure is returned as is.
// Otherwise every dataset is attempted and the failures are joined.
func (s *Syncer) Run(ctx context.Context, cfg types.Config) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, fmt.Errorf("invalid configuration: %w", err)
	}

	rep := Report{
		RunID:     s.newID(),
		Status:    ledger.StatusRunning,
		StartedAt: s.now(),
	}
	log := logging.FromContext(ctx).With().Str("run_id", rep.RunID).Logger()
	ctx = logging.WithLogger(ctx, &log)
	// Ledger writes outlive cancellation so an interrupted run is still
	// closed out.
	bookCtx := context.WithoutCancel(ctx)

	if s.recorder != nil {
		if err := s.recorder.BeginRun(bookCtx, rep.RunID, rep.StartedAt); err != nil {
			return rep, fmt.Errorf("recording run start: %w", err)
		}
	}
	log.Info().Int("datasets", len(cfg.Datasets)).Str("data_dir", cfg.DataDir).Msg("sync started")

	var errs []error
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		errs = append(errs, fmt.Errorf("creating data dir: %w", err))
	} else {
		for _, ds := range cfg.Datasets {
			if len(errs) > 0 && cfg.FailFast {
				break
			}
			if err := ctx.Err(); err != nil {
				errs = append(errs, err)
				break
			}
			dr, err := s.syncDataset(ctx, rep.RunID, cfg, ds)
			rep.Datasets = append(rep.Datasets, dr)
			s.record(bookCtx, rep.RunID, dr)
			if err != nil {
				errs = append(errs, err)
			}
		}
	}
	for i := len(rep.Datasets); i < len(cfg.Datasets); i++ {
		ds := cfg.Datasets[i]
		dr := DatasetReport{
			Dataset:     ds.Name,
			Source:      ds.SourcePath(),
			Destination: ds.DestinationPath(cfg.DataDir),
			Status:      ledger.StatusSkipped,
		}
		rep.Datasets = append(rep.Datasets, dr)
		s.record(bookCtx, rep.RunID, dr)
	}

	var err error
	switch len(errs) {
	case 0:
	case 1:
		err = errs[0]
	default:
		err = errors.Join(errs...)
	}

	rep.FinishedAt = s.now()
	rep.Status = ledger.StatusOK
	errText := ""
	if err != nil {
		rep.Status = ledger.StatusFailed
		errText = err.Error()
	}
	if s.recorder != nil {
		if ferr := s.recorder.FinishRun(bookCtx, rep.RunID, rep.Status, rep.FinishedAt, errText); ferr != nil {
			log.Warn().Err(ferr).Msg("recording run finish")
		}
	}

	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Str("status", string(rep.Status)).
		Int("failed", rep.Failed()).
		Dur("elapsed", rep.FinishedAt.Sub(rep.StartedAt)).
		Msg("sync finished")
	return rep, err
}

func (s *Syncer) syncDataset(ctx context.Context, runID string, cfg types.Config, ds types.Dataset) (DatasetReport, error) {
	log := logging.FromContext(ctx)
	dr := DatasetReport{
		Dataset:     ds.Name,
		Source:      ds.SourcePath(),
		Destination: ds.DestinationPath(cfg.DataDir),
	}
	fail := func(err error) (DatasetReport, error) {
		err = datasetError(err, ds.Name)
		dr.Status = ledger.StatusFailed
		dr.Err = err
		dr.Error = err.Error()
		log.Error().Err(err).
			Str("dataset", ds.Name).
			Str("source", dr.Source).
			Str("destination", dr.Destination).
			Int("source_rows", dr.Stats.SourceRows).
			Int("destination_rows", dr.Stats.DestinationRows).
			Msg("dataset sync failed")
		return dr, err
	}

	opts := csvtable.Options{DateColumns: ds.DateColumns}
	src, err := csvtable.LoadSource(dr.Source, opts)
	if err != nil {
		return fail(err)
	}
	dr.Stats.SourceRows = src.Len()

	dst, err := csvtable.LoadDestination(dr.Destination, opts)
	if err != nil {
		return fail(fmt.Errorf("loading destination: %w", err))
	}
	dr.Stats.DestinationRows = dst.Len()

	key, err := reconcile.SelectKey(src, cfg.Key(), ds.Key)
	if err != nil {
		return fail(err)
	}
	dr.Key = key

	merged, stats, err := reconcile.Reconcile(src, dst, key)
	if err != nil {
		return fail(err)
	}
	dr.Stats = stats

	p, err := s.store.Persist(ctx, ds.Name, runID, merged, dr.Destination)
	dr.Persisted = p
	if err != nil {
		return fail(err)
	}

	dr.Status = ledger.StatusOK
	log.Info().
		Str("dataset", ds.Name).
		Str("key", key.String()).
		Int("source_rows", stats.SourceRows).
		Int("destination_rows", stats.DestinationRows).
		Int("superseded", stats.Superseded).
		Int("result_rows", stats.Result).
		Msg("dataset synced")
	return dr, nil
}

func (s *Syncer) record(ctx context.Context, runID string, dr DatasetReport) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.RecordDataset(ctx, ledger.DatasetRun{
		RunID:           runID,
		Dataset:         dr.Dataset,
		Source:          dr.Source,
		Destination:     dr.Destination,
		MergeKey:        dr.Key.String(),
		SourceRows:      dr.Stats.SourceRows,
		DestinationRows: dr.Stats.DestinationRows,
		Superseded:      dr.Stats.Superseded,
		Retained:        dr.Stats.Retained,
		ResultRows:      dr.Stats.Result,
		BackupPath:      dr.Persisted.BackupPath,
		SnapshotPath:    dr.Persisted.SnapshotPath,
		Status:          dr.Status,
		Error:           dr.Error,
		RecordedAt:      s.now(),
	})
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("dataset", dr.Dataset).Msg("recording dataset outcome")
	}
}

// datasetError names the dataset on err. Typed errors carry it in a field;
// anything else is wrapped.
func datasetError(err error, name string) error {
	for _, sentinel := range []error{
		types.ErrNotFound, types.ErrSchemaMismatch, types.ErrBackupWrite, types.ErrPersistWrite,
	} {
		if errors.Is(err, sentinel) {
			types.AttachDataset(err, name)
			return err
		}
	}
	return fmt.Errorf("dataset %s: %w", name, err)
}
