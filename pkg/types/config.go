package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Config holds everything one bullpen invocation needs: where the dashboard
// data lives, which datasets to reconcile into it, and how runs are kept.
type Config struct {
	DataDir           string    `mapstructure:"data_dir" yaml:"data_dir,omitempty"`
	StateDir          string    `mapstructure:"state_dir" yaml:"state_dir,omitempty"`
	ModelArtifact     string    `mapstructure:"model_artifact" yaml:"model_artifact,omitempty"`
	SnapshotRetention int       `mapstructure:"snapshot_retention" yaml:"snapshot_retention"`
	FailFast          bool      `mapstructure:"fail_fast" yaml:"fail_fast"`
	CanonicalKey      MergeKey  `mapstructure:"canonical_key" yaml:"canonical_key,omitempty"`
	Datasets          []Dataset `mapstructure:"datasets" yaml:"datasets"`
}

// Defaults applied when the configuration leaves a field unset.
const (
	DefaultSnapshotRetention = 10
	DefaultModelArtifact     = "model_rf_real.pkl"
)

// Config validation errors.
var (
	ErrDataDirEmpty        = errors.New("data directory must not be empty")
	ErrNoDatasets          = errors.New("no datasets configured")
	ErrDatasetNameEmpty    = errors.New("dataset name must not be empty")
	ErrDatasetNameInvalid  = errors.New("dataset name must be a plain file name")
	ErrDatasetSourceEmpty  = errors.New("dataset source directory must not be empty")
	ErrDatasetDuplicate    = errors.New("duplicate dataset name")
	ErrRetentionInvalid    = errors.New("snapshot retention must not be negative")
	ErrDatasetSameLocation = errors.New("dataset source and destination are the same file")
)

// Validate checks that the Config is well-formed. Errors wrap a sentinel
// from this package.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	if c.SnapshotRetention < 0 {
		return ErrRetentionInvalid
	}
	if len(c.Datasets) == 0 {
		return ErrNoDatasets
	}
	seen := make(map[string]bool, len(c.Datasets))
	for _, ds := range c.Datasets {
		if err := ds.Validate(); err != nil {
			return err
		}
		if seen[ds.Name] {
			return fmt.Errorf("%w: %s", ErrDatasetDuplicate, ds.Name)
		}
		seen[ds.Name] = true
		if sameFile(ds.SourcePath(), ds.DestinationPath(c.DataDir)) {
			return fmt.Errorf("%w: %s", ErrDatasetSameLocation, ds.Name)
		}
	}
	return nil
}

// Key returns the canonical merge key, falling back to CanonicalKey.
func (c Config) Key() MergeKey {
	if len(c.CanonicalKey) > 0 {
		return c.CanonicalKey
	}
	return CanonicalKey
}

// Dataset is one reconciliation triple: a file name shared by source and
// destination, the folder the source is read from, and an optional explicit
// merge key.
type Dataset struct {
	Name        string   `mapstructure:"name" yaml:"name"`
	SourceDir   string   `mapstructure:"source_dir" yaml:"source_dir"`
	Key         MergeKey `mapstructure:"key" yaml:"key,omitempty"`
	DateColumns []string `mapstructure:"date_columns" yaml:"date_columns,omitempty"`
}

// Validate checks one dataset entry.
func (d Dataset) Validate() error {
	if d.Name == "" {
		return ErrDatasetNameEmpty
	}
	if d.Name != filepath.Base(d.Name) || strings.ContainsAny(d.Name, `/\`) {
		return fmt.Errorf("%w: %s", ErrDatasetNameInvalid, d.Name)
	}
	if d.SourceDir == "" {
		return fmt.Errorf("%w: %s", ErrDatasetSourceEmpty, d.Name)
	}
	return nil
}

// SourcePath returns the location of the authoritative source table.
func (d Dataset) SourcePath() string {
	return filepath.Join(d.SourceDir, d.Name)
}

// DestinationPath returns the location of the persisted destination table.
func (d Dataset) DestinationPath(dataDir string) string {
	return filepath.Join(dataDir, d.Name)
}

// Label returns the dataset name without its extension.
func (d Dataset) Label() string {
	return strings.TrimSuffix(d.Name, filepath.Ext(d.Name))
}

// File names of the prediction tables the dashboard reads.
const (
	NRFIPredictionsFile    = "mlb_nrfi_predictions.csv"
	NRFIResultsFile        = "mlb_nrfi_results_full.csv"
	InningsPredictionsFile = "mlb_boxscores_1to5_model_full_predictions.csv"
)

// DefaultDatasets returns the three prediction files the dashboard reads,
// sourced from the NRFI model and 1-5 inning model folders.
func DefaultDatasets(nrfiDir, inningsDir string) []Dataset {
	return []Dataset{
		{Name: NRFIPredictionsFile, SourceDir: nrfiDir},
		{Name: NRFIResultsFile, SourceDir: nrfiDir},
		{Name: InningsPredictionsFile, SourceDir: inningsDir},
	}
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
