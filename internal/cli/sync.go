package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/bullpen/internal/ledger"
	"github.com/mesh-intelligence/bullpen/internal/output"
	"github.com/mesh-intelligence/bullpen/internal/store"
	"github.com/mesh-intelligence/bullpen/internal/syncer"
	"github.com/mesh-intelligence/bullpen/pkg/types"
)

func newSyncCmd() *cobra.Command {
	var keepGoing bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile every configured dataset into the data directory",
		Long: "Load each source table, upsert it into its destination by merge key (source\n" +
			"rows win), back up and snapshot the previous destination, and write the result.\n" +
			"The first failure stops the run unless --keep-going is set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			if keepGoing {
				s.cfg.FailFast = false
			}
			rep, err := runSync(cmd.Context(), s.cfg)
			if rep.RunID == "" {
				return err
			}
			if rerr := render(cmd.OutOrStdout(), reportView{rep}); rerr != nil && err == nil {
				return sysError(rerr)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "attempt every dataset even after a failure")
	return cmd
}

// runSync opens the ledger and runs the sync engine once. Configuration
// problems are user errors; everything else is a system error.
func runSync(ctx context.Context, cfg types.Config) (syncer.Report, error) {
	if err := cfg.Validate(); err != nil {
		return syncer.Report{}, userError(fmt.Errorf("invalid configuration: %w", err))
	}

	l, err := ledger.Open(filepath.Join(cfg.StateDir, ledger.FileName))
	if err != nil {
		return syncer.Report{}, sysError(err)
	}
	defer l.Close()

	s := syncer.New(store.New(cfg.StateDir, cfg.SnapshotRetention), syncer.WithRecorder(l))
	rep, err := s.Run(ctx, cfg)
	if err != nil {
		return rep, sysError(err)
	}
	return rep, nil
}

// reportView renders a sync report. Table output shows one row per dataset.
type reportView struct {
	syncer.Report `yaml:",inline"`
}

// Tables implements output.Tabler.
func (v reportView) Tables() []output.Data {
	d := output.Data{
		Title:   fmt.Sprintf("Sync run %s: %s", v.RunID, v.Status),
		Headers: []string{"Dataset", "Status", "Key", "Source Rows", "Destination Rows", "Superseded", "Result Rows", "Error"},
		Align: []output.Align{
			output.AlignLeft, output.AlignLeft, output.AlignLeft,
			output.AlignRight, output.AlignRight, output.AlignRight, output.AlignRight,
			output.AlignLeft,
		},
		Empty: "No datasets processed.",
	}
	for _, ds := range v.Datasets {
		d.Rows = append(d.Rows, []string{
			ds.Dataset,
			string(ds.Status),
			ds.Key.String(),
			strconv.Itoa(ds.Stats.SourceRows),
			strconv.Itoa(ds.Stats.DestinationRows),
			strconv.Itoa(ds.Stats.Superseded),
			strconv.Itoa(ds.Stats.Result),
			ds.Error,
		})
	}
	return []output.Data{d}
}
