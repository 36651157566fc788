package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/bullpen/internal/logging"
	"github.com/mesh-intelligence/bullpen/internal/store"
	"github.com/mesh-intelligence/bullpen/pkg/types"
)

func newRestoreCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "restore <dataset> [run-id]",
		Short: "Restore a dataset from a run snapshot",
		Long: "Replace the destination table of a dataset with the snapshot written by a\n" +
			"previous run. The current destination is backed up first. With --list, show\n" +
			"the available snapshots instead.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			ds, ok := findDataset(s.cfg, args[0])
			if !ok {
				return userError(fmt.Errorf("unknown dataset %q", args[0]))
			}
			st := store.New(s.cfg.StateDir, s.cfg.SnapshotRetention)

			if list || len(args) == 1 {
				snaps, err := st.Snapshots(ds.Name)
				if err != nil {
					return sysError(err)
				}
				if snaps == nil {
					snaps = []store.Snapshot{}
				}
				return renderOrFail(cmd, snaps)
			}

			p, err := st.Restore(cmd.Context(), ds.Name, args[1], ds.DestinationPath(s.cfg.DataDir))
			if errors.Is(err, types.ErrNotFound) || errors.Is(err, store.ErrInvalidRunID) {
				return userError(err)
			}
			if err != nil {
				return sysError(err)
			}
			logging.FromContext(cmd.Context()).Debug().Str("snapshot", p.SnapshotPath).Msg("restore complete")
			return renderOrFail(cmd, p)
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list snapshots of the dataset")
	return cmd
}

// findDataset matches a configured dataset by file name or label.
func findDataset(cfg types.Config, name string) (types.Dataset, bool) {
	for _, ds := range cfg.Datasets {
		if ds.Name == name || ds.Label() == name {
			return ds, true
		}
	}
	return types.Dataset{}, false
}
