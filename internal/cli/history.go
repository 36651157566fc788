package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/bullpen/internal/ledger"
	"github.com/mesh-intelligence/bullpen/internal/output"
)

const defaultHistoryLimit = 20

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sync runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLedger()
			if err != nil {
				return err
			}
			defer l.Close()

			runs, err := l.Runs(cmd.Context(), limit)
			if err != nil {
				return sysError(err)
			}
			if runs == nil {
				runs = []ledger.Run{}
			}
			return renderOrFail(cmd, runList(runs))
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "maximum runs to list (0 for all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the per-dataset outcome of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLedger()
			if err != nil {
				return err
			}
			defer l.Close()

			run, err := l.Run(cmd.Context(), args[0])
			if errors.Is(err, ledger.ErrRunNotFound) {
				return userError(err)
			}
			if err != nil {
				return sysError(err)
			}
			ds, err := l.Datasets(cmd.Context(), run.ID)
			if err != nil {
				return sysError(err)
			}
			if ds == nil {
				ds = []ledger.DatasetRun{}
			}
			return renderOrFail(cmd, runDetail{Run: run, Datasets: ds})
		},
	})
	return cmd
}

func openLedger() (*ledger.Ledger, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(filepath.Join(s.cfg.StateDir, ledger.FileName))
	if err != nil {
		return nil, sysError(err)
	}
	return l, nil
}

func renderOrFail(cmd *cobra.Command, data any) error {
	if err := render(cmd.OutOrStdout(), data); err != nil {
		return sysError(err)
	}
	return nil
}

type runList []ledger.Run

// Tables implements output.Tabler.
func (r runList) Tables() []output.Data {
	d := output.Data{
		Headers: []string{"Run ID", "Status", "Started", "Duration", "Datasets", "Failed"},
		Empty:   "No runs recorded.",
	}
	for _, run := range r {
		d.Rows = append(d.Rows, []string{
			run.ID,
			string(run.Status),
			run.StartedAt.Local().Format(time.DateTime),
			duration(run),
			strconv.Itoa(run.Datasets),
			strconv.Itoa(run.Failed),
		})
	}
	return []output.Data{d}
}

type runDetail struct {
	Run      ledger.Run          `json:"run" yaml:"run"`
	Datasets []ledger.DatasetRun `json:"datasets" yaml:"datasets"`
}

// Tables implements output.Tabler.
func (r runDetail) Tables() []output.Data {
	title := fmt.Sprintf("Run %s: %s, started %s, took %s",
		r.Run.ID, r.Run.Status, r.Run.StartedAt.Local().Format(time.DateTime), duration(r.Run))
	if r.Run.Error != "" {
		title += "\n" + r.Run.Error
	}
	d := output.Data{
		Title:   title,
		Headers: []string{"Dataset", "Status", "Source Rows", "Destination Rows", "Superseded", "Result Rows", "Snapshot"},
		Empty:   "No datasets recorded.",
	}
	for _, ds := range r.Datasets {
		d.Rows = append(d.Rows, []string{
			ds.Dataset,
			string(ds.Status),
			strconv.Itoa(ds.SourceRows),
			strconv.Itoa(ds.DestinationRows),
			strconv.Itoa(ds.Superseded),
			strconv.Itoa(ds.ResultRows),
			ds.SnapshotPath,
		})
	}
	return []output.Data{d}
}

func duration(r ledger.Run) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}
