package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/bullpen/internal/board"
	"github.com/mesh-intelligence/bullpen/pkg/types"
)

// boardFlags are shared by the board subcommands.
type boardFlags struct {
	date string
	best bool
}

func newBoardCmd() *cobra.Command {
	var bf boardFlags
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the prediction boards",
		Long:  "Render the NRFI, 1-5 inning or best-picks board for one game date from the\nreconciled tables in the data directory.",
	}
	cmd.PersistentFlags().StringVar(&bf.date, "date", "", "game date, YYYY-MM-DD (default: today)")

	nrfi := &cobra.Command{
		Use:   "nrfi",
		Short: "NRFI predictions with fireball ratings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showBoard(cmd, bf, func(b *board.Board, date string) any {
				return b.NRFIView(date, bf.best)
			})
		},
	}
	nrfi.Flags().BoolVar(&bf.best, "best", false, "only games rated three fireballs or more")

	innings := &cobra.Command{
		Use:   "innings",
		Short: "1-5 inning over/under predictions and model accuracy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showBoard(cmd, bf, func(b *board.Board, date string) any {
				return b.InningsView(date)
			})
		},
	}

	picks := &cobra.Command{
		Use:   "picks",
		Short: "Best picks with daily and season records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showBoard(cmd, bf, func(b *board.Board, date string) any {
				return b.BestPicksView(date)
			})
		},
	}

	cmd.AddCommand(nrfi, innings, picks)
	return cmd
}

func showBoard(cmd *cobra.Command, bf boardFlags, view func(*board.Board, string) any) error {
	date, err := resolveDate(bf.date)
	if err != nil {
		return err
	}
	s, err := loadSettings()
	if err != nil {
		return err
	}
	b, err := loadBoard(cmd.Context(), s.cfg)
	if err != nil {
		return err
	}
	if err := render(cmd.OutOrStdout(), view(b, date)); err != nil {
		return sysError(err)
	}
	return nil
}

func loadBoard(ctx context.Context, cfg types.Config) (*board.Board, error) {
	b, err := board.Load(ctx, cfg.DataDir, cfg.ModelArtifact)
	if err != nil {
		return nil, sysError(fmt.Errorf("load board: %w", err))
	}
	return b, nil
}

// resolveDate normalizes a --date value. Empty means today.
func resolveDate(s string) (string, error) {
	if s == "" {
		return time.Now().Format(types.DateLayout), nil
	}
	d, err := types.NormalizeDate(s)
	if err != nil {
		return "", userError(fmt.Errorf("--date: %w", err))
	}
	return d, nil
}
