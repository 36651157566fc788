package cli

import (
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sync the data, then show the best-picks board",
		Long: "Run a sync and, when every dataset succeeded, render the best-picks board for\n" +
			"the date. A failed sync skips the board and exits non-zero.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := resolveDate(date)
			if err != nil {
				return err
			}
			s, err := loadSettings()
			if err != nil {
				return err
			}

			rep, err := runSync(cmd.Context(), s.cfg)
			if rep.RunID != "" {
				if rerr := render(cmd.OutOrStdout(), reportView{rep}); rerr != nil && err == nil {
					return sysError(rerr)
				}
			}
			if err != nil {
				return err
			}

			b, err := loadBoard(cmd.Context(), s.cfg)
			if err != nil {
				return err
			}
			if err := render(cmd.OutOrStdout(), b.BestPicksView(day)); err != nil {
				return sysError(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "game date for the board, YYYY-MM-DD (default: today)")
	return cmd
}
