package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/bullpen/pkg/bullpen"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the bullpen version",
		Args:  cobra.NoArgs,
		// Skip the root setup so version works with no environment at all.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "bullpen v%s\nmodule: %s\n", bullpen.Version, bullpen.ModulePath)
			return nil
		},
	}
}
