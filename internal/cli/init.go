package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/bullpen/internal/ledger"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize bullpen configuration and storage",
		Long:  "Create the configuration directory with a default config.yaml, the dashboard data\ndirectory, and the state directory holding the run ledger and snapshots.",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	for _, dir := range []string{s.cfg.DataDir, s.cfg.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return sysError(fmt.Errorf("create directory: %w", err))
		}
	}

	l, err := ledger.Open(filepath.Join(s.cfg.StateDir, ledger.FileName))
	if err != nil {
		return sysError(fmt.Errorf("initialize ledger: %w", err))
	}
	if err := l.Close(); err != nil {
		return sysError(fmt.Errorf("finalize ledger: %w", err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "bullpen initialized successfully")
	fmt.Fprintf(out, "config: %s\n", filepath.Join(s.configDir, configFileExt))
	fmt.Fprintf(out, "data:   %s\n", s.cfg.DataDir)
	fmt.Fprintf(out, "state:  %s\n", s.cfg.StateDir)
	return nil
}
