// Package cli implements the bullpen command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/bullpen/internal/logging"
	"github.com/mesh-intelligence/bullpen/internal/output"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	logLevel  string
	verbose   bool
	quiet     bool
	output    string
}

var flags rootFlags

// envFiles are loaded in order. Variables already set are never overridden.
var envFiles = []string{".env", ".env.local"}

// NewRootCmd creates the top-level "bullpen" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags = rootFlags{}
	root := &cobra.Command{
		Use:   "bullpen",
		Short: "Sync MLB prediction tables and show the picks board",
		Long: "bullpen reconciles the prediction CSV files written by the NRFI and 1-5 inning\n" +
			"models into one dashboard data directory, keeping a backup and a snapshot of\n" +
			"every write, and renders the NRFI, innings and best-picks boards.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/bullpen)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "dashboard data directory (default: ./data)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVarP(&flags.quiet, "quiet", "q", false, "only log warnings and errors")
	root.PersistentFlags().StringVarP(&flags.output, "output", "o", "", "output format: table, json, yaml (default: table on a terminal)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newBoardCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newRestoreCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// setup loads .env files and installs the logger on the command context.
func setup(cmd *cobra.Command, args []string) error {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	if _, err := output.ParseFormat(flags.output); err != nil {
		return userError(err)
	}

	level, warning := logging.ResolveLevel(flags.logLevel, flags.verbose, flags.quiet)
	log := logging.New(logging.Config{
		Level:  level,
		Format: os.Getenv("LOG_FORMAT"),
		Output: cmd.ErrOrStderr(),
	})
	if warning != "" {
		log.Warn().Msg(warning)
	}
	cmd.SetContext(logging.WithLogger(cmd.Context(), &log))
	return nil
}

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }

func sysError(err error) error { return &exitError{code: exitSysError, err: err} }

// exitCode maps err to an exit code. Errors without one are user errors,
// which covers cobra's own flag and argument errors.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// render writes data to w in the format chosen by --output.
func render(w io.Writer, data any) error {
	return output.NewFormatter(output.DetectFormat(flags.output)).Format(w, data)
}
