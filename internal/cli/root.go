// Package cli implements the shelf command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/pkg/shelf"
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
	jsonMode  bool
	verbosity int
}

// NewRootCmd creates the top-level "shelf" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	app := &app{}
	root := &cobra.Command{
		Use:     "shelf",
		Short:   "A reactive key-value view over persistent, session and cookie storage",
		Long:    "Shelf reads, writes and watches keys in persistent, session and cookie\nstorage, reconciling local writes with changes made elsewhere.",
		Version: shelf.Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&app.flags.configDir, "config-dir", "", "configuration directory (default: $(CWD)/.shelf if present, else the platform config dir)")
	root.PersistentFlags().StringVar(&app.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.shelf-db)")
	root.PersistentFlags().BoolVar(&app.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().CountVarP(&app.flags.verbosity, "verbose", "v", "increase log verbosity (repeatable)")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(app),
		newGetCmd(app),
		newSetCmd(app),
		newRmCmd(app),
		newClearCmd(app),
		newListCmd(app),
		newSetCookieCmd(app),
		newWatchCmd(app),
		newExportCmd(app),
		newImportCmd(app),
		newBenchCmd(app),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(NewRootCmd(), os.Args[1:], os.Stderr))
}

// run executes root with args and returns the process exit code.
func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// cliError carries the exit code of a failed command.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

// userError reports bad input: unknown keys, malformed values, bad flags.
func userError(format string, args ...any) error {
	return &cliError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

// sysError reports a storage or filesystem failure.
func sysError(format string, args ...any) error {
	return &cliError{code: exitSysError, err: fmt.Errorf(format, args...)}
}

func exitCode(err error) int {
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	// Flag and argument errors come from cobra.
	return exitUserError
}

// verbosityOnce guards stdr's process-wide verbosity, set by the first
// command that opens a logger.
var verbosityOnce sync.Once

// newLogger returns a logger writing to w at the given verbosity.
func newLogger(w io.Writer, verbosity int) logr.Logger {
	verbosityOnce.Do(func() { stdr.SetVerbosity(verbosity) })
	return stdr.New(log.New(w, "shelf: ", log.LstdFlags))
}
