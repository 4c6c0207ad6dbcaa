package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/paths"
	"github.com/mesh-intelligence/shelf/pkg/shelf"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize shelf storage",
		Long:  "Create configuration and data directories, write config.yaml, then initialize the store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, a)
		},
	}
}

func runInit(cmd *cobra.Command, a *app) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError("resolve config directory: %v", err)
	}
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, "")
	if err != nil {
		return sysError("resolve data directory: %v", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return sysError("create config directory: %v", err)
	}
	// An explicit --data-dir is recorded so later commands find the store.
	recorded := ""
	if a.flags.dataDir != "" {
		recorded = dataDir
	}
	configPath := filepath.Join(configDir, configFileExt)
	if err := writeConfigIfMissing(configPath, defaultConfigFile(recorded)); err != nil {
		return sysError("write config: %v", err)
	}

	s, err := a.resolve()
	if err != nil {
		return err
	}
	sh := shelf.New(shelf.WithLogger(newLogger(cmd.ErrOrStderr(), s.verbosity)))
	if err := sh.Attach(s.config()); err != nil {
		return sysError("initialize storage: %v", err)
	}
	if err := sh.Detach(); err != nil {
		return sysError("finalize storage: %v", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Shelf initialized (config: %s, data: %s)\n", configPath, s.dataDir)
	return nil
}
