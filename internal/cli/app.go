package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/paths"
	"github.com/mesh-intelligence/shelf/pkg/shelf"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// app is the state shared by all subcommands of one root command.
type app struct {
	flags        rootFlags
	pollOverride time.Duration // set by commands with their own --interval
}

// session is an attached shelf with one open window.
type session struct {
	settings settings
	shelf    *shelf.Shelf
	win      *shelf.Window
	log      logr.Logger
}

// resolve loads config.yaml and resolves the directories.
func (a *app) resolve() (settings, error) {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return settings{}, sysError("resolve config directory: %v", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return settings{}, sysError("%v", err)
	}
	s, err := settingsFrom(v)
	if err != nil {
		return settings{}, err
	}
	s.configDir = configDir
	s.dataDir, err = paths.ResolveDataDir(a.flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, sysError("resolve data directory: %v", err)
	}
	if a.pollOverride > 0 {
		s.pollInterval = a.pollOverride
	}
	if a.flags.verbosity > s.verbosity {
		s.verbosity = a.flags.verbosity
	}
	return s, nil
}

// open attaches a shelf per the resolved settings and opens a window. The
// caller must call close.
func (a *app) open(cmd *cobra.Command) (*session, error) {
	s, err := a.resolve()
	if err != nil {
		return nil, err
	}
	log := newLogger(cmd.ErrOrStderr(), s.verbosity)

	sh := shelf.New(shelf.WithLogger(log))
	if err := sh.Attach(s.config()); err != nil {
		return nil, sysError("attach shelf: %v", err)
	}
	win, err := sh.OpenWindow()
	if err != nil {
		_ = sh.Detach()
		return nil, sysError("open window: %v", err)
	}
	return &session{settings: s, shelf: sh, win: win, log: log}, nil
}

func (s *session) close() error {
	if err := s.shelf.Detach(); err != nil {
		return sysError("detach shelf: %w", err)
	}
	return nil
}

// closeInto closes the session from a deferred call. Cookies are persisted
// on close, so a close failure replaces a nil *err.
func (s *session) closeInto(err *error) {
	if cerr := s.close(); *err == nil {
		*err = cerr
	}
}

// backendFlag registers --backend on cmd.
func backendFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "backend", "b", string(types.Persistent), "storage backend: persistent, session or cookie")
}

func parseBackend(name string) (types.Backend, error) {
	b, err := types.ParseBackend(name)
	if err != nil {
		return "", userError("%v", err)
	}
	return b, nil
}

// storageError classifies a shelf error for the exit code.
func storageError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errorsIsAny(err, types.ErrUnencodable, types.ErrUnsupportedValue, types.ErrInvalidCookie, types.ErrUnknownBackend):
		return userError("%s: %v", op, err)
	}
	return sysError("%s: %v", op, err)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError("marshal output: %v", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
