// Package paths resolves the shelf configuration and data directories.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/caarlos0/env/v11"
)

// CWD-relative directory names.
const (
	DefaultConfigDirName = ".shelf"
	DefaultDataDirName   = ".shelf-db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "SHELF_CONFIG_DIR"
	EnvDataDir   = "SHELF_DATA_DIR"
)

// appName is the directory created under platform config and data roots.
const appName = "shelf"

// dirEnv holds the environment variables that influence directory
// resolution.
type dirEnv struct {
	ConfigDir     string `env:"SHELF_CONFIG_DIR"`
	DataDir       string `env:"SHELF_DATA_DIR"`
	XDGConfigHome string `env:"XDG_CONFIG_HOME"`
	XDGDataHome   string `env:"XDG_DATA_HOME"`
}

func loadEnv() (dirEnv, error) {
	var e dirEnv
	if err := env.Parse(&e); err != nil {
		return e, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/shelf (fallback ~/.config/shelf)
// macOS:   ~/Library/Application Support/shelf
// Windows: %APPDATA%/shelf
func DefaultConfigDir() (string, error) {
	e, err := loadEnv()
	if err != nil {
		return "", err
	}
	return platformRoot(e.XDGConfigHome, ".config")
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/shelf (fallback ~/.local/share/shelf)
// macOS:   ~/Library/Application Support/shelf
// Windows: %APPDATA%/shelf
func DefaultDataDir() (string, error) {
	e, err := loadEnv()
	if err != nil {
		return "", err
	}
	return platformRoot(e.XDGDataHome, filepath.Join(".local", "share"))
}

func platformRoot(xdg, homeRel string) (string, error) {
	if runtime.GOOS != "linux" {
		// os.UserConfigDir is ~/Library/Application Support on macOS and
		// %APPDATA% on Windows.
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRel, appName), nil
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > SHELF_CONFIG_DIR env > $(CWD)/.shelf when it
// exists > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	e, err := loadEnv()
	if err != nil {
		return "", err
	}
	if e.ConfigDir != "" {
		return filepath.Abs(e.ConfigDir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	local := filepath.Join(cwd, DefaultConfigDirName)
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local, nil
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > SHELF_DATA_DIR env > $(CWD)/.shelf-db.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	e, err := loadEnv()
	if err != nil {
		return "", err
	}
	if e.DataDir != "" {
		return filepath.Abs(e.DataDir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}
