// Package paths resolves the configuration, data, and state directory
// locations used by bullpen.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user configuration and state directories.
const AppName = "bullpen"

// DefaultDataDirName is the CWD-relative dashboard data directory.
const DefaultDataDirName = "data"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "BULLPEN_CONFIG_DIR"
	EnvDataDir   = "BULLPEN_DATA_DIR"
	EnvStateDir  = "BULLPEN_STATE_DIR"
)

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
// Linux:   $XDG_CONFIG_HOME/bullpen (fallback ~/.config/bullpen)
// macOS:   ~/Library/Application Support/bullpen
// Windows: %APPDATA%/bullpen
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
}

// DefaultStateDir returns the platform-specific directory holding the run
// ledger and table snapshots.
//
// Linux:   $XDG_STATE_HOME/bullpen (fallback ~/.local/state/bullpen)
// macOS:   ~/Library/Application Support/bullpen/state
// Windows: %APPDATA%/bullpen/state
func DefaultStateDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "state", AppName), nil
	default:
		// macOS and Windows keep state under the config root.
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName, "state"), nil
	}
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > BULLPEN_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the dashboard data directory following the
// precedence chain: flag > configYAMLValue > BULLPEN_DATA_DIR env >
// $(CWD)/data.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ResolveStateDir returns the state directory following the precedence
// chain: configYAMLValue > BULLPEN_STATE_DIR env > DefaultStateDir().
func ResolveStateDir(configYAMLValue string) (string, error) {
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvStateDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultStateDir()
}

// ResolveRelative makes p absolute against base unless it already is.
// An empty p stays empty.
func ResolveRelative(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
