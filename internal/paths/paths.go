// Package paths resolves the configuration, data, export and fallback
// directories used by caremon.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "caremon"

// DefaultDataDirName is the CWD-relative data directory used when nothing
// else is configured.
const DefaultDataDirName = ".caremon-db"

// Subdirectories created under the data directory when no explicit
// location is configured.
const (
	ExportSubdir   = "exports"
	FallbackSubdir = "fallback"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "CAREMON_CONFIG_DIR"
	EnvDataDir   = "CAREMON_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// xdgDir returns $<env>/caremon on Linux, falling back to ~/<fallback...>/caremon.
// Other platforms use os.UserConfigDir.
func xdgDir(env string, fallback ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, appName)...), nil
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/caremon (fallback ~/.config/caremon)
// macOS:   ~/Library/Application Support/caremon
// Windows: %APPDATA%/caremon
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific data directory. It is not the
// default used by ResolveDataDir, which prefers $(CWD)/.caremon-db, but is
// reported by `caremon config show` as the shared location.
//
// Linux:   $XDG_DATA_HOME/caremon (fallback ~/.local/share/caremon)
// macOS and Windows: same as the config dir.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > CAREMON_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > CAREMON_DATA_DIR env > $(CWD)/.caremon-db.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	for _, candidate := range []string{flag, configYAMLValue, os.Getenv(EnvDataDir)} {
		if candidate != "" {
			return filepath.Abs(candidate)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ResolveUnder returns configured as an absolute path, or dataDir/subdir
// when configured is empty. Used for the export and fallback directories.
func ResolveUnder(dataDir, configured, subdir string) (string, error) {
	if configured != "" {
		return filepath.Abs(configured)
	}
	return filepath.Join(dataDir, subdir), nil
}
