// Package paths provides centralized path resolution for scrapemcp.
// This package has NO internal imports (only stdlib) to avoid import cycles.
// All functions return errors to allow callers to log appropriately.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigBaseName is the file name (without extension) searched for config.
const ConfigBaseName = "scrapemcp"

// ConfigExtensions lists the supported config formats in lookup order.
var ConfigExtensions = []string{".json", ".toml", ".yaml", ".yml"}

// BaseDir returns the scrapemcp base directory (~/.scrapemcp).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".scrapemcp"), nil
}

// DataPath returns a path within the data directory (~/.scrapemcp/<subpath>).
func DataPath(subpath string) (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, subpath), nil
}

// ConfigPath returns the active config file path.
// Priority: ./scrapemcp.{json,toml,yaml,yml} > ~/.scrapemcp/scrapemcp.{json,toml,yaml,yml}
// Returns ("", nil) if no config exists - this is a valid state, not an error.
func ConfigPath() (string, error) {
	for _, ext := range ConfigExtensions {
		localPath := ConfigBaseName + ext
		if _, err := os.Stat(localPath); err == nil {
			absPath, err := filepath.Abs(localPath)
			if err != nil {
				return "", fmt.Errorf("failed to get absolute path: %w", err)
			}
			return absPath, nil
		}
	}

	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	for _, ext := range ConfigExtensions {
		globalPath := filepath.Join(base, ConfigBaseName+ext)
		if _, err := os.Stat(globalPath); err == nil {
			return globalPath, nil
		}
	}

	return "", nil
}

// DefaultConfigPath returns the default location for new configs (~/.scrapemcp/scrapemcp.json).
func DefaultConfigPath() (string, error) {
	return DataPath(ConfigBaseName + ".json")
}

// EnsureDir creates a directory if it doesn't exist.
// Uses 0750 permissions (owner: rwx, group: rx, other: none).
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// EnsureParentDir creates the parent directory of a file path if it doesn't exist.
func EnsureParentDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}

// ExpandTilde expands a path that starts with ~ to the user's home directory.
// Returns the path unchanged if it doesn't start with ~.
func ExpandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if len(path) == 1 {
		return home, nil
	}
	return filepath.Join(home, path[1:]), nil
}
