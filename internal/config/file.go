package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roelfdiedericks/scrapemcp/internal/logging"
	"github.com/roelfdiedericks/scrapemcp/internal/paths"
)

// DefaultBackupCount is how many previous versions BackupAndWrite keeps.
const DefaultBackupCount = 5

// AtomicWrite replaces path with data via a synced temp file in the same
// directory and a rename, so readers never see a partial file.
func AtomicWrite(path string, data []byte, perm os.FileMode) (err error) {
	if err := paths.EnsureParentDir(path); err != nil {
		return err
	}
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".scrapemcp-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename temp to target: %w", err)
	}
	return nil
}

// BackupAndWrite keeps the current file as path.bak (older versions shift to
// .bak.1, .bak.2, ...) and then writes data atomically. A failed backup is
// logged, not fatal.
func BackupAndWrite(path string, data []byte, maxBackups int) error {
	if maxBackups <= 0 {
		maxBackups = DefaultBackupCount
	}

	if current, err := os.ReadFile(path); err == nil {
		RotateBackups(path, maxBackups)
		if err := AtomicWrite(backupName(path, 0), current, 0600); err != nil {
			logging.L_warn("config: backup failed, continuing with save", "path", path, "error", err)
		}
	}

	if err := AtomicWrite(path, data, 0600); err != nil {
		return err
	}
	logging.L_debug("config: saved", "path", path)
	return nil
}

// backupName returns path.bak for n == 0, else path.bak.n
func backupName(path string, n int) string {
	if n == 0 {
		return path + ".bak"
	}
	return fmt.Sprintf("%s.bak.%d", path, n)
}

// RotateBackups shifts existing backups up by one, dropping the oldest so at
// most maxBackups-1 remain and path.bak is free.
func RotateBackups(path string, maxBackups int) {
	if maxBackups <= 1 {
		return
	}
	oldest := backupName(path, maxBackups-1)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		logging.L_trace("config: failed to remove oldest backup", "path", oldest, "error", err)
	}
	for n := maxBackups - 2; n >= 0; n-- {
		src, dst := backupName(path, n), backupName(path, n+1)
		if err := os.Rename(src, dst); err != nil && !os.IsNotExist(err) {
			logging.L_trace("config: failed to rotate backup", "src", src, "dst", dst, "error", err)
		}
	}
}

// ErrConfigExists is returned by WriteDefault when the target exists and
// force is not set.
var ErrConfigExists = errors.New("config file already exists")

// WriteDefault writes the default configuration to path in the format given
// by its extension. An existing file is only replaced when force is set, and
// is backed up first.
func WriteDefault(path string, force bool) error {
	data, err := Encode(path, Default())
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		if !force {
			return fmt.Errorf("%w: %s (use --force to overwrite)", ErrConfigExists, path)
		}
		return BackupAndWrite(path, data, DefaultBackupCount)
	}
	if err := AtomicWrite(path, data, 0600); err != nil {
		return err
	}
	logging.L_info("config: wrote defaults", "path", path)
	return nil
}
