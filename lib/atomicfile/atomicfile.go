// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package atomicfile replaces files so that readers never observe a
// partial write. Data is written to a temporary file in the target's
// directory, fsynced, and renamed over the target; the directory is
// then synced so the rename survives power loss.
package atomicfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteFile atomically replaces path with data. The parent directory
// must already exist. On any failure the temporary file is removed and
// the previous content of path is left intact.
func WriteFile(path string, data []byte, perm fs.FileMode) error {
	directory := filepath.Dir(path)

	file, err := os.CreateTemp(directory, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	temporaryPath := file.Name()

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary file for %s: %w", path, err)
	}
	if err := file.Chmod(perm); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("setting mode on temporary file for %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary file for %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary file for %s: %w", path, err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming %s into place: %w", path, err)
	}

	SyncDirectory(directory)
	return nil
}

// Remove unlinks path and syncs its directory. A missing file is not an
// error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing %s: %w", path, err)
	}
	SyncDirectory(filepath.Dir(path))
	return nil
}

// IsTemporary reports whether name looks like a WriteFile temporary
// left behind by a crash. Directory scans skip these.
func IsTemporary(name string) bool {
	if len(name) < 2 || name[0] != '.' {
		return false
	}
	matched, _ := filepath.Match(".*.tmp-*", name)
	return matched
}

// SyncDirectory fsyncs a directory so that renames and unlinks within
// it are durable. Errors are ignored: not every filesystem supports
// syncing a directory handle.
func SyncDirectory(directory string) {
	handle, err := os.Open(directory)
	if err != nil {
		return
	}
	handle.Sync()
	handle.Close()
}
