// Package fileutil writes key and config files without leaving partial
// content behind.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrEmptyPath indicates an empty file path was provided.
	ErrEmptyPath = errors.New("path is empty")

	// ErrExists is returned by WriteNew when path already exists.
	ErrExists = errors.New("file already exists")
)

// WriteAtomic replaces path with data. The data is written to a synced temp
// file in the same directory and renamed over path.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	return write(path, data, perm, func(tmpPath string) error {
		if err := os.Rename(tmpPath, path); err != nil { //nolint:gosec // G703: path is validated by caller
			return fmt.Errorf("renaming temp file: %w", err)
		}
		return nil
	})
}

// WriteNew creates path with data and fails with ErrExists if path is
// already present, even when another writer creates it concurrently.
func WriteNew(path string, data []byte, perm os.FileMode) error {
	return write(path, data, perm, func(tmpPath string) error {
		if err := os.Link(tmpPath, path); err != nil {
			if errors.Is(err, os.ErrExist) {
				return ErrExists
			}
			return fmt.Errorf("linking temp file: %w", err)
		}
		return nil
	})
}

// write stages data in a temp file next to path and hands it to publish.
// The temp file is always removed.
func write(path string, data []byte, perm os.FileMode, publish func(tmpPath string) error) error {
	if path == "" {
		return ErrEmptyPath
	}

	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tmpPath := tmpFile.Name()
	closed := false
	defer func() {
		if !closed {
			_ = tmpFile.Close()
		}
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Chmod(perm); err != nil {
		return fmt.Errorf("setting temp file permissions: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	closed = true

	if err := publish(tmpPath); err != nil {
		return err
	}

	// Best effort directory sync for durability.
	if dirFile, err := os.Open(dir); err == nil { //nolint:gosec // G304: dir is derived from validated path
		_ = dirFile.Sync()
		_ = dirFile.Close()
	}
	return nil
}
