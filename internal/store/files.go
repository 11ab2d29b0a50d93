// Package store persists the credential store and the per-user
// transaction stores as human-readable JSON files. Every mutation is a
// read-modify-write under an exclusive per-file lock, and files are
// replaced with a write-to-temp-then-rename so a crash mid-write never
// leaves a half-written store behind.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// writeFileAtomic replaces path with data via a temp file in the same
// directory. Rename within one filesystem is atomic.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// validUsername rejects names that would escape the data directory when
// used as a file name.
func validUsername(username string) bool {
	if username == "" {
		return false
	}
	if strings.ContainsAny(username, "/\\") || username != filepath.Base(username) {
		return false
	}
	return username != "." && username != ".."
}
