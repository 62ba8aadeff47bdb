// =============================================================================
// Sales Aggregator - File Manager Utility
// =============================================================================
//
// This module provides the file helpers the pipeline needs:
//   - Source existence checks that tell "absent" apart from "unreadable"
//   - Source discovery in a directory
//   - Ordered, de-duplicated source lists
//   - Atomic artifact replacement (write to temp, then rename)
//
// =============================================================================

package utils

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
)

// =============================================================================
// SOURCE CHECKS
// =============================================================================

// SourceExists reports whether path names a regular file.
//
// RETURNS:
//   - (false, nil) if nothing exists at path.
//   - (true, nil) if path is a readable-looking regular file.
//   - An error for anything else: permission failures, directories,
//     devices. Those are not "missing" and must not be skipped silently.
func SourceExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("%s is not a regular file", path)
	}
	return true, nil
}

// =============================================================================
// SOURCE DISCOVERY
// =============================================================================

// DiscoverSources returns the regular files in dir matching pattern, sorted
// lexically so discovery order does not depend on the file system.
//
// PARAMETERS:
//   - dir: The directory to scan (not recursive).
//   - pattern: A glob pattern (e.g., "*.csv"). If empty, defaults to "*.csv".
func DiscoverSources(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*.csv"
	}

	// Surface a bad pattern before touching the file system.
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid source pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan source directory: %w", err)
	}

	var result []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		matched, _ := filepath.Match(pattern, entry.Name())
		if matched {
			result = append(result, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(result)
	return result, nil
}

// MergeSources concatenates lists, keeping the first occurrence of each
// path (compared after filepath.Clean).
func MergeSources(lists ...[]string) []string {
	seen := make(map[string]bool)
	var merged []string

	for _, list := range lists {
		for _, path := range list {
			key := filepath.Clean(path)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, path)
		}
	}

	return merged
}

// =============================================================================
// ATOMIC WRITES
// =============================================================================

// WriteFileAtomic replaces path with the bytes produced by write.
//
// The content is written to a uniquely named temp file in the same
// directory, synced, and renamed over path. If anything fails the temp file
// is removed and whatever was at path before is left untouched.
func WriteFileAtomic(path string, perm fs.FileMode, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}
