// Package storage provides temporary directory management for release staging.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TempDir manages a temporary directory used to stage release artifacts
// before upload.
type TempDir struct {
	root      string
	artifacts string
	created   time.Time
}

// NewTempDir creates a new temporary directory structure for release staging.
// The directory structure is:
//
//	{base}/buildpy-{version}-{variant}-{timestamp}/
//	  artifacts/    - Zipped install trees and manifests
//	  checksums/    - Checksum files covering the artifacts
//
// The caller is responsible for cleaning up by calling Remove().
func NewTempDir(version, variant string) (*TempDir, error) {
	if version == "" {
		return nil, fmt.Errorf("version cannot be empty")
	}
	if variant == "" {
		return nil, fmt.Errorf("variant cannot be empty")
	}

	timestamp := time.Now().Format("20060102T150405")
	dirname := fmt.Sprintf("buildpy-%s-%s-%s", version, variant, timestamp)

	root := filepath.Join(os.TempDir(), dirname)

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	artifacts := filepath.Join(root, "artifacts")
	if err := os.MkdirAll(artifacts, 0755); err != nil {
		_ = os.RemoveAll(root)
		return nil, fmt.Errorf("failed to create artifacts directory: %w", err)
	}

	checksums := filepath.Join(root, "checksums")
	if err := os.MkdirAll(checksums, 0755); err != nil {
		_ = os.RemoveAll(root)
		return nil, fmt.Errorf("failed to create checksums directory: %w", err)
	}

	return &TempDir{
		root:      root,
		artifacts: artifacts,
		created:   time.Now(),
	}, nil
}

// Root returns the root temporary directory path.
// Returns empty string if TempDir was not initialized.
func (t *TempDir) Root() string {
	return t.root
}

// Artifacts returns the artifacts subdirectory path.
// Returns empty string if TempDir was not initialized.
func (t *TempDir) Artifacts() string {
	return t.artifacts
}

// Checksums returns the checksums subdirectory path.
func (t *TempDir) Checksums() string {
	if t.root == "" {
		return ""
	}
	return filepath.Join(t.root, "checksums")
}

// Remove deletes the temporary directory and all its contents.
// It returns an error if deletion fails, but does not fail if the directory
// doesn't exist (idempotent).
func (t *TempDir) Remove() error {
	if t.root == "" {
		return nil // Nothing to remove
	}

	if _, err := os.Stat(t.root); os.IsNotExist(err) {
		return nil // Already removed, this is fine
	}

	if err := os.RemoveAll(t.root); err != nil {
		return fmt.Errorf("failed to remove temp directory %s: %w", t.root, err)
	}

	return nil
}

// Age returns how long ago the temporary directory was created.
func (t *TempDir) Age() time.Duration {
	return time.Since(t.created)
}

// ListAllFiles returns all files in both artifacts and checksums directories.
// Files are returned as absolute paths.
// Returns an error if TempDir was not initialized.
func (t *TempDir) ListAllFiles() ([]string, error) {
	if t.root == "" {
		return nil, fmt.Errorf("temp directory not initialized: use NewTempDir to create instances")
	}

	var files []string

	artifactFiles, err := listFilesInDir(t.artifacts)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	files = append(files, artifactFiles...)

	checksumFiles, err := listFilesInDir(t.Checksums())
	if err != nil {
		return nil, fmt.Errorf("failed to list checksums: %w", err)
	}
	files = append(files, checksumFiles...)

	return files, nil
}

// listFilesInDir returns all regular files (not directories) in the specified directory.
// Returns absolute paths.
func listFilesInDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}

	return files, nil
}
