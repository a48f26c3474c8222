// internal/fsutil/fsutil.go

// Package fsutil holds the small filesystem helpers shared by the backup
// manager and the metadata reconciler.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// NormalizePath cleans a path and converts separators for the current OS.
func NormalizePath(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	return filepath.Clean(filepath.FromSlash(strings.TrimSpace(path)))
}

// DirectoryExists checks if a directory exists.
func DirectoryExists(dirPath string) bool {
	info, err := os.Stat(dirPath)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// EnsureDirectoryExists creates the directory (and parents) if missing.
func EnsureDirectoryExists(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
		return nil
	}
	return fmt.Errorf("check directory %s: %w", path, err)
}

// ListFilesWithExtensions returns the files under dirPath whose names end in
// one of extensions, walking subdirectories when recursive is set. Matching
// is case-insensitive; results come back in walk order.
func ListFilesWithExtensions(dirPath string, extensions []string, recursive bool) ([]string, error) {
	if !DirectoryExists(dirPath) {
		return nil, fmt.Errorf("directory does not exist: %s", dirPath)
	}

	var result []string
	walkFn := func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("access %s: %w", path, err)
		}
		if info.IsDir() {
			if path != dirPath && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		for _, ext := range extensions {
			if strings.HasSuffix(strings.ToLower(info.Name()), strings.ToLower(ext)) {
				result = append(result, path)
				break
			}
		}
		return nil
	}

	if err := filepath.Walk(dirPath, walkFn); err != nil {
		return nil, fmt.Errorf("list files in %s: %w", dirPath, err)
	}
	return result, nil
}

// CopyFile copies a file from source to destination, creating the
// destination directory if needed.
func CopyFile(sourcePath, destPath string) error {
	if err := EnsureDirectoryExists(filepath.Dir(destPath)); err != nil {
		return fmt.Errorf("prepare destination for copy: %w", err)
	}

	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open source file %s: %w", sourcePath, err)
	}
	defer sourceFile.Close()

	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create destination file %s: %w", destPath, err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return fmt.Errorf("copy %s to %s: %w", sourcePath, destPath, err)
	}
	return destFile.Sync()
}

// IsDirWritable checks a directory accepts new files by creating and
// removing a probe file.
func IsDirWritable(dirPath string) error {
	if !DirectoryExists(dirPath) {
		return fmt.Errorf("directory does not exist: %s", dirPath)
	}
	probe := filepath.Join(dirPath, ".write_test")
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dirPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close probe file in %s: %w", dirPath, err)
	}
	if err := os.Remove(probe); err != nil {
		return fmt.Errorf("remove probe file in %s: %w", dirPath, err)
	}
	return nil
}

// ToDbPath converts a filesystem path into the forward-slash form Rekordbox
// stores, optionally with a trailing slash for LIKE prefix queries.
func ToDbPath(path string, addTrailingSlash bool) string {
	path = filepath.ToSlash(path)
	if addTrailingSlash && !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path
}
