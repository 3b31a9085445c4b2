package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirPerm is the mode of every directory the composer creates.
const DirPerm os.FileMode = 0o755

// DirExists reports whether path is an existing directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// CreateDirIfNotExists creates path and any missing parents.
func CreateDirIfNotExists(path string) error {
	if path == "" || DirExists(path) {
		return nil
	}
	if err := os.MkdirAll(path, DirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// EnsureParentDir creates the directory that will hold file.
func EnsureParentDir(file string) error {
	return CreateDirIfNotExists(filepath.Dir(file))
}
