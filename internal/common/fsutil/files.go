// fsutil/files.go
package fsutil

import (
	"os"
	"path/filepath"
	"strings"
)

// FileExists checks if a file exists and is not a directory
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ExpandTilde expands the tilde in paths to the user's home directory
func ExpandTilde(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		if path == "~" {
			return home, nil
		}

		return filepath.Join(home, path[2:]), nil
	}

	return path, nil
}

// ResolvePath expands a leading tilde and, when base is non-empty, resolves
// relative paths against base. Empty paths are returned unchanged.
func ResolvePath(path, base string) (string, error) {
	if path == "" {
		return "", nil
	}
	expanded, err := ExpandTilde(path)
	if err != nil {
		return "", err
	}
	if base == "" || filepath.IsAbs(expanded) {
		return expanded, nil
	}
	return filepath.Join(base, expanded), nil
}
