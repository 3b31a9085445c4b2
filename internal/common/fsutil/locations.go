package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/deploymenttheory/go-service-composer/internal/common/osutil"
)

// DirKind selects one of the platform locations an application keeps files in.
type DirKind int

const (
	ConfigDir DirKind = iota
	SystemConfigDir
	LogDir
)

// devDirs are used, relative to the working directory, in development.
var devDirs = map[DirKind]string{
	ConfigDir:       "config",
	SystemConfigDir: "config",
	LogDir:          "logs",
}

// AppDir returns the directory of the given kind for appName on the
// current platform.
func AppDir(kind DirKind, appName string) (string, error) {
	if osutil.IsDevEnvironment() {
		return devDirs[kind], nil
	}
	if kind == SystemConfigDir {
		return systemConfigDir(appName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}

	switch runtime.GOOS {
	case osutil.Windows:
		if kind == LogDir {
			return filepath.Join(envOr("LOCALAPPDATA", filepath.Join(home, "AppData", "Local")), appName, "Logs"), nil
		}
		return filepath.Join(envOr("APPDATA", filepath.Join(home, "AppData", "Roaming")), appName), nil
	case osutil.MacOS:
		if kind == LogDir {
			return filepath.Join(home, "Library", "Logs", appName), nil
		}
		return filepath.Join(home, "Library", "Application Support", appName), nil
	default:
		if kind == LogDir {
			if state := os.Getenv("XDG_STATE_HOME"); state != "" {
				return filepath.Join(state, appName, "logs"), nil
			}
			return filepath.Join(envOr("XDG_DATA_HOME", filepath.Join(home, ".local", "share")), appName, "logs"), nil
		}
		return filepath.Join(envOr("XDG_CONFIG_HOME", filepath.Join(home, ".config")), appName), nil
	}
}

func systemConfigDir(appName string) string {
	switch runtime.GOOS {
	case osutil.Windows:
		drive := envOr("SystemDrive", "C:")
		return filepath.Join(envOr("ProgramData", filepath.Join(drive, "ProgramData")), appName)
	case osutil.MacOS:
		return filepath.Join("/Library", "Application Support", appName)
	default:
		for _, dir := range []string{filepath.Join("/etc", appName), filepath.Join("/usr/local/etc", appName)} {
			if DirExists(dir) {
				return dir
			}
		}
		return filepath.Join("/etc", appName)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
