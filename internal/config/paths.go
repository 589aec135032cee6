package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DataDir returns the path to the chatrelay data directory.
// - Windows: %APPDATA%\chatrelay
// - Other OS: ~/.chatrelay
func DataDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "chatrelay")
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatrelay"
	}
	return filepath.Join(home, ".chatrelay")
}

// HistoryPath returns the default path to the request history database.
func HistoryPath() string {
	return filepath.Join(DataDir(), "history.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0700)
}

// expandHome replaces a leading ~/ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
