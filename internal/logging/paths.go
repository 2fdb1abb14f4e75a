package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.recall/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".recall", "logs")
	}
	return filepath.Join(home, ".recall", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "recall.log")
}

// EnsureLogDir creates the directory for the given log path if needed.
func EnsureLogDir(logPath string) error {
	if logPath == "" {
		logPath = DefaultLogPath()
	}
	return os.MkdirAll(filepath.Dir(logPath), 0o755)
}
