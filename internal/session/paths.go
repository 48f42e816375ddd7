package session

import (
	"os"
	"path/filepath"
)

// baseOverride lets tests point the profile tree somewhere disposable.
var baseOverride string

// BaseDir returns ~/.wppchat, or $WPPCHAT_HOME when set.
func BaseDir() string {
	if baseOverride != "" {
		return baseOverride
	}
	if dir := os.Getenv("WPPCHAT_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wppchat")
}

// Dir returns the profile-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "profiles", name)
}

// LogDir returns the log directory for a profile.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the client log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "wppchat.log")
}

// DownloadDir is where received attachments are saved.
func DownloadDir(name string) string {
	return filepath.Join(Dir(name), "downloads")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree with proper permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name), DownloadDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
