package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "hevcpress"

// AppName returns the canonical application name for directory paths.
func AppName() string {
	return appName
}

// ConfigDir returns the app's configuration directory.
// - Linux: $XDG_CONFIG_HOME/hevcpress or ~/.config/hevcpress
// - macOS: ~/Library/Application Support/hevcpress
// - Windows: %AppData%/hevcpress (fallback to os.UserConfigDir)
func ConfigDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", AppName()), nil
	case "linux":
		xdg := os.Getenv("XDG_CONFIG_HOME")
		if xdg != "" {
			return filepath.Join(xdg, AppName()), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName()), nil
	default:
		// Windows and other OSes fall back to UserConfigDir
		cfg, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfg, AppName()), nil
	}
}

// TokenPath returns the location of the persisted upload credential. The
// file is consumed by the upload client only; nothing else reads it.
func TokenPath() (string, error) {
	cfg, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "photos_token.json"), nil
}

// Ensure creates the directory if it doesn't exist.
func Ensure(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// EnsureAll ensures the config dir exists.
func EnsureAll() error {
	p, err := ConfigDir()
	if err != nil {
		return err
	}
	return Ensure(p)
}
