package util

import (
	"errors"
	"fmt"
	"os"
)

// EnsureDir creates the directory path if it does not exist. Creating an
// already-existing directory is not an error, so concurrent callers are
// safe. A path component that exists but is not a directory is reported.
func EnsureDir(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s exists and is not a directory", path)
	}
	return nil
}

// RemoveIfExists deletes the file if present.
func RemoveIfExists(path string) error {
	if _, err := os.Stat(path); err == nil {
		return os.Remove(path)
	} else if os.IsNotExist(err) {
		return nil
	} else {
		return err
	}
}
