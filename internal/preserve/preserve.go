// Package preserve copies filesystem timestamps from source to output.
package preserve

import (
	"fmt"
	"os"
)

// MetadataError reports a failure to carry source timestamps over to the
// destination file.
type MetadataError struct {
	Path string
	Err  error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("preserve metadata for %s: %v", e.Path, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// Apply sets the destination's access and modification times to match the
// source. The encoder already copies container-level tags; this covers the
// filesystem timestamps so tools that sort by mtime see the original date.
// Reapplying is idempotent.
func Apply(sourcePath, destPath string) error {
	src, err := os.Stat(sourcePath)
	if err != nil {
		return &MetadataError{Path: destPath, Err: err}
	}
	if _, err := os.Stat(destPath); err != nil {
		return &MetadataError{Path: destPath, Err: err}
	}
	if err := os.Chtimes(destPath, src.ModTime(), src.ModTime()); err != nil {
		return &MetadataError{Path: destPath, Err: err}
	}
	return nil
}
