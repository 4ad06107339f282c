// Package scan discovers video files under an input root.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"hevcpress/internal/model"
)

// videoExts is the set of recognized input containers, matched
// case-insensitively on the file extension.
var videoExts = map[string]bool{
	".mov": true,
	".mp4": true,
	".avi": true,
	".mkv": true,
}

// IsVideo reports whether the path has a recognized video extension.
func IsVideo(path string) bool {
	return videoExts[strings.ToLower(filepath.Ext(path))]
}

// Scan walks root and returns every recognized video file, sorted by path
// so repeated runs enumerate in the same order. Symbolic links are not
// followed. Unreadable subtrees are skipped; a missing or unreadable root
// itself is an error.
func Scan(root string) ([]model.InputFile, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("input path: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("input path %s is not a directory", root)
	}

	var files []model.InputFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable subtree: skip, don't fail the batch
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		// WalkDir does not follow symlinks, but a link to a video file
		// would still match on extension; exclude links entirely.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() || !IsVideo(path) {
			return nil
		}
		info, ierr := d.Info()
		if ierr != nil {
			return nil
		}
		files = append(files, model.InputFile{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	// WalkDir visits entries in lexical order already; the sort guards
	// the ordering contract if that ever changes.
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
