// Package probe inspects media files with ffprobe.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"hevcpress/internal/util"
)

// formatInfo mirrors the "format" object of ffprobe's JSON output.
type formatInfo struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration returns the total duration of the media file in seconds, using
// a single ffprobe JSON call. A file ffprobe cannot parse yields an error;
// a parseable file with no duration field yields 0 without error.
func Duration(ctx context.Context, runner util.CmdRunner, ffprobePath, path string) (float64, error) {
	res, err := runner.Run(ctx, util.CmdSpec{
		Path: ffprobePath,
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "json",
			path,
		},
		CaptureStdout: true,
	})
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var info formatInfo
	if err := json.Unmarshal(res.Stdout, &info); err != nil {
		return 0, fmt.Errorf("ffprobe %s: parse output: %w", path, err)
	}
	if info.Format.Duration == "" {
		return 0, nil
	}
	d, err := strconv.ParseFloat(info.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: parse duration %q: %w", path, info.Format.Duration, err)
	}
	return d, nil
}
