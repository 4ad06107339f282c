package encoder

import (
	"strconv"
	"strings"

	"hevcpress/internal/progress"
)

// ProgressState accumulates ffmpeg's -progress output across lines. The
// stream is key=value pairs terminated by a "progress=continue|end" marker;
// an Update is emitted only on the marker so consumers see consistent
// snapshots.
type ProgressState struct {
	OutTimeUs int64
	SpeedStr  string
	TotalSize int64
}

// UpdateFromLine updates the state from a progress line and returns an
// update when the progress marker is reached. durationSec <= 0 means the
// source duration is unknown and percent is reported as -1.
func (ps *ProgressState) UpdateFromLine(line, jobID string, durationSec float64) (u progress.Update, ok bool) {
	kv := strings.SplitN(line, "=", 2)
	if len(kv) != 2 {
		return progress.Update{}, false
	}

	key := strings.TrimSpace(kv[0])
	val := strings.TrimSpace(kv[1])

	switch key {
	case "out_time_ms":
		// Despite the name, ffmpeg reports microseconds here.
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			ps.OutTimeUs = v
		}
	case "speed":
		ps.SpeedStr = val
	case "total_size":
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			ps.TotalSize = v
		}
	case "progress":
		percent := -1.0
		if durationSec > 0 {
			den := durationSec * 1_000_000
			percent = (float64(ps.OutTimeUs) / den) * 100.0
			if percent > 100 {
				percent = 100
			}
		}

		var speedPtr *string
		if ps.SpeedStr != "" {
			s := ps.SpeedStr
			speedPtr = &s
		}

		var bytesPtr *int64
		if ps.TotalSize > 0 {
			b := ps.TotalSize
			bytesPtr = &b
		}

		return progress.Update{
			JobID:   jobID,
			Stage:   progress.StageEncoding,
			Percent: percent,
			Speed:   speedPtr,
			Bytes:   bytesPtr,
			Message: "Encoding",
		}, true
	}

	return progress.Update{}, false
}
