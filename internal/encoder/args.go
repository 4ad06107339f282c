package encoder

import (
	"strconv"

	"hevcpress/internal/model"
)

// BuildArgs constructs the ffmpeg argument list for an encode job. It is a
// pure function of the job and settings.
//
// The CPU profile targets libx265 with CRF quality; the GPU profile targets
// hevc_nvenc with a constant-quality value and unconstrained VBR so the
// encoder is free to spend bits where it needs them. Both copy container
// metadata from the source and tag the stream hvc1 so Apple players
// recognize the codec.
func BuildArgs(job model.EncodeJob, set model.Settings, includeProgress bool) []string {
	args := []string{
		"-y",
		"-i", job.Source.Path,
		"-map_metadata", "0",
	}

	if job.Mode == model.ModeGPU {
		args = append(args,
			"-c:v", "hevc_nvenc",
			"-cq", strconv.Itoa(set.GPUCQ),
			"-preset", set.GPUPreset,
			"-rc", "vbr",
			"-b:v", "0k",
			"-qmin", "0",
			"-qmax", "51",
		)
	} else {
		args = append(args,
			"-c:v", "libx265",
			"-crf", strconv.Itoa(set.CPUCRF),
			"-preset", set.CPUPreset,
		)
	}

	args = append(args,
		"-tag:v", "hvc1",
		"-c:a", set.AudioCodec,
		"-b:a", set.AudioBitrate,
	)

	if includeProgress {
		args = append(args, "-progress", "pipe:1", "-nostats")
	}

	args = append(args, job.Dest.Path)
	return args
}
