package model

import "time"

// EncodeMode selects between the software and hardware encoder profiles.
type EncodeMode string

const (
	ModeCPU EncodeMode = "cpu" // libx265, quality via CRF
	ModeGPU EncodeMode = "gpu" // hevc_nvenc, quality via CQ
)

// InputFile describes one discovered source video. Identity is the
// absolute path; the struct is never mutated after discovery.
type InputFile struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// OutputTarget is the mirrored destination for an InputFile, with the
// extension normalized to the output container.
type OutputTarget struct {
	Path string
}

// EncodeJob is the per-file unit of work handed to the encoder. It is a
// value object rebuilt for every file and never persisted.
type EncodeJob struct {
	Source InputFile
	Dest   OutputTarget
	Mode   EncodeMode

	// DurationSec is the probed source duration; 0 means unknown, in
	// which case progress percent cannot be computed.
	DurationSec float64
}

// ResultStatus tags the outcome of one EncodeJob.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusFailure ResultStatus = "failure"
	StatusSkipped ResultStatus = "skipped"
)

// EncodeResult is the immutable outcome record for one InputFile. Exactly
// one is produced per discovered file, failure or not.
type EncodeResult struct {
	Source InputFile
	Dest   OutputTarget
	Status ResultStatus

	// Success fields
	Elapsed     time.Duration
	OutputBytes int64
	RemoteID    string // set when the file was uploaded

	// Failure/Skipped fields
	Reason   string
	ExitCode int
	Err      error
}

// BatchReport aggregates per-file results in input discovery order.
type BatchReport struct {
	Results []EncodeResult
	Halted  bool // true when a missing prerequisite stopped the batch early
}

// Counts returns the number of succeeded, failed, and skipped entries.
func (r *BatchReport) Counts() (succeeded, failed, skipped int) {
	for _, res := range r.Results {
		switch res.Status {
		case StatusSuccess:
			succeeded++
		case StatusFailure:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return
}

// Settings is the immutable encoding configuration threaded into the job
// builder and supervisor. It replaces any ambient global state so tests
// can run with overridden values.
type Settings struct {
	FFmpegPath  string
	FFprobePath string

	CPUCRF    int    // libx265 CRF, default 20
	CPUPreset string // default "medium"
	GPUCQ     int    // NVENC constant-quality value, default 23
	GPUPreset string // default "medium"

	AudioCodec   string // default "aac"
	AudioBitrate string // default "192k"

	StallTimeout time.Duration // kill the encoder after this much silence
}

// CLIOptions holds user-configurable runtime options as parsed from flags.
type CLIOptions struct {
	InputPath  string
	OutputPath string // empty = sibling "<input>_encoded" directory
	GPU        bool
	Jobs       int
	Upload     bool
	Verbose    bool
	NoUI       bool
	DryRun     bool
}

// Mode returns the encode mode selected by the --gpu flag.
func (o CLIOptions) Mode() EncodeMode {
	if o.GPU {
		return ModeGPU
	}
	return ModeCPU
}
