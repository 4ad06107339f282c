// Package encoder builds and supervises ffmpeg encode processes.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"hevcpress/internal/model"
	"hevcpress/internal/progress"
	"hevcpress/internal/util"
)

// ErrEncoderMissing indicates the ffmpeg binary could not be launched at
// all. It is a batch-global condition: once seen, there is no point in
// attempting further files.
var ErrEncoderMissing = errors.New("ffmpeg executable not found")

// reporterInterval bounds how often raw progress lines are forwarded to
// the reporter.
const reporterInterval = 250 * time.Millisecond

// Options control a single supervised encode.
type Options struct {
	Settings model.Settings
	Verbose  bool
	Reporter progress.Reporter
	JobID    string
	Runner   util.CmdRunner
}

// Encode launches ffmpeg for the job, streams its progress to the
// reporter, and classifies the outcome. It blocks until the process
// exits, is cancelled, or the stall watchdog kills it. A partial output
// file is removed on every non-success path.
func Encode(ctx context.Context, job model.EncodeJob, opts Options) model.EncodeResult {
	runner := opts.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	rep := opts.Reporter
	if rep == nil {
		rep = progress.Nop()
	}
	rep = progress.Throttled(rep, reporterInterval)

	args := BuildArgs(job, opts.Settings, true)

	// Watchdog: a wedged encoder produces no progress output; kill it
	// rather than block the batch forever.
	encCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stallTimeout := opts.Settings.StallTimeout
	var stalled atomic.Bool
	var watchdog *time.Timer
	if stallTimeout > 0 {
		watchdog = time.AfterFunc(stallTimeout, func() {
			stalled.Store(true)
			cancel()
		})
		defer watchdog.Stop()
	}

	st := &ProgressState{}
	started := time.Now()

	res, runErr := runner.Run(encCtx, util.CmdSpec{
		Path:    opts.Settings.FFmpegPath,
		Args:    args,
		Verbose: opts.Verbose,
		StdoutLine: func(line string) {
			if watchdog != nil {
				watchdog.Reset(stallTimeout)
			}
			if u, ok := st.UpdateFromLine(line, opts.JobID, job.DurationSec); ok {
				rep.Update(u)
			}
		},
		StderrLine: func(line string) {
			rep.Log(progress.Log{JobID: opts.JobID, Stream: progress.StreamStderr, Line: line})
		},
	})
	elapsed := time.Since(started)

	if runErr != nil {
		_ = util.RemoveIfExists(job.Dest.Path)

		switch {
		case errors.Is(runErr, exec.ErrNotFound):
			return failure(job, fmt.Sprintf("%v (looked for %q)", ErrEncoderMissing, opts.Settings.FFmpegPath), res.Code, ErrEncoderMissing)
		case stalled.Load():
			return failure(job, fmt.Sprintf("encoder produced no progress for %s and was killed", stallTimeout), res.Code, runErr)
		case ctx.Err() != nil:
			return failure(job, "interrupted; partial output discarded", res.Code, ctx.Err())
		default:
			reason := fmt.Sprintf("ffmpeg exited with code %d", res.Code)
			if tail := stderrTail(res.Stderr, 10); tail != "" {
				reason += ": " + tail
			}
			return failure(job, reason, res.Code, runErr)
		}
	}

	// The encoder can exit 0 while writing nothing usable, e.g. when it
	// is misconfigured for the selected hardware.
	fi, err := os.Stat(job.Dest.Path)
	if err != nil || fi.Size() == 0 {
		_ = util.RemoveIfExists(job.Dest.Path)
		return failure(job, "encoder reported success but produced no usable output", 0, err)
	}

	return model.EncodeResult{
		Source:      job.Source,
		Dest:        job.Dest,
		Status:      model.StatusSuccess,
		Elapsed:     elapsed,
		OutputBytes: fi.Size(),
	}
}

func failure(job model.EncodeJob, reason string, code int, err error) model.EncodeResult {
	return model.EncodeResult{
		Source:   job.Source,
		Dest:     job.Dest,
		Status:   model.StatusFailure,
		Reason:   reason,
		ExitCode: code,
		Err:      err,
	}
}

// stderrTail returns the last n non-empty lines of captured stderr,
// joined for a compact diagnostic.
func stderrTail(stderr []byte, n int) string {
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	var kept []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, strings.TrimSpace(l))
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, " | ")
}
