// Package batch drives the scan → map → encode → preserve → upload loop
// over an input tree.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"hevcpress/internal/encoder"
	"hevcpress/internal/model"
	"hevcpress/internal/pathmap"
	"hevcpress/internal/preserve"
	"hevcpress/internal/probe"
	"hevcpress/internal/progress"
	"hevcpress/internal/scan"
	"hevcpress/internal/upload"
	"hevcpress/internal/util"
)

// Service orchestrates one batch run. Construct with NewService and the
// functional options; zero-value fields get sensible defaults.
type Service struct {
	opts     model.CLIOptions
	settings model.Settings
	runner   util.CmdRunner
	reporter progress.Reporter
	uploader upload.Uploader
}

// Option configures a Service.
type Option func(*Service)

// WithCLIOptions sets the parsed command-line options.
func WithCLIOptions(o model.CLIOptions) Option {
	return func(s *Service) { s.opts = o }
}

// WithSettings sets the immutable encode settings.
func WithSettings(set model.Settings) Option {
	return func(s *Service) { s.settings = set }
}

// WithRunner injects a custom command runner (useful for testing).
func WithRunner(r util.CmdRunner) Option {
	return func(s *Service) { s.runner = r }
}

// WithReporter attaches a progress reporter.
func WithReporter(rp progress.Reporter) Option {
	return func(s *Service) { s.reporter = rp }
}

// WithUploader attaches the optional upload capability. Nil disables the
// upload step.
func WithUploader(u upload.Uploader) Option {
	return func(s *Service) { s.uploader = u }
}

// NewService constructs a Service with the provided options.
func NewService(opts ...Option) *Service {
	s := &Service{}
	for _, o := range opts {
		o(s)
	}
	if s.runner == nil {
		s.runner = util.NewDefaultRunner()
	}
	if s.reporter == nil {
		s.reporter = progress.Nop()
	}
	return s
}

// Run processes every video file under the input root. Per-file failures
// are recorded and the batch continues; a missing encoder or probe binary
// halts it, returning the partial report alongside
// encoder.ErrEncoderMissing. Report entries always follow input discovery
// order, regardless of worker count.
func (s *Service) Run(ctx context.Context) (model.BatchReport, error) {
	var report model.BatchReport

	files, err := scan.Scan(s.opts.InputPath)
	if err != nil {
		return report, err
	}

	mapper := pathmap.New(s.opts.InputPath, s.opts.OutputPath)
	if err := util.EnsureDir(mapper.OutputRoot()); err != nil {
		return report, fmt.Errorf("create output root: %w", err)
	}

	targets, preFailed := s.resolveTargets(files, mapper)

	workers := s.opts.Jobs
	if workers < 1 {
		workers = 1
	}
	if workers > len(files) {
		workers = len(files)
	}

	// Slots indexed by discovery position keep the report reproducible
	// even when workers finish out of order.
	slots := make([]*model.EncodeResult, len(files))

	haltCtx, halt := context.WithCancel(ctx)
	defer halt()

	indices := make(chan int)
	var wg sync.WaitGroup
	var haltedMu sync.Mutex
	halted := false

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				if haltCtx.Err() != nil {
					return
				}
				if pf := preFailed[i]; pf != nil {
					slots[i] = pf
					s.emitResult(*pf)
					continue
				}
				res := s.processOne(haltCtx, files[i], targets[i], mapper)
				slots[i] = &res
				s.emitResult(res)
				if errors.Is(res.Err, encoder.ErrEncoderMissing) {
					haltedMu.Lock()
					halted = true
					haltedMu.Unlock()
					halt()
					return
				}
			}
		}()
	}

feed:
	for i := range files {
		select {
		case indices <- i:
		case <-haltCtx.Done():
			break feed
		}
	}
	close(indices)
	wg.Wait()

	for _, r := range slots {
		if r != nil {
			report.Results = append(report.Results, *r)
		}
	}
	report.Halted = halted
	if halted {
		return report, encoder.ErrEncoderMissing
	}
	return report, nil
}

// resolveTargets maps every input to its output before any worker runs.
// Extension normalization is not injective (a.mov and a.mp4 both land on
// a.mp4), so a later input whose target is already claimed must fail up
// front; letting it through would either silently skip it or have two
// workers writing the same file.
func (s *Service) resolveTargets(files []model.InputFile, mapper pathmap.Mapper) ([]model.OutputTarget, []*model.EncodeResult) {
	targets := make([]model.OutputTarget, len(files))
	failed := make([]*model.EncodeResult, len(files))
	claimedBy := make(map[string]string, len(files))

	for i, in := range files {
		target, err := mapper.Resolve(in)
		if err != nil {
			res := s.fail(in, model.OutputTarget{}, err.Error(), err)
			failed[i] = &res
			continue
		}
		targets[i] = target
		if first, ok := claimedBy[target.Path]; ok {
			res := s.fail(in, target, fmt.Sprintf("output %s already claimed by %s", target.Path, first), nil)
			failed[i] = &res
			continue
		}
		claimedBy[target.Path] = in.Path
	}
	return targets, failed
}

// processOne produces exactly one EncodeResult for the file, whatever
// happens.
func (s *Service) processOne(ctx context.Context, in model.InputFile, target model.OutputTarget, mapper pathmap.Mapper) model.EncodeResult {
	jobID := in.Path

	// Idempotent reruns: timestamp preservation gives a finished output the
	// same mtime as its source, so anything not older than the source was
	// produced by a previous pass and is left alone.
	if fi, err := os.Stat(target.Path); err == nil && !fi.ModTime().Before(in.ModTime) {
		return model.EncodeResult{
			Source: in,
			Dest:   target,
			Status: model.StatusSkipped,
			Reason: "output exists and is up to date",
		}
	}

	if err := mapper.EnsureParentDirs(target); err != nil {
		return s.fail(in, target, fmt.Sprintf("create output directory: %v", err), err)
	}

	s.reporter.Update(progress.Update{
		JobID:   jobID,
		Stage:   progress.StageProbing,
		Percent: -1,
		Message: "Probing " + filepath.Base(in.Path),
	})

	duration, err := probe.Duration(ctx, s.runner, s.settings.FFprobePath, in.Path)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			// The probe tool is as much a prerequisite as the encoder.
			return s.fail(in, target, fmt.Sprintf("ffprobe executable not found (looked for %q)", s.settings.FFprobePath), encoder.ErrEncoderMissing)
		}
		return s.fail(in, target, fmt.Sprintf("unreadable source: %v", err), err)
	}

	job := model.EncodeJob{
		Source:      in,
		Dest:        target,
		Mode:        s.opts.Mode(),
		DurationSec: duration,
	}

	res := encoder.Encode(ctx, job, encoder.Options{
		Settings: s.settings,
		Verbose:  s.opts.Verbose,
		Reporter: s.reporter,
		JobID:    jobID,
		Runner:   s.runner,
	})
	if res.Status != model.StatusSuccess {
		return res
	}

	s.reporter.Update(progress.Update{
		JobID:   jobID,
		Stage:   progress.StagePreserving,
		Percent: -1,
		Message: "Preserving timestamps",
	})
	if err := preserve.Apply(in.Path, target.Path); err != nil {
		return s.fail(in, target, err.Error(), err)
	}

	if s.uploader != nil {
		s.reporter.Update(progress.Update{
			JobID:   jobID,
			Stage:   progress.StageUploading,
			Percent: -1,
			Message: "Uploading " + filepath.Base(target.Path),
		})
		id, uerr := s.uploader.Upload(ctx, target.Path)
		if uerr != nil {
			// The upload collaborator being unavailable never fails the
			// encode itself.
			s.reporter.Log(progress.Log{
				JobID:  jobID,
				Stream: progress.StreamStderr,
				Line:   fmt.Sprintf("warning: upload failed: %v", uerr),
			})
		} else {
			res.RemoteID = id
		}
	}

	return res
}

func (s *Service) fail(in model.InputFile, target model.OutputTarget, reason string, err error) model.EncodeResult {
	return model.EncodeResult{
		Source: in,
		Dest:   target,
		Status: model.StatusFailure,
		Reason: reason,
		Err:    err,
	}
}

func (s *Service) emitResult(res model.EncodeResult) {
	r := progress.Result{
		JobID:      res.Source.Path,
		OutputPath: res.Dest.Path,
		Bytes:      res.OutputBytes,
		Skipped:    res.Status == model.StatusSkipped,
	}
	if res.Status == model.StatusFailure {
		if res.Err != nil {
			r.Err = fmt.Errorf("%s: %w", res.Reason, res.Err)
		} else {
			r.Err = errors.New(res.Reason)
		}
	}
	s.reporter.Result(r)
}
