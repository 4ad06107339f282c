package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"hevcpress/internal/encoder"
	"hevcpress/internal/model"
	"hevcpress/internal/progress"
	"hevcpress/internal/util"
)

// fakeTools answers both the probe and the encode invocations so a full
// batch can run without real binaries.
type fakeTools struct {
	mu            sync.Mutex
	ffmpegCalls   []string // source paths, in call order
	failSources   map[string]bool
	ffmpegMissing bool
	probeMissing  bool
}

func (f *fakeTools) Run(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	if strings.Contains(spec.Path, "ffprobe") {
		return f.runProbe(spec)
	}
	return f.runFFmpeg(spec)
}

func (f *fakeTools) runProbe(spec util.CmdSpec) (util.CmdResult, error) {
	if f.probeMissing {
		err := &exec.Error{Name: spec.Path, Err: exec.ErrNotFound}
		return util.CmdResult{Code: -1, Err: err}, err
	}
	out := []byte(`{"format":{"duration":"42.5"}}`)
	return util.CmdResult{Stdout: out, Code: 0}, nil
}

func (f *fakeTools) runFFmpeg(spec util.CmdSpec) (util.CmdResult, error) {
	if f.ffmpegMissing {
		err := &exec.Error{Name: spec.Path, Err: exec.ErrNotFound}
		return util.CmdResult{Code: -1, Err: err}, err
	}
	src := spec.Args[2] // -y -i <src> ...
	f.mu.Lock()
	f.ffmpegCalls = append(f.ffmpegCalls, src)
	f.mu.Unlock()

	if f.failSources[filepath.Base(src)] {
		err := errors.New("exit status 1")
		return util.CmdResult{Stderr: []byte("Invalid data found"), Code: 1, Err: err}, err
	}
	dest := spec.Args[len(spec.Args)-1]
	if err := os.WriteFile(dest, []byte("encoded"), 0o644); err != nil {
		return util.CmdResult{}, err
	}
	return util.CmdResult{Code: 0}, nil
}

type fakeUploader struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (u *fakeUploader) Upload(ctx context.Context, path string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	u.paths = append(u.paths, path)
	return fmt.Sprintf("media-%d", len(u.paths)), nil
}

func writeSource(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("raw video"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func testService(in, out string, tools *fakeTools, extra ...Option) *Service {
	opts := []Option{
		WithCLIOptions(model.CLIOptions{InputPath: in, OutputPath: out, Jobs: 1}),
		WithSettings(model.Settings{
			FFmpegPath:  "/usr/bin/ffmpeg",
			FFprobePath: "/usr/bin/ffprobe",
			CPUCRF:      20,
			CPUPreset:   "medium",
			AudioCodec:  "aac",
		}),
		WithRunner(tools),
	}
	return NewService(append(opts, extra...)...)
}

func TestRun_MirrorsTree(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	mtime := time.Date(2020, 3, 1, 9, 0, 0, 0, time.UTC)
	writeSource(t, filepath.Join(in, "a.mov"), mtime)
	writeSource(t, filepath.Join(in, "trip", "b.mkv"), mtime)

	tools := &fakeTools{}
	report, err := testService(in, out, tools).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	succeeded, failed, skipped := report.Counts()
	if succeeded != 2 || failed != 0 || skipped != 0 {
		t.Fatalf("counts = %d/%d/%d, want 2 succeeded", succeeded, failed, skipped)
	}

	wantOutputs := []string{
		filepath.Join(out, "a.mp4"),
		filepath.Join(out, "trip", "b.mp4"),
	}
	for i, p := range wantOutputs {
		if report.Results[i].Dest.Path != p {
			t.Errorf("Results[%d].Dest = %q, want %q", i, report.Results[i].Dest.Path, p)
		}
		fi, err := os.Stat(p)
		if err != nil {
			t.Fatalf("output %s missing: %v", p, err)
		}
		if !fi.ModTime().Equal(mtime) {
			t.Errorf("%s mtime = %v, want %v", p, fi.ModTime(), mtime)
		}
	}
}

func TestRun_SecondRunSkips(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	mtime := time.Date(2020, 3, 1, 9, 0, 0, 0, time.UTC)
	writeSource(t, filepath.Join(in, "a.mov"), mtime)
	writeSource(t, filepath.Join(in, "b.avi"), mtime)

	tools := &fakeTools{}
	svc := testService(in, out, tools)
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	succeeded, _, skipped := report.Counts()
	if skipped != 2 || succeeded != 0 {
		t.Errorf("second run counts: %d succeeded, %d skipped, want 2 skipped", succeeded, skipped)
	}
	if got := len(tools.ffmpegCalls); got != 2 {
		t.Errorf("ffmpeg invoked %d times across both runs, want 2", got)
	}
}

func TestRun_PerFileFailureContinues(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	mtime := time.Now().Add(-time.Hour)
	writeSource(t, filepath.Join(in, "bad.mov"), mtime)
	writeSource(t, filepath.Join(in, "good.mov"), mtime)

	tools := &fakeTools{failSources: map[string]bool{"bad.mov": true}}
	report, err := testService(in, out, tools).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(report.Results))
	}
	if report.Results[0].Status != model.StatusFailure {
		t.Errorf("bad.mov status = %v, want failure", report.Results[0].Status)
	}
	if report.Results[1].Status != model.StatusSuccess {
		t.Errorf("good.mov status = %v, want success", report.Results[1].Status)
	}
	if report.Halted {
		t.Error("a per-file failure must not halt the batch")
	}
}

func TestRun_EncoderMissingHalts(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	mtime := time.Now().Add(-time.Hour)
	for _, name := range []string{"a.mov", "b.mov", "c.mov"} {
		writeSource(t, filepath.Join(in, name), mtime)
	}

	tools := &fakeTools{ffmpegMissing: true}
	report, err := testService(in, out, tools).Run(context.Background())
	if !errors.Is(err, encoder.ErrEncoderMissing) {
		t.Fatalf("err = %v, want ErrEncoderMissing", err)
	}
	if !report.Halted {
		t.Error("report.Halted = false, want true")
	}
	if len(report.Results) == 0 {
		t.Error("expected at least the failing result in the partial report")
	}
	for _, r := range report.Results {
		if r.Status == model.StatusSuccess {
			t.Errorf("no file can succeed without an encoder, got success for %s", r.Source.Path)
		}
	}
}

func TestRun_ProbeMissingHalts(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	mtime := time.Now().Add(-time.Hour)
	writeSource(t, filepath.Join(in, "a.mov"), mtime)

	tools := &fakeTools{probeMissing: true}
	_, err := testService(in, filepath.Join(root, "out"), tools).Run(context.Background())
	if !errors.Is(err, encoder.ErrEncoderMissing) {
		t.Fatalf("err = %v, want ErrEncoderMissing", err)
	}
}

func TestRun_UploadSuccessRecordsRemoteID(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	mtime := time.Now().Add(-time.Hour)
	writeSource(t, filepath.Join(in, "a.mov"), mtime)

	up := &fakeUploader{}
	tools := &fakeTools{}
	report, err := testService(in, filepath.Join(root, "out"), tools, WithUploader(up)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Results[0].RemoteID == "" {
		t.Error("RemoteID not recorded after upload")
	}
	if len(up.paths) != 1 {
		t.Errorf("uploader called %d times, want 1", len(up.paths))
	}
}

func TestRun_UploadFailureDoesNotFailFile(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	mtime := time.Now().Add(-time.Hour)
	writeSource(t, filepath.Join(in, "a.mov"), mtime)

	up := &fakeUploader{err: errors.New("503 backend unavailable")}
	tools := &fakeTools{}
	report, err := testService(in, filepath.Join(root, "out"), tools, WithUploader(up)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res := report.Results[0]
	if res.Status != model.StatusSuccess {
		t.Errorf("status = %v, want success despite upload failure", res.Status)
	}
	if res.RemoteID != "" {
		t.Errorf("RemoteID = %q, want empty", res.RemoteID)
	}
}

func TestRun_ParallelWorkersKeepDiscoveryOrder(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	mtime := time.Now().Add(-time.Hour)
	var wantOrder []string
	for _, name := range []string{"a.mov", "b.mov", "c.mov", "d.mov", "e.mov"} {
		writeSource(t, filepath.Join(in, name), mtime)
		wantOrder = append(wantOrder, filepath.Join(in, name))
	}

	tools := &fakeTools{}
	svc := testService(in, filepath.Join(root, "out"), tools,
		WithCLIOptions(model.CLIOptions{InputPath: in, OutputPath: filepath.Join(root, "out"), Jobs: 4}))
	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Results) != len(wantOrder) {
		t.Fatalf("got %d results, want %d", len(report.Results), len(wantOrder))
	}
	for i, r := range report.Results {
		if r.Source.Path != wantOrder[i] {
			t.Errorf("Results[%d] = %q, want %q", i, r.Source.Path, wantOrder[i])
		}
	}
}

func TestRun_CollidingOutputsFailInsteadOfSkip(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	mtime := time.Now().Add(-time.Hour)
	// Extension normalization maps both of these to out/a.mp4.
	writeSource(t, filepath.Join(in, "a.mov"), mtime)
	writeSource(t, filepath.Join(in, "a.mp4"), mtime)

	tools := &fakeTools{}
	report, err := testService(in, out, tools).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(report.Results))
	}
	first, second := report.Results[0], report.Results[1]
	if first.Status != model.StatusSuccess {
		t.Errorf("%s status = %v, want success", first.Source.Path, first.Status)
	}
	if second.Status != model.StatusFailure {
		t.Fatalf("%s status = %v, want failure (not a silent skip)", second.Source.Path, second.Status)
	}
	if !strings.Contains(second.Reason, "already claimed by") || !strings.Contains(second.Reason, first.Source.Path) {
		t.Errorf("reason = %q, want the claiming input named", second.Reason)
	}
	if got := len(tools.ffmpegCalls); got != 1 {
		t.Errorf("ffmpeg invoked %d times, want 1 (the colliding input must not encode)", got)
	}
}

func TestRun_CollidingOutputsNeverShareAWriter(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	mtime := time.Now().Add(-time.Hour)
	writeSource(t, filepath.Join(in, "a.mov"), mtime)
	writeSource(t, filepath.Join(in, "a.mp4"), mtime)
	writeSource(t, filepath.Join(in, "b.mkv"), mtime)

	tools := &fakeTools{}
	svc := testService(in, out, tools,
		WithCLIOptions(model.CLIOptions{InputPath: in, OutputPath: out, Jobs: 3}))
	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	dests := make(map[string]int)
	for _, r := range report.Results {
		if r.Status == model.StatusSuccess {
			dests[r.Dest.Path]++
		}
	}
	for d, n := range dests {
		if n > 1 {
			t.Errorf("%d successful encodes wrote %s", n, d)
		}
	}
	succeeded, failed, _ := report.Counts()
	if succeeded != 2 || failed != 1 {
		t.Errorf("counts = %d succeeded / %d failed, want 2/1", succeeded, failed)
	}
}

func TestRun_MissingInputRoot(t *testing.T) {
	tools := &fakeTools{}
	_, err := testService(filepath.Join(t.TempDir(), "nope"), "", tools).Run(context.Background())
	if err == nil {
		t.Error("expected error for missing input root")
	}
}

// progress updates flow through whatever reporter the service carries;
// terminal results must always arrive.
func TestRun_ReporterSeesResults(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	writeSource(t, filepath.Join(in, "a.mov"), time.Now().Add(-time.Hour))

	var mu sync.Mutex
	var results []progress.Result
	rep := progress.Funcs{
		ResultFunc: func(r progress.Result) {
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		},
	}

	tools := &fakeTools{}
	if _, err := testService(in, filepath.Join(root, "out"), tools, WithReporter(rep)).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("reporter saw %d results, want 1", len(results))
	}
	if results[0].Err != nil || results[0].Skipped {
		t.Errorf("unexpected result: %+v", results[0])
	}
}
