package progress

import "time"

// Stage identifies a high-level step in the per-file pipeline.
type Stage string

const (
	StageQueued     Stage = "queued"
	StageProbing    Stage = "probing"
	StageEncoding   Stage = "encoding"
	StagePreserving Stage = "preserving"
	StageUploading  Stage = "uploading"
	StageCompleted  Stage = "completed"
	StageSkipped    Stage = "skipped"
	StageError      Stage = "error"
)

// LogStream indicates which stream produced a log line.
type LogStream int

const (
	StreamStdout LogStream = iota
	StreamStderr
)

// Update conveys progress or stage changes for a job.
// Percent is 0..100 when known; set to a negative value (e.g., -1) to mean unknown.
type Update struct {
	JobID   string
	Stage   Stage
	Percent float64 // 0..100, or <0 if unknown

	Bytes   *int64  // optional cumulative output bytes
	Speed   *string // optional, e.g., "1.2x"
	Message string  // short human-friendly status line
}

// Log is a structured log line associated with a job.
type Log struct {
	JobID  string
	Stream LogStream
	Line   string
}

// Result is emitted once per job when it completes, skips, or fails.
type Result struct {
	JobID      string
	OutputPath string
	Bytes      int64
	Skipped    bool
	Err        error // nil on success
}

// Reporter is implemented by UI or any observer interested in progress events.
type Reporter interface {
	Update(u Update)
	Log(l Log)
	Result(r Result)
}

// Funcs adapts plain functions to the Reporter interface. Nil fields
// discard their events.
type Funcs struct {
	UpdateFunc func(Update)
	LogFunc    func(Log)
	ResultFunc func(Result)
}

func (f Funcs) Update(u Update) {
	if f.UpdateFunc != nil {
		f.UpdateFunc(u)
	}
}

func (f Funcs) Log(l Log) {
	if f.LogFunc != nil {
		f.LogFunc(l)
	}
}

func (f Funcs) Result(r Result) {
	if f.ResultFunc != nil {
		f.ResultFunc(r)
	}
}

// Nop returns a Reporter that discards everything.
func Nop() Reporter { return nopReporter{} }

type nopReporter struct{}

func (nopReporter) Update(Update) {}
func (nopReporter) Log(Log)       {}
func (nopReporter) Result(Result) {}

// Throttled wraps a Reporter so Update events are forwarded at most once
// per interval. Terminal stages always pass through so completion is never
// lost. Log and Result are forwarded unconditionally.
func Throttled(r Reporter, interval time.Duration) Reporter {
	if interval <= 0 {
		return r
	}
	return &throttledReporter{inner: r, interval: interval}
}

type throttledReporter struct {
	inner    Reporter
	interval time.Duration
	last     time.Time
}

func (t *throttledReporter) Update(u Update) {
	switch u.Stage {
	case StageCompleted, StageSkipped, StageError:
		t.inner.Update(u)
		return
	}
	now := time.Now()
	if now.Sub(t.last) < t.interval {
		return
	}
	t.last = now
	t.inner.Update(u)
}

func (t *throttledReporter) Log(l Log)       { t.inner.Log(l) }
func (t *throttledReporter) Result(r Result) { t.inner.Result(r) }
