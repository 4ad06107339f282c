package ui

import (
	"context"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"hevcpress/internal/batch"
	"hevcpress/internal/model"
	"hevcpress/internal/progress"
	"hevcpress/internal/util/format"
)

// RunBatchFunc executes the batch with the given reporter and returns its
// report. The UI owns the reporter so events flow into the tea loop.
type RunBatchFunc func(ctx context.Context, rep progress.Reporter) (model.BatchReport, error)

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	inputRoot string
	jobOrder  []string
	jobs      map[string]*jobState

	runBatch RunBatchFunc

	report    model.BatchReport
	batchErr  error
	batchDone bool

	width, height int
	styles        Styles

	// Internal event channel used by the reporter to feed tea messages
	eventCh chan tea.Msg
}

func NewModel(ctx context.Context, inputRoot string, entries []batch.PlanEntry, run RunBatchFunc) Model {
	c, cancel := context.WithCancel(ctx)
	sty := defaultStyles()

	jobs := make(map[string]*jobState, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		id := e.Source.Path
		rel, err := filepath.Rel(inputRoot, e.Source.Path)
		if err != nil {
			rel = filepath.Base(e.Source.Path)
		}
		js := newJobState(id, rel, sty)
		jobs[id] = &js
		order = append(order, id)
	}

	return Model{
		ctx:       c,
		cancel:    cancel,
		inputRoot: inputRoot,
		jobs:      jobs,
		jobOrder:  order,
		runBatch:  run,
		styles:    sty,
		eventCh:   make(chan tea.Msg, 256),
	}
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		sp := m.jobs[id].spinner
		cmds = append(cmds, sp.Tick)
	}
	cmds = append(cmds, m.listenEventsCmd())
	cmds = append(cmds, m.startBatchCmd())
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Re-arm the channel listener only for messages it delivered; spinner
	// ticks and key events must not stack extra listeners.
	fromEvents := false
	switch msg.(type) {
	case jobUpdateMsg, jobLogMsg, jobResultMsg:
		fromEvents = true
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case jobUpdateMsg:
		u := msg.U
		if js, ok := m.jobs[u.JobID]; ok {
			js.stage = u.Stage
			js.percent = u.Percent
			js.status = u.Message
			if u.Bytes != nil {
				js.bytes = *u.Bytes
			}
		}
	case jobLogMsg:
		// Subprocess stderr is dropped in the TUI; verbose runs use the
		// plain path instead.
	case jobResultMsg:
		r := msg.R
		if js, ok := m.jobs[r.JobID]; ok {
			js.done = true
			js.err = r.Err
			js.skipped = r.Skipped
			switch {
			case r.Err != nil:
				js.stage = progress.StageError
				js.status = r.Err.Error()
				js.percent = -1
			case r.Skipped:
				js.stage = progress.StageSkipped
				js.status = "Skipped (already encoded)"
				js.percent = -1
			default:
				js.stage = progress.StageCompleted
				js.percent = 100
				js.outputPath = r.OutputPath
				js.bytes = r.Bytes
				js.status = "Saved: " + filepath.Base(r.OutputPath) + " (" + format.HumanizeBytes(r.Bytes) + ")"
			}
		}
	case batchDoneMsg:
		m.batchDone = true
		m.report = msg.Report
		m.batchErr = msg.Err
		return m, tea.Quit
	}

	// Update per-job components (spinner)
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		var c tea.Cmd
		js.spinner, c = js.spinner.Update(msg)
		if c != nil {
			cmds = append(cmds, c)
		}
	}
	if fromEvents {
		cmds = append(cmds, m.listenEventsCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return nil
		case msg := <-m.eventCh:
			return msg
		}
	}
}

// startBatchCmd launches the batch exactly once in its own goroutine; the
// teaReporter feeds per-job events back into the program.
func (m Model) startBatchCmd() tea.Cmd {
	rep := teaReporter{ch: m.eventCh}
	run := m.runBatch
	ctx := m.ctx
	return func() tea.Msg {
		report, err := run(ctx, rep)
		return batchDoneMsg{Report: report, Err: err}
	}
}

type teaReporter struct {
	ch chan tea.Msg
}

func (r teaReporter) Update(u progress.Update) {
	// Terminal stages must not be dropped
	if u.Stage == progress.StageCompleted || u.Stage == progress.StageError || u.Stage == progress.StageSkipped {
		r.ch <- jobUpdateMsg{U: u}
		return
	}
	select {
	case r.ch <- jobUpdateMsg{U: u}:
	default:
	}
}

func (r teaReporter) Log(l progress.Log) {
	select {
	case r.ch <- jobLogMsg{L: l}:
	default:
	}
}

func (r teaReporter) Result(res progress.Result) {
	// Result messages are critical; always block
	r.ch <- jobResultMsg{R: res}
}
