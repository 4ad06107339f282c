package progress

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// ConsoleReporter renders per-file progress as a terminal bar in plain
// (non-TUI) mode, falling back to one line per result when several jobs
// run at once.
type ConsoleReporter struct {
	mu      sync.Mutex
	bars    map[string]*progressbar.ProgressBar
	showBar bool
}

// NewConsoleReporter returns a ConsoleReporter. showBar should be false
// when more than one job can be in flight, so interleaved bars don't
// garble the terminal.
func NewConsoleReporter(showBar bool) *ConsoleReporter {
	return &ConsoleReporter{
		bars:    make(map[string]*progressbar.ProgressBar),
		showBar: showBar,
	}
}

func (c *ConsoleReporter) Update(u Update) {
	if !c.showBar || u.Stage != StageEncoding {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	bar, ok := c.bars[u.JobID]
	if !ok {
		bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(u.Message),
			progressbar.OptionSetWidth(40),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetPredictTime(false),
		)
		c.bars[u.JobID] = bar
	}
	if u.Percent >= 0 {
		_ = bar.Set(int(u.Percent))
	}
}

func (c *ConsoleReporter) Log(l Log) {
	// Subprocess noise is only interesting in verbose mode, which streams
	// it directly; nothing to do here.
}

func (c *ConsoleReporter) Result(r Result) {
	c.mu.Lock()
	if bar, ok := c.bars[r.JobID]; ok {
		_ = bar.Finish()
		delete(c.bars, r.JobID)
	}
	c.mu.Unlock()

	switch {
	case r.Err != nil:
		fmt.Fprintf(os.Stderr, "failed: %s: %v\n", r.JobID, r.Err)
	case r.Skipped:
		fmt.Printf("skipped: %s (up to date)\n", r.JobID)
	default:
		fmt.Printf("encoded: %s (%.2f MB)\n", filepath.Base(r.OutputPath), float64(r.Bytes)/(1024*1024))
	}
}
