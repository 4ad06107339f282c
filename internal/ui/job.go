package ui

import (
	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"

	"hevcpress/internal/progress"
)

type jobState struct {
	id     string // source path; doubles as the reporter job ID
	rel    string // path relative to the input root, for display
	stage  progress.Stage
	status string
	err    error
	done   bool

	outputPath string
	bytes      int64
	percent    float64 // -1 means unknown
	skipped    bool

	spinner spinner.Model
	bar     bubblesprogress.Model
}

func newJobState(id, rel string, styles Styles) jobState {
	sp := spinner.New()
	sp.Style = styles.Spinner
	bar := bubblesprogress.New(
		bubblesprogress.WithDefaultGradient(),
		bubblesprogress.WithWidth(40),
	)
	return jobState{
		id:      id,
		rel:     rel,
		stage:   progress.StageQueued,
		status:  "Queued",
		percent: -1,
		spinner: sp,
		bar:     bar,
	}
}
