package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"hevcpress/internal/batch"
	"hevcpress/internal/model"
)

// Run launches the TUI over the planned entries and drives the batch to
// completion. It returns the final report so the caller can print the
// summary and decide the exit code.
func Run(ctx context.Context, inputRoot string, entries []batch.PlanEntry, run RunBatchFunc) (model.BatchReport, error) {
	m := NewModel(ctx, inputRoot, entries, run)
	prog := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil {
		return model.BatchReport{}, err
	}
	fm, ok := final.(Model)
	if !ok {
		return model.BatchReport{}, nil
	}
	return fm.report, fm.batchErr
}
