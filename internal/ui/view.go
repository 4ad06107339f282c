package ui

import (
	"fmt"
	"strings"

	"hevcpress/internal/progress"
)

func (m Model) viewHeader() string {
	done, total := 0, len(m.jobOrder)
	for _, id := range m.jobOrder {
		if m.jobs[id].done {
			done++
		}
	}
	title := m.styles.Title.Render("hevcpress · batch H.265 re-encode")
	sub := m.styles.Subtitle.Render(fmt.Sprintf("Files: %d/%d done • q: quit", done, total))
	return title + "\n" + sub
}

func (m Model) viewJobs() string {
	var b strings.Builder
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		b.WriteString(m.viewJob(js))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewJob(js *jobState) string {
	stageStyle := m.styles.JobInfo
	switch js.stage {
	case progress.StageProbing:
		stageStyle = m.styles.StageProbe
	case progress.StageEncoding, progress.StagePreserving:
		stageStyle = m.styles.StageEnc
	case progress.StageUploading:
		stageStyle = m.styles.StageUp
	case progress.StageCompleted:
		stageStyle = m.styles.Success
	case progress.StageSkipped:
		stageStyle = m.styles.Faint
	case progress.StageError:
		stageStyle = m.styles.Error
	}

	left := m.styles.JobTitle.Render(truncate(js.rel, 48))
	stage := stageStyle.Render(string(js.stage))

	var right string
	if js.percent >= 0 && js.percent <= 100 {
		right = fmt.Sprintf("%s %5.1f%%", js.bar.ViewAs(js.percent/100.0), js.percent)
	} else if js.done && js.skipped {
		right = m.styles.Faint.Render("– skipped")
	} else if js.done && js.err == nil {
		right = m.styles.Success.Render("✓ done")
	} else if js.err != nil {
		right = m.styles.Error.Render("✗ error")
	} else {
		right = m.styles.Spinner.Render(js.spinner.View()) + " " + m.styles.Faint.Render("waiting")
	}

	line1 := fmt.Sprintf("%s  %s", left, stage)
	line2 := m.styles.JobInfo.Render(js.status)
	return m.styles.Box.Render(line1 + "\n" + right + "\n" + line2)
}

func (m Model) viewSummary() string {
	succeeded, failed, skipped := 0, 0, 0
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		if !js.done {
			continue
		}
		switch {
		case js.err != nil:
			failed++
		case js.skipped:
			skipped++
		default:
			succeeded++
		}
	}
	if succeeded+failed+skipped == 0 {
		return ""
	}
	line := fmt.Sprintf("%d encoded • %d failed • %d skipped", succeeded, failed, skipped)
	if failed > 0 {
		return m.styles.Warning.Render(line)
	}
	return m.styles.Subtitle.Render(line)
}

func (m Model) View() string {
	summary := m.viewSummary()
	if summary != "" {
		return m.viewHeader() + "\n\n" + m.viewJobs() + "\n" + summary
	}
	return m.viewHeader() + "\n\n" + m.viewJobs()
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if n <= 0 || len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
