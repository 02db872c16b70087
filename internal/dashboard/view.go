package dashboard

import (
	"fmt"
	"strings"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("pipelinectl dashboard"))
	b.WriteString("\n")

	status := "waiting for pipeline start"
	if m.started {
		status = "running"
	}
	if m.finished {
		if m.outcome.Err != nil {
			status = "failed"
		} else {
			status = "succeeded"
		}
	}
	b.WriteString(sectionStyle.Render("run: " + status))
	b.WriteString("\n")

	for _, id := range m.nodes {
		v := m.views[id]
		style := styleFor(v.Status)
		marker := m.spinner.View()
		if v.Status != "running" {
			marker = glyphFor(v.Status)
		}
		line := fmt.Sprintf("%s %-20s %-10s in=%-4d out=%-4d retries=%d",
			marker, id, v.Status, v.ItemsIn, v.ItemsOut, v.Retries)
		b.WriteString(style.Render(line))
		if v.LastErr != nil {
			b.WriteString("  " + failedStyle.Render(v.LastErr.Error()))
		}
		b.WriteString("\n")
	}

	if m.finished {
		summary := "pipeline finished successfully"
		if m.outcome.Err != nil {
			summary = fmt.Sprintf("pipeline finished with error: %v", m.outcome.Err)
		}
		b.WriteString(summaryStyle.Render(summary))
		b.WriteString("\n")
	}

	b.WriteString(pendingStyle.Render("q to quit"))
	return b.String()
}

func glyphFor(status string) string {
	switch status {
	case "succeeded":
		return "✓"
	case "failed":
		return "✗"
	case "restarted":
		return "↻"
	case "skipped":
		return "–"
	default:
		return "·"
	}
}
