package dashboard

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginTop(1)

	succeededStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	runningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	restartedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	skippedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	summaryStyle   = lipgloss.NewStyle().MarginTop(1)
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

func styleFor(status string) lipgloss.Style {
	switch status {
	case "succeeded":
		return succeededStyle
	case "running":
		return runningStyle
	case "restarted":
		return restartedStyle
	case "failed":
		return failedStyle
	case "skipped":
		return skippedStyle
	default:
		return pendingStyle
	}
}
