package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("63")).
	Padding(0, 2)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := fmt.Sprintf("pipelinectl\nVersion: %s\nCommit:  %s\nBuilt:   %s", version, commit, date)
			fmt.Fprintln(cmd.OutOrStdout(), versionCardStyle.Render(body))
			return nil
		},
	}
}
