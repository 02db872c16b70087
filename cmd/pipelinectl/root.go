package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nodeflow/nodeflow/internal/node"
)

func newRootCmd(registry *node.Registry) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "pipelinectl",
		Short:         "pipelinectl builds, validates, and runs dataflow pipeline documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateRootFlags(*flags)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// With no subcommand, fall through to the live dashboard — but
			// only when stdout is a real terminal; the dashboard needs one
			// for its alt-screen bubbletea program.
			if len(args) == 0 {
				if !term.IsTerminal(int(os.Stdout.Fd())) {
					return fmt.Errorf("no subcommand given and stdout is not a terminal; run %q to see available subcommands", cmd.CommandPath()+" --help")
				}
				return runDashboard(cmd.Context(), dashboardOptions{registry: registry}, os.Stdout)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "console", "log encoding: console or json")

	cmd.AddCommand(newValidateCmd(flags, registry))
	cmd.AddCommand(newPlanCmd(flags, registry))
	cmd.AddCommand(newRunCmd(flags, registry))
	cmd.AddCommand(newDashboardCmd(flags, registry))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
