package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nodeflow/nodeflow/internal/dashboard"
	"github.com/nodeflow/nodeflow/internal/node"
	"github.com/nodeflow/nodeflow/internal/observability"
	"github.com/nodeflow/nodeflow/internal/pipelinedef"
	"github.com/nodeflow/nodeflow/internal/runtime"
)

type dashboardOptions struct {
	registry *node.Registry
	docPath  string
}

func newDashboardCmd(flags *rootFlags, registry *node.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard [pipeline.yaml]",
		Short: "Launch the live dashboard, optionally driving a run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := dashboardOptions{registry: registry}
			if len(args) == 1 {
				opts.docPath = args[0]
			}
			return runDashboard(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
}

// runDashboard launches the bubbletea dashboard. With a docPath it also
// starts the pipeline running in the background, wired to the same
// observability.Bus the dashboard drains; with no docPath it shows an idle
// dashboard that exits as soon as the user quits.
func runDashboard(ctx context.Context, opts dashboardOptions, w io.Writer) error {
	bus := observability.NewBus(256)
	events, unsubscribe := bus.Subscribe()
	done := make(chan dashboard.RunOutcome, 1)

	if opts.docPath == "" {
		close(done)
	} else {
		f, err := os.Open(opts.docPath)
		if err != nil {
			unsubscribe()
			return err
		}
		builder, err := pipelinedef.FromYAML(f, opts.registry)
		f.Close()
		if err != nil {
			unsubscribe()
			return fmt.Errorf("translating %s: %w", opts.docPath, err)
		}
		g, _, err := builder.Build()
		if err != nil {
			unsubscribe()
			return fmt.Errorf("%s failed validation: %w", opts.docPath, err)
		}

		go func() {
			result, runErr := runtime.NewScheduler().Run(ctx, g, runtime.RunOptions{
				Observability: observability.NewBusFactory(bus),
			})
			done <- dashboard.RunOutcome{Result: result, Err: runErr}
			close(done)
		}()
	}

	m := dashboard.NewModel(events, unsubscribe, done)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithOutput(w))
	_, err := p.Run()
	return err
}
