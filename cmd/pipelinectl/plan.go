package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nodeflow/nodeflow/internal/node"
	"github.com/nodeflow/nodeflow/internal/pipelinedef"
)

func newPlanCmd(flags *rootFlags, registry *node.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <pipeline.yaml>",
		Short: "Print a pipeline's execution order without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := requireDocPath(args)
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			builder, err := pipelinedef.FromYAML(f, registry)
			if err != nil {
				return fmt.Errorf("translating %s: %w", path, err)
			}
			g, _, err := builder.Build()
			if err != nil {
				return fmt.Errorf("%s failed validation: %w", path, err)
			}

			out := cmd.OutOrStdout()
			for i, level := range g.Levels {
				fmt.Fprintf(out, "level %d:\n", i)
				for _, id := range level {
					n := g.Nodes[id]
					fmt.Fprintf(out, "  %-20s kind=%-10s name=%s\n", id, n.Kind, n.Name)
				}
			}
			return nil
		},
	}
}
