package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nodeflow/nodeflow/internal/graph"
	"github.com/nodeflow/nodeflow/internal/node"
	"github.com/nodeflow/nodeflow/internal/pipelinedef"
)

func newValidateCmd(flags *rootFlags, registry *node.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <pipeline.yaml>",
		Short: "Parse and validate a pipeline document without running it",
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

			_, result, buildErr := builder.Build()
			out := cmd.OutOrStdout()
			if result != nil {
				for _, issue := range result.Issues {
					fmt.Fprintln(out, issue.String())
				}
			}
			if buildErr != nil {
				if _, ok := buildErr.(*graph.ValidationError); ok {
					return fmt.Errorf("%s failed validation", path)
				}
				return buildErr
			}
			fmt.Fprintf(out, "%s is valid\n", path)
			return nil
		},
	}
}
