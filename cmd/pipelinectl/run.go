package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nodeflow/nodeflow/internal/node"
	"github.com/nodeflow/nodeflow/internal/pipelinedef"
	"github.com/nodeflow/nodeflow/internal/runtime"
)

func newRunCmd(flags *rootFlags, registry *node.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "run <pipeline.yaml>",
		Short: "Build and run a pipeline document to completion",
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

			logger, err := buildLogger(flags.logLevel, flags.logFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			builder, err := pipelinedef.FromYAML(f, registry)
			if err != nil {
				return fmt.Errorf("translating %s: %w", path, err)
			}
			g, _, err := builder.Build()
			if err != nil {
				return fmt.Errorf("%s failed validation: %w", path, err)
			}

			result, runErr := runtime.NewScheduler().Run(cmd.Context(), g, runtime.RunOptions{
				Logger: logger,
			})

			out := cmd.OutOrStdout()
			for id, res := range result.NodeResults {
				fmt.Fprintf(out, "%-20s %s", id, res.Status)
				if res.RestartCount > 0 {
					fmt.Fprintf(out, " (restarts=%d)", res.RestartCount)
				}
				if res.Err != nil {
					fmt.Fprintf(out, " err=%v", res.Err)
				}
				fmt.Fprintln(out)
			}
			return runErr
		},
	}
}
