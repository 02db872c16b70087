// Command pipelinectl builds, validates, plans, and runs dataflow pipeline
// documents, and hosts a live dashboard over a running pipeline.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nodeflow/nodeflow/internal/node"
	"github.com/nodeflow/nodeflow/internal/nodes"
)

func main() {
	registry := node.NewRegistry()
	if err := nodes.Register(registry); err != nil {
		fmt.Fprintln(os.Stderr, "pipelinectl: registering builtin node types:", err)
		os.Exit(1)
	}

	if err := newRootCmd(registry).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "pipelinectl:", err)
		os.Exit(1)
	}
}
