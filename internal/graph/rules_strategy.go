package graph

import (
	"fmt"
	"runtime"
)

// ParallelConfig is implemented by internal/strategy's Parallel strategy so
// the validator can inspect its knobs without importing the strategy
// package (which would create an import cycle, since strategies reference
// graph.ExecutionStrategy).
type ParallelConfig interface {
	MaxDegreeOfParallelism() int
	MaxQueueLength() (int, bool)
	QueuePolicy() string // "block", "drop_oldest", "drop_newest"
	PreserveOrdering() bool
}

// ResilientConfig is implemented by internal/strategy's Resilient strategy.
type ResilientConfig interface {
	MaxRestartAttempts() int
	MaxMaterializedItems() int
	HasPipelineErrorHandler() bool
}

// ruleParallelConfigSanity emits warnings (never errors) for parallel
// configurations that are likely to misbehave (§4.2).
func ruleParallelConfigSanity(g *Graph) []Issue {
	var issues []Issue
	cpu := runtime.NumCPU()

	for _, id := range sortedNodeIDs(g) {
		n := g.Nodes[id]
		pc, ok := n.Strategy.(ParallelConfig)
		if !ok {
			continue
		}

		_, bounded := pc.MaxQueueLength()
		degree := pc.MaxDegreeOfParallelism()
		policy := pc.QueuePolicy()

		if !bounded && degree > cpu {
			issues = append(issues, Issue{Severity: SeverityWarning, Category: CategoryParallelConfig,
				NodeID: id, Message: fmt.Sprintf(
					"unbounded queue combined with high parallelism (%d workers, %d CPUs)", degree, cpu)})
		}

		if pc.PreserveOrdering() && degree > cpu*8 {
			issues = append(issues, Issue{Severity: SeverityWarning, Category: CategoryParallelConfig,
				NodeID: id, Message: fmt.Sprintf(
					"order-preserving mode combined with very high parallelism (%d workers) may grow the reorder buffer unboundedly", degree)})
		}

		if (policy == "drop_oldest" || policy == "drop_newest") && !bounded {
			issues = append(issues, Issue{Severity: SeverityWarning, Category: CategoryParallelConfig,
				NodeID: id, Message: "drop policy chosen with no bounded queue length; coercing to block"})
		}

		if degree > cpu*4 {
			issues = append(issues, Issue{Severity: SeverityWarning, Category: CategoryParallelConfig,
				NodeID: id, Message: fmt.Sprintf(
					"parallelism (%d) is far above processor count (%d)", degree, cpu)})
		}
	}
	return issues
}

// ruleResilientConfigCompleteness warns when a ResilientExecutionStrategy is
// attached but retry options leave node restart unable to fire (§4.2).
func ruleResilientConfigCompleteness(g *Graph) []Issue {
	var issues []Issue
	for _, id := range sortedNodeIDs(g) {
		n := g.Nodes[id]
		rc, ok := n.Strategy.(ResilientConfig)
		if !ok {
			continue
		}

		if rc.MaxRestartAttempts() <= 0 {
			issues = append(issues, Issue{Severity: SeverityWarning, Category: CategoryResilientConfig,
				NodeID: id, Message: "resilient strategy has maxRestartAttempts <= 0; node restart will never fire"})
		}
		if rc.MaxMaterializedItems() <= 0 {
			issues = append(issues, Issue{Severity: SeverityWarning, Category: CategoryResilientConfig,
				NodeID: id, Message: "resilient strategy has maxMaterializedItems <= 0; node restart will never fire"})
		}
		if !rc.HasPipelineErrorHandler() {
			issues = append(issues, Issue{Severity: SeverityWarning, Category: CategoryResilientConfig,
				NodeID: id, Message: "resilient strategy configured without a pipeline-level error handler; RestartNode decisions cannot be issued"})
		}
	}
	return issues
}
