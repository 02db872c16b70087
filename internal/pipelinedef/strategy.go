package pipelinedef

import (
	"fmt"

	"github.com/nodeflow/nodeflow/internal/graph"
	"github.com/nodeflow/nodeflow/internal/retry"
	"github.com/nodeflow/nodeflow/internal/strategy"
)

// buildStrategy translates a StrategySpec into the graph.ExecutionStrategy
// metadata value attached via Builder.SetExecutionStrategy. This is
// bookkeeping the scheduler and validator consult (restart limits, queue
// sanity) — it describes the node's registered Runner, it does not itself
// drive concurrency; that's already decided inside whatever
// node.Registry.Build constructed. restartable reports whether the
// scheduler should also receive a RunnerFactory so a RestartNode decision
// can re-instantiate the node.
func buildStrategy(spec *StrategySpec) (graph.ExecutionStrategy, bool, error) {
	switch spec.Kind {
	case "sequential", "":
		return nil, false, nil

	case "parallel":
		if spec.Parallel == nil {
			return nil, false, fmt.Errorf("strategy kind %q requires a parallel block", spec.Kind)
		}
		p, err := buildParallel(spec.Parallel)
		return p, false, err

	case "resilient":
		if spec.Resilient == nil {
			return nil, false, fmt.Errorf("strategy kind %q requires a resilient block", spec.Kind)
		}
		r, err := buildResilient(spec.Resilient)
		return r, true, err

	default:
		return nil, false, fmt.Errorf("unknown strategy kind %q", spec.Kind)
	}
}

func buildParallel(spec *ParallelSpec) (strategy.Parallel, error) {
	var p strategy.Parallel
	switch spec.Preset {
	case "cpu_bound":
		p = strategy.CpuBound()
	case "io_bound":
		p = strategy.IoBound()
	case "network_bound":
		p = strategy.NetworkBound()
	case "general", "":
		p = strategy.General()
	default:
		return strategy.Parallel{}, fmt.Errorf("unknown parallel preset %q", spec.Preset)
	}

	if spec.Workers > 0 {
		p.Options.MaxDegreeOfParallelism = spec.Workers
	}
	if spec.BufferCapacity > 0 {
		p.Options.OutputBufferCapacity = spec.BufferCapacity
	}
	if spec.QueueDepth > 0 {
		p.Options.MaxQueueLength = spec.QueueDepth
	}
	if spec.QueuePolicy != "" {
		p.Options.QueuePolicy = strategy.QueuePolicy(spec.QueuePolicy)
	}
	p.Options.PreserveOrdering = spec.PreserveOrdering
	return p, nil
}

func buildResilient(spec *ResilientSpec) (strategy.Resilient, error) {
	backoff, err := buildBackoff(spec)
	if err != nil {
		return strategy.Resilient{}, err
	}
	jitter, err := buildJitter(spec.Jitter)
	if err != nil {
		return strategy.Resilient{}, err
	}
	policy, err := retry.NewPolicy(spec.MaxAttempts, backoff, jitter)
	if err != nil {
		return strategy.Resilient{}, err
	}

	wraps := strategy.InnerSequential
	if spec.Wraps == "parallel" {
		wraps = strategy.InnerParallel
	}

	return strategy.NewResilient(wraps, policy, spec.MaxRestartAttempts, spec.MaxMaterializedItems, true)
}

func buildBackoff(spec *ResilientSpec) (retry.Backoff, error) {
	switch spec.Backoff {
	case "fixed":
		return retry.NewFixed(spec.BaseDelay)
	case "linear":
		return retry.NewLinear(spec.BaseDelay, spec.Increment, spec.MaxDelay)
	case "exponential":
		multiplier := spec.Multiplier
		if multiplier == 0 {
			multiplier = 2
		}
		return retry.NewExponential(spec.BaseDelay, multiplier, spec.MaxDelay)
	default:
		return nil, fmt.Errorf("unknown backoff kind %q", spec.Backoff)
	}
}

func buildJitter(kind string) (retry.Jitter, error) {
	switch kind {
	case "", "none":
		return retry.NoJitter, nil
	case "full":
		return retry.FullJitter, nil
	case "equal":
		return retry.EqualJitter, nil
	case "decorrelated":
		return retry.DecorrelatedJitter, nil
	default:
		return nil, fmt.Errorf("unknown jitter kind %q", kind)
	}
}
