package strategy

import (
	"context"
	"time"

	nodepkg "github.com/nodeflow/nodeflow/internal/node"
	"github.com/nodeflow/nodeflow/internal/pipe"
	"github.com/nodeflow/nodeflow/internal/retry"
	pipelineerr "github.com/nodeflow/nodeflow/pkg/errors"
)

// Inner identifies which underlying strategy Resilient decorates.
type Inner string

const (
	InnerSequential Inner = "sequential"
	InnerParallel   Inner = "parallel"
)

// Resilient wraps another strategy's per-item execution with retry,
// skip, dead-letter, and fail handling (§4.5/§4.6). RestartNode decisions
// are issued by the pipeline error handler and executed by the scheduler
// (internal/runtime), not here: this type only owns item-level recovery.
type Resilient struct {
	Wraps               Inner
	Parallel            ParallelOptions // only consulted when Wraps == InnerParallel
	Policy              retry.Policy
	MaxRestartAttempts_ int
	MaxMaterialized_    int
	hasPipelineHandler  bool
}

// NewResilient validates and returns a Resilient strategy.
func NewResilient(wraps Inner, policy retry.Policy, maxRestartAttempts, maxMaterializedItems int, hasPipelineHandler bool) (Resilient, error) {
	if maxRestartAttempts <= 0 {
		return Resilient{}, pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidRetryPolicy, "", "maxRestartAttempts must be > 0 for node restart to be able to fire", nil)
	}
	return Resilient{
		Wraps:               wraps,
		Policy:              policy,
		MaxRestartAttempts_: maxRestartAttempts,
		MaxMaterialized_:    maxMaterializedItems,
		hasPipelineHandler:  hasPipelineHandler,
	}, nil
}

// StrategyName satisfies graph.ExecutionStrategy.
func (Resilient) StrategyName() string { return "resilient" }

// MaxRestartAttempts satisfies graph.ResilientConfig.
func (r Resilient) MaxRestartAttempts() int { return r.MaxRestartAttempts_ }

// MaxMaterializedItems satisfies graph.ResilientConfig.
func (r Resilient) MaxMaterializedItems() int { return r.MaxMaterialized_ }

// HasPipelineErrorHandler satisfies graph.ResilientConfig.
func (r Resilient) HasPipelineErrorHandler() bool { return r.hasPipelineHandler }

// RunResilient drives t.ExecuteItem with retry/skip/dead-letter/fail
// handling, then delegates the (possibly reduced) stream to the decorated
// inner strategy's concurrency model.
func RunResilient[TIn, TOut any](
	ctx context.Context,
	r Resilient,
	nodeID string,
	t nodepkg.Transform[TIn, TOut],
	errHandler retry.NodeErrorHandler[TIn],
	deadLetter *retry.DeadLetterSink[TIn],
	input pipe.Pipe[TIn],
) pipe.Pipe[TOut] {
	exec := resilientExecutor(r, nodeID, t, errHandler, deadLetter)

	switch r.Wraps {
	case InnerParallel:
		return runParallel(ctx, r.Parallel, exec, input)
	default:
		return runSequential(ctx, exec, input)
	}
}

// resilientExecutor builds the itemExecutor a Resilient strategy drives:
// on error it consults errHandler and loops per Retry/Skip/DeadLetter/Fail.
func resilientExecutor[TIn, TOut any](
	r Resilient,
	nodeID string,
	t nodepkg.Transform[TIn, TOut],
	errHandler retry.NodeErrorHandler[TIn],
	deadLetter *retry.DeadLetterSink[TIn],
) itemExecutor[TIn, TOut] {
	return func(ctx context.Context, item TIn) (TOut, bool, error) {
		var zero TOut
		var prevDelay time.Duration

		for attempt := 1; ; attempt++ {
			out, err := t.ExecuteItem(ctx, item)
			if err == nil {
				return out, true, nil
			}

			if attempt >= r.Policy.MaxAttempts {
				return zero, false, pipelineerr.NewExecutionError(pipelineerr.CodeRetryLimitExhausted, nodeID,
					"retry limit exhausted", err)
			}

			decision := retry.Skip
			if errHandler != nil {
				decision = errHandler.HandleItemError(ctx, item, err, attempt)
			}

			switch decision {
			case retry.Retry:
				delay := r.Policy.NextDelay(attempt, prevDelay)
				prevDelay = delay
				if delay > 0 {
					timer := time.NewTimer(delay)
					select {
					case <-timer.C:
					case <-ctx.Done():
						timer.Stop()
						return zero, false, ctx.Err()
					}
				}
				continue
			case retry.Skip:
				return zero, false, nil
			case retry.DeadLetter, retry.Redirect:
				if deadLetter != nil {
					if sendErr := deadLetter.Send(ctx, retry.DeadLetterEntry[TIn]{Item: item, NodeID: nodeID, Err: err}); sendErr != nil {
						return zero, false, sendErr
					}
				}
				return zero, false, nil
			default: // Fail
				return zero, false, pipelineerr.NewExecutionError(pipelineerr.CodeNodeFailed, nodeID, "item failed pipeline error policy", err)
			}
		}
	}
}
