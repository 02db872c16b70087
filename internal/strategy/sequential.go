// Package strategy implements the execution strategies (§4.5) that wrap a
// transform node's item-at-a-time ExecuteItem into a stream-to-stream
// function: Sequential, Parallel, and Resilient (which decorates another
// strategy's per-item execution with retry/skip/dead-letter/fail handling).
package strategy

import (
	"context"

	"github.com/nodeflow/nodeflow/internal/node"
	"github.com/nodeflow/nodeflow/internal/pipe"
)

// itemExecutor is the per-item unit every strategy ultimately drives.
// emit=false, err=nil means "processed, nothing to emit" (an item-level
// Skip or DeadLetter decision); err != nil always aborts the stream.
type itemExecutor[TIn, TOut any] func(ctx context.Context, item TIn) (out TOut, emit bool, err error)

// plainExecutor adapts a bare Transform into an itemExecutor with no retry
// semantics: any error aborts.
func plainExecutor[TIn, TOut any](t node.Transform[TIn, TOut]) itemExecutor[TIn, TOut] {
	return func(ctx context.Context, item TIn) (TOut, bool, error) {
		out, err := t.ExecuteItem(ctx, item)
		if err != nil {
			var zero TOut
			return zero, false, err
		}
		return out, true, nil
	}
}

// Sequential is the default strategy: single consumer, single producer,
// ordered, no buffering beyond one in-flight item.
type Sequential struct{}

// StrategyName satisfies graph.ExecutionStrategy.
func (Sequential) StrategyName() string { return "sequential" }

// RunSequential drives t item-by-item over input, preserving order
// exactly, with no concurrency.
func RunSequential[TIn, TOut any](ctx context.Context, t node.Transform[TIn, TOut], input pipe.Pipe[TIn]) pipe.Pipe[TOut] {
	return runSequential(ctx, plainExecutor(t), input)
}

func runSequential[TIn, TOut any](ctx context.Context, exec itemExecutor[TIn, TOut], input pipe.Pipe[TIn]) pipe.Pipe[TOut] {
	gen := func(ctx context.Context, emit func(TOut) bool) error {
		for {
			item, ok, err := input.Iterate(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			out, shouldEmit, err := exec(ctx, item)
			if err != nil {
				return err
			}
			if shouldEmit && !emit(out) {
				return nil
			}
		}
	}
	return pipe.NewStream(gen, nil)
}
