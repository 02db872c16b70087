package node

import (
	"context"
	"fmt"

	"github.com/nodeflow/nodeflow/internal/graph"
	"github.com/nodeflow/nodeflow/internal/pipe"
	pipelineerr "github.com/nodeflow/nodeflow/pkg/errors"
)

// RunContext is the minimal capability set a Runner needs from the
// scheduler: its own node id and the run's cancellable context. Defined
// here (rather than importing internal/runtime) to avoid an import cycle,
// since runtime must import node to invoke Runner closures.
type RunContext interface {
	NodeID() string
	Context() context.Context
}

// Runner is the type-erased execution closure the scheduler drives: given
// its upstream pipes (already type-erased to pipe.Pipe[any], one per
// inbound edge, in edge-declaration order; empty for a Source), it
// produces the node's single output pipe (nil for a Sink, which instead
// drains its input as a side effect before returning).
type Runner func(rc RunContext, inputs []pipe.Pipe[any]) (pipe.Pipe[any], error)

// RunnerFactory (re)builds a node's Runner from a fresh instance. A node
// wired via graph.Builder.SetRunnerFactory gets this called once at startup
// (when no static Runner was also set) and again on every RestartNode
// decision (§4.7), so a restart runs against a newly constructed instance
// rather than the one that just failed.
type RunnerFactory func() (Runner, error)

// SourceRunner adapts a Source[TOut] into a Runner.
func SourceRunner[TOut any](src Source[TOut]) Runner {
	return func(rc RunContext, inputs []pipe.Pipe[any]) (pipe.Pipe[any], error) {
		out, err := src.Initialize(rc.Context())
		if err != nil {
			return nil, err
		}
		return pipe.Erase[TOut](out), nil
	}
}

// StrategyFunc is the shape internal/strategy's RunSequential/RunParallel/
// RunResilient functions already have: drive a Transform over an input
// pipe and return the output pipe.
type StrategyFunc[TIn, TOut any] func(ctx context.Context, input pipe.Pipe[TIn]) pipe.Pipe[TOut]

// TransformRunner adapts a strategy-wrapped Transform into a Runner. Callers
// build the StrategyFunc closure (capturing the concrete strategy options
// and transform instance) at the typed call site, e.g.:
//
//	node.TransformRunner[TIn, TOut](func(ctx context.Context, in pipe.Pipe[TIn]) pipe.Pipe[TOut] {
//	    return strategy.RunSequential(ctx, myTransform, in)
//	})
func TransformRunner[TIn, TOut any](run StrategyFunc[TIn, TOut]) Runner {
	return func(rc RunContext, inputs []pipe.Pipe[any]) (pipe.Pipe[any], error) {
		if len(inputs) != 1 {
			return nil, errWrongInputCount(rc.NodeID(), 1, len(inputs))
		}
		in := pipe.Unerase[TIn](inputs[0])
		out := run(rc.Context(), in)
		return pipe.Erase[TOut](out), nil
	}
}

// SinkRunner adapts a Sink[TIn] into a Runner. Its output pipe is always
// nil: sinks are executed for effect, and the scheduler treats a nil
// output as "fully drained, nothing downstream to wire."
func SinkRunner[TIn any](sink Sink[TIn]) Runner {
	return func(rc RunContext, inputs []pipe.Pipe[any]) (pipe.Pipe[any], error) {
		if len(inputs) != 1 {
			return nil, errWrongInputCount(rc.NodeID(), 1, len(inputs))
		}
		in := pipe.Unerase[TIn](inputs[0])
		if err := sink.ExecutePipe(rc.Context(), in); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

// JoinRunner adapts a Join into a Runner. inputs[0] is routed as the left
// side, inputs[1] as the right side (the scheduler orders a node's inbound
// edges primary first, so the ConnectLeft edge precedes the ConnectRight
// one). The right side is fully
// materialized into a key-bucketed index (a classic hash join); the left
// side streams, probing the index as it goes.
func JoinRunner[TLeft, TRight any, TKey comparable, TOut any](j Join[TLeft, TRight, TKey, TOut]) Runner {
	return func(rc RunContext, inputs []pipe.Pipe[any]) (pipe.Pipe[any], error) {
		if len(inputs) != 2 {
			return nil, errWrongInputCount(rc.NodeID(), 2, len(inputs))
		}
		left := pipe.Unerase[TLeft](inputs[0])
		right := pipe.Unerase[TRight](inputs[1])

		ctx := rc.Context()
		rightItems, err := pipe.Collect[TRight](ctx, right)
		if err != nil {
			return nil, err
		}

		index := make(map[TKey][]int, len(rightItems))
		matched := make([]bool, len(rightItems))
		for i, item := range rightItems {
			k := j.RightKey(item)
			index[k] = append(index[k], i)
		}

		gen := func(ctx context.Context, emit func(TOut) bool) error {
			for {
				leftItem, ok, err := left.Iterate(ctx)
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				k := j.LeftKey(leftItem)
				matches := index[k]
				if len(matches) == 0 {
					if fb, ok := any(j).(LeftFallback[TLeft, TOut]); ok &&
						(j.Kind() == graph.JoinLeftOuter || j.Kind() == graph.JoinFullOuter) {
						out, emitRow, ferr := fb.FallbackLeft(ctx, leftItem)
						if ferr != nil {
							return ferr
						}
						if emitRow && !emit(out) {
							return nil
						}
					}
					continue
				}
				for _, idx := range matches {
					matched[idx] = true
					out, cerr := j.Combine(ctx, leftItem, rightItems[idx])
					if cerr != nil {
						return cerr
					}
					if !emit(out) {
						return nil
					}
				}
			}

			if j.Kind() == graph.JoinRightOuter || j.Kind() == graph.JoinFullOuter {
				if fb, ok := any(j).(RightFallback[TRight, TOut]); ok {
					for i, item := range rightItems {
						if matched[i] {
							continue
						}
						out, emitRow, ferr := fb.FallbackRight(ctx, item)
						if ferr != nil {
							return ferr
						}
						if emitRow && !emit(out) {
							return nil
						}
					}
				}
			}
			return nil
		}

		return pipe.Erase[TOut](pipe.NewStream(gen, nil)), nil
	}
}

func errWrongInputCount(nodeID string, want, got int) error {
	return pipelineerr.NewInternalError(pipelineerr.CodeMissingTypeMetadata, nodeID,
		fmt.Sprintf("runner expected %d input pipe(s), got %d", want, got), nil)
}
