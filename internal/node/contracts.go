// Package node defines the four node shapes (§4.4) every pipeline node
// implements, independent of how the scheduler wires or strategizes them.
package node

import (
	"context"

	"github.com/nodeflow/nodeflow/internal/graph"
	"github.com/nodeflow/nodeflow/internal/pipe"
)

// Initializer is implemented by nodes that need setup before their first
// call (acquiring a connection, opening a file). The scheduler does not
// call Init: it runs node.Runner closures and never sees the instance
// behind them.
type Initializer interface {
	Init(ctx context.Context) error
}

// Disposer is implemented by nodes owning a resource that must be released
// when the node's execution ends, independent of any pipe it produced
// (which has its own Dispose). The scheduler does not call this; it disposes
// only pipes, never the node instance behind a node.Runner.
type Disposer interface {
	Dispose() error
}

// Source produces the lazily-built pipe a pipeline starts from.
type Source[TOut any] interface {
	Initialize(ctx context.Context) (pipe.Pipe[TOut], error)
}

// Transform is implemented by nodes that process one item at a time. This
// is the shape a Sequential or Parallel strategy drives directly.
type Transform[TIn, TOut any] interface {
	ExecuteItem(ctx context.Context, item TIn) (TOut, error)
}

// PipeTransform is the stream-to-stream alternative (§4.4): a transform may
// implement this instead of, or in addition to, Transform when it needs to
// see the whole input sequence (windowing, batching, stateful merges). The
// strategies in internal/strategy drive only Transform.ExecuteItem;
// ExecutePipe is called directly by whatever builds the node's Runner
// (Batching/Unbatching always require this form).
type PipeTransform[TIn, TOut any] interface {
	ExecutePipe(ctx context.Context, input pipe.Pipe[TIn]) (pipe.Pipe[TOut], error)
}

// Sink drains a pipe to completion, discarding or persisting items. Sinks
// must consume input fully even when discarding, so upstream resources
// release deterministically.
type Sink[TIn any] interface {
	ExecutePipe(ctx context.Context, input pipe.Pipe[TIn]) error
}

// Join combines two typed input pipes into one output pipe by key,
// honoring kind (Inner/LeftOuter/RightOuter/FullOuter). LeftFallback and
// RightFallback are consulted only for outer joins, to synthesize an
// output row for an unmatched side; a join node that doesn't supply one
// simply drops unmatched rows for that side.
type Join[TLeft, TRight any, TKey comparable, TOut any] interface {
	Kind() graph.JoinKind
	LeftKey(item TLeft) TKey
	RightKey(item TRight) TKey
	Combine(ctx context.Context, left TLeft, right TRight) (TOut, error)
}

// LeftFallback is implemented by joins that synthesize output for
// unmatched left rows under LeftOuter/FullOuter.
type LeftFallback[TLeft, TOut any] interface {
	FallbackLeft(ctx context.Context, left TLeft) (TOut, bool, error)
}

// RightFallback is the right-side counterpart for RightOuter/FullOuter.
type RightFallback[TRight, TOut any] interface {
	FallbackRight(ctx context.Context, right TRight) (TOut, bool, error)
}
