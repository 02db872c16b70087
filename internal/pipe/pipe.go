// Package pipe implements the typed, lazily consumed Data Pipe (§4.3): the
// unit of data movement between nodes. Two concrete shapes exist — an
// in-memory, restartable pipe and a single-pass streaming pipe — both
// satisfying the same Pipe interface.
package pipe

import "context"

// Disposer is implemented by anything owning a resource that must be
// released exactly once. Pipes backed by a generator/goroutine implement it
// and register themselves with a runtime.Context on first pull (§3
// Resource Registration).
type Disposer interface {
	Dispose() error
}

// Pipe is a pull-based lazy sequence of items of type T. Iterate returns
// ok=false with a nil error at end-of-stream, or an error if the underlying
// source failed. Implementations own no items past what the current call
// yields; buffering policy belongs to the consuming execution strategy.
type Pipe[T any] interface {
	// Iterate advances the sequence by one item, observing ctx
	// cancellation at the suspension point.
	Iterate(ctx context.Context) (item T, ok bool, err error)
	// Dispose releases any owned resources. Safe to call multiple times.
	Dispose() error
}

// Restartable is implemented by pipe shapes that can be iterated more than
// once (only the in-memory variant, §4.3).
type Restartable[T any] interface {
	Pipe[T]
	Restart() error
}

// Cancellable marks a streaming pipe whose generator can be told to stop
// producing early, distinct from plain context cancellation cooperation.
type Cancellable interface {
	Cancel()
}

// Collect drains a pipe to a slice. Besides sinks and tests, the scheduler
// uses it to drain a restart-capable node's output and node.JoinRunner uses
// it to index the right side of a join.
func Collect[T any](ctx context.Context, p Pipe[T]) ([]T, error) {
	var out []T
	for {
		item, ok, err := p.Iterate(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, item)
	}
}

// FromSlice returns a Memory pipe preloaded with items.
func FromSlice[T any](items []T) *Memory[T] {
	return &Memory[T]{items: items}
}
