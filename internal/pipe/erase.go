package pipe

import (
	"context"

	pipelineerr "github.com/nodeflow/nodeflow/pkg/errors"
)

var errWrongType = pipelineerr.NewExecutionError(pipelineerr.CodePipeWrongType, "", "item did not match the expected unerased type", nil)

// Erase and Unerase bridge between a node's statically-typed Pipe[T] and
// the scheduler's type-erased Pipe[any] wiring (runtime.Item is "any",
// opaque to the engine — node authors never see the erasure). Both are
// thin pass-through wrappers; no item is copied beyond the interface-box
// conversion itself.

type erased[T any] struct {
	inner Pipe[T]
}

// Erase adapts a Pipe[T] into a Pipe[any].
func Erase[T any](p Pipe[T]) Pipe[any] {
	return &erased[T]{inner: p}
}

func (e *erased[T]) Iterate(ctx context.Context) (any, bool, error) {
	item, ok, err := e.inner.Iterate(ctx)
	return item, ok, err
}

func (e *erased[T]) Dispose() error { return e.inner.Dispose() }

type unerased[T any] struct {
	inner Pipe[any]
}

// Unerase adapts a Pipe[any] back into a Pipe[T]. An item that is not a T
// ends iteration with errWrongType (EXEC-PipeWrongType); the builder's
// type-compatibility rule rejects such wiring at Build time for every edge
// whose endpoint types are known.
func Unerase[T any](p Pipe[any]) Pipe[T] {
	return &unerased[T]{inner: p}
}

func (u *unerased[T]) Iterate(ctx context.Context) (T, bool, error) {
	var zero T
	item, ok, err := u.inner.Iterate(ctx)
	if err != nil || !ok {
		return zero, ok, err
	}
	typed, assertOK := item.(T)
	if !assertOK {
		return zero, false, errWrongType
	}
	return typed, true, nil
}

func (u *unerased[T]) Dispose() error { return u.inner.Dispose() }
