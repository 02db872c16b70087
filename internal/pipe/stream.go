package pipe

import (
	"context"
	"sync"
)

// ResourceRegistry is the minimal capability a Stream pipe needs from a
// runtime.Context: somewhere to hand off its generator goroutine's lifetime
// so it is disposed exactly once at end of run (§3 Resource Registration).
// Defining it here (rather than importing internal/runtime) keeps pipe free
// of a dependency cycle, since runtime itself consumes pipes.
type ResourceRegistry interface {
	Register(d Disposer)
}

// Generator produces items by calling emit for each one, in order, stopping
// early if emit returns false (the consumer went away or ctx was
// canceled). A nil error on return means clean end-of-stream.
type Generator[T any] func(ctx context.Context, emit func(T) bool) error

type streamResult[T any] struct {
	item T
	err  error
}

// Stream is a single-pass pipe backed by a generator goroutine. It is
// optionally cancellable (via Cancel, distinct from context cooperation)
// and registers its generator's lifetime with a ResourceRegistry on first
// pull, if one was supplied.
type Stream[T any] struct {
	gen      Generator[T]
	registry ResourceRegistry

	startOnce  sync.Once
	disposeOne sync.Once
	ch         chan streamResult[T]
	cancel     context.CancelFunc
}

var _ Pipe[any] = (*Stream[any])(nil)
var _ Cancellable = (*Stream[any])(nil)

// NewStream returns a Stream driven by gen. registry may be nil for
// standalone/test use where no run-scoped disposal is needed.
func NewStream[T any](gen Generator[T], registry ResourceRegistry) *Stream[T] {
	return &Stream[T]{gen: gen, registry: registry}
}

func (s *Stream[T]) start(ctx context.Context) {
	s.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		ch := make(chan streamResult[T])
		s.ch = ch

		go func() {
			defer close(ch)
			err := s.gen(runCtx, func(item T) bool {
				select {
				case ch <- streamResult[T]{item: item}:
					return true
				case <-runCtx.Done():
					return false
				}
			})
			if err != nil {
				select {
				case ch <- streamResult[T]{err: err}:
				case <-runCtx.Done():
				}
			}
		}()

		if s.registry != nil {
			s.registry.Register(s)
		}
	})
}

// Iterate pulls the next item, observing ctx cancellation at the receive
// suspension point.
func (s *Stream[T]) Iterate(ctx context.Context) (T, bool, error) {
	var zero T
	s.start(ctx)
	select {
	case r, ok := <-s.ch:
		if !ok {
			return zero, false, nil
		}
		if r.err != nil {
			return zero, false, r.err
		}
		return r.item, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

// Cancel stops the generator early, independent of any ctx passed to
// Iterate. Idempotent.
func (s *Stream[T]) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Dispose cancels the generator (if running) exactly once.
func (s *Stream[T]) Dispose() error {
	s.disposeOne.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	return nil
}
