package node

import (
	"context"
	"time"

	"github.com/nodeflow/nodeflow/internal/pipe"
	pipelineerr "github.com/nodeflow/nodeflow/pkg/errors"
)

// BatchOptions configures a Batching transform (§4.4).
type BatchOptions struct {
	// Size is the target batch size; must be > 0.
	Size int
	// Timeout, if non-zero, emits a partial batch once it has waited this
	// long for the (Size)th item.
	Timeout time.Duration
}

// Batching buffers up to Size items, or until Timeout elapses since the
// first item of the in-progress batch arrived, then emits the batch
// atomically. It is a reserved transform shape: the scheduler always
// drives it through ExecutePipe, never ExecuteItem (§4.4); calling
// ExecuteItem directly is a configuration error.
type Batching[T any] struct {
	opts BatchOptions
}

// NewBatching validates opts and returns a Batching transform.
func NewBatching[T any](opts BatchOptions) (*Batching[T], error) {
	if opts.Size <= 0 {
		return nil, pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidRetryPolicy, "", "batching size must be > 0", nil)
	}
	return &Batching[T]{opts: opts}, nil
}

// ExecuteItem always fails: Batching may only be driven stream-to-stream.
func (b *Batching[T]) ExecuteItem(ctx context.Context, item T) ([]T, error) {
	return nil, pipelineerr.NewConfigurationError(pipelineerr.CodeBatchingDirectInvoke, "", "batching transforms cannot be invoked item-at-a-time", nil)
}

// ExecutePipe is the real entry point: it drains input in batches of Size,
// flushing early if Timeout elapses with a partial batch pending.
func (b *Batching[T]) ExecutePipe(ctx context.Context, input pipe.Pipe[T]) (pipe.Pipe[[]T], error) {
	gen := func(ctx context.Context, emit func([]T) bool) error {
		batch := make([]T, 0, b.opts.Size)
		var deadline <-chan time.Time
		var timer *time.Timer

		flush := func() bool {
			if len(batch) == 0 {
				return true
			}
			out := batch
			batch = make([]T, 0, b.opts.Size)
			if timer != nil {
				timer.Stop()
				timer = nil
				deadline = nil
			}
			return emit(out)
		}

		type pulled struct {
			item T
			ok   bool
			err  error
		}
		pulledCh := make(chan pulled, 1)
		pulling := false

		for {
			if b.opts.Timeout > 0 && len(batch) == 1 && timer == nil {
				timer = time.NewTimer(b.opts.Timeout)
				deadline = timer.C
			}

			if !pulling {
				pulling = true
				go func() {
					item, ok, err := input.Iterate(ctx)
					pulledCh <- pulled{item: item, ok: ok, err: err}
				}()
			}

			select {
			case p := <-pulledCh:
				pulling = false
				if p.err != nil {
					return p.err
				}
				if !p.ok {
					if !flush() {
						return nil
					}
					return nil
				}
				batch = append(batch, p.item)
				if len(batch) >= b.opts.Size {
					if !flush() {
						return nil
					}
				}
			case <-deadline:
				if !flush() {
					return nil
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return pipe.NewStream(gen, nil), nil
}

// Unbatching flattens Collection<T> into T, preserving slice order. It is
// likewise only callable stream-to-stream.
type Unbatching[T any] struct{}

// NewUnbatching returns an Unbatching transform.
func NewUnbatching[T any]() *Unbatching[T] { return &Unbatching[T]{} }

func (u *Unbatching[T]) ExecuteItem(ctx context.Context, item []T) (T, error) {
	var zero T
	return zero, pipelineerr.NewConfigurationError(pipelineerr.CodeUnbatchingDirectInvoke, "", "unbatching transforms cannot be invoked item-at-a-time", nil)
}

func (u *Unbatching[T]) ExecutePipe(ctx context.Context, input pipe.Pipe[[]T]) (pipe.Pipe[T], error) {
	gen := func(ctx context.Context, emit func(T) bool) error {
		var pending []T
		idx := 0
		for {
			if idx < len(pending) {
				if !emit(pending[idx]) {
					return nil
				}
				idx++
				continue
			}
			batch, ok, err := input.Iterate(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			pending = batch
			idx = 0
		}
	}
	return pipe.NewStream(gen, nil), nil
}
