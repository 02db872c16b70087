package pipe

import "context"

// MergeMode selects the ordering policy of Merge (§4.3).
type MergeMode string

const (
	// Concatenate drains pipe i before moving to pipe i+1.
	Concatenate MergeMode = "concatenate"
	// Interleave round-robins between pipes.
	Interleave MergeMode = "interleave"
)

// Merge combines same-typed pipes into one, per mode. It is a library-level
// helper, not a node: a merge graph node wraps this around its input pipes.
func Merge[T any](pipes []Pipe[T], mode MergeMode) Pipe[T] {
	switch mode {
	case Interleave:
		return &interleaved[T]{pipes: append([]Pipe[T](nil), pipes...)}
	default:
		return &concatenated[T]{pipes: append([]Pipe[T](nil), pipes...)}
	}
}

type concatenated[T any] struct {
	pipes []Pipe[T]
	idx   int
}

func (c *concatenated[T]) Iterate(ctx context.Context) (T, bool, error) {
	var zero T
	for c.idx < len(c.pipes) {
		item, ok, err := c.pipes[c.idx].Iterate(ctx)
		if err != nil {
			return zero, false, err
		}
		if ok {
			return item, true, nil
		}
		c.idx++
	}
	return zero, false, nil
}

func (c *concatenated[T]) Dispose() error {
	return disposeAll(c.pipes)
}

type interleaved[T any] struct {
	pipes  []Pipe[T]
	next   int
	active int // count of pipes not yet exhausted
	done   []bool
}

func (r *interleaved[T]) Iterate(ctx context.Context) (T, bool, error) {
	var zero T
	if r.done == nil {
		r.done = make([]bool, len(r.pipes))
		r.active = len(r.pipes)
	}
	if r.active == 0 || len(r.pipes) == 0 {
		return zero, false, nil
	}

	for attempts := 0; attempts < len(r.pipes); attempts++ {
		i := r.next
		r.next = (r.next + 1) % len(r.pipes)
		if r.done[i] {
			continue
		}
		item, ok, err := r.pipes[i].Iterate(ctx)
		if err != nil {
			return zero, false, err
		}
		if ok {
			return item, true, nil
		}
		r.done[i] = true
		r.active--
		if r.active == 0 {
			return zero, false, nil
		}
	}
	return zero, false, nil
}

func (r *interleaved[T]) Dispose() error {
	return disposeAll(r.pipes)
}

func disposeAll[T any](pipes []Pipe[T]) error {
	var errs []error
	for _, p := range pipes {
		if err := p.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}
