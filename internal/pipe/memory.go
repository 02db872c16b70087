package pipe

import "context"

// Memory is a fully materialized, ordered, restartable pipe (§4.3).
type Memory[T any] struct {
	items    []T
	cursor   int
	disposed bool
}

var _ Restartable[any] = (*Memory[any])(nil)

// Iterate returns the next item, or ok=false once the slice is exhausted.
func (m *Memory[T]) Iterate(ctx context.Context) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	if m.cursor >= len(m.items) {
		return zero, false, nil
	}
	item := m.items[m.cursor]
	m.cursor++
	return item, true, nil
}

// Restart rewinds the pipe so the next Iterate call replays from the start.
func (m *Memory[T]) Restart() error {
	m.cursor = 0
	return nil
}

// Dispose is a no-op for in-memory pipes: they own no external resource,
// only the slice already held by the Go runtime's GC.
func (m *Memory[T]) Dispose() error {
	m.disposed = true
	return nil
}

// Len reports the total item count, independent of cursor position.
func (m *Memory[T]) Len() int { return len(m.items) }
