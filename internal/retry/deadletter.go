package retry

import (
	"context"
	"sync"

	pipelineerr "github.com/nodeflow/nodeflow/pkg/errors"
)

// DeadLetterEntry is a single redirected item, paired with the error that
// caused the redirect and the id of the node that produced it.
type DeadLetterEntry[T any] struct {
	Item   T
	NodeID string
	Err    error
}

// DeadLetterSink collects items a NodeErrorHandler routed via DeadLetter or
// Redirect. An optional bounded Capacity makes reaching it a pipeline
// failure (CodeDeadLetterQueueFull), matching §4.6: "reaching it fails the
// pipeline."
type DeadLetterSink[T any] struct {
	mu       sync.Mutex
	entries  []DeadLetterEntry[T]
	capacity int // 0 means unbounded
}

// NewDeadLetterSink returns a sink. capacity <= 0 means unbounded.
func NewDeadLetterSink[T any](capacity int) *DeadLetterSink[T] {
	return &DeadLetterSink[T]{capacity: capacity}
}

// Send appends entry, or returns a ResourceCapacityError if doing so would
// exceed the configured capacity.
func (s *DeadLetterSink[T]) Send(ctx context.Context, entry DeadLetterEntry[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capacity > 0 && len(s.entries) >= s.capacity {
		return pipelineerr.NewResourceCapacityError(pipelineerr.CodeDeadLetterQueueFull, entry.NodeID,
			"dead-letter queue is full", nil)
	}
	s.entries = append(s.entries, entry)
	return nil
}

// Entries returns a snapshot copy of everything collected so far.
func (s *DeadLetterSink[T]) Entries() []DeadLetterEntry[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DeadLetterEntry[T], len(s.entries))
	copy(out, s.entries)
	return out
}

// Len reports the current entry count.
func (s *DeadLetterSink[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
