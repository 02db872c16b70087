package observability

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind discriminates the payloads published on a Bus.
type EventKind string

const (
	EventNodeItemsIn      EventKind = "node_items_in"
	EventNodeItemsOut     EventKind = "node_items_out"
	EventNodeError        EventKind = "node_error"
	EventNodeRetry        EventKind = "node_retry"
	EventNodeProcessing   EventKind = "node_processing_time"
	EventPipelineStart    EventKind = "pipeline_start"
	EventPipelineEnd      EventKind = "pipeline_end"
	EventNodeRestarted    EventKind = "node_restarted"
	EventNodeSkipped      EventKind = "node_skipped"
	EventItemLineageEvent EventKind = "item_lineage"
)

// Event is one observation published on a Bus. Only the fields relevant to
// Kind are populated; the rest are left zero.
type Event struct {
	Kind     EventKind
	RunID    uuid.UUID
	NodeID   string
	Count    int
	Attempt  int
	Duration time.Duration
	Success  bool
	Err      error
	Parent   uuid.UUID
	Child    uuid.UUID
	At       time.Time
}

// Bus is a channel-based pub/sub of Events, the engine-side half of the
// dashboard's live view (§4.8 [ADD]). Grounded on
// internal/infrastructure/events.LoggingPublisher's
// subscribe-then-fan-out-on-publish shape, adapted from callback handlers to
// buffered channels so a bubbletea program can poll a subscription with
// tea.Cmd instead of registering a handler function.
type Bus struct {
	mu         sync.RWMutex
	subs       map[int]chan Event
	next       int
	bufferSize int
}

// NewBus returns a Bus whose per-subscriber channel buffers bufferSize
// events before Publish starts dropping for that subscriber. bufferSize<=0
// defaults to 64.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Bus{subs: make(map[int]chan Event), bufferSize: bufferSize}
}

// Subscribe registers a new listener and returns its channel plus an
// unsubscribe function. The channel is closed once Unsubscribe is called.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	ch := make(chan Event, b.bufferSize)
	b.subs[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// Publish fans e out to every current subscriber. A subscriber whose
// channel is full drops the event rather than blocking the publisher — the
// dashboard is best-effort, never a backpressure source for the run it
// observes.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// BusSink adapts a Bus into the four sink interfaces, so a single Factory
// wired to a dashboard command can be built with NewBusFactory.
type BusSink struct {
	bus *Bus
}

// NewBusFactory returns a Factory whose four sinks all publish onto bus.
func NewBusFactory(bus *Bus) *Factory {
	s := &BusSink{bus: bus}
	return &Factory{
		NodeMetrics:     s,
		PipelineMetrics: s,
		ItemLineage:     s,
		PipelineLineage: s,
	}
}

func (s *BusSink) RecordItemsIn(ctx context.Context, nodeID string, n int) {
	s.bus.Publish(Event{Kind: EventNodeItemsIn, NodeID: nodeID, Count: n, At: time.Now()})
}

func (s *BusSink) RecordItemsOut(ctx context.Context, nodeID string, n int) {
	s.bus.Publish(Event{Kind: EventNodeItemsOut, NodeID: nodeID, Count: n, At: time.Now()})
}

func (s *BusSink) RecordError(ctx context.Context, nodeID string, err error) {
	s.bus.Publish(Event{Kind: EventNodeError, NodeID: nodeID, Err: err, At: time.Now()})
}

func (s *BusSink) RecordRetry(ctx context.Context, nodeID string, attempt int) {
	s.bus.Publish(Event{Kind: EventNodeRetry, NodeID: nodeID, Attempt: attempt, At: time.Now()})
}

func (s *BusSink) RecordProcessingTime(ctx context.Context, nodeID string, d time.Duration) {
	s.bus.Publish(Event{Kind: EventNodeProcessing, NodeID: nodeID, Duration: d, At: time.Now()})
}

func (s *BusSink) RecordPipelineStart(ctx context.Context, runID uuid.UUID) {
	s.bus.Publish(Event{Kind: EventPipelineStart, RunID: runID, At: time.Now()})
}

func (s *BusSink) RecordPipelineEnd(ctx context.Context, runID uuid.UUID, d time.Duration, success bool, restartedNodes int) {
	s.bus.Publish(Event{Kind: EventPipelineEnd, RunID: runID, Duration: d, Success: success, Count: restartedNodes, At: time.Now()})
}

func (s *BusSink) RecordLineage(ctx context.Context, nodeID string, parent, child uuid.UUID) {
	s.bus.Publish(Event{Kind: EventItemLineageEvent, NodeID: nodeID, Parent: parent, Child: child, At: time.Now()})
}

func (s *BusSink) RecordNodeRestarted(ctx context.Context, runID uuid.UUID, nodeID string, attempt int) {
	s.bus.Publish(Event{Kind: EventNodeRestarted, RunID: runID, NodeID: nodeID, Attempt: attempt, At: time.Now()})
}

func (s *BusSink) RecordNodeSkipped(ctx context.Context, runID uuid.UUID, nodeID string, reason error) {
	s.bus.Publish(Event{Kind: EventNodeSkipped, RunID: runID, NodeID: nodeID, Err: reason, At: time.Now()})
}
