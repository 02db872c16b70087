package strategy

import (
	"container/heap"
	"context"
	"runtime"
	"sync"

	nodepkg "github.com/nodeflow/nodeflow/internal/node"
	"github.com/nodeflow/nodeflow/internal/pipe"
	"golang.org/x/sync/errgroup"
)

// QueuePolicy is the enqueue behavior when a Parallel strategy's bounded
// input queue is full (§4.5).
type QueuePolicy string

const (
	Block      QueuePolicy = "block"
	DropOldest QueuePolicy = "drop_oldest"
	DropNewest QueuePolicy = "drop_newest"
)

// ParallelOptions configures a Parallel strategy.
type ParallelOptions struct {
	MaxDegreeOfParallelism int
	// MaxQueueLength <= 0 selects a default queue of max(4×degree, 16)
	// items under the Block policy, whatever QueuePolicy says.
	MaxQueueLength       int
	QueuePolicy          QueuePolicy
	OutputBufferCapacity int
	PreserveOrdering     bool
	// OnDropped, if set, is called (from the producer goroutine) whenever
	// DropOldest/DropNewest discards an item. Nothing in this package sets
	// it (Resilient passes its Parallel options through unchanged); when
	// nil, drops are only visible as missing output.
	OnDropped func(ctx context.Context, nodeID string)
	// NodeID is used only for OnDropped diagnostics.
	NodeID string
}

// Parallel runs a transform's ExecuteItem across MaxDegreeOfParallelism
// worker goroutines.
type Parallel struct {
	Options ParallelOptions
}

// StrategyName satisfies graph.ExecutionStrategy.
func (Parallel) StrategyName() string { return "parallel" }

// MaxDegreeOfParallelism satisfies graph.ParallelConfig.
func (p Parallel) MaxDegreeOfParallelism() int { return p.Options.MaxDegreeOfParallelism }

// MaxQueueLength satisfies graph.ParallelConfig.
func (p Parallel) MaxQueueLength() (int, bool) {
	if p.Options.MaxQueueLength <= 0 {
		return 0, false
	}
	return p.Options.MaxQueueLength, true
}

// QueuePolicy satisfies graph.ParallelConfig.
func (p Parallel) QueuePolicy() string { return string(p.Options.QueuePolicy) }

// PreserveOrdering satisfies graph.ParallelConfig.
func (p Parallel) PreserveOrdering() bool { return p.Options.PreserveOrdering }

// General, CpuBound, IoBound, and NetworkBound are the preset API (§4.5):
// they choose ParallelOptions from processor count. NetworkBound is capped
// at 100 workers / 400 buffer.
func General() Parallel {
	cpu := runtime.NumCPU()
	return Parallel{Options: ParallelOptions{MaxDegreeOfParallelism: cpu, OutputBufferCapacity: cpu * 2, QueuePolicy: Block}}
}

func CpuBound() Parallel {
	cpu := runtime.NumCPU()
	return Parallel{Options: ParallelOptions{MaxDegreeOfParallelism: cpu, OutputBufferCapacity: cpu, QueuePolicy: Block}}
}

func IoBound() Parallel {
	cpu := runtime.NumCPU()
	workers := cpu * 4
	return Parallel{Options: ParallelOptions{MaxDegreeOfParallelism: workers, OutputBufferCapacity: workers * 2, QueuePolicy: Block}}
}

func NetworkBound() Parallel {
	cpu := runtime.NumCPU()
	workers := cpu * 10
	if workers > 100 {
		workers = 100
	}
	buffer := workers * 4
	if buffer > 400 {
		buffer = 400
	}
	return Parallel{Options: ParallelOptions{MaxDegreeOfParallelism: workers, OutputBufferCapacity: buffer, QueuePolicy: Block}}
}

type seqTask[TIn any] struct {
	seq  int
	item TIn
}

type seqResult[TOut any] struct {
	seq  int
	out  TOut
	emit bool
}

// RunParallel drives t.ExecuteItem over input across Options degree of
// parallelism, supervised by an errgroup (the idiomatic replacement for a
// hand-rolled WaitGroup + once).
func RunParallel[TIn, TOut any](ctx context.Context, opts ParallelOptions, t nodepkg.Transform[TIn, TOut], input pipe.Pipe[TIn]) pipe.Pipe[TOut] {
	return runParallel(ctx, opts, plainExecutor(t), input)
}

func runParallel[TIn, TOut any](ctx context.Context, opts ParallelOptions, exec itemExecutor[TIn, TOut], input pipe.Pipe[TIn]) pipe.Pipe[TOut] {
	degree := opts.MaxDegreeOfParallelism
	if degree <= 0 {
		degree = runtime.NumCPU()
	}

	queueCap := opts.MaxQueueLength
	policy := opts.QueuePolicy
	if queueCap <= 0 {
		// Unbounded queue coerces drop policies to Block (§4.2 validator
		// warning mirrors this at build time).
		policy = Block
		queueCap = degree * 4
		if queueCap < 16 {
			queueCap = 16
		}
	}

	gen := func(ctx context.Context, emit func(TOut) bool) error {
		tasks := make(chan seqTask[TIn], queueCap)
		results := make(chan seqResult[TOut], opts.OutputBufferCapacity+degree)

		group, gctx := errgroup.WithContext(ctx)

		group.Go(func() error {
			defer close(tasks)
			seq := 0
			for {
				item, ok, err := input.Iterate(gctx)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				task := seqTask[TIn]{seq: seq, item: item}
				seq++

				if policy == Block {
					select {
					case tasks <- task:
					case <-gctx.Done():
						return gctx.Err()
					}
					continue
				}

				select {
				case tasks <- task:
					continue
				default:
				}

				switch policy {
				case DropNewest:
					if opts.OnDropped != nil {
						opts.OnDropped(gctx, opts.NodeID)
					}
				case DropOldest:
					select {
					case <-tasks:
					default:
					}
					if opts.OnDropped != nil {
						opts.OnDropped(gctx, opts.NodeID)
					}
					select {
					case tasks <- task:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
			}
		})

		var wg sync.WaitGroup
		for i := 0; i < degree; i++ {
			wg.Add(1)
			group.Go(func() error {
				defer wg.Done()
				for {
					select {
					case task, ok := <-tasks:
						if !ok {
							return nil
						}
						out, shouldEmit, err := exec(gctx, task.item)
						if err != nil {
							return err
						}
						select {
						case results <- seqResult[TOut]{seq: task.seq, out: out, emit: shouldEmit}:
						case <-gctx.Done():
							return gctx.Err()
						}
					case <-gctx.Done():
						return gctx.Err()
					}
				}
			})
		}

		go func() {
			wg.Wait()
			close(results)
		}()

		var reorder *reorderBuffer[TOut]
		if opts.PreserveOrdering {
			reorder = newReorderBuffer[TOut]()
		}

		for r := range results {
			if !r.emit {
				continue
			}
			if reorder == nil {
				if !emit(r.out) {
					return nil
				}
				continue
			}
			reorder.push(r.seq, r.out)
			for reorder.hasNext() {
				v := reorder.pop()
				if !emit(v) {
					return nil
				}
			}
		}

		return group.Wait()
	}

	return pipe.NewStream(gen, nil)
}

type reorderItem[T any] struct {
	seq int
	val T
}

type reorderHeap[T any] []reorderItem[T]

func (h reorderHeap[T]) Len() int            { return len(h) }
func (h reorderHeap[T]) Less(i, j int) bool  { return h[i].seq < h[j].seq }
func (h reorderHeap[T]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *reorderHeap[T]) Push(x any)         { *h = append(*h, x.(reorderItem[T])) }
func (h *reorderHeap[T]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// reorderBuffer restores sequence order across out-of-order worker
// completions, via a small min-heap keyed by sequence number.
type reorderBuffer[T any] struct {
	h    reorderHeap[T]
	next int
}

func newReorderBuffer[T any]() *reorderBuffer[T] {
	return &reorderBuffer[T]{h: reorderHeap[T]{}}
}

func (b *reorderBuffer[T]) push(seq int, val T) {
	heap.Push(&b.h, reorderItem[T]{seq: seq, val: val})
}

func (b *reorderBuffer[T]) hasNext() bool {
	return len(b.h) > 0 && b.h[0].seq == b.next
}

func (b *reorderBuffer[T]) pop() T {
	item := heap.Pop(&b.h).(reorderItem[T])
	b.next++
	return item.val
}
