package runtime

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nodeflow/nodeflow/internal/observability"
	"github.com/nodeflow/nodeflow/internal/pipe"
)

// countingPipe wraps one of a node's input or output pipes and reports how
// many items crossed it to the node metrics sink, once, as soon as
// iteration is exhausted or the pipe is disposed — whichever happens first.
// countPipe returns upstream unchanged when sink is nil, so an unconfigured
// run pays nothing for this bookkeeping.
type countingPipe struct {
	upstream pipe.Pipe[any]
	ctx      context.Context
	nodeID   string
	sink     observability.NodeMetricsSink
	out      bool
	count    int64
	reported int32
}

func countPipe(ctx context.Context, nodeID string, sink observability.NodeMetricsSink, upstream pipe.Pipe[any], out bool) pipe.Pipe[any] {
	if sink == nil || upstream == nil {
		return upstream
	}
	return &countingPipe{upstream: upstream, ctx: ctx, nodeID: nodeID, sink: sink, out: out}
}

func (c *countingPipe) Iterate(ctx context.Context) (any, bool, error) {
	item, ok, err := c.upstream.Iterate(ctx)
	if ok {
		atomic.AddInt64(&c.count, 1)
	} else {
		c.report()
	}
	return item, ok, err
}

func (c *countingPipe) Dispose() error {
	c.report()
	return c.upstream.Dispose()
}

func (c *countingPipe) report() {
	if !atomic.CompareAndSwapInt32(&c.reported, 0, 1) {
		return
	}
	n := int(atomic.LoadInt64(&c.count))
	if c.out {
		c.sink.RecordItemsOut(c.ctx, c.nodeID, n)
	} else {
		c.sink.RecordItemsIn(c.ctx, c.nodeID, n)
	}
}

// timeCall measures fn's duration and reports it via sink, if configured.
func timeCall(ctx context.Context, nodeID string, sink observability.NodeMetricsSink, fn func() error) error {
	if sink == nil {
		return fn()
	}
	start := time.Now()
	err := fn()
	sink.RecordProcessingTime(ctx, nodeID, time.Since(start))
	return err
}
