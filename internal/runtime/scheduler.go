// Package runtime implements the engine's scheduler: the component that
// takes a built, validated graph.Graph and actually runs it, wiring each
// node's type-erased node.Runner directly to its upstream pipes.
//
// It is grounded on internal/engine/executor.go's goroutine-per-step
// fan-out, generalized from "one goroutine per step, barrier between
// levels" into "one supervisor goroutine per node, wired directly to its
// upstream pipes" — graph.Graph.Levels is only consulted at build time (to
// prove the graph acyclic); at run time, backpressure and ordering come
// from the pipes themselves, not from a level barrier.
package runtime

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nodeflow/nodeflow/internal/graph"
	"github.com/nodeflow/nodeflow/internal/node"
	"github.com/nodeflow/nodeflow/internal/observability"
	"github.com/nodeflow/nodeflow/internal/pipe"
	"github.com/nodeflow/nodeflow/internal/retry"
	pipelineerr "github.com/nodeflow/nodeflow/pkg/errors"
)

// Scheduler runs a single graph.Graph to completion.
type Scheduler struct{}

// NewScheduler returns a Scheduler.
func NewScheduler() *Scheduler { return &Scheduler{} }

// nodeOutput is the publication point a node's supervisor goroutine writes
// to exactly once, then closes ready. Downstream goroutines block on ready
// before reading pipes/err.
type nodeOutput struct {
	ready chan struct{}
	pipes []pipe.Pipe[any]
	err   error
}

// Run executes g once: every node gets its own supervisor goroutine, wired
// to its upstream nodes' output pipes as soon as those become available.
// Run blocks until every node has finished (succeeded, been skipped via
// ContinueWithoutNode, or failed), then disposes every resource any node
// registered, in LIFO order.
func (s *Scheduler) Run(ctx context.Context, g *graph.Graph, opts RunOptions) (*RunResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	disposal := newDisposalRegistry()
	obs := observability.Resolve(opts.Observability)
	runID := uuid.New()
	rs := &runState{ctx: runCtx, logger: opts.Logger, params: opts.Params, disposal: disposal, runID: runID, obs: obs}

	start := time.Now()
	if obs.PipelineMetrics != nil {
		obs.PipelineMetrics.RecordPipelineStart(runCtx, runID)
	}

	outboundByNode := make(map[graph.NodeID][]graph.Edge, len(g.Nodes))
	for _, e := range g.Edges {
		outboundByNode[e.From] = append(outboundByNode[e.From], e)
	}
	edgeIndex := make(map[graph.Edge]int, len(g.Edges))
	for _, edges := range outboundByNode {
		for i, e := range edges {
			edgeIndex[e] = i
		}
	}

	outputs := make(map[graph.NodeID]*nodeOutput, len(g.Nodes))
	for id := range g.Nodes {
		outputs[id] = &nodeOutput{ready: make(chan struct{})}
	}

	var (
		mu          sync.Mutex
		nodeResults = make(map[string]NodeResult, len(g.Nodes))
		failOnce    sync.Once
		firstErr    error
	)

	var wg sync.WaitGroup
	for id, n := range g.Nodes {
		wg.Add(1)
		go func(id graph.NodeID, n *graph.Node) {
			defer wg.Done()
			res := s.runNode(rs, g, id, n, outputs, edgeIndex, outboundByNode, opts)

			mu.Lock()
			nodeResults[string(id)] = res
			mu.Unlock()

			if res.Status == StatusFailed {
				failOnce.Do(func() {
					firstErr = res.Err
					cancel()
				})
			}
		}(id, n)
	}
	wg.Wait()

	disposeErr := disposal.disposeAll()
	runErr := firstErr
	switch {
	case firstErr == nil:
		runErr = disposeErr
	case disposeErr != nil:
		runErr = pipelineerr.NewAggregateError([]error{firstErr, disposeErr})
	}

	if obs.PipelineMetrics != nil {
		restarted := 0
		for _, res := range nodeResults {
			if res.Status == StatusRestarted {
				restarted++
			}
		}
		obs.PipelineMetrics.RecordPipelineEnd(runCtx, runID, time.Since(start), runErr == nil, restarted)
	}

	return &RunResult{NodeResults: nodeResults, Err: runErr}, runErr
}

// runNode waits for every inbound edge's upstream output, invokes the
// node's Runner (retrying/restarting per the pipeline error handler's
// decision on failure), and publishes its own output.
func (s *Scheduler) runNode(
	rs *runState,
	g *graph.Graph,
	id graph.NodeID,
	n *graph.Node,
	outputs map[graph.NodeID]*nodeOutput,
	edgeIndex map[graph.Edge]int,
	outboundByNode map[graph.NodeID][]graph.Edge,
	opts RunOptions,
) NodeResult {
	out := outputs[id]
	defer close(out.ready)

	inbound := orderedInbound(g, id)
	inputs := make([]pipe.Pipe[any], len(inbound))
	for i, e := range inbound {
		upstream := outputs[e.From]
		select {
		case <-upstream.ready:
		case <-rs.ctx.Done():
			out.err = rs.ctx.Err()
			return NodeResult{NodeID: string(id), Status: StatusCanceled, Err: rs.ctx.Err()}
		}
		if upstream.err != nil {
			out.err = upstream.err
			return NodeResult{NodeID: string(id), Status: StatusFailed, Err: upstream.err}
		}
		inputs[i] = countPipe(rs.ctx, string(id), rs.obs.NodeMetrics, upstream.pipes[edgeIndex[e]], false)
	}

	rc := &Context{nodeID: string(id), run: rs}

	runner, hasRunner := n.Runner.(node.Runner)
	factory, hasFactory := n.RunnerFactory.(node.RunnerFactory)
	if !hasRunner {
		if !hasFactory {
			err := pipelineerr.NewInternalError(pipelineerr.CodeMissingTypeMetadata, string(id),
				"node has neither a Runner nor a RunnerFactory attached", nil)
			out.err = err
			return NodeResult{NodeID: string(id), Status: StatusFailed, Err: err}
		}
		built, err := factory()
		if err != nil {
			out.err = err
			return NodeResult{NodeID: string(id), Status: StatusFailed, Err: err}
		}
		runner = built
	}

	maxRestarts, maxMaterialized := 0, 0
	if rcfg, ok := n.Strategy.(graph.ResilientConfig); ok {
		maxRestarts = rcfg.MaxRestartAttempts()
		maxMaterialized = rcfg.MaxMaterializedItems()
	}
	canRestart := hasFactory && maxRestarts > 0

	effective := inputs
	var matInputs []*materializingInput
	if canRestart {
		matInputs = make([]*materializingInput, len(inputs))
		wrapped := make([]pipe.Pipe[any], len(inputs))
		for i, in := range inputs {
			mi := newMaterializingInput(rs.ctx, in, string(id), maxMaterialized, rs.obs.ItemLineage)
			matInputs[i] = mi
			wrapped[i] = mi
		}
		effective = wrapped
	}

	pipelineHandler, _ := g.ErrorHandling.(retry.PipelineErrorHandler)

	restartCount := 0
	for {
		var outPipe pipe.Pipe[any]
		var err error
		_ = timeCall(rs.ctx, string(id), rs.obs.NodeMetrics, func() error {
			outPipe, err = runner(rc, effective)
			return err
		})
		if err == nil && canRestart && outPipe != nil {
			// A transform's failure usually only shows up later, as an error
			// from iterating its lazily-produced output pipe. For a
			// restart-capable node that's too late to act on, so drain it
			// eagerly here: any failure surfaces synchronously, in time for
			// the pipeline error handler to decide retry/restart/fail.
			items, cerr := pipe.Collect[any](rs.ctx, outPipe)
			if cerr != nil {
				err = cerr
			} else {
				outPipe = pipe.FromSlice(items)
			}
		}
		if err == nil {
			s.publish(rs, out, id, countPipe(rs.ctx, string(id), rs.obs.NodeMetrics, outPipe, true), outboundByNode, opts)
			status := StatusSucceeded
			if restartCount > 0 {
				status = StatusRestarted
			}
			return NodeResult{NodeID: string(id), Status: status, RestartCount: restartCount}
		}

		if rs.obs.NodeMetrics != nil {
			rs.obs.NodeMetrics.RecordError(rs.ctx, string(id), err)
		}

		if pipelineHandler == nil {
			out.err = err
			return NodeResult{NodeID: string(id), Status: StatusFailed, Err: err, RestartCount: restartCount}
		}

		switch pipelineHandler.HandlePipelineError(rs.ctx, string(id), err) {
		case retry.ContinueWithoutNode:
			if rs.obs.PipelineLineage != nil {
				rs.obs.PipelineLineage.RecordNodeSkipped(rs.ctx, rs.runID, string(id), err)
			}
			s.publish(rs, out, id, pipe.FromSlice[any](nil), outboundByNode, opts)
			return NodeResult{NodeID: string(id), Status: StatusContinuedWithoutNode, Err: err, RestartCount: restartCount}

		case retry.RestartNode:
			if !canRestart || restartCount >= maxRestarts {
				out.err = err
				return NodeResult{NodeID: string(id), Status: StatusFailed, Err: err, RestartCount: restartCount}
			}
			restartCount++
			if rs.obs.NodeMetrics != nil {
				rs.obs.NodeMetrics.RecordRetry(rs.ctx, string(id), restartCount)
			}
			if rs.obs.PipelineLineage != nil {
				rs.obs.PipelineLineage.RecordNodeRestarted(rs.ctx, rs.runID, string(id), restartCount)
			}
			built, ferr := factory()
			if ferr != nil {
				out.err = ferr
				return NodeResult{NodeID: string(id), Status: StatusFailed, Err: ferr, RestartCount: restartCount}
			}
			runner = built
			for i, mi := range matInputs {
				effective[i] = mi.replay()
			}

		default: // FailPipeline
			out.err = err
			return NodeResult{NodeID: string(id), Status: StatusFailed, Err: err, RestartCount: restartCount}
		}
	}
}

// publish duplicates outPipe once per outbound edge and makes the result
// visible to downstream supervisor goroutines.
func (s *Scheduler) publish(
	rs *runState,
	out *nodeOutput,
	id graph.NodeID,
	outPipe pipe.Pipe[any],
	outboundByNode map[graph.NodeID][]graph.Edge,
	opts RunOptions,
) {
	edges := outboundByNode[id]
	if outPipe == nil || len(edges) == 0 {
		if outPipe != nil {
			_ = outPipe.Dispose()
		}
		return
	}
	out.pipes = pipe.Broadcast[any](rs.ctx, outPipe, len(edges), opts.fanOutBuffer())
}

// orderedInbound returns id's inbound edges with any primary (left/default)
// edges ahead of secondary (join right-hand) ones, preserving declaration
// order within each group — the order node.JoinRunner expects its inputs in.
func orderedInbound(g *graph.Graph, id graph.NodeID) []graph.Edge {
	edges := g.InboundEdges(id)
	sort.SliceStable(edges, func(i, j int) bool { return !edges[i].Secondary && edges[j].Secondary })
	return edges
}
