package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nodeflow/nodeflow/internal/graph"
	"github.com/nodeflow/nodeflow/internal/node"
	"github.com/nodeflow/nodeflow/internal/observability"
	"github.com/nodeflow/nodeflow/internal/pipe"
	"github.com/nodeflow/nodeflow/internal/retry"
	"github.com/nodeflow/nodeflow/internal/strategy"
	"github.com/stretchr/testify/require"
)

type intsSource struct{ items []int }

func (s intsSource) Initialize(ctx context.Context) (pipe.Pipe[int], error) {
	return pipe.FromSlice(s.items), nil
}

type doubler struct{}

func (doubler) ExecuteItem(ctx context.Context, item int) (int, error) { return item * 2, nil }

type collectSink struct {
	mu  sync.Mutex
	got []int
}

func (s *collectSink) ExecutePipe(ctx context.Context, input pipe.Pipe[int]) error {
	items, err := pipe.Collect[int](ctx, input)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.got = items
	s.mu.Unlock()
	return nil
}

func (s *collectSink) snapshot() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.got...)
}

type pipelineHandlerFunc struct {
	name string
	fn   func(ctx context.Context, nodeID string, err error) retry.PipelineErrorDecision
}

func (h pipelineHandlerFunc) HandlerName() string { return h.name }
func (h pipelineHandlerFunc) HandlePipelineError(ctx context.Context, nodeID string, err error) retry.PipelineErrorDecision {
	return h.fn(ctx, nodeID, err)
}

func TestSchedulerRunsLinearPipeline(t *testing.T) {
	t.Parallel()

	b := graph.NewBuilder()
	src := graph.AddSource[int](b, "numbers")
	tr := graph.AddTransform[int, int](b, "double")
	sink := graph.AddSink[int](b, "collect")
	graph.Connect(b, src, tr.In())
	graph.Connect(b, tr.Out(), sink)

	b.SetRunner(src.ID, node.SourceRunner[int](intsSource{items: []int{1, 2, 3}}))
	b.SetRunner(tr.ID, node.TransformRunner[int, int](func(ctx context.Context, in pipe.Pipe[int]) pipe.Pipe[int] {
		return strategy.RunSequential(ctx, doubler{}, in)
	}))
	sinkImpl := &collectSink{}
	b.SetRunner(sink.ID, node.SinkRunner[int](sinkImpl))

	g, _, err := b.Build()
	require.NoError(t, err)

	result, err := NewScheduler().Run(context.Background(), g, RunOptions{})
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, result.NodeResults["collect"].Status)
	require.Equal(t, []int{2, 4, 6}, sinkImpl.snapshot())
}

func TestSchedulerBroadcastsFanOutToEveryDependent(t *testing.T) {
	t.Parallel()

	b := graph.NewBuilder()
	src := graph.AddSource[int](b, "src")
	sink1 := graph.AddSink[int](b, "sink1")
	sink2 := graph.AddSink[int](b, "sink2")
	graph.Connect(b, src, sink1)
	graph.Connect(b, src, sink2)

	b.SetRunner(src.ID, node.SourceRunner[int](intsSource{items: []int{5, 6, 7}}))
	s1 := &collectSink{}
	s2 := &collectSink{}
	b.SetRunner(sink1.ID, node.SinkRunner[int](s1))
	b.SetRunner(sink2.ID, node.SinkRunner[int](s2))

	g, _, err := b.Build()
	require.NoError(t, err)

	result, err := NewScheduler().Run(context.Background(), g, RunOptions{})
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, result.NodeResults["sink1"].Status)
	require.Equal(t, StatusSucceeded, result.NodeResults["sink2"].Status)
	require.Equal(t, []int{5, 6, 7}, s1.snapshot())
	require.Equal(t, []int{5, 6, 7}, s2.snapshot())
}

func TestSchedulerContinuesWithoutFailedSource(t *testing.T) {
	t.Parallel()

	b := graph.NewBuilder()
	src := graph.AddSource[int](b, "src")
	sink := graph.AddSink[int](b, "sink")
	graph.Connect(b, src, sink)

	b.SetRunner(src.ID, node.Runner(func(rc node.RunContext, inputs []pipe.Pipe[any]) (pipe.Pipe[any], error) {
		return nil, errors.New("source init failed")
	}))
	b.AddPipelineErrorHandler(pipelineHandlerFunc{
		name: "continue",
		fn: func(ctx context.Context, nodeID string, err error) retry.PipelineErrorDecision {
			return retry.ContinueWithoutNode
		},
	})
	sinkImpl := &collectSink{}
	b.SetRunner(sink.ID, node.SinkRunner[int](sinkImpl))

	g, _, err := b.Build()
	require.NoError(t, err)

	result, err := NewScheduler().Run(context.Background(), g, RunOptions{})
	require.NoError(t, err)
	require.Equal(t, StatusContinuedWithoutNode, result.NodeResults["src"].Status)
	require.Equal(t, StatusSucceeded, result.NodeResults["sink"].Status)
	require.Empty(t, sinkImpl.snapshot())
}

func TestSchedulerRestartsNodeOnRestartDecision(t *testing.T) {
	t.Parallel()

	b := graph.NewBuilder()
	src := graph.AddSource[int](b, "src")
	tr := graph.AddTransform[int, int](b, "resilient")
	sink := graph.AddSink[int](b, "sink")
	graph.Connect(b, src, tr.In())
	graph.Connect(b, tr.Out(), sink)

	b.SetRunner(src.ID, node.SourceRunner[int](intsSource{items: []int{1, 2, 3}}))

	fixed, err := retry.NewFixed(time.Millisecond)
	require.NoError(t, err)
	policy, err := retry.NewPolicy(1, fixed, nil)
	require.NoError(t, err)
	resilient, err := strategy.NewResilient(strategy.InnerSequential, policy, 2, 10, true)
	require.NoError(t, err)
	b.SetExecutionStrategy(tr.ID, resilient)

	calls := 0
	b.SetRunnerFactory(tr.ID, node.RunnerFactory(func() (node.Runner, error) {
		calls++
		attempt := calls
		return node.Runner(func(rc node.RunContext, inputs []pipe.Pipe[any]) (pipe.Pipe[any], error) {
			if attempt == 1 {
				return nil, errors.New("boom")
			}
			return pipe.Erase[int](pipe.FromSlice([]int{20, 30, 40})), nil
		}), nil
	}))

	b.AddPipelineErrorHandler(pipelineHandlerFunc{
		name: "restart",
		fn: func(ctx context.Context, nodeID string, err error) retry.PipelineErrorDecision {
			return retry.RestartNode
		},
	})

	sinkImpl := &collectSink{}
	b.SetRunner(sink.ID, node.SinkRunner[int](sinkImpl))

	g, _, err := b.Build()
	require.NoError(t, err)

	result, err := NewScheduler().Run(context.Background(), g, RunOptions{})
	require.NoError(t, err)
	require.Equal(t, StatusRestarted, result.NodeResults["resilient"].Status)
	require.Equal(t, 1, result.NodeResults["resilient"].RestartCount)
	require.Equal(t, []int{20, 30, 40}, sinkImpl.snapshot())
}

func TestSchedulerFailsPipelineWhenNoHandlerConfigured(t *testing.T) {
	t.Parallel()

	b := graph.NewBuilder()
	src := graph.AddSource[int](b, "src")
	sink := graph.AddSink[int](b, "sink")
	graph.Connect(b, src, sink)

	b.SetRunner(src.ID, node.Runner(func(rc node.RunContext, inputs []pipe.Pipe[any]) (pipe.Pipe[any], error) {
		return nil, errors.New("boom")
	}))
	sinkImpl := &collectSink{}
	b.SetRunner(sink.ID, node.SinkRunner[int](sinkImpl))

	g, _, err := b.Build()
	require.NoError(t, err)

	result, err := NewScheduler().Run(context.Background(), g, RunOptions{})
	require.Error(t, err)
	require.Equal(t, StatusFailed, result.NodeResults["src"].Status)
}

func TestSchedulerReportsNodeAndPipelineMetricsToBus(t *testing.T) {
	t.Parallel()

	b := graph.NewBuilder()
	src := graph.AddSource[int](b, "src")
	sink := graph.AddSink[int](b, "sink")
	graph.Connect(b, src, sink)

	b.SetRunner(src.ID, node.SourceRunner[int](intsSource{items: []int{1, 2, 3}}))
	sinkImpl := &collectSink{}
	b.SetRunner(sink.ID, node.SinkRunner[int](sinkImpl))

	g, _, err := b.Build()
	require.NoError(t, err)

	bus := observability.NewBus(32)
	events, cancel := bus.Subscribe()
	defer cancel()

	result, err := NewScheduler().Run(context.Background(), g, RunOptions{Observability: observability.NewBusFactory(bus)})
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, result.NodeResults["sink"].Status)

	var sawStart, sawEnd, sawItemsOut bool
	draining := true
	for draining {
		select {
		case e := <-events:
			switch e.Kind {
			case observability.EventPipelineStart:
				sawStart = true
			case observability.EventPipelineEnd:
				sawEnd = true
				require.True(t, e.Success)
			case observability.EventNodeItemsOut:
				if e.NodeID == "src" {
					sawItemsOut = true
					require.Equal(t, 3, e.Count)
				}
			}
		default:
			draining = false
		}
	}

	require.True(t, sawStart, "expected a pipeline start event")
	require.True(t, sawEnd, "expected a pipeline end event")
	require.True(t, sawItemsOut, "expected src's items-out count to be reported")
}
