package pipelinedef

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nodeflow/nodeflow/internal/graph"
	"github.com/nodeflow/nodeflow/internal/node"
	"github.com/nodeflow/nodeflow/internal/pipe"
	"github.com/nodeflow/nodeflow/internal/runtime"
	"github.com/nodeflow/nodeflow/internal/strategy"
)

type countsConfig struct {
	Items []int `yaml:"items"`
}

type staticInts struct{ items []int }

func (s staticInts) Initialize(ctx context.Context) (pipe.Pipe[int], error) {
	return pipe.FromSlice(s.items), nil
}

type doubler struct{}

func (doubler) ExecuteItem(ctx context.Context, item int) (int, error) { return item * 2, nil }

type collectSink struct{ got []int }

func (s *collectSink) ExecutePipe(ctx context.Context, input pipe.Pipe[int]) error {
	items, err := pipe.Collect[int](ctx, input)
	if err != nil {
		return err
	}
	s.got = items
	return nil
}

func testRegistry(t *testing.T, sinkOut *collectSink) *node.Registry {
	t.Helper()
	reg := node.NewRegistry()

	require.NoError(t, reg.Register("static_ints", func(rawConfig any) (any, error) {
		var cfg countsConfig
		if n, ok := rawConfig.(*yaml.Node); ok {
			if err := n.Decode(&cfg); err != nil {
				return nil, err
			}
		}
		return node.SourceRunner[int](staticInts{items: cfg.Items}), nil
	}))

	require.NoError(t, reg.Register("double", func(rawConfig any) (any, error) {
		return node.TransformRunner[int, int](func(ctx context.Context, in pipe.Pipe[int]) pipe.Pipe[int] {
			return strategy.RunSequential(ctx, doubler{}, in)
		}), nil
	}))

	require.NoError(t, reg.Register("collect", func(rawConfig any) (any, error) {
		return node.SinkRunner[int](sinkOut), nil
	}))

	return reg
}

const linearDoc = `
version: "1"
name: "linear"
nodes:
  - id: src
    kind: source
    type: static_ints
    config:
      items: [1, 2, 3]
  - id: doubled
    kind: transform
    type: double
  - id: out
    kind: sink
    type: collect
edges:
  - from: src
    to: doubled
  - from: doubled
    to: out
`

func TestFromYAMLBuildsARunnableGraph(t *testing.T) {
	sink := &collectSink{}
	reg := testRegistry(t, sink)

	b, err := FromYAML(strings.NewReader(linearDoc), reg)
	require.NoError(t, err)

	g, _, err := b.Build()
	require.NoError(t, err)

	result, err := runtime.NewScheduler().Run(context.Background(), g, runtime.RunOptions{})
	require.NoError(t, err)
	require.Equal(t, runtime.StatusSucceeded, result.NodeResults["out"].Status)
	require.Equal(t, []int{2, 4, 6}, sink.got)
}

func TestFromYAMLRejectsUnregisteredNodeType(t *testing.T) {
	reg := node.NewRegistry()
	_, err := FromYAML(strings.NewReader(linearDoc), reg)
	require.Error(t, err)
}

func TestFromYAMLRejectsDuplicateNodeID(t *testing.T) {
	sink := &collectSink{}
	reg := testRegistry(t, sink)

	doc := `
version: "1"
name: "dup"
nodes:
  - id: src
    kind: source
    type: static_ints
  - id: src
    kind: sink
    type: collect
edges:
  - from: src
    to: src
`
	_, err := FromYAML(strings.NewReader(doc), reg)
	require.Error(t, err)
}

func TestFromYAMLRejectsUnknownEdgeEndpoint(t *testing.T) {
	sink := &collectSink{}
	reg := testRegistry(t, sink)

	doc := `
version: "1"
name: "bad-edge"
nodes:
  - id: src
    kind: source
    type: static_ints
  - id: out
    kind: sink
    type: collect
edges:
  - from: src
    to: missing
`
	_, err := FromYAML(strings.NewReader(doc), reg)
	require.Error(t, err)
}

func TestParseRejectsMissingRequiredFields(t *testing.T) {
	_, err := Parse(strings.NewReader(`name: "no version"`))
	require.Error(t, err)
}

func TestFromYAMLWiresResilientStrategyAndRunnerFactory(t *testing.T) {
	sink := &collectSink{}
	reg := testRegistry(t, sink)

	doc := `
version: "1"
name: "resilient"
nodes:
  - id: src
    kind: source
    type: static_ints
    config:
      items: [1, 2, 3]
  - id: doubled
    kind: transform
    type: double
    strategy:
      kind: resilient
      resilient:
        backoff: fixed
        base_delay: 10ms
        max_delay: 10ms
        max_attempts: 3
        max_restart_attempts: 2
        max_materialized_items: 16
  - id: out
    kind: sink
    type: collect
edges:
  - from: src
    to: doubled
  - from: doubled
    to: out
`
	b, err := FromYAML(strings.NewReader(doc), reg)
	require.NoError(t, err)

	g, _, err := b.Build()
	require.NoError(t, err)

	n := g.Nodes[graph.NodeID("doubled")]
	require.NotNil(t, n.Strategy)
	rcfg, ok := n.Strategy.(graph.ResilientConfig)
	require.True(t, ok)
	require.Equal(t, 2, rcfg.MaxRestartAttempts())
	require.Equal(t, 16, rcfg.MaxMaterializedItems())
	require.NotNil(t, n.RunnerFactory)
}
