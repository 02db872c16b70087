package node

import (
	"context"
	"testing"

	"github.com/nodeflow/nodeflow/internal/graph"
	"github.com/nodeflow/nodeflow/internal/pipe"
	"github.com/stretchr/testify/require"
)

type fixedRunContext struct {
	id  string
	ctx context.Context
}

func (f fixedRunContext) NodeID() string         { return f.id }
func (f fixedRunContext) Context() context.Context { return f.ctx }

type intSource struct{ items []int }

func (s intSource) Initialize(ctx context.Context) (pipe.Pipe[int], error) {
	return pipe.FromSlice(s.items), nil
}

func TestSourceRunnerProducesErasedPipe(t *testing.T) {
	t.Parallel()
	runner := SourceRunner[int](intSource{items: []int{1, 2, 3}})
	out, err := runner(fixedRunContext{id: "src", ctx: context.Background()}, nil)
	require.NoError(t, err)

	typed := pipe.Unerase[int](out)
	got, err := pipe.Collect[int](context.Background(), typed)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, got)
}

type intSink struct{ captured *[]int }

func (s intSink) ExecutePipe(ctx context.Context, input pipe.Pipe[int]) error {
	items, err := pipe.Collect[int](ctx, input)
	if err != nil {
		return err
	}
	*s.captured = items
	return nil
}

func TestSinkRunnerDrainsInput(t *testing.T) {
	t.Parallel()
	var captured []int
	runner := SinkRunner[int](intSink{captured: &captured})

	erased := pipe.Erase[int](pipe.FromSlice([]int{4, 5, 6}))
	out, err := runner(fixedRunContext{id: "sink", ctx: context.Background()}, []pipe.Pipe[any]{erased})
	require.NoError(t, err)
	require.Nil(t, out)
	require.Equal(t, []int{4, 5, 6}, captured)
}

type innerJoin struct{}

func (innerJoin) Kind() graph.JoinKind                  { return graph.JoinInner }
func (innerJoin) LeftKey(item string) int               { return len(item) }
func (innerJoin) RightKey(item int) int                 { return item }
func (innerJoin) Combine(ctx context.Context, l string, r int) (string, error) {
	return l, nil
}

func TestJoinRunnerInnerJoinMatchesByKey(t *testing.T) {
	t.Parallel()
	runner := JoinRunner[string, int, int, string](innerJoin{})

	left := pipe.Erase[string](pipe.FromSlice([]string{"ab", "xyz", "q"}))
	right := pipe.Erase[int](pipe.FromSlice([]int{2, 1}))

	out, err := runner(fixedRunContext{id: "join", ctx: context.Background()}, []pipe.Pipe[any]{left, right})
	require.NoError(t, err)

	typed := pipe.Unerase[string](out)
	got, err := pipe.Collect[string](context.Background(), typed)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"ab", "q"}, got)
}
