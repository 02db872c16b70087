package node

import (
	"context"
	"testing"
	"time"

	"github.com/nodeflow/nodeflow/internal/pipe"
	"github.com/stretchr/testify/require"
)

type doubler struct{}

func (doubler) ExecuteItem(ctx context.Context, item int) (int, error) { return item * 2, nil }

func TestTransformExecuteItem(t *testing.T) {
	t.Parallel()
	d := doubler{}
	out, err := d.ExecuteItem(context.Background(), 21)
	require.NoError(t, err)
	require.Equal(t, 42, out)
}

func TestTaggedRoundTrip(t *testing.T) {
	t.Parallel()
	left := TagLeft("a")
	right := TagRight("b")
	require.Equal(t, SideLeft, left.Side)
	require.Equal(t, SideRight, right.Side)
	require.Equal(t, "a", left.Value)
}

type upperType struct{}

func (upperType) factory(raw any) (any, error) { return upperType{}, nil }

func TestRegistryBuildPrefersPreconfigured(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NoError(t, r.Register("upper", func(raw any) (any, error) { return upperType{}, nil }))

	preconfigured := upperType{}
	instance, err := r.Build("n1", "upper", preconfigured, nil)
	require.NoError(t, err)
	require.Equal(t, preconfigured, instance)
}

func TestRegistryBuildUsesConstructorWhenNoPreconfigured(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NoError(t, r.Register("upper", func(raw any) (any, error) { return upperType{}, nil }))

	instance, err := r.Build("n1", "upper", nil, nil)
	require.NoError(t, err)
	require.Equal(t, upperType{}, instance)
}

func TestRegistryBuildUnknownTypeFails(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	_, err := r.Build("n1", "missing", nil, nil)
	require.Error(t, err)
}

func TestRegistryDuplicateRegistrationFails(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NoError(t, r.Register("upper", func(raw any) (any, error) { return upperType{}, nil }))
	err := r.Register("upper", func(raw any) (any, error) { return upperType{}, nil })
	require.Error(t, err)
}

func TestBatchingGroupsBySize(t *testing.T) {
	t.Parallel()
	b, err := NewBatching[int](BatchOptions{Size: 2})
	require.NoError(t, err)

	input := pipe.FromSlice([]int{1, 2, 3, 4, 5})
	out, err := b.ExecutePipe(context.Background(), input)
	require.NoError(t, err)

	batches, err := pipe.Collect[[]int](context.Background(), out)
	require.NoError(t, err)
	require.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, batches)
}

func TestBatchingRejectsItemAtATime(t *testing.T) {
	t.Parallel()
	b, err := NewBatching[int](BatchOptions{Size: 2})
	require.NoError(t, err)
	_, err = b.ExecuteItem(context.Background(), 1)
	require.Error(t, err)
}

func TestBatchingInvalidSizeRejected(t *testing.T) {
	t.Parallel()
	_, err := NewBatching[int](BatchOptions{Size: 0})
	require.Error(t, err)
}

func TestUnbatchingFlattens(t *testing.T) {
	t.Parallel()
	u := NewUnbatching[int]()
	input := pipe.FromSlice([][]int{{1, 2}, {3}, {4, 5, 6}})
	out, err := u.ExecutePipe(context.Background(), input)
	require.NoError(t, err)

	items, err := pipe.Collect[int](context.Background(), out)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6}, items)
}

func TestBatchingTimeoutFlushesPartial(t *testing.T) {
	t.Parallel()
	b, err := NewBatching[int](BatchOptions{Size: 10, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	input := pipe.FromSlice([]int{1})
	out, err := b.ExecutePipe(context.Background(), input)
	require.NoError(t, err)

	batches, err := pipe.Collect[[]int](context.Background(), out)
	require.NoError(t, err)
	require.Equal(t, [][]int{{1}}, batches)
}
