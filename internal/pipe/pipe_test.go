package pipe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryPipeIteratesAndRestarts(t *testing.T) {
	t.Parallel()

	m := FromSlice([]int{1, 2, 3})
	ctx := context.Background()

	got, err := Collect[int](ctx, m)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, got)

	// Exhausted: a second pass yields nothing without Restart.
	_, ok, err := m.Iterate(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.Restart())
	got, err = Collect[int](ctx, m)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, got)
}

type fakeRegistry struct {
	registered []Disposer
}

func (f *fakeRegistry) Register(d Disposer) { f.registered = append(f.registered, d) }

func TestStreamRegistersOnFirstPull(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{}
	s := NewStream(func(ctx context.Context, emit func(int) bool) error {
		for i := 1; i <= 3; i++ {
			if !emit(i) {
				return nil
			}
		}
		return nil
	}, reg)

	require.Empty(t, reg.registered)

	ctx := context.Background()
	got, err := Collect[int](ctx, s)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, got)
	require.Len(t, reg.registered, 1)
}

func TestStreamSurfacesGeneratorError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	s := NewStream(func(ctx context.Context, emit func(int) bool) error {
		emit(1)
		return boom
	}, nil)

	ctx := context.Background()
	first, ok, err := s.Iterate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, first)

	_, ok, err = s.Iterate(ctx)
	require.False(t, ok)
	require.ErrorIs(t, err, boom)
}

func TestStreamCancelStopsGenerator(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	s := NewStream(func(ctx context.Context, emit func(int) bool) error {
		close(started)
		i := 0
		for {
			i++
			if !emit(i) {
				return nil
			}
		}
	}, nil)

	ctx := context.Background()
	_, ok, err := s.Iterate(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	<-started
	s.Cancel()

	// Further iteration should terminate (generator observed cancellation).
	for {
		_, ok, err := s.Iterate(ctx)
		if err != nil || !ok {
			break
		}
	}
}

func TestMergeConcatenateDrainsInOrder(t *testing.T) {
	t.Parallel()

	p1 := FromSlice([]int{1, 2})
	p2 := FromSlice([]int{3, 4})
	merged := Merge[int]([]Pipe[int]{p1, p2}, Concatenate)

	got, err := Collect[int](context.Background(), merged)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4}, got)
}

func TestMergeInterleaveRoundRobins(t *testing.T) {
	t.Parallel()

	p1 := FromSlice([]int{1, 3, 5})
	p2 := FromSlice([]int{2, 4})
	merged := Merge[int]([]Pipe[int]{p1, p2}, Interleave)

	got, err := Collect[int](context.Background(), merged)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4, 5}, got)
}
