package observability

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBusPublishDeliversToEverySubscriber(t *testing.T) {
	t.Parallel()

	bus := NewBus(4)
	ch1, cancel1 := bus.Subscribe()
	defer cancel1()
	ch2, cancel2 := bus.Subscribe()
	defer cancel2()

	factory := NewBusFactory(bus)
	factory.NodeMetrics.RecordItemsIn(context.Background(), "node-a", 3)

	e1 := <-ch1
	e2 := <-ch2
	require.Equal(t, EventNodeItemsIn, e1.Kind)
	require.Equal(t, "node-a", e1.NodeID)
	require.Equal(t, 3, e1.Count)
	require.Equal(t, e1.Kind, e2.Kind)
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	bus := NewBus(4)
	ch, cancel := bus.Subscribe()
	cancel()

	_, ok := <-ch
	require.False(t, ok)
}

func TestBusPublishDropsRatherThanBlocksOnFullSubscriber(t *testing.T) {
	t.Parallel()

	bus := NewBus(1)
	ch, cancel := bus.Subscribe()
	defer cancel()

	factory := NewBusFactory(bus)
	runID := uuid.New()
	for i := 0; i < 10; i++ {
		factory.PipelineMetrics.RecordPipelineStart(context.Background(), runID)
	}

	require.Len(t, ch, 1)
}

func TestResolveNilFactoryReturnsZeroValue(t *testing.T) {
	t.Parallel()

	f := Resolve(nil)
	require.Nil(t, f.NodeMetrics)
	require.Nil(t, f.PipelineMetrics)
	require.Nil(t, f.ItemLineage)
	require.Nil(t, f.PipelineLineage)
}
