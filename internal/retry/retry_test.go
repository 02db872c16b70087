package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFixedBackoffRejectsNonPositiveDelay(t *testing.T) {
	t.Parallel()
	_, err := NewFixed(0)
	require.Error(t, err)
}

func TestFixedBackoffAlwaysSameDelay(t *testing.T) {
	t.Parallel()
	b, err := NewFixed(100 * time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 100*time.Millisecond, b.Delay(1))
	require.Equal(t, 100*time.Millisecond, b.Delay(5))
}

func TestLinearBackoffGrowsAndClamps(t *testing.T) {
	t.Parallel()
	b, err := NewLinear(10*time.Millisecond, 10*time.Millisecond, 25*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 10*time.Millisecond, b.Delay(1))
	require.Equal(t, 20*time.Millisecond, b.Delay(2))
	require.Equal(t, 25*time.Millisecond, b.Delay(3))
}

func TestLinearBackoffRejectsMaxBelowBase(t *testing.T) {
	t.Parallel()
	_, err := NewLinear(10*time.Millisecond, 5*time.Millisecond, 5*time.Millisecond)
	require.Error(t, err)
}

func TestExponentialBackoffGrowsAndClamps(t *testing.T) {
	t.Parallel()
	b, err := NewExponential(10*time.Millisecond, 2, 50*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 10*time.Millisecond, b.Delay(1))
	require.Equal(t, 20*time.Millisecond, b.Delay(2))
	require.Equal(t, 40*time.Millisecond, b.Delay(3))
	require.Equal(t, 50*time.Millisecond, b.Delay(4))
}

func TestExponentialBackoffRejectsSubUnityMultiplier(t *testing.T) {
	t.Parallel()
	_, err := NewExponential(10*time.Millisecond, 0.5, 50*time.Millisecond)
	require.Error(t, err)
}

func TestPolicyRejectsNonPositiveMaxAttempts(t *testing.T) {
	t.Parallel()
	b, err := NewFixed(10 * time.Millisecond)
	require.NoError(t, err)
	_, err = NewPolicy(0, b, nil)
	require.Error(t, err)
}

func TestPolicyDefaultsToNoJitter(t *testing.T) {
	t.Parallel()
	b, err := NewFixed(10 * time.Millisecond)
	require.NoError(t, err)
	p, err := NewPolicy(3, b, nil)
	require.NoError(t, err)
	require.Equal(t, 10*time.Millisecond, p.NextDelay(1, 0))
}

func TestFullJitterNeverExceedsBaseDelay(t *testing.T) {
	t.Parallel()
	b, err := NewFixed(50 * time.Millisecond)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		d := FullJitter(b, 1, 0)
		require.GreaterOrEqual(t, d, time.Duration(0))
		require.Less(t, d, 50*time.Millisecond)
	}
}

func TestDeadLetterSinkBoundedCapacity(t *testing.T) {
	t.Parallel()
	sink := NewDeadLetterSink[string](1)
	require.NoError(t, sink.Send(context.Background(), DeadLetterEntry[string]{Item: "a", NodeID: "n1"}))
	err := sink.Send(context.Background(), DeadLetterEntry[string]{Item: "b", NodeID: "n1"})
	require.Error(t, err)
	require.Equal(t, 1, sink.Len())
}

func TestDeadLetterSinkUnboundedByDefault(t *testing.T) {
	t.Parallel()
	sink := NewDeadLetterSink[int](0)
	for i := 0; i < 100; i++ {
		require.NoError(t, sink.Send(context.Background(), DeadLetterEntry[int]{Item: i}))
	}
	require.Equal(t, 100, sink.Len())
}

type alwaysRetry[T any] struct{}

func (alwaysRetry[T]) HandleItemError(ctx context.Context, item T, err error, attempt int) NodeErrorDecision {
	return Retry
}

func TestNodeErrorHandlerDecisionString(t *testing.T) {
	t.Parallel()
	var h NodeErrorHandler[int] = alwaysRetry[int]{}
	require.Equal(t, Retry, h.HandleItemError(context.Background(), 1, nil, 1))
	require.Equal(t, "retry", Retry.String())
	require.Equal(t, "dead_letter", DeadLetter.String())
}

func TestPipelineErrorDecisionString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "restart_node", RestartNode.String())
	require.Equal(t, "fail_pipeline", FailPipeline.String())
}
