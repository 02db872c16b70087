package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinearPipelineBuilds(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	src := AddSource[int](b, "numbers")
	tr := AddTransform[int, int](b, "double")
	sink := AddSink[int](b, "collect")

	Connect(b, src, tr.In())
	Connect(b, tr.Out(), sink)

	g, result, err := b.Build()
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Len(t, g.Nodes, 3)
	require.Len(t, g.Levels, 3)
}

func TestDuplicateNameIsRejected(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	AddSource[int](b, "dup")
	AddSource[int](b, "dup")

	_, _, err := b.Build()
	require.Error(t, err)
}

func TestSelfLoopIsRejected(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	tr := AddTransform[int, int](b, "echo")
	Connect(b, tr.Out(), tr.In())

	_, _, err := b.Build()
	require.Error(t, err)
}

func TestCycleIsRejectedAtBuild(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	a := AddTransform[int, int](b, "a")
	c := AddTransform[int, int](b, "c")
	bb := AddTransform[int, int](b, "b")

	Connect(b, a.Out(), bb.In())
	Connect(b, bb.Out(), c.In())
	Connect(b, c.Out(), a.In())

	_, result, err := b.Build()
	require.Error(t, err)
	require.NotNil(t, result)

	var cycleIssue *Issue
	for i := range result.Issues {
		if result.Issues[i].Category == CategoryCycles {
			cycleIssue = &result.Issues[i]
		}
	}
	require.NotNil(t, cycleIssue)
	require.Equal(t, SeverityError, cycleIssue.Severity)
}

func TestMissingSourceIsRejected(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	AddSink[int](b, "collect")

	_, result, err := b.Build()
	require.Error(t, err)
	require.False(t, result.Valid)
}

func TestUnreachableNodeIsRejected(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	src := AddSource[int](b, "src")
	sink := AddSink[int](b, "sink")
	Connect(b, src, sink)

	orphan := AddTransform[int, int](b, "orphan")
	_ = orphan // declared but never connected: no inbound edge

	_, result, err := b.Build()
	require.Error(t, err)
	require.False(t, result.Valid)
}

func TestTypeMismatchIsRejected(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	src := AddSource[int](b, "src")
	sink := AddSink[string](b, "sink")

	// Connect requires matching T at compile time; simulate a
	// mismatched edge by calling the untyped connect directly, bypassing
	// Connect's type parameters.
	b.connect(src.ID, sink.ID, "", "", false)

	_, result, err := b.Build()
	require.Error(t, err)
	foundTypeIssue := false
	for _, issue := range result.Issues {
		if issue.Category == CategoryTypes {
			foundTypeIssue = true
		}
	}
	require.True(t, foundTypeIssue)
}

func TestJoinConnectsBothSides(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	left := AddSource[int](b, "left")
	right := AddSource[string](b, "right")
	join := AddJoin[int, string, string](b, "join", JoinInner)
	sink := AddSink[string](b, "sink")

	ConnectLeft(b, left, join)
	ConnectRight(b, right, join)
	Connect(b, join.Out(), sink)

	g, result, err := b.Build()
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, KindJoin, g.Nodes[join.ID].Kind)
}

func TestAutoGeneratedNamesLowercaseKind(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	s1 := AddSource[int](b, "")
	s2 := AddSource[int](b, "")

	require.Equal(t, NodeID("source"), s1.ID)
	require.Equal(t, NodeID("source2"), s2.ID)
}

func TestPreconfiguredInstanceCollision(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	src := AddSource[int](b, "src")
	b.AddPreconfiguredInstance(src.ID, 1)
	b.AddPreconfiguredInstance(src.ID, 2)

	_, _, err := b.Build()
	require.Error(t, err)
}
