// Package graph implements the immutable graph model described in the
// engine's data model: nodes, edges, and the topological structure the
// scheduler walks to run a pipeline.
package graph

import "reflect"

// Kind identifies the shape of a node.
type Kind string

const (
	KindSource    Kind = "source"
	KindTransform Kind = "transform"
	KindSink      Kind = "sink"
	KindJoin      Kind = "join"
)

// NodeID uniquely identifies a node within a graph.
type NodeID string

// JoinKind enumerates the supported join semantics (§4.4).
type JoinKind string

const (
	JoinInner      JoinKind = "inner"
	JoinLeftOuter  JoinKind = "left_outer"
	JoinRightOuter JoinKind = "right_outer"
	JoinFullOuter  JoinKind = "full_outer"
)

// ExecutionStrategy is a marker interface implemented by internal/strategy's
// concrete strategies. The graph package only needs to carry a reference;
// it never interprets the strategy itself (keeps graph free of a strategy
// package import cycle).
type ExecutionStrategy interface {
	StrategyName() string
}

// ErrorHandler is a marker interface implemented by internal/retry's
// per-node error handlers.
type ErrorHandler interface {
	HandlerName() string
}

// Node is a vertex in the execution DAG. Once added to a Graph its
// identity, kind, and types are immutable; only strategy/error-handler
// references and the preconfigured instance may be attached afterward, and
// only until Build() freezes the graph.
type Node struct {
	ID   NodeID
	Name string
	Kind Kind

	// InputType is nil for sources. For joins it is the primary (left) input.
	InputType reflect.Type
	// SecondaryInputType is set only for joins (the right input).
	SecondaryInputType reflect.Type
	// OutputType is nil for sinks.
	OutputType reflect.Type

	// JoinKind and key selector/fallback metadata are opaque to the graph;
	// only join-kind is needed for validation messages.
	JoinKind JoinKind

	Strategy     ExecutionStrategy
	ErrorHandler ErrorHandler

	// PreconfiguredInstance, when non-nil, is used verbatim instead of
	// asking the node factory to construct one.
	PreconfiguredInstance any

	// BatchOrUnbatch marks reserved transform shapes that may only be
	// driven through ExecutePipe (§4.4).
	BatchOrUnbatch string // "", "batching", "unbatching"

	// Runner holds a node.Runner closure (type-erased as any here since
	// graph cannot import node: node.Join references graph.JoinKind, so the
	// dependency only runs one way). The scheduler in internal/runtime
	// asserts this back to node.Runner before invoking it.
	Runner any

	// RunnerFactory, when set, holds a func() (node.Runner, error) the
	// scheduler calls to (re)build Runner — once at startup if Runner itself
	// is nil, and again on every RestartNode decision (§4.7), so a restart
	// gets a freshly constructed node instance rather than replaying into
	// the one that just failed. Nodes with no restart path may leave this
	// nil and rely on the static Runner alone.
	RunnerFactory any
}

// Edge is a directed, typed connection between two nodes.
type Edge struct {
	From     NodeID
	To       NodeID
	FromPort string
	ToPort   string
	// Secondary marks an edge feeding a join's right-hand input.
	Secondary bool
}

// key returns the duplicate-detection tuple for an edge (§3: duplicate
// (source, target, sourceOut, targetIn) tuples are forbidden).
func (e Edge) key() [4]string {
	return [4]string{string(e.From), string(e.To), e.FromPort, e.ToPort}
}

// Graph is the immutable, validated description of a pipeline.
type Graph struct {
	Nodes map[NodeID]*Node
	Edges []Edge

	// Levels holds the topological levels computed at build time. It is
	// advisory for the scheduler (real backpressure comes from pipes, not
	// these levels) but is the authoritative witness that the graph is
	// acyclic.
	Levels [][]NodeID

	// ExecutionAnnotations carries pipeline-scoped execution knobs (e.g.
	// default retry/materialization settings) keyed by name.
	ExecutionAnnotations map[string]any

	// ErrorHandling is the pipeline-level error handler reference, if any.
	ErrorHandling ErrorHandler

	// DeadLetterSink, when non-nil, is the preconfigured dead-letter node
	// instance attached at the pipeline level.
	DeadLetterSink any

	frozen bool
}

// Dependents returns the node ids with an inbound edge from id.
func (g *Graph) Dependents(id NodeID) []NodeID {
	var out []NodeID
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e.To)
		}
	}
	return out
}

// DependsOn returns the node ids with an outbound edge into id.
func (g *Graph) DependsOn(id NodeID) []NodeID {
	var out []NodeID
	for _, e := range g.Edges {
		if e.To == id {
			out = append(out, e.From)
		}
	}
	return out
}

// InboundEdges returns every edge terminating at id, in declared order.
func (g *Graph) InboundEdges(id NodeID) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

// Sources returns the node ids with Kind == KindSource.
func (g *Graph) Sources() []NodeID {
	var out []NodeID
	for id, n := range g.Nodes {
		if n.Kind == KindSource {
			out = append(out, id)
		}
	}
	return out
}
