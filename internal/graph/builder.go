package graph

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	pipelineerr "github.com/nodeflow/nodeflow/pkg/errors"
)

// Out is a phantom-typed handle to a node's output, used by free functions
// (Connect, ConnectLeft, ...) for compile-time shape checking. It carries no
// behaviour beyond the node id it names.
type Out[T any] struct{ ID NodeID }

// In is the input-side counterpart of Out.
type In[T any] struct{ ID NodeID }

// InOut names a transform node, exposing both its input and output sides.
type InOut[TIn, TOut any] struct{ ID NodeID }

// In returns the input handle of a transform.
func (h InOut[TIn, TOut]) In() In[TIn] { return In[TIn]{ID: h.ID} }

// Out returns the output handle of a transform.
func (h InOut[TIn, TOut]) Out() Out[TOut] { return Out[TOut]{ID: h.ID} }

// JoinHandle names a join node and its three type parameters.
type JoinHandle[TLeft, TRight, TOut any] struct{ ID NodeID }

// Out returns the output handle of a join.
func (h JoinHandle[TLeft, TRight, TOut]) Out() Out[TOut] { return Out[TOut]{ID: h.ID} }

// Builder accumulates nodes and edges before freezing them into a Graph via
// Build(). All node and connection operations are pure with respect to the
// in-construction graph; Build() is the only operation that may fail with a
// validation error.
type Builder struct {
	mu sync.Mutex

	nodes      map[NodeID]*Node
	order      []NodeID
	names      map[string]NodeID
	edges      []Edge
	edgeKeys   map[[4]string]struct{}
	typeCounts map[string]int

	annotations map[string]any
	errHandler  ErrorHandler
	deadLetter  any

	buildErr error // first configuration-time error, returned by Build
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:       make(map[NodeID]*Node),
		names:       make(map[string]NodeID),
		edgeKeys:    make(map[[4]string]struct{}),
		typeCounts:  make(map[string]int),
		annotations: make(map[string]any),
	}
}

func (b *Builder) fail(err error) {
	if b.buildErr == nil {
		b.buildErr = err
	}
}

// autoName derives a default name from a node-type label, lowercased, with a
// numeric suffix on collision (e.g. "source", "source2").
func (b *Builder) autoName(label string) string {
	base := strings.ToLower(label)
	b.typeCounts[base]++
	n := b.typeCounts[base]
	if n == 1 {
		return base
	}
	return fmt.Sprintf("%s%d", base, n)
}

func (b *Builder) register(kind Kind, name string, node *Node) NodeID {
	b.mu.Lock()
	defer b.mu.Unlock()

	if name == "" {
		name = b.autoName(string(kind))
	}
	if _, exists := b.names[name]; exists {
		b.fail(pipelineerr.NewValidationError(pipelineerr.CodeDuplicateName, name,
			fmt.Sprintf("node name %q is not unique", name), nil))
	}

	id := NodeID(name)
	if _, exists := b.nodes[id]; exists {
		b.fail(pipelineerr.NewValidationError(pipelineerr.CodeDuplicateID, string(id),
			fmt.Sprintf("node id %q is not unique", id), nil))
	}

	node.ID = id
	node.Name = name
	node.Kind = kind
	b.nodes[id] = node
	b.order = append(b.order, id)
	b.names[name] = id
	return id
}

// AddSource declares a new source node producing TOut.
func AddSource[TOut any](b *Builder, name string) Out[TOut] {
	id := b.register(KindSource, name, &Node{OutputType: reflect.TypeFor[TOut]()})
	return Out[TOut]{ID: id}
}

// AddTransform declares a new transform node from TIn to TOut.
func AddTransform[TIn, TOut any](b *Builder, name string) InOut[TIn, TOut] {
	id := b.register(KindTransform, name, &Node{
		InputType:  reflect.TypeFor[TIn](),
		OutputType: reflect.TypeFor[TOut](),
	})
	return InOut[TIn, TOut]{ID: id}
}

// AddSink declares a new sink node consuming TIn.
func AddSink[TIn any](b *Builder, name string) In[TIn] {
	id := b.register(KindSink, name, &Node{InputType: reflect.TypeFor[TIn]()})
	return In[TIn]{ID: id}
}

// AddJoin declares a new join node combining TLeft and TRight into TOut.
func AddJoin[TLeft, TRight, TOut any](b *Builder, name string, kind JoinKind) JoinHandle[TLeft, TRight, TOut] {
	id := b.register(KindJoin, name, &Node{
		InputType:          reflect.TypeFor[TLeft](),
		SecondaryInputType: reflect.TypeFor[TRight](),
		OutputType:         reflect.TypeFor[TOut](),
		JoinKind:           kind,
	})
	return JoinHandle[TLeft, TRight, TOut]{ID: id}
}

// AddBatching declares a batching transform: Collection<TOut> output from
// TOut input, accumulated to size or timeout. Batching/Unbatching are
// reserved shapes that may only run through ExecutePipe (§4.4).
func AddBatching[T any](b *Builder, name string) InOut[T, []T] {
	id := b.register(KindTransform, name, &Node{
		InputType:      reflect.TypeFor[T](),
		OutputType:     reflect.TypeFor[[]T](),
		BatchOrUnbatch: "batching",
	})
	return InOut[T, []T]{ID: id}
}

// AddUnbatching declares the inverse of AddBatching.
func AddUnbatching[T any](b *Builder, name string) InOut[[]T, T] {
	id := b.register(KindTransform, name, &Node{
		InputType:      reflect.TypeFor[[]T](),
		OutputType:     reflect.TypeFor[T](),
		BatchOrUnbatch: "unbatching",
	})
	return InOut[[]T, T]{ID: id}
}

// DeclareNode registers a node whose shape is known only at run time (e.g.
// decoded from a declarative document), bypassing the static AddSource/
// AddTransform/AddSink/AddJoin type parameters. inputType/outputType/
// secondaryInputType may be nil where the corresponding side doesn't apply;
// ruleTypeCompatibility skips the check for any edge touching a nil type, so
// such an edge is type-checked neither at compile time nor at Build(); a
// mismatch on it surfaces at run time as EXEC-PipeWrongType from pipe.Unerase.
func (b *Builder) DeclareNode(kind Kind, name string, inputType, outputType, secondaryInputType reflect.Type, joinKind JoinKind) NodeID {
	return b.register(kind, name, &Node{
		InputType:          inputType,
		OutputType:         outputType,
		SecondaryInputType: secondaryInputType,
		JoinKind:           joinKind,
	})
}

// ConnectNodes wires from -> to by NodeID, for callers that only have ids in
// hand rather than the typed Out[T]/In[T] handles Connect/ConnectLeft/
// ConnectRight require. toPort should be "left" or "" for a primary edge and
// "right" for a join's secondary input; secondary must agree with toPort.
func (b *Builder) ConnectNodes(from, to NodeID, toPort string, secondary bool) {
	b.connect(from, to, "", toPort, secondary)
}

func (b *Builder) connect(from, to NodeID, fromPort, toPort string, secondary bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if from == to {
		b.fail(pipelineerr.NewValidationError(pipelineerr.CodeSelfLoop, string(from),
			fmt.Sprintf("node %q cannot connect to itself", from), nil))
		return
	}

	e := Edge{From: from, To: to, FromPort: fromPort, ToPort: toPort, Secondary: secondary}
	key := e.key()
	if _, exists := b.edgeKeys[key]; exists {
		b.fail(pipelineerr.NewValidationError(pipelineerr.CodeDuplicateEdge, string(to),
			fmt.Sprintf("duplicate edge %s -> %s", from, to), nil))
		return
	}
	b.edgeKeys[key] = struct{}{}
	b.edges = append(b.edges, e)
}

// Connect wires a source/transform output to a transform/sink input of the
// same type T.
func Connect[T any](b *Builder, from Out[T], to In[T]) {
	b.connect(from.ID, to.ID, "", "", false)
}

// ConnectLeft wires a producer of TLeft into the primary (left) input of a
// join.
func ConnectLeft[TLeft, TRight, TOut any](b *Builder, from Out[TLeft], to JoinHandle[TLeft, TRight, TOut]) {
	b.connect(from.ID, to.ID, "", "left", false)
}

// ConnectRight wires a producer of TRight into the secondary (right) input
// of a join. The secondary type is intentionally not re-checked by the
// generic type-compatibility rule (§4.2); callers get that check for free
// from the TRight type parameter instead.
func ConnectRight[TLeft, TRight, TOut any](b *Builder, from Out[TRight], to JoinHandle[TLeft, TRight, TOut]) {
	b.connect(from.ID, to.ID, "", "right", true)
}

// SetExecutionStrategy attaches a strategy to a transform node.
func (b *Builder) SetExecutionStrategy(id NodeID, strategy ExecutionStrategy) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[id]
	if !ok {
		b.fail(pipelineerr.NewConfigurationError(pipelineerr.CodeUnregisteredTarget, string(id),
			"cannot set execution strategy: node not registered", nil))
		return
	}
	if n.Kind != KindTransform {
		b.fail(pipelineerr.NewConfigurationError(pipelineerr.CodeStrategyOnNonTransform, string(id),
			"execution strategy may only be attached to a transform node", nil))
		return
	}
	n.Strategy = strategy
}

// SetNodeExecutionOption merges a key into the node-scoped slice of the
// graph's annotation map, keyed "<nodeID>.<key>".
func (b *Builder) SetNodeExecutionOption(id NodeID, key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.nodes[id]; !ok {
		b.fail(pipelineerr.NewConfigurationError(pipelineerr.CodeUnregisteredTarget, string(id),
			"cannot set execution option: node not registered", nil))
		return
	}
	b.annotations[fmt.Sprintf("%s.%s", id, key)] = value
}

// AddPreconfiguredInstance attaches a concrete node object to an
// already-declared node id. Subsequent runs use this object verbatim rather
// than asking the factory. Attaching twice to the same id is an error.
func (b *Builder) AddPreconfiguredInstance(id NodeID, instance any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[id]
	if !ok {
		b.fail(pipelineerr.NewConfigurationError(pipelineerr.CodeUnregisteredTarget, string(id),
			"cannot attach preconfigured instance: node not registered", nil))
		return
	}
	if n.PreconfiguredInstance != nil {
		b.fail(pipelineerr.NewConfigurationError(pipelineerr.CodeInstanceCollision, string(id),
			"a preconfigured instance is already attached to this node", nil))
		return
	}
	n.PreconfiguredInstance = instance
}

// WithErrorHandler attaches a per-node error handler reference.
func (b *Builder) WithErrorHandler(id NodeID, handler ErrorHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[id]
	if !ok {
		b.fail(pipelineerr.NewConfigurationError(pipelineerr.CodeUnregisteredTarget, string(id),
			"cannot set error handler: node not registered", nil))
		return
	}
	n.ErrorHandler = handler
}

// SetRunner attaches the type-erased execution closure a node was bound to
// (via one of node.SourceRunner/TransformRunner/SinkRunner/JoinRunner) at
// the typed call site where its TIn/TOut were still known statically.
func (b *Builder) SetRunner(id NodeID, runner any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[id]
	if !ok {
		b.fail(pipelineerr.NewConfigurationError(pipelineerr.CodeUnregisteredTarget, string(id),
			"cannot set runner: node not registered", nil))
		return
	}
	n.Runner = runner
}

// SetRunnerFactory attaches a node.Runner-rebuilding closure (a
// node.RunnerFactory, type-erased as any) used to re-instantiate the node's
// Runner on a RestartNode decision. See graph.Node.RunnerFactory.
func (b *Builder) SetRunnerFactory(id NodeID, factory any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[id]
	if !ok {
		b.fail(pipelineerr.NewConfigurationError(pipelineerr.CodeUnregisteredTarget, string(id),
			"cannot set runner factory: node not registered", nil))
		return
	}
	n.RunnerFactory = factory
}

// AddDeadLetterSink registers the pipeline-level dead-letter sink instance.
func (b *Builder) AddDeadLetterSink(instance any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deadLetter = instance
}

// AddPipelineErrorHandler registers the pipeline-level error handler.
func (b *Builder) AddPipelineErrorHandler(handler ErrorHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errHandler = handler
}

// Build freezes the graph, runs the validator, and returns either a usable
// graph or a structured validation error containing every issue found.
func (b *Builder) Build(opts ...BuildOption) (*Graph, *ValidationResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buildErr != nil {
		return nil, nil, b.buildErr
	}

	cfg := defaultBuildConfig()
	for _, o := range opts {
		o(&cfg)
	}

	g := &Graph{
		Nodes:                 cloneNodes(b.nodes),
		Edges:                 append([]Edge(nil), b.edges...),
		ExecutionAnnotations:  cloneAnnotations(b.annotations),
		ErrorHandling:         b.errHandler,
		DeadLetterSink:        b.deadLetter,
		frozen:                true,
	}

	result := Validate(g, cfg)
	if !result.Valid {
		return nil, result, &ValidationError{Issues: result.Issues}
	}

	levels, err := topologicalLevels(g)
	if err != nil {
		return nil, result, err
	}
	g.Levels = levels

	return g, result, nil
}

func cloneNodes(in map[NodeID]*Node) map[NodeID]*Node {
	out := make(map[NodeID]*Node, len(in))
	for id, n := range in {
		cp := *n
		out[id] = &cp
	}
	return out
}

func cloneAnnotations(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// topologicalLevels computes Kahn's-algorithm levels over g.Edges,
// returning a structured cycle error if the graph is not a DAG. This lives
// alongside the builder because Build() is the only caller; the validator
// separately performs its own DFS-based cycle *detection* for diagnostics.
func topologicalLevels(g *Graph) ([][]NodeID, error) {
	indegree := make(map[NodeID]int, len(g.Nodes))
	for id := range g.Nodes {
		indegree[id] = 0
	}
	for _, e := range g.Edges {
		indegree[e.To]++
	}

	var queue []NodeID
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sortIDs(queue)

	var levels [][]NodeID
	processed := 0
	for len(queue) > 0 {
		level := append([]NodeID(nil), queue...)
		levels = append(levels, level)

		var next []NodeID
		for _, id := range level {
			processed++
			for _, dep := range g.Dependents(id) {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		sortIDs(next)
		queue = next
	}

	if processed != len(g.Nodes) {
		return nil, pipelineerr.NewValidationError(pipelineerr.CodeCycle, "",
			"cycle detected while computing topological levels", nil)
	}
	return levels, nil
}

func sortIDs(ids []NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
