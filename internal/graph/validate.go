package graph

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	pipelineerr "github.com/nodeflow/nodeflow/pkg/errors"
)

// Severity is the level of a validation Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Category groups issues for reporting (§4.2).
type Category string

const (
	CategoryUniqueness       Category = "uniqueness"
	CategoryStructure        Category = "structure"
	CategoryReachability     Category = "reachability"
	CategoryCycles           Category = "cycles"
	CategoryTypes            Category = "types"
	CategoryParallelConfig   Category = "parallel_config"
	CategoryResilientConfig  Category = "resilient_config"
)

// Issue is a single finding from one validation rule.
type Issue struct {
	Severity Severity
	Category Category
	Code     pipelineerr.Code
	Message  string
	NodeID   NodeID
}

func (i Issue) String() string {
	if i.NodeID != "" {
		return fmt.Sprintf("[%s/%s] node %q: %s", i.Severity, i.Category, i.NodeID, i.Message)
	}
	return fmt.Sprintf("[%s/%s] %s", i.Severity, i.Category, i.Message)
}

// ValidationResult is the full outcome of Validate: every issue found plus
// whether the graph may proceed to Build (no Error-severity issue).
type ValidationResult struct {
	Issues []Issue
	Valid  bool
}

// ValidationError is returned by Builder.Build when the graph fails
// validation. It implements the pkg/errors.Error interface via Code/NodeID
// by surfacing the first error-severity issue, while Issues carries every
// finding (error and warning) for callers that want the full report.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("graph validation failed:")
	for _, issue := range e.Issues {
		if issue.Severity != SeverityError {
			continue
		}
		b.WriteString("\n  - ")
		b.WriteString(issue.String())
	}
	return b.String()
}

func (e *ValidationError) Code() pipelineerr.Code {
	for _, issue := range e.Issues {
		if issue.Severity == SeverityError {
			return issue.Code
		}
	}
	return ""
}

func (e *ValidationError) NodeID() string {
	for _, issue := range e.Issues {
		if issue.Severity == SeverityError {
			return string(issue.NodeID)
		}
	}
	return ""
}

func (e *ValidationError) Unwrap() error { return nil }

// Rule is one independently evaluable validation check (§4.2).
type Rule struct {
	Name        string
	Core        bool // cannot be disabled
	StopOnError bool
	Check       func(*Graph) []Issue
}

// BuildConfig controls which extended rules run.
type BuildConfig struct {
	DisabledRules map[string]bool
}

// BuildOption mutates a BuildConfig.
type BuildOption func(*BuildConfig)

// WithoutRule disables an extended (non-core) rule by name. Disabling a
// core rule has no effect.
func WithoutRule(name string) BuildOption {
	return func(c *BuildConfig) { c.DisabledRules[name] = true }
}

func defaultBuildConfig() BuildConfig {
	return BuildConfig{DisabledRules: make(map[string]bool)}
}

// Validate runs every enabled rule in order, short-circuiting after a
// StopOnError rule reports an Error-severity issue so downstream rules
// never see a corrupt graph.
func Validate(g *Graph, cfg BuildConfig) *ValidationResult {
	var issues []Issue
	for _, rule := range rules {
		if !rule.Core && cfg.DisabledRules[rule.Name] {
			continue
		}
		found := rule.Check(g)
		issues = append(issues, found...)
		if rule.StopOnError && hasError(found) {
			break
		}
	}
	return &ValidationResult{Issues: issues, Valid: !hasError(issues)}
}

func hasError(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// rules is the ordered rule pipeline. Core rules come first; the duplicate-id,
// duplicate-name, missing-endpoint and cycle rules stop validation on an
// error, so a graph broken in those ways never reaches the extended/type
// rules.
var rules = []Rule{
	{Name: "unique-ids", Core: true, StopOnError: true, Check: ruleUniqueIDs},
	{Name: "unique-names", Core: true, StopOnError: true, Check: ruleUniqueNames},
	{Name: "edge-endpoints-exist", Core: true, StopOnError: true, Check: ruleEdgeEndpointsExist},
	{Name: "at-least-one-source", Core: true, Check: ruleAtLeastOneSource},
	{Name: "reachable-from-source", Core: true, Check: ruleReachableFromSource},
	{Name: "no-cycles", Core: true, StopOnError: true, Check: ruleNoCycles},
	{Name: "at-least-one-sink", Check: ruleAtLeastOneSink},
	{Name: "no-self-loops", Check: ruleNoSelfLoops},
	{Name: "no-duplicate-edges", Check: ruleNoDuplicateEdges},
	{Name: "every-non-source-has-inbound-edge", Check: ruleEveryNonSourceHasInboundEdge},
	{Name: "type-compatibility", Check: ruleTypeCompatibility},
	{Name: "parallel-config-sanity", Check: ruleParallelConfigSanity},
	{Name: "resilient-config-completeness", Check: ruleResilientConfigCompleteness},
}

func ruleUniqueIDs(g *Graph) []Issue {
	seen := make(map[NodeID]bool, len(g.Nodes))
	var issues []Issue
	ids := sortedNodeIDs(g)
	for _, id := range ids {
		if seen[id] {
			issues = append(issues, Issue{Severity: SeverityError, Category: CategoryUniqueness,
				Code: pipelineerr.CodeDuplicateID, NodeID: id, Message: "duplicate node id"})
		}
		seen[id] = true
	}
	return issues
}

func ruleUniqueNames(g *Graph) []Issue {
	seen := make(map[string]NodeID, len(g.Nodes))
	var issues []Issue
	for _, id := range sortedNodeIDs(g) {
		n := g.Nodes[id]
		if other, exists := seen[n.Name]; exists && other != id {
			issues = append(issues, Issue{Severity: SeverityError, Category: CategoryUniqueness,
				Code: pipelineerr.CodeDuplicateName, NodeID: id,
				Message: fmt.Sprintf("name %q already used by node %q", n.Name, other)})
		}
		seen[n.Name] = id
	}
	return issues
}

func ruleEdgeEndpointsExist(g *Graph) []Issue {
	var issues []Issue
	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.From]; !ok {
			issues = append(issues, Issue{Severity: SeverityError, Category: CategoryStructure,
				Code: pipelineerr.CodeUnknownEdgeEndpoint, NodeID: e.From,
				Message: fmt.Sprintf("edge references unknown source node %q", e.From)})
		}
		if _, ok := g.Nodes[e.To]; !ok {
			issues = append(issues, Issue{Severity: SeverityError, Category: CategoryStructure,
				Code: pipelineerr.CodeUnknownEdgeEndpoint, NodeID: e.To,
				Message: fmt.Sprintf("edge references unknown target node %q", e.To)})
		}
	}
	return issues
}

func ruleAtLeastOneSource(g *Graph) []Issue {
	if len(g.Sources()) == 0 {
		return []Issue{{Severity: SeverityError, Category: CategoryStructure,
			Code: pipelineerr.CodeMissingSource, Message: "graph has no source node"}}
	}
	return nil
}

func ruleAtLeastOneSink(g *Graph) []Issue {
	for _, n := range g.Nodes {
		if n.Kind == KindSink {
			return nil
		}
	}
	return []Issue{{Severity: SeverityError, Category: CategoryStructure,
		Code: pipelineerr.CodeMissingSink, Message: "graph has no sink node"}}
}

func ruleReachableFromSource(g *Graph) []Issue {
	reachable := make(map[NodeID]bool, len(g.Nodes))
	var stack []NodeID
	for _, s := range g.Sources() {
		stack = append(stack, s)
		reachable[s] = true
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dep := range g.Dependents(id) {
			if !reachable[dep] {
				reachable[dep] = true
				stack = append(stack, dep)
			}
		}
	}

	var issues []Issue
	for _, id := range sortedNodeIDs(g) {
		if !reachable[id] {
			issues = append(issues, Issue{Severity: SeverityError, Category: CategoryReachability,
				Code: pipelineerr.CodeUnreachable, NodeID: id,
				Message: "node is not reachable from any source"})
		}
	}
	return issues
}

func ruleEveryNonSourceHasInboundEdge(g *Graph) []Issue {
	var issues []Issue
	for _, id := range sortedNodeIDs(g) {
		n := g.Nodes[id]
		if n.Kind == KindSource {
			continue
		}
		if len(g.InboundEdges(id)) == 0 {
			issues = append(issues, Issue{Severity: SeverityError, Category: CategoryStructure,
				Code: pipelineerr.CodeMissingInboundEdge, NodeID: id,
				Message: "non-source node has no inbound edge"})
		}
	}
	return issues
}

func ruleNoSelfLoops(g *Graph) []Issue {
	var issues []Issue
	for _, e := range g.Edges {
		if e.From == e.To {
			issues = append(issues, Issue{Severity: SeverityError, Category: CategoryStructure,
				Code: pipelineerr.CodeSelfLoop, NodeID: e.From, Message: "self-loop is forbidden"})
		}
	}
	return issues
}

func ruleNoDuplicateEdges(g *Graph) []Issue {
	seen := make(map[[4]string]bool, len(g.Edges))
	var issues []Issue
	for _, e := range g.Edges {
		key := e.key()
		if seen[key] {
			issues = append(issues, Issue{Severity: SeverityError, Category: CategoryStructure,
				Code: pipelineerr.CodeDuplicateEdge, NodeID: e.To,
				Message: fmt.Sprintf("duplicate edge %s -> %s", e.From, e.To)})
		}
		seen[key] = true
	}
	return issues
}

// ruleNoCycles runs classical white/grey/black DFS and reports the chain
// from the first re-entered node back to itself.
func ruleNoCycles(g *Graph) []Issue {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[NodeID]int, len(g.Nodes))
	for id := range g.Nodes {
		color[id] = white
	}

	var cyclePath []NodeID
	var cycleFound bool

	var visit func(NodeID) bool
	visit = func(id NodeID) bool {
		color[id] = grey
		cyclePath = append(cyclePath, id)

		for _, dep := range g.Dependents(id) {
			switch color[dep] {
			case white:
				if visit(dep) {
					return true
				}
			case grey:
				// Re-entered a grey node: the cycle is the suffix of
				// cyclePath from dep's first occurrence back to itself.
				idx := indexOf(cyclePath, dep)
				chain := append([]NodeID{}, cyclePath[idx:]...)
				chain = append(chain, dep)
				cyclePath = chain
				cycleFound = true
				return true
			}
		}

		color[id] = black
		cyclePath = cyclePath[:len(cyclePath)-1]
		return false
	}

	for _, id := range sortedNodeIDs(g) {
		if color[id] == white {
			if visit(id) {
				break
			}
		}
	}

	if !cycleFound {
		return nil
	}

	parts := make([]string, len(cyclePath))
	for i, id := range cyclePath {
		parts[i] = string(id)
	}
	return []Issue{{Severity: SeverityError, Category: CategoryCycles, Code: pipelineerr.CodeCycle,
		Message: fmt.Sprintf("cycle detected: %s", strings.Join(parts, " -> "))}}
}

func indexOf(ids []NodeID, target NodeID) int {
	for i, id := range ids {
		if id == target {
			return i
		}
	}
	return -1
}

// ruleTypeCompatibility checks that each edge's source output type is
// assignable to the target's primary input type. For join targets only the
// primary (left) input is checked here; the secondary type is checked at
// compile time by the generic ConnectRight helper (§4.2, §9 open question 3).
func ruleTypeCompatibility(g *Graph) []Issue {
	var issues []Issue
	for _, e := range g.Edges {
		if e.Secondary {
			continue
		}
		src, ok := g.Nodes[e.From]
		if !ok {
			continue
		}
		dst, ok := g.Nodes[e.To]
		if !ok {
			continue
		}
		if src.OutputType == nil || dst.InputType == nil {
			continue
		}
		if !isAssignable(dst.InputType, src.OutputType) {
			issues = append(issues, Issue{Severity: SeverityError, Category: CategoryTypes,
				Code: pipelineerr.CodeTypeMismatch, NodeID: e.To,
				Message: fmt.Sprintf("edge %s -> %s: output type %s is not assignable to input type %s",
					e.From, e.To, src.OutputType, dst.InputType)})
		}
	}
	return issues
}

// isAssignable mirrors the "isAssignableFrom" predicate called for by the
// generic-variance construct substitution (§9): source must be usable
// wherever target is expected.
func isAssignable(target, source reflect.Type) bool {
	if target == source {
		return true
	}
	return source.AssignableTo(target)
}

func sortedNodeIDs(g *Graph) []NodeID {
	ids := make([]NodeID, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
