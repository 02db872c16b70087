package pipelinedef

import (
	"fmt"
	"io"

	validator "github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nodeflow/nodeflow/internal/graph"
	"github.com/nodeflow/nodeflow/internal/node"
	pipelineerr "github.com/nodeflow/nodeflow/pkg/errors"
)

var validate = validator.New()

// Parse decodes and validates a pipeline document. It never consults a
// node.Registry, so a Document that names an unregistered node type still
// parses successfully; that failure surfaces from Build instead.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, pipelineerr.NewValidationError(pipelineerr.CodeInvalidDocument, "", "decoding pipeline document", err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, pipelineerr.NewValidationError(pipelineerr.CodeInvalidDocument, "", "pipeline document failed validation", err)
	}
	return &doc, nil
}

// FromYAML decodes a pipeline document from r and translates it into a
// graph.Builder, resolving every node's concrete instance from registry by
// NodeSpec.Type (§4.1 [ADD], §9 construct substitution). The returned
// Builder still needs Build() called on it; FromYAML only wires
// declarations, it does not validate the resulting graph shape (cycles,
// type compatibility, reachability — that's graph.Builder.Build's job).
func FromYAML(r io.Reader, registry *node.Registry) (*graph.Builder, error) {
	doc, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return Build(doc, registry)
}

// Build translates an already-parsed Document into a graph.Builder. Doc is
// assumed to have passed Parse's struct validation; Build still checks
// cross-references (duplicate/unknown node ids) that struct tags can't
// express.
func Build(doc *Document, registry *node.Registry) (*graph.Builder, error) {
	b := graph.NewBuilder()
	ids := make(map[string]graph.NodeID, len(doc.Nodes))

	for _, spec := range doc.Nodes {
		if _, exists := ids[spec.ID]; exists {
			return nil, pipelineerr.NewValidationError(pipelineerr.CodeDuplicateID, spec.ID,
				fmt.Sprintf("node id %q declared more than once", spec.ID), nil)
		}

		kind, err := parseKind(spec.Kind)
		if err != nil {
			return nil, err
		}
		joinKind, err := parseJoinKind(spec.JoinKind, kind)
		if err != nil {
			return nil, err
		}

		id := b.DeclareNode(kind, spec.ID, nil, nil, nil, joinKind)
		ids[spec.ID] = id

		rawConfig := any(nil)
		if !isEmptyYAMLNode(spec.Config) {
			cfg := spec.Config
			rawConfig = &cfg
		}
		built, err := registry.Build(spec.ID, spec.Type, nil, rawConfig)
		if err != nil {
			return nil, err
		}
		runner, ok := built.(node.Runner)
		if !ok {
			return nil, pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidNodeType, spec.ID,
				fmt.Sprintf("registered type %q did not produce a node.Runner", spec.Type), nil)
		}
		b.SetRunner(id, runner)

		if spec.Strategy != nil {
			strat, restartable, err := buildStrategy(spec.Strategy)
			if err != nil {
				return nil, pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidRetryPolicy, spec.ID,
					"building node execution strategy", err)
			}
			b.SetExecutionStrategy(id, strat)
			if restartable {
				nodeID, typeName, cfg := spec.ID, spec.Type, rawConfig
				b.SetRunnerFactory(id, node.RunnerFactory(func() (node.Runner, error) {
					built, err := registry.Build(nodeID, typeName, nil, cfg)
					if err != nil {
						return nil, err
					}
					runner, ok := built.(node.Runner)
					if !ok {
						return nil, pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidNodeType, spec.ID,
							fmt.Sprintf("registered type %q did not produce a node.Runner", typeName), nil)
					}
					return runner, nil
				}))
			}
		}
	}

	for _, e := range doc.Edges {
		from, ok := ids[e.From]
		if !ok {
			return nil, pipelineerr.NewValidationError(pipelineerr.CodeUnknownEdgeEndpoint, e.From,
				fmt.Sprintf("edge references undeclared node %q", e.From), nil)
		}
		to, ok := ids[e.To]
		if !ok {
			return nil, pipelineerr.NewValidationError(pipelineerr.CodeUnknownEdgeEndpoint, e.To,
				fmt.Sprintf("edge references undeclared node %q", e.To), nil)
		}
		port := e.Port
		if e.Secondary && port == "" {
			port = "right"
		}
		b.ConnectNodes(from, to, port, e.Secondary)
	}

	return b, nil
}

func parseKind(s string) (graph.Kind, error) {
	switch s {
	case "source":
		return graph.KindSource, nil
	case "transform":
		return graph.KindTransform, nil
	case "sink":
		return graph.KindSink, nil
	case "join":
		return graph.KindJoin, nil
	default:
		return "", pipelineerr.NewValidationError(pipelineerr.CodeInvalidDocument, "", fmt.Sprintf("unknown node kind %q", s), nil)
	}
}

func parseJoinKind(s string, kind graph.Kind) (graph.JoinKind, error) {
	if kind != graph.KindJoin {
		return "", nil
	}
	switch s {
	case "", "inner":
		return graph.JoinInner, nil
	case "left_outer":
		return graph.JoinLeftOuter, nil
	case "right_outer":
		return graph.JoinRightOuter, nil
	case "full_outer":
		return graph.JoinFullOuter, nil
	default:
		return "", pipelineerr.NewValidationError(pipelineerr.CodeInvalidDocument, "", fmt.Sprintf("unknown join kind %q", s), nil)
	}
}

func isEmptyYAMLNode(n yaml.Node) bool { return n.Kind == 0 }
