// Package pipelinedef decodes a declarative pipeline document (a YAML file)
// into a *graph.Builder, resolving each node's concrete instance from a
// node.Registry by type name — the construct-substitution on-ramp
// cmd/pipelinectl's "run"/"validate"/"plan" subcommands use to turn a YAML
// file on disk into a running pipeline without the caller writing any Go.
//
// It lives outside internal/graph because internal/node already imports
// internal/graph (node.Join's Kind returns a graph.JoinKind); a
// Document-to-Builder translator that also needs node.Registry
// would otherwise close that import cycle.
package pipelinedef

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Document is the top-level shape of a pipeline definition file, grounded on
// Streamy's config.Config (internal/config/types.go): a version marker, a
// human name, then the node and edge declarations that become Builder
// calls.
type Document struct {
	Version string     `yaml:"version" validate:"required"`
	Name    string     `yaml:"name" validate:"required,min=1,max=200"`
	Nodes   []NodeSpec `yaml:"nodes" validate:"required,min=1,dive"`
	Edges   []EdgeSpec `yaml:"edges" validate:"required,min=1,dive"`
}

// NodeSpec declares one node: its graph shape (Kind/JoinKind) plus the
// registry type name and opaque Config blob construct substitution resolves
// at Build time (§9).
type NodeSpec struct {
	ID       string        `yaml:"id" validate:"required"`
	Kind     string        `yaml:"kind" validate:"required,oneof=source transform sink join"`
	Type     string        `yaml:"type" validate:"required"`
	JoinKind string        `yaml:"join_kind,omitempty" validate:"omitempty,oneof=inner left_outer right_outer full_outer"`
	Strategy *StrategySpec `yaml:"strategy,omitempty"`
	Config   yaml.Node     `yaml:"config,omitempty"`
}

// EdgeSpec declares one edge between two already-declared node ids.
// Secondary marks a join's right-hand input (§4.4); it must agree with
// Port == "right".
type EdgeSpec struct {
	From      string `yaml:"from" validate:"required"`
	To        string `yaml:"to" validate:"required"`
	Port      string `yaml:"port,omitempty" validate:"omitempty,oneof=left right"`
	Secondary bool   `yaml:"secondary,omitempty"`
}

// StrategySpec selects and configures a transform node's execution
// strategy (§4.5/§4.6). Exactly one of Parallel/Resilient is consulted,
// chosen by Kind.
type StrategySpec struct {
	Kind      string         `yaml:"kind" validate:"required,oneof=sequential parallel resilient"`
	Parallel  *ParallelSpec  `yaml:"parallel,omitempty"`
	Resilient *ResilientSpec `yaml:"resilient,omitempty"`
}

// ParallelSpec mirrors strategy.ParallelOptions. Preset picks the starting
// options (General/CpuBound/IoBound/NetworkBound, §4.5; empty means
// General); each of Workers/QueueDepth/QueuePolicy/BufferCapacity that is
// set then overrides the preset's value.
type ParallelSpec struct {
	Preset           string `yaml:"preset,omitempty" validate:"omitempty,oneof=general cpu_bound io_bound network_bound"`
	Workers          int    `yaml:"workers,omitempty" validate:"omitempty,min=1"`
	QueueDepth       int    `yaml:"queue_depth,omitempty" validate:"omitempty,min=0"`
	QueuePolicy      string `yaml:"queue_policy,omitempty" validate:"omitempty,oneof=block drop_oldest drop_newest"`
	BufferCapacity   int    `yaml:"buffer_capacity,omitempty" validate:"omitempty,min=1"`
	PreserveOrdering bool   `yaml:"preserve_ordering,omitempty"`
}

// ResilientSpec mirrors retry.Policy plus the restart/materialization
// limits strategy.NewResilient validates.
type ResilientSpec struct {
	Wraps                string        `yaml:"wraps,omitempty" validate:"omitempty,oneof=sequential parallel"`
	Backoff              string        `yaml:"backoff" validate:"required,oneof=fixed linear exponential"`
	BaseDelay            time.Duration `yaml:"base_delay" validate:"required,gt=0"`
	Increment            time.Duration `yaml:"increment,omitempty"`
	Multiplier           float64       `yaml:"multiplier,omitempty"`
	MaxDelay             time.Duration `yaml:"max_delay" validate:"required,gtefield=BaseDelay"`
	Jitter               string        `yaml:"jitter,omitempty" validate:"omitempty,oneof=none full equal decorrelated"`
	MaxAttempts          int           `yaml:"max_attempts" validate:"required,min=1"`
	MaxRestartAttempts   int           `yaml:"max_restart_attempts" validate:"required,min=1"`
	MaxMaterializedItems int           `yaml:"max_materialized_items,omitempty" validate:"omitempty,min=0"`
}
