package runtime

import (
	"github.com/rs/zerolog"

	"github.com/nodeflow/nodeflow/internal/observability"
)

// NodeStatus reports how a single node's participation in a Run ended.
type NodeStatus string

const (
	StatusSucceeded            NodeStatus = "succeeded"
	StatusContinuedWithoutNode NodeStatus = "continued_without_node"
	StatusRestarted            NodeStatus = "restarted"
	StatusFailed               NodeStatus = "failed"
	StatusCanceled             NodeStatus = "canceled"
)

// NodeResult is one node's outcome within a Run.
type NodeResult struct {
	NodeID       string
	Status       NodeStatus
	Err          error
	RestartCount int
}

// RunOptions configures a single Run.
type RunOptions struct {
	// Params is exposed to every node via Context.Param.
	Params map[string]any
	// Logger is the run-scoped base logger; each node sees it tagged with
	// its own id via Context.Logger. The zero value logs nothing.
	Logger zerolog.Logger
	// FanOutBufferSize bounds each branch's buffered channel when a node's
	// output feeds more than one downstream edge (pipe.Broadcast).
	FanOutBufferSize int
	// Observability resolves the optional node/pipeline metrics and lineage
	// sinks (§4.8). A nil Factory, or a nil field within one, reports
	// nothing for that surface.
	Observability *observability.Factory
}

// RunResult is the aggregate outcome of running a graph once.
type RunResult struct {
	NodeResults map[string]NodeResult
	Err         error
}

func (o RunOptions) fanOutBuffer() int {
	if o.FanOutBufferSize > 0 {
		return o.FanOutBufferSize
	}
	return 16
}
