package retry

import "context"

// NodeErrorDecision is the action a NodeErrorHandler requests after an
// item-level failure (§4.6).
type NodeErrorDecision int

const (
	// Retry re-executes the item after the owning strategy's Policy delay.
	Retry NodeErrorDecision = iota
	// Skip drops the item; no warning or event is emitted for it.
	Skip
	// DeadLetter hands the item to the pipeline's dead-letter sink.
	DeadLetter
	// Redirect is handled exactly like DeadLetter; there is no separate
	// redirect target.
	Redirect
	// Fail propagates the error to the pipeline error handler.
	Fail
)

func (d NodeErrorDecision) String() string {
	switch d {
	case Retry:
		return "retry"
	case Skip:
		return "skip"
	case DeadLetter:
		return "dead_letter"
	case Redirect:
		return "redirect"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// NodeErrorHandler decides what to do with an item that failed inside a
// transform's ExecuteItem. attempt is 1 on the first failure.
type NodeErrorHandler[TIn any] interface {
	HandleItemError(ctx context.Context, item TIn, err error, attempt int) NodeErrorDecision
}

// HandlerName identifies a NodeErrorHandler in diagnostics and satisfies
// graph.ErrorHandler so it can be attached via Builder.WithErrorHandler.
type HandlerName interface {
	HandlerName() string
}

// PipelineErrorDecision is the action a PipelineErrorHandler requests after
// a node-level (non-item) failure.
type PipelineErrorDecision int

const (
	// ContinueWithoutNode removes the failed node from the graph for the
	// remainder of the run; its downstream sees end-of-stream on that edge.
	ContinueWithoutNode PipelineErrorDecision = iota
	// RestartNode triggers the restart protocol (§4.7): requires a
	// Resilient strategy on the node with maxRestartAttempts > 0.
	RestartNode
	// FailPipeline aborts the whole run.
	FailPipeline
)

func (d PipelineErrorDecision) String() string {
	switch d {
	case ContinueWithoutNode:
		return "continue_without_node"
	case RestartNode:
		return "restart_node"
	case FailPipeline:
		return "fail_pipeline"
	default:
		return "unknown"
	}
}

// PipelineErrorHandler decides what to do when a node fails outside of a
// single item's processing (acquiring input, producing output, disposing).
type PipelineErrorHandler interface {
	HandlerName() string
	HandlePipelineError(ctx context.Context, nodeID string, err error) PipelineErrorDecision
}
