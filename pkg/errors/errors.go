// Package errors provides the engine's structured error taxonomy.
//
// Every engine-produced error carries a stable code, the offending node id
// (when applicable), and wraps its underlying cause so callers can use the
// standard errors.Is/As machinery.
package errors

import (
	"fmt"
)

// Code identifies a stable error class, independent of message wording.
type Code string

const (
	// Validation: malformed graph caught at build time.
	CodeMissingSource       Code = "GRAPH-MissingSource"
	CodeMissingSink         Code = "GRAPH-MissingSink"
	CodeCycle               Code = "GRAPH-Cycle"
	CodeDuplicateID         Code = "GRAPH-DuplicateID"
	CodeDuplicateName       Code = "GRAPH-DuplicateName"
	CodeSelfLoop            Code = "GRAPH-SelfLoop"
	CodeDuplicateEdge       Code = "GRAPH-DuplicateEdge"
	CodeUnreachable         Code = "GRAPH-Unreachable"
	CodeMissingInboundEdge  Code = "GRAPH-MissingInboundEdge"
	CodeTypeMismatch        Code = "GRAPH-TypeMismatch"
	CodeUnknownEdgeEndpoint Code = "GRAPH-UnknownEdgeEndpoint"

	// ConfigurationOrUsage: misuse of the API.
	CodeStrategyOnNonTransform   Code = "CFG-StrategyOnNonTransform"
	CodeUnregisteredTarget       Code = "CFG-UnregisteredTarget"
	CodeInstanceCollision        Code = "CFG-PreconfiguredInstanceCollision"
	CodeNameNotUnique            Code = "CFG-NameNotUnique"
	CodeUnsupportedMergeStrategy Code = "CFG-UnsupportedMergeStrategy"
	CodeBatchingDirectInvoke     Code = "CFG-BatchingNotSupported"
	CodeUnbatchingDirectInvoke   Code = "CFG-UnbatchingNotSupported"
	CodeInvalidErrorHandlerType  Code = "CFG-InvalidErrorHandlerType"
	CodeInvalidRetryPolicy       Code = "CFG-InvalidRetryPolicy"
	CodeSameTypeJoinUntagged     Code = "CFG-SameTypeJoinRequiresTags"
	CodeInvalidNodeType          Code = "CFG-InvalidNodeType"
	CodeInvalidDocument          Code = "CFG-InvalidDocument"

	// Execution: runtime failures.
	CodeRetryLimitExhausted Code = "EXEC-RetryLimitExhausted"
	CodeRestartLimitReached Code = "EXEC-RestartLimitReached"
	CodeNodeFailed          Code = "EXEC-NodeFailed"
	CodePipeWrongType       Code = "EXEC-PipeWrongType"
	CodeOutputNotFound      Code = "EXEC-OutputNotFound"
	CodeCanceled            Code = "EXEC-Canceled"

	// ResourceCapacity.
	CodeDeadLetterQueueFull      Code = "CAP-DeadLetterQueueFull"
	CodeMaterializationCapExceed Code = "CAP-MaterializationCapExceeded"
	CodeDisposalFailed           Code = "CAP-DisposalFailed"

	// Framework-internal: should never surface in a correct program.
	CodeMissingTypeMetadata Code = "INT-MissingTypeMetadata"
	CodeLineageAdapterGone  Code = "INT-LineageAdapterMissing"
)

// Error is the interface implemented by every structured engine error.
type Error interface {
	error
	Code() Code
	NodeID() string
	Unwrap() error
}

// ValidationError reports a malformed graph rejected at build time.
type ValidationError struct {
	ErrCode Code
	Node    string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(code Code, node, message string, err error) error {
	return &ValidationError{ErrCode: code, Node: node, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("validation error [%s] node %q: %s", e.ErrCode, e.Node, e.Message)
	}
	return fmt.Sprintf("validation error [%s]: %s", e.ErrCode, e.Message)
}

func (e *ValidationError) Code() Code     { return e.ErrCode }
func (e *ValidationError) NodeID() string { return e.Node }
func (e *ValidationError) Unwrap() error  { return e.Err }

// ConfigurationError reports misuse of the builder/runner API.
type ConfigurationError struct {
	ErrCode Code
	Node    string
	Message string
	Err     error
}

// NewConfigurationError constructs a ConfigurationError.
func NewConfigurationError(code Code, node, message string, err error) error {
	return &ConfigurationError{ErrCode: code, Node: node, Message: message, Err: err}
}

func (e *ConfigurationError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("configuration error [%s] node %q: %s", e.ErrCode, e.Node, e.Message)
	}
	return fmt.Sprintf("configuration error [%s]: %s", e.ErrCode, e.Message)
}

func (e *ConfigurationError) Code() Code     { return e.ErrCode }
func (e *ConfigurationError) NodeID() string { return e.Node }
func (e *ConfigurationError) Unwrap() error  { return e.Err }

// ExecutionError reports a runtime failure while running the pipeline.
type ExecutionError struct {
	ErrCode Code
	Node    string
	Message string
	Err     error
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(code Code, node, message string, err error) error {
	return &ExecutionError{ErrCode: code, Node: node, Message: message, Err: err}
}

func (e *ExecutionError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Node != "" {
		return fmt.Sprintf("execution error [%s] node %q: %s", e.ErrCode, e.Node, msg)
	}
	return fmt.Sprintf("execution error [%s]: %s", e.ErrCode, msg)
}

func (e *ExecutionError) Code() Code     { return e.ErrCode }
func (e *ExecutionError) NodeID() string { return e.Node }
func (e *ExecutionError) Unwrap() error  { return e.Err }

// ResourceCapacityError reports a bounded resource being exhausted.
type ResourceCapacityError struct {
	ErrCode Code
	Node    string
	Message string
	Err     error
}

// NewResourceCapacityError constructs a ResourceCapacityError.
func NewResourceCapacityError(code Code, node, message string, err error) error {
	return &ResourceCapacityError{ErrCode: code, Node: node, Message: message, Err: err}
}

func (e *ResourceCapacityError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("resource capacity error [%s] node %q: %s", e.ErrCode, e.Node, e.Message)
	}
	return fmt.Sprintf("resource capacity error [%s]: %s", e.ErrCode, e.Message)
}

func (e *ResourceCapacityError) Code() Code     { return e.ErrCode }
func (e *ResourceCapacityError) NodeID() string { return e.Node }
func (e *ResourceCapacityError) Unwrap() error  { return e.Err }

// InternalError indicates a framework bug rather than user error.
type InternalError struct {
	ErrCode Code
	Node    string
	Message string
	Err     error
}

// NewInternalError constructs an InternalError.
func NewInternalError(code Code, node, message string, err error) error {
	return &InternalError{ErrCode: code, Node: node, Message: message, Err: err}
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error [%s]: %s (this indicates a bug)", e.ErrCode, e.Message)
}

func (e *InternalError) Code() Code     { return e.ErrCode }
func (e *InternalError) NodeID() string { return e.Node }
func (e *InternalError) Unwrap() error  { return e.Err }

// As attempts to convert any error into the structured Error interface,
// walking the Unwrap chain.
func As(err error) (Error, bool) {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(Error); ok {
			return e, true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// AggregateError collects independently-failed operations (disposals, in
// particular) without aborting the remaining work.
type AggregateError struct {
	Errors []error
}

// NewAggregateError returns nil if errs has no non-nil entries, otherwise an
// *AggregateError wrapping them in order.
func NewAggregateError(errs []error) error {
	filtered := make([]error, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return &AggregateError{Errors: filtered}
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d errors occurred:", len(e.Errors))
	for _, err := range e.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Unwrap exposes the collected errors for errors.Is/As multi-error chains.
func (e *AggregateError) Unwrap() []error { return e.Errors }
