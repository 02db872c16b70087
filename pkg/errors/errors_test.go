package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidationErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("unexpected token")
	err := NewValidationError(CodeCycle, "node-a", "cycle detected", underlying)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, CodeCycle, validationErr.Code())
	require.Equal(t, "node-a", validationErr.NodeID())
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "cycle detected")
}

func TestConfigurationErrorIncludesNode(t *testing.T) {
	t.Parallel()

	err := NewConfigurationError(CodeNameNotUnique, "fetch", "duplicate node name", nil)

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
	require.Equal(t, "fetch", configErr.NodeID())
	require.Contains(t, err.Error(), "duplicate node name")
}

func TestExecutionErrorIncludesNodeContext(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("command failed")
	err := NewExecutionError(CodeNodeFailed, "transform-1", "", underlying)

	var executionErr *ExecutionError
	require.ErrorAs(t, err, &executionErr)
	require.Equal(t, "transform-1", executionErr.NodeID())
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "command failed")
}

func TestResourceCapacityErrorMessage(t *testing.T) {
	t.Parallel()

	err := NewResourceCapacityError(CodeMaterializationCapExceed, "resilient-sink", "buffer full", nil)

	var capErr *ResourceCapacityError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, CodeMaterializationCapExceed, capErr.Code())
}

func TestAsWalksUnwrapChain(t *testing.T) {
	t.Parallel()

	base := NewExecutionError(CodeNodeFailed, "n1", "boom", nil)
	wrapped := fmt.Errorf("wrapping: %w", base)

	found, ok := As(wrapped)
	require.True(t, ok)
	require.Equal(t, CodeNodeFailed, found.Code())
}

func TestAggregateErrorCollectsNonNil(t *testing.T) {
	t.Parallel()

	err := NewAggregateError([]error{nil, stdErrors.New("a"), nil, stdErrors.New("b")})
	require.Error(t, err)

	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Errors, 2)
	require.Contains(t, err.Error(), "2 errors occurred")
}

func TestNewAggregateErrorNilWhenEmpty(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewAggregateError(nil))
	require.NoError(t, NewAggregateError([]error{nil, nil}))
}
