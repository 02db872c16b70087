package node

// Side identifies which half of a self-join a Tagged value came from.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Tagged wraps a value with the side it arrived on, letting a self-join
// (left and right the same element type) route items by tag instead of
// needing a distinct node shape. This is a library helper over Join, not a
// new node kind (§4.4): a self-join's Combine type-switches or inspects
// Side to tell which physical input produced each Tagged[T].
type Tagged[T any] struct {
	Side  Side
	Value T
}

// TagLeft wraps a value as having arrived on the left input.
func TagLeft[T any](v T) Tagged[T] { return Tagged[T]{Side: SideLeft, Value: v} }

// TagRight wraps a value as having arrived on the right input.
func TagRight[T any](v T) Tagged[T] { return Tagged[T]{Side: SideRight, Value: v} }
