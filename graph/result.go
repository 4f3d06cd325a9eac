package graph

import "github.com/gomlx/graphir/optypes"

// ResultType is the TypeInfo of Result nodes.
var ResultType = TypeInfo{Name: optypes.Result.Name()}

// ResultOp is the op of a function output: it forwards its only input.
type ResultOp struct{}

// NewResult creates a Result node for the given value.
func NewResult(value *Output, options ...NodeOption) (*Node, error) {
	return NewNode(&ResultOp{}, []*Output{value}, options...)
}

// TypeInfo implements Op.
func (r *ResultOp) TypeInfo() TypeInfo { return ResultType }

// IsOutput implements OutputOp.
func (r *ResultOp) IsOutput() bool { return true }

// ValidateAndInferTypes implements Op.
func (r *ResultOp) ValidateAndInferTypes(n *Node) error {
	if n.NumInputs() != 1 {
		return n.ValidationErrorf("Result takes exactly one input, got %d", n.NumInputs())
	}
	n.SetOutputType(0, n.InputShape(0))
	return nil
}

// CopyWithNewInputs implements Op.
func (r *ResultOp) CopyWithNewInputs(inputs []*Output, controlDeps []*Node) (*Node, error) {
	return NewNode(&ResultOp{}, inputs, WithControlDeps(controlDeps...))
}

// GenerateAdjoints implements AdjointGenerator: the delta flows unchanged to the input.
func (r *ResultOp) GenerateAdjoints(adjoints Adjoints, n *Node, deltas []*Output) error {
	return adjoints.AddDelta(n.InputValue(0), deltas[0])
}
