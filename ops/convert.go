package ops

import (
	"github.com/gomlx/graphir/dtypes"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/optypes"
)

// ConvertOp converts the element type of its input.
type ConvertOp struct {
	DType dtypes.DType
}

// Convert returns x converted to dtype.
func Convert(x *graph.Output, dtype dtypes.DType, options ...graph.NodeOption) (*graph.Output, error) {
	return newOutput(&ConvertOp{DType: dtype}, []*graph.Output{x}, options)
}

// TypeInfo implements graph.Op.
func (c *ConvertOp) TypeInfo() graph.TypeInfo { return typeInfo(optypes.Convert) }

// Attributes implements graph.Attributer.
func (c *ConvertOp) Attributes() map[string]any { return map[string]any{"dtype": c.DType} }

// ValidateAndInferTypes implements graph.Op.
func (c *ConvertOp) ValidateAndInferTypes(n *graph.Node) error {
	if n.NumInputs() != 1 {
		return n.ValidationErrorf("Convert takes 1 input, got %d", n.NumInputs())
	}
	if !c.DType.IsStatic() {
		return n.ValidationErrorf("Convert target dtype must be known")
	}
	n.SetOutputType(0, n.InputShape(0).WithDType(c.DType))
	return nil
}

// CopyWithNewInputs implements graph.Op.
func (c *ConvertOp) CopyWithNewInputs(inputs []*graph.Output, controlDeps []*graph.Node) (*graph.Node, error) {
	return graph.NewNode(&ConvertOp{DType: c.DType}, inputs, graph.WithControlDeps(controlDeps...))
}

// IsNop implements NopChecker: converting to the same dtype does nothing.
func (c *ConvertOp) IsNop(n *graph.Node) bool {
	return n.InputDType(0) == c.DType
}

// GenerateAdjoints implements graph.AdjointGenerator. Deltas flowing into non-float values are dropped.
func (c *ConvertOp) GenerateAdjoints(adjoints graph.Adjoints, n *graph.Node, deltas []*graph.Output) error {
	x := n.InputValue(0)
	if !x.DType().IsFloat() && !x.DType().IsComplex() {
		return nil
	}
	delta, err := Convert(deltas[0], x.DType())
	if err != nil {
		return err
	}
	return adjoints.AddDelta(x, delta)
}
