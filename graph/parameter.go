package graph

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/graphir/optypes"
	"github.com/gomlx/graphir/shapes"
)

// ParameterType is the TypeInfo of Parameter nodes.
var ParameterType = TypeInfo{Name: optypes.Parameter.Name()}

func init() {
	RegisterOp(ParameterType)
	RegisterOp(ResultType)
}

// ParameterOp is the op of a function input. Its only output has the configured descriptor.
type ParameterOp struct {
	Shape shapes.Shape
}

// NewParameter creates a new Parameter node with the given descriptor, which may be partially dynamic.
func NewParameter(shape shapes.Shape, options ...NodeOption) *Node {
	n, err := NewNode(&ParameterOp{Shape: shape.Clone()}, nil, options...)
	if err != nil {
		exceptions.Panicf("graph.NewParameter(%s): %+v", shape, err)
	}
	return n
}

// TypeInfo implements Op.
func (p *ParameterOp) TypeInfo() TypeInfo { return ParameterType }

// ValidateAndInferTypes implements Op.
func (p *ParameterOp) ValidateAndInferTypes(n *Node) error {
	if n.NumInputs() != 0 {
		return n.ValidationErrorf("Parameter takes no inputs, got %d", n.NumInputs())
	}
	n.SetOutputType(0, p.Shape)
	return nil
}

// CopyWithNewInputs implements Op.
func (p *ParameterOp) CopyWithNewInputs(inputs []*Output, controlDeps []*Node) (*Node, error) {
	if len(inputs) != 0 {
		return nil, Errorf(ErrStructural, nil, "Parameter.CopyWithNewInputs() given %d inputs, expected none", len(inputs))
	}
	return NewNode(&ParameterOp{Shape: p.Shape.Clone()}, nil, WithControlDeps(controlDeps...))
}
