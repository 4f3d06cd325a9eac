package ops

import (
	"github.com/gomlx/graphir/dtypes"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/optypes"
	"github.com/gomlx/graphir/shapes"
)

// TopKOp selects the K largest elements along Axis. It has two outputs: the values, and their indices as Int64.
//
// It has no adjoint rule.
type TopKOp struct {
	K, Axis int
}

// TopK returns the node selecting the k largest elements of x along axis: its output 0 holds the values,
// and output 1 the indices.
func TopK(x *graph.Output, k, axis int, options ...graph.NodeOption) (*graph.Node, error) {
	return graph.NewNode(&TopKOp{K: k, Axis: axis}, []*graph.Output{x}, options...)
}

// TypeInfo implements graph.Op.
func (t *TopKOp) TypeInfo() graph.TypeInfo { return typeInfo(optypes.TopK) }

// Attributes implements graph.Attributer.
func (t *TopKOp) Attributes() map[string]any { return map[string]any{"k": t.K, "axis": t.Axis} }

// ValidateAndInferTypes implements graph.Op.
func (t *TopKOp) ValidateAndInferTypes(n *graph.Node) error {
	if n.NumInputs() != 1 {
		return n.ValidationErrorf("TopK takes 1 input, got %d", n.NumInputs())
	}
	if t.K <= 0 {
		return n.ValidationErrorf("TopK k must be positive, got %d", t.K)
	}
	x := n.InputShape(0)
	if x.DType == dtypes.Bool {
		return n.ValidationErrorf("TopK requires a numeric input")
	}
	if x.UnknownRank {
		n.SetOutputType(0, x)
		n.SetOutputType(1, shapes.DynamicRank(dtypes.Int64))
		return nil
	}
	axes, err := normalizeAxes([]int{t.Axis}, x.Rank())
	if err != nil {
		return n.ValidationErrorf("invalid TopK axis: %v", err)
	}
	axis := axes[0]
	if dim := x.Dimensions[axis]; dim != shapes.UnknownDim && dim < t.K {
		return n.ValidationErrorf("TopK k=%d is larger than the dimension %d of axis %d", t.K, dim, axis)
	}
	values := x.Clone()
	values.Dimensions[axis] = t.K
	n.SetOutputType(0, values)
	n.SetOutputType(1, values.WithDType(dtypes.Int64))
	return nil
}

// CopyWithNewInputs implements graph.Op.
func (t *TopKOp) CopyWithNewInputs(inputs []*graph.Output, controlDeps []*graph.Node) (*graph.Node, error) {
	return graph.NewNode(&TopKOp{K: t.K, Axis: t.Axis}, inputs, graph.WithControlDeps(controlDeps...))
}

// DefaultValue implements graph.DefaultValuer: a constant filled with zeros of the output's shape.
func (t *TopKOp) DefaultValue(n *graph.Node, outputIndex int) (*graph.Output, error) {
	shape := n.OutputShape(outputIndex)
	if !shape.IsStatic() {
		return nil, graph.Errorf(graph.ErrAutodiffUnsupported, n, "no default value for dynamic output %d of shape %s", outputIndex, shape)
	}
	return ConstantFilled(shape, 0)
}
