package ops

import (
	"slices"

	"github.com/gomlx/graphir/dtypes"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/optypes"
	"github.com/gomlx/graphir/shapes"
)

// BroadcastOp broadcasts its input to Shape, by creating the new axes listed in Axes.
// The remaining axes of Shape, in order, must match the axes of the input.
type BroadcastOp struct {
	Shape []int
	Axes  []int
}

// Broadcast returns x broadcast to the given dimensions, where axes are the new axes in the output.
// E.g.: Broadcast(x with shape [3], []int{2, 3}, []int{0}) returns a [2, 3] value, with x repeated in both rows.
func Broadcast(x *graph.Output, dimensions []int, axes []int, options ...graph.NodeOption) (*graph.Output, error) {
	return newOutput(&BroadcastOp{Shape: slices.Clone(dimensions), Axes: slices.Clone(axes)}, []*graph.Output{x}, options)
}

// TypeInfo implements graph.Op.
func (b *BroadcastOp) TypeInfo() graph.TypeInfo { return typeInfo(optypes.Broadcast) }

// Attributes implements graph.Attributer.
func (b *BroadcastOp) Attributes() map[string]any {
	return map[string]any{"shape": b.Shape, "broadcast_axes": b.Axes}
}

// ValidateAndInferTypes implements graph.Op.
func (b *BroadcastOp) ValidateAndInferTypes(n *graph.Node) error {
	if n.NumInputs() != 1 {
		return n.ValidationErrorf("Broadcast takes 1 input, got %d", n.NumInputs())
	}
	outputShape, err := shapes.MakeOrError(n.InputDType(0), b.Shape...)
	if err != nil {
		return n.ValidationErrorf("invalid Broadcast target shape: %v", err)
	}
	axes, err := normalizeAxes(b.Axes, outputShape.Rank())
	if err != nil {
		return n.ValidationErrorf("invalid Broadcast axes: %v", err)
	}
	x := n.InputShape(0)
	if x.UnknownRank {
		n.SetOutputType(0, outputShape)
		return nil
	}
	if x.Rank()+len(axes) != outputShape.Rank() {
		return n.ValidationErrorf("Broadcast of input %s to %v with %d new axes: ranks don't match", x, b.Shape, len(axes))
	}
	inputAxis := 0
	for axis, dim := range outputShape.Dimensions {
		if slices.Contains(axes, axis) {
			continue
		}
		xDim := x.Dimensions[inputAxis]
		if xDim != shapes.UnknownDim && dim != shapes.UnknownDim && xDim != dim {
			return n.ValidationErrorf("Broadcast of input %s to %v: input axis %d has dimension %d, output axis %d requires %d",
				x, b.Shape, inputAxis, xDim, axis, dim)
		}
		if dim == shapes.UnknownDim {
			outputShape.Dimensions[axis] = xDim
		}
		inputAxis++
	}
	n.SetOutputType(0, outputShape)
	return nil
}

// CopyWithNewInputs implements graph.Op.
func (b *BroadcastOp) CopyWithNewInputs(inputs []*graph.Output, controlDeps []*graph.Node) (*graph.Node, error) {
	return graph.NewNode(&BroadcastOp{Shape: slices.Clone(b.Shape), Axes: slices.Clone(b.Axes)}, inputs,
		graph.WithControlDeps(controlDeps...))
}

// IsNop implements NopChecker.
func (b *BroadcastOp) IsNop(n *graph.Node) bool {
	return len(b.Axes) == 0 && n.InputShape(0).Equal(n.OutputShape(0))
}

// GenerateAdjoints implements graph.AdjointGenerator: the delta is summed over the broadcast axes.
func (b *BroadcastOp) GenerateAdjoints(adjoints graph.Adjoints, n *graph.Node, deltas []*graph.Output) error {
	delta, err := Sum(deltas[0], b.Axes)
	if err != nil {
		return err
	}
	return adjoints.AddDelta(n.InputValue(0), delta)
}

// SumOp reduces its input by summing over Axes, which are removed from the output.
type SumOp struct {
	Axes []int
}

// Sum returns x summed over the given axes.
func Sum(x *graph.Output, axes []int, options ...graph.NodeOption) (*graph.Output, error) {
	return newOutput(&SumOp{Axes: slices.Clone(axes)}, []*graph.Output{x}, options)
}

// TypeInfo implements graph.Op.
func (s *SumOp) TypeInfo() graph.TypeInfo { return typeInfo(optypes.Sum) }

// Attributes implements graph.Attributer.
func (s *SumOp) Attributes() map[string]any { return map[string]any{"dimensions": s.Axes} }

// ValidateAndInferTypes implements graph.Op.
func (s *SumOp) ValidateAndInferTypes(n *graph.Node) error {
	if n.NumInputs() != 1 {
		return n.ValidationErrorf("Sum takes 1 input, got %d", n.NumInputs())
	}
	x := n.InputShape(0)
	if x.DType == dtypes.Bool {
		return n.ValidationErrorf("Sum requires a numeric input")
	}
	if x.UnknownRank {
		n.SetOutputType(0, x)
		return nil
	}
	axes, err := normalizeAxes(s.Axes, x.Rank())
	if err != nil {
		return n.ValidationErrorf("invalid Sum axes: %v", err)
	}
	dims := make([]int, 0, x.Rank()-len(axes))
	for axis, dim := range x.Dimensions {
		if !slices.Contains(axes, axis) {
			dims = append(dims, dim)
		}
	}
	n.SetOutputType(0, shapes.Shape{DType: x.DType, Dimensions: dims})
	return nil
}

// CopyWithNewInputs implements graph.Op.
func (s *SumOp) CopyWithNewInputs(inputs []*graph.Output, controlDeps []*graph.Node) (*graph.Node, error) {
	return graph.NewNode(&SumOp{Axes: slices.Clone(s.Axes)}, inputs, graph.WithControlDeps(controlDeps...))
}

// IsNop implements NopChecker.
func (s *SumOp) IsNop(*graph.Node) bool { return len(s.Axes) == 0 }

// GenerateAdjoints implements graph.AdjointGenerator: the delta is broadcast back over the reduced axes.
func (s *SumOp) GenerateAdjoints(adjoints graph.Adjoints, n *graph.Node, deltas []*graph.Output) error {
	x := n.InputValue(0)
	if !x.Shape().IsRankStatic() {
		return graph.Errorf(graph.ErrAutodiffUnsupported, n, "Sum adjoint requires an input of known rank, got %s", x.Shape())
	}
	axes, err := normalizeAxes(s.Axes, x.Shape().Rank())
	if err != nil {
		return err
	}
	delta, err := Broadcast(deltas[0], x.Shape().Dimensions, axes)
	if err != nil {
		return err
	}
	return adjoints.AddDelta(x, delta)
}
