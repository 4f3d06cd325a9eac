package ops

import (
	"slices"

	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/optypes"
	"github.com/gomlx/graphir/shapes"
)

// ReshapeOp transposes its input axes to InputOrder, and then reshapes it to Shape.
// A nil InputOrder is the identity permutation.
type ReshapeOp struct {
	InputOrder []int
	Shape      []int
}

// Reshape returns x with its axes permuted by inputOrder (nil for no permutation) and reshaped to dimensions.
// The total size must be preserved.
func Reshape(x *graph.Output, inputOrder []int, dimensions []int, options ...graph.NodeOption) (*graph.Output, error) {
	return newOutput(&ReshapeOp{InputOrder: slices.Clone(inputOrder), Shape: slices.Clone(dimensions)}, []*graph.Output{x}, options)
}

// TypeInfo implements graph.Op.
func (r *ReshapeOp) TypeInfo() graph.TypeInfo { return typeInfo(optypes.Reshape) }

// Attributes implements graph.Attributer.
func (r *ReshapeOp) Attributes() map[string]any {
	attributes := map[string]any{"shape": r.Shape}
	if r.InputOrder != nil {
		attributes["input_order"] = r.InputOrder
	}
	return attributes
}

func isPermutation(order []int) bool {
	seen := make([]bool, len(order))
	for _, axis := range order {
		if axis < 0 || axis >= len(order) || seen[axis] {
			return false
		}
		seen[axis] = true
	}
	return true
}

func isIdentityOrder(order []int) bool {
	for i, axis := range order {
		if i != axis {
			return false
		}
	}
	return true
}

// ValidateAndInferTypes implements graph.Op.
func (r *ReshapeOp) ValidateAndInferTypes(n *graph.Node) error {
	if n.NumInputs() != 1 {
		return n.ValidationErrorf("Reshape takes 1 input, got %d", n.NumInputs())
	}
	x := n.InputShape(0)
	outputShape, err := shapes.MakeOrError(x.DType, r.Shape...)
	if err != nil {
		return n.ValidationErrorf("invalid Reshape target shape: %v", err)
	}
	if !outputShape.AreDimensionsStatic() {
		return n.ValidationErrorf("Reshape target shape %v must be static", r.Shape)
	}
	if r.InputOrder != nil {
		if !isPermutation(r.InputOrder) {
			return n.ValidationErrorf("Reshape input order %v is not a permutation", r.InputOrder)
		}
		if x.IsRankStatic() && len(r.InputOrder) != x.Rank() {
			return n.ValidationErrorf("Reshape input order %v doesn't match input rank %d", r.InputOrder, x.Rank())
		}
	}
	if x.IsStatic() && x.Size() != outputShape.Size() {
		return n.ValidationErrorf("Reshape of input %s (size %d) to %v (size %d): sizes don't match",
			x, x.Size(), r.Shape, outputShape.Size())
	}
	n.SetOutputType(0, outputShape)
	return nil
}

// CopyWithNewInputs implements graph.Op.
func (r *ReshapeOp) CopyWithNewInputs(inputs []*graph.Output, controlDeps []*graph.Node) (*graph.Node, error) {
	return graph.NewNode(&ReshapeOp{InputOrder: slices.Clone(r.InputOrder), Shape: slices.Clone(r.Shape)}, inputs,
		graph.WithControlDeps(controlDeps...))
}

// IsNop implements NopChecker: no transposition and the same shape.
func (r *ReshapeOp) IsNop(n *graph.Node) bool {
	return isIdentityOrder(r.InputOrder) && n.InputShape(0).Equal(n.OutputShape(0))
}

// GenerateAdjoints implements graph.AdjointGenerator.
//
// The delta is reshaped to the transposed input shape, and then transposed back with the inverse order.
func (r *ReshapeOp) GenerateAdjoints(adjoints graph.Adjoints, n *graph.Node, deltas []*graph.Output) error {
	x := n.InputValue(0)
	if !x.Shape().AreDimensionsStatic() {
		return graph.Errorf(graph.ErrAutodiffUnsupported, n, "Reshape adjoint requires a static input shape, got %s", x.Shape())
	}
	xDims := x.Shape().Dimensions
	if isIdentityOrder(r.InputOrder) {
		delta, err := Reshape(deltas[0], nil, xDims)
		if err != nil {
			return err
		}
		return adjoints.AddDelta(x, delta)
	}
	permuted := make([]int, len(xDims))
	inverse := make([]int, len(xDims))
	for i, axis := range r.InputOrder {
		permuted[i] = xDims[axis]
		inverse[axis] = i
	}
	delta, err := Reshape(deltas[0], nil, permuted)
	if err != nil {
		return err
	}
	delta, err = Reshape(delta, inverse, xDims)
	if err != nil {
		return err
	}
	return adjoints.AddDelta(x, delta)
}

// ReverseOp reverses the order of the elements along Axes.
type ReverseOp struct {
	Axes []int
}

// Reverse returns x with the elements along the given axes in reverse order.
func Reverse(x *graph.Output, axes []int, options ...graph.NodeOption) (*graph.Output, error) {
	return newOutput(&ReverseOp{Axes: slices.Clone(axes)}, []*graph.Output{x}, options)
}

// TypeInfo implements graph.Op.
func (r *ReverseOp) TypeInfo() graph.TypeInfo { return typeInfo(optypes.Reverse) }

// Attributes implements graph.Attributer.
func (r *ReverseOp) Attributes() map[string]any { return map[string]any{"dimensions": r.Axes} }

// ValidateAndInferTypes implements graph.Op.
func (r *ReverseOp) ValidateAndInferTypes(n *graph.Node) error {
	if n.NumInputs() != 1 {
		return n.ValidationErrorf("Reverse takes 1 input, got %d", n.NumInputs())
	}
	x := n.InputShape(0)
	if x.IsRankStatic() {
		if _, err := normalizeAxes(r.Axes, x.Rank()); err != nil {
			return n.ValidationErrorf("invalid Reverse axes: %v", err)
		}
	}
	n.SetOutputType(0, x)
	return nil
}

// CopyWithNewInputs implements graph.Op.
func (r *ReverseOp) CopyWithNewInputs(inputs []*graph.Output, controlDeps []*graph.Node) (*graph.Node, error) {
	return graph.NewNode(&ReverseOp{Axes: slices.Clone(r.Axes)}, inputs, graph.WithControlDeps(controlDeps...))
}

// IsNop implements NopChecker.
func (r *ReverseOp) IsNop(*graph.Node) bool { return len(r.Axes) == 0 }

// GenerateAdjoints implements graph.AdjointGenerator.
func (r *ReverseOp) GenerateAdjoints(adjoints graph.Adjoints, n *graph.Node, deltas []*graph.Output) error {
	delta, err := Reverse(deltas[0], r.Axes)
	if err != nil {
		return err
	}
	return adjoints.AddDelta(n.InputValue(0), delta)
}
