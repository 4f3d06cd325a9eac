package ops

import (
	"github.com/gomlx/graphir/dtypes"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/optypes"
	"github.com/gomlx/graphir/shapes"
	"github.com/pkg/errors"
)

// BinaryOp is an elementwise operation over two inputs, with an optional implicit broadcasting rule.
type BinaryOp struct {
	Type      optypes.OpType
	Broadcast graph.AutoBroadcastSpec
}

var (
	arithmeticOps = map[optypes.OpType]bool{
		optypes.Add:      true,
		optypes.Subtract: true,
		optypes.Multiply: true,
		optypes.Divide:   true,
		optypes.Minimum:  true,
		optypes.Maximum:  true,
	}
	comparisonOps = map[optypes.OpType]bool{
		optypes.Less:     true,
		optypes.NotEqual: true,
	}
)

// NewBinary creates a binary elementwise node of the given type and broadcasting rule, and returns its output.
func NewBinary(opType optypes.OpType, broadcast graph.AutoBroadcastSpec, x, y *graph.Output, options ...graph.NodeOption) (*graph.Output, error) {
	if !arithmeticOps[opType] && !comparisonOps[opType] {
		return nil, errors.Errorf("ops.NewBinary(): %s is not a binary elementwise op", opType)
	}
	return newOutput(&BinaryOp{Type: opType, Broadcast: broadcast}, []*graph.Output{x, y}, options)
}

// Add returns x+y. Shapes must match.
func Add(x, y *graph.Output, options ...graph.NodeOption) (*graph.Output, error) {
	return NewBinary(optypes.Add, graph.AutoBroadcastNone, x, y, options...)
}

// Subtract returns x-y. Shapes must match.
func Subtract(x, y *graph.Output, options ...graph.NodeOption) (*graph.Output, error) {
	return NewBinary(optypes.Subtract, graph.AutoBroadcastNone, x, y, options...)
}

// Multiply returns x*y. Shapes must match.
func Multiply(x, y *graph.Output, options ...graph.NodeOption) (*graph.Output, error) {
	return NewBinary(optypes.Multiply, graph.AutoBroadcastNone, x, y, options...)
}

// Divide returns x/y. Shapes must match.
func Divide(x, y *graph.Output, options ...graph.NodeOption) (*graph.Output, error) {
	return NewBinary(optypes.Divide, graph.AutoBroadcastNone, x, y, options...)
}

// Minimum returns min(x, y) elementwise. Shapes must match.
func Minimum(x, y *graph.Output, options ...graph.NodeOption) (*graph.Output, error) {
	return NewBinary(optypes.Minimum, graph.AutoBroadcastNone, x, y, options...)
}

// Maximum returns max(x, y) elementwise. Shapes must match.
func Maximum(x, y *graph.Output, options ...graph.NodeOption) (*graph.Output, error) {
	return NewBinary(optypes.Maximum, graph.AutoBroadcastNone, x, y, options...)
}

// Less returns x<y elementwise, as booleans. Shapes must match.
func Less(x, y *graph.Output, options ...graph.NodeOption) (*graph.Output, error) {
	return NewBinary(optypes.Less, graph.AutoBroadcastNone, x, y, options...)
}

// NotEqual returns x!=y elementwise, as booleans. Shapes must match.
func NotEqual(x, y *graph.Output, options ...graph.NodeOption) (*graph.Output, error) {
	return NewBinary(optypes.NotEqual, graph.AutoBroadcastNone, x, y, options...)
}

// TypeInfo implements graph.Op.
func (b *BinaryOp) TypeInfo() graph.TypeInfo { return typeInfo(b.Type) }

// AutoBroadcast implements graph.Broadcaster.
func (b *BinaryOp) AutoBroadcast() graph.AutoBroadcastSpec { return b.Broadcast }

// Attributes implements graph.Attributer.
func (b *BinaryOp) Attributes() map[string]any {
	attributes := map[string]any{}
	if b.Broadcast != graph.AutoBroadcastNone {
		attributes["broadcast"] = b.Broadcast.String()
	}
	switch b.Type {
	case optypes.Less:
		attributes["comparison_direction"] = "LT"
	case optypes.NotEqual:
		attributes["comparison_direction"] = "NE"
	default:
	}
	return attributes
}

// ValidateAndInferTypes implements graph.Op.
func (b *BinaryOp) ValidateAndInferTypes(n *graph.Node) error {
	if n.NumInputs() != 2 {
		return n.ValidationErrorf("%s takes 2 inputs, got %d", b.Type, n.NumInputs())
	}
	x, y := n.InputShape(0), n.InputShape(1)
	dtype, err := dtypes.Merge(x.DType, y.DType)
	if err != nil {
		return n.ValidationErrorf("arguments do not have the same element type: %v", err)
	}
	if arithmeticOps[b.Type] && dtype == dtypes.Bool {
		return n.ValidationErrorf("arguments cannot have boolean element type for arithmetic op %s", b.Type)
	}

	var shape shapes.Shape
	switch b.Broadcast {
	case graph.AutoBroadcastNone:
		shape, err = shapes.Merge(x, y)
		if err != nil {
			return n.ValidationErrorf("argument shapes are inconsistent: %v", err)
		}
	case graph.AutoBroadcastNumpy:
		shape, err = shapes.BroadcastNumpy(x, y)
		if err != nil {
			return n.ValidationErrorf("argument shapes cannot be broadcast: %v", err)
		}
	default:
		return n.ValidationErrorf("unsupported broadcast spec %s", b.Broadcast)
	}
	shape.DType = dtype
	if comparisonOps[b.Type] {
		shape.DType = dtypes.Bool
	}
	n.SetOutputType(0, shape)
	return nil
}

// CopyWithNewInputs implements graph.Op.
func (b *BinaryOp) CopyWithNewInputs(inputs []*graph.Output, controlDeps []*graph.Node) (*graph.Node, error) {
	return graph.NewNode(&BinaryOp{Type: b.Type, Broadcast: b.Broadcast}, inputs, graph.WithControlDeps(controlDeps...))
}

// GenerateAdjoints implements graph.AdjointGenerator.
//
// Only Add can be differentiated under implicit broadcasting. Comparisons have zero gradient.
func (b *BinaryOp) GenerateAdjoints(adjoints graph.Adjoints, n *graph.Node, deltas []*graph.Output) error {
	if comparisonOps[b.Type] {
		return nil
	}
	if b.Broadcast != graph.AutoBroadcastNone && b.Type != optypes.Add {
		return graph.Errorf(graph.ErrAutodiffUnsupported, n, "Autodiff not supported with auto broadcasting")
	}
	rule, found := binaryAdjointRules[b.Type]
	if !found {
		return graph.Errorf(graph.ErrAutodiffUnsupported, n, "no adjoint rule for %s", b.Type)
	}
	return rule(adjoints, n, n.InputValue(0), n.InputValue(1), deltas[0])
}

type binaryAdjointRule func(adjoints graph.Adjoints, n *graph.Node, x, y, delta *graph.Output) error

var binaryAdjointRules map[optypes.OpType]binaryAdjointRule

func init() {
	binaryAdjointRules = map[optypes.OpType]binaryAdjointRule{
		optypes.Add:      addAdjoints,
		optypes.Subtract: subtractAdjoints,
		optypes.Multiply: multiplyAdjoints,
		optypes.Divide:   divideAdjoints,
		optypes.Minimum:  minimumAdjoints,
		optypes.Maximum:  maximumAdjoints,
	}
}

func addAdjoints(adjoints graph.Adjoints, n *graph.Node, x, y, delta *graph.Output) error {
	for _, input := range []*graph.Output{x, y} {
		inputDelta, err := reduceBroadcast(delta, input.Shape())
		if err != nil {
			return graph.Errorf(graph.ErrAutodiffUnsupported, n, "cannot reduce delta %s to input %s: %v", delta.Shape(), input.Shape(), err)
		}
		if err = adjoints.AddDelta(input, inputDelta); err != nil {
			return err
		}
	}
	return nil
}

// reduceBroadcast sums delta over the axes that were broadcast to produce it from a value of the given shape,
// and reshapes the result to that shape.
func reduceBroadcast(delta *graph.Output, shape shapes.Shape) (*graph.Output, error) {
	deltaShape := delta.Shape()
	if equalDims(deltaShape, shape) {
		return delta, nil
	}
	if !shape.AreDimensionsStatic() || !deltaShape.AreDimensionsStatic() {
		return nil, errors.Errorf("dynamic dimensions")
	}
	axes, err := shapes.BroadcastAxes(shape, deltaShape)
	if err != nil {
		return nil, err
	}
	reduced, err := Sum(delta, axes)
	if err != nil {
		return nil, err
	}
	if equalDims(reduced.Shape(), shape) {
		return reduced, nil
	}
	return Reshape(reduced, nil, shape.Dimensions)
}

func equalDims(a, b shapes.Shape) bool {
	if a.UnknownRank || b.UnknownRank || a.Rank() != b.Rank() {
		return false
	}
	for i := range a.Dimensions {
		if a.Dimensions[i] != b.Dimensions[i] {
			return false
		}
	}
	return true
}

func subtractAdjoints(adjoints graph.Adjoints, _ *graph.Node, x, y, delta *graph.Output) error {
	if err := adjoints.AddDelta(x, delta); err != nil {
		return err
	}
	negated, err := Negative(delta)
	if err != nil {
		return err
	}
	return adjoints.AddDelta(y, negated)
}

func multiplyAdjoints(adjoints graph.Adjoints, _ *graph.Node, x, y, delta *graph.Output) error {
	dx, err := Multiply(delta, y)
	if err != nil {
		return err
	}
	if err = adjoints.AddDelta(x, dx); err != nil {
		return err
	}
	dy, err := Multiply(x, delta)
	if err != nil {
		return err
	}
	return adjoints.AddDelta(y, dy)
}

// divideAdjoints: d(x/y)/dx = 1/y and d(x/y)/dy = -(x/y)/y.
func divideAdjoints(adjoints graph.Adjoints, n *graph.Node, x, y, delta *graph.Output) error {
	dx, err := Divide(delta, y)
	if err != nil {
		return err
	}
	if err = adjoints.AddDelta(x, dx); err != nil {
		return err
	}
	negated, err := Negative(delta)
	if err != nil {
		return err
	}
	scaled, err := Multiply(negated, n.Output(0))
	if err != nil {
		return err
	}
	dy, err := Divide(scaled, y)
	if err != nil {
		return err
	}
	return adjoints.AddDelta(y, dy)
}

// maskedDelta returns delta where less(a, b) holds, and 0 elsewhere.
func maskedDelta(delta, a, b *graph.Output) (*graph.Output, error) {
	mask, err := Less(a, b)
	if err != nil {
		return nil, err
	}
	mask, err = Convert(mask, delta.DType())
	if err != nil {
		return nil, err
	}
	return Multiply(delta, mask)
}

func minimumAdjoints(adjoints graph.Adjoints, _ *graph.Node, x, y, delta *graph.Output) error {
	dx, err := maskedDelta(delta, x, y)
	if err != nil {
		return err
	}
	if err = adjoints.AddDelta(x, dx); err != nil {
		return err
	}
	dy, err := maskedDelta(delta, y, x)
	if err != nil {
		return err
	}
	return adjoints.AddDelta(y, dy)
}

func maximumAdjoints(adjoints graph.Adjoints, _ *graph.Node, x, y, delta *graph.Output) error {
	dx, err := maskedDelta(delta, y, x)
	if err != nil {
		return err
	}
	if err = adjoints.AddDelta(x, dx); err != nil {
		return err
	}
	dy, err := maskedDelta(delta, x, y)
	if err != nil {
		return err
	}
	return adjoints.AddDelta(y, dy)
}

// UnaryOp is an elementwise operation over one input: Negative, Sign or Not.
type UnaryOp struct {
	Type optypes.OpType
}

// NewUnary creates a unary elementwise node of the given type, and returns its output.
func NewUnary(opType optypes.OpType, x *graph.Output, options ...graph.NodeOption) (*graph.Output, error) {
	switch opType {
	case optypes.Negative, optypes.Sign, optypes.Not:
	default:
		return nil, errors.Errorf("ops.NewUnary(): %s is not a unary elementwise op", opType)
	}
	return newOutput(&UnaryOp{Type: opType}, []*graph.Output{x}, options)
}

// Negative returns -x.
func Negative(x *graph.Output, options ...graph.NodeOption) (*graph.Output, error) {
	return NewUnary(optypes.Negative, x, options...)
}

// Sign returns -1, 0 or 1 depending on the sign of x.
func Sign(x *graph.Output, options ...graph.NodeOption) (*graph.Output, error) {
	return NewUnary(optypes.Sign, x, options...)
}

// Not returns the logical negation of a boolean x.
func Not(x *graph.Output, options ...graph.NodeOption) (*graph.Output, error) {
	return NewUnary(optypes.Not, x, options...)
}

// TypeInfo implements graph.Op.
func (u *UnaryOp) TypeInfo() graph.TypeInfo { return typeInfo(u.Type) }

// ValidateAndInferTypes implements graph.Op.
func (u *UnaryOp) ValidateAndInferTypes(n *graph.Node) error {
	if n.NumInputs() != 1 {
		return n.ValidationErrorf("%s takes 1 input, got %d", u.Type, n.NumInputs())
	}
	dtype := n.InputDType(0)
	if dtype.IsStatic() {
		if u.Type == optypes.Not && dtype != dtypes.Bool {
			return n.ValidationErrorf("%s requires a boolean input", u.Type)
		}
		if u.Type != optypes.Not && dtype == dtypes.Bool {
			return n.ValidationErrorf("%s requires a numeric input", u.Type)
		}
		if u.Type == optypes.Negative && dtype.IsUnsigned() {
			return n.ValidationErrorf("%s requires a signed input", u.Type)
		}
	}
	n.SetOutputType(0, n.InputShape(0))
	return nil
}

// CopyWithNewInputs implements graph.Op.
func (u *UnaryOp) CopyWithNewInputs(inputs []*graph.Output, controlDeps []*graph.Node) (*graph.Node, error) {
	return graph.NewNode(&UnaryOp{Type: u.Type}, inputs, graph.WithControlDeps(controlDeps...))
}

// GenerateAdjoints implements graph.AdjointGenerator. Sign and Not have zero gradient.
func (u *UnaryOp) GenerateAdjoints(adjoints graph.Adjoints, n *graph.Node, deltas []*graph.Output) error {
	if u.Type != optypes.Negative {
		return nil
	}
	negated, err := Negative(deltas[0])
	if err != nil {
		return err
	}
	return adjoints.AddDelta(n.InputValue(0), negated)
}
