package graph

import "fmt"

// TypeInfo is the stable identity of an operator kind.
type TypeInfo struct {
	Name    string
	Version uint64
}

// String implements fmt.Stringer.
func (t TypeInfo) String() string {
	if t.Version == 0 {
		return t.Name
	}
	return fmt.Sprintf("%s.v%d", t.Name, t.Version)
}

// Op is the behaviour of an operator kind, the part of a Node that varies with the operator.
//
// An Op value holds the static configuration of the operator (e.g. the target shape of a Broadcast), and
// it is owned by one Node.
type Op interface {
	// TypeInfo returns the kind identity, used for dispatch and compatibility checks.
	TypeInfo() TypeInfo

	// ValidateAndInferTypes reads the input descriptors of n (Node.InputShape) and sets every output
	// descriptor exactly once with Node.SetOutputType.
	//
	// Failures should be returned with Node.ValidationErrorf.
	ValidateAndInferTypes(n *Node) error

	// CopyWithNewInputs creates a new node of the same kind and configuration, with the given inputs
	// and control dependencies.
	CopyWithNewInputs(inputs []*Output, controlDeps []*Node) (*Node, error)
}

// Adjoints accumulates the deltas (partial derivatives) pushed back by AdjointGenerator implementations.
// It is implemented by the autodiff package.
type Adjoints interface {
	// AddDelta adds delta to the adjoint of x. The descriptor of delta must match the one of x.
	AddDelta(x, delta *Output) error
}

// AdjointGenerator is implemented by ops that can be differentiated.
type AdjointGenerator interface {
	// GenerateAdjoints builds the nodes computing the deltas of the inputs of n, given the deltas of
	// its outputs (one per output), and pushes them with Adjoints.AddDelta.
	GenerateAdjoints(adjoints Adjoints, n *Node, deltas []*Output) error
}

// DefaultValuer is implemented by ops that define the value used for an output's adjoint when none is provided.
type DefaultValuer interface {
	DefaultValue(n *Node, outputIndex int) (*Output, error)
}

// ConstantOp is implemented by ops that represent constants.
type ConstantOp interface {
	IsConstant() bool
}

// OutputOp is implemented by the terminal ops (Result).
type OutputOp interface {
	IsOutput() bool
}

// AutoBroadcastSpec describes the implicit broadcasting rule of an elementwise op.
type AutoBroadcastSpec int

const (
	// AutoBroadcastNone requires the input shapes to be equal.
	AutoBroadcastNone AutoBroadcastSpec = iota

	// AutoBroadcastNumpy broadcasts the inputs with numpy rules, see shapes.BroadcastNumpy.
	AutoBroadcastNumpy
)

// String implements fmt.Stringer.
func (s AutoBroadcastSpec) String() string {
	switch s {
	case AutoBroadcastNone:
		return "none"
	case AutoBroadcastNumpy:
		return "numpy"
	}
	return fmt.Sprintf("AutoBroadcastSpec(%d)", int(s))
}

// Broadcaster is implemented by ops with a configurable implicit broadcasting rule.
type Broadcaster interface {
	AutoBroadcast() AutoBroadcastSpec
}

// InPlacePair declares that an output may reuse the buffer of an input.
// If Destructive, the input's value is overwritten.
type InPlacePair struct {
	Input, Output int
	Destructive   bool
}

// Annotations are back-end hints attached to a node.
type Annotations struct {
	InPlacePairs []InPlacePair
}
