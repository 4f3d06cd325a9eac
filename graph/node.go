package graph

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/gomlx/graphir/dtypes"
	"github.com/gomlx/graphir/shapes"
	"github.com/pkg/errors"
)

// NodeState is the inference state of a Node.
type NodeState int

//go:generate go tool enumer -type NodeState -trimprefix State node.go

const (
	// StateConstructed is the state of a node whose outputs were not inferred yet.
	StateConstructed NodeState = iota

	// StateValidated means the output descriptors are up-to-date with the inputs.
	StateValidated

	// StateStale means an input changed and the node is waiting to be re-inferred.
	// It is never observable outside the graph package.
	StateStale

	// StateErased is the final state of a node disconnected by Erase. It must not be used anymore.
	StateErased
)

// nextNodeID is the only process-wide mutable state of the graph package, other than the op registry.
var nextNodeID atomic.Int64

// Node is a vertex of the graph: one operation.
//
// A Node owns its inputs (edges to the producing outputs) and its outputs (with their descriptors and
// the list of consuming inputs). It's created with NewNode, and once created its inputs can only be changed
// through Input.ReplaceSourceOutput or the surgery primitives, which keep the edges consistent
// and the descriptors up-to-date.
type Node struct {
	id           int64
	op           Op
	friendlyName string
	placement    string
	state        NodeState

	inputs  []*Input
	outputs []*Output

	controlDeps       []*Node
	controlDependents []*Node

	provenance  map[string]struct{}
	annotations Annotations
}

// NewNode creates a node for the op with the given inputs, and runs the op's type inference.
//
// If inference fails, the node is disconnected from its inputs and the error is returned.
func NewNode(op Op, inputs []*Output, options ...NodeOption) (*Node, error) {
	if op == nil {
		return nil, Errorf(ErrStructural, nil, "NewNode() given a nil op")
	}
	for i, input := range inputs {
		if input == nil {
			return nil, Errorf(ErrStructural, nil, "NewNode(%s) input #%d is nil", op.TypeInfo(), i)
		}
	}
	var cfg nodeConfig
	for _, option := range options {
		option(&cfg)
	}

	n := &Node{
		id:           nextNodeID.Add(1),
		op:           op,
		friendlyName: cfg.friendlyName,
		placement:    cfg.placement,
		state:        StateConstructed,
	}
	if cfg.annotations != nil {
		n.annotations = *cfg.annotations
	}
	n.inputs = make([]*Input, len(inputs))
	for i, source := range inputs {
		in := &Input{node: n, index: i, source: source}
		source.addTarget(in)
		n.inputs[i] = in
	}
	if err := n.inferTypes(); err != nil {
		for _, in := range n.inputs {
			in.source.removeTarget(in)
		}
		return nil, err
	}
	for _, dep := range cfg.controlDeps {
		n.AddControlDep(dep)
	}
	n.AddProvenanceTags(cfg.provenanceTags...)
	return n, nil
}

// inferTypes runs the op's ValidateAndInferTypes and moves the node to StateValidated.
func (n *Node) inferTypes() error {
	if err := n.op.ValidateAndInferTypes(n); err != nil {
		return errors.WithMessagef(err, "failed inference of %s", n)
	}
	n.state = StateValidated
	return nil
}

// Revalidate re-runs type inference on the node, and on every downstream node whose inputs change as a consequence.
//
// If it fails, every descriptor is restored to its previous value.
func (n *Node) Revalidate() error {
	m := &mutation{}
	m.touch(n)
	return m.commit()
}

// ID is a process-wide unique identifier of the node, increasing with creation order.
func (n *Node) ID() int64 { return n.id }

// Name returns the stable name of the node, e.g.: "Add_12".
func (n *Node) Name() string {
	return fmt.Sprintf("%s_%d", n.op.TypeInfo().Name, n.id)
}

// FriendlyName returns the name set by the user, or Name if none was set.
func (n *Node) FriendlyName() string {
	if n.friendlyName == "" {
		return n.Name()
	}
	return n.friendlyName
}

// HasFriendlyName returns whether a friendly name was explicitly set.
func (n *Node) HasFriendlyName() bool { return n.friendlyName != "" }

// SetFriendlyName sets the user-facing name of the node.
func (n *Node) SetFriendlyName(name string) { n.friendlyName = name }

// String implements fmt.Stringer.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.friendlyName != "" {
		return fmt.Sprintf("%s[%s]", n.Name(), n.friendlyName)
	}
	return n.Name()
}

// Op returns the op of the node.
func (n *Node) Op() Op { return n.op }

// TypeInfo returns the identity of the node's op.
func (n *Node) TypeInfo() TypeInfo { return n.op.TypeInfo() }

// State returns the inference state of the node.
func (n *Node) State() NodeState { return n.state }

// NumInputs returns the number of inputs of the node.
func (n *Node) NumInputs() int { return len(n.inputs) }

// Input returns the i-th input edge.
func (n *Node) Input(i int) *Input { return n.inputs[i] }

// Inputs returns the input edges, in order.
func (n *Node) Inputs() []*Input { return slices.Clone(n.inputs) }

// InputValue returns the output feeding the i-th input.
func (n *Node) InputValue(i int) *Output { return n.inputs[i].source }

// InputValues returns the outputs feeding each of the inputs, in order.
func (n *Node) InputValues() []*Output {
	values := make([]*Output, len(n.inputs))
	for i, in := range n.inputs {
		values[i] = in.source
	}
	return values
}

// InputShape returns the descriptor of the i-th input.
func (n *Node) InputShape(i int) shapes.Shape { return n.inputs[i].source.shape }

// InputDType returns the element type of the i-th input.
func (n *Node) InputDType(i int) dtypes.DType { return n.inputs[i].source.shape.DType }

// NumOutputs returns the number of outputs of the node.
func (n *Node) NumOutputs() int { return len(n.outputs) }

// Output returns the i-th output.
func (n *Node) Output(i int) *Output { return n.outputs[i] }

// Outputs returns the outputs of the node, in order.
func (n *Node) Outputs() []*Output { return slices.Clone(n.outputs) }

// OutputShape returns the descriptor of the i-th output.
func (n *Node) OutputShape(i int) shapes.Shape { return n.outputs[i].shape }

// SetOutputType sets the descriptor of the i-th output, creating the outputs up to i if needed.
// It should only be called from Op.ValidateAndInferTypes.
func (n *Node) SetOutputType(i int, shape shapes.Shape) {
	for len(n.outputs) <= i {
		n.outputs = append(n.outputs, &Output{node: n, index: len(n.outputs), shape: shapes.Dynamic})
	}
	n.outputs[i].shape = shape.Clone()
}

// Users returns the nodes consuming any of the outputs of n, without repetitions and in order of the edges.
// Control dependents are not included.
func (n *Node) Users() []*Node {
	var users []*Node
	seen := make(map[*Node]struct{})
	for _, output := range n.outputs {
		for _, in := range output.targets {
			if _, found := seen[in.node]; !found {
				seen[in.node] = struct{}{}
				users = append(users, in.node)
			}
		}
	}
	return users
}

// IsConstant returns whether the op is a constant.
func (n *Node) IsConstant() bool {
	c, ok := n.op.(ConstantOp)
	return ok && c.IsConstant()
}

// IsOutput returns whether the node is a terminal node (a Result).
func (n *Node) IsOutput() bool {
	o, ok := n.op.(OutputOp)
	return ok && o.IsOutput()
}

// IsParameter returns whether the node is a Parameter.
func (n *Node) IsParameter() bool {
	_, ok := n.op.(*ParameterOp)
	return ok
}

// Placement returns the placement (e.g.: the device) assigned to the node.
func (n *Node) Placement() string { return n.placement }

// SetPlacement sets the placement of the node.
func (n *Node) SetPlacement(placement string) { n.placement = placement }

// Annotations returns the back-end annotations of the node.
func (n *Node) Annotations() Annotations { return n.annotations }

// SetAnnotations replaces the back-end annotations of the node.
func (n *Node) SetAnnotations(annotations Annotations) { n.annotations = annotations }

// ControlDeps returns the nodes n must run after, without a data dependency.
func (n *Node) ControlDeps() []*Node { return slices.Clone(n.controlDeps) }

// ControlDependents returns the nodes that have n as a control dependency.
func (n *Node) ControlDependents() []*Node { return slices.Clone(n.controlDependents) }

// AddControlDep makes n run after dep. It's a no-op if dep is already a control dependency.
func (n *Node) AddControlDep(dep *Node) {
	if slices.Contains(n.controlDeps, dep) {
		return
	}
	n.controlDeps = append(n.controlDeps, dep)
	dep.controlDependents = append(dep.controlDependents, n)
}

// RemoveControlDep removes dep from the control dependencies of n.
func (n *Node) RemoveControlDep(dep *Node) {
	idx := slices.Index(n.controlDeps, dep)
	if idx < 0 {
		return
	}
	n.controlDeps = slices.Delete(n.controlDeps, idx, idx+1)
	if idx = slices.Index(dep.controlDependents, n); idx >= 0 {
		dep.controlDependents = slices.Delete(dep.controlDependents, idx, idx+1)
	}
}

// AddNodeControlDependents makes every control dependent of source also depend on n.
func (n *Node) AddNodeControlDependents(source *Node) {
	for _, dependent := range slices.Clone(source.controlDependents) {
		if dependent != n {
			dependent.AddControlDep(n)
		}
	}
}

// ClearControlDependents removes n from the control dependencies of all its dependents.
func (n *Node) ClearControlDependents() {
	for _, dependent := range slices.Clone(n.controlDependents) {
		dependent.RemoveControlDep(n)
	}
}

// ProvenanceTags returns the provenance tags of the node, sorted.
func (n *Node) ProvenanceTags() []string {
	tags := make([]string, 0, len(n.provenance))
	for tag := range n.provenance {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// AddProvenanceTags adds the given tags to the node.
func (n *Node) AddProvenanceTags(tags ...string) {
	if len(tags) == 0 {
		return
	}
	if n.provenance == nil {
		n.provenance = make(map[string]struct{}, len(tags))
	}
	for _, tag := range tags {
		n.provenance[tag] = struct{}{}
	}
}
