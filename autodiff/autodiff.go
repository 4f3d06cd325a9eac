// Package autodiff implements reverse-mode automatic differentiation over the graph IR.
//
// Given values ys and their seed adjoints cs, New visits the nodes ys depend on in reverse topological order,
// and asks each op (through graph.AdjointGenerator) to build the nodes computing the deltas of its inputs.
// Deltas arriving at the same value from different users are summed.
//
// Nomenclature:
//
//   - "delta": a partial contribution to the adjoint of a value, pushed by one of its users.
//   - "adjoint": the sum of all the deltas of a value, that is, the derivative of the seeds with respect to it.
package autodiff

import (
	"slices"

	"github.com/gomlx/graphir/builder"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/ops"
	"github.com/gomlx/graphir/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Adjoints holds the accumulated adjoints of the values visited during back-propagation.
// It implements graph.Adjoints.
type Adjoints struct {
	deltas map[*graph.Output]*graph.Output
}

// Assert Adjoints implements graph.Adjoints.
var _ graph.Adjoints = (*Adjoints)(nil)

// New back-propagates the seeds cs from the values ys, and returns the accumulated adjoints.
//
// There must be one seed per value, with a matching descriptor. Nodes reached from ys whose ops don't
// implement graph.AdjointGenerator, or that reject their own configuration, make it fail with an error
// of kind graph.ErrAutodiffUnsupported.
func New(ys, cs []*graph.Output) (*Adjoints, error) {
	if len(ys) != len(cs) {
		return nil, errors.Errorf("autodiff.New(): got %d values but %d seeds", len(ys), len(cs))
	}
	a := &Adjoints{deltas: make(map[*graph.Output]*graph.Output)}
	roots := make([]*graph.Node, 0, len(ys))
	for i, y := range ys {
		if err := a.AddDelta(y, cs[i]); err != nil {
			return nil, errors.WithMessagef(err, "autodiff.New(): seed #%d", i)
		}
		roots = append(roots, y.Node())
	}

	var reachable []*graph.Node
	graph.TraverseNodes(roots, func(n *graph.Node) { reachable = append(reachable, n) }, false, nil)
	sorted, err := graph.TopologicalSort(reachable, false)
	if err != nil {
		return nil, err
	}
	for _, n := range slices.Backward(sorted) {
		if err := a.backpropNode(n); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// backpropNode pushes the deltas of the outputs of n to its inputs.
func (a *Adjoints) backpropNode(n *graph.Node) error {
	if n.NumInputs() == 0 {
		// Parameters and constants: nothing to push to.
		return nil
	}
	deltas := make([]*graph.Output, n.NumOutputs())
	var numDeltas int
	for i, output := range n.Outputs() {
		if delta, found := a.deltas[output]; found {
			deltas[i] = delta
			numDeltas++
		}
	}
	if numDeltas == 0 {
		// n doesn't contribute to any of the seeded values.
		return nil
	}

	generator, ok := n.Op().(graph.AdjointGenerator)
	if !ok {
		return graph.Errorf(graph.ErrAutodiffUnsupported, n, "op %s has no adjoint rule", n.TypeInfo())
	}
	for i, delta := range deltas {
		if delta != nil {
			continue
		}
		var err error
		deltas[i], err = defaultDelta(n, i)
		if err != nil {
			return err
		}
	}
	klog.V(3).Infof("autodiff: generating adjoints of %s", n)
	if err := generator.GenerateAdjoints(a, n, deltas); err != nil {
		return errors.WithMessagef(err, "generating adjoints of %s", n)
	}
	return nil
}

// defaultDelta returns the delta used for an output no one pushed a delta to: the op's default value if it
// defines one, zeros otherwise.
func defaultDelta(n *graph.Node, outputIndex int) (*graph.Output, error) {
	if valuer, ok := n.Op().(graph.DefaultValuer); ok {
		return valuer.DefaultValue(n, outputIndex)
	}
	return zerosLike(n.Output(outputIndex))
}

func zerosLike(x *graph.Output) (*graph.Output, error) {
	shape := x.Shape()
	if !shape.IsStatic() {
		return nil, graph.Errorf(graph.ErrAutodiffUnsupported, x.Node(), "cannot create zeros for dynamic value %s of shape %s", x, shape)
	}
	return builder.MakeZero(shape.DType, shape.Dimensions)
}

// AddDelta implements graph.Adjoints: it adds delta to the adjoint of x.
//
// The first delta is stored as is. Further deltas are summed with an Add node.
func (a *Adjoints) AddDelta(x, delta *graph.Output) error {
	if x == nil || delta == nil {
		return graph.Errorf(graph.ErrStructural, nil, "AddDelta() called with a nil value or delta")
	}
	if _, err := shapes.Merge(x.Shape(), delta.Shape()); err != nil {
		return graph.Errorf(graph.ErrStructural, x.Node(), "delta %s doesn't match the value %s: %v", delta.Shape(), x.Shape(), err)
	}
	previous, found := a.deltas[x]
	if !found {
		a.deltas[x] = delta
		return nil
	}
	sum, err := ops.Add(previous, delta)
	if err != nil {
		return err
	}
	a.deltas[x] = sum
	return nil
}

// Delta returns the accumulated adjoint of x, if any delta was pushed to it.
func (a *Adjoints) Delta(x *graph.Output) (*graph.Output, bool) {
	delta, found := a.deltas[x]
	return delta, found
}

// Backprop returns the accumulated adjoint of x, or zeros shaped like x if no delta reached it.
func (a *Adjoints) Backprop(x *graph.Output) (*graph.Output, error) {
	if delta, found := a.deltas[x]; found {
		return delta, nil
	}
	return zerosLike(x)
}

// BackpropFunction returns a new Function computing the adjoints of fn's parameters.
//
// The new function takes fn's parameters followed by one seed parameter per result of fn (shaped as the
// result), and returns one result per parameter of fn, holding its adjoint.
func BackpropFunction(fn *graph.Function) (*graph.Function, error) {
	ys := make([]*graph.Output, fn.NumResults())
	cs := make([]*graph.Output, fn.NumResults())
	parameters := fn.Parameters()
	for i, result := range fn.Results() {
		ys[i] = result.Output(0)
		seed := graph.NewParameter(result.OutputShape(0), graph.WithFriendlyName(result.FriendlyName()+"_adjoint"))
		cs[i] = seed.Output(0)
		parameters = append(parameters, seed)
	}
	adjoints, err := New(ys, cs)
	if err != nil {
		return nil, err
	}
	outputs := make([]*graph.Output, fn.NumParameters())
	for i, parameter := range fn.Parameters() {
		outputs[i], err = adjoints.Backprop(parameter.Output(0))
		if err != nil {
			return nil, errors.WithMessagef(err, "adjoint of parameter #%d", i)
		}
	}
	return graph.NewFunctionFromOutputs(fn.Name()+"_backprop", outputs, parameters)
}
