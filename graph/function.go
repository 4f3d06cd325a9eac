package graph

import (
	"slices"

	"go.uber.org/multierr"
	"k8s.io/klog/v2"
)

// Function is a named computation delimited by ordered Result nodes and ordered Parameter nodes.
//
// The nodes of the function are those reachable from its results and parameters, following inputs
// and control dependencies.
type Function struct {
	name       string
	results    []*Node
	parameters []*Node
}

// NewFunction creates a Function with the given results (nodes whose op is a Result) and parameters.
func NewFunction(name string, results []*Node, parameters []*Node) (*Function, error) {
	for i, result := range results {
		if result == nil || !result.IsOutput() {
			return nil, Errorf(ErrStructural, result, "NewFunction(%q): result #%d is not a Result node", name, i)
		}
	}
	for i, parameter := range parameters {
		if parameter == nil || !parameter.IsParameter() {
			return nil, Errorf(ErrStructural, parameter, "NewFunction(%q): parameter #%d is not a Parameter node", name, i)
		}
	}
	return &Function{
		name:       name,
		results:    slices.Clone(results),
		parameters: slices.Clone(parameters),
	}, nil
}

// NewFunctionFromOutputs creates a Function whose results are new Result nodes wrapping each of the given values.
func NewFunctionFromOutputs(name string, outputs []*Output, parameters []*Node) (*Function, error) {
	results := make([]*Node, len(outputs))
	for i, output := range outputs {
		var err error
		results[i], err = NewResult(output)
		if err != nil {
			return nil, err
		}
	}
	return NewFunction(name, results, parameters)
}

// Name of the function.
func (fn *Function) Name() string { return fn.name }

// Results returns the Result nodes of the function, in order.
func (fn *Function) Results() []*Node { return slices.Clone(fn.results) }

// Result returns the i-th Result node.
func (fn *Function) Result(i int) *Node { return fn.results[i] }

// NumResults returns the number of results.
func (fn *Function) NumResults() int { return len(fn.results) }

// Outputs returns the output of each Result node, in order.
func (fn *Function) Outputs() []*Output {
	outputs := make([]*Output, len(fn.results))
	for i, result := range fn.results {
		outputs[i] = result.outputs[0]
	}
	return outputs
}

// Parameters returns the Parameter nodes of the function, in order.
func (fn *Function) Parameters() []*Node { return slices.Clone(fn.parameters) }

// Parameter returns the i-th Parameter node.
func (fn *Function) Parameter(i int) *Node { return fn.parameters[i] }

// NumParameters returns the number of parameters.
func (fn *Function) NumParameters() int { return len(fn.parameters) }

// ParameterIndex returns the position of the parameter in the function, or -1 if it is not one of its parameters.
func (fn *Function) ParameterIndex(parameter *Node) int {
	return slices.Index(fn.parameters, parameter)
}

// ReplaceParameter replaces the i-th entry of the parameters list. Users of the former parameter are
// not changed, see ReplaceNodes.
func (fn *Function) ReplaceParameter(i int, parameter *Node) error {
	if i < 0 || i >= len(fn.parameters) {
		return Errorf(ErrStructural, parameter, "ReplaceParameter(%d): function %q has %d parameters", i, fn.name, len(fn.parameters))
	}
	if parameter == nil || !parameter.IsParameter() {
		return Errorf(ErrStructural, parameter, "ReplaceParameter(%d): not a Parameter node", i)
	}
	fn.parameters[i] = parameter
	return nil
}

// TraverseNodes visits every node of the function exactly once, starting from the results and
// then the parameters.
func (fn *Function) TraverseNodes(visit func(n *Node), includeControlDeps bool) {
	roots := make([]*Node, 0, len(fn.results)+len(fn.parameters))
	roots = append(roots, fn.results...)
	roots = append(roots, fn.parameters...)
	TraverseNodes(roots, visit, includeControlDeps, nil)
}

// Nodes returns every node of the function (including control dependencies), in traversal order.
func (fn *Function) Nodes() []*Node {
	var nodes []*Node
	fn.TraverseNodes(func(n *Node) { nodes = append(nodes, n) }, true)
	return nodes
}

// OrderedNodes returns every node of the function (including control dependencies) in topological order.
func (fn *Function) OrderedNodes() ([]*Node, error) {
	return TopologicalSort(fn.Nodes(), true)
}

// Validate checks that every Parameter reachable from the results is declared in the parameters list, and
// that every user of every node of the function is also in the function.
//
// All violations are reported, combined with multierr. Each one has kind ErrGraphConsistency.
func (fn *Function) Validate() error {
	var err error
	declared := make(map[*Node]struct{}, len(fn.parameters))
	for _, parameter := range fn.parameters {
		declared[parameter] = struct{}{}
	}
	TraverseNodes(fn.results, func(n *Node) {
		if _, found := declared[n]; n.IsParameter() && !found {
			err = multierr.Append(err, Errorf(ErrGraphConsistency, n, "function %q references undeclared parameter", fn.name))
		}
	}, true, nil)

	nodes := fn.Nodes()
	inFunction := make(map[*Node]struct{}, len(nodes))
	for _, n := range nodes {
		inFunction[n] = struct{}{}
	}
	for _, n := range nodes {
		for _, user := range n.Users() {
			if _, found := inFunction[user]; !found {
				err = multierr.Append(err, Errorf(ErrGraphConsistency, n, "user not in function %q: %s", fn.name, user))
			}
		}
	}
	if err != nil {
		klog.V(1).Infof("function %q failed validation with %d error(s)", fn.name, len(multierr.Errors(err)))
	}
	return err
}

// ReplaceNode is a shortcut to the package's ReplaceNode.
func (fn *Function) ReplaceNode(target, replacement *Node) error {
	return ReplaceNode(target, replacement)
}
