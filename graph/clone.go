package graph

import (
	"slices"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// NodeMap maps original nodes to their clones. It can be pre-seeded to reuse existing nodes
// as clones, e.g. to share a subgraph between the original and the clone.
type NodeMap map[*Node]*Node

// CloneNodes clones the given nodes in topological order, so that each clone's inputs are the clones of
// the original producers (taken from nodeMap). Nodes already in nodeMap are not cloned again.
//
// The friendly name is copied only if it was explicitly set. Provenance tags, placement and annotations
// are copied.
// It returns the clones in the same order as nodes, and nodeMap is updated with the new clones.
func CloneNodes(nodes []*Node, nodeMap NodeMap) ([]*Node, error) {
	sorted, err := TopologicalSort(nodes, true)
	if err != nil {
		return nil, errors.WithMessage(err, "CloneNodes()")
	}
	for _, n := range sorted {
		if _, found := nodeMap[n]; found {
			continue
		}
		inputs := make([]*Output, len(n.inputs))
		for i, in := range n.inputs {
			producer := in.source.node
			clone, found := nodeMap[producer]
			if !found {
				return nil, Errorf(ErrStructural, n, "CloneNodes(): producer %s of input #%d was neither given nor in the node map", producer, i)
			}
			if in.source.index >= clone.NumOutputs() {
				return nil, Errorf(ErrStructural, n, "CloneNodes(): clone %s of %s has %d outputs, input #%d uses output %d",
					clone, producer, clone.NumOutputs(), i, in.source.index)
			}
			inputs[i] = clone.outputs[in.source.index]
		}
		var deps []*Node
		for _, dep := range n.controlDeps {
			clone, found := nodeMap[dep]
			if !found {
				return nil, Errorf(ErrStructural, n, "CloneNodes(): control dependency %s was neither given nor in the node map", dep)
			}
			if !slices.Contains(deps, clone) {
				deps = append(deps, clone)
			}
		}
		clone, err := n.op.CopyWithNewInputs(inputs, deps)
		if err != nil {
			return nil, errors.WithMessagef(err, "CloneNodes() failed to copy %s", n)
		}
		if n.HasFriendlyName() {
			clone.SetFriendlyName(n.friendlyName)
		}
		clone.AddProvenanceTags(n.ProvenanceTags()...)
		clone.SetPlacement(n.placement)
		clone.SetAnnotations(Annotations{InPlacePairs: slices.Clone(n.annotations.InPlacePairs)})
		nodeMap[n] = clone
	}

	clones := make([]*Node, len(nodes))
	for i, n := range nodes {
		clones[i] = nodeMap[n]
	}
	klog.V(2).Infof("cloned %d node(s)", len(nodes))
	return clones, nil
}

// CloneFunction clones every node of fn and returns a new Function over the clones.
// nodeMap may be nil, or pre-seeded as in CloneNodes.
func CloneFunction(fn *Function, nodeMap NodeMap) (*Function, error) {
	if nodeMap == nil {
		nodeMap = make(NodeMap)
	}
	if _, err := CloneNodes(fn.Nodes(), nodeMap); err != nil {
		return nil, errors.WithMessagef(err, "CloneFunction(%q)", fn.name)
	}
	results := make([]*Node, len(fn.results))
	for i, result := range fn.results {
		results[i] = nodeMap[result]
		if !results[i].IsOutput() {
			return nil, Errorf(ErrStructural, results[i], "CloneFunction(%q): clone of result #%d should be a Result node", fn.name, i)
		}
	}
	parameters := make([]*Node, len(fn.parameters))
	for i, parameter := range fn.parameters {
		parameters[i] = nodeMap[parameter]
		if !parameters[i].IsParameter() {
			return nil, Errorf(ErrStructural, parameters[i], "CloneFunction(%q): clone of parameter #%d should be a Parameter node", fn.name, i)
		}
	}
	return NewFunction(fn.name, results, parameters)
}
