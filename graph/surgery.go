package graph

import (
	"cmp"
	"slices"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ReplaceNode redirects every consumer of the outputs of target to the corresponding outputs of replacement,
// and re-runs inference downstream.
//
// It fails (with ErrStructural) if target is a Result, if target has no users, or if target and replacement
// have a different number of outputs. These are checked before anything is changed. If the re-inference
// fails, the edges are restored and the error is returned.
//
// Inputs of replacement itself are not rewired, so a replacement built on top of target (e.g. a node
// inserted after it) is valid.
//
// On success, the provenance tags of the subgraph being replaced (up to the nodes shared with the
// replacement) are added to the replacement and its new subgraph, and the control dependents of target
// are moved to replacement.
func ReplaceNode(target, replacement *Node) error {
	if err := checkReplace(target, replacement); err != nil {
		return err
	}
	if target == replacement {
		return nil
	}
	m := &mutation{}
	m.replaceUsers(target, replacement)
	if err := m.commit(); err != nil {
		return errors.WithMessagef(err, "ReplaceNode(%s, %s)", target, replacement)
	}
	finishReplace(target, replacement)
	return nil
}

func checkReplace(target, replacement *Node) error {
	if target == nil || replacement == nil {
		return Errorf(ErrStructural, target, "ReplaceNode() given a nil node")
	}
	if target.IsOutput() {
		return Errorf(ErrStructural, target, "Result nodes cannot be replaced (replacement %s)", replacement)
	}
	if len(target.Users()) == 0 {
		return Errorf(ErrStructural, target, "attempted to replace unreachable node: it has no users (replacement %s)", replacement)
	}
	if target.NumOutputs() != replacement.NumOutputs() {
		return Errorf(ErrStructural, target, "arity mismatch: target has %d outputs, replacement %s has %d outputs",
			target.NumOutputs(), replacement, replacement.NumOutputs())
	}
	return nil
}

// replaceUsers rewires every consumer of target, except replacement itself, to the matching output of replacement.
func (m *mutation) replaceUsers(target, replacement *Node) {
	for i, output := range target.outputs {
		for _, in := range output.Targets() {
			if in.node == replacement {
				continue
			}
			m.rewire(in, replacement.outputs[i])
		}
	}
}

func finishReplace(target, replacement *Node) {
	propagateProvenance(target, replacement)
	replacement.AddNodeControlDependents(target)
	target.ClearControlDependents()
	klog.V(2).Infof("replaced %s by %s", target, replacement)
}

// propagateProvenance adds the tags of the nodes only reachable from target to the nodes only reachable
// from replacement.
func propagateProvenance(target, replacement *Node) {
	common := FindCommonArgs(target, replacement)
	var removedTags []string
	TraverseNodes([]*Node{target}, func(n *Node) {
		removedTags = append(removedTags, n.ProvenanceTags()...)
	}, false, common)
	if len(removedTags) == 0 {
		return
	}
	TraverseNodes([]*Node{replacement}, func(n *Node) {
		n.AddProvenanceTags(removedTags...)
	}, false, common)
}

// ReplaceNodes replaces parameters of fn positionally, following parameterMap, and replaces every pair of
// bodyMap as ReplaceNode does, in order of node ID. Entries mapping a node to itself are ignored.
//
// The call is atomic: if any replacement is invalid, or inference fails downstream of any of them, fn and
// its nodes are left unchanged.
func ReplaceNodes(fn *Function, parameterMap, bodyMap map[*Node]*Node) error {
	newParameters := slices.Clone(fn.parameters)
	for i, parameter := range fn.parameters {
		if newParameter, found := parameterMap[parameter]; found && newParameter != parameter {
			if newParameter == nil || !newParameter.IsParameter() {
				return Errorf(ErrStructural, newParameter, "ReplaceNodes(): replacement of parameter #%d is not a Parameter node", i)
			}
			newParameters[i] = newParameter
		}
	}
	targets := make([]*Node, 0, len(bodyMap))
	for target := range bodyMap {
		if target != bodyMap[target] {
			targets = append(targets, target)
		}
	}
	slices.SortFunc(targets, func(a, b *Node) int { return cmp.Compare(a.id, b.id) })

	m := &mutation{}
	for _, target := range targets {
		replacement := bodyMap[target]
		if err := checkReplace(target, replacement); err != nil {
			m.rollback()
			return err
		}
		m.replaceUsers(target, replacement)
	}
	if err := m.commit(); err != nil {
		return errors.WithMessagef(err, "ReplaceNodes(%s)", fn.name)
	}
	for _, target := range targets {
		finishReplace(target, bodyMap[target])
	}
	fn.parameters = newParameters
	return nil
}

// InsertResultParameterSplit cuts the edge from src to dst, for partitioning a graph: src now feeds a new
// Result node, and dst is fed by a new Parameter node with the same descriptor.
//
// src must have exactly one output, and exactly one input of dst must be fed by src.
// The new Parameter takes the placement of dst, and the new Result the placement of src.
func InsertResultParameterSplit(src, dst *Node) (result, parameter *Node, err error) {
	if src.NumOutputs() != 1 {
		return nil, nil, Errorf(ErrStructural, src, "multiple outputs per op not supported in graph partition, %s has %d outputs",
			src, src.NumOutputs())
	}
	dstInput, err := singleEdge(src, dst, "InsertResultParameterSplit")
	if err != nil {
		return nil, nil, err
	}

	parameter = NewParameter(src.OutputShape(0), WithPlacement(dst.Placement()))
	m := &mutation{}
	m.rewire(dstInput, parameter.outputs[0])
	if err = m.commit(); err != nil {
		return nil, nil, errors.WithMessagef(err, "InsertResultParameterSplit(%s, %s)", src, dst)
	}
	result, err = NewResult(src.outputs[0], WithPlacement(src.Placement()))
	if err != nil {
		return nil, nil, err
	}
	klog.V(2).Infof("split edge %s -> %s into %s and %s", src, dst, result, parameter)
	return result, parameter, nil
}

// InsertNewNodeBetween redirects the edge from src to dst through the first output of newNode:
// src -> dst becomes src -> newNode -> dst. Connecting newNode to src is up to the caller.
//
// Exactly one input of dst must be fed by src.
func InsertNewNodeBetween(src, dst, newNode *Node) error {
	dstInput, err := singleEdge(src, dst, "InsertNewNodeBetween")
	if err != nil {
		return err
	}
	if newNode.NumOutputs() == 0 {
		return Errorf(ErrStructural, newNode, "InsertNewNodeBetween(%s, %s): new node has no outputs", src, dst)
	}
	m := &mutation{}
	m.rewire(dstInput, newNode.outputs[0])
	if err = m.commit(); err != nil {
		return errors.WithMessagef(err, "InsertNewNodeBetween(%s, %s, %s)", src, dst, newNode)
	}
	klog.V(2).Infof("inserted %s between %s and %s", newNode, src, dst)
	return nil
}

// singleEdge returns the only input of dst fed by src, or an ErrStructural error if there isn't exactly one.
func singleEdge(src, dst *Node, caller string) (*Input, error) {
	dstInputs := InputsFrom(src, dst)
	if len(dstInputs) != 1 {
		return nil, Errorf(ErrStructural, dst, "%s encountered %d inputs between the source %s and destination nodes, expected exactly one",
			caller, len(dstInputs), src)
	}
	srcOutputs := OutputsTo(src, dst)
	if len(srcOutputs) != 1 {
		return nil, Errorf(ErrStructural, src, "%s encountered %d outputs between the source and destination %s nodes, expected exactly one",
			caller, len(srcOutputs), dst)
	}
	return dstInputs[0], nil
}

// Erase disconnects a dead node, one without users, from its inputs and control dependencies, so it is no
// longer listed as a user of its producers. Producers left without users are erased too, except Parameters.
//
// It is the counterpart of ReplaceNode for passes: the replaced node can then be dropped. Result nodes and
// nodes with users or control dependents can't be erased. Erased nodes are left in StateErased.
func Erase(n *Node) error {
	if n.IsOutput() {
		return Errorf(ErrStructural, n, "Result nodes cannot be erased")
	}
	if len(n.Users()) > 0 || len(n.controlDependents) > 0 {
		return Errorf(ErrStructural, n, "cannot erase %s: it is still in use", n)
	}
	stack := []*Node{n}
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dep := range slices.Clone(curr.controlDeps) {
			curr.RemoveControlDep(dep)
		}
		for _, in := range curr.inputs {
			producer := in.source.node
			in.source.removeTarget(in)
			if !producer.IsParameter() && len(producer.Users()) == 0 && len(producer.controlDependents) == 0 {
				stack = append(stack, producer)
			}
		}
		curr.inputs = nil
		curr.state = StateErased
		klog.V(2).Infof("erased %s", curr)
	}
	return nil
}
