package graph

import (
	"github.com/gomlx/graphir/shapes"
	"k8s.io/klog/v2"
)

// mutation records the edge edits of a graph rewrite, so they can be undone if re-inference fails.
//
// Usage: call rewire (or touch) for each edit, and finish with commit, which re-runs inference on every
// affected node before returning.
type mutation struct {
	undo    []func()
	touched []*Node
}

// rewire connects in to the new source, recording how to undo it.
func (m *mutation) rewire(in *Input, source *Output) {
	former := in.source
	if former == source {
		return
	}
	pos := in.setSource(source)
	m.undo = append(m.undo, func() {
		source.removeTarget(in)
		in.source = former
		former.insertTarget(pos, in)
	})
	m.touch(in.node)
}

// touch marks the node as needing re-inference.
func (m *mutation) touch(n *Node) {
	n.state = StateStale
	m.touched = append(m.touched, n)
}

// commit re-infers the touched nodes and everything downstream whose inputs changed.
// On failure all edits are undone, the previous descriptors restored, and the error returned.
func (m *mutation) commit() error {
	if len(m.touched) == 0 {
		return nil
	}
	snapshot := make(map[*Node][]shapes.Shape)
	err := propagateInference(m.touched, snapshot)
	if err == nil {
		return nil
	}
	klog.Warningf("graph rewrite rolled back: %v", err)
	for n, previous := range snapshot {
		n.outputs = n.outputs[:min(len(n.outputs), len(previous))]
		for i, shape := range previous {
			n.SetOutputType(i, shape)
		}
		n.state = StateValidated
	}
	m.rollback()
	return err
}

// rollback undoes the edge edits, without running inference: descriptors are assumed untouched.
func (m *mutation) rollback() {
	for i := len(m.undo) - 1; i >= 0; i-- {
		m.undo[i]()
	}
	for _, n := range m.touched {
		n.state = StateValidated
	}
	m.undo, m.touched = nil, nil
}

// propagateInference runs inference on seeds, and then on every downstream node that consumes an
// output whose descriptor changed, in topological order. Previous descriptors of every re-inferred
// node are saved in snapshot.
func propagateInference(seeds []*Node, snapshot map[*Node][]shapes.Shape) error {
	var downstream []*Node
	seen := make(map[*Node]struct{})
	stack := append([]*Node(nil), seeds...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, found := seen[n]; found {
			continue
		}
		seen[n] = struct{}{}
		downstream = append(downstream, n)
		stack = append(stack, n.Users()...)
	}
	order, err := TopologicalSort(downstream, false)
	if err != nil {
		return err
	}

	dirty := make(map[*Node]bool, len(seeds))
	for _, n := range seeds {
		dirty[n] = true
	}
	for _, n := range order {
		if !dirty[n] {
			continue
		}
		previous := make([]shapes.Shape, len(n.outputs))
		for i, output := range n.outputs {
			previous[i] = output.shape
		}
		snapshot[n] = previous
		n.state = StateStale
		if err := n.inferTypes(); err != nil {
			return err
		}
		for i, output := range n.outputs {
			if i >= len(previous) || !output.shape.Equal(previous[i]) {
				for _, in := range output.targets {
					dirty[in.node] = true
				}
			}
		}
	}
	klog.V(3).Infof("re-inferred %d node(s) downstream of %d edited node(s)", len(snapshot), len(seeds))
	return nil
}
