package graph

// TopologicalSort orders the given nodes so that every node comes after the producers of its inputs
// (and after its control dependencies, if includeControlDeps is set).
//
// Only edges between nodes of the given set are considered. The order is deterministic: nodes without
// pending dependencies are emitted in the order they were given, and nodes that become ready are
// queued in the order of their producers' output targets.
//
// It returns an error of kind ErrCycle if the set contains a cycle.
func TopologicalSort(nodes []*Node, includeControlDeps bool) ([]*Node, error) {
	pending := make(map[*Node]int, len(nodes))
	unique := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if _, found := pending[n]; !found {
			pending[n] = 0
			unique = append(unique, n)
		}
	}
	for _, n := range unique {
		count := 0
		for _, in := range n.inputs {
			if _, found := pending[in.source.node]; found {
				count++
			}
		}
		if includeControlDeps {
			for _, dep := range n.controlDeps {
				if _, found := pending[dep]; found {
					count++
				}
			}
		}
		pending[n] = count
	}

	queue := make([]*Node, 0, len(unique))
	for _, n := range unique {
		if pending[n] == 0 {
			queue = append(queue, n)
		}
	}
	sorted := make([]*Node, 0, len(unique))
	release := func(user *Node) {
		if count, found := pending[user]; found {
			pending[user] = count - 1
			if count == 1 {
				queue = append(queue, user)
			}
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		sorted = append(sorted, n)
		for _, output := range n.outputs {
			for _, in := range output.targets {
				release(in.node)
			}
		}
		if includeControlDeps {
			for _, dependent := range n.controlDependents {
				release(dependent)
			}
		}
	}
	if len(sorted) != len(unique) {
		var stuck *Node
		for _, n := range unique {
			if pending[n] > 0 {
				stuck = n
				break
			}
		}
		return nil, Errorf(ErrCycle, stuck, "topological sort of %d nodes found a cycle, %d nodes could not be ordered",
			len(unique), len(unique)-len(sorted))
	}
	return sorted, nil
}
