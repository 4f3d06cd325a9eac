package graph

// TraverseNodes visits every node reachable from roots by following inputs (and control dependencies,
// if includeControlDeps is set), exactly once each.
//
// Nodes in stopAt are considered already visited: they are neither visited nor expanded.
// The walk is depth-first with an explicit stack, and roots are visited in the order given.
func TraverseNodes(roots []*Node, visit func(n *Node), includeControlDeps bool, stopAt []*Node) {
	seen := make(map[*Node]struct{}, len(stopAt))
	for _, n := range stopAt {
		seen[n] = struct{}{}
	}
	stack := make([]*Node, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, found := seen[n]; found {
			continue
		}
		seen[n] = struct{}{}
		visit(n)
		if includeControlDeps {
			for i := len(n.controlDeps) - 1; i >= 0; i-- {
				if _, found := seen[n.controlDeps[i]]; !found {
					stack = append(stack, n.controlDeps[i])
				}
			}
		}
		for i := len(n.inputs) - 1; i >= 0; i-- {
			producer := n.inputs[i].source.node
			if _, found := seen[producer]; !found {
				stack = append(stack, producer)
			}
		}
	}
}

// FindCommonArgs returns the nodes that are in the input closure of both a and b (including a and b themselves),
// in the order they are visited from a.
func FindCommonArgs(a, b *Node) []*Node {
	argsOfB := make(map[*Node]struct{})
	TraverseNodes([]*Node{b}, func(n *Node) { argsOfB[n] = struct{}{} }, false, nil)
	var common []*Node
	TraverseNodes([]*Node{a}, func(n *Node) {
		if _, found := argsOfB[n]; found {
			common = append(common, n)
		}
	}, false, nil)
	return common
}
