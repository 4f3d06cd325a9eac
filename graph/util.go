package graph

// InputsFrom returns the inputs of dst fed by any output of src.
func InputsFrom(src, dst *Node) []*Input {
	var inputs []*Input
	for _, in := range dst.inputs {
		if in.source.node == src {
			inputs = append(inputs, in)
		}
	}
	return inputs
}

// OutputsTo returns the outputs of src that feed at least one input of dst.
func OutputsTo(src, dst *Node) []*Output {
	var outputs []*Output
	for _, output := range src.outputs {
		for _, in := range output.targets {
			if in.node == dst {
				outputs = append(outputs, output)
				break
			}
		}
	}
	return outputs
}

// IsUsed returns whether some path of users from n reaches a Result node.
func IsUsed(n *Node) bool {
	seen := make(map[*Node]struct{})
	stack := []*Node{n}
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, found := seen[curr]; found {
			continue
		}
		if curr.IsOutput() {
			return true
		}
		seen[curr] = struct{}{}
		for _, user := range curr.Users() {
			if _, found := seen[user]; !found {
				stack = append(stack, user)
			}
		}
	}
	return false
}

// UserCount returns the number of users of n that are used (see IsUsed).
func UserCount(n *Node) int {
	count := 0
	for _, user := range n.Users() {
		if IsUsed(user) {
			count++
		}
	}
	return count
}

// IsPostDominated returns whether every path of users from x to a Result node goes through y.
func IsPostDominated(x, y *Node) bool {
	visited := make(map[*Node]struct{})
	stack := []*Node{x}
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		visited[curr] = struct{}{}
		if curr.IsOutput() {
			return false
		}
		stack = stack[:len(stack)-1]
		if curr == y {
			continue
		}
		for _, next := range curr.Users() {
			if _, found := visited[next]; !found {
				stack = append(stack, next)
			}
		}
	}
	return true
}

// PossiblyOverwritten returns whether any consumer of n declares, in its annotations, a destructive
// in-place pair on the input fed by n. Such values can't be shared, e.g. by constant de-duplication.
func PossiblyOverwritten(n *Node) bool {
	for _, output := range n.outputs {
		for _, in := range output.targets {
			for _, pair := range in.node.annotations.InPlacePairs {
				if pair.Input == in.index && pair.Destructive {
					return true
				}
			}
		}
	}
	return false
}
