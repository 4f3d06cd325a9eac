package graph

import "slices"

// GetSubgraphOutputs returns the nodes of the given set (minus exclusions) that have users outside the set:
// the values a subgraph made of nodes would have to output.
//
// If ignoreUnused is set, users that don't reach any Result are not counted. If ignoreOutputDuplicates is
// set, a node is listed once per external user, otherwise only once.
func GetSubgraphOutputs(nodes, exclusions []*Node, ignoreUnused, ignoreOutputDuplicates bool) []*Node {
	excluded := make(map[*Node]struct{}, len(exclusions))
	for _, n := range exclusions {
		excluded[n] = struct{}{}
	}
	inSet := make(map[*Node]struct{}, len(nodes))
	for _, n := range nodes {
		inSet[n] = struct{}{}
	}

	var outputs []*Node
	for _, n := range nodes {
		if _, found := excluded[n]; found {
			continue
		}
		for _, user := range n.Users() {
			_, internal := inSet[user]
			add := !internal && (!ignoreUnused || IsUsed(user))
			add = add && (ignoreOutputDuplicates || !slices.Contains(outputs, n))
			if add {
				outputs = append(outputs, n)
			}
		}
	}
	return outputs
}

// ExtractSubgraph returns the nodes reachable from results (following inputs and control dependencies),
// bounded by args: args themselves are not included.
func ExtractSubgraph(results, args []*Node) []*Node {
	var subgraph []*Node
	TraverseNodes(results, func(n *Node) { subgraph = append(subgraph, n) }, true, args)
	return subgraph
}
