package graph

import (
	"fmt"
	"strings"
)

// CycleReport is the result of CheckForCycles.
type CycleReport struct {
	// Cycle holds the path that led to the cycle, followed by the repeated node. Empty if there is no cycle.
	Cycle []*Node

	// Backward is true if the cycle was found following inputs from the results, false if it
	// was found following users from the parameters.
	Backward bool
}

// HasCycle returns whether a cycle was found.
func (r CycleReport) HasCycle() bool { return len(r.Cycle) > 0 }

// String implements fmt.Stringer.
func (r CycleReport) String() string {
	if !r.HasCycle() {
		return "no cycle"
	}
	names := make([]string, len(r.Cycle))
	for i, n := range r.Cycle {
		names[i] = n.String()
	}
	direction := "forward"
	if r.Backward {
		direction = "backward"
	}
	return fmt.Sprintf("%s cycle: %s", direction, strings.Join(names, " -> "))
}

// CheckForCycles searches for cycles in the function: first backward from each result following
// inputs, then forward from each parameter following users.
//
// It is a diagnostic tool, functions built through the graph package API are acyclic.
func CheckForCycles(fn *Function) CycleReport {
	inputsOf := func(n *Node) []*Node {
		producers := make([]*Node, len(n.inputs))
		for i, in := range n.inputs {
			producers[i] = in.source.node
		}
		return producers
	}
	for _, result := range fn.results {
		if cycle := findCycle(result, inputsOf); cycle != nil {
			return CycleReport{Cycle: cycle, Backward: true}
		}
	}
	for _, parameter := range fn.parameters {
		if cycle := findCycle(parameter, (*Node).Users); cycle != nil {
			return CycleReport{Cycle: cycle}
		}
	}
	return CycleReport{}
}

// cycleSearch is a depth-first search keeping the current path as a stack, mirrored in a set.
type cycleSearch struct {
	next    func(*Node) []*Node
	path    []*Node
	onPath  map[*Node]struct{}
	cleared map[*Node]struct{}
}

func findCycle(start *Node, next func(*Node) []*Node) []*Node {
	s := &cycleSearch{
		next:    next,
		onPath:  make(map[*Node]struct{}),
		cleared: make(map[*Node]struct{}),
	}
	return s.visit(start)
}

func (s *cycleSearch) visit(n *Node) []*Node {
	s.path = append(s.path, n)
	s.onPath[n] = struct{}{}
	for _, arg := range s.next(n) {
		if _, found := s.onPath[arg]; found {
			cycle := make([]*Node, 0, len(s.path)+1)
			cycle = append(cycle, s.path...)
			return append(cycle, arg)
		}
		if _, found := s.cleared[arg]; found {
			continue
		}
		if cycle := s.visit(arg); cycle != nil {
			return cycle
		}
	}
	delete(s.onPath, n)
	s.path = s.path[:len(s.path)-1]
	// Nodes fully explored without a cycle needn't be searched again.
	s.cleared[n] = struct{}{}
	return nil
}
