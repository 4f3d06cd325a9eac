package runtime

import (
	"github.com/gomlx/graphir/graph"
	"github.com/pkg/errors"
)

// Plan is the read-only view of a finished Function handed to back-ends: its parameters and results in order,
// and its nodes sorted so that every node comes after its inputs and control dependencies.
//
// Back-ends must not mutate the Function.
type Plan struct {
	Function   *graph.Function
	Parameters []*graph.Node
	Results    []*graph.Node
	Nodes      []*graph.Node

	// ByteSizes holds the memory required by each output of the nodes with a static descriptor.
	ByteSizes map[*graph.Output]uintptr
}

// NewPlan builds the execution plan of fn. Every op used in fn must be registered (see graph.RegisterOp).
func NewPlan(fn *graph.Function) (*Plan, error) {
	nodes, err := fn.OrderedNodes()
	if err != nil {
		return nil, err
	}
	p := &Plan{
		Function:   fn,
		Parameters: fn.Parameters(),
		Results:    fn.Results(),
		Nodes:      nodes,
		ByteSizes:  make(map[*graph.Output]uintptr),
	}
	for _, n := range nodes {
		info := n.TypeInfo()
		if _, found := graph.LookupOp(info.Name, info.Version); !found {
			return nil, errors.Errorf("function %q uses op %s, which is not registered", fn.Name(), info)
		}
		for _, output := range n.Outputs() {
			if output.Shape().IsStatic() {
				p.ByteSizes[output] = output.Shape().Memory()
			}
		}
	}
	return p, nil
}

// TotalBytes returns the sum of the sizes of all static outputs: an upper bound of the memory needed to
// execute the plan without buffer reuse.
func (p *Plan) TotalBytes() uintptr {
	var total uintptr
	for _, size := range p.ByteSizes {
		total += size
	}
	return total
}
