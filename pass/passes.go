package pass

import (
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/ops"
	"k8s.io/klog/v2"
)

// ValidateGraph checks that every Parameter reachable in the function is declared, and that every user of
// its nodes is part of the function. It never changes the function.
type ValidateGraph struct{}

// Name implements Pass.
func (ValidateGraph) Name() string { return "ValidateGraph" }

// Run implements Pass.
func (ValidateGraph) Run(fn *graph.Function) (bool, error) {
	return false, fn.Validate()
}

// NopElimination replaces nodes whose op is configured as a no-op (see ops.NopChecker), such as a Convert
// to the same dtype, by their input. The replaced nodes are erased.
type NopElimination struct{}

// Name implements Pass.
func (NopElimination) Name() string { return "NopElimination" }

// Run implements Pass.
func (NopElimination) Run(fn *graph.Function) (bool, error) {
	nodes, err := fn.OrderedNodes()
	if err != nil {
		return false, err
	}
	var count int
	for _, n := range nodes {
		checker, ok := n.Op().(ops.NopChecker)
		if !ok || n.NumInputs() != 1 || n.NumOutputs() != 1 || len(n.Users()) == 0 || !checker.IsNop(n) {
			continue
		}
		input := n.InputValue(0)
		if input.Node().NumOutputs() == 1 {
			err = graph.ReplaceNode(n, input.Node())
		} else {
			if err = graph.ReplaceOutputUsers(n.Output(0), input); err == nil {
				input.Node().AddNodeControlDependents(n)
				n.ClearControlDependents()
			}
		}
		if err == nil {
			err = graph.Erase(n)
		}
		if err != nil {
			return count > 0, err
		}
		count++
	}
	if count > 0 {
		klog.V(1).Infof("NopElimination removed %d node(s) from function %q", count, fn.Name())
	}
	return count > 0, nil
}

// ConstantDeduplication replaces constants by an earlier constant with the same shape and contents.
// Constants whose values may be overwritten in place by a consumer are left alone.
type ConstantDeduplication struct{}

// Name implements Pass.
func (ConstantDeduplication) Name() string { return "ConstantDeduplication" }

// Run implements Pass.
func (ConstantDeduplication) Run(fn *graph.Function) (bool, error) {
	nodes, err := fn.OrderedNodes()
	if err != nil {
		return false, err
	}
	buckets := make(map[string][]*graph.Node)
	var count int
	for _, n := range nodes {
		if !n.IsConstant() || len(n.Users()) == 0 || graph.PossiblyOverwritten(n) {
			continue
		}
		key := n.OutputShape(0).String()
		var kept *graph.Node
		for _, candidate := range buckets[key] {
			if ops.CompareConstants(candidate, n) {
				kept = candidate
				break
			}
		}
		if kept == nil {
			buckets[key] = append(buckets[key], n)
			continue
		}
		if err := graph.ReplaceNode(n, kept); err != nil {
			return count > 0, err
		}
		if err := graph.Erase(n); err != nil {
			return count > 0, err
		}
		count++
	}
	if count > 0 {
		klog.V(1).Infof("ConstantDeduplication merged %d constant(s) in function %q", count, fn.Name())
	}
	return count > 0, nil
}
