// Package ops implements a catalog of operators over the graph IR: their type and shape inference, cloning and
// adjoint (gradient) rules.
//
// Numeric kernels are not part of this package: back-ends dispatch on the ops' TypeInfo.
package ops

import (
	"slices"

	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/optypes"
	"github.com/pkg/errors"
)

func init() {
	for _, opType := range []optypes.OpType{
		optypes.Constant,
		optypes.Add, optypes.Subtract, optypes.Multiply, optypes.Divide, optypes.Minimum, optypes.Maximum,
		optypes.Less, optypes.NotEqual,
		optypes.Negative, optypes.Sign, optypes.Not, optypes.Convert,
		optypes.Broadcast, optypes.Sum, optypes.Reshape, optypes.Reverse, optypes.TopK,
	} {
		graph.RegisterOp(typeInfo(opType))
	}
}

func typeInfo(opType optypes.OpType) graph.TypeInfo {
	return graph.TypeInfo{Name: opType.Name()}
}

// NopChecker is implemented by ops that may be configured as a no-op (e.g. a Reshape to the same shape),
// in which case the node can be replaced by its input.
type NopChecker interface {
	IsNop(n *graph.Node) bool
}

// newOutput creates the node and returns its first output.
func newOutput(op graph.Op, inputs []*graph.Output, options []graph.NodeOption) (*graph.Output, error) {
	n, err := graph.NewNode(op, inputs, options...)
	if err != nil {
		return nil, err
	}
	return n.Output(0), nil
}

// normalizeAxes checks the axes are valid for the rank (negative values count from the end) and unique,
// and returns them sorted.
func normalizeAxes(axes []int, rank int) ([]int, error) {
	normalized := make([]int, len(axes))
	for i, axis := range axes {
		if axis < 0 {
			axis += rank
		}
		if axis < 0 || axis >= rank {
			return nil, errors.Errorf("axis %d out of range for rank %d", axes[i], rank)
		}
		normalized[i] = axis
	}
	slices.Sort(normalized)
	if len(slices.Compact(slices.Clone(normalized))) != len(normalized) {
		return nil, errors.Errorf("axes %v have repeated values", axes)
	}
	return normalized, nil
}
