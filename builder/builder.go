// Package builder provides composite graph constructions on top of the ops catalog: zero and filled values,
// flattening, axes reordering and a mean squared error loss.
package builder

import (
	"github.com/gomlx/graphir/dtypes"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/ops"
	"github.com/gomlx/graphir/shapes"
	"github.com/pkg/errors"
)

// MakeZero returns a value of the given dtype and dimensions filled with zeros: a scalar constant broadcast
// to all axes.
func MakeZero(dtype dtypes.DType, dimensions []int) (*graph.Output, error) {
	return MakeConstantFilled(dtype, dimensions, 0)
}

// MakeConstantFilled returns a value of the given dtype and dimensions filled with value: a scalar constant
// broadcast to all axes.
func MakeConstantFilled(dtype dtypes.DType, dimensions []int, value float64) (*graph.Output, error) {
	scalar, err := ops.ConstantFilled(shapes.Scalar(dtype), value)
	if err != nil {
		return nil, errors.WithMessagef(err, "builder.MakeConstantFilled(%s, %v)", dtype, dimensions)
	}
	if len(dimensions) == 0 {
		return scalar, nil
	}
	axes := make([]int, len(dimensions))
	for i := range axes {
		axes[i] = i
	}
	return ops.Broadcast(scalar, dimensions, axes)
}

// Reshape returns x reshaped to dimensions, keeping the order of the elements.
func Reshape(x *graph.Output, dimensions ...int) (*graph.Output, error) {
	return ops.Reshape(x, nil, dimensions)
}

// staticDims returns the dimensions of x, or an error if they are not all known.
func staticDims(x *graph.Output, caller string) ([]int, error) {
	shape := x.Shape()
	if !shape.AreDimensionsStatic() {
		return nil, errors.Errorf("builder.%s(): input %s must have static dimensions, got %s", caller, x, shape)
	}
	return shape.Dimensions, nil
}

// Reorder permutes the axes of x: output axis i is the input axis order[i].
// If order is empty, the axes are reversed, as in Transpose.
func Reorder(x *graph.Output, order ...int) (*graph.Output, error) {
	dims, err := staticDims(x, "Reorder")
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		order = make([]int, len(dims))
		for i := range order {
			order[i] = len(dims) - 1 - i
		}
	}
	if len(order) != len(dims) {
		return nil, errors.Errorf("builder.Reorder(): order %v doesn't match rank %d of %s", order, len(dims), x)
	}
	permuted := make([]int, len(order))
	for i, axis := range order {
		if axis < 0 || axis >= len(dims) {
			return nil, errors.Errorf("builder.Reorder(): invalid axis %d in order %v", axis, order)
		}
		permuted[i] = dims[axis]
	}
	return ops.Reshape(x, order, permuted)
}

// Transpose returns x with its axes in reverse order.
func Transpose(x *graph.Output) (*graph.Output, error) {
	return Reorder(x)
}

// Flatten reshapes x to a matrix: the axes before axis are collapsed into the first dimension, and the
// remaining ones into the second. axis can be negative, counting from the end.
func Flatten(x *graph.Output, axis int) (*graph.Output, error) {
	dims, err := staticDims(x, "Flatten")
	if err != nil {
		return nil, err
	}
	if axis < 0 {
		axis += len(dims)
	}
	if axis < 0 || axis > len(dims) {
		return nil, errors.Errorf("builder.Flatten(): axis out of range for %s", x.Shape())
	}
	return ops.Reshape(x, nil, []int{product(dims[:axis]), product(dims[axis:])})
}

func product(dims []int) int {
	p := 1
	for _, dim := range dims {
		p *= dim
	}
	return p
}

// MeanSquaredError returns the scalar mean of (x-y)^2 over all elements.
func MeanSquaredError(x, y *graph.Output) (*graph.Output, error) {
	dims, err := staticDims(x, "MeanSquaredError")
	if err != nil {
		return nil, err
	}
	diff, err := ops.Subtract(x, y)
	if err != nil {
		return nil, err
	}
	squared, err := ops.Multiply(diff, diff)
	if err != nil {
		return nil, err
	}
	total, err := SumAll(squared)
	if err != nil {
		return nil, err
	}
	count, err := ops.ConstantFilled(shapes.Scalar(x.DType()), float64(product(dims)))
	if err != nil {
		return nil, err
	}
	return ops.Divide(total, count)
}

// SumAll returns the scalar sum of all elements of x.
func SumAll(x *graph.Output) (*graph.Output, error) {
	if !x.Shape().IsRankStatic() {
		return nil, errors.Errorf("builder.SumAll(): input %s must have a known rank", x)
	}
	axes := make([]int, x.Shape().Rank())
	for i := range axes {
		axes[i] = i
	}
	return ops.Sum(x, axes)
}
