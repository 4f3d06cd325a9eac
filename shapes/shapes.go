// Package shapes defines the tensor descriptor attached to every value of the graph: an element type
// plus dimensions, each of which may be dynamic.
//
// A Shape with DType == dtypes.InvalidDType has a dynamic element type. A dimension equal to UnknownDim
// is dynamic, and UnknownRank marks the rank itself as unknown (in which case Dimensions is ignored).
package shapes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/graphir/dtypes"
	"github.com/pkg/errors"
)

// UnknownDim marks a dynamic dimension.
const UnknownDim = -1

// Shape is the tensor descriptor: element type and dimensions of a value.
//
// If len(Dimensions) is 0 (and UnknownRank is false), it represents a scalar.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int

	// UnknownRank indicates the rank is not known, and Dimensions is ignored.
	UnknownRank bool
}

// Make returns a Shape with the given dtype and dimensions.
//
// Dimensions must be >= 0 or UnknownDim, otherwise it panics. See MakeOrError for a version that returns an error.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s, err := MakeOrError(dtype, dimensions...)
	if err != nil {
		exceptions.Panicf("%+v", err)
	}
	return s
}

// MakeOrError is the same as Make, but it returns an error instead if a dimension is invalid.
func MakeOrError(dtype dtypes.DType, dimensions ...int) (Shape, error) {
	s := Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim < 0 && dim != UnknownDim {
			return Shape{}, errors.Errorf("shapes.Make(%s, %v): cannot create a shape with an axis with dimension < 0", dtype, dimensions)
		}
	}
	return s, nil
}

// Scalar returns a scalar shape of the given dtype.
func Scalar(dtype dtypes.DType) Shape {
	return Shape{DType: dtype}
}

// DynamicRank returns a shape with the given dtype (possibly dtypes.InvalidDType) and unknown rank.
func DynamicRank(dtype dtypes.DType) Shape {
	return Shape{DType: dtype, UnknownRank: true}
}

// Dynamic is a fully dynamic shape: unknown dtype and rank.
var Dynamic = DynamicRank(dtypes.InvalidDType)

// Rank of a shape is the number of axes. A shortcut to len(Shape.Dimensions).
// Scalar values have rank 0. It returns -1 if the rank is unknown.
func (s Shape) Rank() int {
	if s.UnknownRank {
		return -1
	}
	return len(s.Dimensions)
}

// IsScalar returns whether the Shape is a scalar, i.e. it has a known rank 0.
func (s Shape) IsScalar() bool { return s.Rank() == 0 }

// IsRankStatic returns whether the rank is known.
func (s Shape) IsRankStatic() bool { return !s.UnknownRank }

// IsStatic returns whether dtype, rank and every dimension are known.
func (s Shape) IsStatic() bool {
	return s.DType.IsStatic() && s.AreDimensionsStatic()
}

// AreDimensionsStatic returns whether rank and every dimension are known, regardless of the dtype.
func (s Shape) AreDimensionsStatic() bool {
	if s.UnknownRank {
		return false
	}
	for _, dim := range s.Dimensions {
		if dim == UnknownDim {
			return false
		}
	}
	return true
}

// Dim returns the dimension of the given axis. Negative axes are counted from the end.
// It panics if the axis is out of range or the rank is unknown.
func (s Shape) Dim(axis int) int {
	adjusted := axis
	if adjusted < 0 {
		adjusted += s.Rank()
	}
	if s.UnknownRank || adjusted < 0 || adjusted >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for shape %s", axis, s)
	}
	return s.Dimensions[adjusted]
}

// Size returns the total number of elements of the shape. E.g.: a Shape of dimensions [3, 5] has size 15.
// A scalar has size 1. It returns -1 if any dimension (or the rank) is unknown.
func (s Shape) Size() int {
	if !s.AreDimensionsStatic() {
		return -1
	}
	size := 1
	for _, dim := range s.Dimensions {
		size *= dim
	}
	return size
}

// Memory returns the number of bytes needed to store a tensor of the given shape.
// It returns 0 if the shape is not static.
func (s Shape) Memory() uintptr {
	if !s.IsStatic() {
		return 0
	}
	return s.DType.Memory() * uintptr(s.Size())
}

// Equal compares two shapes for equality: dtype, rank and dimensions (unknown dimensions
// only equal other unknown dimensions).
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType || s.UnknownRank != s2.UnknownRank {
		return false
	}
	if s.UnknownRank {
		return true
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Compatible returns whether the two shapes could describe the same value, that is, whether Merge succeeds.
func (s Shape) Compatible(s2 Shape) bool {
	_, err := Merge(s, s2)
	return err == nil
}

// Clone makes a deep copy of the shape.
func (s Shape) Clone() Shape {
	newS := Shape{DType: s.DType, UnknownRank: s.UnknownRank}
	if len(s.Dimensions) > 0 {
		newS.Dimensions = slices.Clone(s.Dimensions)
	}
	return newS
}

// WithDType returns a copy of the shape with the dtype changed.
func (s Shape) WithDType(dtype dtypes.DType) Shape {
	newS := s.Clone()
	newS.DType = dtype
	return newS
}

// String implements fmt.Stringer and pretty-prints the shape. Unknown dimensions are printed as "?".
func (s Shape) String() string {
	dtype := "?"
	if s.DType.IsStatic() {
		dtype = s.DType.String()
	}
	if s.UnknownRank {
		return fmt.Sprintf("(%s)[...]", dtype)
	}
	parts := make([]string, 0, len(s.Dimensions))
	for _, dim := range s.Dimensions {
		parts = append(parts, dimString(dim))
	}
	return fmt.Sprintf("(%s)[%s]", dtype, strings.Join(parts, " "))
}

func dimString(dim int) string {
	if dim == UnknownDim {
		return "?"
	}
	return fmt.Sprintf("%d", dim)
}

// Merge combines two descriptors of the same value: dynamic parts of one are filled in by the other.
//
// It fails if statically known parts disagree: different dtypes, ranks or dimensions.
func Merge(a, b Shape) (Shape, error) {
	dtype, err := dtypes.Merge(a.DType, b.DType)
	if err != nil {
		return Shape{}, errors.WithMessagef(err, "cannot merge shapes %s and %s", a, b)
	}
	switch {
	case a.UnknownRank:
		return b.WithDType(dtype), nil
	case b.UnknownRank:
		return a.WithDType(dtype), nil
	}
	if a.Rank() != b.Rank() {
		return Shape{}, errors.Errorf("cannot merge shapes %s and %s: ranks differ", a, b)
	}
	merged := Shape{DType: dtype, Dimensions: make([]int, a.Rank())}
	for axis, dimA := range a.Dimensions {
		dimB := b.Dimensions[axis]
		switch {
		case dimA == UnknownDim:
			merged.Dimensions[axis] = dimB
		case dimB == UnknownDim || dimA == dimB:
			merged.Dimensions[axis] = dimA
		default:
			return Shape{}, errors.Errorf("cannot merge shapes %s and %s: dimension of axis %d differs", a, b, axis)
		}
	}
	return merged, nil
}

// BroadcastNumpy returns the shape resulting of broadcasting the two shapes with numpy rules:
// shapes are aligned to the right, and dimensions of size 1 are expanded to match the other side.
//
// Dtypes are merged as in Merge. If either rank is unknown, the result has unknown rank.
func BroadcastNumpy(a, b Shape) (Shape, error) {
	dtype, err := dtypes.Merge(a.DType, b.DType)
	if err != nil {
		return Shape{}, errors.WithMessagef(err, "cannot broadcast shapes %s and %s", a, b)
	}
	if a.UnknownRank || b.UnknownRank {
		return DynamicRank(dtype), nil
	}
	rank := max(a.Rank(), b.Rank())
	result := Shape{DType: dtype, Dimensions: make([]int, rank)}
	for axis := range rank {
		dimA, dimB := 1, 1
		if idx := axis - (rank - a.Rank()); idx >= 0 {
			dimA = a.Dimensions[idx]
		}
		if idx := axis - (rank - b.Rank()); idx >= 0 {
			dimB = b.Dimensions[idx]
		}
		switch {
		case dimA == dimB:
			result.Dimensions[axis] = dimA
		case dimA == 1:
			result.Dimensions[axis] = dimB
		case dimB == 1:
			result.Dimensions[axis] = dimA
		case dimA == UnknownDim:
			result.Dimensions[axis] = dimB
		case dimB == UnknownDim:
			result.Dimensions[axis] = dimA
		default:
			return Shape{}, errors.Errorf("cannot broadcast shapes %s and %s: dimensions %d and %d of axis %d are incompatible",
				a, b, dimA, dimB, axis)
		}
	}
	return result, nil
}

// BroadcastAxes returns the axes of the broadcast result shape `to` that were expanded from `from`:
// the axes prepended by the right alignment and the axes where `from` had dimension 1 and `to` didn't.
// These are the axes a gradient must be summed over to flow back to `from`.
func BroadcastAxes(from, to Shape) ([]int, error) {
	if from.UnknownRank || to.UnknownRank {
		return nil, errors.Errorf("broadcast axes from %s to %s: unknown rank", from, to)
	}
	if from.Rank() > to.Rank() {
		return nil, errors.Errorf("broadcast axes from %s to %s: source rank is larger", from, to)
	}
	offset := to.Rank() - from.Rank()
	var axes []int
	for axis := range to.Rank() {
		if axis < offset {
			axes = append(axes, axis)
			continue
		}
		fromDim, toDim := from.Dimensions[axis-offset], to.Dimensions[axis]
		if fromDim == toDim {
			continue
		}
		if fromDim != 1 {
			return nil, errors.Errorf("broadcast axes from %s to %s: dimension of axis %d cannot be broadcast", from, to, axis)
		}
		axes = append(axes, axis)
	}
	return axes, nil
}
