package runtime

import (
	"reflect"
	"unsafe"

	"github.com/gomlx/graphir/dtypes"
	"github.com/gomlx/graphir/shapes"
	"github.com/pkg/errors"
)

// HostTensor is a tensor in host memory: a static descriptor and an aligned buffer holding its elements,
// in row-major order.
type HostTensor struct {
	shape  shapes.Shape
	buffer *AlignedBuffer
}

// NewHostTensor allocates a zero-filled tensor with the given static shape.
func NewHostTensor(shape shapes.Shape) (*HostTensor, error) {
	if !shape.IsStatic() {
		return nil, errors.Errorf("NewHostTensor(%s): shape must be static", shape)
	}
	return &HostTensor{
		shape:  shape.Clone(),
		buffer: NewAlignedBuffer(shape.Memory(), BufferAlignment),
	}, nil
}

// HostTensorFromFlat creates a tensor with the given static shape and a copy of the flat values, whose Go type
// must match the dtype of the shape.
func HostTensorFromFlat[T any](shape shapes.Shape, flat []T) (*HostTensor, error) {
	if dtype := dtypes.FromGoType(reflect.TypeFor[T]()); dtype != shape.DType {
		return nil, errors.Errorf("HostTensorFromFlat(%s): values of type %s don't match the dtype", shape, reflect.TypeFor[T]())
	}
	t, err := NewHostTensor(shape)
	if err != nil {
		return nil, err
	}
	if len(flat) != shape.Size() {
		return nil, errors.Errorf("HostTensorFromFlat(%s): got %d values, wanted %d", shape, len(flat), shape.Size())
	}
	copy(unsafeFlat[T](t), flat)
	return t, nil
}

// Flat returns a view of the elements of the tensor. It shares the memory of the tensor.
func Flat[T any](t *HostTensor) ([]T, error) {
	if dtype := dtypes.FromGoType(reflect.TypeFor[T]()); dtype != t.shape.DType {
		return nil, errors.Errorf("Flat[%s](%s): type doesn't match the tensor's dtype", reflect.TypeFor[T](), t.shape)
	}
	return unsafeFlat[T](t), nil
}

func unsafeFlat[T any](t *HostTensor) []T {
	return unsafe.Slice((*T)(t.buffer.Pointer()), t.shape.Size())
}

// Shape returns the descriptor of the tensor.
func (t *HostTensor) Shape() shapes.Shape { return t.shape }

// DType of the elements.
func (t *HostTensor) DType() dtypes.DType { return t.shape.DType }

// Bytes returns the raw memory of the tensor. It is shared with the tensor.
func (t *HostTensor) Bytes() []byte { return t.buffer.Bytes()[:t.shape.Memory()] }

// String implements fmt.Stringer.
func (t *HostTensor) String() string { return "HostTensor" + t.shape.String() }
