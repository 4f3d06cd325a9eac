package ops

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/gomlx/graphir/dtypes"
	"github.com/gomlx/graphir/dtypes/bfloat16"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/optypes"
	"github.com/gomlx/graphir/shapes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// ConstantType is the TypeInfo of constants.
var ConstantType = typeInfo(optypes.Constant)

// ConstantOp holds a literal tensor. Its data is stored little-endian, and it is never changed after creation.
type ConstantOp struct {
	Shape shapes.Shape
	data  []byte
}

// Constant creates a constant with the given (static) shape. values is either a scalar or a flat slice
// with shape.Size() elements, of the Go type of shape.DType (see dtypes.DType.GoType).
func Constant(shape shapes.Shape, values any, options ...graph.NodeOption) (*graph.Output, error) {
	if !shape.IsStatic() {
		return nil, errors.Errorf("ops.Constant(): shape %s must be static", shape)
	}
	v := reflect.ValueOf(values)
	if !v.IsValid() {
		return nil, errors.Errorf("ops.Constant(): nil values for shape %s", shape)
	}
	if v.Kind() != reflect.Slice {
		v = reflect.Append(reflect.MakeSlice(reflect.SliceOf(v.Type()), 0, 1), v)
	}
	if dtype := dtypes.FromGoType(v.Type().Elem()); dtype != shape.DType {
		return nil, errors.Errorf("ops.Constant(): values of type %s don't match the shape %s", v.Type(), shape)
	}
	if v.Len() != shape.Size() {
		return nil, errors.Errorf("ops.Constant(): got %d values for shape %s with %d elements", v.Len(), shape, shape.Size())
	}
	data, err := encode(v)
	if err != nil {
		return nil, errors.WithMessagef(err, "ops.Constant(%s)", shape)
	}
	return newOutput(&ConstantOp{Shape: shape.Clone(), data: data}, nil, options)
}

// ConstantScalar creates a scalar constant, with the dtype of the Go value.
func ConstantScalar(value any, options ...graph.NodeOption) (*graph.Output, error) {
	return Constant(shapes.Make(dtypes.FromAny(value)), value, options...)
}

// ConstantFilled creates a constant of the given static shape, with every element set to value converted to the dtype.
func ConstantFilled(shape shapes.Shape, value float64, options ...graph.NodeOption) (*graph.Output, error) {
	if !shape.IsStatic() {
		return nil, errors.Errorf("ops.ConstantFilled(): shape %s must be static", shape)
	}
	element, err := encodeElement(shape.DType, value)
	if err != nil {
		return nil, err
	}
	data := bytes.Repeat(element, shape.Size())
	return newOutput(&ConstantOp{Shape: shape.Clone(), data: data}, nil, options)
}

func encode(v reflect.Value) ([]byte, error) {
	// binary.Write requires fixed-size types.
	switch v.Type().Elem().Kind() {
	case reflect.Int:
		converted := make([]int64, v.Len())
		for i := range converted {
			converted[i] = v.Index(i).Int()
		}
		v = reflect.ValueOf(converted)
	case reflect.Uint:
		converted := make([]uint64, v.Len())
		for i := range converted {
			converted[i] = v.Index(i).Uint()
		}
		v = reflect.ValueOf(converted)
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v.Interface()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeElement(dtype dtypes.DType, value float64) ([]byte, error) {
	element, err := dtype.FromFloat64(value)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, element); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TypeInfo implements graph.Op.
func (c *ConstantOp) TypeInfo() graph.TypeInfo { return ConstantType }

// IsConstant implements graph.ConstantOp.
func (c *ConstantOp) IsConstant() bool { return true }

// ValidateAndInferTypes implements graph.Op.
func (c *ConstantOp) ValidateAndInferTypes(n *graph.Node) error {
	if n.NumInputs() != 0 {
		return n.ValidationErrorf("Constant takes no inputs, got %d", n.NumInputs())
	}
	if !c.Shape.IsStatic() {
		return n.ValidationErrorf("Constant shape %s must be static", c.Shape)
	}
	if uintptr(len(c.data)) != c.Shape.Memory() {
		return n.ValidationErrorf("Constant has %d bytes of data, shape %s requires %d", len(c.data), c.Shape, c.Shape.Memory())
	}
	n.SetOutputType(0, c.Shape)
	return nil
}

// CopyWithNewInputs implements graph.Op. The data is shared with the copy.
func (c *ConstantOp) CopyWithNewInputs(inputs []*graph.Output, controlDeps []*graph.Node) (*graph.Node, error) {
	if len(inputs) != 0 {
		return nil, graph.Errorf(graph.ErrStructural, nil, "Constant.CopyWithNewInputs() given %d inputs, expected none", len(inputs))
	}
	return graph.NewNode(&ConstantOp{Shape: c.Shape.Clone(), data: c.data}, nil, graph.WithControlDeps(controlDeps...))
}

// Data returns a copy of the raw little-endian data of the constant.
func (c *ConstantOp) Data() []byte { return bytes.Clone(c.data) }

// Value returns the i-th element converted to float64. Complex numbers return their real part.
func (c *ConstantOp) Value(i int) float64 {
	size := c.Shape.DType.Size()
	b := c.data[i*size : (i+1)*size]
	le := binary.LittleEndian
	switch c.Shape.DType {
	case dtypes.Bool:
		if b[0] != 0 {
			return 1
		}
		return 0
	case dtypes.Int8:
		return float64(int8(b[0]))
	case dtypes.Uint8:
		return float64(b[0])
	case dtypes.Int16:
		return float64(int16(le.Uint16(b)))
	case dtypes.Uint16:
		return float64(le.Uint16(b))
	case dtypes.Int32:
		return float64(int32(le.Uint32(b)))
	case dtypes.Uint32:
		return float64(le.Uint32(b))
	case dtypes.Int64:
		return float64(int64(le.Uint64(b)))
	case dtypes.Uint64:
		return float64(le.Uint64(b))
	case dtypes.Float16:
		return float64(float16.Frombits(le.Uint16(b)).Float32())
	case dtypes.BFloat16:
		return bfloat16.FromBits(le.Uint16(b)).Float64()
	case dtypes.Float32, dtypes.Complex64:
		return float64(math.Float32frombits(le.Uint32(b)))
	case dtypes.Float64, dtypes.Complex128:
		return math.Float64frombits(le.Uint64(b))
	}
	return math.NaN()
}

// IsEqualTo returns whether every element of the constant is equal to value, converted to the constant's dtype.
func (c *ConstantOp) IsEqualTo(value float64) bool {
	element, err := encodeElement(c.Shape.DType, value)
	if err != nil {
		return false
	}
	for start := 0; start < len(c.data); start += len(element) {
		if !bytes.Equal(c.data[start:start+len(element)], element) {
			return false
		}
	}
	return true
}

// Attributes implements graph.Attributer.
func (c *ConstantOp) Attributes() map[string]any {
	size := c.Shape.Size()
	if size == 1 {
		return map[string]any{"value": c.Value(0)}
	}
	if size > 0 && c.IsEqualTo(c.Value(0)) {
		return map[string]any{"value": c.Value(0), "filled": true}
	}
	parts := make([]string, size)
	for i := range parts {
		parts[i] = fmt.Sprintf("%g", c.Value(i))
	}
	return map[string]any{"values": "[" + strings.Join(parts, ", ") + "]"}
}

// constantOf returns the ConstantOp of the node producing the value, or nil if it's not a constant.
func constantOf(value *graph.Output) *ConstantOp {
	c, _ := value.Node().Op().(*ConstantOp)
	return c
}

// IsEqualToConstValue returns whether value is produced by a constant with every element equal to v.
func IsEqualToConstValue(v float64, value *graph.Output) bool {
	c := constantOf(value)
	return c != nil && c.IsEqualTo(v)
}

// IsZero returns whether value is a constant filled with zeros.
func IsZero(value *graph.Output) bool { return IsEqualToConstValue(0, value) }

// IsOne returns whether value is a constant filled with ones.
func IsOne(value *graph.Output) bool { return IsEqualToConstValue(1, value) }

// CompareConstants returns whether both nodes are constants with the same shape and contents.
func CompareConstants(a, b *graph.Node) bool {
	ca, okA := a.Op().(*ConstantOp)
	cb, okB := b.Op().(*ConstantOp)
	if !okA || !okB {
		return false
	}
	return ca.Shape.Equal(cb.Shape) && bytes.Equal(ca.data, cb.data)
}
