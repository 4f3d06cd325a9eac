// Package dtypes defines the element types carried by tensor descriptors in the graph IR.
//
// The numeric values follow the PJRT/XLA primitive types, so back-ends that lower to XLA can use them unchanged.
package dtypes

import (
	"math"
	"reflect"
	"strings"

	"github.com/chewxy/math32"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/graphir/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// DType is the element type of a tensor.
type DType int32

//go:generate go tool enumer -type DType -trimprefix=DType -output=gen_dtype_enumer.go dtypes.go

const (
	INVALID DType = 0
	PRED    DType = 1
	S8      DType = 2
	S16     DType = 3
	S32     DType = 4
	S64     DType = 5
	U8      DType = 6
	U16     DType = 7
	U32     DType = 8
	U64     DType = 9
	F16     DType = 10
	F32     DType = 11
	BF16    DType = 12
	F64     DType = 13
	C64     DType = 14
	C128    DType = 15
)

// Aliases to the dtypes above.
const (
	// Invalid (an alias for INVALID) represents an invalid (or not set) dtype.
	// In a tensor descriptor it means the element type is dynamic (not known yet).
	Invalid = INVALID

	// InvalidDType is the same as Invalid.
	InvalidDType = INVALID

	// Bool (an alias for PRED) is used as the output and input of logic operations.
	Bool = PRED

	Int8  = S8
	Int16 = S16
	Int32 = S32
	Int64 = S64

	Uint8  = U8
	Uint16 = U16
	Uint32 = U32
	Uint64 = U64

	Float16  = F16
	BFloat16 = BF16
	Float32  = F32
	Float64  = F64

	Complex64  = C64
	Complex128 = C128
)

// MapOfNames maps lower/upper-case names and aliases to the corresponding DType.
var MapOfNames = map[string]DType{}

func init() {
	aliases := map[DType][]string{
		Bool:       {"Bool", "Pred"},
		Int8:       {"Int8"},
		Int16:      {"Int16"},
		Int32:      {"Int32"},
		Int64:      {"Int64", "Int"},
		Uint8:      {"Uint8", "UInt8"},
		Uint16:     {"Uint16", "UInt16"},
		Uint32:     {"Uint32", "UInt32"},
		Uint64:     {"Uint64", "UInt64"},
		Float16:    {"Float16", "Half"},
		BFloat16:   {"BFloat16"},
		Float32:    {"Float32", "Float"},
		Float64:    {"Float64", "Double"},
		Complex64:  {"Complex64"},
		Complex128: {"Complex128"},
	}
	for _, dtype := range DTypeValues() {
		names := append([]string{dtype.String()}, aliases[dtype]...)
		for _, name := range names {
			MapOfNames[name] = dtype
			MapOfNames[strings.ToLower(name)] = dtype
		}
	}
}

// IsFloat returns whether dtype is a supported float -- float types not yet supported will return false.
// It returns false for complex numbers.
func (dtype DType) IsFloat() bool {
	return dtype == Float32 || dtype == Float64 || dtype == Float16 || dtype == BFloat16
}

// IsComplex returns whether dtype is a supported complex number type.
func (dtype DType) IsComplex() bool {
	return dtype == Complex64 || dtype == Complex128
}

// IsInt returns whether dtype is a supported integer type -- float types not yet supported will return false.
func (dtype DType) IsInt() bool {
	switch dtype {
	case Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64:
		return true
	}
	return false
}

// IsUnsigned returns whether dtype is one of the unsigned (only int for now) types.
func (dtype DType) IsUnsigned() bool {
	return dtype == Uint8 || dtype == Uint16 || dtype == Uint32 || dtype == Uint64
}

// IsNumber returns whether dtype can be used in arithmetic operations.
func (dtype DType) IsNumber() bool {
	return dtype.IsInt() || dtype.IsFloat() || dtype.IsComplex()
}

// IsStatic returns whether the dtype is known, that is, different from Invalid.
func (dtype DType) IsStatic() bool {
	return dtype != Invalid
}

// Size returns the number of bytes for the given DType, or 0 if the dtype uses fractions of bytes.
func (dtype DType) Size() int {
	switch dtype {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16, Float16, BFloat16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64, Complex64:
		return 8
	case Complex128:
		return 16
	}
	return 0
}

// Memory returns the number of bytes for the given DType.
// It's an alias to Size, converted to uintptr.
func (dtype DType) Memory() uintptr {
	return uintptr(dtype.Size())
}

// GoType returns the Go `reflect.Type` corresponding to the tensor DType.
func (dtype DType) GoType() reflect.Type {
	switch dtype {
	case Bool:
		return reflect.TypeOf(true)
	case Int8:
		return reflect.TypeOf(int8(0))
	case Int16:
		return reflect.TypeOf(int16(0))
	case Int32:
		return reflect.TypeOf(int32(0))
	case Int64:
		return reflect.TypeOf(int64(0))
	case Uint8:
		return reflect.TypeOf(uint8(0))
	case Uint16:
		return reflect.TypeOf(uint16(0))
	case Uint32:
		return reflect.TypeOf(uint32(0))
	case Uint64:
		return reflect.TypeOf(uint64(0))
	case Float16:
		return reflect.TypeOf(float16.Float16(0))
	case BFloat16:
		return reflect.TypeOf(bfloat16.BFloat16(0))
	case Float32:
		return reflect.TypeOf(float32(0))
	case Float64:
		return reflect.TypeOf(float64(0))
	case Complex64:
		return reflect.TypeOf(complex64(0))
	case Complex128:
		return reflect.TypeOf(complex128(0))
	}
	return nil
}

// FromGoType returns the DType for the given Go type, or Invalid if not supported.
func FromGoType(t reflect.Type) DType {
	if t == nil {
		return Invalid
	}
	switch t {
	case reflect.TypeOf(float16.Float16(0)):
		return Float16
	case reflect.TypeOf(bfloat16.BFloat16(0)):
		return BFloat16
	}
	switch t.Kind() {
	case reflect.Bool:
		return Bool
	case reflect.Int8:
		return Int8
	case reflect.Int16:
		return Int16
	case reflect.Int32:
		return Int32
	case reflect.Int64, reflect.Int:
		return Int64
	case reflect.Uint8:
		return Uint8
	case reflect.Uint16:
		return Uint16
	case reflect.Uint32:
		return Uint32
	case reflect.Uint64, reflect.Uint:
		return Uint64
	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64
	case reflect.Complex64:
		return Complex64
	case reflect.Complex128:
		return Complex128
	}
	return Invalid
}

// FromAny returns the DType of the given value, or Invalid if not supported.
func FromAny(value any) DType {
	return FromGoType(reflect.TypeOf(value))
}

// Merge combines two element types: a dynamic (Invalid) dtype takes the value of the other one.
// It fails if both are statically known and differ.
func Merge(a, b DType) (DType, error) {
	switch {
	case a == Invalid:
		return b, nil
	case b == Invalid, a == b:
		return a, nil
	}
	return Invalid, errors.Errorf("element types %s and %s are incompatible", a, b)
}

// Compatible returns whether Merge(a, b) would succeed.
func Compatible(a, b DType) bool {
	_, err := Merge(a, b)
	return err == nil
}

// HighestValue for dtype, returned as an `any` holding the Go type of the dtype.
// For float types it is +Inf. Complex numbers don't define it and return 0.
func (dtype DType) HighestValue() any {
	switch dtype {
	case Bool:
		return true
	case Int8:
		return int8(math.MaxInt8)
	case Int16:
		return int16(math.MaxInt16)
	case Int32:
		return int32(math.MaxInt32)
	case Int64:
		return int64(math.MaxInt64)
	case Uint8:
		return uint8(math.MaxUint8)
	case Uint16:
		return uint16(math.MaxUint16)
	case Uint32:
		return uint32(math.MaxUint32)
	case Uint64:
		return uint64(math.MaxUint64)
	case Float16:
		return float16.Inf(1)
	case BFloat16:
		return bfloat16.FromFloat32(math32.Inf(1))
	case Float32:
		return math32.Inf(1)
	case Float64:
		return math.Inf(1)
	case Complex64:
		return complex64(0)
	case Complex128:
		return complex128(0)
	}
	exceptions.Panicf("HighestValue not defined for dtype %s", dtype)
	return nil
}

// LowestValue for dtype, returned as an `any` holding the Go type of the dtype.
// For float types it is -Inf. Complex numbers don't define it and return 0.
func (dtype DType) LowestValue() any {
	switch dtype {
	case Bool:
		return false
	case Int8:
		return int8(math.MinInt8)
	case Int16:
		return int16(math.MinInt16)
	case Int32:
		return int32(math.MinInt32)
	case Int64:
		return int64(math.MinInt64)
	case Uint8:
		return uint8(0)
	case Uint16:
		return uint16(0)
	case Uint32:
		return uint32(0)
	case Uint64:
		return uint64(0)
	case Float16:
		return float16.Inf(-1)
	case BFloat16:
		return bfloat16.FromFloat32(math32.Inf(-1))
	case Float32:
		return math32.Inf(-1)
	case Float64:
		return math.Inf(-1)
	case Complex64:
		return complex64(0)
	case Complex128:
		return complex128(0)
	}
	exceptions.Panicf("LowestValue not defined for dtype %s", dtype)
	return nil
}

// SmallestNonZeroValueForDType is the smallest non-zero positive value that can be represented by the dtype.
// For integers it is 1, for bool it is true. Complex numbers return 0.
func (dtype DType) SmallestNonZeroValueForDType() any {
	switch dtype {
	case Bool:
		return true
	case Int8:
		return int8(1)
	case Int16:
		return int16(1)
	case Int32:
		return int32(1)
	case Int64:
		return int64(1)
	case Uint8:
		return uint8(1)
	case Uint16:
		return uint16(1)
	case Uint32:
		return uint32(1)
	case Uint64:
		return uint64(1)
	case Float16:
		return float16.Float16(0x0001)
	case BFloat16:
		return bfloat16.SmallestNonzero
	case Float32:
		return float32(math.SmallestNonzeroFloat32)
	case Float64:
		return math.SmallestNonzeroFloat64
	case Complex64:
		return complex64(0)
	case Complex128:
		return complex128(0)
	}
	exceptions.Panicf("SmallestNonZeroValueForDType not defined for dtype %s", dtype)
	return nil
}

// FromFloat64 converts a float64 value to the Go type of dtype, returned as `any`.
// It is used to materialize scalar literals (constants like 0 or 1) of any dtype.
func (dtype DType) FromFloat64(v float64) (any, error) {
	switch dtype {
	case Bool:
		return v != 0, nil
	case Int8:
		return int8(v), nil
	case Int16:
		return int16(v), nil
	case Int32:
		return int32(v), nil
	case Int64:
		return int64(v), nil
	case Uint8:
		return uint8(v), nil
	case Uint16:
		return uint16(v), nil
	case Uint32:
		return uint32(v), nil
	case Uint64:
		return uint64(v), nil
	case Float16:
		return float16.Fromfloat32(float32(v)), nil
	case BFloat16:
		return bfloat16.FromFloat64(v), nil
	case Float32:
		return float32(v), nil
	case Float64:
		return v, nil
	case Complex64:
		return complex(float32(v), 0), nil
	case Complex128:
		return complex(v, 0), nil
	}
	return nil, errors.Errorf("cannot convert literal %g to dtype %s", v, dtype)
}

// ToFloat64 converts a value of the Go type of a dtype (see GoType) to float64.
// Complex values return their real part.
func ToFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float16.Float16:
		return float64(v.Float32()), nil
	case bfloat16.BFloat16:
		return v.Float64(), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case complex64:
		return float64(real(v)), nil
	case complex128:
		return real(v), nil
	}
	return 0, errors.Errorf("value %v of type %T is not of a supported dtype", value, value)
}
