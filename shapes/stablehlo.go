package shapes

import (
	"fmt"
	"io"
	"strings"

	"github.com/gomlx/graphir/dtypes"
)

// ToStableHLO returns the StableHLO-like representation of the shape's type, used when rendering functions.
func (s Shape) ToStableHLO() string {
	var sb strings.Builder
	_ = s.WriteStableHLO(&sb)
	return sb.String()
}

// WriteStableHLO writes the StableHLO-like representation of the shape's type to the given writer.
// Unknown dimensions are written as "?" and an unknown rank as "*".
func (s Shape) WriteStableHLO(writer io.Writer) error {
	var err error
	w := func(format string, args ...any) {
		if err != nil {
			// No op if an error was encountered earlier
			return
		}
		_, err = fmt.Fprintf(writer, format, args...)
	}

	w("tensor<")
	if s.UnknownRank {
		w("*x")
	} else if s.Rank() > 0 {
		for i, dim := range s.Dimensions {
			if i > 0 {
				w("x")
			}
			w("%s", dimString(dim))
		}
		w("x")
	}
	w("%s>", DTypeToStableHLO(s.DType))
	return err
}

// DTypeToStableHLO returns the StableHLO name of the element type.
func DTypeToStableHLO(dtype dtypes.DType) string {
	switch dtype {
	case dtypes.InvalidDType:
		return "?"
	case dtypes.F64:
		return "f64"
	case dtypes.F32:
		return "f32"
	case dtypes.F16:
		return "f16"
	case dtypes.BF16:
		return "bf16"
	case dtypes.S64:
		return "si64"
	case dtypes.S32:
		return "si32"
	case dtypes.S16:
		return "si16"
	case dtypes.S8:
		return "si8"
	case dtypes.U64:
		return "ui64"
	case dtypes.U32:
		return "ui32"
	case dtypes.U16:
		return "ui16"
	case dtypes.U8:
		return "ui8"
	case dtypes.Bool:
		return "i1"
	case dtypes.C64:
		return "complex<f32>"
	case dtypes.C128:
		return "complex<f64>"
	default:
		return fmt.Sprintf("unknown_dtype<%s>", dtype.String())
	}
}
