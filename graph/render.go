package graph

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/gomlx/graphir/dtypes"
	"github.com/gomlx/graphir/optypes"
	"github.com/gomlx/graphir/shapes"
)

// Attributer is implemented by ops that want their configuration rendered by Function.String.
type Attributer interface {
	Attributes() map[string]any
}

// String renders the function in a StableHLO-like text format, for debugging and tests.
// It is not a serialization format: it can't be parsed back.
func (fn *Function) String() string {
	var sb strings.Builder
	if err := fn.Write(&sb); err != nil {
		return fmt.Sprintf("failed to render function %q: %+v", fn.name, err)
	}
	return sb.String()
}

// Write renders the function in a StableHLO-like text format to the given writer. See String.
func (fn *Function) Write(writer io.Writer) error {
	nodes, err := fn.OrderedNodes()
	if err != nil {
		return err
	}
	var wErr error
	w := func(format string, args ...any) {
		if wErr != nil {
			// No op if an error was encountered earlier
			return
		}
		_, wErr = fmt.Fprintf(writer, format, args...)
	}

	names := make(map[*Output]string)
	for i, parameter := range fn.parameters {
		names[parameter.outputs[0]] = fmt.Sprintf("%%arg%d", i)
	}
	w("func.func @%s(", fn.name)
	for i, parameter := range fn.parameters {
		if i > 0 {
			w(", ")
		}
		w("%s: %s", names[parameter.outputs[0]], parameter.outputs[0].shape.ToStableHLO())
	}
	w(") -> (")
	for i, result := range fn.results {
		if i > 0 {
			w(", ")
		}
		w("%s", result.outputs[0].shape.ToStableHLO())
	}
	w(") {\n")

	nextID := 0
	valueName := func(o *Output) string {
		if name, found := names[o]; found {
			return name
		}
		return "%?"
	}
	for _, n := range nodes {
		if n.IsOutput() {
			continue
		}
		if n.IsParameter() {
			if _, declared := names[n.outputs[0]]; declared {
				continue
			}
		}
		for _, output := range n.outputs {
			names[output] = fmt.Sprintf("%%%d", nextID)
			nextID++
		}
		w("  ")
		for i, output := range n.outputs {
			if i > 0 {
				w(", ")
			}
			w("%s", names[output])
		}
		if len(n.outputs) > 0 {
			w(" = ")
		}
		w("%q(", opName(n))
		for i, in := range n.inputs {
			if i > 0 {
				w(", ")
			}
			w("%s", valueName(in.source))
		}
		w(")")
		if attributer, ok := n.op.(Attributer); ok {
			writeAttributes(w, attributer.Attributes())
		}
		w(" : (")
		for i, in := range n.inputs {
			if i > 0 {
				w(", ")
			}
			w("%s", in.source.shape.ToStableHLO())
		}
		w(") -> (")
		for i, output := range n.outputs {
			if i > 0 {
				w(", ")
			}
			w("%s", output.shape.ToStableHLO())
		}
		w(")\n")
	}

	w("  %q(", optypes.Result.ToStableHLO())
	for i, result := range fn.results {
		if i > 0 {
			w(", ")
		}
		w("%s", valueName(result.inputs[0].source))
	}
	w(") : (")
	for i, result := range fn.results {
		if i > 0 {
			w(", ")
		}
		w("%s", result.inputs[0].source.shape.ToStableHLO())
	}
	w(") -> ()\n}")
	return wErr
}

// opName returns the rendered name of the op: the StableHLO name for built-in ops, the TypeInfo otherwise.
func opName(n *Node) string {
	info := n.TypeInfo()
	if opType, err := optypes.OpTypeString(info.Name); err == nil && info.Version == 0 {
		return opType.ToStableHLO()
	}
	return info.String()
}

func writeAttributes(w func(format string, args ...any), attributes map[string]any) {
	if len(attributes) == 0 {
		return
	}
	keys := make([]string, 0, len(attributes))
	for key := range attributes {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	w("{")
	for i, key := range keys {
		if i > 0 {
			w(", ")
		}
		w("%s = %s", key, literalToStableHLO(attributes[key]))
	}
	w("}")
}

// literalToStableHLO converts a literal value, usually used in attributes, to its StableHLO-like string representation.
func literalToStableHLO(attr any) string {
	switch v := attr.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case float32, float64:
		shape := shapes.Make(dtypes.FromAny(v))
		return fmt.Sprintf("dense<%e> : %s", v, shape.ToStableHLO())
	case int, int8, int16, int32, int64, uint8, uint16, uint32, uint64:
		shape := shapes.Make(dtypes.FromAny(v))
		return fmt.Sprintf("dense<%d> : %s", v, shape.ToStableHLO())
	case bool:
		if v {
			return "true"
		}
		return "false"
	case []int:
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = fmt.Sprintf("%d", x)
		}
		return fmt.Sprintf("array<i64: %s>", strings.Join(parts, ", "))
	case shapes.Shape:
		return v.ToStableHLO()
	case dtypes.DType:
		return shapes.DTypeToStableHLO(v)
	case fmt.Stringer:
		return fmt.Sprintf("%q", v.String())
	default:
		return fmt.Sprintf("%v", v)
	}
}
