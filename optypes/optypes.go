// Package optypes defines OpType and lists the built-in operator kinds.
//
// Operators outside this list can still be registered with graph.RegisterOp, using their own names.
package optypes

import (
	"strings"
	"unicode"
)

// OpType is an enum of the built-in operator kinds.
type OpType int

//go:generate go tool enumer -type OpType optypes.go

const (
	Invalid OpType = iota
	Parameter
	Result
	Constant

	Add
	Subtract
	Multiply
	Divide
	Minimum
	Maximum
	Less
	NotEqual

	Negative
	Sign
	Not
	Convert

	Broadcast
	Sum
	Reshape
	Reverse
	TopK

	// Last should always be kept the last, it is used as a counter/marker.
	Last
)

var stableHLONames = map[OpType]string{
	Result:   "func.return",
	Less:     "stablehlo.compare",
	NotEqual: "stablehlo.compare",
	Negative: "stablehlo.negate",
	Sum:      "stablehlo.reduce",
	TopK:     "chlo.top_k",
}

// ToStableHLO returns the name used when rendering the op, e.g.: "stablehlo.add".
func (op OpType) ToStableHLO() string {
	if name, found := stableHLONames[op]; found {
		return name
	}
	return "stablehlo." + camelToSnake(op.String())
}

// Name returns the op name used in graph.TypeInfo for the built-in op.
func (op OpType) Name() string {
	return op.String()
}

func camelToSnake(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteRune('_')
			}
			r = unicode.ToLower(r)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
