package graph

import (
	"fmt"
	"strings"

	"github.com/gomlx/graphir/shapes"
	"github.com/pkg/errors"
)

// Kinds of errors reported by the graph IR. Use errors.Is to test for them.
var (
	// ErrValidation is reported by ValidateAndInferTypes on type or shape mismatches.
	ErrValidation = errors.New("validation error")

	// ErrStructural is reported by the surgery primitives: arity mismatches, ambiguous edges,
	// replacing unreachable or result nodes, inconsistent clone maps.
	ErrStructural = errors.New("structural invariant error")

	// ErrGraphConsistency is reported by Function.Validate: undeclared parameters or users outside the function.
	ErrGraphConsistency = errors.New("graph consistency error")

	// ErrAutodiffUnsupported is reported when differentiating through an operator configuration without an adjoint rule.
	ErrAutodiffUnsupported = errors.New("autodiff unsupported configuration")

	// ErrCycle is reported when an ordering is requested for a set of nodes that contains a cycle.
	ErrCycle = errors.New("cycle detected")
)

// Error is the error returned by the graph IR operations. Kind is one of the sentinel errors
// above, and it is returned by Unwrap.
type Error struct {
	Kind error
	Node *Node
	Msg  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Node == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: node %s: %s", e.Kind, e.Node, e.Msg)
}

// Unwrap returns the Kind of the error.
func (e *Error) Unwrap() error { return e.Kind }

// Errorf creates a new *Error of the given kind, with a stack trace.
func Errorf(kind error, node *Node, format string, args ...any) error {
	return errors.WithStack(&Error{Kind: kind, Node: node, Msg: fmt.Sprintf(format, args...)})
}

// NodeValidationError is returned by ValidateAndInferTypes implementations when the inputs of a node
// are not acceptable. It carries the conflicting descriptors.
type NodeValidationError struct {
	Node        *Node
	Msg         string
	Descriptors []shapes.Shape
}

// Error implements the error interface.
func (e *NodeValidationError) Error() string {
	parts := make([]string, 0, len(e.Descriptors))
	for _, d := range e.Descriptors {
		parts = append(parts, d.String())
	}
	return fmt.Sprintf("%s: node %s: %s (descriptors: %s)", ErrValidation, e.Node, e.Msg, strings.Join(parts, ", "))
}

// Unwrap returns ErrValidation.
func (e *NodeValidationError) Unwrap() error { return ErrValidation }

// ValidationErrorf returns a *NodeValidationError for the node, carrying the descriptors of all its inputs.
// It is meant to be used from ValidateAndInferTypes.
func (n *Node) ValidationErrorf(format string, args ...any) error {
	descriptors := make([]shapes.Shape, n.NumInputs())
	for i := range descriptors {
		descriptors[i] = n.InputShape(i)
	}
	return NewValidationError(n, descriptors, format, args...)
}

// NewValidationError returns a *NodeValidationError (with a stack trace) for the given node and conflicting descriptors.
func NewValidationError(n *Node, descriptors []shapes.Shape, format string, args ...any) error {
	return errors.WithStack(&NodeValidationError{Node: n, Msg: fmt.Sprintf(format, args...), Descriptors: descriptors})
}
