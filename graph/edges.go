package graph

import (
	"fmt"
	"slices"

	"github.com/gomlx/graphir/dtypes"
	"github.com/gomlx/graphir/shapes"
	"github.com/pkg/errors"
)

// Output is the numbered output of a node: a value of the graph, with its descriptor and the inputs consuming it.
type Output struct {
	node    *Node
	index   int
	shape   shapes.Shape
	targets []*Input
}

// Node returns the producer of the value.
func (o *Output) Node() *Node { return o.node }

// Index of the output in its node.
func (o *Output) Index() int { return o.index }

// Shape returns the descriptor of the value.
func (o *Output) Shape() shapes.Shape { return o.shape }

// DType returns the element type of the value.
func (o *Output) DType() dtypes.DType { return o.shape.DType }

// Targets returns the inputs consuming this output.
func (o *Output) Targets() []*Input { return slices.Clone(o.targets) }

// NumTargets returns the number of inputs consuming this output.
func (o *Output) NumTargets() int { return len(o.targets) }

// String implements fmt.Stringer.
func (o *Output) String() string {
	if len(o.node.outputs) == 1 {
		return o.node.String()
	}
	return fmt.Sprintf("%s:%d", o.node, o.index)
}

func (o *Output) addTarget(in *Input) {
	o.targets = append(o.targets, in)
}

// removeTarget removes the input from the targets, and returns its former position, or -1 if not found.
func (o *Output) removeTarget(in *Input) int {
	idx := slices.Index(o.targets, in)
	if idx >= 0 {
		o.targets = slices.Delete(o.targets, idx, idx+1)
	}
	return idx
}

func (o *Output) insertTarget(pos int, in *Input) {
	if pos < 0 || pos > len(o.targets) {
		o.targets = append(o.targets, in)
		return
	}
	o.targets = slices.Insert(o.targets, pos, in)
}

// Input is the numbered input of a node, connected to exactly one source Output.
type Input struct {
	node   *Node
	index  int
	source *Output
}

// Node returns the consumer node.
func (in *Input) Node() *Node { return in.node }

// Index of the input in its node.
func (in *Input) Index() int { return in.index }

// Source returns the output feeding this input.
func (in *Input) Source() *Output { return in.source }

// Shape returns the descriptor of the value flowing through the input.
func (in *Input) Shape() shapes.Shape { return in.source.shape }

// String implements fmt.Stringer.
func (in *Input) String() string {
	return fmt.Sprintf("%s.in%d<-%s", in.node, in.index, in.source)
}

// ReplaceSourceOutput connects the input to a new source, and re-runs inference downstream.
//
// If inference fails, the edge is restored and the error is returned.
func (in *Input) ReplaceSourceOutput(source *Output) error {
	if source == nil {
		return Errorf(ErrStructural, in.node, "ReplaceSourceOutput(nil) for input #%d", in.index)
	}
	m := &mutation{}
	m.rewire(in, source)
	return m.commit()
}

// ReplaceOutputUsers connects every consumer of from to the output to instead, and re-runs inference
// downstream. Either all consumers are moved or, if inference fails, none is.
func ReplaceOutputUsers(from, to *Output) error {
	if from == nil || to == nil {
		return Errorf(ErrStructural, nil, "ReplaceOutputUsers() given a nil output")
	}
	m := &mutation{}
	for _, in := range from.Targets() {
		m.rewire(in, to)
	}
	if err := m.commit(); err != nil {
		return errors.WithMessagef(err, "ReplaceOutputUsers(%s, %s)", from, to)
	}
	return nil
}

// setSource moves the input from its current source to the new one, keeping both target lists consistent.
// It returns the position the input had in the former source's targets.
func (in *Input) setSource(source *Output) int {
	pos := in.source.removeTarget(in)
	in.source = source
	source.addTarget(in)
	return pos
}
