package graph_test

import (
	"testing"

	"github.com/gomlx/graphir/dtypes"
	. "github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/ops"
	"github.com/gomlx/graphir/shapes"
	"github.com/google/go-cmp/cmp"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceNode(t *testing.T) {
	x := NewParameter(shapes.Make(dtypes.Float32, 3))
	target := must.M1(ops.Negative(x.Output(0), WithProvenanceTags("original")))
	user := must.M1(ops.Sign(target))
	dependent := must.M1(ops.Negative(x.Output(0)))
	dependent.Node().AddControlDep(target.Node())
	replacement := must.M1(ops.Add(x.Output(0), x.Output(0)))

	require.NoError(t, ReplaceNode(target.Node(), replacement.Node()))
	assert.Same(t, replacement, user.Node().InputValue(0))
	assert.Empty(t, target.Node().Users())
	assert.Equal(t, []*Node{user.Node()}, replacement.Node().Users())
	assert.Equal(t, []string{"original"}, replacement.Node().ProvenanceTags())
	assert.Empty(t, x.ProvenanceTags(), "shared arguments don't get the tags")
	assert.Equal(t, []*Node{replacement.Node()}, dependent.Node().ControlDeps())
	assert.Empty(t, target.Node().ControlDependents())

	// Replacing with a node built on top of the target.
	x2 := NewParameter(shapes.Make(dtypes.Float32, 3))
	a := must.M1(ops.Negative(x2.Output(0)))
	consumer := must.M1(ops.Sign(a))
	inserted := must.M1(ops.Negative(a))
	require.NoError(t, ReplaceNode(a.Node(), inserted.Node()))
	assert.Same(t, inserted, consumer.Node().InputValue(0))
	assert.Same(t, a, inserted.Node().InputValue(0))
	assert.Equal(t, []*Node{inserted.Node()}, a.Node().Users())
}

func TestReplaceNodeErrors(t *testing.T) {
	x := NewParameter(shapes.Make(dtypes.Float32, 4, 3))
	topK := must.M1(ops.TopK(x.Output(0), 2, 1))
	values := must.M1(ops.Negative(topK.Output(0)))
	single := must.M1(ops.Negative(x.Output(0)))

	// Arity mismatch: nothing changes.
	err := ReplaceNode(topK, single.Node())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStructural))
	assert.Contains(t, err.Error(), "arity mismatch")
	assert.Same(t, topK.Output(0), values.Node().InputValue(0))
	assert.Equal(t, []*Node{values.Node()}, topK.Users())
	assert.Empty(t, single.Node().Users())

	// No users.
	err = ReplaceNode(single.Node(), values.Node())
	assert.True(t, errors.Is(err, ErrStructural))

	// Results.
	result := must.M1(NewResult(values))
	err = ReplaceNode(result, single.Node())
	assert.True(t, errors.Is(err, ErrStructural))
}

func TestReplaceNodeRollback(t *testing.T) {
	x := NewParameter(shapes.Make(dtypes.Float32, 3))
	y := NewParameter(shapes.Make(dtypes.Float32, 4))
	negated := must.M1(ops.Negative(x.Output(0)))
	sum := must.M1(ops.Add(negated, x.Output(0)))
	fn := must.M1(NewFunctionFromOutputs("f", []*Output{sum}, []*Node{x}))
	before := fn.String()

	err := fn.ReplaceNode(negated.Node(), y)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Same(t, negated, sum.Node().InputValue(0))
	assert.Empty(t, y.Users())
	assert.Equal(t, []*Node{sum.Node()}, negated.Node().Users())
	assert.Equal(t, StateValidated, sum.Node().State())
	if diff := cmp.Diff(before, fn.String()); diff != "" {
		t.Errorf("function changed after failed ReplaceNode (-before +after):\n%s", diff)
	}
	checkEdges(t, fn)
}

func TestReplaceNodes(t *testing.T) {
	x := NewParameter(shapes.Make(dtypes.Float32, 3))
	negated := must.M1(ops.Negative(x.Output(0)))
	fn := must.M1(NewFunctionFromOutputs("f", []*Output{negated}, []*Node{x}))

	x2 := NewParameter(shapes.Make(dtypes.Float32, 3))
	sign := must.M1(ops.Sign(x2.Output(0)))
	require.NoError(t, ReplaceNodes(fn,
		map[*Node]*Node{x: x2},
		map[*Node]*Node{negated.Node(): sign.Node(), x: x}))
	assert.Same(t, x2, fn.Parameter(0))
	assert.Same(t, sign, fn.Result(0).InputValue(0))
	assert.Equal(t, 1, fn.NumParameters())

	err := fn.ReplaceParameter(1, x)
	assert.True(t, errors.Is(err, ErrStructural))
	err = fn.ReplaceParameter(0, sign.Node())
	assert.True(t, errors.Is(err, ErrStructural))
}

func TestReplaceNodesAtomic(t *testing.T) {
	x := NewParameter(shapes.Make(dtypes.Float32, 4, 3))
	negated := must.M1(ops.Negative(x.Output(0)))
	topK := must.M1(ops.TopK(negated, 2, 1))
	values := must.M1(ops.Sign(topK.Output(0)))
	fn := must.M1(NewFunctionFromOutputs("f", []*Output{values}, []*Node{x}))
	before := fn.String()

	x2 := NewParameter(shapes.Make(dtypes.Float32, 4, 3))
	sign := must.M1(ops.Sign(x.Output(0)))
	single := must.M1(ops.Negative(negated))

	// The second pair has an arity mismatch: the first one and the parameters are left untouched.
	err := ReplaceNodes(fn,
		map[*Node]*Node{x: x2},
		map[*Node]*Node{negated.Node(): sign.Node(), topK: single.Node()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStructural))
	assert.Contains(t, err.Error(), "arity mismatch")
	assert.Same(t, x, fn.Parameter(0))
	assert.Same(t, negated, topK.InputValue(0))
	assert.Empty(t, sign.Node().Users())
	assert.Equal(t, StateValidated, topK.State())
	if diff := cmp.Diff(before, fn.String()); diff != "" {
		t.Errorf("function changed after failed ReplaceNodes (-before +after):\n%s", diff)
	}

	// TopK inference fails downstream of the second pair (k > 1): the first one is rolled back too.
	narrow := NewParameter(shapes.Make(dtypes.Float32, 4, 1))
	narrowNegated := must.M1(ops.Negative(narrow.Output(0)))
	err = ReplaceNodes(fn,
		map[*Node]*Node{x: x2},
		map[*Node]*Node{x: x2, negated.Node(): narrowNegated.Node()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Same(t, x, fn.Parameter(0))
	assert.Same(t, x.Output(0), negated.Node().InputValue(0))
	assert.Same(t, negated, topK.InputValue(0))
	assert.Empty(t, x2.Users())
	assert.Empty(t, narrowNegated.Node().Users())
	if diff := cmp.Diff(before, fn.String()); diff != "" {
		t.Errorf("function changed after failed ReplaceNodes (-before +after):\n%s", diff)
	}
	checkEdges(t, fn)

	// A non-Parameter replacement of a parameter is rejected before any edit.
	err = ReplaceNodes(fn, map[*Node]*Node{x: sign.Node()}, map[*Node]*Node{negated.Node(): sign.Node()})
	assert.True(t, errors.Is(err, ErrStructural))
	assert.Same(t, negated, topK.InputValue(0))
}

func TestInsertResultParameterSplit(t *testing.T) {
	x := NewParameter(shapes.Make(dtypes.Float32, 3))
	src := must.M1(ops.Negative(x.Output(0), WithPlacement("cpu")))
	dst := must.M1(ops.Sign(src, WithPlacement("gpu")))

	result, parameter, err := InsertResultParameterSplit(src.Node(), dst.Node())
	require.NoError(t, err)
	assert.True(t, result.IsOutput())
	assert.True(t, parameter.IsParameter())
	assert.Equal(t, "cpu", result.Placement())
	assert.Equal(t, "gpu", parameter.Placement())
	assert.Same(t, parameter.Output(0), dst.Node().InputValue(0))
	assert.Same(t, src, result.InputValue(0))
	assert.Equal(t, []*Node{result}, src.Node().Users())
	assert.True(t, parameter.OutputShape(0).Equal(src.Shape()))

	// Two edges between the nodes.
	twice := must.M1(ops.Add(src, src))
	_, _, err = InsertResultParameterSplit(src.Node(), twice.Node())
	assert.True(t, errors.Is(err, ErrStructural))

	// Multiple outputs.
	matrix := NewParameter(shapes.Make(dtypes.Float32, 4, 3))
	topK := must.M1(ops.TopK(matrix.Output(0), 1, 1))
	values := must.M1(ops.Negative(topK.Output(0)))
	_, _, err = InsertResultParameterSplit(topK, values.Node())
	assert.True(t, errors.Is(err, ErrStructural))
}

func TestInsertNewNodeBetween(t *testing.T) {
	x := NewParameter(shapes.Make(dtypes.Float32, 3))
	src := must.M1(ops.Negative(x.Output(0)))
	dst := must.M1(ops.Sign(src))
	newNode := must.M1(ops.Negative(src))

	require.NoError(t, InsertNewNodeBetween(src.Node(), dst.Node(), newNode.Node()))
	assert.Same(t, newNode, dst.Node().InputValue(0))
	assert.Equal(t, []*Node{newNode.Node()}, src.Node().Users())

	// src no longer feeds dst.
	err := InsertNewNodeBetween(src.Node(), dst.Node(), newNode.Node())
	assert.True(t, errors.Is(err, ErrStructural))
}

func TestCloneFunction(t *testing.T) {
	x := NewParameter(shapes.Make(dtypes.Float32, 3), WithFriendlyName("x"))
	negated := must.M1(ops.Negative(x.Output(0), WithFriendlyName("negated"), WithProvenanceTags("layer1")))
	sum := must.M1(ops.Add(negated, x.Output(0)))
	fn := must.M1(NewFunctionFromOutputs("f", []*Output{sum}, []*Node{x}))

	nodeMap := make(NodeMap)
	clone := must.M1(CloneFunction(fn, nodeMap))
	require.NoError(t, clone.Validate())
	assert.Equal(t, fn.Name(), clone.Name())
	assert.Len(t, clone.Nodes(), len(fn.Nodes()))
	if diff := cmp.Diff(fn.String(), clone.String()); diff != "" {
		t.Errorf("clone renders differently (-original +clone):\n%s", diff)
	}

	clonedX := clone.Parameter(0)
	assert.NotSame(t, x, clonedX)
	assert.Same(t, nodeMap[x], clonedX)
	assert.Equal(t, "x", clonedX.FriendlyName())
	clonedNegated := nodeMap[negated.Node()]
	assert.Equal(t, "negated", clonedNegated.FriendlyName())
	assert.Equal(t, []string{"layer1"}, clonedNegated.ProvenanceTags())
	clonedSum := nodeMap[sum.Node()]
	assert.False(t, clonedSum.HasFriendlyName())
	assert.Equal(t, clonedSum.Name(), clonedSum.FriendlyName())
	assert.Equal(t, []*Node{negated.Node(), sum.Node()}, x.Users(), "original is untouched")
	require.NoError(t, fn.Validate())

	// Placement and annotations are carried over, without aliasing.
	c := must.M1(ops.ConstantFilled(shapes.Make(dtypes.Float32, 3), 1, WithPlacement("gpu")))
	y := NewParameter(shapes.Make(dtypes.Float32, 3), WithPlacement("gpu"))
	inPlace := Annotations{InPlacePairs: []InPlacePair{{Input: 0, Output: 0, Destructive: true}}}
	accumulated := must.M1(ops.Add(c, y.Output(0), WithAnnotations(inPlace), WithPlacement("gpu")))
	fn2 := must.M1(NewFunctionFromOutputs("g", []*Output{accumulated}, []*Node{y}))
	nodeMap = make(NodeMap)
	_ = must.M1(CloneFunction(fn2, nodeMap))
	clonedC := nodeMap[c.Node()]
	clonedAccumulated := nodeMap[accumulated.Node()]
	assert.True(t, PossiblyOverwritten(clonedC))
	assert.Equal(t, "gpu", clonedC.Placement())
	assert.Equal(t, "gpu", nodeMap[y].Placement())
	assert.Equal(t, "gpu", clonedAccumulated.Placement())
	if diff := cmp.Diff(inPlace, clonedAccumulated.Annotations()); diff != "" {
		t.Errorf("cloned annotations differ (-want +got):\n%s", diff)
	}
	clonedAccumulated.Annotations().InPlacePairs[0].Destructive = false
	assert.True(t, accumulated.Node().Annotations().InPlacePairs[0].Destructive, "annotations are not shared")
}

func TestCloneNodes(t *testing.T) {
	x := NewParameter(shapes.Make(dtypes.Float32, 3))
	negated := must.M1(ops.Negative(x.Output(0)))
	sign := must.M1(ops.Sign(negated))
	sign.Node().AddControlDep(x)

	// Pre-seeded map: clones are built on top of y.
	y := NewParameter(shapes.Make(dtypes.Float32, 3))
	nodeMap := NodeMap{x: y}
	clones := must.M1(CloneNodes([]*Node{sign.Node(), negated.Node()}, nodeMap))
	require.Len(t, clones, 2)
	assert.Same(t, clones[1].Output(0), clones[0].InputValue(0))
	assert.Same(t, y.Output(0), clones[1].InputValue(0))
	assert.Equal(t, []*Node{y}, clones[0].ControlDeps())
	assert.Same(t, y, nodeMap[x])

	// Missing producer.
	_, err := CloneNodes([]*Node{sign.Node()}, NodeMap{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStructural))
}

func TestSubgraphs(t *testing.T) {
	x := NewParameter(shapes.Make(dtypes.Float32, 3))
	a := must.M1(ops.Negative(x.Output(0)))
	b := must.M1(ops.Sign(a))
	unused := must.M1(ops.Negative(a))
	_ = must.M1(NewResult(b))

	nodes := []*Node{x, a.Node()}
	assert.Equal(t, []*Node{a.Node()}, GetSubgraphOutputs(nodes, nil, true, false))
	assert.Equal(t, []*Node{a.Node()}, GetSubgraphOutputs(nodes, nil, false, false))
	assert.Equal(t, []*Node{a.Node(), a.Node()}, GetSubgraphOutputs(nodes, nil, false, true))
	assert.Empty(t, GetSubgraphOutputs(nodes, []*Node{a.Node()}, false, false))

	assert.True(t, IsUsed(b.Node()))
	assert.False(t, IsUsed(unused.Node()))
	assert.Equal(t, 1, UserCount(a.Node()))

	assert.ElementsMatch(t, []*Node{b.Node(), a.Node()}, ExtractSubgraph([]*Node{b.Node()}, []*Node{x}))
	assert.ElementsMatch(t, []*Node{b.Node(), a.Node(), x}, ExtractSubgraph([]*Node{b.Node()}, nil))
}

func TestIsPostDominated(t *testing.T) {
	x := NewParameter(shapes.Make(dtypes.Float32, 3))
	a := must.M1(ops.Negative(x.Output(0)))
	b := must.M1(ops.Sign(a))
	_ = must.M1(NewResult(b))
	assert.True(t, IsPostDominated(a.Node(), b.Node()))
	assert.True(t, IsPostDominated(x, a.Node()))

	bypass := must.M1(ops.Negative(a))
	_ = must.M1(NewResult(bypass))
	assert.False(t, IsPostDominated(a.Node(), b.Node()))
	assert.False(t, IsPostDominated(x, b.Node()))
	assert.True(t, IsPostDominated(x, a.Node()))
}

func TestPossiblyOverwritten(t *testing.T) {
	c := must.M1(ops.ConstantFilled(shapes.Make(dtypes.Float32, 3), 1))
	assert.False(t, PossiblyOverwritten(c.Node()))
	_ = must.M1(ops.Negative(c, WithAnnotations(Annotations{
		InPlacePairs: []InPlacePair{{Input: 0, Output: 0}},
	})))
	assert.False(t, PossiblyOverwritten(c.Node()))
	_ = must.M1(ops.Negative(c, WithAnnotations(Annotations{
		InPlacePairs: []InPlacePair{{Input: 0, Output: 0, Destructive: true}},
	})))
	assert.True(t, PossiblyOverwritten(c.Node()))
}

func TestErase(t *testing.T) {
	x := NewParameter(shapes.Make(dtypes.Float32, 3))
	a := must.M1(ops.Negative(x.Output(0)))
	b := must.M1(ops.Sign(a))
	kept := must.M1(ops.Negative(x.Output(0)))
	result := must.M1(NewResult(kept))

	err := Erase(a.Node())
	assert.True(t, errors.Is(err, ErrStructural), "a is still used by b")
	err = Erase(result)
	assert.True(t, errors.Is(err, ErrStructural))

	require.NoError(t, Erase(b.Node()))
	assert.Equal(t, 0, b.Node().NumInputs())
	assert.Equal(t, StateErased, b.Node().State())
	assert.Equal(t, "Erased", b.Node().State().String())
	assert.Equal(t, 0, a.Node().NumInputs(), "a was left without users, so it's erased too")
	assert.Equal(t, []*Node{kept.Node()}, x.Users())
	assert.Equal(t, 1, x.NumOutputs(), "parameters are never erased")

	// Control dependents keep a node alive.
	guarded := must.M1(ops.Sign(x.Output(0)))
	kept.Node().AddControlDep(guarded.Node())
	err = Erase(guarded.Node())
	assert.True(t, errors.Is(err, ErrStructural))
}
