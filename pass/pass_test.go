package pass

import (
	"testing"

	"github.com/gomlx/graphir/dtypes"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/ops"
	"github.com/gomlx/graphir/shapes"
	"github.com/google/go-cmp/cmp"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func init() {
	klog.InitFlags(nil)
}

func opNames(fn *graph.Function) []string {
	var names []string
	for _, n := range must.M1(fn.OrderedNodes()) {
		names = append(names, n.TypeInfo().Name)
	}
	return names
}

func TestNopElimination(t *testing.T) {
	x := graph.NewParameter(shapes.Make(dtypes.Float32, 2, 3))
	converted := must.M1(ops.Convert(x.Output(0), dtypes.Float32))
	reshaped := must.M1(ops.Reshape(converted, nil, []int{2, 3}))
	negated := must.M1(ops.Negative(reshaped))
	summed := must.M1(ops.Sum(negated, nil))
	fn := must.M1(graph.NewFunctionFromOutputs("nops", []*graph.Output{summed}, []*graph.Node{x}))

	manager := NewManager(Config{ValidateAfterEachPass: true, CheckCycles: true}).
		Register(NopElimination{}, ValidateGraph{})
	changed := must.M1(manager.Run(fn))
	assert.True(t, changed)
	if diff := cmp.Diff([]string{"Parameter", "Negative", "Result"}, opNames(fn)); diff != "" {
		t.Errorf("unexpected nodes after NopElimination (-want +got):\n%s", diff)
	}
	assert.Same(t, x, fn.Result(0).InputValue(0).Node().InputValue(0).Node())

	// The eliminated nodes no longer show up as users.
	assert.Equal(t, []*graph.Node{negated.Node()}, x.Users())
	assert.Equal(t, 0, converted.Node().NumInputs())

	// Nothing left to do.
	changed = must.M1(manager.Run(fn))
	assert.False(t, changed)
}

func TestNopEliminationMultipleOutputs(t *testing.T) {
	x := graph.NewParameter(shapes.Make(dtypes.Float32, 4, 5))
	topK := must.M1(ops.TopK(x.Output(0), 2, 1))
	indices := must.M1(ops.Convert(topK.Output(1), dtypes.Int64))
	guarded := must.M1(ops.Negative(topK.Output(0)))
	guarded.Node().AddControlDep(indices.Node())
	fn := must.M1(graph.NewFunctionFromOutputs("topk", []*graph.Output{topK.Output(0), indices, guarded}, []*graph.Node{x}))

	changed := must.M1(NopElimination{}.Run(fn))
	assert.True(t, changed)
	assert.Same(t, topK.Output(1), fn.Result(1).InputValue(0))
	assert.Equal(t, []*graph.Node{topK}, guarded.Node().ControlDeps(), "control dependents move to the input")
	assert.Equal(t, 0, indices.Node().NumInputs())
	require.NoError(t, fn.Validate())
}

func TestConstantDeduplication(t *testing.T) {
	x := graph.NewParameter(shapes.Make(dtypes.Float32, 2))
	c1 := must.M1(ops.Constant(shapes.Make(dtypes.Float32, 2), []float32{1, 2}))
	c2 := must.M1(ops.Constant(shapes.Make(dtypes.Float32, 2), []float32{1, 2}))
	c3 := must.M1(ops.Constant(shapes.Make(dtypes.Float32, 2), []float32{3, 4}))
	sum1 := must.M1(ops.Add(x.Output(0), c1))
	sum2 := must.M1(ops.Add(sum1, c2))
	sum3 := must.M1(ops.Add(sum2, c3))
	fn := must.M1(graph.NewFunctionFromOutputs("constants", []*graph.Output{sum3}, []*graph.Node{x}))

	changed := must.M1(ConstantDeduplication{}.Run(fn))
	assert.True(t, changed)
	assert.Len(t, must.M1(fn.OrderedNodes()), 7)
	assert.Same(t, sum1.Node().InputValue(1), sum2.Node().InputValue(1))
	assert.Equal(t, 0, c2.NumTargets())
	assert.Equal(t, 2, c1.NumTargets())
	assert.Same(t, c3, sum3.Node().InputValue(1))
	require.NoError(t, fn.Validate())
}

func TestConstantDeduplicationSkipsOverwritten(t *testing.T) {
	c1 := must.M1(ops.Constant(shapes.Make(dtypes.Float32, 2), []float32{1, 2}))
	c2 := must.M1(ops.Constant(shapes.Make(dtypes.Float32, 2), []float32{1, 2}))
	inPlace := graph.Annotations{InPlacePairs: []graph.InPlacePair{{Input: 0, Output: 0, Destructive: true}}}
	negated := must.M1(ops.Negative(c2, graph.WithAnnotations(inPlace)))
	sum := must.M1(ops.Add(c1, negated))
	fn := must.M1(graph.NewFunctionFromOutputs("overwritten", []*graph.Output{sum}, nil))

	assert.True(t, graph.PossiblyOverwritten(c2.Node()))
	changed := must.M1(ConstantDeduplication{}.Run(fn))
	assert.False(t, changed)
	assert.Same(t, c2, negated.Node().InputValue(0))
}

func TestManagerReportsInvalidFunction(t *testing.T) {
	x := graph.NewParameter(shapes.Make(dtypes.Float32, 2))
	undeclared := graph.NewParameter(shapes.Make(dtypes.Float32, 2))
	sum := must.M1(ops.Add(x.Output(0), undeclared.Output(0)))
	fn := must.M1(graph.NewFunctionFromOutputs("invalid", []*graph.Output{sum}, []*graph.Node{x}))

	manager := NewManager(Config{}).Register(ValidateGraph{})
	require.Len(t, manager.Passes(), 1)
	_, err := manager.Run(fn)
	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrGraphConsistency))
	assert.ErrorContains(t, err, "undeclared parameter")
	assert.ErrorContains(t, err, `pass "ValidateGraph"`)

	y := graph.NewParameter(shapes.Make(dtypes.Float32, 2))
	valid := must.M1(graph.NewFunctionFromOutputs("valid", []*graph.Output{y.Output(0)}, []*graph.Node{y}))
	_, err = manager.RunAll(valid, fn)
	require.Error(t, err)
	assert.ErrorContains(t, err, `"invalid"`)
}
