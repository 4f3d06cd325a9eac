package ops_test

import (
	"testing"

	"github.com/gomlx/graphir/dtypes"
	"github.com/gomlx/graphir/graph"
	. "github.com/gomlx/graphir/ops"
	"github.com/gomlx/graphir/optypes"
	"github.com/gomlx/graphir/shapes"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func parameter(dtype dtypes.DType, dims ...int) *graph.Output {
	return graph.NewParameter(shapes.Make(dtype, dims...)).Output(0)
}

func TestBinaryOps(t *testing.T) {
	x := parameter(dtypes.Float32, 2, 3)
	y := parameter(dtypes.Float32, 2, 3)
	for _, fn := range []func(x, y *graph.Output, options ...graph.NodeOption) (*graph.Output, error){
		Add, Subtract, Multiply, Divide, Minimum, Maximum,
	} {
		out := must.M1(fn(x, y))
		assert.True(t, out.Shape().Equal(shapes.Make(dtypes.Float32, 2, 3)), "got %s", out.Shape())
	}

	less := must.M1(Less(x, y))
	assert.Equal(t, dtypes.Bool, less.DType())
	notEqual := must.M1(NotEqual(x, y))
	assert.Equal(t, "(PRED)[2 3]", notEqual.Shape().String())

	// Shapes must match without broadcasting.
	z := parameter(dtypes.Float32, 3)
	_, err := Add(x, z)
	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrValidation))

	// DTypes must match.
	_, err = Multiply(x, parameter(dtypes.Int32, 2, 3))
	require.Error(t, err)
	assert.ErrorContains(t, err, "element type")

	// Arithmetic over booleans is rejected.
	_, err = Add(less, less)
	require.Error(t, err)
	assert.ErrorContains(t, err, "boolean")

	_, err = NewBinary(optypes.Negative, graph.AutoBroadcastNone, x, y)
	require.Error(t, err)
}

func TestBinaryOpsNumpyBroadcast(t *testing.T) {
	a := parameter(dtypes.Float32, 2, 3)
	b := parameter(dtypes.Float32, 3)
	sum := must.M1(NewBinary(optypes.Add, graph.AutoBroadcastNumpy, a, b))
	assert.Equal(t, []int{2, 3}, sum.Shape().Dimensions)

	op := sum.Node().Op().(graph.Broadcaster)
	assert.Equal(t, graph.AutoBroadcastNumpy, op.AutoBroadcast())

	_, err := NewBinary(optypes.Add, graph.AutoBroadcastNumpy, a, parameter(dtypes.Float32, 4))
	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrValidation))
}

func TestBinaryOpsDynamic(t *testing.T) {
	a := parameter(dtypes.Float32, shapes.UnknownDim, 3)
	b := parameter(dtypes.Float32, 5, shapes.UnknownDim)
	sum := must.M1(Add(a, b))
	assert.Equal(t, []int{5, 3}, sum.Shape().Dimensions)

	c := graph.NewParameter(shapes.DynamicRank(dtypes.Float32)).Output(0)
	sum = must.M1(Add(a, c))
	assert.Equal(t, []int{shapes.UnknownDim, 3}, sum.Shape().Dimensions)
}

func TestUnaryOps(t *testing.T) {
	x := parameter(dtypes.Float32, 4)
	assert.True(t, must.M1(Negative(x)).Shape().Equal(x.Shape()))
	assert.True(t, must.M1(Sign(x)).Shape().Equal(x.Shape()))

	_, err := Not(x)
	require.Error(t, err)
	assert.ErrorContains(t, err, "boolean")

	b := parameter(dtypes.Bool, 4)
	assert.Equal(t, dtypes.Bool, must.M1(Not(b)).DType())
	_, err = Negative(b)
	require.Error(t, err)
	_, err = Negative(parameter(dtypes.Uint8, 4))
	require.Error(t, err)
}

func TestConvert(t *testing.T) {
	x := parameter(dtypes.Int32, 2)
	out := must.M1(Convert(x, dtypes.Float64))
	assert.Equal(t, "(F64)[2]", out.Shape().String())
	assert.False(t, out.Node().Op().(NopChecker).IsNop(out.Node()))

	same := must.M1(Convert(x, dtypes.Int32))
	assert.True(t, same.Node().Op().(NopChecker).IsNop(same.Node()))
}

func TestBroadcastAndSum(t *testing.T) {
	x := parameter(dtypes.Float32, 3)
	broadcast := must.M1(Broadcast(x, []int{2, 3}, []int{0}))
	assert.Equal(t, []int{2, 3}, broadcast.Shape().Dimensions)

	_, err := Broadcast(x, []int{3, 2}, []int{0})
	require.Error(t, err)
	assert.ErrorContains(t, err, "input axis 0")
	_, err = Broadcast(x, []int{2, 3}, []int{0, 1})
	require.Error(t, err)
	_, err = Broadcast(x, []int{2, 3}, []int{2})
	require.Error(t, err)

	sum := must.M1(Sum(broadcast, []int{0}))
	assert.Equal(t, []int{3}, sum.Shape().Dimensions)
	scalar := must.M1(Sum(broadcast, []int{-1, 0}))
	assert.True(t, scalar.Shape().IsScalar())

	_, err = Sum(broadcast, []int{0, 0})
	require.Error(t, err)
	assert.ErrorContains(t, err, "repeated")

	noop := must.M1(Sum(x, nil))
	assert.True(t, noop.Node().Op().(NopChecker).IsNop(noop.Node()))
	noop = must.M1(Broadcast(x, []int{3}, nil))
	assert.True(t, noop.Node().Op().(NopChecker).IsNop(noop.Node()))
}

func TestReshapeAndReverse(t *testing.T) {
	x := parameter(dtypes.Float32, 2, 3)
	reshaped := must.M1(Reshape(x, nil, []int{3, 2}))
	assert.Equal(t, []int{3, 2}, reshaped.Shape().Dimensions)
	assert.False(t, reshaped.Node().Op().(NopChecker).IsNop(reshaped.Node()))

	transposed := must.M1(Reshape(x, []int{1, 0}, []int{3, 2}))
	assert.Equal(t, []int{3, 2}, transposed.Shape().Dimensions)

	_, err := Reshape(x, nil, []int{4, 2})
	require.Error(t, err)
	assert.ErrorContains(t, err, "sizes don't match")
	_, err = Reshape(x, []int{0, 0}, []int{3, 2})
	require.Error(t, err)
	assert.ErrorContains(t, err, "not a permutation")

	identity := must.M1(Reshape(x, []int{0, 1}, []int{2, 3}))
	assert.True(t, identity.Node().Op().(NopChecker).IsNop(identity.Node()))

	reversed := must.M1(Reverse(x, []int{1}))
	assert.True(t, reversed.Shape().Equal(x.Shape()))
	_, err = Reverse(x, []int{2})
	require.Error(t, err)
}

func TestTopK(t *testing.T) {
	x := parameter(dtypes.Float32, 4, 10)
	topK := must.M1(TopK(x, 3, -1))
	require.Equal(t, 2, topK.NumOutputs())
	assert.Equal(t, "(F32)[4 3]", topK.OutputShape(0).String())
	assert.Equal(t, "(S64)[4 3]", topK.OutputShape(1).String())

	defaultValue := must.M1(topK.Op().(graph.DefaultValuer).DefaultValue(topK, 1))
	assert.True(t, IsZero(defaultValue))
	assert.Equal(t, dtypes.Int64, defaultValue.DType())

	_, err := TopK(x, 11, 1)
	require.Error(t, err)
	_, err = TopK(x, 0, 1)
	require.Error(t, err)
}

func TestConstants(t *testing.T) {
	c := must.M1(Constant(shapes.Make(dtypes.Float32, 2), []float32{1, 2}))
	assert.True(t, c.Node().IsConstant())
	op := c.Node().Op().(*ConstantOp)
	assert.Equal(t, 2.0, op.Value(1))
	assert.False(t, IsOne(c))

	ones := must.M1(ConstantFilled(shapes.Make(dtypes.Float16, 2, 2), 1))
	assert.True(t, IsOne(ones))
	assert.False(t, IsZero(ones))
	assert.Equal(t, float16.Fromfloat32(1).Bits(), uint16(ones.Node().Op().(*ConstantOp).Data()[0])|
		uint16(ones.Node().Op().(*ConstantOp).Data()[1])<<8)

	scalar := must.M1(ConstantScalar(int64(7)))
	assert.Equal(t, dtypes.Int64, scalar.DType())
	assert.True(t, IsEqualToConstValue(7, scalar))

	other := must.M1(Constant(shapes.Make(dtypes.Float32, 2), []float32{1, 2}))
	assert.True(t, CompareConstants(c.Node(), other.Node()))
	assert.False(t, CompareConstants(c.Node(), ones.Node()))

	_, err := Constant(shapes.Make(dtypes.Float32, 3), []float32{1, 2})
	require.Error(t, err)
	_, err = Constant(shapes.Make(dtypes.Float32, 2), []float64{1, 2})
	require.Error(t, err)
	_, err = Constant(shapes.Make(dtypes.Float32, shapes.UnknownDim), []float32{1})
	require.Error(t, err)
}

func TestCopyWithNewInputs(t *testing.T) {
	x := parameter(dtypes.Float32, 2, 3)
	y := parameter(dtypes.Float32, 3)
	sum := must.M1(NewBinary(optypes.Add, graph.AutoBroadcastNumpy, x, y))
	clone := must.M1(sum.Node().Op().CopyWithNewInputs([]*graph.Output{x, y}, []*graph.Node{y.Node()}))
	assert.NotSame(t, sum.Node(), clone)
	assert.Equal(t, sum.Node().TypeInfo(), clone.TypeInfo())
	assert.True(t, clone.OutputShape(0).Equal(sum.Shape()))
	assert.Equal(t, []*graph.Node{y.Node()}, clone.ControlDeps())

	// Configurations are not shared.
	broadcast := must.M1(Broadcast(y, []int{2, 3}, []int{0}))
	copied := must.M1(broadcast.Node().Op().CopyWithNewInputs([]*graph.Output{y}, nil))
	copied.Op().(*BroadcastOp).Shape[0] = 7
	assert.Equal(t, []int{2, 3}, broadcast.Node().Op().(*BroadcastOp).Shape)
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"Constant", "Add", "TopK", "Parameter", "Result"} {
		info, found := graph.LookupOp(name, 0)
		assert.True(t, found, "op %q should be registered", name)
		assert.Equal(t, name, info.Name)
	}
	_, found := graph.LookupOp("Add", 1)
	assert.False(t, found)
}
