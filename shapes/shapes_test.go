package shapes

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/graphir/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	s := Make(dtypes.Float32, 2, 3)
	require.Equal(t, 2, s.Rank())
	require.Equal(t, 6, s.Size())
	require.Equal(t, uintptr(24), s.Memory())
	require.True(t, s.IsStatic())
	require.Equal(t, "(F32)[2 3]", s.String())
	require.Equal(t, 3, s.Dim(-1))

	err := exceptions.TryCatch[error](func() { _ = Make(dtypes.Float32, 2, -3) })
	require.Error(t, err)
	_, err = MakeOrError(dtypes.Float32, -2)
	require.Error(t, err)

	dyn := Make(dtypes.Int32, UnknownDim, 4)
	require.False(t, dyn.IsStatic())
	require.Equal(t, -1, dyn.Size())
	require.Equal(t, "(S32)[? 4]", dyn.String())

	require.Equal(t, -1, Dynamic.Rank())
	require.Equal(t, "(?)[...]", Dynamic.String())
	require.True(t, Scalar(dtypes.Bool).IsScalar())
}

func TestMerge(t *testing.T) {
	merged, err := Merge(Make(dtypes.InvalidDType, UnknownDim, 3), Make(dtypes.Float32, 2, UnknownDim))
	require.NoError(t, err)
	require.True(t, merged.Equal(Make(dtypes.Float32, 2, 3)), "got %s", merged)

	merged, err = Merge(Dynamic, Make(dtypes.Int64, 5))
	require.NoError(t, err)
	require.True(t, merged.Equal(Make(dtypes.Int64, 5)))

	_, err = Merge(Make(dtypes.Float32, 2), Make(dtypes.Float64, 2))
	require.Error(t, err)
	_, err = Merge(Make(dtypes.Float32, 2), Make(dtypes.Float32, 2, 1))
	require.ErrorContains(t, err, "ranks differ")
	_, err = Merge(Make(dtypes.Float32, 2), Make(dtypes.Float32, 3))
	require.ErrorContains(t, err, "axis 0")
	assert.False(t, Make(dtypes.Float32, 2).Compatible(Make(dtypes.Float32, 3)))
}

func TestBroadcastNumpy(t *testing.T) {
	testCases := []struct {
		a, b, want Shape
	}{
		{Make(dtypes.Float32, 2, 3), Make(dtypes.Float32, 3), Make(dtypes.Float32, 2, 3)},
		{Make(dtypes.Float32, 2, 1), Make(dtypes.Float32, 1, 4), Make(dtypes.Float32, 2, 4)},
		{Make(dtypes.Float32), Make(dtypes.Float32, 5), Make(dtypes.Float32, 5)},
		{Make(dtypes.Float32, UnknownDim, 3), Make(dtypes.Float32, 7, 3), Make(dtypes.Float32, 7, 3)},
		{Make(dtypes.InvalidDType, 3), Make(dtypes.Int8, 3), Make(dtypes.Int8, 3)},
	}
	for _, tc := range testCases {
		got, err := BroadcastNumpy(tc.a, tc.b)
		require.NoError(t, err)
		require.True(t, got.Equal(tc.want), "BroadcastNumpy(%s, %s) = %s, wanted %s", tc.a, tc.b, got, tc.want)
	}
	_, err := BroadcastNumpy(Make(dtypes.Float32, 2, 3), Make(dtypes.Float32, 2))
	require.Error(t, err)

	got, err := BroadcastNumpy(Dynamic, Make(dtypes.Float32, 2))
	require.NoError(t, err)
	require.True(t, got.UnknownRank)
}

func TestBroadcastAxes(t *testing.T) {
	axes, err := BroadcastAxes(Make(dtypes.Float32, 3), Make(dtypes.Float32, 2, 3))
	require.NoError(t, err)
	require.Equal(t, []int{0}, axes)

	axes, err = BroadcastAxes(Make(dtypes.Float32, 2, 1), Make(dtypes.Float32, 4, 2, 5))
	require.NoError(t, err)
	require.Equal(t, []int{0, 2}, axes)

	axes, err = BroadcastAxes(Make(dtypes.Float32, 2), Make(dtypes.Float32, 2))
	require.NoError(t, err)
	require.Empty(t, axes)

	_, err = BroadcastAxes(Make(dtypes.Float32, 3), Make(dtypes.Float32, 4))
	require.Error(t, err)
}

func TestToStableHLO(t *testing.T) {
	shape := Make(dtypes.Float32, 1, 10)
	require.Equal(t, "tensor<1x10xf32>", shape.ToStableHLO())

	// Test scalar.
	shape = Make(dtypes.Int32)
	require.Equal(t, "tensor<si32>", shape.ToStableHLO())

	// Dynamic parts.
	require.Equal(t, "tensor<?x3xf16>", Make(dtypes.Float16, UnknownDim, 3).ToStableHLO())
	require.Equal(t, "tensor<*x?>", Dynamic.ToStableHLO())
}
