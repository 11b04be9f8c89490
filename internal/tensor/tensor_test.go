package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Shape
		want    Shape
		wantErr bool
	}{
		{"equal", Shape{3, 5}, Shape{3, 5}, Shape{3, 5}, false},
		{"column", Shape{3, 1}, Shape{3, 5}, Shape{3, 5}, false},
		{"rank mismatch", Shape{5}, Shape{2, 5}, Shape{2, 5}, false},
		{"scalar", Shape{}, Shape{2, 2}, Shape{2, 2}, false},
		{"incompatible", Shape{3, 4}, Shape{3, 5}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := BroadcastShapes(tt.a, tt.b)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v", got)
		})
	}
}

func TestBroadcastIndex(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2}, BroadcastIndex(Shape{2, 3}, Shape{3}))
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, BroadcastIndex(Shape{2, 3}, Shape{2, 1}))
	assert.Equal(t, []int{0, 0, 0, 0}, BroadcastIndex(Shape{4}, Shape{}))
}

func TestNew_NormalizesDiscreteTypes(t *testing.T) {
	b, err := New(Shape{3}, Bool, []float64{0, 2, -1})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 1}, b.Data())
	assert.True(t, b.Bool(1))

	i, err := New(Shape{2}, Int64, []float64{1.7, -2.2})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, -2}, i.Data())

	_, err = New(Shape{2, 2}, Float64, []float64{1, 2, 3})
	assert.Error(t, err)
}

func TestMapN_Broadcasts(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	b := Vector(10, 20, 30)
	out, err := Map2(a, b, func(x, y float64) float64 { return x + y })
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 3}, out.Shape())
	assert.Equal(t, []float64{11, 22, 33, 14, 25, 36}, out.Data())
}

func TestReduceTo(t *testing.T) {
	full := MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})

	col, err := ReduceTo(full, Shape{2, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 15}, col.Data())

	row, err := ReduceTo(full, Shape{3})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 7, 9}, row.Data())

	s, err := ReduceTo(full, Shape{})
	require.NoError(t, err)
	assert.InDelta(t, 21.0, s.Scalar(), 1e-12)

	_, err = ReduceTo(full, Shape{4})
	assert.Error(t, err)
}

func TestBroadcastTo(t *testing.T) {
	out, err := BroadcastTo(Scalar(2), Shape{2, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2, 2, 2}, out.Data())

	_, err = BroadcastTo(Vector(1, 2, 3), Shape{2})
	assert.Error(t, err)
}

func TestMatMul(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	b := MustFromSlice([]float64{7, 8, 9, 10, 11, 12}, Shape{3, 2})
	c, err := MatMul(a, b)
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 2}, c.Shape())
	assert.Equal(t, []float64{58, 64, 139, 154}, c.Data())

	_, err = MatMul(a, a)
	assert.Error(t, err)
}

func TestMatMul_ZeroTimesNonFinite(t *testing.T) {
	a := MustFromSlice([]float64{0, 1}, Shape{1, 2})
	b := MustFromSlice([]float64{math.Inf(1), 1, 2, 3}, Shape{2, 2})
	c, err := MatMul(a, b)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(c.At(0)), "0 * Inf is NaN")
	assert.Equal(t, 3.0, c.At(1))
}

func TestEqual_NaNAware(t *testing.T) {
	a := Vector(1, math.NaN())
	assert.True(t, a.Equal(Vector(1, math.NaN())))
	assert.False(t, a.Equal(Vector(1, 2)))
	assert.False(t, Vector(1).Equal(Scalar(1)))
}

func TestReshapeAndScalar(t *testing.T) {
	v := Vector(3)
	s, err := v.Reshape(Shape{})
	require.NoError(t, err)
	assert.Equal(t, 3.0, s.Scalar())

	_, err = Vector(1, 2).Reshape(Shape{3})
	assert.Error(t, err)
	assert.Panics(t, func() { Vector(1, 2).Scalar() })
}
