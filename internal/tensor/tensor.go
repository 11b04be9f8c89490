package tensor

import (
	"fmt"
	"math"
	"strings"
)

// Tensor is a dense row-major array of float64 values with a fixed shape.
//
// Tensors are treated as immutable values by the graph: operations return new
// tensors and vertices replace, never mutate, the tensor they hold.
type Tensor struct {
	shape Shape
	dtype DataType
	data  []float64
}

// New creates a tensor of the given shape and type.
// The data slice is copied into the tensor's memory.
func New(shape Shape, dtype DataType, data []float64) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	buf := make([]float64, len(data))
	copy(buf, data)
	if dtype != Float64 {
		normalize(dtype, buf)
	}
	return &Tensor{shape: shape.Clone(), dtype: dtype, data: buf}, nil
}

// FromSlice creates a float64 tensor from a Go slice.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return New(shape, Float64, data)
}

// MustFromSlice is like FromSlice but panics on a shape/length mismatch.
func MustFromSlice(data []float64, shape Shape) *Tensor {
	t, err := FromSlice(data, shape)
	if err != nil {
		panic(err)
	}
	return t
}

// Scalar creates a rank-0 float64 tensor.
func Scalar(v float64) *Tensor {
	return &Tensor{shape: Shape{}, dtype: Float64, data: []float64{v}}
}

// Vector creates a rank-1 float64 tensor holding values.
func Vector(values ...float64) *Tensor {
	data := make([]float64, len(values))
	copy(data, values)
	return &Tensor{shape: Shape{len(values)}, dtype: Float64, data: data}
}

// BoolScalar creates a rank-0 boolean tensor.
func BoolScalar(b bool) *Tensor {
	return &Tensor{shape: Shape{}, dtype: Bool, data: []float64{boolToFloat(b)}}
}

// Bools creates a rank-1 boolean tensor.
func Bools(values ...bool) *Tensor {
	data := make([]float64, len(values))
	for i, b := range values {
		data[i] = boolToFloat(b)
	}
	return &Tensor{shape: Shape{len(values)}, dtype: Bool, data: data}
}

// IntScalar creates a rank-0 integer tensor.
func IntScalar(v int64) *Tensor {
	return &Tensor{shape: Shape{}, dtype: Int64, data: []float64{float64(v)}}
}

// Full creates a tensor of the given shape with every element set to v.
func Full(shape Shape, dtype DataType, v float64) *Tensor {
	data := make([]float64, shape.NumElements())
	for i := range data {
		data[i] = v
	}
	if dtype != Float64 {
		normalize(dtype, data)
	}
	return &Tensor{shape: shape.Clone(), dtype: dtype, data: data}
}

// Zeros creates a float64 tensor of zeros.
func Zeros(shape Shape) *Tensor {
	return Full(shape, Float64, 0)
}

// Ones creates a float64 tensor of ones.
func Ones(shape Shape) *Tensor {
	return Full(shape, Float64, 1)
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// DType returns the tensor's data type.
func (t *Tensor) DType() DataType {
	return t.dtype
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Data returns the tensor's backing slice.
//
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor) Data() []float64 {
	return t.data
}

// At returns the element at flat index i.
func (t *Tensor) At(i int) float64 {
	return t.data[i]
}

// Bool returns the element at flat index i as a boolean.
func (t *Tensor) Bool(i int) bool {
	return t.data[i] != 0
}

// Scalar returns the single element of a scalar-like tensor.
func (t *Tensor) Scalar() float64 {
	if len(t.data) != 1 {
		panic(fmt.Sprintf("tensor: Scalar called on shape %v", t.shape))
	}
	return t.data[0]
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Tensor{shape: t.shape.Clone(), dtype: t.dtype, data: data}
}

// WithDType returns a copy of t tagged with dtype.
func (t *Tensor) WithDType(dtype DataType) *Tensor {
	out := t.Clone()
	out.dtype = dtype
	if dtype != Float64 {
		normalize(dtype, out.data)
	}
	return out
}

// Reshape returns a copy of t with a new shape holding the same number of elements.
func (t *Tensor) Reshape(shape Shape) (*Tensor, error) {
	if shape.NumElements() != len(t.data) {
		return nil, fmt.Errorf("cannot reshape %v to %v", t.shape, shape)
	}
	out := t.Clone()
	out.shape = shape.Clone()
	return out, nil
}

// Equal reports whether two tensors have identical shape, type and elements.
// NaN elements compare equal to each other.
func (t *Tensor) Equal(other *Tensor) bool {
	if t == nil || other == nil {
		return t == other
	}
	if !t.shape.Equal(other.shape) || t.dtype != other.dtype {
		return false
	}
	for i, v := range t.data {
		o := other.data[i]
		if v != o && !(math.IsNaN(v) && math.IsNaN(o)) {
			return false
		}
	}
	return true
}

// AllClose reports whether both tensors have the same shape and every pair of
// elements differs by at most tol.
func (t *Tensor) AllClose(other *Tensor, tol float64) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	for i, v := range t.data {
		if math.Abs(v-other.data[i]) > tol {
			return false
		}
	}
	return true
}

// String renders the tensor for debugging.
func (t *Tensor) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s%v[", t.dtype, []int(t.shape))
	for i, v := range t.data {
		if i > 0 {
			sb.WriteString(" ")
		}
		if i == 8 && len(t.data) > 10 {
			fmt.Fprintf(&sb, "... (%d more)", len(t.data)-i)
			break
		}
		if t.dtype == Bool {
			fmt.Fprintf(&sb, "%t", v != 0)
		} else {
			fmt.Fprintf(&sb, "%g", v)
		}
	}
	sb.WriteString("]")
	return sb.String()
}

func normalize(dtype DataType, data []float64) {
	for i, v := range data {
		switch dtype {
		case Bool:
			data[i] = boolToFloat(v != 0)
		case Int64:
			data[i] = math.Trunc(v)
		}
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
