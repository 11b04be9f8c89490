package tensor

import "fmt"

// Map applies f to every element and returns a float64 tensor of the same shape.
func Map(t *Tensor, f func(float64) float64) *Tensor {
	data := make([]float64, len(t.data))
	for i, v := range t.data {
		data[i] = f(v)
	}
	return &Tensor{shape: t.shape.Clone(), dtype: Float64, data: data}
}

// Map2 broadcasts a and b against each other and applies f element-wise.
func Map2(a, b *Tensor, f func(x, y float64) float64) (*Tensor, error) {
	return MapN([]*Tensor{a, b}, func(xs []float64) float64 { return f(xs[0], xs[1]) })
}

// MapN broadcasts every input to a common shape and applies f element-wise.
// The slice passed to f is reused between calls.
func MapN(inputs []*Tensor, f func(xs []float64) float64) (*Tensor, error) {
	shapes := make([]Shape, len(inputs))
	for i, in := range inputs {
		shapes[i] = in.shape
	}
	out, err := BroadcastAll(shapes...)
	if err != nil {
		return nil, err
	}

	idx := make([][]int, len(inputs))
	for i, in := range inputs {
		idx[i] = BroadcastIndex(out, in.shape)
	}

	n := out.NumElements()
	data := make([]float64, n)
	xs := make([]float64, len(inputs))
	for i := 0; i < n; i++ {
		for k, in := range inputs {
			xs[k] = in.data[idx[k][i]]
		}
		data[i] = f(xs)
	}
	return &Tensor{shape: out, dtype: Float64, data: data}, nil
}

// BroadcastTo materializes t at the (larger) shape.
func BroadcastTo(t *Tensor, shape Shape) (*Tensor, error) {
	out, err := BroadcastAll(shape, t.shape)
	if err != nil {
		return nil, err
	}
	if !out.Equal(shape) {
		return nil, fmt.Errorf("cannot broadcast %v to %v", t.shape, shape)
	}
	idx := BroadcastIndex(shape, t.shape)
	data := make([]float64, len(idx))
	for i, j := range idx {
		data[i] = t.data[j]
	}
	return &Tensor{shape: shape.Clone(), dtype: t.dtype, data: data}, nil
}

// ReduceTo sums t over the axes that were broadcast when producing it from a
// tensor of the target shape.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func ReduceTo(t *Tensor, target Shape) (*Tensor, error) {
	if t.shape.Equal(target) {
		return t.Clone(), nil
	}
	full, err := BroadcastAll(target, t.shape)
	if err != nil || !full.Equal(t.shape) {
		return nil, fmt.Errorf("cannot reduce %v to %v", t.shape, target)
	}
	idx := BroadcastIndex(t.shape, target)
	data := make([]float64, target.NumElements())
	for i, j := range idx {
		data[j] += t.data[i]
	}
	return &Tensor{shape: target.Clone(), dtype: Float64, data: data}, nil
}

// Sum returns the sum of all elements.
func Sum(t *Tensor) float64 {
	var s float64
	for _, v := range t.data {
		s += v
	}
	return s
}

// MatMul multiplies two rank-2 tensors.
func MatMul(a, b *Tensor) (*Tensor, error) {
	if len(a.shape) != 2 || len(b.shape) != 2 || a.shape[1] != b.shape[0] {
		return nil, fmt.Errorf("matmul: incompatible shapes %v and %v", a.shape, b.shape)
	}
	n, k, m := a.shape[0], a.shape[1], b.shape[1]
	data := make([]float64, n*m)
	for i := 0; i < n; i++ {
		for p := 0; p < k; p++ {
			av := a.data[i*k+p]
			for j := 0; j < m; j++ {
				data[i*m+j] += av * b.data[p*m+j]
			}
		}
	}
	return &Tensor{shape: Shape{n, m}, dtype: Float64, data: data}, nil
}

// Flatten concatenates the elements of every tensor into one slice.
func Flatten(ts ...*Tensor) []float64 {
	n := 0
	for _, t := range ts {
		n += len(t.data)
	}
	out := make([]float64, 0, n)
	for _, t := range ts {
		out = append(out, t.data...)
	}
	return out
}
