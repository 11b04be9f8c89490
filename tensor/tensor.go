// Copyright 2025 The Keanu Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// Tensor is a dense array of float64 values with a shape and a DataType.
type Tensor = tensor.Tensor

// Shape lists the size of each dimension. A nil Shape is a scalar.
type Shape = tensor.Shape

// DataType tags the kind of values a tensor holds.
type DataType = tensor.DataType

// Supported data types.
const (
	Float64 = tensor.Float64
	Int64   = tensor.Int64
	Bool    = tensor.Bool
)

// New creates a tensor, validating that data fits shape.
func New(shape Shape, dtype DataType, data []float64) (*Tensor, error) {
	return tensor.New(shape, dtype, data)
}

// FromSlice creates a Float64 tensor.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// MustFromSlice is FromSlice that panics on error.
func MustFromSlice(data []float64, shape Shape) *Tensor {
	return tensor.MustFromSlice(data, shape)
}

// Scalar creates a rank-0 Float64 tensor.
func Scalar(v float64) *Tensor { return tensor.Scalar(v) }

// Vector creates a rank-1 Float64 tensor.
func Vector(values ...float64) *Tensor { return tensor.Vector(values...) }

// BoolScalar creates a rank-0 Bool tensor.
func BoolScalar(b bool) *Tensor { return tensor.BoolScalar(b) }

// Bools creates a rank-1 Bool tensor.
func Bools(values ...bool) *Tensor { return tensor.Bools(values...) }

// IntScalar creates a rank-0 Int64 tensor.
func IntScalar(v int64) *Tensor { return tensor.IntScalar(v) }

// Full creates a tensor with every element set to v.
func Full(shape Shape, dtype DataType, v float64) *Tensor { return tensor.Full(shape, dtype, v) }

// Zeros creates a Float64 tensor of zeros.
func Zeros(shape Shape) *Tensor { return tensor.Zeros(shape) }

// Ones creates a Float64 tensor of ones.
func Ones(shape Shape) *Tensor { return tensor.Ones(shape) }

// BroadcastShapes returns the broadcast shape of a and b.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}
