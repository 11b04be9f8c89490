// Copyright 2025 The Keanu Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/improbable-research/keanu-sub009/tensor"
)

func TestConstructors(t *testing.T) {
	m := tensor.MustFromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	assert.Equal(t, tensor.Shape{2, 2}, m.Shape())
	assert.Equal(t, tensor.Float64, m.DType())

	assert.Equal(t, 2.5, tensor.Scalar(2.5).Scalar())
	assert.Equal(t, tensor.Bool, tensor.BoolScalar(true).DType())
	assert.Equal(t, tensor.Int64, tensor.IntScalar(3).DType())
	assert.Equal(t, []float64{0, 0, 0}, tensor.Zeros(tensor.Shape{3}).Data())

	_, err := tensor.New(tensor.Shape{2}, tensor.Float64, []float64{1, 2, 3})
	assert.Error(t, err)
}

func TestBroadcastShapes(t *testing.T) {
	out, broadcast, err := tensor.BroadcastShapes(tensor.Shape{3, 1}, tensor.Shape{4})
	require.NoError(t, err)
	assert.True(t, broadcast)
	assert.Equal(t, tensor.Shape{3, 4}, out)
}
