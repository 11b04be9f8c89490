// Copyright 2025 The Keanu Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense n-dimensional arrays vertices hold.
//
// # Overview
//
// Every tensor stores float64 elements. A DataType tag marks values as real,
// integral or boolean so discrete quantities can be told apart:
//   - Float64: continuous values
//   - Int64: counts (Poisson samples)
//   - Bool: 0/1 flags (Bernoulli samples, comparison results)
//
// # Basic Usage
//
//	x := tensor.Scalar(2.5)
//	v := tensor.Vector(1, 2, 3)
//	m := tensor.MustFromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})
//
// # Broadcasting
//
// Binary operations follow NumPy broadcasting rules: shapes are aligned on
// their trailing dimensions and size-1 dimensions stretch.
//
//	out, _, err := tensor.BroadcastShapes(tensor.Shape{3, 1}, tensor.Shape{4}) // (3, 4)
package tensor
