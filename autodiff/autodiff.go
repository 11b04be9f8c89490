// Copyright 2025 The Keanu Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff differentiates deterministic vertices of a graph.
//
// Two modes are provided:
//   - Forward propagates dual numbers from a few inputs to one output
//   - Reverse propagates adjoints from one output back to many inputs
//
// Both return partial derivatives laid out as [numel(of)][numel(wrt)].
// Differentiating through a comparison, logic or rounding op, or with respect
// to a discrete vertex, fails with ErrNotDifferentiable or ErrDiscreteGradient.
//
// Example:
//
//	g := graph.New()
//	x := g.Constant(tensor.Vector(1, 2))
//	y := g.Sum(g.Square(x))
//	partials, err := autodiff.Reverse(y, x)
//	partials[x.ID()].WrtTensor() // [2 4]
package autodiff

import (
	"github.com/improbable-research/keanu-sub009/internal/autodiff"
	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// PartialDerivative holds ∂of/∂wrt.
type PartialDerivative = autodiff.PartialDerivative

// DualNumber pairs a value with its partials with respect to the inputs.
type DualNumber = autodiff.DualNumber

// Differentiation errors.
var (
	ErrNotDifferentiable = autodiff.ErrNotDifferentiable
	ErrDiscreteGradient  = autodiff.ErrDiscreteGradient
)

// Forward differentiates of with respect to wrt in forward mode.
func Forward(of *graph.Vertex, wrt ...*graph.Vertex) (*DualNumber, error) {
	return autodiff.Forward(of, wrt...)
}

// Reverse differentiates of with respect to wrt in reverse mode.
func Reverse(of *graph.Vertex, wrt ...*graph.Vertex) (map[graph.ID]*PartialDerivative, error) {
	return autodiff.Reverse(of, wrt...)
}

// Backpropagate sums seed·∂v/∂w over every seeded vertex v for each w in wrt.
func Backpropagate(seeds map[*graph.Vertex]*tensor.Tensor, wrt []*graph.Vertex) (map[graph.ID]*tensor.Tensor, error) {
	return autodiff.Backpropagate(seeds, wrt)
}

// DLogProb differentiates the log probability of a probabilistic vertex with
// respect to its value and the parameters at the given indices.
func DLogProb(v *graph.Vertex, wrtValue bool, wrtParams []int) (*graph.LogProbGradient, error) {
	return autodiff.DLogProb(v, wrtValue, wrtParams)
}
