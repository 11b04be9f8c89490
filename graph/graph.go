// Copyright 2025 The Keanu Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

import (
	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// Graph is an arena of vertices.
type Graph = graph.Graph

// Vertex is one node of a Graph.
type Vertex = graph.Vertex

// ID identifies a vertex within its graph.
type ID = graph.ID

// Kind is the variant of a vertex.
type Kind = graph.Kind

// Op is the operation of a deterministic vertex.
type Op = graph.Op

// Distribution is the contract probabilistic vertices sample and score with.
type Distribution = graph.Distribution

// VertexError attributes an error to a vertex.
type VertexError = graph.VertexError

// Vertex kinds.
const (
	Probabilistic = graph.Probabilistic
	Deterministic = graph.Deterministic
	Constant      = graph.Constant
	Placeholder   = graph.Placeholder
)

// Graph errors.
var (
	ErrNoValue                 = graph.ErrNoValue
	ErrShapeMismatch           = graph.ErrShapeMismatch
	ErrObserveNonProbabilistic = graph.ErrObserveNonProbabilistic
	ErrCycle                   = graph.ErrCycle
	ErrNotPlaceholder          = graph.ErrNotPlaceholder
	ErrAlreadyAttached         = graph.ErrAlreadyAttached
	ErrForeignVertex           = graph.ErrForeignVertex
	ErrDuplicateLabel          = graph.ErrDuplicateLabel
	ErrBadParameters           = graph.ErrBadParameters
)

// New creates an empty graph.
func New() *Graph {
	return graph.New()
}

// CascadeUpdate sets several vertices and recomputes their deterministic
// descendants once.
func CascadeUpdate(values map[*Vertex]*tensor.Tensor) error {
	return graph.CascadeUpdate(values)
}

// ConnectedGraph returns every vertex reachable from roots in id order.
func ConnectedGraph(roots ...*Vertex) []*Vertex {
	return graph.ConnectedGraph(roots...)
}

// TopologicalSort orders vertices parents-first, breaking ties by id.
func TopologicalSort(vertices []*Vertex) ([]*Vertex, error) {
	return graph.TopologicalSort(vertices)
}
