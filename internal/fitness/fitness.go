// Package fitness adapts a Bayesian network to the flat-vector interface
// optimizers work with.
//
// A point is the concatenation of the flattened values of a fixed, ordered
// list of latent vertices. The same order is used to flatten the starting
// point and to split every point the optimizer hands back.
package fitness

import (
	"fmt"

	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/network"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// Objective selects what the fitness measures.
type Objective int

const (
	// MAP maximises the joint log probability, priors included.
	MAP Objective = iota
	// MLE maximises the log likelihood of the observed vertices only.
	MLE
)

// String returns "MAP" or "MLE".
func (o Objective) String() string {
	if o == MLE {
		return "MLE"
	}
	return "MAP"
}

// Function evaluates an objective at flat points.
type Function struct {
	net       *network.BayesianNetwork
	vertices  []*graph.Vertex
	offsets   []int
	dim       int
	objective Objective
}

// New creates a fitness function over vertices, in the given order.
func New(net *network.BayesianNetwork, vertices []*graph.Vertex, objective Objective) *Function {
	f := &Function{net: net, vertices: vertices, objective: objective, offsets: make([]int, len(vertices))}
	for i, v := range vertices {
		f.offsets[i] = f.dim
		f.dim += v.Shape().NumElements()
	}
	return f
}

// Vertices returns the vertices a point is made of, in point order.
func (f *Function) Vertices() []*graph.Vertex { return f.vertices }

// Dim returns the length of a point.
func (f *Function) Dim() int { return f.dim }

// Objective returns what the function measures.
func (f *Function) Objective() Objective { return f.objective }

// Point flattens the current vertex values.
func (f *Function) Point() ([]float64, error) {
	return Flatten(f.vertices)
}

// Set splits x into per-vertex values and cascades them into the network.
func (f *Function) Set(x []float64) error {
	values, err := Split(x, f.vertices)
	if err != nil {
		return err
	}
	return graph.CascadeUpdate(values)
}

// Value sets x and returns the objective there.
func (f *Function) Value(x []float64) (float64, error) {
	if err := f.Set(x); err != nil {
		return 0, err
	}
	if f.objective == MLE {
		return f.net.LogLikelihood()
	}
	return f.net.LogProb()
}

// Gradient sets x and writes the objective's gradient into grad, which must
// have length Dim. Every vertex of the point must be continuous.
func (f *Function) Gradient(x, grad []float64) error {
	if len(grad) != f.dim {
		return fmt.Errorf("fitness: gradient buffer has %d elements, want %d", len(grad), f.dim)
	}
	if err := f.Set(x); err != nil {
		return err
	}
	var (
		grads map[graph.ID]*tensor.Tensor
		err   error
	)
	if f.objective == MLE {
		grads, err = f.net.LogLikelihoodGradients()
	} else {
		grads, err = f.net.LogProbGradients()
	}
	if err != nil {
		return err
	}
	for i, v := range f.vertices {
		g, ok := grads[v.ID()]
		if !ok {
			return &graph.VertexError{Op: "fitness gradient", ID: v.ID(), Label: v.Label(),
				Err: fmt.Errorf("no gradient for %s vertex", v.DType())}
		}
		copy(grad[f.offsets[i]:], g.Data())
	}
	return nil
}

// Flatten concatenates the current values of vertices.
func Flatten(vertices []*graph.Vertex) ([]float64, error) {
	ts := make([]*tensor.Tensor, len(vertices))
	for i, v := range vertices {
		t, err := v.Value()
		if err != nil {
			return nil, err
		}
		ts[i] = t
	}
	return tensor.Flatten(ts...), nil
}

// Split cuts x into one tensor per vertex by element count, in order.
func Split(x []float64, vertices []*graph.Vertex) (map[*graph.Vertex]*tensor.Tensor, error) {
	out := make(map[*graph.Vertex]*tensor.Tensor, len(vertices))
	off := 0
	for _, v := range vertices {
		n := v.Shape().NumElements()
		if off+n > len(x) {
			return nil, fmt.Errorf("fitness: point has %d elements, vertices need more", len(x))
		}
		t, err := tensor.New(v.Shape(), v.DType(), x[off:off+n])
		if err != nil {
			return nil, err
		}
		out[v] = t
		off += n
	}
	if off != len(x) {
		return nil, fmt.Errorf("fitness: point has %d elements, vertices take %d", len(x), off)
	}
	return out, nil
}
