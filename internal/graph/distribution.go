package graph

import (
	"github.com/improbable-research/keanu-sub009/internal/random"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// Distribution is the contract a probabilistic vertex delegates to.
//
// Parameters arrive as the current values of the vertex's parents, in order.
// Scalar parameters broadcast against the requested shape.
type Distribution interface {
	// Name identifies the distribution in errors and logs.
	Name() string

	// NumParams returns how many parameter vertices the distribution takes.
	NumParams() int

	// Discrete reports whether values are countable. Discrete vertices are
	// never differentiated with respect to their value.
	Discrete() bool

	// DataType is the type of sampled values.
	DataType() tensor.DataType

	// Sample draws a value of the given shape.
	Sample(shape tensor.Shape, params []*tensor.Tensor, src *random.Source) (*tensor.Tensor, error)

	// LogProb returns the log density (or mass) of x summed over all elements.
	// Values outside the support yield -Inf; LogProb never fails for them.
	LogProb(x *tensor.Tensor, params []*tensor.Tensor) float64
}

// LogProbGradient holds partial derivatives of a summed log probability.
type LogProbGradient struct {
	// Value is ∂logProb/∂x shaped like x, nil unless requested.
	Value *tensor.Tensor
	// Params maps a parameter position to ∂logProb/∂param shaped like that parameter.
	Params map[int]*tensor.Tensor
}

// Differentiable is implemented by distributions with analytic partials.
type Differentiable interface {
	// DLogProb returns the requested partials. Requesting the value partial of
	// a discrete distribution must fail.
	DLogProb(x *tensor.Tensor, params []*tensor.Tensor, wrtValue bool, wrtParams []int) (*LogProbGradient, error)
}

// LogProbGrapher is implemented by distributions that can express their log
// density as a graph of deterministic vertices. The result must be a scalar
// vertex summing the log density over all elements of x.
type LogProbGrapher interface {
	LogProbGraph(g *Graph, x *Vertex, params []*Vertex) *Vertex
}

// LogProbGraph is an isolated graph computing the log probability of one
// probabilistic vertex. Feeding X and Params and evaluating LogProb
// reproduces the vertex's log probability without touching its graph.
type LogProbGraph struct {
	Graph   *Graph
	X       *Vertex
	Params  []*Vertex
	LogProb *Vertex
}

// BuildLogProbGraph creates the log-probability sub-graph for v, or returns
// false if v's distribution cannot express one.
func BuildLogProbGraph(v *Vertex) (*LogProbGraph, bool) {
	if v.kind != Probabilistic {
		return nil, false
	}
	grapher, ok := v.dist.(LogProbGrapher)
	if !ok {
		return nil, false
	}
	g := New()
	x := g.Placeholder(v.shape, v.dtype)
	params := make([]*Vertex, len(v.parents))
	for i, pid := range v.parents {
		p := v.g.get(pid)
		params[i] = g.Placeholder(p.shape, p.dtype)
	}
	return &LogProbGraph{Graph: g, X: x, Params: params, LogProb: grapher.LogProbGraph(g, x, params)}, true
}

// Feed loads values into the placeholders and cascades them through the graph.
func (lg *LogProbGraph) Feed(x *tensor.Tensor, params []*tensor.Tensor) error {
	feeds := make(map[*Vertex]*tensor.Tensor, len(params)+1)
	feeds[lg.X] = x
	for i, p := range params {
		feeds[lg.Params[i]] = p
	}
	return CascadeUpdate(feeds)
}
