// Package dist provides the concrete distributions probabilistic vertices
// delegate to. Densities and samplers come from gonum's distuv; gradients are
// either written out analytically or derived from a log-probability graph.
package dist

import (
	"errors"
	"fmt"
	"math"

	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/random"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// ErrInvalidParameter is returned when sampling with parameters outside their domain.
var ErrInvalidParameter = errors.New("invalid distribution parameter")

// ErrDiscreteValue is returned when differentiating with respect to the value
// of a discrete distribution.
var ErrDiscreteValue = errors.New("cannot differentiate with respect to a discrete value")

// elementwise describes a distribution by its per-element behaviour and
// implements graph.Distribution on top of it.
type elementwise struct {
	name     string
	params   int
	discrete bool
	dtype    tensor.DataType
	valid    func(p []float64) bool
	logPdf   func(x float64, p []float64) float64
	draw     func(p []float64, src *random.Source) float64

	// grad writes ∂logPdf/∂x to d[0] and ∂logPdf/∂p_i to d[1+i].
	grad func(x float64, p []float64, d []float64)
}

// Name implements graph.Distribution.
func (e *elementwise) Name() string { return e.name }

// NumParams implements graph.Distribution.
func (e *elementwise) NumParams() int { return e.params }

// Discrete implements graph.Distribution.
func (e *elementwise) Discrete() bool { return e.discrete }

// DataType implements graph.Distribution.
func (e *elementwise) DataType() tensor.DataType { return e.dtype }

// LogProb implements graph.Distribution.
func (e *elementwise) LogProb(x *tensor.Tensor, params []*tensor.Tensor) float64 {
	if len(params) != e.params {
		return math.Inf(-1)
	}
	lp, err := tensor.MapN(append([]*tensor.Tensor{x}, params...), func(xs []float64) float64 {
		if !e.valid(xs[1:]) {
			return math.Inf(-1)
		}
		return e.logPdf(xs[0], xs[1:])
	})
	if err != nil {
		return math.Inf(-1)
	}
	return tensor.Sum(lp)
}

// Sample implements graph.Distribution.
func (e *elementwise) Sample(shape tensor.Shape, params []*tensor.Tensor, src *random.Source) (*tensor.Tensor, error) {
	if len(params) != e.params {
		return nil, fmt.Errorf("%s: %w: want %d parameters, got %d", e.name, ErrInvalidParameter, e.params, len(params))
	}
	idx := make([][]int, len(params))
	for i, p := range params {
		full, err := tensor.BroadcastAll(shape, p.Shape())
		if err != nil || !full.Equal(shape) {
			return nil, fmt.Errorf("%s: parameter %d shape %v does not broadcast to %v", e.name, i, p.Shape(), shape)
		}
		idx[i] = tensor.BroadcastIndex(shape, p.Shape())
	}
	n := shape.NumElements()
	data := make([]float64, n)
	p := make([]float64, len(params))
	for i := 0; i < n; i++ {
		for k, t := range params {
			p[k] = t.At(idx[k][i])
		}
		if !e.valid(p) {
			return nil, fmt.Errorf("%s: %w: %v", e.name, ErrInvalidParameter, p)
		}
		data[i] = e.draw(p, src)
	}
	return tensor.New(shape, e.dtype, data)
}

func (e *elementwise) dLogProb(x *tensor.Tensor, params []*tensor.Tensor, wrtValue bool, wrtParams []int) (*graph.LogProbGradient, error) {
	if wrtValue && e.discrete {
		return nil, fmt.Errorf("%s: %w", e.name, ErrDiscreteValue)
	}
	inputs := append([]*tensor.Tensor{x}, params...)
	shapes := make([]tensor.Shape, len(inputs))
	for i, in := range inputs {
		shapes[i] = in.Shape()
	}
	full, err := tensor.BroadcastAll(shapes...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}
	idx := make([][]int, len(inputs))
	for i, in := range inputs {
		idx[i] = tensor.BroadcastIndex(full, in.Shape())
	}

	n := full.NumElements()
	partials := make([][]float64, len(inputs))
	for k := range partials {
		partials[k] = make([]float64, n)
	}
	xs := make([]float64, len(inputs))
	d := make([]float64, len(inputs))
	for i := 0; i < n; i++ {
		for k, in := range inputs {
			xs[k] = in.At(idx[k][i])
		}
		for k := range d {
			d[k] = 0
		}
		e.grad(xs[0], xs[1:], d)
		for k := range d {
			partials[k][i] = d[k]
		}
	}

	reduce := func(k int) (*tensor.Tensor, error) {
		t, err := tensor.FromSlice(partials[k], full)
		if err != nil {
			return nil, err
		}
		return tensor.ReduceTo(t, inputs[k].Shape())
	}

	out := &graph.LogProbGradient{Params: make(map[int]*tensor.Tensor, len(wrtParams))}
	if wrtValue {
		if out.Value, err = reduce(0); err != nil {
			return nil, err
		}
	}
	for _, i := range wrtParams {
		if i < 0 || i >= len(params) {
			return nil, fmt.Errorf("%s: no parameter %d", e.name, i)
		}
		if out.Params[i], err = reduce(i + 1); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// analytic adds closed-form partial derivatives to an elementwise distribution.
type analytic struct {
	*elementwise
}

// DLogProb implements graph.Differentiable.
func (a analytic) DLogProb(x *tensor.Tensor, params []*tensor.Tensor, wrtValue bool, wrtParams []int) (*graph.LogProbGradient, error) {
	return a.dLogProb(x, params, wrtValue, wrtParams)
}

// New adds a probabilistic vertex for d whose shape is the broadcast shape of params.
func New(g *graph.Graph, d graph.Distribution, params ...*graph.Vertex) *graph.Vertex {
	return g.Probabilistic(d, shapeOf(params...), params...)
}

// shapeOf returns the broadcast shape of the parameter vertices.
func shapeOf(params ...*graph.Vertex) tensor.Shape {
	shapes := make([]tensor.Shape, len(params))
	for i, p := range params {
		shapes[i] = p.Shape()
	}
	s, err := tensor.BroadcastAll(shapes...)
	if err != nil {
		panic(err)
	}
	return s
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
