package dist

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/random"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// Bernoulli yields true with probability p. Its values are booleans.
type Bernoulli struct {
	analytic
}

// BernoulliDist is the shared Bernoulli distribution value.
var BernoulliDist = Bernoulli{analytic{&elementwise{
	name:     "bernoulli",
	params:   1,
	discrete: true,
	dtype:    tensor.Bool,
	valid:    func(p []float64) bool { return p[0] >= 0 && p[0] <= 1 },
	logPdf: func(x float64, p []float64) float64 {
		if x != 0 && x != 1 {
			return math.Inf(-1)
		}
		return distuv.Bernoulli{P: p[0]}.LogProb(x)
	},
	draw: func(p []float64, src *random.Source) float64 {
		return distuv.Bernoulli{P: p[0], Src: src}.Rand()
	},
	grad: func(x float64, p []float64, d []float64) {
		if x == 1 {
			d[1] = 1 / p[0]
		} else {
			d[1] = -1 / (1 - p[0])
		}
	},
}}}

// NewBernoulli adds a Bernoulli vertex.
func NewBernoulli(g *graph.Graph, p *graph.Vertex) *graph.Vertex {
	return New(g, BernoulliDist, p)
}

// Poisson counts events at rate lambda. Its values are integers.
type Poisson struct {
	analytic
}

// PoissonDist is the shared Poisson distribution value.
var PoissonDist = Poisson{analytic{&elementwise{
	name:     "poisson",
	params:   1,
	discrete: true,
	dtype:    tensor.Int64,
	valid:    positive,
	logPdf: func(x float64, p []float64) float64 {
		if x < 0 || x != math.Trunc(x) {
			return math.Inf(-1)
		}
		return distuv.Poisson{Lambda: p[0]}.LogProb(x)
	},
	draw: func(p []float64, src *random.Source) float64 {
		return distuv.Poisson{Lambda: p[0], Src: src}.Rand()
	},
	grad: func(x float64, p []float64, d []float64) {
		d[1] = x/p[0] - 1
	},
}}}

// NewPoisson adds a Poisson vertex.
func NewPoisson(g *graph.Graph, lambda *graph.Vertex) *graph.Vertex {
	return New(g, PoissonDist, lambda)
}
