package dist

import (
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/random"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

var halfLog2Pi = 0.5 * math.Log(2*math.Pi)

func positive(p []float64) bool {
	for _, v := range p {
		if !(v > 0) || math.IsInf(v, 1) {
			return false
		}
	}
	return true
}

// Gaussian is the normal distribution with parameters (mu, sigma).
// It carries both analytic partials and a log-probability graph.
type Gaussian struct {
	analytic
}

// GaussianDist is the shared Gaussian distribution value.
var GaussianDist = Gaussian{analytic{&elementwise{
	name:   "gaussian",
	params: 2,
	dtype:  tensor.Float64,
	valid:  func(p []float64) bool { return !math.IsNaN(p[0]) && positive(p[1:]) },
	logPdf: func(x float64, p []float64) float64 {
		return distuv.Normal{Mu: p[0], Sigma: p[1]}.LogProb(x)
	},
	draw: func(p []float64, src *random.Source) float64 {
		return distuv.Normal{Mu: p[0], Sigma: p[1], Src: src}.Rand()
	},
	grad: func(x float64, p []float64, d []float64) {
		mu, sigma := p[0], p[1]
		z := (x - mu) / sigma
		d[0] = -z / sigma
		d[1] = z / sigma
		d[2] = (z*z - 1) / sigma
	},
}}}

// LogProbGraph implements graph.LogProbGrapher:
// Σ -½((x-μ)/σ)² - ln σ - ½ln 2π.
func (Gaussian) LogProbGraph(g *graph.Graph, x *graph.Vertex, params []*graph.Vertex) *graph.Vertex {
	mu, sigma := params[0], params[1]
	z := g.Div(g.Sub(x, mu), sigma)
	term := g.Sub(g.Sub(g.Mul(g.Scalar(-0.5), g.Square(z)), g.Log(sigma)), g.Scalar(halfLog2Pi))
	return g.Sum(term)
}

// NewGaussian adds a Gaussian vertex shaped like its broadcast parameters.
func NewGaussian(g *graph.Graph, mu, sigma *graph.Vertex) *graph.Vertex {
	return New(g, GaussianDist, mu, sigma)
}

// Uniform is the continuous uniform distribution on [min, max).
type Uniform struct {
	analytic
}

// UniformDist is the shared Uniform distribution value.
var UniformDist = Uniform{analytic{&elementwise{
	name:   "uniform",
	params: 2,
	dtype:  tensor.Float64,
	valid:  func(p []float64) bool { return p[0] < p[1] },
	logPdf: func(x float64, p []float64) float64 {
		if x < p[0] || x >= p[1] {
			return math.Inf(-1)
		}
		return -math.Log(p[1] - p[0])
	},
	draw: func(p []float64, src *random.Source) float64 {
		return distuv.Uniform{Min: p[0], Max: p[1], Src: src}.Rand()
	},
	grad: func(x float64, p []float64, d []float64) {
		if x < p[0] || x >= p[1] {
			return
		}
		w := p[1] - p[0]
		d[1] = 1 / w
		d[2] = -1 / w
	},
}}}

// NewUniform adds a Uniform vertex.
func NewUniform(g *graph.Graph, lo, hi *graph.Vertex) *graph.Vertex {
	return New(g, UniformDist, lo, hi)
}

// Exponential is parameterized by its rate. Its partials are derived from
// its log-probability graph.
type Exponential struct {
	*elementwise
}

// ExponentialDist is the shared Exponential distribution value.
var ExponentialDist = Exponential{&elementwise{
	name:   "exponential",
	params: 1,
	dtype:  tensor.Float64,
	valid:  positive,
	logPdf: func(x float64, p []float64) float64 {
		return distuv.Exponential{Rate: p[0]}.LogProb(x)
	},
	draw: func(p []float64, src *random.Source) float64 {
		return distuv.Exponential{Rate: p[0], Src: src}.Rand()
	},
}}

// LogProbGraph implements graph.LogProbGrapher: Σ x ≥ 0 ? ln λ - λx : -∞.
func (Exponential) LogProbGraph(g *graph.Graph, x *graph.Vertex, params []*graph.Vertex) *graph.Vertex {
	rate := params[0]
	density := g.Sub(g.Log(rate), g.Mul(rate, x))
	inSupport := g.GreaterOrEqual(x, g.Scalar(0))
	return g.Sum(g.If(inSupport, density, g.Scalar(math.Inf(-1))))
}

// NewExponential adds an Exponential vertex.
func NewExponential(g *graph.Graph, rate *graph.Vertex) *graph.Vertex {
	return New(g, ExponentialDist, rate)
}

// Gamma has shape alpha and rate beta.
type Gamma struct {
	analytic
}

// GammaDist is the shared Gamma distribution value.
var GammaDist = Gamma{analytic{&elementwise{
	name:   "gamma",
	params: 2,
	dtype:  tensor.Float64,
	valid:  positive,
	logPdf: func(x float64, p []float64) float64 {
		if x <= 0 {
			return math.Inf(-1)
		}
		return distuv.Gamma{Alpha: p[0], Beta: p[1]}.LogProb(x)
	},
	draw: func(p []float64, src *random.Source) float64 {
		return distuv.Gamma{Alpha: p[0], Beta: p[1], Src: src}.Rand()
	},
	grad: func(x float64, p []float64, d []float64) {
		if x <= 0 {
			return
		}
		alpha, beta := p[0], p[1]
		d[0] = (alpha-1)/x - beta
		d[1] = math.Log(beta) - mathext.Digamma(alpha) + math.Log(x)
		d[2] = alpha/beta - x
	},
}}}

// NewGamma adds a Gamma vertex.
func NewGamma(g *graph.Graph, alpha, beta *graph.Vertex) *graph.Vertex {
	return New(g, GammaDist, alpha, beta)
}

// Beta is the beta distribution on (0, 1).
type Beta struct {
	analytic
}

// BetaDist is the shared Beta distribution value.
var BetaDist = Beta{analytic{&elementwise{
	name:   "beta",
	params: 2,
	dtype:  tensor.Float64,
	valid:  positive,
	logPdf: func(x float64, p []float64) float64 {
		if x <= 0 || x >= 1 {
			return math.Inf(-1)
		}
		return distuv.Beta{Alpha: p[0], Beta: p[1]}.LogProb(x)
	},
	draw: func(p []float64, src *random.Source) float64 {
		return distuv.Beta{Alpha: p[0], Beta: p[1], Src: src}.Rand()
	},
	grad: func(x float64, p []float64, d []float64) {
		if x <= 0 || x >= 1 {
			return
		}
		a, b := p[0], p[1]
		dab := mathext.Digamma(a + b)
		d[0] = (a-1)/x - (b-1)/(1-x)
		d[1] = math.Log(x) - mathext.Digamma(a) + dab
		d[2] = math.Log(1-x) - mathext.Digamma(b) + dab
	},
}}}

// NewBeta adds a Beta vertex.
func NewBeta(g *graph.Graph, alpha, beta *graph.Vertex) *graph.Vertex {
	return New(g, BetaDist, alpha, beta)
}

// Laplace has location mu and scale b.
type Laplace struct {
	analytic
}

// LaplaceDist is the shared Laplace distribution value.
var LaplaceDist = Laplace{analytic{&elementwise{
	name:   "laplace",
	params: 2,
	dtype:  tensor.Float64,
	valid:  func(p []float64) bool { return !math.IsNaN(p[0]) && positive(p[1:]) },
	logPdf: func(x float64, p []float64) float64 {
		return distuv.Laplace{Mu: p[0], Scale: p[1]}.LogProb(x)
	},
	draw: func(p []float64, src *random.Source) float64 {
		return distuv.Laplace{Mu: p[0], Scale: p[1], Src: src}.Rand()
	},
	grad: func(x float64, p []float64, d []float64) {
		mu, b := p[0], p[1]
		s := sign(x - mu)
		d[0] = -s / b
		d[1] = s / b
		d[2] = -1/b + math.Abs(x-mu)/(b*b)
	},
}}}

// NewLaplace adds a Laplace vertex.
func NewLaplace(g *graph.Graph, mu, scale *graph.Vertex) *graph.Vertex {
	return New(g, LaplaceDist, mu, scale)
}
