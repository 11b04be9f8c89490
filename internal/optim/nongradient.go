package optim

import (
	"context"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/improbable-research/keanu-sub009/internal/fitness"
	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/metrics"
	"github.com/improbable-research/keanu-sub009/internal/network"
)

const nelderMead = "nelder-mead"

// Bounds limits every element of one vertex to [Lower, Upper].
type Bounds struct {
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

// NonGradientConfig holds configuration for NonGradientOptimizer.
type NonGradientConfig struct {
	// MaxEvaluations is the fitness evaluation budget (default: 10000).
	MaxEvaluations int `yaml:"max_evaluations"`
	// BoundsRange is the width of the box centred on the start point
	// (default: unbounded).
	BoundsRange float64 `yaml:"bounds_range"`
	// FunctionTolerance stops the search once the best fitness improves by
	// less than this over ConvergenceIterations iterations (defaults: 1e-10, 100).
	FunctionTolerance     float64 `yaml:"function_tolerance"`
	ConvergenceIterations int     `yaml:"convergence_iterations"`
	// BoundOverrides replaces the box for individual vertices.
	BoundOverrides map[*graph.Vertex]Bounds `yaml:"-"`

	Logger  *slog.Logger     `yaml:"-"` // default: slog.Default()
	Metrics *metrics.Metrics `yaml:"-"` // optional
}

func (c NonGradientConfig) withDefaults() NonGradientConfig {
	if c.MaxEvaluations == 0 {
		c.MaxEvaluations = 10000
	}
	if c.BoundsRange == 0 {
		c.BoundsRange = math.Inf(1)
	}
	if c.FunctionTolerance == 0 {
		c.FunctionTolerance = 1e-10
	}
	if c.ConvergenceIterations == 0 {
		c.ConvergenceIterations = 100
	}
	return c
}

// NonGradientOptimizer maximises the fitness over the continuous latent
// vertices without derivatives, so non-differentiable vertices may sit between
// the latents and the observations. Points outside the box have fitness -Inf.
type NonGradientOptimizer struct {
	net *network.BayesianNetwork
	cfg NonGradientConfig
}

// NewNonGradient creates a derivative-free optimizer over net.
func NewNonGradient(net *network.BayesianNetwork, cfg NonGradientConfig) *NonGradientOptimizer {
	return &NonGradientOptimizer{net: net, cfg: cfg.withDefaults()}
}

// MaxAPosteriori finds the mode of the posterior.
func (o *NonGradientOptimizer) MaxAPosteriori(ctx context.Context) (*OptimizedResult, error) {
	return o.Optimize(ctx, fitness.MAP)
}

// MaxLikelihood finds the point that maximises the likelihood of the observations.
func (o *NonGradientOptimizer) MaxLikelihood(ctx context.Context) (*OptimizedResult, error) {
	return o.Optimize(ctx, fitness.MLE)
}

// Optimize maximises the given objective.
func (o *NonGradientOptimizer) Optimize(ctx context.Context, objective fitness.Objective) (*OptimizedResult, error) {
	started := time.Now()
	logger := runLogger(o.cfg.Logger, nelderMead, objective)
	fit := fitness.New(o.net, o.net.ContinuousLatentVertices(), objective)

	x0, f0, err := start(fit)
	if err != nil {
		return nil, err
	}
	lower, upper := o.box(fit, x0)
	logger.Info("optimization started", "dimensions", fit.Dim(), "fitness", f0, "bounds_range", o.cfg.BoundsRange)

	e := newEvaluator(ctx, fit, nelderMead, o.cfg.Metrics, logger)
	p := optimize.Problem{
		Func: func(x []float64) float64 {
			for i, xi := range x {
				if xi < lower[i] || xi > upper[i] {
					return math.Inf(1)
				}
			}
			return -e.value(x)
		},
		Status: e.status,
	}
	settings := &optimize.Settings{
		FuncEvaluations: o.cfg.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   o.cfg.FunctionTolerance,
			Iterations: o.cfg.ConvergenceIterations,
		},
	}
	res, runErr := optimize.Minimize(p, x0, settings, &optimize.NelderMead{})
	if res == nil {
		return finish(e, x0, optimize.Failure, runErr, started)
	}
	return finish(e, res.X, res.Status, runErr, started)
}

// box returns per-element bounds: the override for the owning vertex if any,
// otherwise x0 ± BoundsRange/2.
func (o *NonGradientOptimizer) box(fit *fitness.Function, x0 []float64) (lower, upper []float64) {
	lower = make([]float64, len(x0))
	upper = make([]float64, len(x0))
	i := 0
	for _, v := range fit.Vertices() {
		b, override := o.cfg.BoundOverrides[v]
		for k := 0; k < v.Shape().NumElements(); k++ {
			if override {
				lower[i], upper[i] = b.Lower, b.Upper
			} else {
				lower[i] = x0[i] - o.cfg.BoundsRange/2
				upper[i] = x0[i] + o.cfg.BoundsRange/2
			}
			i++
		}
	}
	return lower, upper
}
