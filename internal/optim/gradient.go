package optim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/improbable-research/keanu-sub009/internal/fitness"
	"github.com/improbable-research/keanu-sub009/internal/metrics"
	"github.com/improbable-research/keanu-sub009/internal/network"
)

// Algorithm names a gradient-based method.
type Algorithm string

// Gradient algorithms.
const (
	ConjugateGradient Algorithm = "conjugate-gradient"
	LBFGS             Algorithm = "lbfgs"
	AdamAscent        Algorithm = "adam"
	SGDAscent         Algorithm = "sgd"
)

// Stepper is a first-order update rule. Step moves x uphill given the
// gradient at x.
type Stepper interface {
	Step(x, grad []float64)
	GetLR() float64
	SetLR(lr float64)
}

// GradientConfig holds configuration for GradientOptimizer.
type GradientConfig struct {
	Algorithm         Algorithm  `yaml:"algorithm"`          // default: conjugate-gradient
	MaxEvaluations    int        `yaml:"max_evaluations"`    // fitness evaluation budget (default: 5000)
	GradientThreshold float64    `yaml:"gradient_threshold"` // converged when the gradient's inf-norm drops below (default: 1e-8)
	Adam              AdamConfig `yaml:"adam"`
	SGD               SGDConfig  `yaml:"sgd"`

	Logger  *slog.Logger     `yaml:"-"` // default: slog.Default()
	Metrics *metrics.Metrics `yaml:"-"` // optional
}

func (c GradientConfig) withDefaults() GradientConfig {
	if c.Algorithm == "" {
		c.Algorithm = ConjugateGradient
	}
	if c.MaxEvaluations == 0 {
		c.MaxEvaluations = 5000
	}
	if c.GradientThreshold == 0 {
		c.GradientThreshold = 1e-8
	}
	return c
}

// GradientOptimizer maximises the fitness over every continuous latent vertex
// using its gradient. Discrete latents keep their current values.
type GradientOptimizer struct {
	net *network.BayesianNetwork
	cfg GradientConfig
}

// NewGradient creates a gradient optimizer over net.
func NewGradient(net *network.BayesianNetwork, cfg GradientConfig) *GradientOptimizer {
	return &GradientOptimizer{net: net, cfg: cfg.withDefaults()}
}

// MaxAPosteriori finds the mode of the posterior.
func (o *GradientOptimizer) MaxAPosteriori(ctx context.Context) (*OptimizedResult, error) {
	return o.Optimize(ctx, fitness.MAP)
}

// MaxLikelihood finds the point that maximises the likelihood of the observations.
func (o *GradientOptimizer) MaxLikelihood(ctx context.Context) (*OptimizedResult, error) {
	return o.Optimize(ctx, fitness.MLE)
}

// Optimize maximises the given objective.
func (o *GradientOptimizer) Optimize(ctx context.Context, objective fitness.Objective) (*OptimizedResult, error) {
	started := time.Now()
	alg := string(o.cfg.Algorithm)
	logger := runLogger(o.cfg.Logger, alg, objective)
	fit := fitness.New(o.net, o.net.ContinuousLatentVertices(), objective)

	x0, f0, err := start(fit)
	if err != nil {
		return nil, err
	}
	grad0 := make([]float64, fit.Dim())
	if err := fit.Gradient(x0, grad0); err != nil {
		return nil, err
	}
	logger.Info("optimization started", "dimensions", fit.Dim(), "fitness", f0)
	if fit.Dim() > 0 && floats.Norm(grad0, 2) == 0 {
		logger.Warn("initial gradient is flat; the start point may already be a stationary point")
	}

	e := newEvaluator(ctx, fit, alg, o.cfg.Metrics, logger)
	e.gradientThreshold = o.cfg.GradientThreshold
	switch o.cfg.Algorithm {
	case ConjugateGradient, LBFGS:
		var method optimize.Method = &optimize.CG{}
		if o.cfg.Algorithm == LBFGS {
			method = &optimize.LBFGS{}
		}
		settings := &optimize.Settings{
			FuncEvaluations:   o.cfg.MaxEvaluations,
			GradientThreshold: o.cfg.GradientThreshold,
		}
		res, runErr := e.minimize(x0, settings, method, true)
		if res == nil {
			if runErr == nil {
				runErr = fmt.Errorf("%s returned no result", alg)
			}
			return finish(e, x0, optimize.Failure, runErr, started)
		}
		return finish(e, res.X, res.Status, runErr, started)
	case AdamAscent:
		return o.ascend(e, x0, NewAdam(fit.Dim(), o.cfg.Adam), started)
	case SGDAscent:
		return o.ascend(e, x0, NewSGD(fit.Dim(), o.cfg.SGD), started)
	default:
		return nil, fmt.Errorf("unknown gradient algorithm %q", o.cfg.Algorithm)
	}
}

// ascend drives a Stepper until the gradient is small or the budget runs out.
func (o *GradientOptimizer) ascend(e *evaluator, x []float64, stepper Stepper, started time.Time) (*OptimizedResult, error) {
	grad := make([]float64, len(x))
	status := optimize.FunctionEvaluationLimit
	for e.evaluations < o.cfg.MaxEvaluations {
		if s, err := e.status(); s != optimize.NotTerminated {
			return finish(e, x, s, err, started)
		}
		v := e.value(x)
		e.gradient(x, grad)
		if e.err != nil {
			break
		}
		if !isFinite(v) {
			return finish(e, x, optimize.Failure, nil, started)
		}
		if floats.Norm(grad, math.Inf(1)) < o.cfg.GradientThreshold {
			status = optimize.GradientThreshold
			break
		}
		stepper.Step(x, grad)
	}
	return finish(e, x, status, nil, started)
}
