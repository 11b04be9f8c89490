// Package optim finds MAP and MLE point estimates of a Bayesian network.
//
// This package provides:
//   - GradientOptimizer: conjugate gradient and L-BFGS (gonum), Adam and SGD ascent
//   - NonGradientOptimizer: Nelder-Mead inside a box around the start point
//   - Stepper: the first-order update rules driving the ascent algorithms
//
// Every optimizer flattens the latent vertices it moves into one vector,
// maximises the network's log probability (MAP) or log likelihood (MLE) over
// it and writes the best point back into the graph before returning.
//
// Example usage:
//
//	opt := optim.NewGradient(net, optim.GradientConfig{})
//	res, err := opt.MaxAPosteriori(ctx)
//	if errors.Is(err, optim.ErrNotConverged) {
//	    // raise MaxEvaluations and try again
//	}
package optim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/improbable-research/keanu-sub009/internal/fitness"
	"github.com/improbable-research/keanu-sub009/internal/metrics"
)

// Optimizer errors. ErrNotConverged means "give me more budget"; ErrInvalidStart
// and ErrInfeasible mean the model has no usable optimum from here.
var (
	ErrNotConverged = errors.New("optimizer did not converge within its evaluation budget")
	ErrInvalidStart = errors.New("cannot start optimizer from a zero-probability point")
	ErrInfeasible   = errors.New("optimizer ended at a point with no finite fitness")
)

// OptimizedResult reports the outcome of a run. The point has already been
// written back into the latent vertices.
type OptimizedResult struct {
	FitnessValue float64         // log probability (MAP) or log likelihood (MLE) at Point
	Point        []float64       // flattened optimum in fitness order
	Evaluations  int             // fitness evaluations used
	Status       optimize.Status // why the run stopped
}

// evaluator counts evaluations, remembers the best point and the first
// error raised by the fitness function, which gonum callbacks cannot return.
type evaluator struct {
	ctx       context.Context
	fit       *fitness.Function
	algorithm string
	metrics   *metrics.Metrics
	logger    *slog.Logger

	// gradientThreshold is the convergence threshold of gradient methods,
	// zero for methods that never compute a gradient.
	gradientThreshold float64

	evaluations int
	best        float64
	bestX       []float64
	err         error
}

func newEvaluator(ctx context.Context, fit *fitness.Function, algorithm string, m *metrics.Metrics, logger *slog.Logger) *evaluator {
	return &evaluator{ctx: ctx, fit: fit, algorithm: algorithm, metrics: m, logger: logger, best: math.Inf(-1)}
}

// value returns the fitness at x, or NaN once an error has occurred.
func (e *evaluator) value(x []float64) float64 {
	if e.err != nil {
		return math.NaN()
	}
	v, err := e.fit.Value(x)
	if err != nil {
		e.err = err
		return math.NaN()
	}
	e.evaluations++
	if v > e.best {
		e.best = v
		e.bestX = append(e.bestX[:0], x...)
	}
	e.metrics.Evaluation(e.algorithm, e.best)
	return v
}

func (e *evaluator) gradient(x, grad []float64) {
	if e.err != nil {
		return
	}
	if err := e.fit.Gradient(x, grad); err != nil {
		e.err = err
	}
}

// status stops gonum when the context is done or the fitness failed.
func (e *evaluator) status() (optimize.Status, error) {
	if err := e.ctx.Err(); err != nil {
		return optimize.Failure, err
	}
	if e.err != nil {
		return optimize.Failure, e.err
	}
	return optimize.NotTerminated, nil
}

// minimize runs a gonum method on the negated fitness.
func (e *evaluator) minimize(x0 []float64, settings *optimize.Settings, method optimize.Method, withGrad bool) (*optimize.Result, error) {
	p := optimize.Problem{
		Func:   func(x []float64) float64 { return -e.value(x) },
		Status: e.status,
	}
	if withGrad {
		p.Grad = func(grad, x []float64) {
			e.gradient(x, grad)
			for i := range grad {
				grad[i] = -grad[i]
			}
		}
	}
	return optimize.Minimize(p, x0, settings, method)
}

// start validates the starting point and returns its fitness.
func start(fit *fitness.Function) ([]float64, float64, error) {
	x0, err := fit.Point()
	if err != nil {
		return nil, 0, err
	}
	f0, err := fit.Value(x0)
	if err != nil {
		return nil, 0, err
	}
	if !isFinite(f0) {
		return nil, 0, fmt.Errorf("%w: %s fitness is %v", ErrInvalidStart, fit.Objective(), f0)
	}
	return x0, f0, nil
}

// finish writes x back, re-evaluates it and classifies the stop reason.
func finish(e *evaluator, x []float64, status optimize.Status, runErr error, started time.Time) (*OptimizedResult, error) {
	outcome := "failed"
	defer func() {
		e.metrics.RunFinished(e.algorithm, outcome, time.Since(started))
	}()

	switch {
	case e.ctx.Err() != nil:
		return nil, e.ctx.Err()
	case e.err != nil:
		return nil, e.err
	}

	value, err := e.fit.Value(x)
	if err != nil {
		return nil, err
	}
	res := &OptimizedResult{FitnessValue: value, Point: x, Evaluations: e.evaluations, Status: status}
	log := e.logger.With("fitness", value, "evaluations", e.evaluations, "status", status.String())

	if !isFinite(value) {
		log.Warn("optimizer ended at an infeasible point")
		return res, fmt.Errorf("%w: %s fitness is %v", ErrInfeasible, e.fit.Objective(), value)
	}
	if runErr != nil {
		if !errors.Is(runErr, optimize.ErrLinesearcherFailure) && !errors.Is(runErr, optimize.ErrNoProgress) {
			return res, runErr
		}
		// Line searches give up once steps fall below float precision. That
		// only counts as converged where the gradient is close to flat.
		if !e.nearlyFlat(x) {
			outcome = "not_converged"
			log.Warn("line search stalled away from an optimum", "err", runErr)
			return res, fmt.Errorf("%w: %w", ErrNotConverged, runErr)
		}
		log.Debug("line search stalled", "err", runErr)
	}
	if exhausted(status) {
		outcome = "not_converged"
		log.Warn("optimizer exhausted its budget")
		return res, fmt.Errorf("%w: %s after %d evaluations", ErrNotConverged, status, e.evaluations)
	}
	outcome = "converged"
	log.Info("optimization finished")
	return res, nil
}

// stallTolerance is how far above the gradient threshold a stalled line
// search may end and still be accepted.
const stallTolerance = 1e4

func (e *evaluator) nearlyFlat(x []float64) bool {
	if e.gradientThreshold <= 0 {
		return false
	}
	grad := make([]float64, len(x))
	if err := e.fit.Gradient(x, grad); err != nil {
		return false
	}
	return floats.Norm(grad, math.Inf(1)) <= stallTolerance*e.gradientThreshold
}

func exhausted(s optimize.Status) bool {
	switch s {
	case optimize.FunctionEvaluationLimit, optimize.GradientEvaluationLimit,
		optimize.IterationLimit, optimize.RuntimeLimit:
		return true
	}
	return false
}

func runLogger(logger *slog.Logger, algorithm string, objective fitness.Objective) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("run", uuid.NewString(), "algorithm", algorithm, "objective", objective.String())
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
