// Copyright 2025 The Keanu Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim finds MAP and MLE point estimates of a Bayesian network.
//
// # Overview
//
// This package contains:
//   - GradientOptimizer: conjugate gradient, L-BFGS, Adam and SGD ascent
//   - NonGradientOptimizer: Nelder-Mead inside a box around the start point
//
// Both flatten the continuous latent vertices into one vector, maximise the
// log probability (MAP) or log likelihood (MLE) over it and write the best
// point back into the graph. Discrete latent vertices keep their values.
//
// # Basic Usage
//
//	opt := optim.NewGradient(net, optim.GradientConfig{})
//	res, err := opt.MaxAPosteriori(ctx)
//	switch {
//	case errors.Is(err, optim.ErrNotConverged):
//	    // raise MaxEvaluations
//	case err != nil:
//	    return err
//	}
//	fmt.Println(res.FitnessValue, a.MustValue())
//
// # Bounded Search
//
//	opt := optim.NewNonGradient(net, optim.NonGradientConfig{
//	    BoundsRange:    10,
//	    BoundOverrides: map[*graph.Vertex]optim.Bounds{sigma: {Lower: 0, Upper: 5}},
//	})
//
// # Errors
//
// ErrNotConverged means the evaluation budget ran out. ErrInvalidStart and
// ErrInfeasible mean the fitness was not finite at the start or at the end.
package optim
