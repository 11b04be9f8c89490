// Copyright 2025 The Keanu Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/improbable-research/keanu-sub009/internal/fitness"
	"github.com/improbable-research/keanu-sub009/internal/network"
	"github.com/improbable-research/keanu-sub009/internal/optim"
)

// Objective selects what an optimizer maximises.
type Objective = fitness.Objective

// Objectives.
const (
	MAP = fitness.MAP
	MLE = fitness.MLE
)

// OptimizedResult reports the outcome of an optimizer run.
type OptimizedResult = optim.OptimizedResult

// Optimizer errors.
var (
	ErrNotConverged = optim.ErrNotConverged
	ErrInvalidStart = optim.ErrInvalidStart
	ErrInfeasible   = optim.ErrInfeasible
)

// Gradient optimizer

// GradientOptimizer maximises the fitness using its gradient.
type GradientOptimizer = optim.GradientOptimizer

// GradientConfig contains configuration for GradientOptimizer.
type GradientConfig = optim.GradientConfig

// Algorithm names a gradient method.
type Algorithm = optim.Algorithm

// Gradient algorithms.
const (
	ConjugateGradient = optim.ConjugateGradient
	LBFGS             = optim.LBFGS
	AdamAscent        = optim.AdamAscent
	SGDAscent         = optim.SGDAscent
)

// AdamConfig contains configuration for Adam ascent.
type AdamConfig = optim.AdamConfig

// SGDConfig contains configuration for SGD ascent.
type SGDConfig = optim.SGDConfig

// NewGradient creates a gradient optimizer.
//
// Example:
//
//	opt := optim.NewGradient(net, optim.GradientConfig{
//	    Algorithm: optim.AdamAscent,
//	    Adam:      optim.AdamConfig{LR: 0.1},
//	})
func NewGradient(net *network.BayesianNetwork, cfg GradientConfig) *GradientOptimizer {
	return optim.NewGradient(net, cfg)
}

// Non-gradient optimizer

// NonGradientOptimizer maximises the fitness without derivatives.
type NonGradientOptimizer = optim.NonGradientOptimizer

// NonGradientConfig contains configuration for NonGradientOptimizer.
type NonGradientConfig = optim.NonGradientConfig

// Bounds limits the elements of one vertex.
type Bounds = optim.Bounds

// NewNonGradient creates a derivative-free optimizer.
func NewNonGradient(net *network.BayesianNetwork, cfg NonGradientConfig) *NonGradientOptimizer {
	return optim.NewNonGradient(net, cfg)
}
