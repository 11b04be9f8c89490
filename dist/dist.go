// Copyright 2025 The Keanu Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dist provides the distributions probabilistic vertices draw from.
//
// Continuous: Gaussian, Uniform, Exponential, Gamma, Beta, Laplace.
// Discrete: Bernoulli (Bool values), Poisson (Int64 values).
//
// Every distribution scores and samples elementwise with scalar parameters
// broadcast to the vertex shape. Exponential is differentiated through its
// log-probability graph; the others have analytic gradients.
package dist

import (
	"github.com/improbable-research/keanu-sub009/internal/dist"
	"github.com/improbable-research/keanu-sub009/internal/graph"
)

// ErrInvalidParameter is returned when sampling with out-of-range parameters.
var ErrInvalidParameter = dist.ErrInvalidParameter

// Shared distribution values, for use with New.
var (
	GaussianDist    = dist.GaussianDist
	UniformDist     = dist.UniformDist
	ExponentialDist = dist.ExponentialDist
	GammaDist       = dist.GammaDist
	BetaDist        = dist.BetaDist
	LaplaceDist     = dist.LaplaceDist
	BernoulliDist   = dist.BernoulliDist
	PoissonDist     = dist.PoissonDist
)

// New adds a probabilistic vertex shaped by the broadcast of its parameters.
func New(g *graph.Graph, d graph.Distribution, params ...*graph.Vertex) *graph.Vertex {
	return dist.New(g, d, params...)
}

// NewGaussian adds a N(mu, sigma²) vertex.
func NewGaussian(g *graph.Graph, mu, sigma *graph.Vertex) *graph.Vertex {
	return dist.NewGaussian(g, mu, sigma)
}

// NewUniform adds a U(lo, hi) vertex.
func NewUniform(g *graph.Graph, lo, hi *graph.Vertex) *graph.Vertex {
	return dist.NewUniform(g, lo, hi)
}

// NewExponential adds an Exp(rate) vertex.
func NewExponential(g *graph.Graph, rate *graph.Vertex) *graph.Vertex {
	return dist.NewExponential(g, rate)
}

// NewGamma adds a Gamma(alpha, beta) vertex with rate beta.
func NewGamma(g *graph.Graph, alpha, beta *graph.Vertex) *graph.Vertex {
	return dist.NewGamma(g, alpha, beta)
}

// NewBeta adds a Beta(alpha, beta) vertex.
func NewBeta(g *graph.Graph, alpha, beta *graph.Vertex) *graph.Vertex {
	return dist.NewBeta(g, alpha, beta)
}

// NewLaplace adds a Laplace(mu, scale) vertex.
func NewLaplace(g *graph.Graph, mu, scale *graph.Vertex) *graph.Vertex {
	return dist.NewLaplace(g, mu, scale)
}

// NewBernoulli adds a Bernoulli(p) vertex.
func NewBernoulli(g *graph.Graph, p *graph.Vertex) *graph.Vertex {
	return dist.NewBernoulli(g, p)
}

// NewPoisson adds a Poisson(lambda) vertex.
func NewPoisson(g *graph.Graph, lambda *graph.Vertex) *graph.Vertex {
	return dist.NewPoisson(g, lambda)
}
