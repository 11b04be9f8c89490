// Copyright 2025 The Keanu Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package mcmc draws posterior samples with Metropolis-Hastings.
//
// # Basic Usage
//
//	mh, err := mcmc.New(net, mcmc.Config{Seed: 42, Proposal: mcmc.Gaussian, Sigma: 0.5})
//	if err != nil {
//	    return err
//	}
//	samples, err := mh.GetPosteriorSamples(ctx, []*graph.Vertex{a}, 10000)
//	mean, err := samples.Drop(1000).Mean(a)
//
// # Streaming
//
// Stream yields states lazily. Every iteration of the sequence restarts the
// chain from the same state and seed:
//
//	seq := network.DownSampleStream(network.DropStream(mh.Stream(ctx, vertices), 1000), 10)
//	samples, err := network.CollectStream(seq, 5000)
package mcmc

import (
	"context"

	"github.com/improbable-research/keanu-sub009/internal/mcmc"
	"github.com/improbable-research/keanu-sub009/internal/network"
)

// MetropolisHastings is a single-chain sampler.
type MetropolisHastings = mcmc.MetropolisHastings

// Config holds sampler configuration.
type Config = mcmc.Config

// ProposalDistribution draws candidate values for latent vertices.
type ProposalDistribution = mcmc.ProposalDistribution

// PriorProposal redraws vertices from their priors.
type PriorProposal = mcmc.PriorProposal

// GaussianProposal is a random walk on continuous vertices.
type GaussianProposal = mcmc.GaussianProposal

// VertexSelector picks the vertices moved in each step.
type VertexSelector = mcmc.VertexSelector

// Built-in selectors.
type (
	CyclingSelector = mcmc.CyclingSelector
	RandomSelector  = mcmc.RandomSelector
	BlockSelector   = mcmc.BlockSelector
)

// ChainBuilder constructs the model for one of several parallel chains.
type ChainBuilder = mcmc.ChainBuilder

// Names usable in Config.
const (
	Prior    = mcmc.Prior
	Gaussian = mcmc.Gaussian
	Cycling  = mcmc.Cycling
	Random   = mcmc.Random
	Block    = mcmc.Block
)

// New creates a sampler over net.
func New(net *network.BayesianNetwork, cfg Config) (*MetropolisHastings, error) {
	return mcmc.New(net, cfg)
}

// RunChains runs n independent chains in parallel.
func RunChains(ctx context.Context, n, samples int, build ChainBuilder, cfg Config) ([]*network.NetworkSamples, error) {
	return mcmc.RunChains(ctx, n, samples, build, cfg)
}
