package mcmc

import (
	"context"

	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/network"
	"github.com/improbable-research/keanu-sub009/internal/parallel"
	"github.com/improbable-research/keanu-sub009/internal/random"
)

// ChainBuilder constructs an independent copy of the model for one chain and
// returns the network together with the vertices to record.
type ChainBuilder func(chain int) (*network.BayesianNetwork, []*graph.Vertex, error)

// RunChains runs n independent chains of the given length in parallel. Each
// chain gets its own graph from build and its own seed split from cfg.Seed,
// so the result is reproducible regardless of scheduling. Custom proposals
// and selectors in cfg are shared by every chain and must be stateless.
func RunChains(ctx context.Context, n, samples int, build ChainBuilder, cfg Config) ([]*network.NetworkSamples, error) {
	cfg = cfg.withDefaults()
	root := random.New(cfg.Seed)
	out := make([]*network.NetworkSamples, n)

	err := parallel.For(ctx, n, func(ctx context.Context, i int) error {
		net, vertices, err := build(i)
		if err != nil {
			return err
		}
		chainCfg := cfg
		chainCfg.Seed = root.Split(i).Seed()
		chainCfg.Logger = cfg.Logger.With("chain", i)
		mh, err := New(net, chainCfg)
		if err != nil {
			return err
		}
		out[i], err = mh.GetPosteriorSamples(ctx, vertices, samples)
		return err
	}, parallel.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return out, nil
}
