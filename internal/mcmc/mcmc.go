// Package mcmc draws posterior samples from a Bayesian network with the
// Metropolis-Hastings algorithm.
//
// A sampler owns its network for the duration of a run: every step writes a
// candidate into the graph, cascades it, and either keeps it or writes the
// previous values back. Only the log probabilities of the moved vertices and
// their probabilistic children are re-evaluated per step.
//
// Example usage:
//
//	mh, err := mcmc.New(net, mcmc.Config{Seed: 42})
//	samples, err := mh.GetPosteriorSamples(ctx, []*graph.Vertex{a}, 10000)
//	mean, err := samples.Drop(1000).Mean(a)
package mcmc

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/metrics"
	"github.com/improbable-research/keanu-sub009/internal/network"
	"github.com/improbable-research/keanu-sub009/internal/random"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// Config holds configuration for MetropolisHastings.
type Config struct {
	Seed          uint64       `yaml:"seed"`           // default: random.DefaultSeed
	Proposal      ProposalKind `yaml:"proposal"`       // default: prior
	Sigma         float64      `yaml:"sigma"`          // gaussian proposal step size (default: 1)
	Selector      SelectorKind `yaml:"selector"`       // default: cycling
	ProbeAttempts int          `yaml:"probe_attempts"` // restarts allowed to leave an impossible state (default: 10000)

	// ProposalDistribution and VertexSelector replace the named built-ins.
	ProposalDistribution ProposalDistribution `yaml:"-"`
	VertexSelector       VertexSelector       `yaml:"-"`

	Logger  *slog.Logger     `yaml:"-"` // default: slog.Default()
	Metrics *metrics.Metrics `yaml:"-"` // optional
}

func (c Config) withDefaults() Config {
	if c.Seed == 0 {
		c.Seed = random.DefaultSeed
	}
	if c.Proposal == "" {
		c.Proposal = Prior
	}
	if c.Sigma == 0 {
		c.Sigma = 1
	}
	if c.Selector == "" {
		c.Selector = Cycling
	}
	if c.ProbeAttempts == 0 {
		c.ProbeAttempts = 10000
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// MetropolisHastings is a single-chain sampler over one network.
// It is not safe for concurrent use.
type MetropolisHastings struct {
	net      *network.BayesianNetwork
	cfg      Config
	src      *random.Source
	proposal ProposalDistribution
	selector VertexSelector
	members  map[graph.ID]bool

	// initial is the state every run restarts from, captured on first use.
	initial *network.NetworkState

	logProb  float64
	steps    int
	accepted int
}

// New creates a sampler over net.
func New(net *network.BayesianNetwork, cfg Config) (*MetropolisHastings, error) {
	cfg = cfg.withDefaults()
	proposal := cfg.ProposalDistribution
	if proposal == nil {
		p, err := newProposal(cfg.Proposal, cfg.Sigma)
		if err != nil {
			return nil, err
		}
		proposal = p
	}
	selector := cfg.VertexSelector
	if selector == nil {
		s, err := newSelector(cfg.Selector)
		if err != nil {
			return nil, err
		}
		selector = s
	}

	members := make(map[graph.ID]bool, len(net.Vertices()))
	for _, v := range net.LatentOrObservedVertices() {
		members[v.ID()] = true
	}
	return &MetropolisHastings{
		net:      net,
		cfg:      cfg,
		src:      random.New(cfg.Seed),
		proposal: proposal,
		selector: selector,
		members:  members,
	}, nil
}

// AcceptanceRate returns the fraction of accepted proposals in the current run.
func (mh *MetropolisHastings) AcceptanceRate() float64 {
	if mh.steps == 0 {
		return 0
	}
	return float64(mh.accepted) / float64(mh.steps)
}

// GetPosteriorSamples runs n steps and records the values of vertices after
// each one.
func (mh *MetropolisHastings) GetPosteriorSamples(ctx context.Context, vertices []*graph.Vertex, n int) (*network.NetworkSamples, error) {
	return network.CollectStream(mh.Stream(ctx, vertices), n)
}

// Stream yields the state of vertices after every step, without end. Each
// iteration of the returned sequence restarts the chain from the same initial
// state and seed, so repeated iterations produce identical sequences.
// A done ctx ends the sequence with ctx.Err().
func (mh *MetropolisHastings) Stream(ctx context.Context, vertices []*graph.Vertex) iter.Seq2[network.NetworkState, error] {
	return func(yield func(network.NetworkState, error) bool) {
		logger := mh.cfg.Logger.With("run", uuid.NewString(), "proposal", fmt.Sprintf("%T", mh.proposal))
		if err := mh.reset(); err != nil {
			yield(network.NetworkState{}, err)
			return
		}
		logger.Info("sampling started", "latent", len(mh.net.LatentVertices()), "log_prob", mh.logProb)
		defer func() {
			logger.Info("sampling stopped", "steps", mh.steps, "acceptance_rate", mh.AcceptanceRate())
		}()

		for {
			if err := ctx.Err(); err != nil {
				yield(network.NetworkState{}, err)
				return
			}
			if err := mh.Step(); err != nil {
				yield(network.NetworkState{}, err)
				return
			}
			state, err := network.Capture(vertices, mh.logProb)
			if !yield(state, err) || err != nil {
				return
			}
		}
	}
}

// reset rewinds the source and restores the initial state, probing into a
// possible state the first time.
func (mh *MetropolisHastings) reset() error {
	mh.src.Reset(mh.cfg.Seed)
	mh.steps, mh.accepted = 0, 0
	if mh.initial == nil {
		if err := mh.net.ProbeForNonZeroProbability(mh.cfg.ProbeAttempts, mh.src); err != nil {
			return err
		}
		s, err := mh.net.Snapshot()
		if err != nil {
			return err
		}
		mh.initial = &s
		mh.src.Reset(mh.cfg.Seed)
	} else if err := mh.net.Restore(*mh.initial); err != nil {
		return err
	}
	lp, err := mh.net.LogProb()
	if err != nil {
		return err
	}
	mh.logProb = lp
	return nil
}

// Step proposes a move for the next selected vertices and accepts or rejects
// it. The network is left in the resulting state.
func (mh *MetropolisHastings) Step() error {
	if mh.initial == nil {
		if err := mh.reset(); err != nil {
			return err
		}
	}
	latent := mh.net.LatentVertices()
	if len(latent) == 0 {
		return nil
	}
	moved := mh.selector.Select(latent, mh.steps, mh.src)
	mh.steps++

	previous := make(map[*graph.Vertex]*tensor.Tensor, len(moved))
	candidate := make(map[*graph.Vertex]*tensor.Tensor, len(moved))
	var forward float64
	for _, v := range moved {
		x, err := v.Value()
		if err != nil {
			return err
		}
		y, err := mh.proposal.Propose(v, mh.src)
		if err != nil {
			return err
		}
		q, err := mh.proposal.LogDensity(v, x, y)
		if err != nil {
			return err
		}
		previous[v], candidate[v] = x, y
		forward += q
	}

	blanket := mh.blanket(moved)
	before, err := sumLogProb(blanket)
	if err != nil {
		return err
	}
	if err := graph.CascadeUpdate(candidate); err != nil {
		return err
	}
	after, err := sumLogProb(blanket)
	if err != nil {
		return err
	}
	var reverse float64
	for _, v := range moved {
		q, err := mh.proposal.LogDensity(v, candidate[v], previous[v])
		if err != nil {
			return err
		}
		reverse += q
	}

	logRatio := after - before + reverse - forward
	u := mh.src.Float64()
	accept := !math.IsNaN(logRatio) && !math.IsInf(after, -1) && math.Log(u) < logRatio
	if accept {
		mh.accepted++
		mh.logProb += after - before
	} else if err := graph.CascadeUpdate(previous); err != nil {
		return fmt.Errorf("revert rejected proposal: %w", err)
	}

	mh.cfg.Metrics.Proposal(accept)
	mh.cfg.Metrics.ChainState(mh.AcceptanceRate(), mh.logProb)
	mh.cfg.Logger.Debug("mh step", "step", mh.steps, "vertices", len(moved), "log_ratio", logRatio, "accepted", accept)
	return nil
}

// blanket returns the network vertices whose log probability depends on the
// moved vertices: the vertices themselves and their probabilistic children.
func (mh *MetropolisHastings) blanket(moved []*graph.Vertex) []*graph.Vertex {
	seen := make(map[graph.ID]bool)
	var out []*graph.Vertex
	add := func(v *graph.Vertex) {
		if mh.members[v.ID()] && !seen[v.ID()] {
			seen[v.ID()] = true
			out = append(out, v)
		}
	}
	for _, v := range moved {
		add(v)
		for _, c := range v.ProbabilisticChildren() {
			add(c)
		}
	}
	return out
}

func sumLogProb(vertices []*graph.Vertex) (float64, error) {
	var sum float64
	for _, v := range vertices {
		lp, err := v.LogProb()
		if err != nil {
			return 0, err
		}
		sum += lp
	}
	return sum, nil
}
