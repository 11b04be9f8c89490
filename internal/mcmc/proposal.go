package mcmc

import (
	"fmt"

	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/random"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// ProposalDistribution draws candidate values for latent vertices.
type ProposalDistribution interface {
	// Propose draws a candidate value for v given its current value.
	Propose(v *graph.Vertex, src *random.Source) (*tensor.Tensor, error)
	// LogDensity returns log q(to | from) for v, evaluated against the
	// current values of v's parents.
	LogDensity(v *graph.Vertex, from, to *tensor.Tensor) (float64, error)
}

// PriorProposal redraws a vertex from its prior given its parents. It is an
// independence proposal: the forward and reverse densities are the prior
// densities of the candidate and of the current value.
type PriorProposal struct{}

// Propose samples v from its distribution.
func (PriorProposal) Propose(v *graph.Vertex, src *random.Source) (*tensor.Tensor, error) {
	return v.Sample(src)
}

// LogDensity returns the prior log density of to.
func (PriorProposal) LogDensity(v *graph.Vertex, _, to *tensor.Tensor) (float64, error) {
	return v.LogProbAt(to)
}

// GaussianProposal perturbs every element of a continuous vertex by
// N(0, Sigma²). The walk is symmetric so its densities cancel. Discrete
// vertices are redrawn from their prior instead.
type GaussianProposal struct {
	Sigma float64
}

// Propose draws x + Sigma·ε.
func (p GaussianProposal) Propose(v *graph.Vertex, src *random.Source) (*tensor.Tensor, error) {
	if v.IsDiscrete() {
		return PriorProposal{}.Propose(v, src)
	}
	x, err := v.Value()
	if err != nil {
		return nil, err
	}
	data := make([]float64, x.NumElements())
	for i := range data {
		data[i] = x.At(i) + p.Sigma*src.NormFloat64()
	}
	return tensor.New(x.Shape(), x.DType(), data)
}

// LogDensity is zero for continuous vertices.
func (p GaussianProposal) LogDensity(v *graph.Vertex, from, to *tensor.Tensor) (float64, error) {
	if v.IsDiscrete() {
		return PriorProposal{}.LogDensity(v, from, to)
	}
	return 0, nil
}

// ProposalKind names a built-in proposal distribution.
type ProposalKind string

// Built-in proposals.
const (
	Prior    ProposalKind = "prior"
	Gaussian ProposalKind = "gaussian"
)

func newProposal(kind ProposalKind, sigma float64) (ProposalDistribution, error) {
	switch kind {
	case Prior:
		return PriorProposal{}, nil
	case Gaussian:
		if !(sigma > 0) {
			return nil, fmt.Errorf("gaussian proposal needs a positive sigma, got %v", sigma)
		}
		return GaussianProposal{Sigma: sigma}, nil
	default:
		return nil, fmt.Errorf("unknown proposal %q", kind)
	}
}
