// Package network views a vertex graph as a Bayesian network: a frozen
// partition of its probabilistic vertices into latent and observed sets, with
// the joint log probability, its gradient and probing built on top.
//
// The partition is computed once. Observing or unobserving a vertex after
// construction is not reflected; build a new network instead.
package network

import (
	"errors"
	"fmt"
	"math"

	"github.com/improbable-research/keanu-sub009/internal/autodiff"
	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/random"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// ErrImpossibleNetwork is returned when probing cannot find a state with
// non-zero probability.
var ErrImpossibleNetwork = errors.New("cannot start from a zero-probability state")

// BayesianNetwork is a snapshot view over a set of vertices.
// It is not safe for concurrent use; drive it from one algorithm at a time.
type BayesianNetwork struct {
	vertices         []*graph.Vertex
	latent           []*graph.Vertex
	observed         []*graph.Vertex
	continuousLatent []*graph.Vertex
	discreteLatent   []*graph.Vertex

	graphs autodiff.LogProbGraphs
}

// New builds a network over exactly the given vertices.
func New(vertices []*graph.Vertex) (*BayesianNetwork, error) {
	order, err := graph.TopologicalSort(vertices)
	if err != nil {
		return nil, err
	}
	n := &BayesianNetwork{vertices: order}
	for _, v := range order {
		if !v.IsProbabilistic() {
			continue
		}
		if v.IsObserved() {
			n.observed = append(n.observed, v)
			continue
		}
		n.latent = append(n.latent, v)
		if v.IsDiscrete() {
			n.discreteLatent = append(n.discreteLatent, v)
		} else {
			n.continuousLatent = append(n.continuousLatent, v)
		}
	}
	return n, nil
}

// FromConnected builds a network over every vertex connected to roots.
func FromConnected(roots ...*graph.Vertex) (*BayesianNetwork, error) {
	return New(graph.ConnectedGraph(roots...))
}

// Vertices returns every vertex of the network in topological order.
func (n *BayesianNetwork) Vertices() []*graph.Vertex { return n.vertices }

// LatentVertices returns the unobserved probabilistic vertices.
func (n *BayesianNetwork) LatentVertices() []*graph.Vertex { return n.latent }

// ObservedVertices returns the observed probabilistic vertices.
func (n *BayesianNetwork) ObservedVertices() []*graph.Vertex { return n.observed }

// LatentOrObservedVertices returns every probabilistic vertex.
func (n *BayesianNetwork) LatentOrObservedVertices() []*graph.Vertex {
	out := make([]*graph.Vertex, 0, len(n.latent)+len(n.observed))
	out = append(out, n.latent...)
	return append(out, n.observed...)
}

// ContinuousLatentVertices returns the latent vertices that can be differentiated.
func (n *BayesianNetwork) ContinuousLatentVertices() []*graph.Vertex { return n.continuousLatent }

// DiscreteLatentVertices returns the latent vertices with countable values.
func (n *BayesianNetwork) DiscreteLatentVertices() []*graph.Vertex { return n.discreteLatent }

// VertexByLabel finds a network vertex by its full label.
func (n *BayesianNetwork) VertexByLabel(label string) (*graph.Vertex, bool) {
	for _, v := range n.vertices {
		if v.Label() == label {
			return v, true
		}
	}
	return nil, false
}

// LogProb is the joint log probability of the latent and observed vertices
// at their current values.
func (n *BayesianNetwork) LogProb() (float64, error) {
	return sumLogProb(n.latent, n.observed)
}

// LogLikelihood sums the log probability of the observed vertices only.
func (n *BayesianNetwork) LogLikelihood() (float64, error) {
	return sumLogProb(n.observed)
}

// LogPrior sums the log probability of the latent vertices only.
func (n *BayesianNetwork) LogPrior() (float64, error) {
	return sumLogProb(n.latent)
}

func sumLogProb(sets ...[]*graph.Vertex) (float64, error) {
	var total float64
	for _, set := range sets {
		for _, v := range set {
			lp, err := v.LogProb()
			if err != nil {
				return 0, err
			}
			total += lp
		}
	}
	return total, nil
}

// LogProbGradients returns ∂LogProb/∂v for every continuous latent vertex,
// each shaped like its vertex.
func (n *BayesianNetwork) LogProbGradients() (map[graph.ID]*tensor.Tensor, error) {
	return n.gradients(n.LatentOrObservedVertices())
}

// LogLikelihoodGradients returns ∂LogLikelihood/∂v for every continuous latent vertex.
func (n *BayesianNetwork) LogLikelihoodGradients() (map[graph.ID]*tensor.Tensor, error) {
	return n.gradients(n.observed)
}

// gradients seeds each term's local partials at the vertices they are taken
// against and runs a single reverse sweep to the continuous latents.
func (n *BayesianNetwork) gradients(terms []*graph.Vertex) (map[graph.ID]*tensor.Tensor, error) {
	targets := make(map[graph.ID]bool, len(n.continuousLatent))
	for _, v := range n.continuousLatent {
		targets[v.ID()] = true
	}
	seeds := make(map[*graph.Vertex]*tensor.Tensor)
	add := func(v *graph.Vertex, t *tensor.Tensor) error {
		prev, ok := seeds[v]
		if !ok {
			seeds[v] = t
			return nil
		}
		sum, err := tensor.Map2(prev, t, func(a, b float64) float64 { return a + b })
		if err != nil {
			return err
		}
		seeds[v] = sum
		return nil
	}

	for _, v := range terms {
		wrtValue := targets[v.ID()]
		var wrtParams []int
		parents := v.Parents()
		for i, p := range parents {
			if p.Kind() != graph.Constant && !p.IsDiscrete() {
				wrtParams = append(wrtParams, i)
			}
		}
		if !wrtValue && len(wrtParams) == 0 {
			continue
		}
		grad, err := n.graphs.DLogProb(v, wrtValue, wrtParams)
		if err != nil {
			return nil, err
		}
		if wrtValue {
			if err := add(v, grad.Value); err != nil {
				return nil, err
			}
		}
		for i, t := range grad.Params {
			if err := add(parents[i], t); err != nil {
				return nil, err
			}
		}
	}
	return autodiff.Backpropagate(seeds, n.continuousLatent)
}

// LogProbAt evaluates LogProb with overrides layered over the current values.
// The network is left exactly as it was.
func (n *BayesianNetwork) LogProbAt(overrides map[*graph.Vertex]*tensor.Tensor) (float64, error) {
	var lp float64
	err := n.withOverrides(overrides, func() (err error) {
		lp, err = n.LogProb()
		return err
	})
	return lp, err
}

// LogProbGradientsAt evaluates LogProbGradients with overrides layered over
// the current values. The network is left exactly as it was.
func (n *BayesianNetwork) LogProbGradientsAt(overrides map[*graph.Vertex]*tensor.Tensor) (map[graph.ID]*tensor.Tensor, error) {
	var grads map[graph.ID]*tensor.Tensor
	err := n.withOverrides(overrides, func() (err error) {
		grads, err = n.LogProbGradients()
		return err
	})
	return grads, err
}

func (n *BayesianNetwork) withOverrides(overrides map[*graph.Vertex]*tensor.Tensor, fn func() error) error {
	previous := make(map[*graph.Vertex]*tensor.Tensor, len(overrides))
	for v := range overrides {
		t, err := v.Value()
		if err != nil {
			return err
		}
		previous[v] = t
	}
	if err := graph.CascadeUpdate(overrides); err != nil {
		return errors.Join(err, graph.CascadeUpdate(previous))
	}
	err := fn()
	if rerr := graph.CascadeUpdate(previous); rerr != nil {
		return errors.Join(err, fmt.Errorf("restore overridden values: %w", rerr))
	}
	return err
}

// IsInImpossibleState reports whether the joint log probability is -Inf or
// NaN, or cannot be computed because some latent vertex has no value.
func (n *BayesianNetwork) IsInImpossibleState() (bool, error) {
	lp, err := n.LogProb()
	if errors.Is(err, graph.ErrNoValue) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return !isFinite(lp), nil
}

// ProbeForNonZeroProbability resamples every latent vertex from its prior
// until the network reaches a finite-probability state. It does nothing if
// the current state is already possible and fails with ErrImpossibleNetwork
// after attempts unsuccessful restarts.
func (n *BayesianNetwork) ProbeForNonZeroProbability(attempts int, src *random.Source) error {
	for i := 0; ; i++ {
		impossible, err := n.IsInImpossibleState()
		if err != nil {
			return err
		}
		if !impossible {
			return nil
		}
		if i >= attempts {
			return fmt.Errorf("%w: after %d attempts", ErrImpossibleNetwork, attempts)
		}
		if err := n.SampleLatents(src); err != nil {
			return err
		}
	}
}

// SampleLatents draws every latent vertex from its prior given its parents
// and recomputes deterministic vertices, in one topological pass.
func (n *BayesianNetwork) SampleLatents(src *random.Source) error {
	for _, v := range n.vertices {
		switch {
		case v.IsProbabilistic() && !v.IsObserved():
			t, err := v.Sample(src)
			if err != nil {
				return err
			}
			if err := v.SetValue(t); err != nil {
				return err
			}
		case v.Kind() == graph.Deterministic || v.Kind() == graph.Placeholder:
			if _, err := v.Calculate(); err != nil {
				return err
			}
		}
	}
	return nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
