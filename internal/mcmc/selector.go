package mcmc

import (
	"fmt"

	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/random"
)

// VertexSelector picks the latent vertices moved together in one step.
type VertexSelector interface {
	Select(latent []*graph.Vertex, step int, src *random.Source) []*graph.Vertex
}

// CyclingSelector moves one vertex per step in network order.
type CyclingSelector struct{}

func (CyclingSelector) Select(latent []*graph.Vertex, step int, _ *random.Source) []*graph.Vertex {
	return latent[step%len(latent) : step%len(latent)+1]
}

// RandomSelector moves one uniformly chosen vertex per step.
type RandomSelector struct{}

func (RandomSelector) Select(latent []*graph.Vertex, _ int, src *random.Source) []*graph.Vertex {
	i := src.IntN(len(latent))
	return latent[i : i+1]
}

// BlockSelector moves every latent vertex at once.
type BlockSelector struct{}

func (BlockSelector) Select(latent []*graph.Vertex, _ int, _ *random.Source) []*graph.Vertex {
	return latent
}

// SelectorKind names a built-in vertex selector.
type SelectorKind string

// Built-in selectors.
const (
	Cycling SelectorKind = "cycling"
	Random  SelectorKind = "random"
	Block   SelectorKind = "block"
)

func newSelector(kind SelectorKind) (VertexSelector, error) {
	switch kind {
	case Cycling:
		return CyclingSelector{}, nil
	case Random:
		return RandomSelector{}, nil
	case Block:
		return BlockSelector{}, nil
	default:
		return nil, fmt.Errorf("unknown vertex selector %q", kind)
	}
}
