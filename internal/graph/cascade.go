package graph

import (
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// CascadeUpdate sets several vertices at once and then recomputes the union
// of their deterministic descendants in a single topological pass.
func CascadeUpdate(values map[*Vertex]*tensor.Tensor) error {
	sources := make([]*Vertex, 0, len(values))
	for v, t := range values {
		if err := v.SetValue(t); err != nil {
			return err
		}
		sources = append(sources, v)
	}
	return cascade(sources)
}

// cascade recomputes every deterministic descendant of sources exactly once.
// Propagation stops at probabilistic vertices: their values do not depend on
// their parents, only their log probability does. Fed placeholders also stop
// propagation.
//
// A vertex that cannot be recomputed loses its cached value, and so does
// everything downstream of it. The rest of the pass still runs, so no
// descendant keeps a value derived from the old sources. The first failure
// is returned.
func cascade(sources []*Vertex) error {
	if len(sources) == 0 {
		return nil
	}
	affected := downstream(sources, recomputable)
	order, err := TopologicalSort(affected)
	if err != nil {
		return err
	}
	var first error
	for _, v := range order {
		if _, err := v.Calculate(); err != nil {
			v.value = nil
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func recomputable(v *Vertex) bool {
	switch v.kind {
	case Deterministic:
		return true
	case Placeholder:
		return !v.fed
	default:
		return false
	}
}

// DeterministicDescendants returns the vertices SetAndCascade on v recomputes.
func (v *Vertex) DeterministicDescendants() []*Vertex {
	return downstream([]*Vertex{v}, recomputable)
}

// ProbabilisticChildren returns the probabilistic vertices whose parameters
// depend on v, directly or through deterministic vertices. Their log
// probabilities change when v's value changes.
func (v *Vertex) ProbabilisticChildren() []*Vertex {
	set := newVertexSet()
	for _, u := range append([]*Vertex{v}, v.DeterministicDescendants()...) {
		for _, cid := range u.children {
			if c := v.g.get(cid); c.kind == Probabilistic {
				set.Set(c)
			}
		}
	}
	return set.Items()
}
