package autodiff

import (
	"fmt"

	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// Reverse differentiates of with respect to every vertex in wrt by
// propagating adjoints from of back through its ancestors. The returned
// partials have shape of ++ wrt and are zero for inputs of does not depend on.
func Reverse(of *graph.Vertex, wrt ...*graph.Vertex) (map[graph.ID]*PartialDerivative, error) {
	if _, err := of.Value(); err != nil {
		return nil, err
	}
	seeds := map[graph.ID]*PartialDerivative{of.ID(): identityPartial(of.Shape())}
	return backprop(seeds, []*graph.Vertex{of}, of.Shape(), wrt)
}

// Backpropagate pushes scalar adjoints seeded at several vertices back to
// wrt. Each seed is ∂L/∂vertex for some scalar L, shaped like its vertex; the
// result holds ∂L/∂w shaped like each w. Seeds on the same vertex add up.
func Backpropagate(seeds map[*graph.Vertex]*tensor.Tensor, wrt []*graph.Vertex) (map[graph.ID]*tensor.Tensor, error) {
	adj := make(map[graph.ID]*PartialDerivative, len(seeds))
	roots := make([]*graph.Vertex, 0, len(seeds))
	for v, t := range seeds {
		if !t.Shape().Equal(v.Shape()) {
			return nil, &graph.VertexError{Op: "backpropagate", ID: v.ID(), Label: v.Label(),
				Err: fmt.Errorf("%w: seed %v", graph.ErrShapeMismatch, t.Shape())}
		}
		p := newPartial(tensor.Shape{}, v.Shape())
		copy(p.data, t.Data())
		adj[v.ID()] = p
		roots = append(roots, v)
	}
	partials, err := backprop(adj, roots, tensor.Shape{}, wrt)
	if err != nil {
		return nil, err
	}
	out := make(map[graph.ID]*tensor.Tensor, len(partials))
	for id, p := range partials {
		out[id] = p.WrtTensor()
	}
	return out, nil
}

func backprop(adj map[graph.ID]*PartialDerivative, roots []*graph.Vertex, ofShape tensor.Shape, wrt []*graph.Vertex) (map[graph.ID]*PartialDerivative, error) {
	targets, err := targetSet(wrt)
	if err != nil {
		return nil, err
	}

	scope := make(map[graph.ID]*graph.Vertex)
	for _, r := range roots {
		scope[r.ID()] = r
		for _, a := range r.Ancestors() {
			scope[a.ID()] = a
		}
	}
	members := make([]*graph.Vertex, 0, len(scope))
	for _, v := range scope {
		members = append(members, v)
	}
	order, err := graph.TopologicalSort(members)
	if err != nil {
		return nil, err
	}

	// A vertex is relevant if some target is reachable from it through
	// gradient-passing vertices. Only relevant parents receive adjoints.
	relevant := make(map[graph.ID]bool, len(order))
	for _, u := range order {
		if targets[u.ID()] {
			relevant[u.ID()] = true
			continue
		}
		if !passesGradient(u) {
			continue
		}
		for _, p := range u.Parents() {
			if relevant[p.ID()] {
				relevant[u.ID()] = true
				break
			}
		}
	}

	for i := len(order) - 1; i >= 0; i-- {
		u := order[i]
		a, ok := adj[u.ID()]
		if !ok || !passesGradient(u) || !relevantParent(u, relevant) {
			continue
		}
		parents := u.Parents()
		if u.Kind() == graph.Placeholder {
			accumulate(adj, parents[0], ofShape).addAll(a)
			continue
		}
		if !u.Op().Differentiable() {
			return nil, notDifferentiable("reverse", u)
		}
		val, in, err := operands(u)
		if err != nil {
			return nil, err
		}
		jac := localJacobian(u, in, val)
		for k, p := range parents {
			if jac[k] == nil || !relevant[p.ID()] {
				continue
			}
			acc := accumulate(adj, p, ofShape)
			for _, e := range jac[k] {
				acc.addCol(e.in, a, e.out, e.coef)
			}
		}
	}

	out := make(map[graph.ID]*PartialDerivative, len(wrt))
	for _, w := range wrt {
		if p, ok := adj[w.ID()]; ok {
			out[w.ID()] = p
		} else {
			out[w.ID()] = newPartial(ofShape, w.Shape())
		}
	}
	return out, nil
}

func relevantParent(u *graph.Vertex, relevant map[graph.ID]bool) bool {
	for _, p := range u.Parents() {
		if relevant[p.ID()] {
			return true
		}
	}
	return false
}

func accumulate(adj map[graph.ID]*PartialDerivative, v *graph.Vertex, ofShape tensor.Shape) *PartialDerivative {
	acc, ok := adj[v.ID()]
	if !ok {
		acc = newPartial(ofShape, v.Shape())
		adj[v.ID()] = acc
	}
	return acc
}
