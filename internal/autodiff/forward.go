package autodiff

import (
	"fmt"

	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// DualNumber pairs a vertex value with its partial derivatives with respect
// to the forward-mode inputs.
type DualNumber struct {
	Value    *tensor.Tensor
	partials map[graph.ID]*PartialDerivative
}

// WithRespectTo returns ∂Value/∂v, all zeros if Value does not depend on v.
func (d *DualNumber) WithRespectTo(v *graph.Vertex) *PartialDerivative {
	if p, ok := d.partials[v.ID()]; ok {
		return p
	}
	return newPartial(d.Value.Shape(), v.Shape())
}

// Inputs returns the ids of inputs with a non-trivial partial.
func (d *DualNumber) Inputs() []graph.ID {
	ids := make([]graph.ID, 0, len(d.partials))
	for id := range d.partials {
		ids = append(ids, id)
	}
	return ids
}

// Forward differentiates of with respect to wrt by propagating dual numbers
// from the inputs through of's ancestors in topological order. It is the
// cheaper mode when there are few inputs.
func Forward(of *graph.Vertex, wrt ...*graph.Vertex) (*DualNumber, error) {
	targets, err := targetSet(wrt)
	if err != nil {
		return nil, err
	}
	if _, err := of.Value(); err != nil {
		return nil, err
	}
	order, err := graph.TopologicalSort(append(of.Ancestors(), of))
	if err != nil {
		return nil, err
	}

	duals := make(map[graph.ID]map[graph.ID]*PartialDerivative, len(order))
	// blocked holds live non-differentiable vertices. Reaching one is only an
	// error if its output flows into a gradient, e.g. not for an If condition.
	blocked := make(map[graph.ID]*graph.Vertex)
	for _, u := range order {
		if targets[u.ID()] {
			duals[u.ID()] = map[graph.ID]*PartialDerivative{u.ID(): identityPartial(u.Shape())}
			continue
		}
		if !passesGradient(u) {
			continue
		}
		parents := u.Parents()
		if u.Kind() == graph.Placeholder {
			duals[u.ID()] = duals[parents[0].ID()]
			if b, ok := blocked[parents[0].ID()]; ok {
				blocked[u.ID()] = b
			}
			continue
		}
		live := false
		for _, p := range parents {
			if len(duals[p.ID()]) > 0 || blocked[p.ID()] != nil {
				live = true
				break
			}
		}
		if !live {
			continue
		}
		if !u.Op().Differentiable() {
			blocked[u.ID()] = u
			continue
		}
		val, in, err := operands(u)
		if err != nil {
			return nil, err
		}
		jac := localJacobian(u, in, val)
		out := make(map[graph.ID]*PartialDerivative)
		for k, p := range parents {
			if jac[k] == nil {
				continue
			}
			if b, ok := blocked[p.ID()]; ok {
				return nil, notDifferentiable("forward", b)
			}
			for wid, pd := range duals[p.ID()] {
				acc, ok := out[wid]
				if !ok {
					acc = newPartial(u.Shape(), pd.wrt)
					out[wid] = acc
				}
				for _, e := range jac[k] {
					acc.addRow(e.out, pd, e.in, e.coef)
				}
			}
		}
		duals[u.ID()] = out
	}
	if b, ok := blocked[of.ID()]; ok {
		return nil, notDifferentiable("forward", b)
	}

	val, err := of.Value()
	if err != nil {
		return nil, err
	}
	return &DualNumber{Value: val, partials: duals[of.ID()]}, nil
}

// passesGradient reports whether a vertex's value is a function of its parents.
func passesGradient(u *graph.Vertex) bool {
	switch u.Kind() {
	case graph.Deterministic:
		return true
	case graph.Placeholder:
		return len(u.Parents()) == 1 && !u.IsFed()
	default:
		return false
	}
}

func operands(u *graph.Vertex) (*tensor.Tensor, []*tensor.Tensor, error) {
	val, err := u.Value()
	if err != nil {
		return nil, nil, err
	}
	in, err := u.ParamValues()
	if err != nil {
		return nil, nil, err
	}
	return val, in, nil
}

func targetSet(wrt []*graph.Vertex) (map[graph.ID]bool, error) {
	targets := make(map[graph.ID]bool, len(wrt))
	for _, w := range wrt {
		if w.IsDiscrete() {
			return nil, &graph.VertexError{Op: "differentiate", ID: w.ID(), Label: w.Label(), Err: ErrDiscreteGradient}
		}
		targets[w.ID()] = true
	}
	return targets, nil
}

func notDifferentiable(mode string, u *graph.Vertex) error {
	return &graph.VertexError{
		Op:    mode,
		ID:    u.ID(),
		Label: u.Label(),
		Err:   fmt.Errorf("%w: %s", ErrNotDifferentiable, u.Op()),
	}
}
