package graph

import (
	"fmt"

	"github.com/improbable-research/keanu-sub009/internal/random"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// Vertex is a node of the computation graph.
type Vertex struct {
	g     *Graph
	id    ID
	label string
	kind  Kind

	op    Op           // Deterministic only
	index int          // OpTake index
	dist  Distribution // Probabilistic only

	shape tensor.Shape
	dtype tensor.DataType
	value *tensor.Tensor

	parents  []ID
	children []ID

	observed bool
	fed      bool // Placeholder has been fed a value
}

// ID returns the vertex identity.
func (v *Vertex) ID() ID { return v.id }

// Graph returns the graph owning v.
func (v *Vertex) Graph() *Graph { return v.g }

// Kind returns the vertex variant.
func (v *Vertex) Kind() Kind { return v.kind }

// Op returns the operation of a deterministic vertex.
func (v *Vertex) Op() Op { return v.op }

// Index returns the flat index taken by an OpTake vertex.
func (v *Vertex) Index() int { return v.index }

// Distribution returns the distribution of a probabilistic vertex.
func (v *Vertex) Distribution() Distribution { return v.dist }

// Shape returns the fixed shape of every value v holds.
func (v *Vertex) Shape() tensor.Shape { return v.shape }

// DType returns the value type of v.
func (v *Vertex) DType() tensor.DataType { return v.dtype }

// Label returns the vertex label, empty if unset.
func (v *Vertex) Label() string { return v.label }

// IsProbabilistic reports whether v has a distribution.
func (v *Vertex) IsProbabilistic() bool { return v.kind == Probabilistic }

// IsObserved reports whether v is clamped to evidence.
func (v *Vertex) IsObserved() bool { return v.observed }

// IsDiscrete reports whether v holds countable values.
func (v *Vertex) IsDiscrete() bool {
	if v.kind == Probabilistic {
		return v.dist.Discrete()
	}
	return v.dtype.IsDiscrete()
}

// IsFed reports whether a placeholder holds a fed value rather than its default's.
func (v *Vertex) IsFed() bool { return v.fed }

// HasValue reports whether v currently caches a value.
func (v *Vertex) HasValue() bool { return v.value != nil }

// Parents returns the parent vertices in construction order.
func (v *Vertex) Parents() []*Vertex {
	out := make([]*Vertex, len(v.parents))
	for i, id := range v.parents {
		out[i] = v.g.get(id)
	}
	return out
}

// Children returns the vertices that name v as a parent.
func (v *Vertex) Children() []*Vertex {
	out := make([]*Vertex, len(v.children))
	for i, id := range v.children {
		out[i] = v.g.get(id)
	}
	return out
}

// String describes the vertex for logs and errors.
func (v *Vertex) String() string {
	name := v.kind.String()
	switch v.kind {
	case Probabilistic:
		name = v.dist.Name()
	case Deterministic:
		name = v.op.String()
	}
	if v.label != "" {
		return fmt.Sprintf("%s#%d(%s)", name, v.id, v.label)
	}
	return fmt.Sprintf("%s#%d", name, v.id)
}

// SetLabel names v, optionally inside namespaces ("outer", "inner" gives
// "outer.inner.name"). Labels are unique within a graph.
func (v *Vertex) SetLabel(name string, namespace ...string) error {
	label := joinLabel(name, namespace)
	if owner, ok := v.g.labels[label]; ok && owner != v.id {
		return v.errorf("label", ErrDuplicateLabel, "%q", label)
	}
	if v.label != "" {
		delete(v.g.labels, v.label)
	}
	v.label = label
	v.g.labels[label] = v.id
	return nil
}

// Value returns the cached value, computing deterministic ancestors that have
// none. It fails with ErrNoValue when no computation path exists, e.g. an
// unfed placeholder or an unsampled probabilistic vertex.
func (v *Vertex) Value() (*tensor.Tensor, error) {
	if v.value != nil {
		return v.value, nil
	}
	if v.kind == Deterministic || v.kind == Placeholder {
		return v.LazyEval()
	}
	return nil, v.errorf("value", ErrNoValue, "")
}

// MustValue is like Value but panics on error.
func (v *Vertex) MustValue() *tensor.Tensor {
	t, err := v.Value()
	if err != nil {
		panic(err)
	}
	return t
}

// SetValue overwrites the cached value without touching any other vertex.
// The caller is responsible for descendant consistency.
func (v *Vertex) SetValue(t *tensor.Tensor) error {
	t, err := v.conform(t)
	if err != nil {
		return err
	}
	v.value = t
	if v.kind == Placeholder {
		v.fed = true
	}
	return nil
}

// SetAndCascade sets the value of v and recomputes every deterministic
// descendant so the graph is consistent afterwards.
func (v *Vertex) SetAndCascade(t *tensor.Tensor) error {
	if err := v.SetValue(t); err != nil {
		return err
	}
	return cascade([]*Vertex{v})
}

// Feed sets the value of a placeholder and cascades it.
func (v *Vertex) Feed(t *tensor.Tensor) error {
	if v.kind != Placeholder {
		return v.errorf("feed", ErrNotPlaceholder, "")
	}
	return v.SetAndCascade(t)
}

// AttachDefault wires def as the fallback of an unattached placeholder.
func (v *Vertex) AttachDefault(def *Vertex) error {
	switch {
	case v.kind != Placeholder:
		return v.errorf("attach", ErrNotPlaceholder, "")
	case len(v.parents) > 0:
		return v.errorf("attach", ErrAlreadyAttached, "")
	case def.g != v.g:
		return v.errorf("attach", ErrForeignVertex, "")
	case !def.shape.Equal(v.shape):
		return v.errorf("attach", ErrShapeMismatch, "default %v, placeholder %v", def.shape, v.shape)
	case def == v || v.isAncestorOf(def):
		return v.errorf("attach", ErrCycle, "%s depends on %s", def, v)
	}
	v.parents = []ID{def.id}
	def.children = append(def.children, v.id)
	return nil
}

// Observe clamps a probabilistic vertex to evidence and cascades the value.
// Observing any other kind fails: a derived quantity pinned to a value its
// parents disagree with would corrupt downstream computation.
func (v *Vertex) Observe(t *tensor.Tensor) error {
	if v.kind != Probabilistic {
		return v.errorf("observe", ErrObserveNonProbabilistic, "%s", v.kind)
	}
	if err := v.SetAndCascade(t); err != nil {
		return err
	}
	v.observed = true
	return nil
}

// Unobserve releases v back to latent status. Its value is kept.
func (v *Vertex) Unobserve() {
	v.observed = false
}

// Calculate recomputes v from its parents' current values and caches the result.
// Probabilistic and constant vertices return their current value.
func (v *Vertex) Calculate() (*tensor.Tensor, error) {
	switch v.kind {
	case Deterministic:
		in := make([]*tensor.Tensor, len(v.parents))
		for i, pid := range v.parents {
			p := v.g.get(pid)
			if p.value == nil {
				return nil, p.errorf("calculate", ErrNoValue, "parent of %s", v)
			}
			in[i] = p.value
		}
		out, err := applyOp(v, in)
		if err != nil {
			return nil, v.errorf("calculate", ErrShapeMismatch, "%v", err)
		}
		v.value = out
		return out, nil
	case Placeholder:
		if v.fed {
			return v.value, nil
		}
		if len(v.parents) == 0 {
			return nil, v.errorf("calculate", ErrNoValue, "placeholder was never fed")
		}
		def := v.g.get(v.parents[0])
		if def.value == nil {
			return nil, def.errorf("calculate", ErrNoValue, "default of %s", v)
		}
		v.value = def.value
		return v.value, nil
	default:
		if v.value == nil {
			return nil, v.errorf("calculate", ErrNoValue, "")
		}
		return v.value, nil
	}
}

// LazyEval computes v and any ancestors that have no value yet.
func (v *Vertex) LazyEval() (*tensor.Tensor, error) {
	return v.evaluate(true)
}

// Eval recomputes every deterministic ancestor of v from the probabilistic,
// constant and placeholder values it ultimately depends on.
func (v *Vertex) Eval() (*tensor.Tensor, error) {
	return v.evaluate(false)
}

func (v *Vertex) evaluate(lazy bool) (*tensor.Tensor, error) {
	pending := upstream(v, func(u *Vertex) bool {
		if u.kind != Deterministic && u.kind != Placeholder {
			return false
		}
		return !lazy || u.value == nil
	})
	order, err := TopologicalSort(pending)
	if err != nil {
		return nil, err
	}
	for _, u := range order {
		if _, err := u.Calculate(); err != nil {
			return nil, err
		}
	}
	if v.value == nil {
		return nil, v.errorf("eval", ErrNoValue, "")
	}
	return v.value, nil
}

// Sample draws a value without caching it. Probabilistic vertices delegate to
// their distribution using their parents' current values; deterministic
// vertices sample their parents and apply their op. Within one call every
// ancestor is sampled at most once.
func (v *Vertex) Sample(src *random.Source) (*tensor.Tensor, error) {
	return v.sample(src, make(map[ID]*tensor.Tensor))
}

func (v *Vertex) sample(src *random.Source, memo map[ID]*tensor.Tensor) (*tensor.Tensor, error) {
	if t, ok := memo[v.id]; ok {
		return t, nil
	}
	var (
		out *tensor.Tensor
		err error
	)
	switch v.kind {
	case Probabilistic:
		params := make([]*tensor.Tensor, len(v.parents))
		for i, pid := range v.parents {
			if params[i], err = v.g.get(pid).Value(); err != nil {
				return nil, err
			}
		}
		out, err = v.dist.Sample(v.shape, params, src)
		if err != nil {
			return nil, v.errorf("sample", err, "")
		}
		out, err = v.conform(out)
	case Deterministic:
		in := make([]*tensor.Tensor, len(v.parents))
		for i, pid := range v.parents {
			if in[i], err = v.g.get(pid).sample(src, memo); err != nil {
				return nil, err
			}
		}
		out, err = applyOp(v, in)
	case Placeholder:
		if v.fed || len(v.parents) == 0 {
			out, err = v.Value()
		} else {
			out, err = v.g.get(v.parents[0]).sample(src, memo)
		}
	default:
		out, err = v.Value()
	}
	if err != nil {
		return nil, err
	}
	memo[v.id] = out
	return out, nil
}

// LogProb returns the log probability of the current value of a
// probabilistic vertex given its parents' current values.
func (v *Vertex) LogProb() (float64, error) {
	if v.kind != Probabilistic {
		return 0, nil
	}
	x, err := v.Value()
	if err != nil {
		return 0, err
	}
	return v.LogProbAt(x)
}

// LogProbAt returns the log probability of x given the parents' current values.
func (v *Vertex) LogProbAt(x *tensor.Tensor) (float64, error) {
	params, err := v.ParamValues()
	if err != nil {
		return 0, err
	}
	return v.dist.LogProb(x, params), nil
}

// ParamValues returns the current values of v's parents.
func (v *Vertex) ParamValues() ([]*tensor.Tensor, error) {
	params := make([]*tensor.Tensor, len(v.parents))
	for i, pid := range v.parents {
		t, err := v.g.get(pid).Value()
		if err != nil {
			return nil, err
		}
		params[i] = t
	}
	return params, nil
}

// conform checks t against the vertex shape and coerces its type.
func (v *Vertex) conform(t *tensor.Tensor) (*tensor.Tensor, error) {
	if t == nil {
		return nil, v.errorf("set", ErrNoValue, "nil tensor")
	}
	if !t.Shape().Equal(v.shape) {
		if t.NumElements() != v.shape.NumElements() || !v.shape.IsScalarLike() {
			return nil, v.errorf("set", ErrShapeMismatch, "got %v, want %v", t.Shape(), v.shape)
		}
		reshaped, err := t.Reshape(v.shape)
		if err != nil {
			return nil, v.errorf("set", ErrShapeMismatch, "%v", err)
		}
		t = reshaped
	}
	if t.DType() != v.dtype {
		t = t.WithDType(v.dtype)
	}
	return t, nil
}
