// Package graph implements the vertex computation graph.
//
// A Graph is an arena of vertices indexed by id. Parent edges are fixed when
// a vertex is built (a vertex can only name vertices that already exist, so
// the graph is acyclic by construction); child edges are back-references used
// for traversal. Ids are issued by the graph itself, so independent graphs
// never interfere and iteration in id order is reproducible.
//
// Deterministic vertices evaluate lazily and are kept consistent by
// SetAndCascade, which recomputes every deterministic descendant exactly once
// in topological order.
package graph

import (
	"fmt"
	"strings"

	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// ID identifies a vertex within its graph. Ids are issued in construction order.
type ID int64

// Graph owns a set of vertices and issues their ids.
// A Graph is not safe for concurrent use.
type Graph struct {
	vertices []*Vertex
	labels   map[string]ID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{labels: make(map[string]ID)}
}

// Len returns the number of vertices in the graph.
func (g *Graph) Len() int {
	return len(g.vertices)
}

// Vertex returns the vertex with the given id.
func (g *Graph) Vertex(id ID) (*Vertex, bool) {
	if id < 0 || int(id) >= len(g.vertices) {
		return nil, false
	}
	return g.vertices[id], true
}

// Vertices returns every vertex in id order.
func (g *Graph) Vertices() []*Vertex {
	out := make([]*Vertex, len(g.vertices))
	copy(out, g.vertices)
	return out
}

// ByLabel looks up a vertex by its full label.
func (g *Graph) ByLabel(label string) (*Vertex, bool) {
	id, ok := g.labels[label]
	if !ok {
		return nil, false
	}
	return g.vertices[id], true
}

func (g *Graph) get(id ID) *Vertex {
	return g.vertices[id]
}

// add allocates the next id and wires v under its parents.
func (g *Graph) add(v *Vertex, parents ...*Vertex) *Vertex {
	v.g = g
	v.id = ID(len(g.vertices))
	v.parents = make([]ID, len(parents))
	for i, p := range parents {
		if p == nil || p.g != g {
			panic(&VertexError{Op: "build", ID: v.id, Err: ErrForeignVertex})
		}
		v.parents[i] = p.id
	}
	g.vertices = append(g.vertices, v)
	for _, p := range parents {
		p.children = append(p.children, v.id)
	}
	return v
}

// Constant adds a vertex holding a fixed value.
func (g *Graph) Constant(t *tensor.Tensor) *Vertex {
	return g.add(&Vertex{kind: Constant, shape: t.Shape().Clone(), dtype: t.DType(), value: t})
}

// Scalar adds a constant float64 scalar.
func (g *Graph) Scalar(x float64) *Vertex {
	return g.Constant(tensor.Scalar(x))
}

// Placeholder adds a vertex whose value is fed from outside.
func (g *Graph) Placeholder(shape tensor.Shape, dtype tensor.DataType) *Vertex {
	if err := shape.Validate(); err != nil {
		panic(&VertexError{Op: "build", ID: ID(len(g.vertices)), Err: fmt.Errorf("%w: %v", ErrShapeMismatch, err)})
	}
	return g.add(&Vertex{kind: Placeholder, shape: shape.Clone(), dtype: dtype})
}

// PlaceholderWithDefault adds a placeholder that mirrors def until fed.
func (g *Graph) PlaceholderWithDefault(def *Vertex) *Vertex {
	return g.add(&Vertex{kind: Placeholder, shape: def.shape.Clone(), dtype: def.dtype}, def)
}

// Probabilistic adds a random vertex of the given shape whose distribution is
// parameterized by params. Parameter shapes must broadcast to shape.
//
// Panics with a *VertexError if the parameters do not fit the distribution.
func (g *Graph) Probabilistic(d Distribution, shape tensor.Shape, params ...*Vertex) *Vertex {
	v := &Vertex{kind: Probabilistic, dist: d, shape: shape.Clone(), dtype: d.DataType()}
	if n := d.NumParams(); n != len(params) {
		panic(v.withID(g).errorf("build", ErrBadParameters, "%s takes %d parameters, got %d", d.Name(), n, len(params)))
	}
	shapes := []tensor.Shape{shape}
	for _, p := range params {
		shapes = append(shapes, p.shape)
	}
	full, err := tensor.BroadcastAll(shapes...)
	if err != nil || !full.Equal(shape) {
		panic(v.withID(g).errorf("build", ErrShapeMismatch, "%s parameters %v do not broadcast to %v", d.Name(), shapes[1:], shape))
	}
	return g.add(v, params...)
}

// Apply adds a deterministic vertex computing op over operands.
//
// Panics with a *VertexError if operand shapes are incompatible.
func (g *Graph) Apply(op Op, operands ...*Vertex) *Vertex {
	return g.apply(op, 0, operands...)
}

func (g *Graph) apply(op Op, index int, operands ...*Vertex) *Vertex {
	v := &Vertex{kind: Deterministic, op: op, index: index}
	v.withID(g)
	if op <= OpNone || op >= numOps {
		panic(v.errorf("build", ErrBadParameters, "unknown op %d", int(op)))
	}
	info := opTable[op]
	if info.arity != len(operands) {
		panic(v.errorf("build", ErrBadParameters, "%s takes %d operands, got %d", info.name, info.arity, len(operands)))
	}
	shapes := make([]tensor.Shape, len(operands))
	dtypes := make([]tensor.DataType, len(operands))
	for i, o := range operands {
		shapes[i] = o.shape
		dtypes[i] = o.dtype
	}
	var err error
	if info.shape != nil {
		v.shape, err = info.shape(v, shapes)
	} else {
		v.shape, err = tensor.BroadcastAll(shapes...)
	}
	if err != nil {
		panic(v.errorf("build", ErrShapeMismatch, "%s: %v", info.name, err))
	}
	v.dtype = info.dtype(dtypes)
	return g.add(v, operands...)
}

// withID previews the id v will receive so build errors can name it.
func (v *Vertex) withID(g *Graph) *Vertex {
	v.id = ID(len(g.vertices))
	return v
}

// Add returns a + b.
func (g *Graph) Add(a, b *Vertex) *Vertex { return g.Apply(OpAdd, a, b) }

// Sub returns a - b.
func (g *Graph) Sub(a, b *Vertex) *Vertex { return g.Apply(OpSub, a, b) }

// Mul returns a * b.
func (g *Graph) Mul(a, b *Vertex) *Vertex { return g.Apply(OpMul, a, b) }

// Div returns a / b.
func (g *Graph) Div(a, b *Vertex) *Vertex { return g.Apply(OpDiv, a, b) }

// Pow returns a ^ b.
func (g *Graph) Pow(a, b *Vertex) *Vertex { return g.Apply(OpPow, a, b) }

// Max returns the element-wise maximum.
func (g *Graph) Max(a, b *Vertex) *Vertex { return g.Apply(OpMax, a, b) }

// Min returns the element-wise minimum.
func (g *Graph) Min(a, b *Vertex) *Vertex { return g.Apply(OpMin, a, b) }

// Neg returns -a.
func (g *Graph) Neg(a *Vertex) *Vertex { return g.Apply(OpNeg, a) }

// Abs returns |a|.
func (g *Graph) Abs(a *Vertex) *Vertex { return g.Apply(OpAbs, a) }

// Exp returns e^a.
func (g *Graph) Exp(a *Vertex) *Vertex { return g.Apply(OpExp, a) }

// Log returns ln a.
func (g *Graph) Log(a *Vertex) *Vertex { return g.Apply(OpLog, a) }

// Sin returns sin a.
func (g *Graph) Sin(a *Vertex) *Vertex { return g.Apply(OpSin, a) }

// Cos returns cos a.
func (g *Graph) Cos(a *Vertex) *Vertex { return g.Apply(OpCos, a) }

// Tan returns tan a.
func (g *Graph) Tan(a *Vertex) *Vertex { return g.Apply(OpTan, a) }

// Tanh returns tanh a.
func (g *Graph) Tanh(a *Vertex) *Vertex { return g.Apply(OpTanh, a) }

// Sigmoid returns 1 / (1 + e^-a).
func (g *Graph) Sigmoid(a *Vertex) *Vertex { return g.Apply(OpSigmoid, a) }

// Sqrt returns the square root of a.
func (g *Graph) Sqrt(a *Vertex) *Vertex { return g.Apply(OpSqrt, a) }

// Square returns a * a.
func (g *Graph) Square(a *Vertex) *Vertex { return g.Apply(OpSquare, a) }

// LogGamma returns ln Γ(a).
func (g *Graph) LogGamma(a *Vertex) *Vertex { return g.Apply(OpLogGamma, a) }

// ToFloat converts a boolean or integer vertex to float64.
func (g *Graph) ToFloat(a *Vertex) *Vertex { return g.Apply(OpToFloat, a) }

// Sum returns the sum of all elements of a as a scalar.
func (g *Graph) Sum(a *Vertex) *Vertex { return g.Apply(OpSum, a) }

// MatMul returns the matrix product of two rank-2 vertices.
func (g *Graph) MatMul(a, b *Vertex) *Vertex { return g.Apply(OpMatMul, a, b) }

// Take returns the element of a at flat index i.
func (g *Graph) Take(a *Vertex, i int) *Vertex { return g.apply(OpTake, i, a) }

// If returns a where cond is true and b elsewhere.
func (g *Graph) If(cond, a, b *Vertex) *Vertex { return g.Apply(OpIf, cond, a, b) }

// GreaterThan returns a > b.
func (g *Graph) GreaterThan(a, b *Vertex) *Vertex { return g.Apply(OpGreaterThan, a, b) }

// GreaterOrEqual returns a >= b.
func (g *Graph) GreaterOrEqual(a, b *Vertex) *Vertex { return g.Apply(OpGreaterOrEqual, a, b) }

// LessThan returns a < b.
func (g *Graph) LessThan(a, b *Vertex) *Vertex { return g.Apply(OpLessThan, a, b) }

// LessOrEqual returns a <= b.
func (g *Graph) LessOrEqual(a, b *Vertex) *Vertex { return g.Apply(OpLessOrEqual, a, b) }

// Equal returns a == b.
func (g *Graph) Equal(a, b *Vertex) *Vertex { return g.Apply(OpEqual, a, b) }

// And returns a && b.
func (g *Graph) And(a, b *Vertex) *Vertex { return g.Apply(OpAnd, a, b) }

// Or returns a || b.
func (g *Graph) Or(a, b *Vertex) *Vertex { return g.Apply(OpOr, a, b) }

// Not returns !a.
func (g *Graph) Not(a *Vertex) *Vertex { return g.Apply(OpNot, a) }

// Floor rounds a down.
func (g *Graph) Floor(a *Vertex) *Vertex { return g.Apply(OpFloor, a) }

// Round rounds a half away from zero.
func (g *Graph) Round(a *Vertex) *Vertex { return g.Apply(OpRound, a) }

// joinLabel builds "ns1.ns2.name".
func joinLabel(name string, namespace []string) string {
	if len(namespace) == 0 {
		return name
	}
	return strings.Join(namespace, ".") + "." + name
}
