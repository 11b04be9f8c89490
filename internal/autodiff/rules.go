package autodiff

import (
	"math"

	"gonum.org/v1/gonum/mathext"

	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// entry is one non-zero of a local Jacobian: ∂out[out]/∂in[in] = coef.
type entry struct {
	out, in int
	coef    float64
}

// localJacobian returns, for each parent of v, the sparse Jacobian of v's
// value with respect to that parent's value. A nil slice means no gradient
// flows to that parent. Both differentiation modes are driven by this one
// table: forward mode pushes parent rows into v's rows, reverse mode pushes
// v's columns into parent columns. Broadcasting is handled by mapping each
// output element to the input element that fed it, so reverse mode sums over
// broadcast axes.
func localJacobian(v *graph.Vertex, in []*tensor.Tensor, out *tensor.Tensor) [][]entry {
	switch v.Op() {
	case graph.OpSum:
		n := in[0].NumElements()
		es := make([]entry, n)
		for i := 0; i < n; i++ {
			es[i] = entry{out: 0, in: i, coef: 1}
		}
		return [][]entry{es}
	case graph.OpTake:
		return [][]entry{{{out: 0, in: v.Index(), coef: 1}}}
	case graph.OpMatMul:
		return matMulJacobian(in[0], in[1])
	}

	outShape := out.Shape()
	n := outShape.NumElements()
	idx := make([][]int, len(in))
	for k, t := range in {
		idx[k] = tensor.BroadcastIndex(outShape, t.Shape())
	}
	xs := make([]float64, len(in))
	local := make([]float64, len(in))
	jac := make([][]entry, len(in))
	flows := make([]bool, len(in))
	for i := 0; i < n; i++ {
		for k, t := range in {
			xs[k] = t.At(idx[k][i])
		}
		for k := range local {
			local[k] = 0
		}
		elementPartials(v.Op(), xs, out.At(i), local, flows)
		for k := range in {
			if flows[k] && local[k] != 0 {
				jac[k] = append(jac[k], entry{out: i, in: idx[k][i], coef: local[k]})
			}
		}
	}
	for k := range jac {
		if flows[k] && jac[k] == nil {
			jac[k] = []entry{}
		}
	}
	return jac
}

// elementPartials writes ∂y/∂x_k into d[k] for an element-wise op and marks
// in flows which operands receive gradient at all.
func elementPartials(op graph.Op, x []float64, y float64, d []float64, flows []bool) {
	for k := range flows {
		flows[k] = true
	}
	switch op {
	case graph.OpAdd:
		d[0], d[1] = 1, 1
	case graph.OpSub:
		d[0], d[1] = 1, -1
	case graph.OpMul:
		d[0], d[1] = x[1], x[0]
	case graph.OpDiv:
		d[0] = 1 / x[1]
		d[1] = -x[0] / (x[1] * x[1])
	case graph.OpPow:
		a, b := x[0], x[1]
		d[0] = b * math.Pow(a, b-1)
		if a > 0 {
			d[1] = y * math.Log(a)
		}
	case graph.OpMax:
		if x[0] >= x[1] {
			d[0] = 1
		} else {
			d[1] = 1
		}
	case graph.OpMin:
		if x[0] <= x[1] {
			d[0] = 1
		} else {
			d[1] = 1
		}
	case graph.OpNeg:
		d[0] = -1
	case graph.OpAbs:
		switch {
		case x[0] > 0:
			d[0] = 1
		case x[0] < 0:
			d[0] = -1
		}
	case graph.OpExp:
		d[0] = y
	case graph.OpLog:
		d[0] = 1 / x[0]
	case graph.OpSin:
		d[0] = math.Cos(x[0])
	case graph.OpCos:
		d[0] = -math.Sin(x[0])
	case graph.OpTan:
		d[0] = 1 + y*y
	case graph.OpTanh:
		d[0] = 1 - y*y
	case graph.OpSigmoid:
		d[0] = y * (1 - y)
	case graph.OpSqrt:
		d[0] = 0.5 / y
	case graph.OpSquare:
		d[0] = 2 * x[0]
	case graph.OpLogGamma:
		d[0] = mathext.Digamma(x[0])
	case graph.OpToFloat:
		d[0] = 1
	case graph.OpIf:
		flows[0] = false
		if x[0] != 0 {
			d[1] = 1
		} else {
			d[2] = 1
		}
	default:
		for k := range flows {
			flows[k] = false
		}
	}
}

func matMulJacobian(a, b *tensor.Tensor) [][]entry {
	n, k := a.Shape()[0], a.Shape()[1]
	m := b.Shape()[1]
	ja := make([]entry, 0, n*m*k)
	jb := make([]entry, 0, n*m*k)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			o := i*m + j
			for p := 0; p < k; p++ {
				ja = append(ja, entry{out: o, in: i*k + p, coef: b.At(p*m + j)})
				jb = append(jb, entry{out: o, in: p*m + j, coef: a.At(i*k + p)})
			}
		}
	}
	return [][]entry{ja, jb}
}
