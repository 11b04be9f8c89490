package graph

import (
	"fmt"
	"math"

	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// Op identifies the operation a deterministic vertex applies to its parents.
type Op int

// Deterministic operations.
const (
	OpNone Op = iota

	// Binary arithmetic (broadcasting).
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpPow
	OpMax
	OpMin

	// Unary arithmetic.
	OpNeg
	OpAbs
	OpExp
	OpLog
	OpSin
	OpCos
	OpTan
	OpTanh
	OpSigmoid
	OpSqrt
	OpSquare
	OpLogGamma
	OpToFloat

	// Structural.
	OpSum
	OpMatMul
	OpTake
	OpIf

	// Non-differentiable.
	OpGreaterThan
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
	OpEqual
	OpAnd
	OpOr
	OpNot
	OpFloor
	OpRound

	numOps
)

// opSpec is the value table entry for an Op. Gradient rules live in the
// autodiff package and dispatch on the same Op.
type opSpec struct {
	name           string
	arity          int
	differentiable bool
	elem           func(xs []float64) float64                                // element-wise rule, nil for structural ops
	shape          func(v *Vertex, in []tensor.Shape) (tensor.Shape, error) // nil means broadcast
	dtype          func(in []tensor.DataType) tensor.DataType
	apply          func(v *Vertex, in []*tensor.Tensor) (*tensor.Tensor, error) // structural ops only
}

var opTable [numOps]opSpec

func init() {
	float := func([]tensor.DataType) tensor.DataType { return tensor.Float64 }
	boolean := func([]tensor.DataType) tensor.DataType { return tensor.Bool }

	bin := func(op Op, name string, diff bool, f func(a, b float64) float64) {
		opTable[op] = opSpec{name: name, arity: 2, differentiable: diff, dtype: float,
			elem: func(xs []float64) float64 { return f(xs[0], xs[1]) }}
	}
	un := func(op Op, name string, diff bool, f func(a float64) float64) {
		opTable[op] = opSpec{name: name, arity: 1, differentiable: diff, dtype: float,
			elem: func(xs []float64) float64 { return f(xs[0]) }}
	}
	cmp := func(op Op, name string, f func(a, b float64) bool) {
		opTable[op] = opSpec{name: name, arity: 2, dtype: boolean,
			elem: func(xs []float64) float64 { return b2f(f(xs[0], xs[1])) }}
	}

	bin(OpAdd, "add", true, func(a, b float64) float64 { return a + b })
	bin(OpSub, "sub", true, func(a, b float64) float64 { return a - b })
	bin(OpMul, "mul", true, func(a, b float64) float64 { return a * b })
	bin(OpDiv, "div", true, func(a, b float64) float64 { return a / b })
	bin(OpPow, "pow", true, math.Pow)
	bin(OpMax, "max", true, math.Max)
	bin(OpMin, "min", true, math.Min)

	un(OpNeg, "neg", true, func(a float64) float64 { return -a })
	un(OpAbs, "abs", true, math.Abs)
	un(OpExp, "exp", true, math.Exp)
	un(OpLog, "log", true, math.Log)
	un(OpSin, "sin", true, math.Sin)
	un(OpCos, "cos", true, math.Cos)
	un(OpTan, "tan", true, math.Tan)
	un(OpTanh, "tanh", true, math.Tanh)
	un(OpSigmoid, "sigmoid", true, func(a float64) float64 { return 1 / (1 + math.Exp(-a)) })
	un(OpSqrt, "sqrt", true, math.Sqrt)
	un(OpSquare, "square", true, func(a float64) float64 { return a * a })
	un(OpLogGamma, "loggamma", true, func(a float64) float64 {
		lg, _ := math.Lgamma(a)
		return lg
	})
	un(OpToFloat, "tofloat", true, func(a float64) float64 { return a })
	un(OpFloor, "floor", false, math.Floor)
	un(OpRound, "round", false, math.Round)

	cmp(OpGreaterThan, "gt", func(a, b float64) bool { return a > b })
	cmp(OpGreaterOrEqual, "ge", func(a, b float64) bool { return a >= b })
	cmp(OpLessThan, "lt", func(a, b float64) bool { return a < b })
	cmp(OpLessOrEqual, "le", func(a, b float64) bool { return a <= b })
	cmp(OpEqual, "eq", func(a, b float64) bool { return a == b })
	cmp(OpAnd, "and", func(a, b float64) bool { return a != 0 && b != 0 })
	cmp(OpOr, "or", func(a, b float64) bool { return a != 0 || b != 0 })
	opTable[OpNot] = opSpec{name: "not", arity: 1, dtype: boolean,
		elem: func(xs []float64) float64 { return b2f(xs[0] == 0) }}

	opTable[OpIf] = opSpec{name: "if", arity: 3, differentiable: true,
		elem: func(xs []float64) float64 {
			if xs[0] != 0 {
				return xs[1]
			}
			return xs[2]
		},
		dtype: func(in []tensor.DataType) tensor.DataType {
			if in[1] == in[2] {
				return in[1]
			}
			return tensor.Float64
		}}

	opTable[OpSum] = opSpec{name: "sum", arity: 1, differentiable: true, dtype: float,
		shape: func(*Vertex, []tensor.Shape) (tensor.Shape, error) { return tensor.Shape{}, nil },
		apply: func(_ *Vertex, in []*tensor.Tensor) (*tensor.Tensor, error) {
			return tensor.Scalar(tensor.Sum(in[0])), nil
		}}

	opTable[OpMatMul] = opSpec{name: "matmul", arity: 2, differentiable: true, dtype: float,
		shape: func(_ *Vertex, in []tensor.Shape) (tensor.Shape, error) {
			a, b := in[0], in[1]
			if len(a) != 2 || len(b) != 2 || a[1] != b[0] {
				return nil, fmt.Errorf("matmul needs [n,k]x[k,m], got %v x %v", a, b)
			}
			return tensor.Shape{a[0], b[1]}, nil
		},
		apply: func(_ *Vertex, in []*tensor.Tensor) (*tensor.Tensor, error) {
			return tensor.MatMul(in[0], in[1])
		}}

	opTable[OpTake] = opSpec{name: "take", arity: 1, differentiable: true,
		dtype: func(in []tensor.DataType) tensor.DataType { return in[0] },
		shape: func(v *Vertex, in []tensor.Shape) (tensor.Shape, error) {
			if v.index < 0 || v.index >= in[0].NumElements() {
				return nil, fmt.Errorf("index %d out of range for shape %v", v.index, in[0])
			}
			return tensor.Shape{}, nil
		},
		apply: func(v *Vertex, in []*tensor.Tensor) (*tensor.Tensor, error) {
			return tensor.New(tensor.Shape{}, in[0].DType(), []float64{in[0].At(v.index)})
		}}
}

// String returns the op name.
func (op Op) String() string {
	if op <= OpNone || op >= numOps {
		return "none"
	}
	return opTable[op].name
}

// Differentiable reports whether gradients can flow through op.
func (op Op) Differentiable() bool {
	return op > OpNone && op < numOps && opTable[op].differentiable
}

// ElementWise reports whether op maps broadcast inputs element by element.
func (op Op) ElementWise() bool {
	return op > OpNone && op < numOps && opTable[op].elem != nil
}

// Arity returns the number of operands op takes.
func (op Op) Arity() int {
	return opTable[op].arity
}

// applyOp computes op over concrete input values.
func applyOp(v *Vertex, in []*tensor.Tensor) (*tensor.Tensor, error) {
	info := opTable[v.op]
	var (
		out *tensor.Tensor
		err error
	)
	if info.elem != nil {
		out, err = tensor.MapN(in, info.elem)
	} else {
		out, err = info.apply(v, in)
	}
	if err != nil {
		return nil, err
	}
	dt := dtypesOf(in)
	if want := info.dtype(dt); out.DType() != want {
		out = out.WithDType(want)
	}
	return out, nil
}

func dtypesOf(in []*tensor.Tensor) []tensor.DataType {
	dt := make([]tensor.DataType, len(in))
	for i, t := range in {
		dt[i] = t.DType()
	}
	return dt
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
