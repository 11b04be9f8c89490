package autodiff

import (
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// PartialDerivative holds ∂of/∂wrt for a tensor-valued of and wrt. Its
// logical shape is of-shape followed by wrt-shape; element (i, j) is the
// derivative of flat element i of of with respect to flat element j of wrt.
//
// Instances are never mutated once returned to callers.
type PartialDerivative struct {
	of   tensor.Shape
	wrt  tensor.Shape
	nWrt int
	data []float64
}

func newPartial(of, wrt tensor.Shape) *PartialDerivative {
	nWrt := wrt.NumElements()
	return &PartialDerivative{
		of:   of.Clone(),
		wrt:  wrt.Clone(),
		nWrt: nWrt,
		data: make([]float64, of.NumElements()*nWrt),
	}
}

// identityPartial returns ∂x/∂x for a value of the given shape.
func identityPartial(shape tensor.Shape) *PartialDerivative {
	p := newPartial(shape, shape)
	for i := 0; i < p.nWrt; i++ {
		p.data[i*p.nWrt+i] = 1
	}
	return p
}

// OfShape returns the shape of the differentiated quantity.
func (p *PartialDerivative) OfShape() tensor.Shape { return p.of }

// WrtShape returns the shape of the quantity differentiated against.
func (p *PartialDerivative) WrtShape() tensor.Shape { return p.wrt }

// At returns ∂of[i]/∂wrt[j] for flat indices i and j.
func (p *PartialDerivative) At(i, j int) float64 {
	return p.data[i*p.nWrt+j]
}

// Tensor returns the partial laid out with shape of ++ wrt.
func (p *PartialDerivative) Tensor() *tensor.Tensor {
	return tensor.MustFromSlice(p.data, p.of.Concat(p.wrt))
}

// WrtTensor returns the partial shaped like wrt. It is only meaningful when
// of is scalar-like, which is the case for log-probability gradients.
func (p *PartialDerivative) WrtTensor() *tensor.Tensor {
	if !p.of.IsScalarLike() {
		return p.Tensor()
	}
	return tensor.MustFromSlice(p.data, p.wrt)
}

// SumOverOf sums the partial over every element of of, giving the gradient of
// Σof with respect to wrt, shaped like wrt.
func (p *PartialDerivative) SumOverOf() *tensor.Tensor {
	out := make([]float64, p.nWrt)
	for r := 0; r < len(p.data)/max(p.nWrt, 1); r++ {
		for c := 0; c < p.nWrt; c++ {
			out[c] += p.data[r*p.nWrt+c]
		}
	}
	return tensor.MustFromSlice(out, p.wrt)
}

// addRow adds scale * src[row j] to row i.
func (p *PartialDerivative) addRow(i int, src *PartialDerivative, j int, scale float64) {
	if scale == 0 {
		return
	}
	dst := p.data[i*p.nWrt : (i+1)*p.nWrt]
	from := src.data[j*src.nWrt : (j+1)*src.nWrt]
	for c := range dst {
		dst[c] += scale * from[c]
	}
}

// addCol adds scale * src[column j] to column i.
func (p *PartialDerivative) addCol(i int, src *PartialDerivative, j int, scale float64) {
	if scale == 0 {
		return
	}
	rows := len(p.data) / max(p.nWrt, 1)
	for r := 0; r < rows; r++ {
		p.data[r*p.nWrt+i] += scale * src.data[r*src.nWrt+j]
	}
}

// addAll adds src element-wise; both must have the same layout.
func (p *PartialDerivative) addAll(src *PartialDerivative) {
	for i, v := range src.data {
		p.data[i] += v
	}
}
