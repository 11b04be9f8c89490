package autodiff

import "errors"

// Differentiation errors. They are never approximated away.
var (
	ErrNotDifferentiable = errors.New("vertex is not differentiable")
	ErrDiscreteGradient  = errors.New("cannot differentiate with respect to a discrete vertex")
)
