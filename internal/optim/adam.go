package optim

import (
	"math"
)

// Adam implements the Adam (Adaptive Moment Estimation) update as gradient
// ascent on a flat point.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	x = x + lr * m_hat / (sqrt(v_hat) + eps)           // Ascent step
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int       // Timestep for bias correction
	m     []float64 // First moment estimates
	v     []float64 // Second moment estimates
}

// AdamConfig holds configuration for Adam.
type AdamConfig struct {
	LR    float64    `yaml:"lr"`    // Learning rate (default: 0.01)
	Betas [2]float64 `yaml:"betas"` // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float64    `yaml:"eps"`   // Term for numerical stability (default: 1e-8)
}

// NewAdam creates an Adam stepper for points of length dim.
//
// Default hyperparameters:
//   - LR: 0.01
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdam(dim int, config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.01
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam{
		lr:    config.LR,
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Eps,
		m:     make([]float64, dim),
		v:     make([]float64, dim),
	}
}

// Step moves x uphill along grad.
func (a *Adam) Step(x, grad []float64) {
	a.t++
	biasCorrection1 := 1.0 - math.Pow(a.beta1, float64(a.t))
	biasCorrection2 := 1.0 - math.Pow(a.beta2, float64(a.t))

	for i, g := range grad {
		a.m[i] = a.beta1*a.m[i] + (1.0-a.beta1)*g
		a.v[i] = a.beta2*a.v[i] + (1.0-a.beta2)*g*g
		mHat := a.m[i] / biasCorrection1
		vHat := a.v[i] / biasCorrection2
		x[i] += a.lr * mHat / (math.Sqrt(vHat) + a.eps)
	}
}

// GetLR returns the current learning rate.
func (a *Adam) GetLR() float64 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam) SetLR(lr float64) {
	a.lr = lr
}

// GetTimestep returns the number of steps taken.
func (a *Adam) GetTimestep() int {
	return a.t
}
