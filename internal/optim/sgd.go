package optim

// SGD is plain gradient ascent with optional momentum.
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	x = x + lr * velocity
//
// Momentum accelerates progress along consistent directions and dampens
// oscillations across narrow ridges of the log probability.
type SGD struct {
	lr       float64
	momentum float64
	velocity []float64
}

// SGDConfig holds configuration for SGD.
type SGDConfig struct {
	LR       float64 `yaml:"lr"`       // Learning rate (default: 0.01)
	Momentum float64 `yaml:"momentum"` // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates an SGD stepper for points of length dim.
func NewSGD(dim int, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{lr: config.LR, momentum: config.Momentum, velocity: make([]float64, dim)}
}

// Step moves x uphill along grad.
func (s *SGD) Step(x, grad []float64) {
	for i, g := range grad {
		if s.momentum != 0 {
			s.velocity[i] = s.momentum*s.velocity[i] + g
			g = s.velocity[i]
		}
		x[i] += s.lr * g
	}
}

// GetLR returns the current learning rate.
func (s *SGD) GetLR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}
