package dist

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/random"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

func TestGaussian_LogProb(t *testing.T) {
	x := tensor.Vector(0, 1)
	params := []*tensor.Tensor{tensor.Scalar(0), tensor.Scalar(1)}
	want := -math.Log(2*math.Pi) - 0.5
	assert.InDelta(t, want, GaussianDist.LogProb(x, params), 1e-12)

	bad := []*tensor.Tensor{tensor.Scalar(0), tensor.Scalar(-1)}
	assert.True(t, math.IsInf(GaussianDist.LogProb(x, bad), -1))
}

func TestSupportBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		d      graph.Distribution
		x      float64
		params []float64
	}{
		{"uniform above", UniformDist, 2, []float64{0, 1}},
		{"exponential negative", ExponentialDist, -1, []float64{1}},
		{"gamma zero", GammaDist, 0, []float64{2, 1}},
		{"beta one", BetaDist, 1, []float64{2, 2}},
		{"poisson fractional", PoissonDist, 1.5, []float64{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := make([]*tensor.Tensor, len(tt.params))
			for i, p := range tt.params {
				params[i] = tensor.Scalar(p)
			}
			x, err := tensor.New(tensor.Shape{}, tensor.Float64, []float64{tt.x})
			require.NoError(t, err)
			assert.True(t, math.IsInf(tt.d.LogProb(x, params), -1))
		})
	}
}

func TestBernoulli_LogProb(t *testing.T) {
	p := []*tensor.Tensor{tensor.Scalar(0.3)}
	assert.InDelta(t, math.Log(0.3), BernoulliDist.LogProb(tensor.BoolScalar(true), p), 1e-12)
	assert.InDelta(t, math.Log(0.7), BernoulliDist.LogProb(tensor.BoolScalar(false), p), 1e-12)
}

func TestSample_Reproducible(t *testing.T) {
	params := []*tensor.Tensor{tensor.Scalar(2), tensor.Scalar(0.5)}
	a, err := GaussianDist.Sample(tensor.Shape{100}, params, random.New(9))
	require.NoError(t, err)
	b, err := GaussianDist.Sample(tensor.Shape{100}, params, random.New(9))
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestSample_Moments(t *testing.T) {
	src := random.New(1)
	tests := []struct {
		name     string
		d        graph.Distribution
		params   []float64
		mean     float64
		variance float64
	}{
		{"gaussian", GaussianDist, []float64{3, 2}, 3, 4},
		{"uniform", UniformDist, []float64{-1, 1}, 0, 1.0 / 3},
		{"exponential", ExponentialDist, []float64{2}, 0.5, 0.25},
		{"gamma", GammaDist, []float64{3, 2}, 1.5, 0.75},
		{"poisson", PoissonDist, []float64{4}, 4, 4},
		{"bernoulli", BernoulliDist, []float64{0.25}, 0.25, 0.1875},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := make([]*tensor.Tensor, len(tt.params))
			for i, p := range tt.params {
				params[i] = tensor.Scalar(p)
			}
			s, err := tt.d.Sample(tensor.Shape{20000}, params, src)
			require.NoError(t, err)
			assert.Equal(t, tt.d.DataType(), s.DType())
			mean, variance := stat.MeanVariance(s.Data(), nil)
			assert.InDelta(t, tt.mean, mean, 0.05*math.Max(1, math.Abs(tt.mean)))
			assert.InDelta(t, tt.variance, variance, 0.1*math.Max(1, tt.variance))
		})
	}
}

func TestSample_InvalidParameters(t *testing.T) {
	_, err := GaussianDist.Sample(tensor.Shape{}, []*tensor.Tensor{tensor.Scalar(0), tensor.Scalar(0)}, random.New(1))
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = UniformDist.Sample(tensor.Shape{}, []*tensor.Tensor{tensor.Scalar(1), tensor.Scalar(0)}, random.New(1))
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

// numericGrad differentiates LogProb by central differences on input k
// (0 is the value, i+1 is parameter i).
func numericGrad(d graph.Distribution, x *tensor.Tensor, params []*tensor.Tensor, k int) []float64 {
	const h = 1e-6
	inputs := append([]*tensor.Tensor{x}, params...)
	target := inputs[k]
	out := make([]float64, target.NumElements())
	for i := range out {
		eval := func(delta float64) float64 {
			data := append([]float64(nil), target.Data()...)
			data[i] += delta
			moved := tensor.MustFromSlice(data, target.Shape())
			in := append([]*tensor.Tensor(nil), inputs...)
			in[k] = moved
			return d.LogProb(in[0], in[1:])
		}
		out[i] = (eval(h) - eval(-h)) / (2 * h)
	}
	return out
}

func TestDLogProb_MatchesFiniteDifferences(t *testing.T) {
	tests := []struct {
		name   string
		d      graph.Distribution
		x      *tensor.Tensor
		params []*tensor.Tensor
	}{
		{"gaussian broadcast", GaussianDist, tensor.Vector(0.3, -1.2, 2), []*tensor.Tensor{tensor.Scalar(0.5), tensor.Vector(1, 2, 0.7)}},
		{"uniform", UniformDist, tensor.Vector(0.2, 0.4), []*tensor.Tensor{tensor.Scalar(-1), tensor.Scalar(3)}},
		{"gamma", GammaDist, tensor.Vector(0.8, 2.5), []*tensor.Tensor{tensor.Scalar(2.5), tensor.Scalar(1.5)}},
		{"beta", BetaDist, tensor.Scalar(0.35), []*tensor.Tensor{tensor.Scalar(2), tensor.Scalar(3)}},
		{"laplace", LaplaceDist, tensor.Vector(1.5, -0.5), []*tensor.Tensor{tensor.Scalar(0.2), tensor.Scalar(1.3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff, ok := tt.d.(graph.Differentiable)
			require.True(t, ok)
			wrt := make([]int, len(tt.params))
			for i := range wrt {
				wrt[i] = i
			}
			grad, err := diff.DLogProb(tt.x, tt.params, true, wrt)
			require.NoError(t, err)

			assert.InDeltaSlice(t, numericGrad(tt.d, tt.x, tt.params, 0), grad.Value.Data(), 1e-5)
			for i, p := range tt.params {
				require.True(t, grad.Params[i].Shape().Equal(p.Shape()))
				assert.InDeltaSlice(t, numericGrad(tt.d, tt.x, tt.params, i+1), grad.Params[i].Data(), 1e-5, "param %d", i)
			}
		})
	}
}

func TestDLogProb_Discrete(t *testing.T) {
	p := []*tensor.Tensor{tensor.Scalar(0.3)}
	_, err := BernoulliDist.DLogProb(tensor.BoolScalar(true), p, true, nil)
	assert.ErrorIs(t, err, ErrDiscreteValue)

	grad, err := BernoulliDist.DLogProb(tensor.Bools(true, false), p, false, []int{0})
	require.NoError(t, err)
	assert.InDelta(t, 1/0.3-1/0.7, grad.Params[0].Scalar(), 1e-12)

	grad, err = PoissonDist.DLogProb(tensor.IntScalar(6), []*tensor.Tensor{tensor.Scalar(3)}, false, []int{0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, grad.Params[0].Scalar(), 1e-12)
}

func TestExponential_LogProbGraph(t *testing.T) {
	g := graph.New()
	v := NewExponential(g, g.Scalar(2))
	require.NoError(t, v.SetValue(tensor.Scalar(0.7)))

	lg, ok := graph.BuildLogProbGraph(v)
	require.True(t, ok)
	require.NoError(t, lg.Feed(tensor.Scalar(0.7), []*tensor.Tensor{tensor.Scalar(2)}))
	want, err := v.LogProb()
	require.NoError(t, err)
	assert.InDelta(t, want, lg.LogProb.MustValue().Scalar(), 1e-12)

	require.NoError(t, lg.Feed(tensor.Scalar(-1), []*tensor.Tensor{tensor.Scalar(2)}))
	assert.True(t, math.IsInf(lg.LogProb.MustValue().Scalar(), -1))

	_, isAnalytic := graph.Distribution(ExponentialDist).(graph.Differentiable)
	assert.False(t, isAnalytic)
}

func TestGaussian_LogProbGraphMatchesDensity(t *testing.T) {
	g := graph.New()
	v := NewGaussian(g, g.Constant(tensor.Vector(0, 1)), g.Scalar(2))
	x := tensor.Vector(0.5, -3)
	require.NoError(t, v.SetValue(x))

	lg, ok := graph.BuildLogProbGraph(v)
	require.True(t, ok)
	params, err := v.ParamValues()
	require.NoError(t, err)
	require.NoError(t, lg.Feed(x, params))

	want, err := v.LogProb()
	require.NoError(t, err)
	assert.InDelta(t, want, lg.LogProb.MustValue().Scalar(), 1e-12)
}
