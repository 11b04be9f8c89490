package network

import (
	"iter"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/improbable-research/keanu-sub009/internal/dist"
	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/random"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

type twoGaussians struct {
	g       *graph.Graph
	a, b, c *graph.Vertex
	net     *BayesianNetwork
}

// newTwoGaussians builds A, B ~ N(20, 1) and C ~ N(A+B, 1) observed at 44.
func newTwoGaussians(t *testing.T, a, b float64) *twoGaussians {
	t.Helper()
	g := graph.New()
	va := dist.NewGaussian(g, g.Scalar(20), g.Scalar(1))
	vb := dist.NewGaussian(g, g.Scalar(20), g.Scalar(1))
	require.NoError(t, va.SetValue(tensor.Scalar(a)))
	require.NoError(t, vb.SetValue(tensor.Scalar(b)))
	vc := dist.NewGaussian(g, g.Add(va, vb), g.Scalar(1))
	require.NoError(t, vc.Observe(tensor.Scalar(44)))

	net, err := FromConnected(va)
	require.NoError(t, err)
	return &twoGaussians{g: g, a: va, b: vb, c: vc, net: net}
}

func gaussLogPdf(x, mu float64) float64 {
	return -0.5*(x-mu)*(x-mu) - 0.5*math.Log(2*math.Pi)
}

func TestPartitions(t *testing.T) {
	m := newTwoGaussians(t, 20, 20)
	assert.Equal(t, []*graph.Vertex{m.a, m.b}, m.net.LatentVertices())
	assert.Equal(t, []*graph.Vertex{m.c}, m.net.ObservedVertices())
	assert.Equal(t, []*graph.Vertex{m.a, m.b}, m.net.ContinuousLatentVertices())
	assert.Empty(t, m.net.DiscreteLatentVertices())
	assert.Len(t, m.net.LatentOrObservedVertices(), 3)
}

func TestPartitions_AreSnapshots(t *testing.T) {
	m := newTwoGaussians(t, 20, 20)
	require.NoError(t, m.a.Observe(tensor.Scalar(21)))
	assert.Len(t, m.net.LatentVertices(), 2, "partitions are fixed at construction")

	rebuilt, err := FromConnected(m.a)
	require.NoError(t, err)
	assert.Equal(t, []*graph.Vertex{m.b}, rebuilt.LatentVertices())
}

func TestLogProb_Additivity(t *testing.T) {
	m := newTwoGaussians(t, 20.5, 21)

	prior, err := m.net.LogPrior()
	require.NoError(t, err)
	likelihood, err := m.net.LogLikelihood()
	require.NoError(t, err)
	joint, err := m.net.LogProb()
	require.NoError(t, err)

	assert.InDelta(t, gaussLogPdf(20.5, 20)+gaussLogPdf(21, 20), prior, 1e-12)
	assert.InDelta(t, gaussLogPdf(44, 41.5), likelihood, 1e-12)
	assert.InDelta(t, prior+likelihood, joint, 1e-12)

	// Moving A changes only A's term and the likelihood through A+B.
	require.NoError(t, m.a.SetAndCascade(tensor.Scalar(22)))
	joint2, err := m.net.LogProb()
	require.NoError(t, err)
	want := joint - gaussLogPdf(20.5, 20) + gaussLogPdf(22, 20) - gaussLogPdf(44, 41.5) + gaussLogPdf(44, 43)
	assert.InDelta(t, want, joint2, 1e-12)
}

func TestLogProbGradients(t *testing.T) {
	m := newTwoGaussians(t, 20.5, 21)

	grads, err := m.net.LogProbGradients()
	require.NoError(t, err)
	assert.InDelta(t, -0.5+2.5, grads[m.a.ID()].Scalar(), 1e-12)
	assert.InDelta(t, -1+2.5, grads[m.b.ID()].Scalar(), 1e-12)

	lik, err := m.net.LogLikelihoodGradients()
	require.NoError(t, err)
	assert.InDelta(t, 2.5, lik[m.a.ID()].Scalar(), 1e-12)
	assert.InDelta(t, 2.5, lik[m.b.ID()].Scalar(), 1e-12)
}

func TestLogProbGradients_ThroughLogProbGraph(t *testing.T) {
	g := graph.New()
	l := dist.NewGaussian(g, g.Scalar(0), g.Scalar(1))
	require.NoError(t, l.SetValue(tensor.Scalar(0.3)))
	x := dist.NewExponential(g, g.Exp(l))
	require.NoError(t, x.Observe(tensor.Scalar(0.5)))

	net, err := FromConnected(l)
	require.NoError(t, err)
	grads, err := net.LogProbGradients()
	require.NoError(t, err)
	want := -0.3 + 1 - 0.5*math.Exp(0.3)
	assert.InDelta(t, want, grads[l.ID()].Scalar(), 1e-12)
}

func TestLogProbGradients_VectorLatent(t *testing.T) {
	g := graph.New()
	mu := dist.New(g, dist.GaussianDist, g.Constant(tensor.Vector(0, 0, 0)), g.Scalar(2))
	require.NoError(t, mu.SetValue(tensor.Vector(1, -1, 0.5)))
	obs := dist.NewGaussian(g, g.Sum(mu), g.Scalar(1))
	require.NoError(t, obs.Observe(tensor.Scalar(1)))

	net, err := FromConnected(mu)
	require.NoError(t, err)
	grads, err := net.LogProbGradients()
	require.NoError(t, err)

	// ∂/∂mu_i = -mu_i/4 + (1 - Σmu)
	resid := 1 - 0.5
	assert.InDeltaSlice(t, []float64{-0.25 + resid, 0.25 + resid, -0.125 + resid}, grads[mu.ID()].Data(), 1e-12)
}

func TestLogProbAt_LeavesNetworkUntouched(t *testing.T) {
	m := newTwoGaussians(t, 20, 20)
	before, err := m.net.LogProb()
	require.NoError(t, err)

	at, err := m.net.LogProbAt(map[*graph.Vertex]*tensor.Tensor{m.a: tensor.Scalar(22), m.b: tensor.Scalar(22)})
	require.NoError(t, err)
	assert.InDelta(t, 2*gaussLogPdf(22, 20)+gaussLogPdf(44, 44), at, 1e-12)

	grads, err := m.net.LogProbGradientsAt(map[*graph.Vertex]*tensor.Tensor{m.a: tensor.Scalar(22)})
	require.NoError(t, err)
	assert.InDelta(t, -2+2, grads[m.a.ID()].Scalar(), 1e-12)

	after, err := m.net.LogProb()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 20.0, m.a.MustValue().Scalar())
}

func TestSnapshotRestore(t *testing.T) {
	m := newTwoGaussians(t, 20, 21)
	snap, err := m.net.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []graph.ID{m.a.ID(), m.b.ID()}, snap.IDs())

	require.NoError(t, m.a.SetAndCascade(tensor.Scalar(30)))
	require.NoError(t, m.net.Restore(snap))
	assert.Equal(t, 20.0, m.a.MustValue().Scalar())

	lp, err := m.net.LogProb()
	require.NoError(t, err)
	assert.InDelta(t, snap.LogProb(), lp, 1e-12)
}

func TestProbe_FindsPossibleState(t *testing.T) {
	g := graph.New()
	a := dist.NewBernoulli(g, g.Scalar(0.5))
	require.NoError(t, a.SetValue(tensor.BoolScalar(false)))
	d := dist.NewBernoulli(g, g.If(a, g.Scalar(1), g.Scalar(0)))
	require.NoError(t, d.Observe(tensor.BoolScalar(true)))

	net, err := FromConnected(a)
	require.NoError(t, err)
	impossible, err := net.IsInImpossibleState()
	require.NoError(t, err)
	require.True(t, impossible)

	require.NoError(t, net.ProbeForNonZeroProbability(100, random.New(1)))
	assert.True(t, a.MustValue().Bool(0))
	lp, err := net.LogProb()
	require.NoError(t, err)
	assert.InDelta(t, math.Log(0.5), lp, 1e-12)
}

func TestProbe_UnsampledLatents(t *testing.T) {
	g := graph.New()
	a := dist.NewGaussian(g, g.Scalar(0), g.Scalar(1))
	b := dist.NewGaussian(g, a, g.Scalar(1))
	c := dist.NewGaussian(g, g.Add(a, b), g.Scalar(1))
	require.NoError(t, c.Observe(tensor.Scalar(1)))

	net, err := FromConnected(c)
	require.NoError(t, err)
	require.NoError(t, net.ProbeForNonZeroProbability(10, random.New(2)))
	assert.True(t, a.HasValue())
	assert.True(t, b.HasValue())
}

func TestProbe_ImpossibleNetwork(t *testing.T) {
	g := graph.New()
	a := dist.NewBernoulli(g, g.Scalar(0.5))
	d := dist.NewBernoulli(g, g.If(a, g.Scalar(0), g.Scalar(0)))
	require.NoError(t, d.Observe(tensor.BoolScalar(true)))

	net, err := FromConnected(a)
	require.NoError(t, err)
	err = net.ProbeForNonZeroProbability(20, random.New(1))
	assert.ErrorIs(t, err, ErrImpossibleNetwork)
}

func TestVertexByLabel(t *testing.T) {
	m := newTwoGaussians(t, 20, 20)
	require.NoError(t, m.a.SetLabel("A"))
	v, ok := m.net.VertexByLabel("A")
	require.True(t, ok)
	assert.Same(t, m.a, v)
	_, ok = m.net.VertexByLabel("missing")
	assert.False(t, ok)
}

func statesOf(v *graph.Vertex, values ...float64) []NetworkState {
	states := make([]NetworkState, len(values))
	for i, x := range values {
		states[i] = NewNetworkState(map[graph.ID]*tensor.Tensor{v.ID(): tensor.Scalar(x)}, float64(-i))
	}
	return states
}

func TestNetworkSamples_Statistics(t *testing.T) {
	g := graph.New()
	v := g.Scalar(0)
	samples := NewNetworkSamples(statesOf(v, 1, 2, 2, 3, 2, 5))

	mean, err := samples.Mean(v)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, mean.Scalar(), 1e-12)

	variance, err := samples.Variance(v)
	require.NoError(t, err)
	assert.InDelta(t, 1.9, variance.Scalar(), 1e-12)

	mode, err := samples.Mode(v)
	require.NoError(t, err)
	assert.Equal(t, 2.0, mode.Scalar())

	p := samples.Probability(func(s NetworkState) bool { return s.Get(v).Scalar() > 2 })
	assert.InDelta(t, 2.0/6, p, 1e-12)

	assert.Equal(t, 3, samples.Drop(3).Len())
	assert.Equal(t, 0, samples.Drop(10).Len())
	down := samples.DownSample(2)
	require.Equal(t, 3, down.Len())
	assert.Equal(t, 2.0, down.State(2).Get(v).Scalar())
	assert.Equal(t, []float64{0, -1, -2, -3, -4, -5}, samples.LogProbs())

	other := g.Scalar(1)
	_, err = samples.Mean(other)
	assert.ErrorIs(t, err, ErrUnknownVertex)
	_, err = NewNetworkSamples(nil).Mean(v)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestNetworkSamples_Autocorrelation(t *testing.T) {
	g := graph.New()
	v := g.Scalar(0)
	samples := NewNetworkSamples(statesOf(v, 1, -1, 1, -1, 1, -1))

	acf, err := samples.Autocorrelation(v, 0, 2)
	require.NoError(t, err)
	require.Len(t, acf, 3)
	assert.InDelta(t, 1, acf[0], 1e-12)
	assert.InDelta(t, -5.0/6, acf[1], 1e-12)
	assert.InDelta(t, 4.0/6, acf[2], 1e-12)
}

func sliceSeq(states []NetworkState) iter.Seq2[NetworkState, error] {
	return func(yield func(NetworkState, error) bool) {
		for _, s := range states {
			if !yield(s, nil) {
				return
			}
		}
	}
}

func TestStreams(t *testing.T) {
	g := graph.New()
	v := g.Scalar(0)
	states := statesOf(v, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9)

	seq := DownSampleStream(DropStream(sliceSeq(states), 3), 2)
	got, err := CollectStream(seq, 100)
	require.NoError(t, err)
	var values []float64
	for _, s := range got.States() {
		values = append(values, s.Get(v).Scalar())
	}
	assert.Equal(t, []float64{3, 5, 7, 9}, values)

	limited, err := CollectStream(sliceSeq(states), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, limited.Len())
}
